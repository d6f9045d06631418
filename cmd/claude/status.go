package main

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type statusDoneMsg struct{}

// statusModel shows a spinner and a label on stderr while a request runs.
type statusModel struct {
	spinner spinner.Model
	label   string
	done    bool
}

func newStatusModel(label string, style lipgloss.Style) statusModel {
	return statusModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(style)),
		label:   label,
	}
}

func (m statusModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m statusModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.label
}
