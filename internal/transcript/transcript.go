// Package transcript renders conversation histories as markdown.
package transcript

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	claude "github.com/AshwinPathi/claude-api-go"
)

// Roles.
const (
	RoleHuman     = claude.SenderHuman
	RoleAssistant = claude.SenderAssistant
)

// Message is one turn of a transcript.
type Message struct {
	Role        string
	Content     string
	Attachments []string
}

// Conversation is a titled list of turns.
type Conversation struct {
	ID       string
	Title    string
	Messages []Message
}

// FromInfo builds the transcript of a conversation history. Messages are
// ordered by their index.
func FromInfo(info claude.ConversationInfo) Conversation {
	cc := Conversation{ID: info.UUID, Title: info.Name}
	msgs := slices.Clone(info.Messages)
	slices.SortStableFunc(msgs, func(a, b claude.ChatMessage) int {
		return cmp.Compare(a.Index, b.Index)
	})
	for _, m := range msgs {
		msg := Message{Role: m.Sender, Content: strings.TrimSpace(m.Text)}
		for _, a := range m.Attachments {
			msg.Attachments = append(msg.Attachments, a.FileName)
		}
		cc.Messages = append(cc.Messages, msg)
	}
	return cc
}

// LastPrompt returns what the human said last.
func (cc Conversation) LastPrompt() string {
	var result string
	for _, msg := range cc.Messages {
		if msg.Role != RoleHuman {
			continue
		}
		result = msg.Content
	}
	return result
}

func attachmentLine(name string) string {
	return fmt.Sprintf("> Attached: `%s`\n", name)
}

func (cc Conversation) String() string {
	var sb strings.Builder
	if cc.Title != "" {
		sb.WriteString("# " + cc.Title + "\n\n")
	}
	for _, msg := range cc.Messages {
		if msg.Content == "" && len(msg.Attachments) == 0 {
			continue
		}
		for _, a := range msg.Attachments {
			sb.WriteString(attachmentLine(a))
		}
		if len(msg.Attachments) > 0 {
			sb.WriteByte('\n')
		}
		switch msg.Role {
		case RoleHuman:
			sb.WriteString("**You**: ")
		case RoleAssistant:
			sb.WriteString("**Claude**: ")
		default:
			sb.WriteString("**" + msg.Role + "**: ")
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
