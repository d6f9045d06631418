package transcript

import (
	"testing"

	claude "github.com/AshwinPathi/claude-api-go"
	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/require"
)

func TestStringer(t *testing.T) {
	cc := Conversation{
		ID:    "c1",
		Title: "Counting",
		Messages: []Message{
			{Role: RoleHuman, Content: "first 4 natural numbers"},
			{Role: RoleAssistant, Content: "1, 2, 3, 4"},
			{Role: RoleHuman, Content: "summarize this", Attachments: []string{"notes.txt", "doc.pdf"}},
			{Role: RoleAssistant, Content: ""},
			{Role: RoleAssistant, Content: "a list of numbers"},
		},
	}

	golden.RequireEqual(t, []byte(cc.String()))
}

func TestFromInfo(t *testing.T) {
	info := claude.ConversationInfo{
		Conversation: claude.Conversation{UUID: "c1", Name: "Greetings"},
		Messages: []claude.ChatMessage{
			{Text: " Hello!", Sender: claude.SenderAssistant, Index: 1},
			{
				Text:        "Hi Claude!",
				Sender:      claude.SenderHuman,
				Index:       0,
				Attachments: []claude.Attachment{{FileName: "notes.txt"}},
			},
			{Text: "bye", Sender: claude.SenderHuman, Index: 2},
		},
	}

	cc := FromInfo(info)
	require.Equal(t, "c1", cc.ID)
	require.Equal(t, "Greetings", cc.Title)
	require.Equal(t, []Message{
		{Role: RoleHuman, Content: "Hi Claude!", Attachments: []string{"notes.txt"}},
		{Role: RoleAssistant, Content: "Hello!"},
		{Role: RoleHuman, Content: "bye"},
	}, cc.Messages)
	require.Equal(t, 1, info.Messages[0].Index, "input must not be reordered")
}

func TestLastPrompt(t *testing.T) {
	t.Run("no prompt", func(t *testing.T) {
		require.Equal(t, "", Conversation{}.LastPrompt())
	})

	t.Run("multiple prompts", func(t *testing.T) {
		require.Equal(t, "last", Conversation{Messages: []Message{
			{Role: RoleHuman, Content: "first"},
			{Role: RoleAssistant, Content: "hallo"},
			{Role: RoleHuman, Content: "last"},
			{Role: RoleAssistant, Content: "bye"},
		}}.LastPrompt())
	})
}
