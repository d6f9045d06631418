package claude

import "time"

// Organization is an account the session belongs to.
type Organization struct {
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	JoinToken    string    `json:"join_token,omitempty"`
	Capabilities []string  `json:"capabilities,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Conversation is a chat of an organization.
type Conversation struct {
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Senders of a [ChatMessage].
const (
	SenderHuman     = "human"
	SenderAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	UUID        string       `json:"uuid"`
	Text        string       `json:"text"`
	Sender      string       `json:"sender"`
	Index       int          `json:"index"`
	CreatedAt   time.Time    `json:"created_at"`
	Attachments []Attachment `json:"attachments"`
}

// ConversationInfo is a conversation together with its message history.
type ConversationInfo struct {
	Conversation
	Messages []ChatMessage `json:"chat_messages"`
}

// Attachment is a document sent alongside a message. Text files are sent
// inline; anything else is converted by the server first.
type Attachment struct {
	FileName         string `json:"file_name"`
	FileType         string `json:"file_type"`
	FileSize         int64  `json:"file_size"`
	ExtractedContent string `json:"extracted_content"`
}

// Title is the answer of the title generator.
type Title struct {
	Title string `json:"title"`
}

// MessageRequest is a message to append to a conversation.
type MessageRequest struct {
	Organization string
	Conversation string
	Text         string
	Attachments  []Attachment

	// Model and Timezone fall back to the client config.
	Model    Model
	Timezone Timezone
}

type completion struct {
	Prompt   string   `json:"prompt"`
	Timezone Timezone `json:"timezone"`
	Model    Model    `json:"model"`
}

type appendMessageBody struct {
	OrganizationUUID string       `json:"organization_uuid"`
	ConversationUUID string       `json:"conversation_uuid"`
	Text             string       `json:"text"`
	Attachments      []Attachment `json:"attachments"`
	Completion       completion   `json:"completion"`
}

type createConversationBody struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

type renameBody struct {
	OrganizationUUID string `json:"organization_uuid"`
	ConversationUUID string `json:"conversation_uuid"`
	Title            string `json:"title"`
}

type generateTitleBody struct {
	OrganizationUUID string   `json:"organization_uuid"`
	ConversationUUID string   `json:"conversation_uuid"`
	MessageContent   string   `json:"message_content"`
	RecentTitles     []string `json:"recent_titles"`
}
