package claude

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/AshwinPathi/claude-api-go/stream"
	"github.com/AshwinPathi/claude-api-go/transport"
)

var (
	// ErrNoSessionKey happens when a client is built without a session key.
	ErrNoSessionKey = errors.New("missing session key")

	// ErrNotFound happens when a looked up resource does not exist.
	ErrNotFound = errors.New("not found")
)

var jsonHeader = transport.Header{"content-type": "application/json"}

// Client talks to the API on behalf of one session. Every method maps to a
// single request. It holds no mutable state and can be shared.
type Client struct {
	cfg       Config
	transport *transport.Transport
}

// Option configures a [Client].
type Option func(*Client)

// WithTransport sets the transport requests go through.
func WithTransport(t *transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// New builds a client from cfg, filling unset fields with defaults.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.SessionKey == "" {
		return nil, ErrNoSessionKey
	}
	c := &Client{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = transport.New()
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Header returns the headers of a request: the spoofed set, then the user
// agent, then the session cookie, then call, each layer winning over the
// previous ones.
func (c *Client) Header(call transport.Header) transport.Header {
	return transport.MergeHeaders(
		c.cfg.Headers,
		transport.Header{"user-agent": c.cfg.UserAgent},
		transport.Header{"cookie": "sessionKey=" + c.cfg.SessionKey},
		call,
	)
}

func (c *Client) url(path string) string {
	return c.cfg.BaseURL + path
}

func decode(resp transport.Response, v any) error {
	if !resp.OK {
		return resp.Err
	}
	if v == nil {
		return nil
	}
	return resp.JSON(v) //nolint:wrapcheck
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	return decode(c.transport.Get(ctx, c.url(path), c.Header(jsonHeader)), v)
}

func (c *Client) post(ctx context.Context, path string, body, v any) error {
	return decode(c.transport.Post(ctx, c.url(path), c.Header(jsonHeader), transport.JSONBody(body)), v)
}

// Organizations lists the organizations of the session.
func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := c.get(ctx, organizationsPath, &orgs); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// Organization finds an organization of the session by uuid.
func (c *Client) Organization(ctx context.Context, uuid string) (Organization, error) {
	orgs, err := c.Organizations(ctx)
	if err != nil {
		return Organization{}, err
	}
	for _, org := range orgs {
		if org.UUID == uuid {
			return org, nil
		}
	}
	return Organization{}, fmt.Errorf("organization %s: %w", uuid, ErrNotFound)
}

// Conversations lists the conversations of an organization.
func (c *Client) Conversations(ctx context.Context, org string) ([]Conversation, error) {
	var convos []Conversation
	if err := c.get(ctx, conversationsPath(org), &convos); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convos, nil
}

// ConversationInfo returns a conversation with its messages.
func (c *Client) ConversationInfo(ctx context.Context, org, convo string) (ConversationInfo, error) {
	var info ConversationInfo
	if err := c.get(ctx, conversationPath(org, convo), &info); err != nil {
		return ConversationInfo{}, fmt.Errorf("get conversation %s: %w", convo, err)
	}
	return info, nil
}

// CreateConversation creates an empty conversation with the given uuid.
func (c *Client) CreateConversation(ctx context.Context, org, uuid string) (Conversation, error) {
	var convo Conversation
	body := createConversationBody{Name: "", UUID: uuid}
	if err := c.post(ctx, conversationsPath(org), body, &convo); err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return convo, nil
}

// DeleteConversation deletes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, org, convo string) error {
	resp := c.transport.Delete(ctx, c.url(conversationPath(org, convo)), c.Header(nil))
	if err := decode(resp, nil); err != nil {
		return fmt.Errorf("delete conversation %s: %w", convo, err)
	}
	return nil
}

// RenameConversation sets the title of a conversation.
func (c *Client) RenameConversation(ctx context.Context, org, convo, title string) (Conversation, error) {
	var renamed Conversation
	body := renameBody{OrganizationUUID: org, ConversationUUID: convo, Title: title}
	if err := c.post(ctx, renameChatPath, body, &renamed); err != nil {
		return Conversation{}, fmt.Errorf("rename conversation %s: %w", convo, err)
	}
	return renamed, nil
}

// GenerateTitle asks the server to title a conversation from its first
// message and the titles of recent conversations.
func (c *Client) GenerateTitle(ctx context.Context, org, convo, message string, recent []string) (string, error) {
	if recent == nil {
		recent = []string{}
	}
	var title Title
	body := generateTitleBody{
		OrganizationUUID: org,
		ConversationUUID: convo,
		MessageContent:   message,
		RecentTitles:     recent,
	}
	if err := c.post(ctx, generateTitlePath, body, &title); err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	return title.Title, nil
}

// ConvertDocument uploads the file at path and returns the attachment the
// server extracted from it.
func (c *Client) ConvertDocument(ctx context.Context, org, path string) (Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("convert document: %w", err)
	}
	return c.convert(ctx, org, filepath.Base(path), content)
}

func (c *Client) convert(ctx context.Context, org, name string, content []byte) (Attachment, error) {
	form := &transport.Form{}
	form.AddField("orgUuid", org)
	form.AddFile("file", name, content)

	var att Attachment
	resp := c.transport.PostMultipart(ctx, c.url(convertDocumentPath), c.Header(nil), form)
	if err := decode(resp, &att); err != nil {
		return Attachment{}, fmt.Errorf("convert document %s: %w", name, err)
	}
	return att, nil
}

// Attachment turns the file at path into an attachment. UTF-8 text is
// attached as is; other files are converted by the server.
func (c *Client) Attachment(ctx context.Context, org, path string) (Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("attachment: %w", err)
	}
	name := filepath.Base(path)
	if !utf8.Valid(content) {
		return c.convert(ctx, org, name, content)
	}
	return Attachment{
		FileName:         name,
		FileType:         "text/plain",
		FileSize:         int64(len(content)),
		ExtractedContent: string(content),
	}, nil
}

func (c *Client) messageBody(req MessageRequest) appendMessageBody {
	model, tz := req.Model, req.Timezone
	if model == "" {
		model = c.cfg.Model
	}
	if tz == "" {
		tz = c.cfg.Timezone
	}
	attachments := req.Attachments
	if attachments == nil {
		attachments = []Attachment{}
	}
	return appendMessageBody{
		OrganizationUUID: req.Organization,
		ConversationUUID: req.Conversation,
		Text:             req.Text,
		Attachments:      attachments,
		Completion: completion{
			Prompt:   req.Text,
			Timezone: tz,
			Model:    model,
		},
	}
}

// StreamMessage appends a message to a conversation and returns the answer
// as a live stream of events. The request is sent on the first Next; the
// caller must close the stream.
func (c *Client) StreamMessage(ctx context.Context, req MessageRequest) *stream.Stream {
	return stream.Open(ctx, c.transport, c.url(appendMessagePath), c.Header(jsonHeader), c.messageBody(req))
}

// SendMessage appends a message to a conversation and waits for the whole
// answer.
func (c *Client) SendMessage(ctx context.Context, req MessageRequest) (stream.Message, error) {
	msg, err := stream.Fold(c.StreamMessage(ctx, req))
	if err != nil {
		return msg, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}
