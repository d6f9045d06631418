package claude

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/AshwinPathi/claude-api-go/stream"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoConversation happens when a call names no conversation and the
	// session has none selected.
	ErrNoConversation = errors.New("no conversation given and none selected")

	// ErrNoOrganization happens when the session key belongs to no
	// organization.
	ErrNoOrganization = errors.New("session has no organization")
)

const deleteConcurrency = 4

// Session scopes a [Client] to one organization and, optionally, a current
// conversation that calls fall back to when they name none. A Session is
// not safe for concurrent use.
type Session struct {
	client  *Client
	org     string
	current string
	logger  *log.Logger
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithSessionLogger sets the logger of the session.
func WithSessionLogger(l *log.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession scopes client to org. When org is empty, the first
// organization of the session key is used.
func NewSession(ctx context.Context, client *Client, org string, opts ...SessionOption) (*Session, error) {
	s := &Session{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.SwitchClient(ctx, client, org); err != nil {
		return nil, err
	}
	return s, nil
}

// SwitchClient replaces the client and organization, and clears the current
// conversation.
func (s *Session) SwitchClient(ctx context.Context, client *Client, org string) error {
	if org == "" {
		orgs, err := client.Organizations(ctx)
		if err != nil {
			return err
		}
		if len(orgs) == 0 {
			return ErrNoOrganization
		}
		org = orgs[0].UUID
		s.logger.Debug("using first organization", "uuid", org, "name", orgs[0].Name)
	}
	s.client = client
	s.org = org
	s.current = ""
	return nil
}

// Client returns the client of the session.
func (s *Session) Client() *Client { return s.client }

// Organization returns the uuid of the organization in use.
func (s *Session) Organization() string { return s.org }

// Conversation returns the current conversation, if any.
func (s *Session) Conversation() string { return s.current }

// SetConversation selects the conversation calls fall back to.
func (s *Session) SetConversation(uuid string) { s.current = uuid }

// ClearConversation forgets the current conversation.
func (s *Session) ClearConversation() { s.current = "" }

func (s *Session) resolve(convo string) (string, error) {
	if convo != "" {
		return convo, nil
	}
	if s.current != "" {
		return s.current, nil
	}
	return "", ErrNoConversation
}

// Message is what a session sends: text, attachments and the model
// settings. Empty fields fall back to the client config.
type Message struct {
	Text        string
	Attachments []Attachment
	Model       Model
	Timezone    Timezone
}

func (s *Session) request(convo string, msg Message) MessageRequest {
	return MessageRequest{
		Organization: s.org,
		Conversation: convo,
		Text:         msg.Text,
		Attachments:  msg.Attachments,
		Model:        msg.Model,
		Timezone:     msg.Timezone,
	}
}

// StreamMessage sends msg to convo, or to the current conversation when
// convo is empty, and returns the live answer.
func (s *Session) StreamMessage(ctx context.Context, convo string, msg Message) (*stream.Stream, error) {
	id, err := s.resolve(convo)
	if err != nil {
		return nil, err
	}
	return s.client.StreamMessage(ctx, s.request(id, msg)), nil
}

// SendMessage sends msg to convo, or to the current conversation when convo
// is empty, and waits for the whole answer.
func (s *Session) SendMessage(ctx context.Context, convo string, msg Message) (stream.Message, error) {
	id, err := s.resolve(convo)
	if err != nil {
		return stream.Message{}, err
	}
	return s.client.SendMessage(ctx, s.request(id, msg))
}

// Attachment turns the file at path into an attachment of the session's
// organization.
func (s *Session) Attachment(ctx context.Context, path string) (Attachment, error) {
	return s.client.Attachment(ctx, s.org, path)
}

// NewConversation is the outcome of [Session.StartConversation].
type NewConversation struct {
	UUID  string
	Title string

	// Response is the answer to the first message, nil when none was sent.
	Response *stream.Message
}

// StartConversation creates a conversation, sends msg to it unless its text
// is empty, and titles it. The title is generated from the first message
// and the names of the existing conversations, or from name alone when they
// cannot be listed. When no title can be generated, name is the title.
//
// When a step after creation fails, the returned value still carries the
// uuid of the created conversation.
func (s *Session) StartConversation(ctx context.Context, name string, msg Message) (NewConversation, error) {
	created := NewConversation{UUID: uuid.NewString()}
	if _, err := s.client.CreateConversation(ctx, s.org, created.UUID); err != nil {
		return NewConversation{}, err
	}

	if msg.Text != "" {
		resp, err := s.client.SendMessage(ctx, s.request(created.UUID, msg))
		if err != nil {
			return created, err
		}
		created.Response = &resp
	}

	recent := []string{name}
	if convos, err := s.client.Conversations(ctx, s.org); err == nil {
		recent = names(convos)
	} else {
		s.logger.Warn("could not list conversations, titling from name", "err", err)
	}

	title, err := s.client.GenerateTitle(ctx, s.org, created.UUID, msg.Text, recent)
	if err != nil {
		s.logger.Warn("could not generate title, using name", "uuid", created.UUID, "err", err)
		title = name
	}
	created.Title = title
	return created, nil
}

// RenameConversation renames convo, or the current conversation when convo
// is empty.
func (s *Session) RenameConversation(ctx context.Context, convo, title string) (Conversation, error) {
	id, err := s.resolve(convo)
	if err != nil {
		return Conversation{}, err
	}
	return s.client.RenameConversation(ctx, s.org, id, title)
}

// ConversationInfo returns the history of convo, or of the current
// conversation when convo is empty.
func (s *Session) ConversationInfo(ctx context.Context, convo string) (ConversationInfo, error) {
	id, err := s.resolve(convo)
	if err != nil {
		return ConversationInfo{}, err
	}
	return s.client.ConversationInfo(ctx, s.org, id)
}

// Conversations lists the conversations of the organization.
func (s *Session) Conversations(ctx context.Context) ([]Conversation, error) {
	return s.client.Conversations(ctx, s.org)
}

// DeleteConversation deletes convo, or the current conversation when convo
// is empty. Deleting the current conversation clears it.
func (s *Session) DeleteConversation(ctx context.Context, convo string) error {
	id, err := s.resolve(convo)
	if err != nil {
		return err
	}
	if err := s.client.DeleteConversation(ctx, s.org, id); err != nil {
		return err
	}
	if id == s.current {
		s.ClearConversation()
	}
	return nil
}

// DeleteAllConversations deletes every conversation of the organization and
// returns the uuids it failed to delete. The error is only set when the
// conversations could not be listed.
func (s *Session) DeleteAllConversations(ctx context.Context) ([]string, error) {
	convos, err := s.client.Conversations(ctx, s.org)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		failed  []string
		deleted = map[string]bool{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for _, c := range convos {
		g.Go(func() error {
			err := s.client.DeleteConversation(gctx, s.org, c.UUID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Debug("could not delete conversation", "uuid", c.UUID, "err", err)
				failed = append(failed, c.UUID)
				return nil
			}
			deleted[c.UUID] = true
			return nil
		})
	}
	_ = g.Wait()

	if deleted[s.current] {
		s.ClearConversation()
	}
	slices.Sort(failed)
	return failed, nil
}

func names(convos []Conversation) []string {
	names := make([]string, 0, len(convos))
	for _, c := range convos {
		names = append(names, c.Name)
	}
	return names
}
