package cache

import (
	"time"

	claude "github.com/AshwinPathi/claude-api-go"
	"github.com/AshwinPathi/claude-api-go/internal/transcript"
)

// Transcripts keeps the last fetched history of each conversation so it can
// be shown offline.
type Transcripts struct {
	store *Store[transcript.Conversation]
}

// NewTranscripts creates the transcript cache under dir.
func NewTranscripts(dir string) (*Transcripts, error) {
	store, err := New[transcript.Conversation](dir, TranscriptCache)
	if err != nil {
		return nil, err
	}
	return &Transcripts{store: store}, nil
}

// Read returns the cached transcript of a conversation.
func (t *Transcripts) Read(id string) (transcript.Conversation, error) {
	return t.store.Get(id)
}

// Write caches the transcript of a conversation.
func (t *Transcripts) Write(cc transcript.Conversation) error {
	return t.store.Put(cc.ID, cc)
}

// Delete drops the transcript of a conversation.
func (t *Transcripts) Delete(id string) error {
	return t.store.Delete(id)
}

// Organizations keeps the organization list of a session key for a while,
// sparing a request on every command.
type Organizations struct {
	cache *Expiring[[]claude.Organization]
}

// NewOrganizations creates the organization cache under dir.
func NewOrganizations(dir string, ttl time.Duration) (*Organizations, error) {
	cache, err := NewExpiring[[]claude.Organization](dir, OrganizationCache, ttl)
	if err != nil {
		return nil, err
	}
	return &Organizations{cache: cache}, nil
}

// Read returns the cached organizations of the session key with the given
// fingerprint.
func (o *Organizations) Read(fingerprint string) ([]claude.Organization, error) {
	return o.cache.Get(fingerprint)
}

// Write caches the organizations of a session key.
func (o *Organizations) Write(fingerprint string, orgs []claude.Organization) error {
	return o.cache.Put(fingerprint, orgs)
}

// Delete forgets the organizations of a session key.
func (o *Organizations) Delete(fingerprint string) error {
	return o.cache.Delete(fingerprint)
}
