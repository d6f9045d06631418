// Package db indexes the conversations the CLI touched, so they can be
// found again by a title or a uuid prefix.
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

var (
	// ErrNoMatches happens when nothing matched a lookup.
	ErrNoMatches = errors.New("no conversations matched the given input")

	// ErrManyMatches happens when a lookup is ambiguous.
	ErrManyMatches = errors.New("multiple conversations matched the input")
)

// MinPrefix is the shortest uuid prefix a lookup accepts.
const MinPrefix = 4

// Conversation is an indexed conversation.
type Conversation struct {
	ID           string    `db:"id"`
	Organization string    `db:"organization"`
	Title        string    `db:"title"`
	Model        string    `db:"model"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// DB is the conversation index.
type DB struct {
	db *sqlx.DB
}

// Open opens the index in dir, creating it when needed.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create db: %w", err)
	}
	return open(filepath.Join(dir, "conversations.sqlite"))
}

func open(path string) (*DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not create db: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own database otherwise
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping db: %w", err)
	}
	if _, err := db.Exec(`
		create table if not exists conversations(
			id text not null primary key,
			organization text not null,
			title text not null,
			model text not null default '',
			updated_at datetime not null default current_timestamp,
			check(id <> ''),
			check(organization <> '')
		);
		create index if not exists idx_conv_title on conversations(title);
		create index if not exists idx_conv_updated on conversations(updated_at);
	`); err != nil {
		return nil, fmt.Errorf("could not migrate db: %w", err)
	}
	return &DB{db}, nil
}

// Close closes the index.
func (c *DB) Close() error {
	return c.db.Close() //nolint:wrapcheck
}

// Save indexes a conversation, or refreshes its update time when it is
// already there. Empty titles and models leave the indexed ones alone.
func (c *DB) Save(convo Conversation) error {
	if convo.UpdatedAt.IsZero() {
		convo.UpdatedAt = time.Now()
	}
	// stored as text, so one zone keeps the ordering right
	convo.UpdatedAt = convo.UpdatedAt.UTC()
	if _, err := c.db.NamedExec(`
		insert into conversations (id, organization, title, model, updated_at)
		values (:id, :organization, :title, :model, :updated_at)
		on conflict(id) do update set
			title = coalesce(nullif(excluded.title, ''), title),
			model = coalesce(nullif(excluded.model, ''), model),
			updated_at = excluded.updated_at
	`, convo); err != nil {
		return fmt.Errorf("could not save conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation from the index.
func (c *DB) Delete(id string) error {
	if _, err := c.db.Exec(`delete from conversations where id = ?`, id); err != nil {
		return fmt.Errorf("could not delete conversation: %w", err)
	}
	return nil
}

// FindHEAD returns the most recently updated conversation of org.
func (c *DB) FindHEAD(org string) (*Conversation, error) {
	var convo Conversation
	if err := c.db.Get(&convo, `
		select * from conversations
		where organization = ?
		order by updated_at desc
		limit 1
	`, org); err != nil {
		return nil, fmt.Errorf("could not find last conversation: %w", err)
	}
	return &convo, nil
}

// Find looks a conversation of org up by exact title or, when in is long
// enough, by uuid prefix.
func (c *DB) Find(org, in string) (*Conversation, error) {
	var convos []Conversation
	var err error
	if len(in) < MinPrefix {
		err = c.db.Select(&convos, `
			select * from conversations
			where organization = ? and title = ?
		`, org, in)
	} else {
		err = c.db.Select(&convos, `
			select * from conversations
			where organization = ? and (id like ? escape '\' or title = ?)
		`, org, escapeLike(in)+"%", in)
	}
	if err != nil {
		return nil, fmt.Errorf("could not find conversation: %w", err)
	}
	switch len(convos) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoMatches, in)
	case 1:
		return &convos[0], nil
	default:
		ids := make([]string, 0, len(convos))
		for _, c := range convos {
			ids = append(ids, c.ID)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrManyMatches, in, strings.Join(ids, ", "))
	}
}

// List returns the conversations of org, most recent first.
func (c *DB) List(org string) ([]Conversation, error) {
	var convos []Conversation
	if err := c.db.Select(&convos, `
		select * from conversations
		where organization = ?
		order by updated_at desc
	`, org); err != nil {
		return convos, fmt.Errorf("could not list conversations: %w", err)
	}
	return convos, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
