package main

import (
	"errors"
	"fmt"
	"net/http"

	claude "github.com/AshwinPathi/claude-api-go"
	"github.com/AshwinPathi/claude-api-go/internal/config"
	"github.com/AshwinPathi/claude-api-go/internal/db"
	"github.com/AshwinPathi/claude-api-go/stream"
	"github.com/AshwinPathi/claude-api-go/transport"
)

// newUserErrorf is a user-facing error.
func newUserErrorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

// cliError is an error with a reason fit for the user.
type cliError struct {
	err    error
	reason string
}

func (c cliError) Error() string {
	return c.err.Error()
}

func (c cliError) Unwrap() error { return c.err }

func (c cliError) Reason() string {
	return c.reason
}

// explain picks a reason for a failed API call.
func explain(err error) error {
	var cerr cliError
	if errors.As(err, &cerr) {
		return err
	}
	var cfgErr config.Error
	if errors.As(err, &cfgErr) {
		return cliError{err, cfgErr.Reason}
	}

	var terr *transport.Error
	switch {
	case errors.Is(err, claude.ErrNoConversation):
		return cliError{err, "No conversation selected. Use --continue or --continue-last."}
	case errors.Is(err, db.ErrNoMatches):
		return cliError{err, "No conversation matched."}
	case errors.Is(err, db.ErrManyMatches):
		return cliError{err, "More than one conversation matched. Use a longer uuid prefix."}
	case errors.Is(err, stream.ErrEmptyStream):
		return cliError{err, "Claude sent an empty response."}
	case errors.As(err, &terr):
		return cliError{err, statusReason(terr.StatusCode)}
	}
	var derr *transport.DecodeError
	if errors.As(err, &derr) {
		return cliError{err, "Could not understand the server's response."}
	}
	return cliError{err, "Something went wrong."}
}

func statusReason(code int) string {
	switch code {
	case 0:
		return "Could not reach claude.ai."
	case http.StatusUnauthorized, http.StatusForbidden:
		return "Session key rejected. Log in again and copy a fresh sessionKey cookie."
	case http.StatusNotFound:
		return "Conversation or organization not found."
	case http.StatusTooManyRequests:
		return "You’ve hit your message limit."
	default:
		if code >= http.StatusInternalServerError {
			return "claude.ai server error."
		}
		return fmt.Sprintf("claude.ai answered with status %d.", code)
	}
}
