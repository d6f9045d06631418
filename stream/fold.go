package stream

import (
	"fmt"
	"strings"

	"github.com/tidwall/sjson"
)

// TerminalStopReason marks the last meaningful event of a completion.
const TerminalStopReason = "stop_sequence"

// Message is a folded completion: the last event received, with its
// completion replaced by every fragment of the stream.
type Message struct {
	Event

	// Complete is true when the terminal stop reason was seen. A stream the
	// server closed without one is still folded, but is not complete.
	Complete bool

	// Events is how many events were folded.
	Events int
}

// Text returns the folded completion.
func (m Message) Text() string {
	text, _ := m.Completion()
	return text
}

// Fold consumes s until it ends or yields the terminal stop reason, and folds
// the events into one [Message]. The stream is closed on return.
//
// When no event arrives, Fold returns [ErrEmptyStream], or the failure that
// ended the stream. When the stream fails after some events, the partial
// message is returned together with the error.
func Fold(s *Stream) (Message, error) {
	defer s.Close() //nolint:errcheck

	var (
		sb   strings.Builder
		last Event
		msg  Message
	)
	for s.Next() {
		ev := s.Current()
		last = ev
		msg.Events++
		if fragment, ok := ev.Completion(); ok {
			sb.WriteString(fragment)
		}
		if reason, ok := ev.StopReason(); ok && reason == TerminalStopReason {
			msg.Complete = true
			break
		}
	}

	if msg.Events == 0 {
		if err := s.Err(); err != nil {
			return Message{}, err
		}
		return Message{}, ErrEmptyStream
	}

	raw, err := sjson.SetBytes(last.raw, CompletionField, sb.String())
	if err != nil {
		return Message{}, fmt.Errorf("fold: %w", err)
	}
	msg.Event = Event{raw: raw}
	return msg, s.Err()
}
