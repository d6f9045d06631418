// Package stream decodes and aggregates the event stream of a message
// completion.
package stream

import (
	"context"
	"errors"
	"strings"

	"github.com/AshwinPathi/claude-api-go/transport"
)

// MediaType is the accept value of an event stream.
const MediaType = "text/event-stream"

// ErrEmptyStream happens when a stream ended without a single event.
var ErrEmptyStream = errors.New("no response received")

// Source is a sequence of raw event payloads.
type Source interface {
	// returns false once the sequence ended, failed or was closed
	Next() bool

	// the payload Next advanced to
	Current() string

	// the failure that ended the sequence, if any
	Err() error

	// releases the underlying connection
	Close() error
}

var _ Source = &transport.EventStream{}

// Streamer opens event streams.
type Streamer interface {
	Stream(ctx context.Context, url string, header transport.Header, body transport.Body) *transport.EventStream
}

// Stream is the live view of a completion: one decoded [Event] per server
// event, in arrival order.
type Stream struct {
	src     Source
	current Event
	err     error
	done    bool
}

// New wraps src.
func New(src Source) *Stream {
	return &Stream{src: src}
}

// Open posts body as JSON to url and returns the decoded stream. The accept
// header of a copy of header gets the event-stream media type added.
func Open(ctx context.Context, s Streamer, url string, header transport.Header, body any) *Stream {
	return New(s.Stream(ctx, url, AcceptEventStream(header), transport.JSONBody(body)))
}

// AcceptEventStream returns a copy of h whose accept value also lists the
// event-stream media type.
func AcceptEventStream(h transport.Header) transport.Header {
	out := h.Clone()
	if accept := strings.TrimSpace(out["accept"]); accept != "" {
		out["accept"] = accept + "," + MediaType
	} else {
		out["accept"] = MediaType
	}
	return out
}

// Next decodes the next event. A payload that is not a JSON object ends the
// stream with a decode error.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	if !s.src.Next() {
		s.done = true
		s.current = Event{}
		if err := s.src.Err(); err != nil {
			s.err = err
		}
		return false
	}
	ev, err := ParseEvent(s.src.Current())
	if err != nil {
		s.err = err
		s.done = true
		s.current = Event{}
		_ = s.src.Close()
		return false
	}
	s.current = ev
	return true
}

// Current returns the event Next advanced to.
func (s *Stream) Current() Event { return s.current }

// Err returns what ended the stream early: a transport failure or a decode
// error. It is nil when the server finished the stream.
func (s *Stream) Err() error { return s.err }

// Close releases the connection.
func (s *Stream) Close() error {
	s.done = true
	return s.src.Close() //nolint:wrapcheck
}
