package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventStream is a lazy sequence of server-sent event payloads.
//
// The request is sent on the first call to Next. The connection is released
// when the sequence is exhausted, when it fails, or when Close is called,
// whichever comes first. EventStream is not safe for concurrent use and
// cannot be restarted.
type EventStream struct {
	url  string
	open func() (*http.Response, *Error)
	done func(err *Error)

	started bool
	closed  bool
	resp    *http.Response
	decoder ssestream.Decoder
	current string
	events  int
	err     error
}

// Stream posts body to url and returns the event stream of the response.
// Nothing is sent, and no span is started, until the first call to Next.
func (t *Transport) Stream(ctx context.Context, url string, header Header, body Body) *EventStream {
	s := &EventStream{url: url}
	s.open = func() (*http.Response, *Error) {
		ctx, span := t.tracer.Start(ctx, "transport.STREAM", trace.WithSpanKind(trace.SpanKindClient))
		span.SetAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.full", url),
		)
		start := time.Now()
		s.done = func(err *Error) {
			defer span.End()
			span.SetAttributes(attribute.Int("stream.events", s.events))
			if err != nil {
				t.fail(span, err, time.Since(start))
				return
			}
			span.SetStatus(codes.Ok, "")
			t.logger.Debug("stream", "url", url, "events", s.events, "took", time.Since(start))
		}
		return t.roundTrip(ctx, http.MethodPost, url, header, body)
	}
	return s
}

// Next advances to the next event, blocking until one arrives. It returns
// false when the stream ended, failed or was closed.
func (s *EventStream) Next() bool {
	if s.closed {
		return false
	}
	if !s.started {
		s.started = true
		resp, err := s.open()
		if err != nil {
			s.finish(err)
			return false
		}
		s.resp = resp
		s.decoder = ssestream.NewDecoder(resp)
		if s.decoder == nil {
			s.finish(&Error{Op: "STREAM", URL: s.url, StatusCode: resp.StatusCode, Err: errors.New("response has no body")})
			return false
		}
	}

	for s.decoder.Next() {
		data := strings.TrimSuffix(string(s.decoder.Event().Data), "\n")
		if data == "" {
			continue
		}
		s.current = data
		s.events++
		return true
	}

	var terr *Error
	if err := s.decoder.Err(); err != nil {
		terr = &Error{
			Op:         "STREAM",
			URL:        s.url,
			StatusCode: s.resp.StatusCode,
			Err:        fmt.Errorf("read event: %w", err),
		}
	}
	s.finish(terr)
	return false
}

// Current returns the payload of the event Next advanced to.
func (s *EventStream) Current() string { return s.current }

// Err returns the failure that ended the stream, if any. A stream that ended
// because the server closed it normally has no error.
func (s *EventStream) Err() error { return s.err }

// Close releases the connection. It is safe to call more than once.
func (s *EventStream) Close() error {
	if s.closed {
		return nil
	}
	if !s.started {
		s.started = true
		s.closed = true
		return nil
	}
	return s.finish(nil)
}

func (s *EventStream) finish(err *Error) error {
	s.closed = true
	s.current = ""
	if err != nil {
		s.err = err
	}
	var cerr error
	if s.decoder != nil {
		cerr = s.decoder.Close()
	}
	if s.done != nil {
		s.done(err)
	}
	return cerr
}
