// Package transport executes the raw HTTP calls of the chat API: JSON
// requests, multipart uploads and event streams. Every network failure is
// turned into a value; nothing panics or escapes as an unchecked error.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/AshwinPathi/claude-api-go/transport"

// maxErrorBody caps how much of a failed response ends up in the error text.
const maxErrorBody = 512

// Transport issues requests. It holds only read-only configuration and is
// safe for concurrent use.
type Transport struct {
	client *http.Client
	logger *log.Logger
	tracer trace.Tracer
}

// Option configures a [Transport].
type Option func(*Transport)

// WithHTTPClient sets the client used to send requests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithLogger sets the logger requests are reported to at debug level.
func WithLogger(l *log.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithTracerProvider sets where request spans are recorded.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Transport) {
		if tp != nil {
			t.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates a [Transport].
func New(opts ...Option) *Transport {
	t := &Transport{
		client: &http.Client{},
		logger: log.New(io.Discard),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get sends a GET request.
func (t *Transport) Get(ctx context.Context, url string, header Header) Response {
	return t.do(ctx, http.MethodGet, url, header, NoBody())
}

// Post sends a POST request with body.
func (t *Transport) Post(ctx context.Context, url string, header Header, body Body) Response {
	return t.do(ctx, http.MethodPost, url, header, body)
}

// Delete sends a DELETE request.
func (t *Transport) Delete(ctx context.Context, url string, header Header) Response {
	return t.do(ctx, http.MethodDelete, url, header, NoBody())
}

// PostMultipart encodes form and posts it. The content type and length are
// set on a copy of header.
func (t *Transport) PostMultipart(ctx context.Context, url string, header Header, form *Form) Response {
	contentType, body := form.Encode()
	h := header.Clone()
	h["content-type"] = contentType
	h["content-length"] = strconv.Itoa(len(body))
	return t.Post(ctx, url, h, RawBody(body))
}

func (t *Transport) do(ctx context.Context, method, url string, header Header, body Body) Response {
	ctx, span := t.tracer.Start(ctx, "transport."+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", url),
	)

	start := time.Now()
	resp, terr := t.roundTrip(ctx, method, url, header, body)
	if terr != nil {
		t.fail(span, terr, time.Since(start))
		return failed(terr)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		terr = &Error{Op: method, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
		t.fail(span, terr, time.Since(start))
		return failed(terr)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	span.SetStatus(codes.Ok, "")
	t.logger.Debug("request", "method", method, "url", url, "status", resp.StatusCode, "bytes", len(data), "took", time.Since(start))
	return Response{OK: true, Data: data, StatusCode: resp.StatusCode}
}

// roundTrip sends the request. On success the caller owns the response body;
// non-2xx responses are consumed and reported as an [Error].
func (t *Transport) roundTrip(ctx context.Context, method, url string, header Header, body Body) (*http.Response, *Error) {
	payload, err := body.bytes()
	if err != nil {
		return nil, &Error{Op: method, URL: url, Err: err}
	}
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, &Error{Op: method, URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	header.apply(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &Error{Op: method, URL: url, Err: err}
	}
	if isFailureStatusCode(resp) {
		defer resp.Body.Close() //nolint:errcheck
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Op:         method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        statusError(resp.Status, snippet),
		}
	}
	return resp, nil
}

func (t *Transport) fail(span trace.Span, err *Error, took time.Duration) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if err.StatusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", err.StatusCode))
	}
	t.logger.Debug("request failed", "method", err.Op, "url", err.URL, "status", err.StatusCode, "err", err.Err, "took", took)
}

func isFailureStatusCode(resp *http.Response) bool {
	return resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices
}

func statusError(status string, body []byte) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fmt.Errorf("%w: %s", ErrStatus, status)
	}
	return fmt.Errorf("%w: %s: %s", ErrStatus, status, body)
}
