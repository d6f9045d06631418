package transport

import (
	"encoding/json"
	"fmt"
)

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyRaw
	bodyJSON
)

// Body is a request payload. The caller picks the shape; nothing is inferred
// from the content.
type Body struct {
	kind  bodyKind
	raw   []byte
	value any
}

// NoBody sends the request without a payload.
func NoBody() Body { return Body{} }

// RawBody sends b unmodified.
func RawBody(b []byte) Body { return Body{kind: bodyRaw, raw: b} }

// StringBody sends s unmodified.
func StringBody(s string) Body { return Body{kind: bodyRaw, raw: []byte(s)} }

// JSONBody serializes v to JSON when the request is sent.
func JSONBody(v any) Body { return Body{kind: bodyJSON, value: v} }

// bytes returns the encoded payload, or nil when there is none.
func (b Body) bytes() ([]byte, error) {
	switch b.kind {
	case bodyRaw:
		return b.raw, nil
	case bodyJSON:
		bts, err := json.Marshal(b.value)
		if err != nil {
			return nil, fmt.Errorf("encode json body: %w", err)
		}
		return bts, nil
	default:
		return nil, nil
	}
}
