package stream

import (
	"encoding/json"
	"errors"

	"github.com/AshwinPathi/claude-api-go/transport"
	"github.com/tidwall/gjson"
)

// Field names the aggregator reads from each event.
const (
	CompletionField = "completion"
	StopReasonField = "stop_reason"
)

var errNotObject = errors.New("event is not a json object")

// Event is one decoded record of the stream. The schema belongs to the
// server; only the fields the aggregator needs have accessors.
type Event struct {
	raw []byte
}

// ParseEvent decodes an event payload.
func ParseEvent(data string) (Event, error) {
	raw := []byte(data)
	if !gjson.ValidBytes(raw) {
		return Event{}, &transport.DecodeError{Data: raw, Err: errors.New("invalid json")}
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return Event{}, &transport.DecodeError{Data: raw, Err: errNotObject}
	}
	return Event{raw: raw}, nil
}

// Completion returns the text fragment carried by the event.
func (e Event) Completion() (string, bool) {
	return e.str(CompletionField)
}

// StopReason returns the termination marker carried by the event.
func (e Event) StopReason() (string, bool) {
	return e.str(StopReasonField)
}

func (e Event) str(field string) (string, bool) {
	r := gjson.GetBytes(e.raw, field)
	if r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}

// Get reads any field using gjson path syntax, e.g. "messageLimit.type".
func (e Event) Get(path string) gjson.Result {
	return gjson.GetBytes(e.raw, path)
}

// Raw returns the JSON text of the event.
func (e Event) Raw() []byte { return e.raw }

// Decode unmarshals the event into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.raw, v); err != nil {
		return &transport.DecodeError{Data: e.raw, Err: err}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.raw == nil {
		return []byte("null"), nil
	}
	return e.raw, nil
}
