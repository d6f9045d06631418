package transport

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Response is the outcome of a non-streaming request.
//
// When OK is true, Err is nil and Data holds the whole body. When OK is
// false, Data is empty and Err describes the failure; StatusCode is set when
// the server answered at all.
type Response struct {
	OK         bool
	Data       []byte
	StatusCode int
	Err        error
}

func failed(err *Error) Response {
	return Response{StatusCode: err.StatusCode, Err: err}
}

// JSON decodes Data into v.
func (r Response) JSON(v any) error {
	if !json.Valid(r.Data) {
		return &DecodeError{Data: r.Data, Err: errNotJSON}
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return &DecodeError{Data: r.Data, Err: err}
	}
	return nil
}

// Value parses Data without a schema.
func (r Response) Value() (gjson.Result, error) {
	if !gjson.ValidBytes(r.Data) {
		return gjson.Result{}, &DecodeError{Data: r.Data, Err: errNotJSON}
	}
	return gjson.ParseBytes(r.Data), nil
}
