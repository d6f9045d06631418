package transport

import (
	"errors"
	"fmt"
)

// ErrStatus is wrapped by [Error] when the server answers with a non-2xx
// status code.
var ErrStatus = errors.New("unexpected status")

// ErrInvalidFieldShape happens when a multipart form entry is neither a
// string nor a file.
var ErrInvalidFieldShape = errors.New("invalid form field shape")

// Error is a network or protocol failure of a single request.
type Error struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// DecodeError happens when a payload is not the JSON the caller asked for.
type DecodeError struct {
	Data []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// errNotJSON is the cause of a [DecodeError] for syntactically invalid input.
var errNotJSON = errors.New("invalid json")
