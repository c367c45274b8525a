package rpc

import (
	"encoding/json"

	"github.com/dmitrymomot/rpcgate/core/fault"
)

// Args are the positional parameters of a call.
type Args struct {
	raw []json.RawMessage
}

// NewArgs builds Args from values. Intended for tests and in-process calls.
func NewArgs(values ...any) (Args, error) {
	raw := make([]json.RawMessage, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return Args{}, fault.ErrInvalidArgument.WithMessagef("argument %d is not serialisable", i).WithCause(err)
		}
		raw[i] = b
	}
	return Args{raw: raw}, nil
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.raw) }

// Raw returns argument i undecoded, nil when out of range.
func (a Args) Raw(i int) json.RawMessage {
	if i < 0 || i >= len(a.raw) {
		return nil
	}
	return a.raw[i]
}

// Bind decodes argument i into v.
func (a Args) Bind(i int, v any) error {
	if i < 0 || i >= len(a.raw) {
		return fault.ErrInvalidArgument.WithMessagef("Missing argument %d.", i+1)
	}
	if err := json.Unmarshal(a.raw[i], v); err != nil {
		return fault.ErrInvalidArgument.WithMessagef("Argument %d has an invalid type.", i+1).WithCause(err)
	}
	return nil
}

// String decodes argument i as a string.
func (a Args) String(i int) (string, error) {
	var s string
	err := a.Bind(i, &s)
	return s, err
}

// Strings decodes the first len(dst) arguments as strings into dst pointers.
func (a Args) Strings(dst ...*string) error {
	for i, p := range dst {
		if err := a.Bind(i, p); err != nil {
			return err
		}
	}
	return nil
}
