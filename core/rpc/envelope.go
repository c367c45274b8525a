package rpc

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/dmitrymomot/rpcgate/core/fault"
)

// Version is the protocol version written to every response.
var Version = json.RawMessage("2.0")

// noID is echoed when the request could not be parsed far enough to read its id.
var noID = json.RawMessage("-1")

// Request is a decoded call envelope.
type Request struct {
	Version json.RawMessage
	ID      json.RawMessage
	Method  string
	Params  Args
	// Token is nil when the request carried no token (absent or null).
	Token *string
}

// ErrorObject is the error member of a response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is a reply envelope. Exactly one of Result and Error is set.
// A nil Result with a nil Error encodes as "result": null.
type Response struct {
	ID     json.RawMessage
	Token  *string
	Result json.RawMessage
	Error  *ErrorObject
}

type wireResponse struct {
	JSONRPC json.RawMessage  `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Token   *string          `json:"token"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject     `json:"error,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	w := wireResponse{JSONRPC: Version, ID: r.ID, Token: r.Token, Error: r.Error}
	if len(w.ID) == 0 {
		w.ID = noID
	}
	if r.Error == nil {
		result := r.Result
		if len(result) == 0 {
			result = json.RawMessage("null")
		}
		w.Result = &result
	}
	return json.Marshal(w)
}

// fail sets the error member from err and clears the result.
func (r *Response) fail(err error) fault.Error {
	fe := fault.From(err)
	r.Result = nil
	r.Error = &ErrorObject{Code: fe.Code, Message: fe.Message}
	return fe
}

// DecodeRequest parses a call envelope. Every failure is fault.ErrBadRequest.
// The returned request carries the id whenever the body was a JSON object with
// an id, so callers can echo it even when a later check fails.
func DecodeRequest(body []byte) (*Request, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fault.ErrBadRequest.WithMessage("The request data is empty.")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, fault.ErrBadRequest.WithMessage("The request data cannot be decoded.").WithCause(err)
	}

	for _, key := range []string{"jsonrpc", "id", "method", "params"} {
		if _, ok := fields[key]; !ok {
			return nil, fault.ErrBadRequest.WithMessage("The request data is missing one of the required properties.")
		}
	}

	req := &Request{Version: fields["jsonrpc"], ID: fields["id"]}

	if err := json.Unmarshal(fields["method"], &req.Method); err != nil {
		req.Method = ""
	}

	params, err := decodeParams(fields["params"])
	if err != nil {
		return req, fault.ErrBadRequest.WithMessage("The request params cannot be decoded.").WithCause(err)
	}
	req.Params = params

	if raw, ok := fields["token"]; ok && !isNull(raw) {
		var tok string
		if err := json.Unmarshal(raw, &tok); err != nil {
			// Non-string tokens never match an issued token.
			tok = string(raw)
		}
		req.Token = &tok
	}
	return req, nil
}

// CheckVersion reports whether the version member is numeric and equal to 2.0.
// Numeric strings are accepted.
func (r *Request) CheckVersion() bool {
	raw := bytes.TrimSpace(r.Version)
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	v, err := strconv.ParseFloat(text, 64)
	return err == nil && v == 2.0
}

// decodeParams turns params into positional arguments: null is no arguments,
// an array is the argument list, anything else is a single argument.
func decodeParams(raw json.RawMessage) (Args, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case isNull(raw):
		return Args{}, nil
	case len(raw) > 0 && raw[0] == '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return Args{}, err
		}
		return Args{raw: list}, nil
	default:
		return Args{raw: []json.RawMessage{raw}}, nil
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
