package jrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// JSONRPCVersion must be "2.0" for all JSON-RPC 2.0 messages.
const JSONRPCVersion = "2.0"

// ErrParams is returned when the params of a call can't be encoded to JSON.
var ErrParams = errors.New("failed to encode params")

// Request represents a JSON-RPC request, a call that expects a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`          // Must be "2.0".
	Method  string          `json:"method"`           // The method to be invoked.
	ID      string          `json:"id"`               // The request identifier, the response must carry the same one.
	Params  json.RawMessage `json:"params,omitempty"` // Array or object, omitted when the call has no params.
}

// Notification represents a JSON-RPC notification, a request without an ID. The server must not reply to it on
// success.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`          // Must be "2.0".
	Method  string          `json:"method"`           // The method to be invoked.
	Params  json.RawMessage `json:"params,omitempty"` // Array or object, omitted when the call has no params.
}

// NewRequest builds a request envelope. params may be any value that encodes to a JSON array or object, if params is
// nil the "params" member is omitted from the envelope, an empty slice or map is sent as is.
//
// Neither method nor the shape of params are validated.
func NewRequest(method, id string, params any) (Request, error) {
	raw, err := encodeParams(params)
	if err != nil {
		return Request{}, err
	}

	return Request{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		ID:      id,
		Params:  raw,
	}, nil
}

// NewNotification builds a notification envelope, follows the same params rules as [NewRequest].
func NewNotification(method string, params any) (Notification, error) {
	raw, err := encodeParams(params)
	if err != nil {
		return Notification{}, err
	}

	return Notification{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  raw,
	}, nil
}

// encodeParams returns nil when params is absent.
func encodeParams(params any) (json.RawMessage, error) {
	if isNil(params) {
		return nil, nil
	}

	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}

	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParams, err)
	}

	return b, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}

	return false
}
