package jrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var errMalformed = errors.New("malformed response")

// Outcome is the result of a response, either [Success] or [Failure], never both.
type Outcome interface {
	isOutcome()
}

// Success is the outcome of a response with a "result" member. Result may be the JSON null.
type Success struct {
	Result json.RawMessage
}

// Failure is the outcome of a response with an "error" member.
type Failure struct {
	Error ErrorObject
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// Response represents a JSON-RPC response. It can only be decoded from a valid response: "jsonrpc" must be "2.0",
// exactly one of "result" and "error" must be present, and "id" must be present, even if null.
type Response struct {
	JSONRPC string
	ID      json.RawMessage // The raw identifier, may be the JSON null.
	Outcome Outcome
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Response) UnmarshalJSON(b []byte) error {
	env, err := parseEnvelope(b)
	if err != nil {
		return err
	}

	if !env.isVersion2() {
		return fmt.Errorf("jsonrpc must be %q: %w", JSONRPCVersion, errMalformed)
	}

	if env.hasResult == env.hasError { // a == b equals !(a XOR b)
		return fmt.Errorf("exactly one of result and error must be present: %w", errMalformed)
	}

	if !env.hasID {
		return fmt.Errorf("id is missing: %w", errMalformed)
	}

	r.JSONRPC = JSONRPCVersion
	r.ID = env.id

	if env.hasResult {
		r.Outcome = Success{Result: env.result}

		return nil
	}

	obj, err := env.errorObject()
	if err != nil {
		return err
	}

	r.Outcome = Failure{Error: obj}

	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	type wire struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *ErrorObject    `json:"error,omitempty"`
		ID      json.RawMessage `json:"id"`
	}

	w := wire{JSONRPC: JSONRPCVersion, ID: r.ID}
	if w.ID == nil {
		w.ID = json.RawMessage("null")
	}

	switch o := r.Outcome.(type) {
	case Success:
		w.Result = o.Result
		if w.Result == nil {
			w.Result = json.RawMessage("null")
		}
	case Failure:
		w.Error = &o.Error
	default:
		return nil, fmt.Errorf("response without outcome: %w", errMalformed)
	}

	return json.Marshal(w) //nolint:wrapcheck
}

// IDString returns the identifier if it's a JSON string.
func (r *Response) IDString() (string, bool) {
	return idString(r.ID)
}

// IDValue returns the decoded identifier, nil for the JSON null.
func (r *Response) IDValue() any {
	return idValue(r.ID)
}

// envelope tracks which members of a response object are present, a member set to null is present.
type envelope struct {
	version   json.RawMessage
	result    json.RawMessage
	errObj    json.RawMessage
	id        json.RawMessage
	hasResult bool
	hasError  bool
	hasID     bool
}

func parseEnvelope(b []byte) (envelope, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(b, &members); err != nil {
		return envelope{}, fmt.Errorf("response must be an object: %w", errMalformed)
	}

	if members == nil { // null
		return envelope{}, fmt.Errorf("response must be an object: %w", errMalformed)
	}

	var env envelope

	env.version = members["jsonrpc"]
	env.result, env.hasResult = members["result"]
	env.errObj, env.hasError = members["error"]
	env.id, env.hasID = members["id"]

	return env, nil
}

func (env *envelope) isVersion2() bool {
	var v string
	if err := json.Unmarshal(env.version, &v); err != nil {
		return false
	}

	return v == JSONRPCVersion
}

func (env *envelope) errorObject() (ErrorObject, error) {
	var obj ErrorObject

	if !env.hasError || bytes.Equal(bytes.TrimSpace(env.errObj), []byte("null")) {
		return obj, fmt.Errorf("error must be an object: %w", errMalformed)
	}

	if err := json.Unmarshal(env.errObj, &obj); err != nil {
		return obj, fmt.Errorf("invalid error object: %w: %w", errMalformed, err)
	}

	return obj, nil
}

func idString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}

	return s, true
}

func idValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}

	return v
}
