package jrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Codes of the errors reported by the client when the server reply does not follow the protocol. They are outside of
// the range reserved for pre-defined JSON-RPC errors.
const (
	CodeParseError      = -33700 // The reply body is not JSON.
	CodeInvalidResponse = -33600 // The reply is JSON but not a valid response, or its ID doesn't match.
)

// Standard codes a server may report.
const (
	ParseError     = -32700 // Parse error. Invalid JSON was received by the server.
	InvalidRequest = -32600 // Invalid Request. The JSON sent is not a valid Request object.
	MethodNotFound = -32601 // Method not found. The method does not exist / is not available.
	InvalidParams  = -32602 // Invalid params. Invalid method parameter(s).
	InternalError  = -32603 // Internal error. Internal JSON-RPC error.
)

// IDMismatchType is the value of [IDMismatch].Type.
const IDMismatchType = "ID_MISMATCH"

var (
	ErrParse           = errors.New("failed to parse JSON-RPC response") // Matches [CodeParseError] protocol errors.
	ErrInvalidResponse = errors.New("invalid JSON-RPC response")         // Matches [CodeInvalidResponse] protocol errors.

	ErrServerParse    = errors.New("server failed to parse the request") // Server reported [ParseError].
	ErrInvalidRequest = errors.New("invalid JSON-RPC request")           // Server reported [InvalidRequest].
	ErrMethodNotFound = errors.New("method not found")                   // Server reported [MethodNotFound].
	ErrInvalidParams  = errors.New("invalid params")                     // Server reported [InvalidParams].
	ErrInternalError  = errors.New("internal error")                     // Server reported [InternalError].
	ErrUnknownError   = errors.New("unknown server error")               // Server reported any other code.
)

// Kind identifies the variant of an [Error].
type Kind int

const (
	KindProtocol    Kind = iota + 1 // *ProtocolError
	KindApplication                 // *ApplicationError
	KindTransport                   // *TransportError
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindApplication:
		return "application"
	case KindTransport:
		return "transport"
	}

	return "unknown"
}

// Error is the common accessor of all errors reported by the client. The set of implementations is closed:
// [*ProtocolError], [*ApplicationError] and [*TransportError]. Use errors.As to get the concrete type:
//
//	_, err := c.Call(ctx, url, jrpc.Call("method"))
//
//	var rpcErr jrpc.Error
//	if errors.As(err, &rpcErr) {
//	    log.Printf("%v error %d: %s", rpcErr.Kind(), rpcErr.Code(), rpcErr.Message())
//	}
type Error interface {
	error
	Code() int
	Message() string
	Data() any
	Kind() Kind

	isError()
}

// ErrorObject represents a JSON-RPC error object as sent on the wire.
type ErrorObject struct {
	// A number indicating the error type that occurred.
	// This MUST be an integer.
	// The error codes from and including -32768 to -32000 are reserved for pre-defined errors.
	Code    int             `json:"code"`
	Message string          `json:"message"`        // A string providing a short description of the error.
	Data    json.RawMessage `json:"data,omitempty"` // A Primitive or Structured value with additional information.
}

// IDMismatch is the data of a [CodeInvalidResponse] error when the response ID doesn't match the request. Expected is a
// string for single calls, and a []string with all IDs of the batch for batch calls. Given is the decoded ID received.
type IDMismatch struct {
	Type     string `json:"type"`
	Expected any    `json:"expected"`
	Given    any    `json:"given"`
}

// ProtocolError is returned when the reply of the server does not follow the protocol, see [CodeParseError] and
// [CodeInvalidResponse].
type ProtocolError struct {
	code    int
	message string
	data    any
}

func newParseError() *ProtocolError {
	return &ProtocolError{code: CodeParseError, message: "Parse error"}
}

func newInvalidResponse(data any) *ProtocolError {
	return &ProtocolError{code: CodeInvalidResponse, message: "Invalid response", data: data}
}

func (e *ProtocolError) Code() int       { return e.code }
func (e *ProtocolError) Message() string { return e.message }
func (e *ProtocolError) Data() any       { return e.data }
func (e *ProtocolError) Kind() Kind      { return KindProtocol }
func (e *ProtocolError) isError()        {}

func (e *ProtocolError) Error() string {
	return formatError(e.code, e.message)
}

// Is reports whether target is the sentinel of the error code, [ErrParse] or [ErrInvalidResponse].
func (e *ProtocolError) Is(target error) bool {
	switch e.code {
	case CodeParseError:
		return target == ErrParse
	case CodeInvalidResponse:
		return target == ErrInvalidResponse
	}

	return false
}

// ApplicationError is an error reported by the server in the "error" member of a response. Code, message and data are
// the ones sent by the server.
type ApplicationError struct {
	Object ErrorObject
}

func newApplicationError(obj ErrorObject) *ApplicationError {
	return &ApplicationError{Object: obj}
}

func (e *ApplicationError) Code() int       { return e.Object.Code }
func (e *ApplicationError) Message() string { return e.Object.Message }
func (e *ApplicationError) Kind() Kind      { return KindApplication }
func (e *ApplicationError) isError()        {}

// Data returns the decoded "data" member, or nil if the server didn't send it or it's not valid JSON.
func (e *ApplicationError) Data() any {
	if len(e.Object.Data) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(e.Object.Data, &v); err != nil {
		return nil
	}

	return v
}

// DecodeData decodes the "data" member into v.
func (e *ApplicationError) DecodeData(v any) error {
	if len(e.Object.Data) == 0 {
		return errors.New("error has no data")
	}

	return json.Unmarshal(e.Object.Data, v) //nolint:wrapcheck
}

func (e *ApplicationError) Error() string {
	return formatError(e.Object.Code, e.Object.Message)
}

// Unwrap maps the standard JSON-RPC codes to the sentinel errors, [ErrMethodNotFound], [ErrInvalidParams], etc.
// Any other code unwraps to [ErrUnknownError].
func (e *ApplicationError) Unwrap() error {
	switch e.Object.Code {
	case ParseError:
		return ErrServerParse
	case InvalidRequest:
		return ErrInvalidRequest
	case MethodNotFound:
		return ErrMethodNotFound
	case InvalidParams:
		return ErrInvalidParams
	case InternalError:
		return ErrInternalError
	}

	return ErrUnknownError
}

// TransportError is returned when the transport fails or replies with a non-success status. Status is 0 when no
// reply was received at all, in that case Cause holds the transport failure.
type TransportError struct {
	Status int
	Body   any // The reply body, decoded if it's JSON, a string otherwise, nil without a reply.
	Cause  error
}

func (e *TransportError) Code() int       { return e.Status }
func (e *TransportError) Message() string { return StatusMessage(e.Status) }
func (e *TransportError) Data() any       { return e.Body }
func (e *TransportError) Kind() Kind      { return KindTransport }
func (e *TransportError) Unwrap() error   { return e.Cause }
func (e *TransportError) isError()        {}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return formatError(e.Status, e.Message()) + ": " + e.Cause.Error()
	}

	return formatError(e.Status, e.Message())
}

var statusMessages = map[int]string{
	400: "Bad request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not found",
	408: "Request timeout",
	429: "Too many requests",
	500: "Internal server error",
	502: "Bad gateway",
	503: "Service unavailable",
	504: "Gateway timeout",
}

// StatusMessage returns the message of a [TransportError] with the given status, "Unknown error" for unmapped
// statuses.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}

	return "Unknown error"
}

func formatError(code int, message string) string {
	return fmt.Sprintf("(%d) %s", code, message)
}

var (
	_ Error = (*ProtocolError)(nil)
	_ Error = (*ApplicationError)(nil)
	_ Error = (*TransportError)(nil)
)
