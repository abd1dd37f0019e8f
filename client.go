package jrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kytnacode/go-jrpcclient/internal/jsonutil"
)

// Errors returned by the client.
var (
	// The client was created without a transport.
	ErrNilTransport = errors.New("client has no transport")

	// The transport returned neither a reply nor an error.
	ErrNoReply = errors.New("transport returned no reply")

	// The request envelope could not be encoded.
	ErrEncode = errors.New("failed to encode the request")

	// A nil [CallData] was given.
	ErrNilCall = errors.New("call data is nil")
)

// Client represents a JSON-RPC client, it builds the envelopes, sends them through a [Transport] and validates the
// replies. Failures are reported with the variants of [Error].
//
// Is safe for concurrent use.
//
// Example:
//
//	c := jrpc.NewClient(httptransport.New())
//
//	result, err := c.Call(ctx, "http://localhost:8080/rpc", jrpc.Call("math.add").Args([]int{1, 2}))
//	if err != nil {
//	    // Handle error
//	}
//
//	var sum int
//	_ = json.Unmarshal(result, &sum)
type Client struct {
	transport Transport
	gen       Generator
	log       zerolog.Logger
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithGenerator sets the ID generator of the client, defaults to a new [Counter] owned by the client.
func WithGenerator(gen Generator) ClientOption {
	return func(c *Client) {
		c.gen = gen
	}
}

// WithLogger sets the logger of the client, defaults to a disabled logger. Params and results are never logged.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new [Client] that sends its calls through transport.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		gen:       new(Counter),
		log:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CallData contains the method and arguments of a call. To create a new CallData, use [Call] function. To set the
// arguments, use [CallData.Args] method:
//
//	call := jrpc.Call("method").Args(args)
//	call := jrpc.Call("method").Args([]string{"arg1", "arg2"})
//	call := jrpc.Call("method").Args(map[string]any{"name": "value"})
type CallData struct {
	method string
	args   any
	notify bool
}

// Call wraps the data of a call into a [CallData] object, and pass it to the [Client]:
//
//	// Single call.
//	client.Call(ctx, url, jrpc.Call("method").Args(args))
//
//	// Batch call.
//	client.Batch(url).Add(
//	    jrpc.Call("method1").Args(args1),
//	    jrpc.Call("method2").Args(args2).Notify(),
//	).Exec(ctx)
func Call(method string) *CallData {
	return &CallData{
		method: method,
	}
}

// Args sets the arguments for the call, and returns the [CallData] object itself. args must encode to a JSON array
// (positional params) or object (named params), nil args omit the params of the request:
//
//	call := jrpc.Call("method").Args(args)
func (c *CallData) Args(args any) *CallData {
	c.args = args

	return c
}

// Notify makes the call a notification, a request that does not expect a response from the server. Only used by
// [Batch.Add], single notifications are sent with [Client.Notify].
func (c *CallData) Notify() *CallData {
	c.notify = true

	return c
}

// Method overrides the method of the call, and returns the [CallData] object itself:
//
//	call := jrpc.Call("method").Method("new_method").Args(args) // Method will be "new_method"
func (c *CallData) Method(method string) *CallData {
	c.method = method

	return c
}

// Name returns the method of the call.
func (c *CallData) Name() string {
	return c.method
}

// IsNotify reports whether the call was marked with [CallData.Notify].
func (c *CallData) IsNotify() bool {
	return c.notify
}

// CallResult contains the result of a request of a batch, if successful, the [CallResult.Error] will be nil, and
// the [CallResult.Result] will contain the result of the call, if the call failed, the [CallResult.Error] will
// contain the error, a [*ProtocolError] or an [*ApplicationError], and the [CallResult.Result] will be nil.
type CallResult struct {
	// ID of the request the entry answers, empty if the entry could not be correlated.
	ID string

	// Result is the raw result of the request.
	Result json.RawMessage

	// Error is the error of the request.
	Error error
}

// Decode decodes the result into v, returns [CallResult.Error] if the request failed.
func (r CallResult) Decode(v any) error {
	if r.Error != nil {
		return r.Error
	}

	return json.Unmarshal(r.Result, v) //nolint:wrapcheck
}

// Call sends a request to dest and returns the raw result. It always reserves a new ID, unless data is nil, then it
// returns [ErrNilCall].
//
// The returned error is a [*TransportError] if the transport failed or replied with a non-success status, a
// [*ProtocolError] if the reply is not JSON ([ErrParse]), not a valid response or its ID doesn't match
// ([ErrInvalidResponse]), and an [*ApplicationError] if the server replied with an error.
//
//	result, err := c.Call(ctx, url, jrpc.Call("echo").Args([]string{"hello"}))
//
//	var appErr *jrpc.ApplicationError
//	if errors.As(err, &appErr) {
//	    // The server reported an error.
//	}
func (c *Client) Call(ctx context.Context, dest string, data *CallData, opts ...PostOption) (json.RawMessage, error) {
	if data == nil {
		return nil, ErrNilCall
	}

	id := FormatID(c.gen.Next())

	req, err := NewRequest(data.method, id, data.args)
	if err != nil {
		return nil, err
	}

	log := c.log.With().Str("method", data.method).Str("id", id).Str("dest", dest).Logger()
	log.Debug().Msg("Sending request")

	reply, err := c.post(ctx, dest, req, opts)
	if err != nil {
		log.Debug().Err(err).Msg("Request failed")

		return nil, err
	}

	result, err := decodeCallReply(id, reply.Body)
	if err != nil {
		log.Debug().Err(err).Int("status", reply.Status).Msg("Request failed")

		return nil, err
	}

	return result, nil
}

// CallAs behaves like [Client.Call] and decodes the result into a value of type T.
//
//	sum, err := jrpc.CallAs[int](ctx, c, url, jrpc.Call("math.add").Args([]int{1, 2}))
func CallAs[T any](ctx context.Context, c *Client, dest string, data *CallData, opts ...PostOption) (T, error) {
	var out T

	result, err := c.Call(ctx, dest, data, opts...)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(result, &out); err != nil {
		return out, fmt.Errorf("failed to decode result of %q: %w", data.method, err)
	}

	return out, nil
}

// Notify sends a notification to dest, no ID is reserved. A successful notification has an empty reply body, a
// server may still reply with an error response, reported as an [*ApplicationError]. A nil data returns [ErrNilCall].
func (c *Client) Notify(ctx context.Context, dest string, data *CallData, opts ...PostOption) error {
	if data == nil {
		return ErrNilCall
	}

	n, err := NewNotification(data.method, data.args)
	if err != nil {
		return err
	}

	log := c.log.With().Str("method", data.method).Str("dest", dest).Logger()
	log.Debug().Msg("Sending notification")

	reply, err := c.post(ctx, dest, n, opts)
	if err != nil {
		log.Debug().Err(err).Msg("Notification failed")

		return err
	}

	if err := decodeNotifyReply(reply.Body); err != nil {
		log.Debug().Err(err).Int("status", reply.Status).Msg("Notification failed")

		return err
	}

	return nil
}

// Batch starts a batch call to dest, see [Batch]. opts apply to the single transport call made by [Batch.Exec].
func (c *Client) Batch(dest string, opts ...PostOption) *Batch {
	return &Batch{
		client: c,
		dest:   dest,
		opts:   opts,
	}
}

// post encodes payload and sends it, non-success replies are returned as a [*TransportError].
func (c *Client) post(ctx context.Context, dest string, payload any, opts []PostOption) (*Reply, error) {
	if c.transport == nil {
		return nil, ErrNilTransport
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	reply, err := c.transport.Post(ctx, dest, body, opts...)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}

	if reply == nil {
		return nil, &TransportError{Cause: ErrNoReply}
	}

	if !reply.Success() {
		return nil, &TransportError{Status: reply.Status, Body: jsonutil.Value(reply.Body)}
	}

	return reply, nil
}

func decodeCallReply(id string, body []byte) (json.RawMessage, error) {
	switch jsonutil.Classify(body) { //nolint:exhaustive
	case jsonutil.Empty, jsonutil.Text:
		return nil, newParseError()
	}

	var res Response
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, newInvalidResponse(nil)
	}

	if given, ok := res.IDString(); !ok || given != id {
		return nil, newInvalidResponse(IDMismatch{Type: IDMismatchType, Expected: id, Given: res.IDValue()})
	}

	switch o := res.Outcome.(type) {
	case Success:
		return o.Result, nil
	case Failure:
		return nil, newApplicationError(o.Error)
	}

	return nil, newInvalidResponse(nil)
}

func decodeNotifyReply(body []byte) error {
	switch jsonutil.Classify(body) { //nolint:exhaustive
	case jsonutil.Empty:
		return nil
	case jsonutil.Text:
		return newParseError()
	}

	env, err := parseEnvelope(body)
	if err != nil || !env.isVersion2() || !env.hasError {
		return newInvalidResponse(nil)
	}

	obj, err := env.errorObject()
	if err != nil {
		return newInvalidResponse(nil)
	}

	return newApplicationError(obj)
}
