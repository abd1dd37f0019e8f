package jrpc

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"github.com/kytnacode/go-jrpcclient/internal/jsonutil"
)

// ErrBatchConsumed is returned by [Batch.Exec] when the batch was already executed.
var ErrBatchConsumed = errors.New("batch already executed")

// Batch accumulates requests and notifications and sends them as a single batch call with [Batch.Exec]. Create it
// with [Client.Batch]:
//
//	results, err := c.Batch(url).
//	    Request("math.add", []int{1, 2}).
//	    Notify("log", []string{"added"}).
//	    Request("math.sub", []int{3, 1}).
//	    Exec(ctx)
//	if err != nil {
//	    // The whole call failed.
//	}
//
//	for _, res := range results {
//	    if res.Error != nil {
//	        // This request failed.
//	    }
//	}
//
// A batch is executed once, calls added after [Batch.Exec] are discarded and the next [Batch.Exec] returns
// [ErrBatchConsumed]. When params fail to encode, [Batch.Exec] returns the error without consuming the batch.
//
// Is safe for concurrent use.
type Batch struct {
	client *Client
	dest   string
	opts   []PostOption

	mu      sync.Mutex
	calls   []CallData
	started bool
}

// Request adds a request to the batch, and returns the batch itself.
func (b *Batch) Request(method string, params any) *Batch {
	return b.Add(Call(method).Args(params))
}

// Notify adds a notification to the batch, and returns the batch itself.
func (b *Batch) Notify(method string, params any) *Batch {
	return b.Add(Call(method).Args(params).Notify())
}

// Add adds calls to the batch in order, calls marked with [CallData.Notify] are sent as notifications. Returns the
// batch itself. The calls are copied, later changes to them don't affect the batch.
func (b *Batch) Add(calls ...*CallData) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return b
	}

	for _, call := range calls {
		if call != nil {
			b.calls = append(b.calls, *call)
		}
	}

	return b
}

// Len returns the number of calls added to the batch.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.calls)
}

// Exec sends the batch and returns a [CallResult] for each response entry, in the order the server sent them.
// Notifications never get an entry.
//
// An empty batch returns an empty slice without calling the transport, as does a batch of only notifications when
// the server replies with an empty body.
//
// Exec returns an error, and no results, when the whole call fails: a [*TransportError], a [*ProtocolError] if the
// reply is not JSON, not an array or its length differs from the number of requests, or an [*ApplicationError] if
// the server replied with a single error response. Otherwise failures of single requests are reported in their
// [CallResult].Error and Exec returns a nil error.
func (b *Batch) Exec(ctx context.Context) ([]CallResult, error) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()

		return nil, ErrBatchConsumed
	}

	envelope, ids, err := b.envelope()
	if err != nil {
		b.mu.Unlock()

		return nil, err
	}

	calls := len(b.calls)
	b.started = true
	b.calls = nil
	b.mu.Unlock()

	if calls == 0 {
		return []CallResult{}, nil
	}

	c := b.client

	log := c.log.With().Str("dest", b.dest).Int("calls", calls).Int("requests", len(ids)).Logger()
	log.Debug().Msg("Sending batch")

	reply, err := c.post(ctx, b.dest, envelope, b.opts)
	if err != nil {
		log.Debug().Err(err).Msg("Batch failed")

		return nil, err
	}

	results, err := decodeBatchReply(ids, reply.Body)
	if err != nil {
		log.Debug().Err(err).Int("status", reply.Status).Msg("Batch failed")

		return nil, err
	}

	return results, nil
}

// envelope builds the batch envelope and returns it with the IDs of its requests, in order. Must be called with mu
// held.
func (b *Batch) envelope() ([]any, []string, error) {
	envelope := make([]any, 0, len(b.calls))
	ids := make([]string, 0, len(b.calls))

	for _, call := range b.calls {
		if call.notify {
			n, err := NewNotification(call.method, call.args)
			if err != nil {
				return nil, nil, err
			}

			envelope = append(envelope, n)

			continue
		}

		id := FormatID(b.client.gen.Next())

		req, err := NewRequest(call.method, id, call.args)
		if err != nil {
			return nil, nil, err
		}

		envelope = append(envelope, req)
		ids = append(ids, id)
	}

	return envelope, ids, nil
}

func decodeBatchReply(ids []string, body []byte) ([]CallResult, error) {
	shape := jsonutil.Classify(body)

	if len(ids) == 0 && shape == jsonutil.Empty {
		return []CallResult{}, nil // Only notifications, nothing to correlate.
	}

	switch shape { //nolint:exhaustive
	case jsonutil.Empty, jsonutil.Text:
		return nil, newParseError()
	case jsonutil.Object:
		// The whole batch was rejected with a single error response.
		env, err := parseEnvelope(body)
		if err == nil && env.isVersion2() && env.hasError && env.hasID {
			obj, err := env.errorObject()
			if err != nil {
				return nil, newInvalidResponse(nil)
			}

			return nil, newApplicationError(obj)
		}
	}

	if shape != jsonutil.Array {
		return nil, newInvalidResponse(nil)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil || len(entries) != len(ids) {
		return nil, newInvalidResponse(nil)
	}

	results := make([]CallResult, len(entries))
	for i, entry := range entries {
		results[i] = correlate(ids, entry)
	}

	return results, nil
}

// correlate maps a batch entry to its result, errors are returned in the result, never as a failure of the batch.
func correlate(ids []string, entry json.RawMessage) CallResult {
	var res Response
	if err := json.Unmarshal(entry, &res); err != nil {
		return CallResult{Error: newInvalidResponse(nil)}
	}

	given, ok := res.IDString()
	if !ok || !slices.Contains(ids, given) {
		return CallResult{Error: newInvalidResponse(IDMismatch{
			Type:     IDMismatchType,
			Expected: slices.Clone(ids),
			Given:    res.IDValue(),
		})}
	}

	switch o := res.Outcome.(type) {
	case Success:
		return CallResult{ID: given, Result: o.Result}
	case Failure:
		return CallResult{ID: given, Error: newApplicationError(o.Error)}
	}

	return CallResult{ID: given, Error: newInvalidResponse(nil)}
}
