package test

import (
	"context"
	"encoding/json"
	"sync"

	jrpc "github.com/kytnacode/go-jrpcclient"
)

// Post is a call recorded by [Transport].
type Post struct {
	Dest   string
	Body   []byte
	Config jrpc.PostConfig
}

// Transport is a fake [jrpc.Transport] that records every call and replies with Handler.
//
// Is safe for concurrent use.
type Transport struct {
	Handler func(p Post) (*jrpc.Reply, error)

	mu    sync.Mutex
	posts []Post
}

// Replying returns a [Transport] that always replies with status and body.
func Replying(status int, body string) *Transport {
	return &Transport{
		Handler: func(Post) (*jrpc.Reply, error) {
			return &jrpc.Reply{Status: status, Body: []byte(body)}, nil
		},
	}
}

// Failing returns a [Transport] that always fails with err.
func Failing(err error) *Transport {
	return &Transport{
		Handler: func(Post) (*jrpc.Reply, error) {
			return nil, err
		},
	}
}

// Post implements [jrpc.Transport].
func (t *Transport) Post(ctx context.Context, dest string, body []byte, opts ...jrpc.PostOption) (*jrpc.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := Post{
		Dest:   dest,
		Body:   append([]byte(nil), body...),
		Config: jrpc.ApplyPostOptions(opts...),
	}

	t.mu.Lock()
	t.posts = append(t.posts, p)
	t.mu.Unlock()

	if t.Handler == nil {
		return &jrpc.Reply{Status: 200}, nil
	}

	return t.Handler(p)
}

// Posts returns a copy of the recorded calls, in order.
func (t *Transport) Posts() []Post {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Post(nil), t.posts...)
}

// Count returns the number of recorded calls.
func (t *Transport) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.posts)
}

// Members decodes a sent envelope, a single object is returned as a one element slice.
func Members(body []byte) []map[string]json.RawMessage {
	var batch []map[string]json.RawMessage
	if err := json.Unmarshal(body, &batch); err == nil {
		return batch
	}

	var single map[string]json.RawMessage
	if err := json.Unmarshal(body, &single); err != nil {
		return nil
	}

	return []map[string]json.RawMessage{single}
}

// IDs returns the IDs of the requests of a sent envelope in order, notifications are skipped.
func IDs(body []byte) []string {
	var ids []string

	for _, m := range Members(body) {
		raw, ok := m["id"]
		if !ok {
			continue
		}

		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			ids = append(ids, id)
		}
	}

	return ids
}
