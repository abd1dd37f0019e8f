package jrpc

import (
	"context"
	"net/http"
)

// Transport performs the outbound call of a client. Implementations deliver body to dest and return the reply of the
// peer whatever its status, an error must only be returned when no reply was received at all (connection refused,
// context canceled, etc.). See the httptransport package for an HTTP implementation.
//
// The client never interprets opts, they are passed through as given by the caller.
type Transport interface {
	Post(ctx context.Context, dest string, body []byte, opts ...PostOption) (*Reply, error)
}

// TransportFunc adapts a function to a [Transport].
type TransportFunc func(ctx context.Context, dest string, body []byte, opts ...PostOption) (*Reply, error)

// Post implements [Transport].
func (f TransportFunc) Post(ctx context.Context, dest string, body []byte, opts ...PostOption) (*Reply, error) {
	return f(ctx, dest, body, opts...)
}

// Reply is the raw reply of the peer.
type Reply struct {
	Status int
	Header http.Header
	Body   []byte
}

// Success reports whether Status is a 2xx status.
func (r *Reply) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// PostConfig holds the per-call transport options, see [PostOption].
type PostConfig struct {
	Header http.Header
}

// PostOption configures a single transport call.
type PostOption func(*PostConfig)

// WithHeader adds a header to the call.
func WithHeader(key, value string) PostOption {
	return func(c *PostConfig) {
		if c.Header == nil {
			c.Header = make(http.Header)
		}

		c.Header.Add(key, value)
	}
}

// ApplyPostOptions returns the configuration resulting of applying opts in order, for [Transport] implementations.
func ApplyPostOptions(opts ...PostOption) PostConfig {
	var cfg PostConfig

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
