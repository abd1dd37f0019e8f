// Package httptransport implements [jrpc.Transport] over HTTP.
//
//	t := httptransport.New(
//		httptransport.WithTimeout(10*time.Second),
//		httptransport.WithTokenSource(src),
//	)
//
//	c := jrpc.NewClient(t)
package httptransport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	jrpc "github.com/kytnacode/go-jrpcclient"
)

// DefaultMaxBodySize is the default limit of the reply body, see [WithMaxBodySize].
const DefaultMaxBodySize = 10 << 20

const (
	contentJSON = "application/json"
	contentCBOR = "application/cbor"
)

var (
	// ErrBodyTooLarge is returned when the reply body exceeds the limit set with [WithMaxBodySize].
	ErrBodyTooLarge = errors.New("reply body too large")

	// ErrToken is returned when the token source fails, the call is not sent.
	ErrToken = errors.New("failed to get token")
)

// Transport posts the envelopes to an HTTP endpoint, dest is the URL of the endpoint. Every reply is returned, whatever
// its status, errors are only returned when no reply was received.
//
// Is safe for concurrent use.
type Transport struct {
	client  *http.Client
	header  http.Header
	tokens  oauth2.TokenSource
	codec   codec
	log     zerolog.Logger
	maxBody int64
}

// Option configures a [Transport].
type Option func(*Transport)

// WithClient sets the HTTP client, defaults to a new client without timeout.
func WithClient(c *http.Client) Option {
	return func(t *Transport) {
		t.client = c
	}
}

// WithTimeout sets the timeout of the HTTP client, see [http.Client.Timeout]. Apply it after [WithClient].
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		c := *t.client
		c.Timeout = d
		t.client = &c
	}
}

// WithHeader adds a header to every call, per call headers are set with [jrpc.WithHeader].
func WithHeader(key, value string) Option {
	return func(t *Transport) {
		t.header.Add(key, value)
	}
}

// WithTokenSource authorizes every call with a token of src, set in the Authorization header. Tokens are cached until
// they expire.
func WithTokenSource(src oauth2.TokenSource) Option {
	return func(t *Transport) {
		t.tokens = oauth2.ReuseTokenSource(nil, src)
	}
}

// WithCBOR sends the envelopes encoded as CBOR, and decodes CBOR replies back to JSON. Replies of other content
// types are returned as they are.
func WithCBOR() Option {
	return func(t *Transport) {
		t.codec = cborCodec{}
	}
}

// WithLogger sets the logger, defaults to a disabled logger.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Transport) {
		t.log = log
	}
}

// WithMaxBodySize sets the limit of the reply body in bytes, defaults to [DefaultMaxBodySize]. A value <= 0 disables
// the limit.
func WithMaxBodySize(n int64) Option {
	return func(t *Transport) {
		t.maxBody = n
	}
}

// New creates a new [Transport].
func New(opts ...Option) *Transport {
	t := &Transport{
		client:  &http.Client{},
		header:  make(http.Header),
		codec:   jsonCodec{},
		log:     zerolog.Nop(),
		maxBody: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Post implements [jrpc.Transport].
func (t *Transport) Post(ctx context.Context, dest string, body []byte, opts ...jrpc.PostOption) (*jrpc.Reply, error) {
	payload, err := t.codec.encode(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", t.codec.contentType())
	req.Header.Set("Accept", t.codec.contentType())

	for k, vs := range t.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	cfg := jrpc.ApplyPostOptions(opts...)
	for k, vs := range cfg.Header {
		req.Header.Del(k)

		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if t.tokens != nil {
		tok, err := t.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrToken, err)
		}

		tok.SetAuthHeader(req)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Warn().Err(err).Str("dest", dest).Msg("Post failed")

		return nil, fmt.Errorf("failed to post: %w", err)
	}
	defer resp.Body.Close()

	data, err := t.read(resp.Body)
	if err != nil {
		return nil, err
	}

	t.log.Debug().Str("dest", dest).Int("status", resp.StatusCode).Int("size", len(data)).Msg("Posted")

	return &jrpc.Reply{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   t.codec.decode(resp.Header.Get("Content-Type"), data),
	}, nil
}

func (t *Transport) read(r io.Reader) ([]byte, error) {
	if t.maxBody <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read reply: %w", err)
		}

		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, t.maxBody+1)) // +1 to detect overflow
	if err != nil {
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}

	if int64(len(data)) > t.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, t.maxBody)
	}

	return data, nil
}

var _ jrpc.Transport = (*Transport)(nil)
