package jrpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	jrpc "github.com/kytnacode/go-jrpcclient"
	"github.com/kytnacode/go-jrpcclient/internal/test"
)

const dest = "http://localhost:8080/rpc"

// counter is owned by a single client, so the IDs of a test are known in advance.
type counter struct {
	n uint64
}

func (c *counter) Next() uint64 {
	c.n++

	return c.n
}

func newClient(tr jrpc.Transport) *jrpc.Client {
	return jrpc.NewClient(tr, jrpc.WithGenerator(&counter{}))
}

func assertProtocolError(t *testing.T, err error, code int) *jrpc.ProtocolError {
	t.Helper()

	var protoErr *jrpc.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("Expected a protocol error, got %v", err)
	}

	if protoErr.Code() != code {
		t.Errorf("Expected code %d, got %d", code, protoErr.Code())
	}

	return protoErr
}

func TestClient_CallShouldReturnResult(t *testing.T) {
	t.Parallel()

	tr := test.Replying(200, `{"jsonrpc":"2.0","result":42,"id":"1"}`)

	result, err := newClient(tr).Call(context.Background(), dest, jrpc.Call("answer"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if string(result) != "42" {
		t.Errorf("Expected 42, got %s", result)
	}

	posts := tr.Posts()
	if len(posts) != 1 {
		t.Fatalf("Expected 1 call to the transport, got %d", len(posts))
	}

	const want = `{"jsonrpc":"2.0","method":"answer","id":"1"}`

	if string(posts[0].Body) != want || posts[0].Dest != dest {
		t.Errorf("Expected %s to %s, got %s to %s", want, dest, posts[0].Body, posts[0].Dest)
	}
}

func TestClient_CallShouldReserveANewIDEachTime(t *testing.T) {
	t.Parallel()

	tr := &test.Transport{
		Handler: func(p test.Post) (*jrpc.Reply, error) {
			id := test.IDs(p.Body)[0]

			return &jrpc.Reply{Status: 200, Body: []byte(`{"jsonrpc":"2.0","result":null,"id":"` + id + `"}`)}, nil
		},
	}

	c := newClient(tr)

	for i := 0; i < 3; i++ {
		if _, err := c.Call(context.Background(), dest, jrpc.Call("ping")); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	for i, p := range tr.Posts() {
		want := jrpc.FormatID(uint64(i + 1)) //nolint:gosec

		if ids := test.IDs(p.Body); len(ids) != 1 || ids[0] != want {
			t.Errorf("Expected ID %s, got %v", want, ids)
		}
	}
}

func TestClient_CallShouldValidateReply(t *testing.T) {
	t.Parallel()

	cases := test.GenTestCases(test.ResponseAspects("1")...)

	for _, name := range test.Names(cases) {
		name := name
		c := cases[name]

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tr := test.Replying(200, string(test.ResponseBody(c)))

			result, err := newClient(tr).Call(context.Background(), dest, jrpc.Call("answer"))

			switch {
			case !test.ValidShape(c):
				assertProtocolError(t, err, jrpc.CodeInvalidResponse)
			case !test.MatchingID(c):
				protoErr := assertProtocolError(t, err, jrpc.CodeInvalidResponse)

				mismatch, ok := protoErr.Data().(jrpc.IDMismatch)
				if !ok || mismatch.Expected != "1" || mismatch.Type != jrpc.IDMismatchType {
					t.Errorf("Expected an ID mismatch, got %#v", protoErr.Data())
				}
			case c.String(test.MemberKey) == test.ErrorMember:
				if !errors.Is(err, jrpc.ErrMethodNotFound) {
					t.Errorf("Expected method not found, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}

				if len(result) == 0 {
					t.Error("Expected a result")
				}
			}
		})
	}
}

func TestClient_CallShouldReportIDMismatch(t *testing.T) {
	t.Parallel()

	tr := test.Replying(200, `{"jsonrpc":"2.0","result":42,"id":"2"}`)

	_, err := newClient(tr).Call(context.Background(), dest, jrpc.Call("answer"))

	protoErr := assertProtocolError(t, err, jrpc.CodeInvalidResponse)

	want := jrpc.IDMismatch{Type: jrpc.IDMismatchType, Expected: "1", Given: "2"}
	if protoErr.Data() != want {
		t.Errorf("Expected %#v, got %#v", want, protoErr.Data())
	}

	if !errors.Is(err, jrpc.ErrInvalidResponse) {
		t.Errorf("Expected ErrInvalidResponse, got %v", err)
	}
}

func TestClient_CallShouldReportParseError(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty-body":      "",
		"text-body":       "not json",
		"json-string":     `"hello"`,
		"whitespace-body": "\n",
	}

	for name, body := range tests {
		name, body := name, body
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := newClient(test.Replying(200, body)).Call(context.Background(), dest, jrpc.Call("answer"))

			assertProtocolError(t, err, jrpc.CodeParseError)

			if !errors.Is(err, jrpc.ErrParse) {
				t.Errorf("Expected ErrParse, got %v", err)
			}
		})
	}
}

func TestClient_CallShouldReportApplicationError(t *testing.T) {
	t.Parallel()

	tr := test.Replying(200, `{"jsonrpc":"2.0","error":{"code":-32000,"message":"Server error","data":[1]},"id":"1"}`)

	_, err := newClient(tr).Call(context.Background(), dest, jrpc.Call("answer"))

	var appErr *jrpc.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("Expected an application error, got %v", err)
	}

	if appErr.Code() != -32000 || appErr.Message() != "Server error" {
		t.Errorf("Expected (-32000) Server error, got %v", appErr)
	}

	if data, ok := appErr.Data().([]any); !ok || len(data) != 1 {
		t.Errorf("Expected data [1], got %v", appErr.Data())
	}
}

func TestClient_CallShouldRejectNonIntegerErrorCode(t *testing.T) {
	t.Parallel()

	testData := map[string]string{
		"fraction": `{"jsonrpc":"2.0","error":{"code":1.5,"message":"boom"},"id":"1"}`,
		"string":   `{"jsonrpc":"2.0","error":{"code":"1","message":"boom"},"id":"1"}`,
	}

	for name, body := range testData {
		name, body := name, body
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := newClient(test.Replying(200, body)).Call(context.Background(), dest, jrpc.Call("answer"))
			assertProtocolError(t, err, jrpc.CodeInvalidResponse)
		})
	}
}

func TestClient_ShouldReportTransportErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status  int
		body    string
		message string
		data    any
	}{
		"not-found":    {status: 404, body: "", message: "Not found", data: ""},
		"unauthorized": {status: 401, body: `{"reason":"token"}`, message: "Unauthorized", data: map[string]any{"reason": "token"}},
		"teapot":       {status: 418, body: "short and stout", message: "Unknown error", data: "short and stout"},
	}

	for name, data := range tests {
		name, data := name, data
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := newClient(test.Replying(data.status, data.body))

			errs := map[string]error{}

			_, errs["call"] = c.Call(context.Background(), dest, jrpc.Call("answer"))
			errs["notify"] = c.Notify(context.Background(), dest, jrpc.Call("log"))
			_, errs["batch"] = c.Batch(dest).Request("answer", nil).Exec(context.Background())

			for op, err := range errs {
				var trErr *jrpc.TransportError
				if !errors.As(err, &trErr) {
					t.Fatalf("%s: expected a transport error, got %v", op, err)
				}

				if trErr.Code() != data.status || trErr.Message() != data.message {
					t.Errorf("%s: expected (%d) %s, got %v", op, data.status, data.message, trErr)
				}

				got, _ := json.Marshal(trErr.Data())
				want, _ := json.Marshal(data.data)

				if !bytes.Equal(got, want) {
					t.Errorf("%s: expected data %s, got %s", op, want, got)
				}
			}
		})
	}
}

func TestClient_ShouldWrapTransportFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")

	_, err := newClient(test.Failing(cause)).Call(context.Background(), dest, jrpc.Call("answer"))

	var trErr *jrpc.TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("Expected a transport error, got %v", err)
	}

	if trErr.Status != 0 || !errors.Is(err, cause) {
		t.Errorf("Expected status 0 wrapping the cause, got %v", err)
	}
}

func TestClient_ShouldFailWithoutTransport(t *testing.T) {
	t.Parallel()

	_, err := jrpc.NewClient(nil).Call(context.Background(), dest, jrpc.Call("answer"))
	if !errors.Is(err, jrpc.ErrNilTransport) {
		t.Errorf("Expected ErrNilTransport, got %v", err)
	}
}

func TestClient_ShouldRejectNilCall(t *testing.T) {
	t.Parallel()

	tr := test.Replying(200, "")
	c := newClient(tr)

	if _, err := c.Call(context.Background(), dest, nil); !errors.Is(err, jrpc.ErrNilCall) {
		t.Errorf("Expected ErrNilCall from Call, got %v", err)
	}

	if err := c.Notify(context.Background(), dest, nil); !errors.Is(err, jrpc.ErrNilCall) {
		t.Errorf("Expected ErrNilCall from Notify, got %v", err)
	}

	if tr.Count() != 0 {
		t.Errorf("Expected no call to the transport, got %d", tr.Count())
	}
}

func TestClient_ShouldFailOnNilReply(t *testing.T) {
	t.Parallel()

	tr := jrpc.TransportFunc(func(context.Context, string, []byte, ...jrpc.PostOption) (*jrpc.Reply, error) {
		return nil, nil //nolint:nilnil
	})

	_, err := jrpc.NewClient(tr).Call(context.Background(), dest, jrpc.Call("answer"))
	if !errors.Is(err, jrpc.ErrNoReply) {
		t.Errorf("Expected ErrNoReply, got %v", err)
	}
}

func TestClient_ShouldPassPostOptions(t *testing.T) {
	t.Parallel()

	tr := test.Replying(200, "")

	err := newClient(tr).Notify(context.Background(), dest, jrpc.Call("log"), jrpc.WithHeader("X-Trace", "abc"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := tr.Posts()[0].Config.Header.Get("X-Trace"); got != "abc" {
		t.Errorf("Expected header abc, got %q", got)
	}
}

func TestClient_NotifyShouldValidateReply(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body string
		code int // 0 means no error.
	}{
		"empty-body":       {body: "", code: 0},
		"whitespace-body":  {body: " ", code: jrpc.CodeParseError},
		"text-body":        {body: "ok", code: jrpc.CodeParseError},
		"json-string":      {body: `"ok"`, code: jrpc.CodeParseError},
		"error-response":   {body: `{"jsonrpc":"2.0","error":{"code":1,"message":"Nope"},"id":null}`, code: 1},
		"error-without-id": {body: `{"jsonrpc":"2.0","error":{"code":1,"message":"Nope"}}`, code: 1},
		"result-response":  {body: `{"jsonrpc":"2.0","result":1,"id":null}`, code: jrpc.CodeInvalidResponse},
		"wrong-version":    {body: `{"jsonrpc":"1.0","error":{"code":1,"message":"Nope"},"id":null}`, code: jrpc.CodeInvalidResponse},
		"null-error":       {body: `{"jsonrpc":"2.0","error":null,"id":null}`, code: jrpc.CodeInvalidResponse},
		"array-body":       {body: `[]`, code: jrpc.CodeInvalidResponse},
		"number-body":      {body: `1`, code: jrpc.CodeInvalidResponse},
	}

	for name, data := range tests {
		name, data := name, data
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tr := test.Replying(200, data.body)

			err := newClient(tr).Notify(context.Background(), dest, jrpc.Call("log").Args([]string{"hi"}))

			if ids := test.IDs(tr.Posts()[0].Body); len(ids) != 0 {
				t.Errorf("Expected a notification without ID, got %v", ids)
			}

			if data.code == 0 {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}

				return
			}

			var rpcErr jrpc.Error
			if !errors.As(err, &rpcErr) {
				t.Fatalf("Expected a client error, got %v", err)
			}

			if rpcErr.Code() != data.code {
				t.Errorf("Expected code %d, got %d", data.code, rpcErr.Code())
			}
		})
	}
}

func TestClient_NotifyShouldNotReserveID(t *testing.T) {
	t.Parallel()

	gen := &counter{}
	c := jrpc.NewClient(test.Replying(200, ""), jrpc.WithGenerator(gen))

	if err := c.Notify(context.Background(), dest, jrpc.Call("log")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if gen.n != 0 {
		t.Errorf("Expected no ID reserved, got %d", gen.n)
	}
}

func TestCallAs_ShouldDecodeResult(t *testing.T) {
	t.Parallel()

	c := newClient(test.Replying(200, `{"jsonrpc":"2.0","result":{"sum":3},"id":"1"}`))

	got, err := jrpc.CallAs[struct{ Sum int }](context.Background(), c, dest, jrpc.Call("add").Args([]int{1, 2}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got.Sum != 3 {
		t.Errorf("Expected 3, got %d", got.Sum)
	}

	_, err = jrpc.CallAs[int](context.Background(), c, dest, jrpc.Call("add"))
	if err == nil {
		t.Error("Expected a decoding error")
	}
}

func TestClient_ShouldLogCalls(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	c := jrpc.NewClient(test.Replying(404, ""), jrpc.WithLogger(log), jrpc.WithGenerator(&counter{}))

	_, _ = c.Call(context.Background(), dest, jrpc.Call("answer").Args([]string{"secret"}))

	if !bytes.Contains(buf.Bytes(), []byte(`"method":"answer"`)) {
		t.Errorf("Expected the method to be logged, got %s", buf.String())
	}

	if bytes.Contains(buf.Bytes(), []byte("secret")) {
		t.Errorf("Expected params not to be logged, got %s", buf.String())
	}
}

func TestCallData(t *testing.T) {
	t.Parallel()

	call := jrpc.Call("foo").Args([]int{1}).Method("bar").Notify()

	if call.Name() != "bar" || !call.IsNotify() {
		t.Errorf("Expected notification bar, got %q (notify: %t)", call.Name(), call.IsNotify())
	}
}

func TestReply_Success(t *testing.T) {
	t.Parallel()

	tests := map[int]bool{199: false, 200: true, 204: true, 299: true, 300: false, 500: false}

	for status, want := range tests {
		r := &jrpc.Reply{Status: status, Header: http.Header{}}
		if r.Success() != want {
			t.Errorf("Expected %t for %d, got %t", want, status, r.Success())
		}
	}
}
