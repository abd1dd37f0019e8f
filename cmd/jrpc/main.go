// Command jrpc sends JSON-RPC 2.0 calls from the command line.
//
//	jrpc [flags] call <method> [args...]
//	jrpc [flags] notify <method> [args...]
//	jrpc [flags] batch < calls.jsonl
//
// Arguments of the form key=value are sent as named params, any other argument as a positional param, see
// params.ParseArgs. Batch calls are read from stdin, one JSON object per line:
//
//	{"method": "math.add", "params": [1, 2]}
//	{"method": "log", "params": ["added"], "notify": true}
//
// Destinations are configured with profiles in a TOML file, jrpc.toml by default, and the environment, a .env file
// in the working directory is loaded first.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	jrpc "github.com/kytnacode/go-jrpcclient"
	"github.com/kytnacode/go-jrpcclient/httptransport"
	"github.com/kytnacode/go-jrpcclient/params"
)

const defaultConfigFile = "jrpc.toml"

var errUsage = errors.New("usage: jrpc [flags] call|notify <method> [args...] | batch")

type options struct {
	config   string
	profile  string
	url      string
	logLevel string
	timeout  time.Duration
	cbor     bool
}

func main() {
	_ = godotenv.Load() // A missing .env file is not an error.

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "jrpc: %v\n", describe(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	opts, rest, err := parseFlags(args, stderr, getenv)
	if err != nil {
		return err
	}

	if len(rest) == 0 {
		return errUsage
	}

	log := newLogger(stderr, opts.logLevel)

	prof, err := loadProfile(opts.config, opts.profile, getenv)
	if err != nil {
		return err
	}

	if opts.url != "" {
		prof.URL = opts.url
	}

	if opts.timeout > 0 {
		prof.Timeout = opts.timeout
	}

	if opts.cbor {
		prof.CBOR = true
	}

	log.Debug().Str("profile", prof.Name).Str("url", prof.URL).Str("auth", prof.Auth.Mode).Msg("Loaded profile")

	transport, err := newTransport(ctx, prof, log)
	if err != nil {
		return err
	}

	c := jrpc.NewClient(transport, jrpc.WithLogger(log))

	switch cmd := rest[0]; cmd {
	case "call", "notify":
		if len(rest) < 2 {
			return errUsage
		}

		p, err := params.ParseArgs(rest[2:])
		if err != nil {
			return err
		}

		if cmd == "notify" {
			return c.Notify(ctx, prof.URL, jrpc.Call(rest[1]).Args(p)) //nolint:wrapcheck
		}

		result, err := c.Call(ctx, prof.URL, jrpc.Call(rest[1]).Args(p))
		if err != nil {
			return err //nolint:wrapcheck
		}

		return printJSON(stdout, result)
	case "batch":
		return runBatch(ctx, c.Batch(prof.URL), stdin, stdout)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func parseFlags(args []string, stderr io.Writer, getenv func(string) string) (options, []string, error) {
	var opts options

	fs := flag.NewFlagSet("jrpc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.config, "config", getenv("JRPC_CONFIG"), "path of the TOML config file, defaults to "+defaultConfigFile+" if it exists")
	fs.StringVar(&opts.profile, "profile", getenv("JRPC_PROFILE"), "profile of the config file, defaults to default_profile")
	fs.StringVar(&opts.url, "url", "", "URL of the endpoint, overrides the profile")
	fs.StringVar(&opts.logLevel, "log-level", envOr(getenv, "JRPC_LOG_LEVEL", "warn"), "log level: debug, info, warn or error")
	fs.DurationVar(&opts.timeout, "timeout", 0, "timeout of each call, overrides the profile")
	fs.BoolVar(&opts.cbor, "cbor", false, "encode the calls as CBOR")

	if err := fs.Parse(args); err != nil {
		return options{}, nil, err //nolint:wrapcheck
	}

	if opts.config == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			opts.config = defaultConfigFile
		}
	}

	return opts, fs.Args(), nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "jrpc").Logger()
}

func newTransport(ctx context.Context, prof profile, log zerolog.Logger) (*httptransport.Transport, error) {
	opts := []httptransport.Option{
		httptransport.WithTimeout(prof.Timeout),
		httptransport.WithLogger(log),
	}

	for k, v := range prof.Headers {
		opts = append(opts, httptransport.WithHeader(k, v))
	}

	if prof.CBOR {
		opts = append(opts, httptransport.WithCBOR())
	}

	src, err := prof.Auth.TokenSource(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if src != nil {
		opts = append(opts, httptransport.WithTokenSource(src))
	}

	return httptransport.New(opts...), nil
}

// batchLine is a line of the batch input.
type batchLine struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Notify bool            `json:"notify"`
}

func runBatch(ctx context.Context, b *jrpc.Batch, stdin io.Reader, stdout io.Writer) error {
	dec := json.NewDecoder(stdin)

	for {
		var line batchLine

		err := dec.Decode(&line)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("read batch call %d: %w", b.Len()+1, err)
		}

		if line.Method == "" {
			return fmt.Errorf("batch call %d has no method: %w", b.Len()+1, errUsage)
		}

		call := jrpc.Call(line.Method)
		if len(line.Params) > 0 && string(line.Params) != "null" {
			call.Args(line.Params)
		}

		if line.Notify {
			call.Notify()
		}

		b.Add(call)
	}

	results, err := b.Exec(ctx)
	if err != nil {
		return err //nolint:wrapcheck
	}

	type entry struct {
		ID     string          `json:"id"`
		Result json.RawMessage `json:"result,omitempty"`
		Error  *errorOutput    `json:"error,omitempty"`
	}

	out := make([]entry, 0, len(results))
	for _, res := range results {
		e := entry{ID: res.ID, Result: res.Result}
		if res.Error != nil {
			e.Error = newErrorOutput(res.Error)
		}

		out = append(out, e)
	}

	b2, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	return printJSON(stdout, b2)
}

type errorOutput struct {
	Kind    string `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func newErrorOutput(err error) *errorOutput {
	var rpcErr jrpc.Error
	if !errors.As(err, &rpcErr) {
		return &errorOutput{Kind: "client", Message: err.Error()}
	}

	return &errorOutput{
		Kind:    rpcErr.Kind().String(),
		Code:    rpcErr.Code(),
		Message: rpcErr.Message(),
		Data:    rpcErr.Data(),
	}
}

// describe formats err for the terminal, client errors carry their kind and data.
func describe(err error) string {
	var rpcErr jrpc.Error
	if !errors.As(err, &rpcErr) {
		return err.Error()
	}

	msg := fmt.Sprintf("%v error %s", rpcErr.Kind(), rpcErr)
	if data := rpcErr.Data(); data != nil {
		if b, err := json.Marshal(data); err == nil {
			msg += " " + string(b)
		}
	}

	return msg
}

func printJSON(w io.Writer, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = fmt.Fprintln(w, string(raw))

		return err //nolint:wrapcheck
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(b))

	return err //nolint:wrapcheck
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}

	return fallback
}
