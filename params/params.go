// Package params builds the params of a call and decodes positional or named values into structs.
//
// Params are either positional, a JSON array, or named, a JSON object:
//
//	c.Call(ctx, url, jrpc.Call("math.add").Args(params.Positional(1, 2)))
//
//	named, err := params.Named("a", 1, "b", 2)
//	if err != nil {
//		return err
//	}
//
//	c.Call(ctx, url, jrpc.Call("math.add").Args(named))
package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrInvalidParams is returned when the params can't be built or decoded.
	ErrInvalidParams = errors.New("invalid params")
)

// Positional returns values as positional params. Without values it returns an empty array, not nil, so the "params"
// member is still sent.
func Positional(values ...any) []any {
	if values == nil {
		return []any{}
	}

	return values
}

// Named builds named params from key/value pairs, keys must be non-empty strings and unique.
func Named(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd number of key/value arguments: %w", ErrInvalidParams)
	}

	named := make(map[string]any, len(pairs)/2)

	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok || key == "" {
			return nil, fmt.Errorf("key %v at %d must be a non-empty string: %w", pairs[i], i, ErrInvalidParams)
		}

		if _, dup := named[key]; dup {
			return nil, fmt.Errorf("duplicated key %q: %w", key, ErrInvalidParams)
		}

		named[key] = pairs[i+1]
	}

	return named, nil
}

// FromStruct returns the exported fields of v, a struct or a pointer to one, as positional params in declaration
// order. Fields tagged with `json:"-"` are skipped. It's the inverse of decoding an array with [Decode].
func FromStruct(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("nil pointer: %w", ErrInvalidParams)
		}

		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("params must be a struct, got %v: %w", rv.Kind(), ErrInvalidParams)
	}

	t := rv.Type()
	values := make([]any, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("json") == "-" {
			continue
		}

		values = append(values, rv.Field(i).Interface())
	}

	return values, nil
}

// ParseArgs parses command line arguments into params. Arguments of the form key=value are named params, any other
// argument is a positional param, mixing both is an error. Values are decoded as JSON, falling back to a string when
// they are not valid JSON:
//
//	ParseArgs([]string{"1", "two", `{"x":3}`}) // []any{1.0, "two", map[string]any{"x": 3.0}}
//	ParseArgs([]string{"a=1", "b=two"})       // map[string]any{"a": 1.0, "b": "two"}
//
// No arguments returns nil, the call is sent without params.
func ParseArgs(args []string) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	var (
		positional []any
		named      map[string]any
	)

	for _, arg := range args {
		key, value, ok := splitNamed(arg)

		if !ok {
			if named != nil {
				return nil, fmt.Errorf("positional argument %q after named ones: %w", arg, ErrInvalidParams)
			}

			positional = append(positional, parseValue(arg))

			continue
		}

		if positional != nil {
			return nil, fmt.Errorf("named argument %q after positional ones: %w", arg, ErrInvalidParams)
		}

		if named == nil {
			named = make(map[string]any, len(args))
		}

		if _, dup := named[key]; dup {
			return nil, fmt.Errorf("duplicated key %q: %w", key, ErrInvalidParams)
		}

		named[key] = parseValue(value)
	}

	if named != nil {
		return named, nil
	}

	return positional, nil
}

// splitNamed splits key=value, arguments that start like a JSON value are never named.
func splitNamed(arg string) (string, string, bool) {
	if arg == "" || strings.ContainsRune(`[{"`, rune(arg[0])) {
		return "", "", false
	}

	key, value, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return "", "", false
	}

	return key, value, true
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}

	return v
}
