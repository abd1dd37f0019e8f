package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/kytnacode/go-jrpcclient/internal/jsonutil"
)

// Decode decodes a positional or named value, typically a result or the data of an error, into a value of type T.
// If b is an array, the fields of T must be in the same order as the elements of the array.
// If b is an object, the fields of T must have the same name as the keys of the object or have a json tag with the same name.
// Only exported fields are considered, unknown keys and extra elements are an error.
func Decode[T any](b []byte) (T, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()

	v, err := DecodeType(t, b)
	if err != nil {
		var zero T

		return zero, err
	}

	value, _ := v.(T) // Safe to convert.

	return value, nil
}

// DecodeType behaves like [Decode] for a type known at runtime, t must be a struct type.
func DecodeType(t reflect.Type, b []byte) (any, error) {
	if t.Kind() != reflect.Struct {
		return reflect.Zero(t).Interface(), fmt.Errorf("target must be a struct: %w", ErrInvalidParams)
	}

	// Custom unmarshaler for the value.
	sw := structWrapper{
		t: t,
	}

	if err := json.Unmarshal(b, &sw); err != nil {
		return reflect.Zero(t).Interface(), err
	}

	return sw.value, nil
}

// structWrapper decodes into a struct type known at runtime.
type structWrapper struct {
	t     reflect.Type
	value any
}

func (sw *structWrapper) UnmarshalJSON(b []byte) error {
	switch jsonutil.Classify(b) { //nolint:exhaustive
	case jsonutil.Array:
		return sw.decodePositional(b)
	case jsonutil.Object:
		return sw.decodeNamed(b)
	}

	return fmt.Errorf("value must be an array or an object: %w", ErrInvalidParams)
}

// decodePositional decodes an array, element i goes to the exported field i.
func (sw *structWrapper) decodePositional(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	// Start array.
	if _, err := dec.Token(); err != nil {
		return err //nolint:wrapcheck
	}

	out := reflect.New(sw.t)

	for i := 0; i < sw.t.NumField(); i++ {
		f := sw.t.Field(i)
		if !f.IsExported() || f.Tag.Get("json") == "-" {
			continue
		}

		if !dec.More() {
			return fmt.Errorf("missing element for field %s: %w", f.Name, ErrInvalidParams)
		}

		field := reflect.New(f.Type)

		if err := dec.Decode(field.Interface()); err != nil {
			return fmt.Errorf("field %s: %w: %w", f.Name, ErrInvalidParams, err)
		}

		out.Elem().Field(i).Set(field.Elem())
	}

	if dec.More() {
		return fmt.Errorf("extra elements in array: %w", ErrInvalidParams)
	}

	// End array.
	if _, err := dec.Token(); err != nil {
		return err //nolint:wrapcheck
	}

	sw.value = out.Elem().Interface()

	return nil
}

// decodeNamed decodes an object by field names.
func (sw *structWrapper) decodeNamed(b []byte) error {
	out := reflect.New(sw.t)

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	if err := dec.Decode(out.Interface()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	sw.value = out.Elem().Interface()

	return nil
}
