package httptransport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"mime"
	"reflect"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// ErrEncode is returned when an envelope can't be encoded for the wire.
var ErrEncode = errors.New("failed to encode envelope")

// codec converts between the JSON envelopes of the client and the wire format.
type codec interface {
	contentType() string
	encode(body []byte) ([]byte, error)
	decode(contentType string, body []byte) []byte
}

type jsonCodec struct{}

func (jsonCodec) contentType() string { return contentJSON }

func (jsonCodec) encode(body []byte) ([]byte, error) { return body, nil }

func (jsonCodec) decode(_ string, body []byte) []byte { return body }

// cborDecMode decodes maps with string keys and bignums as *big.Int, so they can be encoded back to JSON.
var cborDecMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		BigIntDec:      cbor.BigIntDecodePointer,
	}.DecMode()
	if err != nil {
		panic(err)
	}

	return dm
}()

type cborCodec struct{}

func (cborCodec) contentType() string { return contentCBOR }

func (cborCodec) encode(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	b, err := cbor.Marshal(numbers(v))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return b, nil
}

// numbers replaces the JSON numbers of v. Integers become CBOR integers, or bignums outside of the 64 bits range, the
// rest floats.
func numbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		return number(v)
	case []any:
		for i := range v {
			v[i] = numbers(v[i])
		}
	case map[string]any:
		for k := range v {
			v[k] = numbers(v[k])
		}
	}

	return v
}

func number(n json.Number) any {
	s := n.String()

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u
	}

	if !strings.ContainsAny(s, ".eE") {
		if i, ok := new(big.Int).SetString(s, 10); ok {
			return i
		}
	}

	f, _ := n.Float64()

	return f
}

// decode converts a CBOR reply to JSON, anything that is not valid CBOR is returned as is.
func (cborCodec) decode(contentType string, body []byte) []byte {
	if len(body) == 0 {
		return body
	}

	if mt, _, err := mime.ParseMediaType(contentType); err != nil || mt != contentCBOR {
		return body
	}

	var v any
	if err := cborDecMode.Unmarshal(body, &v); err != nil {
		return body
	}

	b, err := json.Marshal(v)
	if err != nil {
		return body
	}

	return b
}
