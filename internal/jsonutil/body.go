// Package jsonutil classifies raw reply bodies before they are decoded as JSON-RPC responses.
package jsonutil

import (
	"bytes"
	"encoding/json"
)

// Shape is the kind of a reply body.
type Shape int

const (
	Empty  Shape = iota // No content at all.
	Text                // Not JSON, only whitespace, or a JSON string.
	Object              // A JSON object.
	Array               // A JSON array.
	Scalar              // A JSON number, boolean or null.
)

// TrimWhitespace trims the JSON insignificant whitespace around b.
func TrimWhitespace(b []byte) []byte {
	return bytes.Trim(b, " \t\n\r") // Space, tab, newline, and carriage return, see RFC 8259.
}

// Classify returns the shape of b. Invalid JSON is always [Text], whatever it starts with.
func Classify(b []byte) Shape {
	if len(b) == 0 {
		return Empty
	}

	trimmed := TrimWhitespace(b)
	if len(trimmed) == 0 {
		return Text
	}

	if !json.Valid(trimmed) {
		return Text
	}

	switch trimmed[0] {
	case '{':
		return Object
	case '[':
		return Array
	case '"':
		return Text
	}

	return Scalar
}

// Value returns b as a Go value: the decoded JSON for structured bodies, and the body as a string for [Empty] and
// [Text] bodies. A JSON string body is returned decoded.
func Value(b []byte) any {
	trimmed := TrimWhitespace(b)

	switch Classify(b) {
	case Empty:
		return ""
	case Text:
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}

		return string(b)
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(b)
	}

	return v
}
