// Package group provides namespaced views of a client, so methods sharing a prefix are called by their short name.
//
// Groups can be nested, the prefixes of nested groups are joined by a separator.
package group

import (
	"context"
	"encoding/json"

	jrpc "github.com/kytnacode/go-jrpcclient"
)

// DefaultSeparator is the default separator for the subgroups, see [Group.SetSeparator] to use a custom separator.
const DefaultSeparator = "."

// Caller sends calls to a destination, [*jrpc.Client] implements it.
type Caller interface {
	Call(ctx context.Context, dest string, data *jrpc.CallData, opts ...jrpc.PostOption) (json.RawMessage, error)
	Notify(ctx context.Context, dest string, data *jrpc.CallData, opts ...jrpc.PostOption) error
	Batch(dest string, opts ...jrpc.PostOption) *jrpc.Batch
}

// Group is a namespace of methods on a destination. The methods called through a group get the prefix of the group
// and the prefixes of its parents, separated by a separator, defaults to [DefaultSeparator], can be changed with
// [Group.SetSeparator].
//
// Example:
//
//	g := group.New(client, "http://localhost:8080/rpc")
//
//	g.Call(ctx, "echo", []string{"hi"}) // Calls "echo"
//
//	math := g.Use("math", nil)
//	math.Call(ctx, "add", []int{1, 2}) // Calls "math.add"
//
//	g.Use("strings", func(subG *group.Group) {
//	    subG.SetSeparator("/")
//	}).Call(ctx, "concat", []string{"a", "b"}) // Calls "strings/concat"
type Group struct {
	caller Caller
	dest   string
	opts   []jrpc.PostOption

	base   string // Full prefix of the parent, including its separator.
	prefix string
	sep    string // Subgroup separator
}

// New creates the root group of dest, its methods have no prefix. opts are passed to every call of the group and its
// subgroups.
func New(c Caller, dest string, opts ...jrpc.PostOption) *Group {
	return &Group{
		caller: c,
		dest:   dest,
		opts:   opts,
		sep:    DefaultSeparator,
	}
}

// SetSeparator sets the separator between the prefix of the group and its methods, and the default separator of the
// subgroups created after the call. Defaults to the separator of the parent, or [DefaultSeparator].
func (g *Group) SetSeparator(sep string) {
	g.sep = sep
}

// Use creates a subgroup of methods. The methods of the subgroup will have a prefix separated by the separator, if
// useG calls [Group.SetSeparator] the separator will be changed for the subgroup and all subgroups of the subgroup,
// if prefix is empty, subgroup methods will be called without prefix nor separator, whether the separator is changed
// or not. useG may be nil:
//
//	math := g.Use("math", nil)
//	math.Method("add") // "math.add"
//
//	arith := math.Use("arith", func(subG *group.Group) {
//	    subG.SetSeparator("/")
//	})
//	arith.Method("add") // "math.arith/add"
func (g *Group) Use(prefix string, useG func(subG *Group)) *Group {
	subG := &Group{
		caller: g.caller,
		dest:   g.dest,
		opts:   g.opts,
		base:   g.Method(""),
		prefix: prefix,
		sep:    g.sep, // Subgroup separators default to parent's separator
	}

	if useG != nil {
		useG(subG)
	}

	return subG
}

// Method returns the full name of method in the group.
func (g *Group) Method(method string) string {
	if g.prefix == "" {
		return g.base + method // Ignore separator if prefix is empty
	}

	return g.base + g.prefix + g.sep + method
}

// Call sends a request for method of the group, see [jrpc.Client.Call].
func (g *Group) Call(ctx context.Context, method string, args any) (json.RawMessage, error) {
	return g.caller.Call(ctx, g.dest, jrpc.Call(g.Method(method)).Args(args), g.opts...) //nolint:wrapcheck
}

// Notify sends a notification for method of the group, see [jrpc.Client.Notify].
func (g *Group) Notify(ctx context.Context, method string, args any) error {
	return g.caller.Notify(ctx, g.dest, jrpc.Call(g.Method(method)).Args(args), g.opts...) //nolint:wrapcheck
}

// Batch starts a batch call whose methods are prefixed by the group, see [jrpc.Batch].
func (g *Group) Batch() *Batch {
	return &Batch{
		group: g,
		batch: g.caller.Batch(g.dest, g.opts...),
	}
}

// Batch is a [jrpc.Batch] whose methods are named relative to a [Group].
type Batch struct {
	group *Group
	batch *jrpc.Batch
}

// Request adds a request for method of the group, and returns the batch itself.
func (b *Batch) Request(method string, args any) *Batch {
	b.batch.Request(b.group.Method(method), args)

	return b
}

// Notify adds a notification for method of the group, and returns the batch itself.
func (b *Batch) Notify(method string, args any) *Batch {
	b.batch.Notify(b.group.Method(method), args)

	return b
}

// Exec sends the batch, see [jrpc.Batch.Exec].
func (b *Batch) Exec(ctx context.Context) ([]jrpc.CallResult, error) {
	return b.batch.Exec(ctx) //nolint:wrapcheck
}

var _ Caller = (*jrpc.Client)(nil)
