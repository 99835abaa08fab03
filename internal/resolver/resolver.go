// Package resolver defines the descriptors and call contracts shared by the
// schema inference engine, the dispatch wrapper and the runtimes that invoke
// wrapped resolvers.
package resolver

import (
	"context"
	"fmt"
)

// Category is the operation kind of a resolver.
type Category string

const (
	// Unset means the category is inferred from the resolver name.
	Unset Category = ""
	Read  Category = "Query"
	Write Category = "Mutation"
)

// String returns the root type name the category maps to.
func (c Category) String() string {
	if c == Unset {
		return "Unset"
	}
	return string(c)
}

// ParseCategory accepts the root type names as well as the lowercase
// operation keywords.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "":
		return Unset, nil
	case "Query", "query", "read":
		return Read, nil
	case "Mutation", "mutation", "write":
		return Write, nil
	}
	return Unset, fmt.Errorf("unknown resolver category %q", s)
}

// Descriptor declares one operation. Empty optional fields are inferred from
// Name.
type Descriptor struct {
	Name         string
	Category     Category
	ArgumentType string
	ReturnType   string
	Handler      Handler
}

// Handler is a user supplied operation. It receives the single merged
// parameter record assembled by the dispatch wrapper.
type Handler func(ctx context.Context, p Params) (any, error)

// Func is the uniform callable stored in the generated field maps. Runtimes
// call it with the parent value, the raw field arguments, the per-request
// context value and the operation metadata.
type Func func(ctx context.Context, parent any, args map[string]any, reqCtx any, info Info) (any, error)

// Info describes the field being resolved.
type Info struct {
	FieldName     string
	ParentType    string
	OperationName string
	Operation     Category
	Path          []any
}

// Args is the normalized invocation bundle. Injected parameter producers are
// called with it.
type Args struct {
	Variables     map[string]any
	ParentContext any
	Context       any
	Input         any
	HasInput      bool
	Info          Info
	Schema        string
	ReturnType    string
	ArgumentType  string
}

// Params is what a Handler receives: the normalized bundle plus every value
// injected by plugins.
type Params struct {
	Args
	Injected map[string]any
}

// Get returns an injected parameter.
func (p Params) Get(key string) (any, bool) {
	v, ok := p.Injected[key]
	return v, ok
}

// InputMap returns Input as an object value, or nil when the input is absent
// or not an object.
func (p Params) InputMap() map[string]any {
	m, _ := p.Input.(map[string]any)
	return m
}
