// Package maprt is the executor runtime backed by the generated Query and
// Mutation callable maps. Nested fields are projected from the parent value.
package maprt

import (
	"context"
	"fmt"

	executor "github.com/hanpama/minigql/internal/executor"
	language "github.com/hanpama/minigql/internal/language"
	"github.com/hanpama/minigql/internal/resolver"
	"github.com/hanpama/minigql/internal/schema"
)

type requestContextKey struct{}

// WithRequestContext attaches the per-request context value produced by the
// plugin context provider.
func WithRequestContext(ctx context.Context, v any) context.Context {
	return context.WithValue(ctx, requestContextKey{}, v)
}

// RequestContextFrom returns the value set by WithRequestContext, or nil.
func RequestContextFrom(ctx context.Context) any {
	return ctx.Value(requestContextKey{})
}

// TypeNamer lets values of interface or union types report their concrete
// object type.
type TypeNamer interface {
	GraphQLTypeName() string
}

// Runtime implements executor.Runtime.
type Runtime struct {
	gen *schema.Generated
}

var _ executor.Runtime = (*Runtime)(nil)

func New(gen *schema.Generated) *Runtime {
	return &Runtime{gen: gen}
}

func (r *Runtime) ResolveRoot(ctx context.Context, req executor.FieldRequest) (any, error) {
	var category resolver.Category
	switch req.Operation {
	case language.Query:
		category = resolver.Read
	case language.Mutation:
		category = resolver.Write
	default:
		return nil, fmt.Errorf("unsupported operation %q", req.Operation)
	}
	fn, ok := r.gen.Lookup(category, req.Field)
	if !ok {
		return nil, fmt.Errorf("no resolver registered for %s.%s", req.ObjectType, req.Field)
	}
	info := resolver.Info{
		FieldName:     req.Field,
		ParentType:    req.ObjectType,
		OperationName: req.OperationName,
		Operation:     category,
		Path:          toAnySlice(req.Path),
	}
	return fn(ctx, req.Source, req.Args, RequestContextFrom(ctx), info)
}

func (r *Runtime) ResolveField(ctx context.Context, req executor.FieldRequest) (any, error) {
	return Project(ctx, req.Source, req.Field, req.Args)
}

func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if name := typeNameOf(value); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s from %T", abstractType, value)
}

func toAnySlice(p executor.Path) []any {
	out := make([]any, len(p))
	for i, e := range p {
		out[i] = e
	}
	return out
}
