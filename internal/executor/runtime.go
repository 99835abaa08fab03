package executor

import (
	"context"

	language "github.com/hanpama/minigql/internal/language"
)

// Runtime is the host integration surface used by the Executor.
//
// Implementations must be safe for concurrent use: root query fields of a
// single operation are resolved in parallel, and the Executor may serve many
// operations at once. Implementations must not mutate Source or Args.
type Runtime interface {
	// ResolveRoot resolves a field of the Query or Mutation root type.
	ResolveRoot(ctx context.Context, req FieldRequest) (any, error)

	// ResolveField resolves a non-root field from its parent value.
	// Return (nil, nil) to produce a GraphQL null.
	ResolveField(ctx context.Context, req FieldRequest) (any, error)

	// ResolveType returns the concrete object type name for a value of an
	// interface or union type. It must be a possible type of abstractType.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)
}

// FieldRequest describes a single field resolution.
type FieldRequest struct {
	Operation     language.Operation
	OperationName string
	// ObjectType is the parent object type name, e.g. "Query" or "User".
	ObjectType string
	Field      string
	// Source is the parent value; it is the initial value for root fields.
	Source any
	// Args are the field arguments, coerced against the schema.
	Args map[string]any
	Path Path
}
