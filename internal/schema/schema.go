// Package schema is the inference engine: it turns resolver descriptors and
// plugins into root field declarations, SDL text and the name to callable
// maps a runtime dispatches on.
package schema

import "github.com/hanpama/minigql/internal/resolver"

// FieldDeclaration is one inferred root field.
type FieldDeclaration struct {
	Name         string
	ArgumentType string // empty when the field takes no input
	ReturnType   string // may be empty when nothing could be inferred
	Category     resolver.Category
}

// String renders the declaration as it appears inside a root type block.
func (f FieldDeclaration) String() string {
	var b builder
	renderField(&b, f)
	return b.String()
}

// Generated is the output of one engine run. It is built once and must not
// be mutated afterwards.
type Generated struct {
	SchemaText string
	Query      map[string]resolver.Func
	Mutation   map[string]resolver.Func

	QueryFields    []FieldDeclaration
	MutationFields []FieldDeclaration

	base      string
	fragments []string
}

// Lookup returns the callable registered for name under category.
func (g *Generated) Lookup(category resolver.Category, name string) (resolver.Func, bool) {
	var m map[string]resolver.Func
	switch category {
	case resolver.Read:
		m = g.Query
	case resolver.Write:
		m = g.Mutation
	}
	fn, ok := m[name]
	return fn, ok
}

// Executable returns SchemaText with empty root type blocks left out, which
// is what a GraphQL parser accepts.
func (g *Generated) Executable() string {
	return concat(g.base, g.QueryFields, g.MutationFields, g.fragments, true)
}
