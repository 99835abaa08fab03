// Package language wraps gqlparser for loading executable schemas and
// validating query documents against them.
package language

import (
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// Error is a located GraphQL error.
type Error = gqlerror.Error

// ErrorList is a list of located GraphQL errors.
type ErrorList = gqlerror.List

// LoadSchema parses and validates SDL. The gqlparser prelude (built-in
// scalars, directives and introspection types) is included.
func LoadSchema(sdl ...string) (*Schema, error) {
	sources := make([]*ast.Source, 0, len(sdl))
	for i, s := range sdl {
		if s == "" {
			continue
		}
		sources = append(sources, &ast.Source{Name: sourceName(i), Input: s})
	}
	return gqlparser.LoadSchema(sources...)
}

// LoadQuery parses and validates a query document against s.
func LoadQuery(s *Schema, query string) (*QueryDocument, ErrorList) {
	return gqlparser.LoadQuery(s, query)
}

// ParseQuery parses a query without validating it.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func sourceName(i int) string {
	if i == 0 {
		return "schema.graphql"
	}
	return fmt.Sprintf("schema_%d.graphql", i)
}

// CoerceVariables validates and coerces raw variable values against the
// operation's variable definitions.
func CoerceVariables(s *Schema, op *OperationDefinition, vars map[string]any) (map[string]any, error) {
	return validator.VariableValues(s, op, vars)
}
