package executor

import (
	language "github.com/hanpama/minigql/internal/language"
)

type Path []PathElement

type PathElement any

// Location is a position in the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// ResultFromErrors converts gqlparser validation errors. Execution does not
// start when the document is invalid, so Data stays nil.
func ResultFromErrors(list language.ErrorList) *ExecutionResult {
	res := &ExecutionResult{Errors: make([]GraphQLError, 0, len(list))}
	for _, e := range list {
		ge := GraphQLError{Message: e.Message, Extensions: e.Extensions}
		for _, l := range e.Locations {
			ge.Locations = append(ge.Locations, Location{Line: l.Line, Column: l.Column})
		}
		for _, p := range e.Path {
			switch v := p.(type) {
			case language.PathName:
				ge.Path = append(ge.Path, string(v))
			case language.PathIndex:
				ge.Path = append(ge.Path, int(v))
			}
		}
		res.Errors = append(res.Errors, ge)
	}
	return res
}
