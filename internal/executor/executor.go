package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/99designs/gqlgen/graphql/introspection"
	"golang.org/x/sync/errgroup"

	language "github.com/hanpama/minigql/internal/language"
)

// Executor executes operations against one schema. It holds no per-request
// state and may be shared.
type Executor struct {
	runtime Runtime
	schema  *language.Schema
	opt     Options
}

type Options struct {
	// Introspection enables __schema and __type on the query root.
	Introspection bool
	// MaxParallel bounds concurrently resolved root query fields. 0 means no limit.
	MaxParallel int
}

type Option func(*Options)

func WithIntrospection(enable bool) Option { return func(o *Options) { o.Introspection = enable } }
func WithMaxParallel(n int) Option         { return func(o *Options) { o.MaxParallel = n } }

func NewExecutor(runtime Runtime, schema *language.Schema, opts ...Option) *Executor {
	op := Options{Introspection: true}
	for _, f := range opts {
		f(&op)
	}
	return &Executor{runtime: runtime, schema: schema, opt: op}
}

// Schema returns the schema the executor validates against.
func (e *Executor) Schema() *language.Schema { return e.schema }

// executionState holds the state of one operation.
type executionState struct {
	*Executor
	ctx       context.Context
	document  *language.QueryDocument
	operation *language.OperationDefinition
	variables map[string]any

	mu     sync.Mutex
	errors []GraphQLError
}

// Execute parses and validates query, then runs it.
func (e *Executor) Execute(ctx context.Context, query, operationName string, variables map[string]any) *ExecutionResult {
	doc, errs := language.LoadQuery(e.schema, query)
	if len(errs) > 0 {
		return ResultFromErrors(errs)
	}
	return e.ExecuteRequest(ctx, doc, operationName, variables, nil)
}

// ExecuteRequest runs an already validated document.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation := getOperation(document, operationName)
	if operation == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: "operation not found"}}}
	}

	coerced, err := language.CoerceVariables(e.schema, operation, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: variableErrorMessage(err)}}}
	}

	var rootType *language.Definition
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.Query
	case language.Mutation:
		rootType = e.schema.Mutation
	default:
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}}}
	}
	if rootType == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("root type not found for %s operation", operation.Operation)}}}
	}

	state := &executionState{
		Executor:  e,
		ctx:       ctx,
		document:  document,
		operation: operation,
		variables: coerced,
		errors:    []GraphQLError{},
	}

	grouped := collectFields(state, rootType, operation.SelectionSet)
	ordered := grouped.orderedFields()
	values := make([]any, len(ordered))
	oks := make([]bool, len(ordered))

	if operation.Operation == language.Mutation {
		for i, cf := range ordered {
			values[i], oks[i] = executeField(state, rootType, initialValue, cf.Fields, Path{cf.ResponseName}, true)
		}
	} else {
		var g errgroup.Group
		if e.opt.MaxParallel > 0 {
			g.SetLimit(e.opt.MaxParallel)
		}
		for i, cf := range ordered {
			g.Go(func() error {
				values[i], oks[i] = executeField(state, rootType, initialValue, cf.Fields, Path{cf.ResponseName}, true)
				return nil
			})
		}
		_ = g.Wait()
	}

	data := make(map[string]any, len(ordered))
	for i, cf := range ordered {
		if !oks[i] {
			// Non-Null root field failed: the whole data entry becomes null.
			return &ExecutionResult{Data: nil, Errors: state.sortedErrors(ordered)}
		}
		data[cf.ResponseName] = values[i]
	}
	return &ExecutionResult{Data: data, Errors: state.sortedErrors(ordered)}
}

// executeField resolves and completes one field. ok is false when a Non-Null
// violation must null the parent.
func executeField(state *executionState, objectType *language.Definition, source any, fields []*language.Field, path Path, root bool) (any, bool) {
	field := fields[0]

	switch field.Name {
	case "__typename":
		return objectType.Name, true
	case "__schema", "__type":
		if root && state.operation.Operation == language.Query {
			return executeIntrospection(state, fields, path)
		}
	}

	fieldDef := field.Definition
	if fieldDef == nil {
		fieldDef = objectType.Fields.ForName(field.Name)
	}
	if fieldDef == nil {
		state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", field.Name, objectType.Name), path, field)
		return nil, true
	}

	req := FieldRequest{
		Operation:     state.operation.Operation,
		OperationName: state.operation.Name,
		ObjectType:    objectType.Name,
		Field:         field.Name,
		Source:        source,
		Args:          argumentValues(field, state.variables),
		Path:          path,
	}

	var (
		value any
		err   error
	)
	if root {
		value, err = state.runtime.ResolveRoot(state.ctx, req)
	} else {
		value, err = state.runtime.ResolveField(state.ctx, req)
	}
	if err != nil {
		state.addError(err.Error(), path, field)
		value = nil
	}
	return completeValue(state, fieldDef.Type, fields, value, path)
}

func executeIntrospection(state *executionState, fields []*language.Field, path Path) (any, bool) {
	field := fields[0]
	if !state.opt.Introspection {
		state.addError("introspection is disabled", path, field)
		return nil, field.Name != "__schema"
	}
	var value any
	if field.Name == "__schema" {
		value = introspection.WrapSchema(state.schema)
	} else {
		name, _ := argumentValues(field, state.variables)["name"].(string)
		if def := state.schema.Types[name]; def != nil {
			value = introspection.WrapTypeFromDef(state.schema, def)
		}
	}
	return completeValue(state, field.Definition.Type, fields, value, path)
}

// completeValue completes result against fieldType. ok is false when a
// Non-Null type produced null.
func completeValue(state *executionState, fieldType *language.Type, fields []*language.Field, result any, path Path) (any, bool) {
	if fieldType.NonNull {
		inner := *fieldType
		inner.NonNull = false
		completed := completeNullable(state, &inner, fields, result, path)
		if isNullish(completed) {
			if !state.hasErrorUnder(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path, fields[0])
			}
			return nil, false
		}
		return completed, true
	}
	return completeNullable(state, fieldType, fields, result, path), true
}

// completeNullable completes a nullable type; child Non-Null violations are
// absorbed as null here.
func completeNullable(state *executionState, fieldType *language.Type, fields []*language.Field, result any, path Path) any {
	if isNullish(result) {
		return nil
	}
	if fieldType.Elem != nil {
		return completeListValue(state, fieldType, fields, result, path)
	}

	namedType := fieldType.NamedType
	typeDef := state.schema.Types[namedType]
	if typeDef == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", namedType), path, fields[0])
		return nil
	}

	switch typeDef.Kind {
	case language.Scalar, language.Enum:
		return serializeLeafValue(result)
	case language.Object:
		return completeObjectValue(state, typeDef, fields, result, path)
	case language.Interface, language.Union:
		return completeAbstractValue(state, typeDef, fields, result, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeDef.Kind), path, fields[0])
		return nil
	}
}

func completeListValue(state *executionState, listType *language.Type, fields []*language.Field, result any, path Path) any {
	items, ok := toSlice(result)
	if !ok {
		state.addError(fmt.Sprintf("Expected list value, got %T", result), path, fields[0])
		return nil
	}
	completed := make([]any, len(items))
	for i, item := range items {
		v, ok := completeValue(state, listType.Elem, fields, item, appendPath(path, i))
		if !ok {
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *language.Definition, fields []*language.Field, result any, path Path) any {
	grouped := collectFields(state, objectType, mergeSelectionSets(fields))
	out := make(map[string]any, len(grouped.fields))
	for _, cf := range grouped.orderedFields() {
		v, ok := executeField(state, objectType, result, cf.Fields, appendPath(path, cf.ResponseName), false)
		if !ok {
			return nil
		}
		out[cf.ResponseName] = v
	}
	return out
}

func completeAbstractValue(state *executionState, abstractType *language.Definition, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.ctx, abstractType.Name, result)
	if err != nil {
		state.addError(err.Error(), path, fields[0])
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != language.Object || !isPossibleType(state.schema, abstractType, objectType) {
		state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractType.Name, typeName), path, fields[0])
		return nil
	}
	return completeObjectValue(state, objectType, fields, result, path)
}

func isPossibleType(s *language.Schema, abstractType, objectType *language.Definition) bool {
	for _, t := range s.GetPossibleTypes(abstractType) {
		if t.Name == objectType.Name {
			return true
		}
	}
	return false
}

// getOperation picks the named operation, or the only one when name is empty.
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0]
		}
		return nil
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}

func variableErrorMessage(err error) string {
	if ge, ok := err.(*language.Error); ok {
		return ge.Message
	}
	return err.Error()
}

func (s *executionState) addError(message string, path Path, field *language.Field) {
	ge := GraphQLError{Message: message, Path: path}
	if field != nil && field.Position != nil {
		ge.Locations = []Location{{Line: field.Position.Line, Column: field.Position.Column}}
	}
	s.mu.Lock()
	s.errors = append(s.errors, ge)
	s.mu.Unlock()
}

// hasErrorUnder reports whether an error was recorded at path or below it.
func (s *executionState) hasErrorUnder(path Path) bool {
	prefix := pathToString(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.errors {
		p := pathToString(e.Path)
		if p == prefix || strings.HasPrefix(p, prefix+".") || strings.HasPrefix(p, prefix+"[") {
			return true
		}
	}
	return false
}

// sortedErrors orders errors by the document position of their root field so
// concurrently resolved fields produce a stable error list.
func (s *executionState) sortedErrors(roots []collectedField) []GraphQLError {
	rank := make(map[string]int, len(roots))
	for i, cf := range roots {
		rank[cf.ResponseName] = i
	}
	rankOf := func(e GraphQLError) int {
		if len(e.Path) == 0 {
			return -1
		}
		name, _ := e.Path[0].(string)
		return rank[name]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]GraphQLError{}, s.errors...)
	sort.SliceStable(out, func(i, j int) bool { return rankOf(out[i]) < rankOf(out[j]) })
	return out
}
