package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type role string

type level int

func (l level) String() string { return fmt.Sprintf("L%d", int(l)) }

func TestCompleteValue_Abstract(t *testing.T) {
	s := mustLoadSchema(t, `
		interface Node { id: ID! }
		type User implements Node { id: ID! name: String }
		type Post implements Node { id: ID! title: String }
		union Item = User | Post
		type Query { node: Node items: [Item!]! }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.node": NewMockValueResolver(map[string]any{"__typename": "User", "id": "1", "name": "Ann"}),
		"Query.items": NewMockValueResolver([]any{
			map[string]any{"__typename": "Post", "id": "2", "title": "Hi"},
			map[string]any{"__typename": "User", "id": "3", "name": "Bo"},
		}),
	})
	res := NewExecutor(rt, s).Execute(context.Background(), `{
		node { id __typename ... on User { name } }
		items { ... on User { name } ... on Post { title } }
	}`, "", nil)

	want := map[string]any{
		"node":  map[string]any{"id": "1", "__typename": "User", "name": "Ann"},
		"items": []any{map[string]any{"title": "Hi"}, map[string]any{"name": "Bo"}},
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteValue_AbstractInvalidType(t *testing.T) {
	s := mustLoadSchema(t, `
		interface Node { id: ID! }
		type User implements Node { id: ID! }
		type Other { id: ID! }
		type Query { node: Node other: Other }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.node": NewMockValueResolver(map[string]any{"__typename": "Other", "id": "1"}),
	})
	res := NewExecutor(rt, s).Execute(context.Background(), `{ node { id } }`, "", nil)

	want := &ExecutionResult{
		Data: map[string]any{"node": nil},
		Errors: []GraphQLError{{
			Message:   "Abstract type Node must resolve to an Object type at runtime. Got: Other",
			Locations: []Location{{Line: 1, Column: 3}},
			Path:      Path{"node"},
		}},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteValue_Typename(t *testing.T) {
	s := mustLoadSchema(t, `
		type Query { obj: Obj }
		type Obj { a: String }
	`)
	rt := NewMockRuntime(map[string]MockResolver{"Query.obj": NewMockValueResolver(map[string]any{})})
	res := NewExecutor(rt, s).Execute(context.Background(), `{ __typename obj { __typename } }`, "", nil)

	want := map[string]any{"__typename": "Query", "obj": map[string]any{"__typename": "Obj"}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteValue_ListErrors(t *testing.T) {
	s := mustLoadSchema(t, `type Query { names: [String] }`)
	rt := NewMockRuntime(map[string]MockResolver{"Query.names": NewMockValueResolver("not a list")})
	res := NewExecutor(rt, s).Execute(context.Background(), `{ names }`, "", nil)

	want := &ExecutionResult{
		Data:   map[string]any{"names": nil},
		Errors: []GraphQLError{{Message: "Expected list value, got string", Locations: []Location{{Line: 1, Column: 3}}, Path: Path{"names"}}},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteValue_TypedSlices(t *testing.T) {
	s := mustLoadSchema(t, `type Query { names: [String!]! }`)
	rt := NewMockRuntime(map[string]MockResolver{"Query.names": NewMockValueResolver([]string{"a", "b"})})
	res := NewExecutor(rt, s).Execute(context.Background(), `{ names }`, "", nil)

	if diff := cmp.Diff(map[string]any{"names": []any{"a", "b"}}, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospection_Disabled(t *testing.T) {
	s := mustLoadSchema(t, `type Query { a: String }`)
	res := NewExecutor(NewMockRuntime(nil), s, WithIntrospection(false)).
		Execute(context.Background(), `{ __type(name: "Query") { name } }`, "", nil)

	want := &ExecutionResult{
		Data:   map[string]any{"__type": nil},
		Errors: []GraphQLError{{Message: "introspection is disabled", Locations: []Location{{Line: 1, Column: 3}}, Path: Path{"__type"}}},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeLeafValue(t *testing.T) {
	n := 3
	var nilPtr *int
	cases := []struct {
		name string
		in   any
		want any
	}{
		{"int", 5, 5},
		{"string", "s", "s"},
		{"pointer", &n, 3},
		{"nil pointer", nilPtr, nil},
		{"named string", role("admin"), "admin"},
		{"stringer", level(2), "L2"},
		{"bool", true, true},
		{"float", 1.5, 1.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, serializeLeafValue(tc.in)); diff != "" {
				t.Fatalf("serializeLeafValue mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPathToString(t *testing.T) {
	if got := pathToString(Path{"a", "b", 0, "c"}); got != "a.b[0].c" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestCompleteValue_NilSliceIsEmptyList(t *testing.T) {
	s := mustLoadSchema(t, `type Query { tags: [String!]! names: [String] }`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.tags":  NewMockValueResolver([]string(nil)),
		"Query.names": NewMockValueResolver([]any(nil)),
	})
	res := NewExecutor(rt, s).Execute(context.Background(), `{ tags names }`, "", nil)

	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	want := map[string]any{"tags": []any{}, "names": []any{}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}
