package maprt

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/minigql/internal/executor"
	language "github.com/hanpama/minigql/internal/language"
	"github.com/hanpama/minigql/internal/resolver"
	"github.com/hanpama/minigql/internal/schema"
)

const baseSDL = `
input IdInput { id: ID! }
input CreateUserInput { name: String! }
type User { id: ID! name: String! posts: [Post!]! }
type Post { id: ID! title: String }
`

type user struct {
	ID   string `json:"id"`
	Name string
}

func (u *user) Posts(ctx context.Context) ([]post, error) {
	return []post{{ID: u.ID + "-1", Title: "first"}}, nil
}

type post struct {
	ID    string
	Title string `json:"title"`
}

func newExecutor(t *testing.T, descs ...resolver.Descriptor) *executor.Executor {
	t.Helper()
	gen := schema.Build(descs, baseSDL)
	s, err := language.LoadSchema(gen.Executable())
	require.NoError(t, err)
	return executor.NewExecutor(New(gen), s)
}

func TestRuntime_QueryAndMutation(t *testing.T) {
	users := map[string]*user{"1": {ID: "1", Name: "Ann"}}
	exec := newExecutor(t,
		resolver.Descriptor{Name: "userById", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			id, _ := p.InputMap()["id"].(string)
			return users[id], nil
		}},
		resolver.Descriptor{Name: "users", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			return []*user{users["1"]}, nil
		}},
		resolver.Descriptor{Name: "createUser", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			name, _ := p.InputMap()["name"].(string)
			return &user{ID: "2", Name: name}, nil
		}},
	)

	res := exec.Execute(context.Background(), `{
		userById(input: {id: "1"}) { id name posts { id title } }
		users { name }
	}`, "", nil)
	require.Empty(t, res.Errors)
	want := map[string]any{
		"userById": map[string]any{
			"id":    "1",
			"name":  "Ann",
			"posts": []any{map[string]any{"id": "1-1", "title": "first"}},
		},
		"users": []any{map[string]any{"name": "Ann"}},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	res = exec.Execute(context.Background(), `mutation($in: CreateUserInput!) { createUser(input: $in) { id name } }`, "",
		map[string]any{"in": map[string]any{"name": "Bo"}})
	require.Empty(t, res.Errors)
	if diff := cmp.Diff(map[string]any{"createUser": map[string]any{"id": "2", "name": "Bo"}}, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestRuntime_RequestContextAndInfo(t *testing.T) {
	var got resolver.Params
	exec := newExecutor(t, resolver.Descriptor{Name: "userById", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
		got = p
		return nil, nil
	}})

	ctx := WithRequestContext(context.Background(), "request-value")
	res := exec.Execute(ctx, `query Named { userById(input: {id: "9"}) { id } }`, "Named", nil)
	require.Empty(t, res.Errors)

	require.Equal(t, "request-value", got.Context)
	require.Nil(t, got.ParentContext)
	require.True(t, got.HasInput)
	require.Equal(t, map[string]any{"id": "9"}, got.Input)
	require.Equal(t, resolver.Info{
		FieldName:     "userById",
		ParentType:    "Query",
		OperationName: "Named",
		Operation:     resolver.Read,
		Path:          []any{"userById"},
	}, got.Info)
	require.Equal(t, "userById(input: IdInput!):User", got.Schema)
}

func TestRuntime_HandlerErrorsPassThrough(t *testing.T) {
	exec := newExecutor(t, resolver.Descriptor{Name: "users", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
		return nil, errors.New("database unavailable")
	}})
	res := exec.Execute(context.Background(), `{ users { name } }`, "", nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "database unavailable", res.Errors[0].Message)
	require.Equal(t, map[string]any{"users": nil}, res.Data)
}

func TestRuntime_UnknownRootField(t *testing.T) {
	rt := New(schema.Build(nil, baseSDL))
	_, err := rt.ResolveRoot(context.Background(), executor.FieldRequest{
		Operation:  language.Query,
		ObjectType: "Query",
		Field:      "missing",
	})
	require.EqualError(t, err, "no resolver registered for Query.missing")
}

func TestRuntime_Introspection(t *testing.T) {
	exec := newExecutor(t,
		resolver.Descriptor{Name: "users", Handler: func(ctx context.Context, p resolver.Params) (any, error) { return nil, nil }},
		resolver.Descriptor{Name: "createUser", Handler: func(ctx context.Context, p resolver.Params) (any, error) { return nil, nil }},
	)

	res := exec.Execute(context.Background(), `{
		__schema { queryType { name } mutationType { name } }
		__type(name: "User") { name kind fields { name } }
	}`, "", nil)
	require.Empty(t, res.Errors)

	want := map[string]any{
		"__schema": map[string]any{
			"queryType":    map[string]any{"name": "Query"},
			"mutationType": map[string]any{"name": "Mutation"},
		},
		"__type": map[string]any{
			"name": "User",
			"kind": "OBJECT",
			"fields": []any{
				map[string]any{"name": "id"},
				map[string]any{"name": "name"},
				map[string]any{"name": "posts"},
			},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

type namedNode struct{ kind string }

func (n namedNode) GraphQLTypeName() string { return n.kind }

func TestRuntime_ResolveType(t *testing.T) {
	rt := New(schema.Build(nil, ""))
	ctx := context.Background()

	name, err := rt.ResolveType(ctx, "Node", map[string]any{"__typename": "User"})
	require.NoError(t, err)
	require.Equal(t, "User", name)

	name, err = rt.ResolveType(ctx, "Node", namedNode{kind: "Post"})
	require.NoError(t, err)
	require.Equal(t, "Post", name)

	name, err = rt.ResolveType(ctx, "Node", &post{})
	require.NoError(t, err)
	require.Equal(t, "post", name)

	_, err = rt.ResolveType(ctx, "Node", 42)
	require.Error(t, err)
}
