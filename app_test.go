package minigql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/99designs/gqlgen/graphql/introspection"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/minigql/internal/config"
	"github.com/hanpama/minigql/internal/logging"
	"github.com/hanpama/minigql/internal/plugin"
	"github.com/hanpama/minigql/internal/resolver"
	"github.com/hanpama/minigql/internal/services"
)

const testSDL = `
type User { id: ID! name: String }
input CreateUserInput { name: String! }
`

var testUsers = []map[string]any{{"id": "1", "name": "Ann"}, {"id": "2", "name": "Bo"}}

func testResolvers() []resolver.Descriptor {
	return []resolver.Descriptor{
		{Name: "userById", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			for _, u := range testUsers {
				if u["id"] == p.InputMap()["id"] {
					return u, nil
				}
			}
			return nil, nil
		}},
		{Name: "users", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			return testUsers, nil
		}},
		{Name: "createUser", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			return map[string]any{"id": "3", "name": p.InputMap()["name"]}, nil
		}},
	}
}

func newTestApp(opts ...Option) *App {
	base := []Option{
		WithConfig(config.Default()),
		WithLogger(logging.New(io.Discard, logging.FormatJSON)),
		WithSchema(testSDL),
		WithResolvers(testResolvers()...),
	}
	return New(append(base, opts...)...)
}

func TestBuild_PrependsDefaultBase(t *testing.T) {
	built, err := newTestApp().Build()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(built.SDL, DefaultBaseSchema))
	require.Contains(t, built.SDL, "type Query {\n  userById(input: IdInput!):User\n  users:[User]\n}\n")
	require.Contains(t, built.SDL, "type Mutation {\n  createUser(input: CreateUserInput!):User\n}\n")
	require.NotNil(t, built.Schema.Types["IdInput"])
}

func TestBuild_BaseDeclaresIDInput(t *testing.T) {
	built, err := newTestApp(WithSchema("input IdInput { id: ID! }")).Build()
	require.NoError(t, err)
	require.Equal(t, built.Generated.SchemaText, built.SDL)
}

func TestBuild_InvalidSchema(t *testing.T) {
	app := New(
		WithConfig(config.Default()),
		WithResolvers(resolver.Descriptor{Name: "whoami"}),
	)
	_, err := app.Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "load generated schema")
}

func TestBuild_SchemaFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.graphql")
	require.NoError(t, os.WriteFile(path, []byte("type Post { id: ID! }"), 0o644))
	cfg := config.Default()
	cfg.Schema.Files = []string{path}

	built, err := newTestApp(WithConfig(cfg)).Build()
	require.NoError(t, err)
	require.NotNil(t, built.Schema.Types["Post"])

	cfg.Schema.Files = []string{filepath.Join(t.TempDir(), "missing.graphql")}
	_, err = newTestApp(WithConfig(cfg)).Build()
	require.Error(t, err)
}

func TestExec(t *testing.T) {
	out, err := newTestApp().Exec(context.Background(), `{ userById(input: {id: "2"}) { name } users { id } }`, "", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"userById":{"name":"Bo"},"users":[{"id":"1"},{"id":"2"}]}}`, string(out))

	out, err = newTestApp().Exec(context.Background(),
		`mutation($in: CreateUserInput!) { createUser(input: $in) { id name } }`, "",
		map[string]any{"in": map[string]any{"name": "Cy"}})
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"createUser":{"id":"3","name":"Cy"}}}`, string(out))
}

func TestExec_IntrospectionQuery(t *testing.T) {
	out, err := newTestApp().Exec(context.Background(), introspection.Query, "", nil)
	require.NoError(t, err)

	var res struct {
		Data struct {
			Schema struct {
				QueryType    struct{ Name string } `json:"queryType"`
				MutationType struct{ Name string } `json:"mutationType"`
				Types        []struct {
					Name   string `json:"name"`
					Fields []struct {
						Name string            `json:"name"`
						Args []json.RawMessage `json:"args"`
					} `json:"fields"`
				} `json:"types"`
			} `json:"__schema"`
		} `json:"data"`
		Errors []json.RawMessage `json:"errors"`
	}
	require.NoError(t, jsoniter.Unmarshal(out, &res))
	require.Empty(t, res.Errors, string(out))
	require.Equal(t, "Query", res.Data.Schema.QueryType.Name)
	require.Equal(t, "Mutation", res.Data.Schema.MutationType.Name)

	args := map[string]int{}
	for _, typ := range res.Data.Schema.Types {
		if typ.Name != "Query" {
			continue
		}
		for _, f := range typ.Fields {
			require.NotNil(t, f.Args, f.Name)
			args[f.Name] = len(f.Args)
		}
	}
	require.Equal(t, map[string]int{"userById": 1, "users": 0}, args)
}

func TestExec_NilSliceForNonNullList(t *testing.T) {
	type member struct{ ID string }
	admins := resolver.Descriptor{Name: "admins", ReturnType: "[User]!", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
		var none []member
		return none, nil
	}}
	out, err := newTestApp(WithResolvers(admins)).Exec(context.Background(), `{ admins { id } }`, "", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"admins":[]}}`, string(out))
}

func TestExec_PluginContextAndParameters(t *testing.T) {
	p := plugin.Descriptor{
		Name:       "session",
		Parameters: map[string]plugin.Value{"greeting": plugin.Static("hello")},
		Context: func(ctx context.Context, r *http.Request) (any, error) {
			return "cli", nil
		},
		Resolvers: []resolver.Descriptor{{
			Name:       "whoami",
			ReturnType: "String",
			Handler: func(ctx context.Context, p resolver.Params) (any, error) {
				g, _ := p.Get("greeting")
				return g.(string) + " " + p.Context.(string), nil
			},
		}},
	}
	out, err := newTestApp(WithPlugins(p)).Exec(context.Background(), `{ whoami }`, "", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"whoami":"hello cli"}}`, string(out))
}

func TestExec_PreStartFailure(t *testing.T) {
	p := plugin.Descriptor{Name: "db", PreStart: func(ctx context.Context) error { return errors.New("unreachable") }}
	_, err := newTestApp(WithPlugins(p)).Exec(context.Background(), `{ users { id } }`, "", nil)
	require.ErrorIs(t, err, plugin.ErrPreStart)
	require.Contains(t, err.Error(), "db: unreachable")
}

func TestExec_Services(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"billing":{"url":"http://127.0.0.1:1","methods":["charge"]}}`), 0o644))
	cfg := config.Default()
	cfg.Services = path

	app := newTestApp(WithConfig(cfg), WithResolvers(resolver.Descriptor{
		Name:       "serviceNames",
		ReturnType: "[String]",
		Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			reg, ok := services.FromParams(p)
			if !ok {
				return nil, errors.New("services not injected")
			}
			return reg.Names(), nil
		},
	}))
	out, err := app.Exec(context.Background(), `{ serviceNames }`, "", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"serviceNames":["billing"]}}`, string(out))
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestApp().Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	resp, err := http.Post(url+"/graphql", "application/json", bytes.NewBufferString(`{"query":"{ users { name } }"}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"data":{"users":[{"name":"Ann"},{"name":"Bo"}]}}`, string(body))

	resp, err = http.Get(url + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) count(s string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), s)
}

func TestServe_TwoAppsKeepSeparateEvents(t *testing.T) {
	type running struct {
		url  string
		logs *syncBuffer
		stop context.CancelFunc
		done chan error
	}
	start := func() *running {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		r := &running{url: "http://" + ln.Addr().String(), logs: &syncBuffer{}, done: make(chan error, 1)}
		ctx, cancel := context.WithCancel(context.Background())
		r.stop = cancel
		app := newTestApp(WithLogger(logging.New(r.logs, logging.FormatJSON)))
		go func() { r.done <- app.Serve(ctx, ln) }()
		return r
	}
	get := func(url string) {
		resp, err := http.Post(url+"/graphql", "application/json", bytes.NewBufferString(`{"query":"{ users { id } }"}`))
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	first, second := start(), start()
	get(first.url)
	get(second.url)
	require.Eventually(t, func() bool { return first.logs.count(`"http request"`) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return second.logs.count(`"http request"`) == 1 }, 2*time.Second, 10*time.Millisecond)

	first.stop()
	require.NoError(t, <-first.done)

	get(second.url)
	require.Eventually(t, func() bool { return second.logs.count(`"http request"`) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, first.logs.count(`"http request"`))

	second.stop()
	require.NoError(t, <-second.done)
}
