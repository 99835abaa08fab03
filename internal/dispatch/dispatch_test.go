package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/minigql/internal/eventbus"
	events "github.com/hanpama/minigql/internal/events"
	"github.com/hanpama/minigql/internal/plugin"
	"github.com/hanpama/minigql/internal/resolver"
)

func TestWrap_AssemblesParams(t *testing.T) {
	var got resolver.Params
	h := func(ctx context.Context, p resolver.Params) (any, error) {
		got = p
		return "ok", nil
	}
	meta := Meta{Declaration: "createUser(input: CreateUserInput!):User", ReturnType: "User", ArgumentType: "CreateUserInput!"}
	params := map[string]plugin.Value{
		"db": plugin.Static("conn"),
		"who": plugin.Produce(func(ctx context.Context, a resolver.Args) (any, error) {
			return a.Context, nil
		}),
	}
	fn := Wrap("createUser", h, meta, params)

	args := map[string]any{"input": map[string]any{"name": "ann"}}
	info := resolver.Info{FieldName: "createUser", ParentType: "Mutation", Operation: resolver.Write}
	res, err := fn(context.Background(), "parent", args, "reqctx", info)
	require.NoError(t, err)
	require.Equal(t, "ok", res)

	require.Equal(t, args, got.Variables)
	require.Equal(t, "parent", got.ParentContext)
	require.Equal(t, "reqctx", got.Context)
	require.True(t, got.HasInput)
	require.Equal(t, map[string]any{"name": "ann"}, got.InputMap())
	require.Equal(t, info, got.Info)
	require.Equal(t, meta.Declaration, got.Schema)
	require.Equal(t, "User", got.ReturnType)
	require.Equal(t, "CreateUserInput!", got.ArgumentType)
	require.Equal(t, map[string]any{"db": "conn", "who": "reqctx"}, got.Injected)
}

func TestWrap_NoInput(t *testing.T) {
	var got resolver.Params
	fn := Wrap("me", func(ctx context.Context, p resolver.Params) (any, error) { got = p; return nil, nil }, Meta{}, nil)
	_, err := fn(context.Background(), nil, map[string]any{}, nil, resolver.Info{})
	require.NoError(t, err)
	require.False(t, got.HasInput)
	require.Nil(t, got.Input)
	require.Nil(t, got.InputMap())
	require.Empty(t, got.Injected)
}

func TestWrap_ErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	fn := Wrap("x", func(ctx context.Context, p resolver.Params) (any, error) { return nil, boom }, Meta{}, nil)
	_, err := fn(context.Background(), nil, nil, nil, resolver.Info{})
	require.Same(t, boom, err)
}

func TestWrap_PublishesEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	var started []string
	var finished []events.ResolverFinish
	unsubStart := eventbus.Subscribe(func(ctx context.Context, e events.ResolverStart) { started = append(started, e.Name) })
	defer unsubStart()
	unsubFinish := eventbus.Subscribe(func(ctx context.Context, e events.ResolverFinish) { finished = append(finished, e) })
	defer unsubFinish()

	boom := errors.New("boom")
	fn := Wrap("deleteUser", func(ctx context.Context, p resolver.Params) (any, error) { return nil, boom }, Meta{}, nil)
	_, _ = fn(context.Background(), nil, nil, nil, resolver.Info{Operation: resolver.Write})

	require.Equal(t, []string{"deleteUser"}, started)
	require.Len(t, finished, 1)
	require.Equal(t, "Mutation", finished[0].Operation)
	require.ErrorIs(t, finished[0].Err, boom)
}
