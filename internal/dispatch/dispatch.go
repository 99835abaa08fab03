// Package dispatch wraps resolver handlers behind the uniform resolver.Func
// signature.
package dispatch

import (
	"context"
	"time"

	eventbus "github.com/hanpama/minigql/internal/eventbus"
	events "github.com/hanpama/minigql/internal/events"
	"github.com/hanpama/minigql/internal/plugin"
	"github.com/hanpama/minigql/internal/resolver"
)

// Meta is the inferred shape of the wrapped resolver.
type Meta struct {
	// Declaration is the rendered field declaration, e.g. "user(input: IdInput!):User".
	Declaration  string
	ReturnType   string
	ArgumentType string
}

// Wrap returns a resolver.Func that assembles resolver.Params and calls
// handler. Errors from injected producers or from handler are returned
// unchanged.
func Wrap(name string, handler resolver.Handler, meta Meta, params map[string]plugin.Value) resolver.Func {
	return func(ctx context.Context, parent any, args map[string]any, reqCtx any, info resolver.Info) (any, error) {
		a := resolver.Args{
			Variables:     args,
			ParentContext: parent,
			Context:       reqCtx,
			Info:          info,
			Schema:        meta.Declaration,
			ReturnType:    meta.ReturnType,
			ArgumentType:  meta.ArgumentType,
		}
		if in, ok := args["input"]; ok {
			a.Input, a.HasInput = in, true
		}
		injected, err := plugin.Inject(ctx, params, a)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		eventbus.Publish(ctx, events.ResolverStart{Name: name, Operation: info.Operation.String()})
		res, err := handler(ctx, resolver.Params{Args: a, Injected: injected})
		eventbus.Publish(ctx, events.ResolverFinish{
			Name:      name,
			Operation: info.Operation.String(),
			Err:       err,
			Duration:  time.Since(start),
		})
		return res, err
	}
}
