// Package plugin folds extension descriptors into the resolver set, the
// injected parameter map, the per-request context provider, extra schema text
// and startup hooks.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/minigql/internal/resolver"
)

// ContextProvider builds the per-request context value handed to resolvers.
type ContextProvider func(ctx context.Context, r *http.Request) (any, error)

// PreStartFunc runs before the server starts serving.
type PreStartFunc func(ctx context.Context) error

// Producer computes an injected value at request time. A map result is
// flattened into the injected set.
type Producer func(ctx context.Context, args resolver.Args) (any, error)

// Value is either a static value or a Producer.
type Value struct {
	static   any
	producer Producer
}

// Static wraps a plain value.
func Static(v any) Value { return Value{static: v} }

// Produce wraps a request-time producer.
func Produce(p Producer) Value { return Value{producer: p} }

// IsProducer reports whether v must be evaluated per request.
func (v Value) IsProducer() bool { return v.producer != nil }

// Static returns the wrapped static value.
func (v Value) Static() any { return v.static }

// Producer returns the wrapped producer, or nil for static values.
func (v Value) Producer() Producer { return v.producer }

// Descriptor is one extension unit.
type Descriptor struct {
	Name           string
	Parameters     map[string]Value
	Resolvers      []resolver.Descriptor
	Context        ContextProvider
	SchemaFragment string
	PreStart       PreStartFunc
}

// ErrPreStart is wrapped by every pre-start hook failure.
var ErrPreStart = errors.New("plugin pre-start failed")

// Merged is the folded view over a plugin list.
type Merged struct {
	Resolvers  []resolver.Descriptor
	Parameters map[string]Value
	// Context is the first provider found in plugin order, or nil.
	Context ContextProvider
	// ContextPlugin names the plugin that supplied Context.
	ContextPlugin string
	Fragments     []string
	hooks         []namedHook
}

type namedHook struct {
	plugin string
	fn     PreStartFunc
}

// Merge appends plugin resolvers after base in plugin order and folds the
// parameter maps with later plugins overwriting earlier keys. With no plugins
// base is returned as is.
func Merge(base []resolver.Descriptor, plugins []Descriptor) *Merged {
	m := &Merged{Resolvers: base, Parameters: map[string]Value{}}
	if len(plugins) == 0 {
		return m
	}
	extra := lo.FlatMap(plugins, func(p Descriptor, _ int) []resolver.Descriptor { return p.Resolvers })
	if len(extra) > 0 {
		m.Resolvers = append(append(make([]resolver.Descriptor, 0, len(base)+len(extra)), base...), extra...)
	}
	for _, p := range plugins {
		for k, v := range p.Parameters {
			m.Parameters[k] = v
		}
		if m.Context == nil && p.Context != nil {
			m.Context = p.Context
			m.ContextPlugin = p.Name
		}
		if p.SchemaFragment != "" {
			m.Fragments = append(m.Fragments, p.SchemaFragment)
		}
		if p.PreStart != nil {
			m.hooks = append(m.hooks, namedHook{plugin: p.Name, fn: p.PreStart})
		}
	}
	return m
}

// HookCount returns how many pre-start hooks were gathered.
func (m *Merged) HookCount() int { return len(m.hooks) }

// RunPreStart runs every gathered hook concurrently and waits for all of them.
// The first failure is returned wrapped in ErrPreStart. No timeout is applied
// beyond ctx.
func (m *Merged) RunPreStart(ctx context.Context) error {
	if len(m.hooks) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range m.hooks {
		g.Go(func() error {
			if err := h.fn(gctx); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrPreStart, h.plugin, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Inject evaluates the merged parameters for one invocation. Static values
// are copied first, then producers run in key order and are called with args;
// a map result is flattened, anything else is stored under the producer's key.
func Inject(ctx context.Context, params map[string]Value, args resolver.Args) (map[string]any, error) {
	out := make(map[string]any, len(params))
	keys := lo.Keys(params)
	sort.Strings(keys)
	var producers []string
	for _, k := range keys {
		if params[k].IsProducer() {
			producers = append(producers, k)
			continue
		}
		out[k] = params[k].Static()
	}
	for _, k := range producers {
		v := params[k]
		res, err := v.Producer()(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("inject %q: %w", k, err)
		}
		if sub, ok := res.(map[string]any); ok {
			for sk, sv := range sub {
				out[sk] = sv
			}
			continue
		}
		out[k] = res
	}
	return out, nil
}
