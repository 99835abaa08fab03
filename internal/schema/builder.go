package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/hanpama/minigql/internal/dispatch"
	"github.com/hanpama/minigql/internal/naming"
	"github.com/hanpama/minigql/internal/plugin"
	"github.com/hanpama/minigql/internal/resolver"
)

// Build merges plugins into resolvers and runs inference over the result.
func Build(resolvers []resolver.Descriptor, baseSchema string, plugins ...plugin.Descriptor) *Generated {
	return BuildMerged(baseSchema, plugin.Merge(resolvers, plugins))
}

// BuildMerged runs inference over an already merged plugin set. Argument
// types are looked up in the base schema and the plugin fragments.
func BuildMerged(baseSchema string, m *plugin.Merged) *Generated {
	known := baseSchema
	if len(m.Fragments) > 0 {
		known += "\n" + strings.Join(m.Fragments, "\n")
	}

	g := &Generated{
		Query:     make(map[string]resolver.Func),
		Mutation:  make(map[string]resolver.Func),
		base:      baseSchema,
		fragments: m.Fragments,
	}
	for _, d := range m.Resolvers {
		decl := FieldDeclaration{
			Name:         d.Name,
			Category:     naming.Category(d.Name, d.Category),
			ArgumentType: naming.ArgumentType(d.Name, d.ArgumentType, known),
			ReturnType:   naming.ReturnType(d.Name, d.ReturnType),
		}
		fn := dispatch.Wrap(d.Name, handlerOf(d), dispatch.Meta{
			Declaration:  decl.String(),
			ReturnType:   decl.ReturnType,
			ArgumentType: decl.ArgumentType,
		}, m.Parameters)

		if decl.Category == resolver.Write {
			g.MutationFields = append(g.MutationFields, decl)
			g.Mutation[d.Name] = fn
		} else {
			g.QueryFields = append(g.QueryFields, decl)
			g.Query[d.Name] = fn
		}
	}
	g.SchemaText = concat(baseSchema, g.QueryFields, g.MutationFields, m.Fragments, false)
	return g
}

func handlerOf(d resolver.Descriptor) resolver.Handler {
	if d.Handler != nil {
		return d.Handler
	}
	return func(context.Context, resolver.Params) (any, error) {
		return nil, fmt.Errorf("resolver %q has no handler", d.Name)
	}
}
