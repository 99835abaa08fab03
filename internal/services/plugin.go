package services

import (
	"github.com/hanpama/minigql/internal/plugin"
	"github.com/hanpama/minigql/internal/resolver"
)

// Plugin injects r as the "services" parameter and checks the service URLs
// before the server starts.
func Plugin(r *Registry) plugin.Descriptor {
	return plugin.Descriptor{
		Name:       "services",
		Parameters: map[string]plugin.Value{ParamName: plugin.Static(r)},
		PreStart:   r.Validate,
	}
}

// FromParams returns the registry injected into a handler.
func FromParams(p resolver.Params) (*Registry, bool) {
	v, ok := p.Get(ParamName)
	if !ok {
		return nil, false
	}
	r, ok := v.(*Registry)
	return r, ok
}
