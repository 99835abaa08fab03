// Package services calls remote services over HTTP. A services file maps each
// service name to its base URL and exposed methods; the registry is injected
// into every resolver as the "services" parameter.
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	eventbus "github.com/hanpama/minigql/internal/eventbus"
	events "github.com/hanpama/minigql/internal/events"
	reqid "github.com/hanpama/minigql/internal/reqid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParamName is the injected parameter key.
const ParamName = "services"

// Endpoint is where a service receives calls.
const Endpoint = "/service"

// Definition is one services file entry.
type Definition struct {
	URL     string   `json:"url" yaml:"url"`
	Methods []string `json:"methods" yaml:"methods"`
}

// Request is the body POSTed to a service.
type Request struct {
	ServiceMethod string `json:"serviceMethod"`
	Input         any    `json:"input"`
}

// Registry holds the configured services.
type Registry struct {
	client   *http.Client
	services map[string]*Service
}

// Service is a remote service with a fixed method set.
type Service struct {
	Name    string
	URL     string
	methods map[string]struct{}
	client  *http.Client
}

type Option func(*Registry)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option { return func(r *Registry) { r.client = c } }

// New builds a registry from definitions.
func New(defs map[string]Definition, opts ...Option) *Registry {
	r := &Registry{
		client:   &http.Client{Timeout: 30 * time.Second},
		services: make(map[string]*Service, len(defs)),
	}
	for _, o := range opts {
		o(r)
	}
	for name, d := range defs {
		s := &Service{Name: name, URL: strings.TrimRight(d.URL, "/"), methods: map[string]struct{}{}, client: r.client}
		for _, m := range d.Methods {
			s.methods[m] = struct{}{}
		}
		r.services[name] = s
	}
	return r
}

// Load reads a services file. Files ending in .yaml or .yml are YAML, all
// others JSON.
func Load(path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}
	defs := map[string]Definition{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &defs)
	default:
		err = json.Unmarshal(data, &defs)
	}
	if err != nil {
		return nil, fmt.Errorf("parse services file %s: %w", path, err)
	}
	return New(defs, opts...), nil
}

// Names lists the configured services in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.services))
	for n := range r.services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Service returns the named service.
func (r *Registry) Service(name string) (*Service, bool) {
	s, ok := r.services[name]
	return s, ok
}

// Call invokes method on the named service.
func (r *Registry) Call(ctx context.Context, service, method string, input any) (any, error) {
	s, ok := r.services[service]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", service)
	}
	return s.Call(ctx, method, input)
}

// Validate checks that every service has an absolute http(s) URL.
func (r *Registry) Validate(context.Context) error {
	for _, name := range r.Names() {
		u, err := url.Parse(r.services[name].URL)
		if err != nil {
			return fmt.Errorf("service %s: %w", name, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("service %s: url %q must be an absolute http(s) URL", name, r.services[name].URL)
		}
	}
	return nil
}

// Methods lists the exposed methods in sorted order.
func (s *Service) Methods() []string {
	out := make([]string, 0, len(s.methods))
	for m := range s.methods {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Call POSTs {"serviceMethod", "input"} to the service endpoint and decodes
// the JSON reply.
func (s *Service) Call(ctx context.Context, method string, input any) (out any, err error) {
	if _, ok := s.methods[method]; !ok {
		return nil, fmt.Errorf("service %s has no method %q", s.Name, method)
	}
	target := s.URL + Endpoint

	start := time.Now()
	status := 0
	eventbus.Publish(ctx, events.ServiceCallStart{Service: s.Name, Method: method, Target: target})
	defer func() {
		eventbus.Publish(ctx, events.ServiceCallFinish{
			Service:  s.Name,
			Method:   method,
			Target:   target,
			Status:   status,
			Err:      err,
			Duration: time.Since(start),
		})
	}()

	body, err := json.Marshal(Request{ServiceMethod: method, Input: input})
	if err != nil {
		return nil, fmt.Errorf("encode %s.%s request: %w", s.Name, method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if rid, ok := reqid.FromContext(ctx); ok {
		req.Header.Set(reqid.Header, rid)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", s.Name, method, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s.%s response: %w", s.Name, method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("call %s.%s: unexpected status %d", s.Name, method, resp.StatusCode)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s.%s response: %w", s.Name, method, err)
	}
	return out, nil
}
