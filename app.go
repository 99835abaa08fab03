// Package minigql serves a GraphQL API whose schema is inferred from resolver
// names. Register resolvers and plugins on an App, then run its command tree
// or call Start directly.
package minigql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hanpama/minigql/internal/config"
	eventbus "github.com/hanpama/minigql/internal/eventbus"
	events "github.com/hanpama/minigql/internal/events"
	executor "github.com/hanpama/minigql/internal/executor"
	language "github.com/hanpama/minigql/internal/language"
	"github.com/hanpama/minigql/internal/logging"
	"github.com/hanpama/minigql/internal/maprt"
	"github.com/hanpama/minigql/internal/naming"
	"github.com/hanpama/minigql/internal/otel"
	"github.com/hanpama/minigql/internal/plugin"
	"github.com/hanpama/minigql/internal/resolver"
	"github.com/hanpama/minigql/internal/schema"
	"github.com/hanpama/minigql/internal/server"
	"github.com/hanpama/minigql/internal/services"
)

// DefaultBaseSchema declares the input type that "ById" resolvers take. It is
// prepended to the served schema unless the base schema declares it already.
const DefaultBaseSchema = "input IdInput {\n  id: ID!\n}\n"

const shutdownTimeout = 5 * time.Second

// App holds everything needed to build and serve one schema.
type App struct {
	resolvers []resolver.Descriptor
	plugins   []plugin.Descriptor
	schemas   []string
	cfg       *config.Config
	cfgSet    bool
	logger    *zerolog.Logger
}

type Option func(*App)

// WithResolvers appends resolver descriptors.
func WithResolvers(rs ...resolver.Descriptor) Option {
	return func(a *App) { a.resolvers = append(a.resolvers, rs...) }
}

// WithPlugins appends plugins in merge order.
func WithPlugins(ps ...plugin.Descriptor) Option {
	return func(a *App) { a.plugins = append(a.plugins, ps...) }
}

// WithSchema appends SDL to the base schema. Files listed in the config
// follow the inline SDL.
func WithSchema(sdl string) Option {
	return func(a *App) { a.schemas = append(a.schemas, sdl) }
}

// WithConfig replaces the default configuration. The command tree then
// only loads a config file when one is named.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) { a.cfg, a.cfgSet = cfg, true }
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l zerolog.Logger) Option { return func(a *App) { a.logger = &l } }

func New(opts ...Option) *App {
	a := &App{cfg: config.Default()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Config returns the active configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Built is the result of one Build.
type Built struct {
	Generated *schema.Generated
	Merged    *plugin.Merged
	Schema    *language.Schema
	Executor  *executor.Executor
	// SDL is the full served schema text.
	SDL string
}

// Build merges plugins, runs inference and loads the executable schema.
// Pre-start hooks are not run.
func (a *App) Build() (*Built, error) {
	base, err := a.baseSchema()
	if err != nil {
		return nil, err
	}
	plugins, err := a.allPlugins()
	if err != nil {
		return nil, err
	}
	merged := plugin.Merge(a.resolvers, plugins)
	gen := schema.BuildMerged(base, merged)

	prelude := ""
	if !declaresIDInput(base, merged.Fragments) {
		prelude = DefaultBaseSchema
	}
	s, err := language.LoadSchema(prelude, gen.Executable())
	if err != nil {
		return nil, fmt.Errorf("load generated schema: %w", err)
	}
	exec := executor.NewExecutor(maprt.New(gen), s,
		executor.WithIntrospection(a.cfg.Server.Introspection),
		executor.WithMaxParallel(a.cfg.Server.MaxParallel),
	)
	return &Built{
		Generated: gen,
		Merged:    merged,
		Schema:    s,
		Executor:  exec,
		SDL:       prelude + gen.SchemaText,
	}, nil
}

func declaresIDInput(base string, fragments []string) bool {
	decl := "input " + naming.IDInputType
	if strings.Contains(base, decl) {
		return true
	}
	for _, f := range fragments {
		if strings.Contains(f, decl) {
			return true
		}
	}
	return false
}

func (a *App) baseSchema() (string, error) {
	parts := append([]string{}, a.schemas...)
	for _, path := range a.cfg.Schema.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read schema file: %w", err)
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n"), nil
}

func (a *App) allPlugins() ([]plugin.Descriptor, error) {
	if a.cfg.Services == "" {
		return a.plugins, nil
	}
	reg, err := services.Load(a.cfg.Services)
	if err != nil {
		return nil, err
	}
	return append([]plugin.Descriptor{services.Plugin(reg)}, a.plugins...), nil
}

// Logger returns the configured logger.
func (a *App) Logger() zerolog.Logger {
	if a.logger != nil {
		return *a.logger
	}
	return a.newLogger(os.Stderr)
}

func (a *App) newLogger(out io.Writer) zerolog.Logger {
	level, err := logging.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		level = logging.InfoLevel
	}
	format, err := logging.ParseFormat(a.cfg.Log.Format)
	if err != nil {
		format = logging.FormatConsole
	}
	return logging.New(out, format, logging.WithLevel(level))
}

// Handler serves the GraphQL endpoint at the configured path and a health
// check at /healthz.
func (a *App) Handler(b *Built) http.Handler {
	opts := []server.Option{
		server.WithTimeout(a.cfg.Server.Timeout),
		server.WithMaxBodyBytes(a.cfg.Server.MaxBodyBytes),
		server.WithPlayground(a.cfg.Server.Playground),
		server.WithContext(b.Merged.Context),
	}
	if a.cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(a.cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(a.cfg.Server.CORSOrigins...))
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Server.Path, server.New(b.Executor, opts...))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	return mux
}

// Start listens on the configured address and serves until ctx is done.
func (a *App) Start(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve builds the schema, runs pre-start hooks and serves on ln until ctx
// is done. ln is closed on return.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	log := a.Logger()

	bus := eventbus.New()
	ctx = eventbus.NewContext(ctx, bus)
	defer logging.Subscribe(bus, log)()

	shutdownTracing, err := otel.Setup(ctx, bus, a.cfg.Telemetry.Endpoint, a.cfg.Telemetry.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	built, err := a.Build()
	if err != nil {
		return err
	}
	log.Info().
		Int("queries", len(built.Generated.QueryFields)).
		Int("mutations", len(built.Generated.MutationFields)).
		Msg("schema built")

	if err := a.runPreStart(ctx, built.Merged); err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           a.Handler(built),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return eventbus.NewContext(logging.WithContext(context.Background(), log), bus)
		},
	}
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Serve(ln) }()
	log.Info().Str("addr", ln.Addr().String()).Str("path", a.cfg.Server.Path).Msg("server listening")

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (a *App) runPreStart(ctx context.Context, m *plugin.Merged) error {
	start := time.Now()
	err := m.RunPreStart(ctx)
	eventbus.Publish(ctx, events.PreStartFinish{Hooks: m.HookCount(), Err: err, Duration: time.Since(start)})
	return err
}
