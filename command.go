package minigql

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/hanpama/minigql/internal/config"
	"github.com/hanpama/minigql/internal/maprt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Command returns the CLI: serve, schema and query.
func (a *App) Command() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "minigql",
		Short:         "Serve a GraphQL API inferred from resolver names",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv(config.EnvPrefix + "CONFIG")
			}
			if configPath == "" && a.cfgSet {
				return nil
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.AddCommand(a.serveCommand(), a.schemaCommand(), a.queryCommand())
	return root
}

func (a *App) serveCommand() *cobra.Command {
	var (
		host       string
		port       int
		path       string
		pretty     bool
		playground bool
		schemas    []string
		services   string
		otlp       string
	)
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Start the GraphQL HTTP server",
		Long: `Start an HTTP server that serves the generated schema.

The server exposes:
  - GraphQL endpoint at /graphql (GET and POST)
  - GraphQL Playground at /graphql for browsers
  - Health check at /healthz

Examples:
  # Start on the default port, or $PORT when set
  minigql serve

  # Start on a custom port with an extra schema file
  minigql serve --port 3000 --schema types.graphql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if f.Changed("host") {
				a.cfg.Server.Host = host
			}
			if f.Changed("port") {
				a.cfg.Server.Port = port
			}
			if f.Changed("path") {
				a.cfg.Server.Path = path
			}
			if f.Changed("pretty") {
				a.cfg.Server.Pretty = pretty
			}
			if f.Changed("playground") {
				a.cfg.Server.Playground = playground
			}
			if f.Changed("otlp-endpoint") {
				a.cfg.Telemetry.Endpoint = otlp
			}
			a.applyCommonFlags(cmd, schemas, services)

			if a.logger == nil {
				l := a.newLogger(cmd.ErrOrStderr())
				a.logger = &l
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Start(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&host, "host", "", "Host to listen on")
	f.IntVarP(&port, "port", "p", config.DefaultPort, "Port to listen on")
	f.StringVar(&path, "path", "/graphql", "GraphQL endpoint path")
	f.BoolVar(&pretty, "pretty", false, "Pretty-print JSON responses")
	f.BoolVar(&playground, "playground", true, "Serve the GraphQL playground")
	f.StringVar(&otlp, "otlp-endpoint", "", "OTLP collector endpoint")
	addCommonFlags(cmd, &schemas, &services)
	return cmd
}

func (a *App) schemaCommand() *cobra.Command {
	var (
		check    bool
		out      string
		schemas  []string
		services string
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the generated GraphQL schema",
		Long: `Print the schema text the server would serve.

With --check the schema is validated and a one-line summary is printed
instead of the schema text.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyCommonFlags(cmd, schemas, services)
			built, err := a.Build()
			if err != nil {
				return err
			}
			if check {
				fmt.Fprintf(cmd.OutOrStdout(), "schema ok: %d queries, %d mutations\n",
					len(built.Generated.QueryFields), len(built.Generated.MutationFields))
				return nil
			}
			if out != "" {
				return os.WriteFile(out, []byte(built.SDL), 0o644)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), built.SDL)
			return err
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Validate the schema only")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the schema to a file")
	addCommonFlags(cmd, &schemas, &services)
	return cmd
}

func (a *App) queryCommand() *cobra.Command {
	var (
		variables string
		operation string
		raw       bool
		schemas   []string
		services  string
	)
	cmd := &cobra.Command{
		Use:     "query <query>",
		Aliases: []string{"graphql"},
		Short:   "Execute a GraphQL query or mutation in-process",
		Long: `Execute a GraphQL query or mutation without starting the server.

Examples:
  minigql query '{ users { id name } }'
  echo '{ users { id } }' | minigql query
  minigql query -v '{"in":{"id":"1"}}' 'query($in: IdInput!) { userById(input: $in) { name } }'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyCommonFlags(cmd, schemas, services)

			query := ""
			if len(args) == 1 {
				query = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				query = strings.TrimSpace(string(data))
			}
			if query == "" {
				return fmt.Errorf("no query provided (pass as argument or pipe to stdin)")
			}

			var vars map[string]any
			if variables != "" {
				if err := json.Unmarshal([]byte(variables), &vars); err != nil {
					return fmt.Errorf("invalid variables JSON: %w", err)
				}
			}

			b, err := a.Exec(cmd.Context(), query, operation, vars)
			if err != nil {
				return err
			}
			if raw {
				b = append(b, '\n')
			} else {
				b = pretty.Pretty(b)
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().StringVarP(&variables, "variables", "v", "", "Variables as JSON")
	cmd.Flags().StringVarP(&operation, "operation", "o", "", "Operation name")
	cmd.Flags().BoolVar(&raw, "json", false, "Print compact JSON")
	addCommonFlags(cmd, &schemas, &services)
	return cmd
}

// Exec builds the app, runs pre-start hooks and executes one operation. The
// plugin context provider receives a synthetic POST request.
func (a *App) Exec(ctx context.Context, query, operation string, vars map[string]any) ([]byte, error) {
	built, err := a.Build()
	if err != nil {
		return nil, err
	}
	if err := a.runPreStart(ctx, built.Merged); err != nil {
		return nil, err
	}
	if provide := built.Merged.Context; provide != nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Server.Path, nil)
		if err != nil {
			return nil, err
		}
		v, err := provide(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		ctx = maprt.WithRequestContext(ctx, v)
	}
	res := built.Executor.Execute(ctx, query, operation, vars)
	return json.Marshal(res)
}

func addCommonFlags(cmd *cobra.Command, schemas *[]string, services *string) {
	cmd.Flags().StringSliceVar(schemas, "schema", nil, "Base schema file (repeatable)")
	cmd.Flags().StringVar(services, "services", "", "Services file (JSON or YAML)")
}

func (a *App) applyCommonFlags(cmd *cobra.Command, schemas []string, services string) {
	if cmd.Flags().Changed("schema") {
		a.cfg.Schema.Files = append(a.cfg.Schema.Files, schemas...)
	}
	if cmd.Flags().Changed("services") {
		a.cfg.Services = services
	}
}
