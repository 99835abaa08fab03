// Command minigql runs a demo API over an in-memory user and post store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hanpama/minigql"
)

func main() {
	store := NewStore()
	app := minigql.New(
		minigql.WithSchema(demoSchema),
		minigql.WithResolvers(store.Resolvers()...),
		minigql.WithPlugins(store.Plugin()),
	)
	if err := app.Command().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
