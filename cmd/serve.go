package main

import (
	"context"
	"fmt"

	"github.com/tasteos/cookmode/internal/devserver"
	"github.com/urfave/cli/v3"
)

// Serve runs the bundled reference server with the built-in recipes.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	port := cmd.Int("port")
	if port == 0 {
		port = r.config.Server.Port
	}

	engine := devserver.NewEngine(r.logger)
	server := devserver.NewServer(engine, r.logger)

	addr := fmt.Sprintf("%s:%d", host, port)
	r.logger.Info("starting reference server", "addr", addr)
	r.writePlain("Serving on http://%s/api/v1 (%d recipes)\n", addr, len(engine.Recipes()))

	return server.ListenAndServe(addr)
}
