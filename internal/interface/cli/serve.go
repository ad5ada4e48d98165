package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpcontroller "github.com/YoshitsuguKoike/deepatch/internal/adapter/controller/http"
)

func newServeCmd(a *appContext) *cobra.Command {
	var (
		addr            string
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /code with a Server-Sent Events progress stream",
		Long: `Start the HTTP service.

  POST /code       {"repo_url": "...", "prompt": "..."} streams progress as SSE
  GET  /health     service status and configured providers
  GET  /runs       recent runs from history
  GET  /runs/{id}  one run with its provider attempts`,
		RunE: func(c *cobra.Command, _ []string) error {
			container, err := a.container()
			if err != nil {
				return err
			}
			defer container.Close()

			if addr == "" {
				addr = a.cfg.ListenAddr()
			}
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := httpcontroller.NewServer(container.Orchestrator(), container.RunRepository(), a.cfg.Sandbox(), a.logger).
				WithProviderPool(container.ProviderPool())
			return srv.ListenAndServe(ctx, addr, shutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from setting.json, :8080)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "how long to wait for in-flight requests on shutdown")
	return cmd
}
