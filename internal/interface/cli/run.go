package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deepatch/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deepatch/internal/application/dto"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

func newRunCmd(a *appContext) *cobra.Command {
	var (
		sse       bool
		jsonOut   bool
		verbose   bool
		requestID string
	)

	cmd := &cobra.Command{
		Use:   "run <repo-url> <prompt...>",
		Short: "Run one change request and print its progress",
		Example: `  deepatch run https://github.com/owner/repo "add error handling to the API client"
  deepatch run git@github.com:owner/repo.git add tests --sse`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			if sse && jsonOut {
				return fmt.Errorf("--sse and --json are mutually exclusive")
			}
			container, err := a.container()
			if err != nil {
				return err
			}
			defer container.Close()

			var p output.EventPresenter
			w := c.OutOrStdout()
			switch {
			case sse:
				p = presenter.NewSSEPresenter(w)
			case jsonOut:
				p = presenter.NewJSONPresenter(w)
			default:
				p = presenter.NewTextPresenter(w, verbose)
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := container.Orchestrator().Run(ctx, dto.RunInput{
				RepositoryURL: args[0],
				Prompt:        strings.Join(args[1:], " "),
				RequestID:     requestID,
			}, p)
			if !out.Success {
				return fmt.Errorf("request %s failed", out.RequestID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sse, "sse", false, "print Server-Sent Events frames")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print one JSON event per line")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include stage timings in the text summary")
	cmd.Flags().StringVar(&requestID, "request-id", "", "use this ULID as the request id")
	return cmd
}
