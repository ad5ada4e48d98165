package cli

import (
	"github.com/spf13/cobra"

	mcpcontroller "github.com/YoshitsuguKoike/deepatch/internal/adapter/controller/mcp"
)

func newMCPCmd(a *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve propose_patch and list_runs over MCP on stdio",
		Long: `Run deepatch as a Model Context Protocol server on stdin/stdout.
Logs go to stderr so they never corrupt the protocol stream.`,
		RunE: func(c *cobra.Command, _ []string) error {
			container, err := a.container()
			if err != nil {
				return err
			}
			defer container.Close()

			s := mcpcontroller.NewServer(container.Orchestrator(), container.RunRepository(), a.logger)
			return mcpcontroller.ServeStdio(s)
		},
	}
}
