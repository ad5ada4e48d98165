package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	infraConfig "github.com/YoshitsuguKoike/deepatch/internal/infra/config"
)

func newInitCmd(a *appContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create the deepatch home with default setting.json and providers.yaml",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(c *cobra.Command, _ []string) error {
			res, err := infraConfig.WriteDefaults(a.fs, a.paths, force)
			if err != nil {
				return err
			}
			w := c.OutOrStdout()
			for _, p := range res.Created {
				fmt.Fprintf(w, "created  %s\n", p)
			}
			for _, p := range res.Skipped {
				fmt.Fprintf(w, "exists   %s (use --force to overwrite)\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}
