package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/app/config"
	infraConfig "github.com/YoshitsuguKoike/deepatch/internal/infra/config"
	"github.com/YoshitsuguKoike/deepatch/internal/infrastructure/di"
	"github.com/YoshitsuguKoike/deepatch/internal/interface/cli/version"
)

// skipConfig marks commands that must work without a loadable configuration
const skipConfig = "skip-config"

// appContext is shared by every subcommand of one invocation
type appContext struct {
	fs     afero.Fs
	home   string
	level  string
	paths  app.Paths
	cfg    *config.AppConfig
	logger app.Logger
}

// container builds the dependency graph from the loaded configuration
func (a *appContext) container() (*di.Container, error) {
	if a.cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return di.NewContainer(di.Config{App: a.cfg, Paths: a.paths, Logger: a.logger})
}

func NewRoot() *cobra.Command {
	return newRoot(afero.NewOsFs())
}

func newRoot(fs afero.Fs) *cobra.Command {
	a := &appContext{fs: fs}

	cmd := &cobra.Command{
		Use:          "deepatch",
		Short:        "Turn change requests into pull requests",
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			home := a.home
			if home == "" {
				home = app.ResolveHome()
			}
			a.paths = app.ResolvePaths(home)

			// Priority for the log level: --log-level > DEEPATCH_LOG_LEVEL > setting.json > info
			level := "info"
			if _, ok := c.Annotations[skipConfig]; !ok {
				cfg, err := infraConfig.Load(a.fs, a.paths)
				if err != nil {
					return err
				}
				a.cfg = cfg
				level = cfg.StderrLevel()
			}
			if a.level != "" {
				level = a.level
			}
			a.logger = InitializeLoggers(NewStderrLogger(level))
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&a.home, "home", "", "deepatch home directory (default $DEEPATCH_HOME or ~/.deepatch)")
	cmd.PersistentFlags().StringVar(&a.level, "log-level", "", "stderr log level: debug, info, warn, error")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newMCPCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	cmd.AddCommand(newInitCmd(a))

	versionCmd := version.NewCommand()
	versionCmd.Annotations = map[string]string{skipConfig: "true"}
	cmd.AddCommand(versionCmd)
	return cmd
}
