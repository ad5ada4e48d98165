package environment

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

// Sandbox kinds accepted in setting.json
const (
	KindDocker = "docker"
	KindPodman = "podman"
	KindLocal  = "local"
)

// Options selects and configures a sandbox backend
type Options struct {
	Kind  string
	Image string
	Root  string // local only
}

// New builds the environment gateway for opts.Kind
func New(opts Options, logger app.Logger) (output.EnvironmentGateway, error) {
	switch opts.Kind {
	case KindDocker, KindPodman:
		return NewDockerGateway(opts.Kind, opts.Image, OSExecutor{}, logger), nil
	case KindLocal:
		return NewLocalGateway(afero.NewOsFs(), opts.Root, OSExecutor{}, logger), nil
	default:
		return nil, fmt.Errorf("unknown sandbox kind: %q", opts.Kind)
	}
}
