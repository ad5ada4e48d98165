package environment

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/pkg/shell"
)

const (
	containerWorkDir = "/workspace"
	containerPrefix  = "deepatch-"
	abandonTimeout   = 30 * time.Second
)

// DockerGateway runs each sandbox as a detached container driven through the
// docker (or podman) CLI.
type DockerGateway struct {
	bin    string
	image  string
	exec   Executor
	logger app.Logger
}

// NewDockerGateway creates a gateway. bin is "docker" or "podman".
func NewDockerGateway(bin, image string, executor Executor, logger app.Logger) *DockerGateway {
	if bin == "" {
		bin = "docker"
	}
	if image == "" {
		image = "alpine/git:latest"
	}
	if executor == nil {
		executor = OSExecutor{}
	}
	if logger == nil {
		logger = app.NopLogger()
	}
	return &DockerGateway{bin: bin, image: image, exec: executor, logger: logger}
}

func (g *DockerGateway) docker(ctx context.Context, cmd Command) (*Output, error) {
	cmd.Name = g.bin
	return g.exec.Execute(ctx, cmd)
}

// Acquire starts a long-lived container that idles until Release. The
// container is named up front so a run interrupted mid-start can still be
// removed.
func (g *DockerGateway) Acquire(ctx context.Context) (*output.Environment, error) {
	name := containerPrefix + uuid.NewString()
	out, err := g.docker(ctx, Command{Args: []string{
		"run", "-d", "--rm",
		"--name", name,
		"-w", containerWorkDir,
		"-e", "GIT_TERMINAL_PROMPT=0",
		"--entrypoint", "sleep",
		g.image, "infinity",
	}})
	if err != nil {
		g.abandon(ctx, name)
		return nil, fmt.Errorf("start container: %w", err)
	}
	if out.ExitCode != 0 {
		g.abandon(ctx, name)
		return nil, fmt.Errorf("start container: exit %d: %s", out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	id := strings.TrimSpace(string(out.Stdout))
	if id == "" {
		g.abandon(ctx, name)
		return nil, fmt.Errorf("start container: no container id returned")
	}
	g.logger.Debug("started container %s (%s) from %s", name, shortID(id), g.image)
	return &output.Environment{ID: id, WorkDir: containerWorkDir}, nil
}

// abandon removes a container whose start did not complete. It runs detached
// from ctx since ctx is usually what ended the start.
func (g *DockerGateway) abandon(ctx context.Context, name string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()
	out, err := g.docker(cctx, Command{Args: []string{"rm", "-f", name}})
	switch {
	case err != nil:
		g.logger.Warn("remove unstarted container %s: %v", name, err)
	case out.ExitCode != 0:
		g.logger.Debug("remove unstarted container %s: exit %d", name, out.ExitCode)
	}
}

func (g *DockerGateway) RunCommand(ctx context.Context, env *output.Environment, command string) (*output.CommandResult, error) {
	out, err := g.docker(ctx, Command{Args: []string{"exec", "-w", env.WorkDir, env.ID, "sh", "-c", command}})
	if err != nil {
		return nil, fmt.Errorf("exec in %s: %w", shortID(env.ID), err)
	}
	return &output.CommandResult{ExitCode: out.ExitCode, Stdout: string(out.Stdout), Stderr: string(out.Stderr)}, nil
}

// WriteFile streams data base64-encoded over stdin so any byte sequence survives the transport
func (g *DockerGateway) WriteFile(ctx context.Context, env *output.Environment, p string, data []byte) error {
	script := "base64 -d > " + shell.Quote(p)
	if dir := path.Dir(p); dir != "." && dir != "/" {
		script = "mkdir -p " + shell.Quote(dir) + " && " + script
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	out, err := g.docker(ctx, Command{
		Args:  []string{"exec", "-i", "-w", env.WorkDir, env.ID, "sh", "-c", script},
		Stdin: strings.NewReader(encoded),
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	if out.ExitCode != 0 {
		return fmt.Errorf("write %s: exit %d: %s", p, out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	return nil
}

func (g *DockerGateway) Release(ctx context.Context, env *output.Environment) error {
	out, err := g.docker(ctx, Command{Args: []string{"rm", "-f", env.ID}})
	if err != nil {
		return fmt.Errorf("remove container %s: %w", shortID(env.ID), err)
	}
	if out.ExitCode != 0 {
		return fmt.Errorf("remove container %s: exit %d: %s", shortID(env.ID), out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	g.logger.Debug("removed container %s", shortID(env.ID))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
