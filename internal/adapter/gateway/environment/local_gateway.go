package environment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/infra/persistence/file"
)

// LocalGateway gives each request its own directory on the host. It isolates
// working trees, not processes, and is meant for development and tests.
type LocalGateway struct {
	fs     afero.Fs
	root   string
	exec   Executor
	logger app.Logger
}

// NewLocalGateway creates sandboxes under root. Commands see the real file system,
// so fs must be backed by the OS for anything but unit tests of WriteFile.
func NewLocalGateway(fs afero.Fs, root string, executor Executor, logger app.Logger) *LocalGateway {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if root == "" {
		root = filepath.Join(os.TempDir(), "deepatch-sandboxes")
	}
	if executor == nil {
		executor = OSExecutor{}
	}
	if logger == nil {
		logger = app.NopLogger()
	}
	return &LocalGateway{fs: fs, root: root, exec: executor, logger: logger}
}

func (g *LocalGateway) Acquire(ctx context.Context) (*output.Environment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate sandbox id: %w", err)
	}
	dir := filepath.Join(g.root, id.String())
	if err := g.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox dir: %w", err)
	}
	g.logger.Debug("created local sandbox %s", dir)
	return &output.Environment{ID: id.String(), WorkDir: dir}, nil
}

func (g *LocalGateway) RunCommand(ctx context.Context, env *output.Environment, command string) (*output.CommandResult, error) {
	out, err := g.exec.Execute(ctx, Command{
		Name: "sh",
		Args: []string{"-c", command},
		Dir:  env.WorkDir,
		Env:  append(os.Environ(), "GIT_TERMINAL_PROMPT=0"),
	})
	if err != nil {
		return nil, fmt.Errorf("run in %s: %w", env.ID, err)
	}
	return &output.CommandResult{ExitCode: out.ExitCode, Stdout: string(out.Stdout), Stderr: string(out.Stderr)}, nil
}

// WriteFile refuses paths that would land outside the sandbox directory
func (g *LocalGateway) WriteFile(ctx context.Context, env *output.Environment, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !filepath.IsLocal(p) {
		return fmt.Errorf("write %s: path escapes sandbox", p)
	}
	return file.WriteFileAtomic(g.fs, filepath.Join(env.WorkDir, p), data, 0o644)
}

func (g *LocalGateway) Release(ctx context.Context, env *output.Environment) error {
	dir := filepath.Join(g.root, env.ID)
	if dir != filepath.Clean(env.WorkDir) {
		return fmt.Errorf("release %s: work dir %s is not managed by this gateway", env.ID, env.WorkDir)
	}
	if err := g.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove sandbox dir: %w", err)
	}
	g.logger.Debug("removed local sandbox %s", dir)
	return nil
}
