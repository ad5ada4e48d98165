package environment

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestLocalGateway_Lifecycle(t *testing.T) {
	requireSh(t)
	root := t.TempDir()
	gw := NewLocalGateway(afero.NewOsFs(), root, nil, nil)
	ctx := context.Background()

	env, err := gw.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, env.ID), env.WorkDir)

	data := []byte("hello\x00world\n")
	require.NoError(t, gw.WriteFile(ctx, env, "repo/pkg/a.txt", data))

	res, err := gw.RunCommand(ctx, env, "cat repo/pkg/a.txt")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, string(data), res.Stdout)

	res, err = gw.RunCommand(ctx, env, "echo oops >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "oops\n", res.Stderr)

	require.NoError(t, gw.Release(ctx, env))
	_, err = os.Stat(env.WorkDir)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalGateway_SandboxesAreDistinct(t *testing.T) {
	gw := NewLocalGateway(afero.NewMemMapFs(), "/sandboxes", nil, nil)
	a, err := gw.Acquire(context.Background())
	require.NoError(t, err)
	b, err := gw.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.WorkDir, b.WorkDir)
}

func TestLocalGateway_RejectsEscapingPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	gw := NewLocalGateway(fs, "/sandboxes", nil, nil)
	env, err := gw.Acquire(context.Background())
	require.NoError(t, err)

	assert.Error(t, gw.WriteFile(context.Background(), env, "../outside.txt", []byte("x")))
	assert.Error(t, gw.WriteFile(context.Background(), env, "/etc/passwd", []byte("x")))

	require.NoError(t, gw.WriteFile(context.Background(), env, "repo/ok.txt", []byte("x")))
	ok, _ := afero.Exists(fs, filepath.Join(env.WorkDir, "repo/ok.txt"))
	assert.True(t, ok)
}

func TestLocalGateway_ReleaseRefusesForeignDir(t *testing.T) {
	gw := NewLocalGateway(afero.NewMemMapFs(), "/sandboxes", nil, nil)
	err := gw.Release(context.Background(), &output.Environment{ID: "x", WorkDir: "/home/user"})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	for _, kind := range []string{KindDocker, KindPodman, KindLocal} {
		gw, err := New(Options{Kind: kind, Root: t.TempDir()}, nil)
		require.NoError(t, err)
		assert.NotNil(t, gw)
	}
	_, err := New(Options{Kind: "firecracker"}, nil)
	assert.Error(t, err)
}
