package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GITHUB_TOKEN", "DEEPATCH_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cmd := newRoot(afero.NewOsFs())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSettings(t *testing.T, home, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(home, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "setting.json"), []byte(content), 0o644))
}

func TestInitCommand(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".deepatch")

	out, err := execute(t, "--home", home, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "created  "+filepath.Join(home, "setting.json"))
	assert.FileExists(t, filepath.Join(home, "setting.json"))
	assert.FileExists(t, filepath.Join(home, "providers.yaml"))
	assert.DirExists(t, filepath.Join(home, "var", "sandboxes"))

	out, err = execute(t, "--home", home, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "use --force to overwrite")
}

func TestInitCommand_IgnoresBrokenConfig(t *testing.T) {
	home := t.TempDir()
	writeSettings(t, home, `{"sandbox":`)

	_, err := execute(t, "--home", home, "init", "--force")
	require.NoError(t, err)
}

func TestRunCommand_ValidationFailure(t *testing.T) {
	home := t.TempDir()
	writeSettings(t, home, `{"sandbox":"local","hosting":"fake","storage":"none"}`)

	out, err := execute(t, "--home", home, "--log-level", "error", "run", "not a repository", "add", "tests")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
	assert.Contains(t, out, "✗ validation")
	assert.Contains(t, out, "ValidationError at validation")

	// The failed run is recorded
	out, err = execute(t, "--home", home, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "failure")
	assert.Contains(t, out, "validation")
}

func TestRunCommand_ExclusiveFormats(t *testing.T) {
	home := t.TempDir()
	writeSettings(t, home, `{"sandbox":"local","hosting":"fake","storage":"none"}`)

	_, err := execute(t, "--home", home, "run", "https://github.com/o/r", "x", "--sse", "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestHistoryCommand(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		home := t.TempDir()
		out, err := execute(t, "--home", home, "history")
		require.NoError(t, err)
		assert.Contains(t, out, "No runs recorded yet.")
	})

	t.Run("unknown id", func(t *testing.T) {
		home := t.TempDir()
		_, err := execute(t, "--home", home, "history", "01JUNKNOWN0000000000000000")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("disabled", func(t *testing.T) {
		home := t.TempDir()
		writeSettings(t, home, `{"history":false}`)
		_, err := execute(t, "--home", home, "history")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disabled")
	})
}

func TestRootCommand_BrokenConfigFails(t *testing.T) {
	home := t.TempDir()
	writeSettings(t, home, `{"sandbox":"vm"}`)

	_, err := execute(t, "--home", home, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sandbox must be")
}

func TestLogLevelFromString(t *testing.T) {
	assert.Equal(t, LogLevelDebug, LogLevelFromString("DEBUG"))
	assert.Equal(t, LogLevelWarn, LogLevelFromString("warning"))
	assert.Equal(t, LogLevelError, LogLevelFromString(" error "))
	assert.Equal(t, LogLevelInfo, LogLevelFromString("nonsense"))
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogLevelWarn, &buf)
	l.sink.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6e6, time.UTC) }

	l.Info("hidden")
	l.Warn("shown %d", 1)
	l.SetLevel(LogLevelDebug)
	l.Debug("now visible")

	assert.Equal(t, "03:04:05.006 WARN  shown 1\n03:04:05.006 DEBUG now visible\n", buf.String())
}

func TestLogger_ScopedChildren(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogLevelInfo, &buf)
	l.sink.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	req := app.WithPrefix(l, "01ABC")
	req.Info("cloned %s", "octo/hello")
	req.(*Logger).With("git").Error("push rejected")

	l.SetLevel(LogLevelError)
	req.Warn("hidden after parent level change")

	assert.Equal(t,
		"03:04:05.000 INFO  [01ABC] cloned octo/hello\n"+
			"03:04:05.000 ERROR [01ABC/git] push rejected\n",
		buf.String())
}
