package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := WithPrefix(&defaultLogger{output: &buf}, "01ABC")

	l.Info("cloned %s", "octo/hello")
	l.Error("boom")

	assert.Equal(t, "INFO: [01ABC] cloned octo/hello\nERROR: [01ABC] boom\n", buf.String())
}

type scopingLogger struct {
	nopLogger
	scopes []string
}

func (l *scopingLogger) With(scope string) Logger {
	l.scopes = append(l.scopes, scope)
	return l
}

func TestWithPrefix_UsesScoper(t *testing.T) {
	base := &scopingLogger{}
	got := WithPrefix(base, "01ABC")

	assert.Same(t, base, got)
	assert.Equal(t, []string{"01ABC"}, base.scopes)
}

func TestResolvePaths(t *testing.T) {
	p := ResolvePaths("/tmp/dp")
	assert.Equal(t, "/tmp/dp/setting.json", p.Settings)
	assert.Equal(t, "/tmp/dp/providers.yaml", p.Providers)
	assert.Equal(t, "/tmp/dp/var/runs.db", p.RunHistory)
	assert.Equal(t, "/tmp/dp/var/artifacts", p.Artifacts)
}

func TestResolveHomeFromEnv(t *testing.T) {
	t.Setenv("DEEPATCH_HOME", "/srv/deepatch")
	assert.Equal(t, "/srv/deepatch", ResolveHome())
}
