package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/stage"
)

func TestErrorMessage(t *testing.T) {
	err := Provider("anthropic", true, errors.New("HTTP 429"), "rate limited")
	assert.Equal(t, "[ProviderError] generation: anthropic: rate limited: HTTP 429", err.Error())
	assert.Equal(t, "anthropic: rate limited: HTTP 429", err.Detail())

	v := Validation("prompt must not be empty")
	assert.Equal(t, "[ValidationError] validation: prompt must not be empty", v.Error())
}

func TestAsThroughWrapping(t *testing.T) {
	inner := VCS(stage.Commit, nil, "nothing to commit")
	wrapped := fmt.Errorf("commit: %w", inner)

	fe, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindVCS, fe.Kind)
	assert.Equal(t, stage.Commit, fe.Stage)
	assert.True(t, IsKind(wrapped, KindVCS))
	assert.False(t, IsKind(wrapped, KindPublish))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Provider("p", true, nil, "throttled")))
	assert.False(t, IsRetryable(Provider("p", false, nil, "unauthorized")))
	assert.False(t, IsRetryable(Publish(nil, "boom")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestClassify(t *testing.T) {
	fe := Classify(stage.Clone, context.DeadlineExceeded)
	assert.Equal(t, KindEnvironment, fe.Kind)
	assert.Equal(t, stage.Clone, fe.Stage)
	assert.ErrorIs(t, fe, context.DeadlineExceeded)

	pub := Publish(nil, "422")
	assert.Same(t, pub, Classify(stage.Commit, pub))
}
