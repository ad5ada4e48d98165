package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
)

func TestValidateAccepts(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	for _, url := range []string{
		"https://host/owner/repo",
		"https://github.com/octo/hello.git",
		"git@github.com:octo/hello.git",
	} {
		ref, err := v.Validate(url, "add input validation")
		require.NoError(t, err, url)
		assert.NotEmpty(t, ref.Owner)
		assert.NotEmpty(t, ref.Name)
	}
}

func TestValidateRejects(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name, url, prompt, want string
	}{
		{"not a url", "not-a-url", "do it", "repository_url"},
		{"empty url", "", "do it", "repository reference is required"},
		{"empty prompt", "https://host/o/r", "   ", "prompt is required"},
		{"missing repo", "https://host/owner", "do it", "repository_url"},
		{"prompt too long", "https://host/o/r", strings.Repeat("x", 20001), "prompt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.url, tt.prompt)
			require.Error(t, err)
			assert.True(t, failure.IsKind(err, failure.KindValidation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
