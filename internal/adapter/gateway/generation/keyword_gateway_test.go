package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/application/service"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
)

func TestKeywordGateway_ProducesParseableChanges(t *testing.T) {
	tests := []struct {
		request string
		path    string
	}{
		{"Improve error handling in the parser", "docs/ERROR_HANDLING.md"},
		{"Add unit tests", "docs/TESTING.md"},
		{"More logging please", "docs/LOGGING.md"},
		{"Document the API endpoints", "docs/API.md"},
		{"Move settings into config", "docs/CONFIGURATION.md"},
		{"Polish the README", "README.md"},
		{"Rename the widget", "CHANGES.md"},
	}
	gw := NewKeywordGateway()
	parser := service.NewResponseParser()
	prompts := service.NewPromptBuilder()

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			// Repository context must not influence the choice.
			repo := output.RepositoryContext{KeyFiles: []output.SourceFile{{Path: "x.py", Content: "import logging\n"}}}
			resp, err := gw.Generate(context.Background(), output.GenerationRequest{Prompt: prompts.Build(tt.request, repo)})
			require.NoError(t, err)

			edits, shape := parser.Parse(resp.Output)
			assert.Equal(t, "json", shape)
			require.Len(t, edits, 1)
			assert.Equal(t, tt.path, edits[0].Path)
			assert.Equal(t, edit.KindCreate, edits[0].Kind)
			assert.Contains(t, string(edits[0].Content), tt.request)
		})
	}
}

func TestKeywordGateway_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewKeywordGateway().Generate(ctx, output.GenerationRequest{Prompt: "p"})
	assert.Error(t, err)
}
