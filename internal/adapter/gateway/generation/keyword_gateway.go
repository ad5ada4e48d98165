package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/application/service"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
)

// KeywordGateway is the offline last resort. It inspects the requested change for a
// handful of keywords and proposes a fixed guidance document, so a run can still
// produce a pull request when no model is reachable.
type KeywordGateway struct{}

func NewKeywordGateway() *KeywordGateway { return &KeywordGateway{} }

func (g *KeywordGateway) Name() string { return "keyword" }

type keywordTemplate struct {
	keywords []string
	path     string
	title    string
	body     string
}

var keywordTemplates = []keywordTemplate{
	{
		keywords: []string{"error handling", "exception"},
		path:     "docs/ERROR_HANDLING.md",
		title:    "Error handling",
		body: "- Return errors to the caller instead of swallowing them.\n" +
			"- Wrap errors with the operation that failed.\n" +
			"- Log once, at the boundary that decides what to do.\n",
	},
	{
		keywords: []string{"test"},
		path:     "docs/TESTING.md",
		title:    "Testing",
		body: "- Cover the success path and each documented failure.\n" +
			"- Keep tests independent of network and wall-clock time.\n" +
			"- Run the suite in CI on every pull request.\n",
	},
	{
		keywords: []string{"logging", "log"},
		path:     "docs/LOGGING.md",
		title:    "Logging",
		body: "- Use one structured logger per process.\n" +
			"- Include a request identifier in every line.\n" +
			"- Never log credentials or tokens.\n",
	},
	{
		keywords: []string{"api", "endpoint"},
		path:     "docs/API.md",
		title:    "API",
		body: "- Document every endpoint with its method and path.\n" +
			"- Return a consistent error envelope.\n" +
			"- Expose a health endpoint.\n",
	},
	{
		keywords: []string{"config", "setting"},
		path:     "docs/CONFIGURATION.md",
		title:    "Configuration",
		body: "- Read settings from the environment with documented defaults.\n" +
			"- Validate configuration at startup.\n" +
			"- Keep secrets out of the repository.\n",
	},
	{
		keywords: []string{"readme", "documentation", "docs"},
		path:     "README.md",
		title:    "Overview",
		body:     "This project accepts contributions through pull requests.\n",
	},
}

// Generate never calls out; the response is a JSON changes document.
func (g *KeywordGateway) Generate(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Provider(g.Name(), false, err, "cancelled")
	}
	start := time.Now()
	request := service.RequestedChange(req.Prompt)
	lower := strings.ToLower(request)

	tmpl := keywordTemplate{
		path:  "CHANGES.md",
		title: "Requested change",
	}
	for _, t := range keywordTemplates {
		if containsAny(lower, t.keywords) {
			tmpl = t
			break
		}
	}

	content := fmt.Sprintf("# %s\n\n%s\n## Request\n\n%s\n", tmpl.title, tmpl.body, request)
	if tmpl.body == "" {
		content = fmt.Sprintf("# %s\n\n%s\n", tmpl.title, request)
	}

	doc := map[string][]map[string]string{
		"changes": {{
			"type":        "create",
			"filepath":    tmpl.path,
			"content":     content,
			"description": "Add " + strings.ToLower(tmpl.title) + " notes",
		}},
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, failure.Provider(g.Name(), false, err, "encode changes")
	}
	return &output.GenerationResponse{
		Output:   string(out),
		Duration: time.Since(start),
		Provider: g.Name(),
		Metadata: map[string]string{"template": tmpl.path},
	}, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
