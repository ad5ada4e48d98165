package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/buildinfo"
)

const githubAPI = "https://api.github.com"

// GitHubGateway implements HostingGateway against the GitHub REST API
type GitHubGateway struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewGitHubGateway creates a gateway. An empty baseURL targets api.github.com;
// GitHub Enterprise uses https://<host>/api/v3.
func NewGitHubGateway(token, baseURL string, client *http.Client) *GitHubGateway {
	if baseURL == "" {
		baseURL = githubAPI
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GitHubGateway{token: token, baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// APIError is a non-2xx response from GitHub
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API error (%d): %s", e.Status, e.Message)
}

func (g *GitHubGateway) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	var r struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := g.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", owner, repo), nil, &r); err != nil {
		return "", fmt.Errorf("get repository %s/%s: %w", owner, repo, err)
	}
	if r.DefaultBranch == "" {
		return "main", nil
	}
	return r.DefaultBranch, nil
}

func (g *GitHubGateway) CreatePullRequest(ctx context.Context, pr output.PullRequest) (string, error) {
	body := map[string]string{
		"title": pr.Title,
		"body":  pr.Body,
		"head":  pr.Head,
		"base":  pr.Base,
	}
	var r struct {
		HTMLURL string `json:"html_url"`
		Number  int    `json:"number"`
	}
	if err := g.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/pulls", pr.Owner, pr.Repo), body, &r); err != nil {
		return "", fmt.Errorf("create pull request on %s/%s: %w", pr.Owner, pr.Repo, err)
	}
	return r.HTMLURL, nil
}

func (g *GitHubGateway) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var e struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &e) == nil && e.Message != "" {
		msg = e.Message
		for _, d := range e.Errors {
			if d.Message != "" {
				msg += "; " + d.Message
			}
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
