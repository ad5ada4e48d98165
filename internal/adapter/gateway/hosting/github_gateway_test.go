package hosting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

func TestGitHubGateway_DefaultBranch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/repos/octo/hello", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"full_name":"octo/hello","default_branch":"develop"}`))
	}))
	defer srv.Close()

	branch, err := NewGitHubGateway("tok", srv.URL, srv.Client()).DefaultBranch(context.Background(), "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)
}

func TestGitHubGateway_CreatePullRequest(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/octo/hello/pulls", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":7,"html_url":"https://github.com/octo/hello/pull/7"}`))
	}))
	defer srv.Close()

	url, err := NewGitHubGateway("tok", srv.URL+"/", srv.Client()).CreatePullRequest(context.Background(), output.PullRequest{
		Owner: "octo", Repo: "hello", Title: "t", Body: "b", Base: "main", Head: "deepatch/x",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/octo/hello/pull/7", url)
	assert.Equal(t, map[string]string{"title": "t", "body": "b", "base": "main", "head": "deepatch/x"}, got)
}

func TestGitHubGateway_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Validation Failed","errors":[{"message":"A pull request already exists"}]}`))
	}))
	defer srv.Close()

	_, err := NewGitHubGateway("", srv.URL, srv.Client()).CreatePullRequest(context.Background(), output.PullRequest{Owner: "o", Repo: "r"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Validation Failed; A pull request already exists", apiErr.Message)
}

func TestFakeGateway(t *testing.T) {
	g := NewFakeGateway("")
	ctx := context.Background()

	branch, err := g.DefaultBranch(ctx, "o", "r")
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	u1, _ := g.CreatePullRequest(ctx, output.PullRequest{Owner: "o", Repo: "r"})
	u2, _ := g.CreatePullRequest(ctx, output.PullRequest{Owner: "o", Repo: "r"})
	u3, _ := g.CreatePullRequest(ctx, output.PullRequest{Owner: "o", Repo: "other"})
	assert.Equal(t, "https://github.com/o/r/pull/1", u1)
	assert.Equal(t, "https://github.com/o/r/pull/2", u2)
	assert.Equal(t, "https://github.com/o/other/pull/1", u3)
	assert.Len(t, g.Opened(), 3)
}
