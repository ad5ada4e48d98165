package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/request"
)

// PublishInput is everything the publisher needs to describe the change
type PublishInput struct {
	RequestID  string
	Repository request.RepositoryRef
	Branch     string
	Prompt     string
	Edits      []edit.Edit
	Provider   string
}

// Publisher opens the pull request for a pushed branch
type Publisher struct {
	hosting output.HostingGateway
	logger  app.Logger
}

// NewPublisher creates a publisher
func NewPublisher(hosting output.HostingGateway, logger app.Logger) *Publisher {
	if logger == nil {
		logger = app.NopLogger()
	}
	return &Publisher{hosting: hosting, logger: logger}
}

// Publish resolves the default branch and opens the pull request, returning its URL
func (p *Publisher) Publish(ctx context.Context, in PublishInput) (string, error) {
	base, err := p.hosting.DefaultBranch(ctx, in.Repository.Owner, in.Repository.Name)
	if err != nil {
		return "", asPublishError(err, "resolving default branch")
	}

	url, err := p.hosting.CreatePullRequest(ctx, output.PullRequest{
		Owner: in.Repository.Owner,
		Repo:  in.Repository.Name,
		Title: PullRequestTitle(in.Prompt),
		Body:  PullRequestBody(in),
		Base:  base,
		Head:  in.Branch,
	})
	if err != nil {
		return "", asPublishError(err, "creating pull request")
	}
	if url == "" {
		return "", failure.Publish(nil, "hosting API returned no pull request URL")
	}
	p.logger.Info("opened %s against %s", url, base)
	return url, nil
}

func asPublishError(err error, what string) error {
	if failure.IsKind(err, failure.KindPublish) {
		return err
	}
	return failure.Publish(err, "%s", what)
}

// PullRequestTitle derives a short title from the prompt
func PullRequestTitle(prompt string) string {
	title := strings.TrimSpace(strings.SplitN(strings.TrimSpace(prompt), "\n", 2)[0])
	if r := []rune(title); len(r) > 72 {
		title = strings.TrimSpace(string(r[:69])) + "..."
	}
	if title == "" {
		title = "Proposed change"
	}
	return "deepatch: " + title
}

// PullRequestBody lists the applied edits with their descriptions
func PullRequestBody(in PublishInput) string {
	var sb strings.Builder
	sb.WriteString("## Requested change\n\n")
	sb.WriteString(strings.TrimSpace(in.Prompt))
	sb.WriteString("\n\n## Changes\n\n")
	for _, e := range in.Edits {
		if e.Description != "" {
			fmt.Fprintf(&sb, "- `%s` (%s): %s\n", e.Path, e.Kind, e.Description)
		} else {
			fmt.Fprintf(&sb, "- `%s` (%s)\n", e.Path, e.Kind)
		}
	}
	sb.WriteString("\n---\n")
	fmt.Fprintf(&sb, "Generated by deepatch using `%s`. Request `%s`.\n", in.Provider, in.RequestID)
	return sb.String()
}
