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
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/stage"
)

// GitIdentity is the author recorded on pipeline commits
type GitIdentity struct {
	Name  string
	Email string
}

// VCSOperator runs git inside the environment. Nothing is retried.
type VCSOperator struct {
	env      output.EnvironmentGateway
	identity GitIdentity
	token    string
	logger   app.Logger
}

// NewVCSOperator creates a VCS operator. token authenticates https clone and push.
func NewVCSOperator(env output.EnvironmentGateway, identity GitIdentity, token string, logger app.Logger) *VCSOperator {
	if identity.Name == "" {
		identity.Name = "deepatch bot"
	}
	if identity.Email == "" {
		identity.Email = "bot@deepatch.local"
	}
	if logger == nil {
		logger = app.NopLogger()
	}
	return &VCSOperator{env: env, identity: identity, token: token, logger: logger}
}

// Clone shallow-clones ref into the repository directory
func (v *VCSOperator) Clone(ctx context.Context, environment *output.Environment, ref request.RepositoryRef) error {
	cmd := fmt.Sprintf("git clone --depth 1 %s %s", shellQuote(ref.CloneURL(v.token)), edit.RepoDir)
	_, err := v.run(ctx, environment, stage.Clone, cmd, "clone "+ref.FullName())
	return err
}

// CreateBranch checks out a new branch
func (v *VCSOperator) CreateBranch(ctx context.Context, environment *output.Environment, branch string) error {
	_, err := v.run(ctx, environment, stage.Commit, v.git("checkout -b "+shellQuote(branch)), "create branch "+branch)
	return err
}

// Commit configures the identity, stages everything and commits. It returns the commit sha.
// An empty working tree is a VCSError.
func (v *VCSOperator) Commit(ctx context.Context, environment *output.Environment, message string) (string, error) {
	steps := []struct{ cmd, what string }{
		{v.git("config user.name " + shellQuote(v.identity.Name)), "configure user.name"},
		{v.git("config user.email " + shellQuote(v.identity.Email)), "configure user.email"},
		{v.git("add -A"), "stage changes"},
	}
	for _, s := range steps {
		if _, err := v.run(ctx, environment, stage.Commit, s.cmd, s.what); err != nil {
			return "", err
		}
	}

	status, err := v.run(ctx, environment, stage.Commit, v.git("status --porcelain"), "status")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(status.Stdout) == "" {
		return "", failure.VCS(stage.Commit, nil, "no changes to commit")
	}

	if _, err := v.run(ctx, environment, stage.Commit, v.git("commit -m "+shellQuote(message)), "commit"); err != nil {
		return "", err
	}
	head, err := v.run(ctx, environment, stage.Commit, v.git("rev-parse HEAD"), "rev-parse")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(head.Stdout), nil
}

// Push pushes branch to origin
func (v *VCSOperator) Push(ctx context.Context, environment *output.Environment, branch string) error {
	_, err := v.run(ctx, environment, stage.Commit, v.git("push -u origin "+shellQuote(branch)), "push "+branch)
	return err
}

func (v *VCSOperator) git(args string) string {
	return "git -C " + edit.RepoDir + " " + args
}

func (v *VCSOperator) run(ctx context.Context, environment *output.Environment, s stage.Stage, cmd, what string) (*output.CommandResult, error) {
	res, err := v.env.RunCommand(ctx, environment, cmd)
	if err != nil {
		return nil, failure.Environment(s, err, "%s", what)
	}
	if !res.OK() {
		return res, failure.VCS(s, nil, "%s exited %d: %s", what, res.ExitCode, v.redact(strings.TrimSpace(res.Stderr)))
	}
	return res, nil
}

func (v *VCSOperator) redact(s string) string {
	if v.token == "" {
		return s
	}
	return strings.ReplaceAll(s, v.token, "***")
}

// CommitMessage summarizes the prompt in the subject line
func CommitMessage(requestID, prompt string) string {
	subject := strings.TrimSpace(strings.SplitN(strings.TrimSpace(prompt), "\n", 2)[0])
	if r := []rune(subject); len(r) > 60 {
		subject = strings.TrimSpace(string(r[:60])) + "..."
	}
	return fmt.Sprintf("deepatch: %s\n\nRequested change:\n%s\n\nRequest-Id: %s\n", subject, strings.TrimSpace(prompt), requestID)
}
