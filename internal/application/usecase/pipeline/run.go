package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/dto"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/application/service"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/request"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/stage"
	"github.com/YoshitsuguKoike/deepatch/internal/pkg/branchname"
)

// run is the state of one request. It is owned by a single goroutine.
type run struct {
	o       *Orchestrator
	req     *request.Request
	emitter *service.EventEmitter
	logger  app.Logger

	current   stage.Stage
	env       *output.Environment
	released  bool
	repo      output.RepositoryContext
	selection *service.Selection
	applied   *service.ApplyResult
	branch    string
	commitSHA string
	prURL     string
	fail      *failure.Error

	started  time.Time
	finished time.Time
	timings  map[string]time.Duration
}

// execute runs every stage in order and stops at the first failure.
// The environment is released on every path out, including panics.
func (r *run) execute(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic in %s: %v", r.req.Stage, p)
			err = failure.Environment(r.req.Stage, fmt.Errorf("panic: %v", p), "internal error")
		}
	}()
	defer r.release(ctx)

	steps := []struct {
		stage stage.Stage
		start string
		fn    func(context.Context) (string, error)
	}{
		{stage.Validation, "Validating request", r.validate},
		{stage.SandboxInit, "Creating sandbox", r.acquire},
		{stage.Clone, "Cloning repository", r.clone},
		{stage.Analysis, "Analyzing repository structure", r.analyze},
		{stage.Generation, "Generating changes", r.generate},
		{stage.Apply, "Applying changes", r.apply},
		{stage.Commit, "Committing changes", r.commit},
		{stage.Publish, "Creating pull request", r.publish},
	}

	for _, s := range steps {
		if err := r.runStage(ctx, s.stage, s.start, s.fn); err != nil {
			return err
		}
	}
	return r.req.TransitionTo(stage.Done)
}

func (r *run) runStage(ctx context.Context, s stage.Stage, startMsg string, fn func(context.Context) (string, error)) error {
	if r.req.Stage != s {
		if err := r.req.TransitionTo(s); err != nil {
			return failure.Environment(r.req.Stage, err, "pipeline state")
		}
	}
	if err := ctx.Err(); err != nil {
		return failure.Environment(s, err, "request cancelled before %s", s)
	}

	r.current = s
	begin, end := s.Range()
	r.emit(r.emitter.Info(s, begin, startMsg))
	t0 := time.Now()
	msg, err := fn(ctx)
	r.timings[string(s)] = time.Since(t0)
	if err != nil {
		fe := failure.Classify(s, err)
		if fe.Stage != s {
			fe = fe.WithStage(s)
		}
		r.logger.Warn("%s failed: %v", s, fe)
		return fe
	}
	r.emit(r.emitter.Success(s, end, msg))
	return nil
}

func (r *run) validate(ctx context.Context) (string, error) {
	ref, err := r.o.validator.Validate(r.req.Repository.Raw, r.req.Prompt)
	if err != nil {
		if failure.IsKind(err, failure.KindValidation) {
			return "", err
		}
		return "", failure.Validation("%v", err)
	}
	r.req.Repository = ref
	return fmt.Sprintf("Request is valid for %s", ref.FullName()), nil
}

func (r *run) acquire(ctx context.Context) (string, error) {
	env, err := r.o.env.Acquire(ctx)
	if err != nil {
		return "", failure.Environment(stage.SandboxInit, err, "could not create sandbox")
	}
	r.env = env
	r.logger.Info("sandbox %s acquired", env.ID)
	return fmt.Sprintf("Sandbox %s ready", env.ID), nil
}

func (r *run) clone(ctx context.Context) (string, error) {
	if err := r.o.vcs.Clone(ctx, r.env, r.req.Repository); err != nil {
		return "", err
	}
	return fmt.Sprintf("Cloned %s", r.req.Repository.FullName()), nil
}

func (r *run) analyze(ctx context.Context) (string, error) {
	repo, err := r.o.analyzer.Analyze(ctx, r.env)
	if err != nil {
		return "", err
	}
	r.repo = repo
	return fmt.Sprintf("Found %d source files, read %d for context", len(repo.Files), len(repo.KeyFiles)), nil
}

func (r *run) generate(ctx context.Context) (string, error) {
	begin, end := stage.Generation.Range()
	sel, err := r.o.chain.Generate(ctx, r.req.Prompt, r.repo, func(a service.ProviderAttempt) {
		if a.Outcome == service.AttemptSuccess {
			return
		}
		progress := begin + a.Ordinal
		if progress >= end {
			progress = end - 1
		}
		r.emit(r.emitter.Warning(stage.Generation, progress, fmt.Sprintf("Provider %s failed (%s), trying next", a.Provider, a.Reason)))
	})
	r.selection = sel
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Generated %d edits with %s", len(sel.Edits), sel.Provider), nil
}

func (r *run) apply(ctx context.Context) (string, error) {
	begin, _ := stage.Apply.Range()
	res := r.o.applier.Apply(ctx, r.env, r.selection.Edits)
	r.applied = res
	if res.Count() > 0 {
		r.logger.Debug("applied %s", strings.Join(edit.Paths(res.Applied), ", "))
	}
	for _, f := range res.Failures {
		r.emit(r.emitter.Warning(stage.Apply, begin+1, f.Error()))
	}
	if res.Count() == 0 {
		return "", failure.Apply(nil, "none of the %d edits could be applied", len(r.selection.Edits))
	}
	return fmt.Sprintf("Applied %d of %d edits", res.Count(), len(r.selection.Edits)), nil
}

func (r *run) commit(ctx context.Context) (string, error) {
	begin, _ := stage.Commit.Range()
	r.branch = branchname.FromPrompt(r.req.ID, r.req.Prompt)

	if err := r.o.vcs.CreateBranch(ctx, r.env, r.branch); err != nil {
		return "", err
	}
	r.emit(r.emitter.Info(stage.Commit, begin+1, "Created branch "+r.branch))

	sha, err := r.o.vcs.Commit(ctx, r.env, service.CommitMessage(r.req.ID, r.req.Prompt))
	if err != nil {
		return "", err
	}
	r.commitSHA = sha
	r.emit(r.emitter.Info(stage.Commit, begin+2, "Committed "+shortSHA(sha)))

	if err := r.o.vcs.Push(ctx, r.env, r.branch); err != nil {
		return "", err
	}
	return "Pushed " + r.branch, nil
}

func (r *run) publish(ctx context.Context) (string, error) {
	url, err := r.o.publisher.Publish(ctx, service.PublishInput{
		RequestID:  r.req.ID,
		Repository: r.req.Repository,
		Branch:     r.branch,
		Prompt:     r.req.Prompt,
		Edits:      r.applied.Applied,
		Provider:   r.selection.Provider,
	})
	if err != nil {
		return "", err
	}
	r.prURL = url
	return "Pull request created: " + url, nil
}

// release destroys the environment once. Release uses a context detached from the caller.
func (r *run) release(ctx context.Context) {
	if r.env == nil || r.released {
		return
	}
	r.released = true
	t0 := time.Now()
	if err := r.o.env.Release(ctx, r.env); err != nil {
		r.logger.Error("releasing sandbox %s: %v", r.env.ID, err)
		_, end := r.current.Range()
		r.emit(r.emitter.Warning(r.current, end, fmt.Sprintf("Sandbox cleanup failed: %v", err)))
	} else {
		r.logger.Info("sandbox %s released", r.env.ID)
	}
	r.timings["cleanup"] = time.Since(t0)
}

// finish emits the terminal event
func (r *run) finish(err error) {
	r.finished = time.Now()
	defer func() {
		if derr := r.emitter.DeliveryErr(); derr != nil {
			r.logger.Warn("caller stopped receiving events, run recorded anyway: %v", derr)
		}
	}()
	payload := &event.Payload{
		DurationSeconds: r.finished.Sub(r.started).Seconds(),
		StageTimings:    r.timingSeconds(),
	}
	if r.selection != nil {
		payload.Provider = r.selection.Provider
	}
	if r.applied != nil {
		payload.EditsApplied = r.applied.Count()
	}
	payload.Branch = r.branch

	if err == nil {
		payload.PRURL = r.prURL
		r.emit(r.emitter.Summary("Pull request created: "+r.prURL, payload))
		return
	}

	r.fail = failure.Classify(r.current, err)
	if !r.req.IsTerminal() {
		_ = r.req.TransitionTo(stage.Failed)
	}
	payload.Error = r.fail.Detail()
	payload.ErrorKind = string(r.fail.Kind)
	payload.Stage = string(r.fail.Stage)
	r.emit(r.emitter.Fail(r.fail.Stage, fmt.Sprintf("%s failed: %s", r.fail.Stage, r.fail.Message), payload))
}

func (r *run) emit(err error) {
	if err != nil {
		r.logger.Warn("event dropped: %v", err)
	}
}

func (r *run) timingSeconds() map[string]float64 {
	out := make(map[string]float64, len(r.timings))
	for k, v := range r.timings {
		out[k] = v.Seconds()
	}
	return out
}

func (r *run) output() *dto.RunOutput {
	out := &dto.RunOutput{
		RequestID:    r.req.ID,
		Success:      r.fail == nil,
		PRURL:        r.prURL,
		Branch:       r.branch,
		CommitSHA:    r.commitSHA,
		Error:        r.fail,
		Duration:     r.finished.Sub(r.started),
		StageTimings: r.timings,
		Events:       r.emitter.Events(),
	}
	if r.selection != nil {
		out.Provider = r.selection.Provider
		for _, a := range r.selection.Attempts {
			out.Attempts = append(out.Attempts, dto.AttemptOutput{
				Ordinal:  a.Ordinal,
				Provider: a.Provider,
				Outcome:  string(a.Outcome),
				Reason:   a.Reason,
				Tries:    a.Tries,
			})
		}
	}
	if r.applied != nil {
		out.EditsApplied = r.applied.Count()
	}
	return out
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
