package failure

import (
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/stage"
)

// Kind classifies a pipeline failure
type Kind string

const (
	KindValidation  Kind = "ValidationError"
	KindEnvironment Kind = "EnvironmentError"
	KindProvider    Kind = "ProviderError"
	KindApply       Kind = "ApplyError"
	KindVCS         Kind = "VCSError"
	KindPublish     Kind = "PublishError"
)

// Error is the domain error carried through the pipeline. Stage and Kind are always set
// so callers can handle failures programmatically.
type Error struct {
	Kind      Kind
	Stage     stage.Stage
	Message   string
	Provider  string
	Retryable bool
	Err       error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Stage, e.Detail())
}

// Detail is the message with provider and cause but without kind and stage
func (e *Error) Detail() string {
	msg := e.Message
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithStage returns a copy of the error attributed to s
func (e *Error) WithStage(s stage.Stage) *Error {
	c := *e
	c.Stage = s
	return &c
}

func newError(kind Kind, s stage.Stage, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Stage: s, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation reports bad input. It is always attributed to the validation stage.
func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, stage.Validation, nil, format, args...)
}

// Environment reports that the sandbox could not be created or commanded
func Environment(s stage.Stage, err error, format string, args ...interface{}) *Error {
	return newError(KindEnvironment, s, err, format, args...)
}

// Provider reports a generation backend failure
func Provider(provider string, retryable bool, err error, format string, args ...interface{}) *Error {
	e := newError(KindProvider, stage.Generation, err, format, args...)
	e.Provider = provider
	e.Retryable = retryable
	return e
}

// Apply reports a single edit that could not be written
func Apply(err error, format string, args ...interface{}) *Error {
	return newError(KindApply, stage.Apply, err, format, args...)
}

// VCS reports a git failure inside the environment
func VCS(s stage.Stage, err error, format string, args ...interface{}) *Error {
	return newError(KindVCS, s, err, format, args...)
}

// Publish reports a hosting API failure
func Publish(err error, format string, args ...interface{}) *Error {
	return newError(KindPublish, stage.Publish, err, format, args...)
}

// As extracts a *Error from err
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsKind checks whether err is a pipeline error of the given kind
func IsKind(err error, kind Kind) bool {
	fe, ok := As(err)
	return ok && fe.Kind == kind
}

// IsRetryable checks whether err is a retryable provider error
func IsRetryable(err error) bool {
	fe, ok := As(err)
	return ok && fe.Kind == KindProvider && fe.Retryable
}

// Classify converts an arbitrary error into a pipeline error attributed to s.
// Errors that already carry a kind keep it; others become EnvironmentError.
func Classify(s stage.Stage, err error) *Error {
	if fe, ok := As(err); ok {
		if fe.Stage == "" {
			return fe.WithStage(s)
		}
		return fe
	}
	return Environment(s, err, "%s failed", s)
}
