// Package intake validates change requests before any resource is acquired.
package intake

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/request"
)

//go:embed intake.cue
var schemaSource string

// Validator checks intake against the CUE schema and then parses the repository reference.
// CUE contexts are not safe for concurrent use, so each call compiles its own.
type Validator struct {
	source string
}

// NewValidator compiles the schema once to fail fast on a broken build
func NewValidator() (*Validator, error) {
	v := &Validator{source: schemaSource}
	if _, err := v.schema(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Validator) schema() (cue.Value, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(v.source, cue.Filename("intake.cue"))
	if err := root.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compiling intake schema: %w", err)
	}
	def := root.LookupPath(cue.ParsePath("#Intake"))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("intake schema has no #Intake definition")
	}
	return def, nil
}

// Validate returns the parsed repository reference or a ValidationError
func (v *Validator) Validate(repositoryURL, prompt string) (request.RepositoryRef, error) {
	repositoryURL = strings.TrimSpace(repositoryURL)
	if repositoryURL == "" {
		return request.RepositoryRef{}, failure.Validation("repository reference is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return request.RepositoryRef{}, failure.Validation("prompt is required")
	}

	def, err := v.schema()
	if err != nil {
		return request.RepositoryRef{}, failure.Validation("%v", err)
	}
	input := def.Context().Encode(map[string]interface{}{
		"repository_url": repositoryURL,
		"prompt":         prompt,
	})
	if err := def.Unify(input).Validate(cue.Concrete(true)); err != nil {
		return request.RepositoryRef{}, failure.Validation("%s", describe(err))
	}

	ref, err := request.ParseRepositoryRef(repositoryURL)
	if err != nil {
		return request.RepositoryRef{}, failure.Validation("%v", err)
	}
	return ref, nil
}

// describe returns the first CUE error without source positions
func describe(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	format, args := errs[0].Msg()
	path := strings.Join(errs[0].Path(), ".")
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		return path + ": " + msg
	}
	return msg
}
