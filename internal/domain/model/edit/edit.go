package edit

import (
	"errors"
	"path"
	"strings"
)

// RepoDir is the directory the target repository is cloned into inside the environment.
// Providers frequently echo it back as a path prefix.
const RepoDir = "repo"

// Kind is the operation an edit performs
type Kind string

const (
	KindCreate Kind = "create"
	KindModify Kind = "modify"
)

// Edit is a single proposed file replacement
type Edit struct {
	Path        string
	Content     []byte
	Kind        Kind
	Description string
}

// New builds an edit with a normalized path. Kind defaults to modify.
func New(p string, content []byte, kind Kind, description string) Edit {
	if kind != KindCreate {
		kind = KindModify
	}
	return Edit{
		Path:        NormalizePath(p),
		Content:     content,
		Kind:        kind,
		Description: strings.TrimSpace(description),
	}
}

var (
	ErrEmptyPath   = errors.New("edit path is empty")
	ErrPathEscapes = errors.New("edit path escapes the repository")
)

// Validate checks that the path is usable relative to the repository root
func (e Edit) Validate() error {
	if e.Path == "" {
		return ErrEmptyPath
	}
	clean := path.Clean(e.Path)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return ErrPathEscapes
	}
	return nil
}

// RepoPath returns the edit's location inside the environment
func (e Edit) RepoPath() string {
	return RepoDir + "/" + e.Path
}

// NormalizePath strips surrounding whitespace, any number of leading "repo/" segments and
// a leading separator. Stripping runs to a fixed point so NormalizePath(NormalizePath(p))
// always equals NormalizePath(p).
func NormalizePath(p string) string {
	for {
		next := normalizeOnce(p)
		if next == p {
			return p
		}
		p = next
	}
}

func normalizeOnce(p string) string {
	p = strings.TrimSpace(p)
	for strings.HasPrefix(p, RepoDir+"/") {
		p = strings.TrimPrefix(p, RepoDir+"/")
	}
	return strings.TrimPrefix(p, "/")
}

// Paths returns the paths of the given edits in order
func Paths(edits []Edit) []string {
	out := make([]string, 0, len(edits))
	for _, e := range edits {
		out = append(out, e.Path)
	}
	return out
}
