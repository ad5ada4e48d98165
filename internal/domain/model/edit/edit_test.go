package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"repo/repo/a/b.py", "a/b.py"},
		{"repo/a/b.py", "a/b.py"},
		{"a/b.py", "a/b.py"},
		{"/a/b.py", "a/b.py"},
		{"  repo/src/main.go \n", "src/main.go"},
		{"/repo/x.py", "x.py"},
		{"repository/x.py", "repository/x.py"},
		{"src/repo/x.py", "src/repo/x.py"},
		{"repo", "repo"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestNormalizePathIsIdempotent(t *testing.T) {
	inputs := []string{
		"repo/repo/a/b.py", "/repo/x", "//a", " / repo/ a", "repo//b", "repo/ /repo/c",
		"\trepo/\t/x", "./a", "../a", "a\\b", "日本語/ファイル.go", "/", "repo/",
	}
	for _, in := range inputs {
		once := NormalizePath(in)
		assert.Equal(t, once, NormalizePath(once), "input %q", in)
	}
}

func TestNew(t *testing.T) {
	e := New("repo/app.py", []byte("x"), "", " add check ")
	assert.Equal(t, "app.py", e.Path)
	assert.Equal(t, KindModify, e.Kind)
	assert.Equal(t, "add check", e.Description)
	assert.Equal(t, "repo/app.py", e.RepoPath())

	c := New("new.py", nil, KindCreate, "")
	assert.Equal(t, KindCreate, c.Kind)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Edit{Path: "a/b.py"}.Validate())
	assert.ErrorIs(t, Edit{Path: ""}.Validate(), ErrEmptyPath)
	assert.ErrorIs(t, Edit{Path: "../etc/passwd"}.Validate(), ErrPathEscapes)
	assert.ErrorIs(t, Edit{Path: "a/../../b"}.Validate(), ErrPathEscapes)
	assert.ErrorIs(t, Edit{Path: "."}.Validate(), ErrPathEscapes)
}
