package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved paths under the deepatch home directory
type Paths struct {
	Home       string // ~/.deepatch
	Var        string // ~/.deepatch/var
	Artifacts  string // ~/.deepatch/var/artifacts
	Sandboxes  string // ~/.deepatch/var/sandboxes
	Settings   string // ~/.deepatch/setting.json
	Providers  string // ~/.deepatch/providers.yaml
	RunHistory string // ~/.deepatch/var/runs.db
}

// ResolveHome returns DEEPATCH_HOME, falling back to ~/.deepatch and then ./.deepatch
func ResolveHome() string {
	if home := os.Getenv("DEEPATCH_HOME"); home != "" {
		return home
	}
	if userHome, err := os.UserHomeDir(); err == nil {
		return filepath.Join(userHome, ".deepatch")
	}
	return ".deepatch"
}

// ResolvePaths derives every path from home
func ResolvePaths(home string) Paths {
	p := Paths{
		Home: home,
		Var:  filepath.Join(home, "var"),
	}

	p.Artifacts = filepath.Join(p.Var, "artifacts")
	p.Sandboxes = filepath.Join(p.Var, "sandboxes")
	p.Settings = filepath.Join(home, "setting.json")
	p.Providers = filepath.Join(home, "providers.yaml")
	p.RunHistory = filepath.Join(p.Var, "runs.db")

	return p
}
