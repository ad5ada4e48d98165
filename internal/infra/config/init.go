package config

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/infra/persistence/file"
)

// InitResult lists what WriteDefaults created and what it left alone
type InitResult struct {
	Created []string
	Skipped []string
}

// WriteDefaults creates the home layout and default config files.
// Existing files are kept unless force is set.
func WriteDefaults(fs afero.Fs, paths app.Paths, force bool) (*InitResult, error) {
	for _, dir := range []string{paths.Home, paths.Var, paths.Artifacts, paths.Sandboxes} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	res := &InitResult{}
	for _, f := range []struct {
		path string
		data []byte
	}{
		{paths.Settings, CreateDefaultSettings()},
		{paths.Providers, CreateDefaultProviders()},
	} {
		if force {
			if err := file.WriteFileAtomic(fs, f.path, f.data, 0o644); err != nil {
				return nil, err
			}
			res.Created = append(res.Created, f.path)
			continue
		}
		wrote, err := file.WriteFileIfAbsent(fs, f.path, f.data, 0o644)
		if err != nil {
			return nil, err
		}
		if wrote {
			res.Created = append(res.Created, f.path)
		} else {
			res.Skipped = append(res.Skipped, f.path)
		}
	}
	return res, nil
}
