package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/infra/persistence/file"
)

// LocalStorageGateway archives run artifacts on a file system.
// Layout: <baseDir>/runs/<requestID>/<type>/{content,metadata.json}
// Backed by afero.NewMemMapFs it doubles as the in-memory store.
type LocalStorageGateway struct {
	fs      afero.Fs
	baseDir string
	now     func() time.Time
}

func NewLocalStorageGateway(fs afero.Fs, baseDir string) (*LocalStorageGateway, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(filepath.Join(baseDir, "runs"), 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}
	return &LocalStorageGateway{fs: fs, baseDir: baseDir, now: time.Now}, nil
}

func (g *LocalStorageGateway) dir(requestID string, typ output.ArtifactType) string {
	return filepath.Join(g.baseDir, "runs", requestID, string(typ))
}

func (g *LocalStorageGateway) SaveArtifact(ctx context.Context, req output.SaveArtifactRequest) (*output.ArtifactMetadata, error) {
	if err := validateSave(req); err != nil {
		return nil, err
	}
	dir := g.dir(req.RequestID, req.ArtifactType)
	contentPath := filepath.Join(dir, "content")
	if err := file.WriteFileAtomic(g.fs, contentPath, req.Content, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact content: %w", err)
	}

	meta := output.ArtifactMetadata{
		ID:          artifactID(req.RequestID, req.ArtifactType),
		RequestID:   req.RequestID,
		Type:        req.ArtifactType,
		StoragePath: contentPath,
		ContentType: req.ContentType,
		Size:        int64(len(req.Content)),
		UploadedAt:  g.now().UTC(),
		Metadata:    req.Metadata,
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := file.WriteFileAtomic(g.fs, filepath.Join(dir, "metadata.json"), metaJSON, 0o644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	return &meta, nil
}

func (g *LocalStorageGateway) LoadArtifact(ctx context.Context, id string) (*output.Artifact, error) {
	requestID, typ, err := parseArtifactID(id)
	if err != nil {
		return nil, err
	}
	dir := g.dir(requestID, typ)

	meta, err := g.readMetadata(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, err
	}
	content, err := afero.ReadFile(g.fs, filepath.Join(dir, "content"))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return &output.Artifact{ID: id, Content: content, Metadata: *meta}, nil
}

// ListArtifacts returns metadata ordered by type; entries with unreadable metadata are skipped
func (g *LocalStorageGateway) ListArtifacts(ctx context.Context, requestID string) ([]*output.ArtifactMetadata, error) {
	runDir := filepath.Join(g.baseDir, "runs", requestID)
	entries, err := afero.ReadDir(g.fs, runDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*output.ArtifactMetadata{}, nil
		}
		return nil, fmt.Errorf("read run directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	list := make([]*output.ArtifactMetadata, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := g.readMetadata(filepath.Join(runDir, e.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		list = append(list, meta)
	}
	return list, nil
}

func (g *LocalStorageGateway) readMetadata(p string) (*output.ArtifactMetadata, error) {
	raw, err := afero.ReadFile(g.fs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, p)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta output.ArtifactMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &meta, nil
}
