package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

func TestLocalStorageGateway_SaveLoadList(t *testing.T) {
	fs := afero.NewMemMapFs()
	gw, err := NewLocalStorageGateway(fs, "/home/.deepatch/artifacts")
	require.NoError(t, err)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	gw.now = func() time.Time { return fixed }
	ctx := context.Background()

	meta, err := gw.SaveArtifact(ctx, output.SaveArtifactRequest{
		RequestID:    testRequestID,
		ArtifactType: output.ArtifactTypePatch,
		Content:      []byte(`[{"path":"app.py"}]`),
		ContentType:  "application/json",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/.deepatch/artifacts/runs", testRequestID, "patch", "content"), meta.StoragePath)
	assert.Equal(t, fixed, meta.UploadedAt)

	art, err := gw.LoadArtifact(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, `[{"path":"app.py"}]`, string(art.Content))
	assert.Equal(t, int64(19), art.Metadata.Size)

	list, err := gw.ListArtifacts(ctx, testRequestID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, meta.ID, list[0].ID)
}

func TestLocalStorageGateway_Missing(t *testing.T) {
	gw, err := NewLocalStorageGateway(afero.NewMemMapFs(), "/base")
	require.NoError(t, err)

	list, err := gw.ListArtifacts(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = gw.LoadArtifact(context.Background(), testRequestID+"-transcript")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLocalStorageGateway_OverwritesSameType(t *testing.T) {
	gw, err := NewLocalStorageGateway(afero.NewMemMapFs(), "/base")
	require.NoError(t, err)
	ctx := context.Background()

	for _, body := range []string{"first", "second"} {
		_, err := gw.SaveArtifact(ctx, output.SaveArtifactRequest{RequestID: testRequestID, ArtifactType: output.ArtifactTypePatch, Content: []byte(body)})
		require.NoError(t, err)
	}
	art, err := gw.LoadArtifact(ctx, testRequestID+"-patch")
	require.NoError(t, err)
	assert.Equal(t, "second", string(art.Content))
}
