package output

import (
	"context"
	"time"
)

// StorageGateway is the interface for run artifact archival
// Supports both local filesystem and S3
type StorageGateway interface {
	// SaveArtifact persists an artifact to storage
	SaveArtifact(ctx context.Context, req SaveArtifactRequest) (*ArtifactMetadata, error)

	// LoadArtifact retrieves an artifact from storage
	LoadArtifact(ctx context.Context, artifactID string) (*Artifact, error)

	// ListArtifacts lists artifacts recorded for a request
	ListArtifacts(ctx context.Context, requestID string) ([]*ArtifactMetadata, error)
}

// SaveArtifactRequest represents a request to save an artifact
type SaveArtifactRequest struct {
	RequestID    string            // Associated request ID
	ArtifactType ArtifactType      // Type of artifact
	Content      []byte            // Artifact content
	Metadata     map[string]string // Additional metadata
	ContentType  string            // MIME type (optional)
}

// ArtifactType represents the type of artifact
type ArtifactType string

const (
	ArtifactTypeTranscript ArtifactType = "transcript" // Event stream as JSON lines
	ArtifactTypePatch      ArtifactType = "patch"      // Applied edit set
)

// Artifact represents a stored artifact
type Artifact struct {
	ID       string           // Unique artifact ID
	Content  []byte           // Artifact content
	Metadata ArtifactMetadata // Artifact metadata
}

// ArtifactMetadata contains information about an artifact
type ArtifactMetadata struct {
	ID          string            `json:"id"`
	RequestID   string            `json:"request_id"`
	Type        ArtifactType      `json:"type"`
	StoragePath string            `json:"storage_path"` // e.g. s3://bucket/key
	ContentType string            `json:"content_type,omitempty"`
	Size        int64             `json:"size"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
