package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

// ErrArtifactNotFound is returned by LoadArtifact for unknown ids
var ErrArtifactNotFound = errors.New("artifact not found")

// Each request stores at most one artifact per type, so the id is derived from both.
// Request ids are ULIDs and never contain "-".
func artifactID(requestID string, typ output.ArtifactType) string {
	return requestID + "-" + string(typ)
}

func parseArtifactID(id string) (requestID string, typ output.ArtifactType, err error) {
	req, t, ok := strings.Cut(id, "-")
	if !ok || req == "" || t == "" || strings.ContainsAny(id, `/\.`) {
		return "", "", fmt.Errorf("%w: malformed id %q", ErrArtifactNotFound, id)
	}
	return req, output.ArtifactType(t), nil
}

func validateSave(req output.SaveArtifactRequest) error {
	if req.RequestID == "" || strings.ContainsAny(req.RequestID, `/\.-`) {
		return fmt.Errorf("invalid request id %q", req.RequestID)
	}
	if req.ArtifactType == "" || strings.ContainsAny(string(req.ArtifactType), `/\.`) {
		return fmt.Errorf("invalid artifact type %q", req.ArtifactType)
	}
	return nil
}
