package app

import (
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/buildinfo"
)

// Health represents the service status reported by /health
type Health struct {
	TS        string                   `json:"ts"`
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Providers []string                 `json:"providers"`
	Sandbox   string                   `json:"sandbox"`
	Slots     map[string]ProviderSlots `json:"slots,omitempty"`
}

// ProviderSlots is the concurrency usage of one capped provider
type ProviderSlots struct {
	InUse     int  `json:"in_use"`
	Max       int  `json:"max"`
	Saturated bool `json:"saturated"`
}

// NewHealth builds a healthy status snapshot. slots may be nil.
func NewHealth(providers []string, sandbox string, slots map[string]ProviderSlots) Health {
	return Health{
		TS:        time.Now().UTC().Format(time.RFC3339Nano),
		Status:    "healthy",
		Version:   buildinfo.GetVersion(),
		Providers: providers,
		Sandbox:   sandbox,
		Slots:     slots,
	}
}
