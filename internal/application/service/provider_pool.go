package service

import (
	"context"
	"fmt"
	"sync"
)

// ProviderPool caps concurrent calls per provider across all in-flight requests.
// Providers without a limit are never throttled.
type ProviderPool struct {
	mu    sync.Mutex
	slots map[string]chan struct{} // provider -> semaphore
}

// NewProviderPool creates a pool; limits <= 0 are ignored
func NewProviderPool(limits map[string]int) *ProviderPool {
	p := &ProviderPool{slots: make(map[string]chan struct{})}
	for provider, max := range limits {
		if max > 0 {
			p.slots[provider] = make(chan struct{}, max)
		}
	}
	return p
}

func (p *ProviderPool) semaphore(provider string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[provider]
}

// Acquire blocks until provider has a free slot or ctx is done
func (p *ProviderPool) Acquire(ctx context.Context, provider string) error {
	sem := p.semaphore(provider)
	if sem == nil {
		return nil
	}
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for a %s slot: %w", provider, ctx.Err())
	}
}

// TryAcquire takes a slot without waiting. Returns false if the pool is full.
func (p *ProviderPool) TryAcquire(provider string) bool {
	sem := p.semaphore(provider)
	if sem == nil {
		return true
	}
	select {
	case sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire
func (p *ProviderPool) Release(provider string) {
	sem := p.semaphore(provider)
	if sem == nil {
		return
	}
	select {
	case <-sem:
	default:
	}
}

// Stats returns usage for every limited provider
func (p *ProviderPool) Stats() map[string]ProviderStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make(map[string]ProviderStats, len(p.slots))
	for provider, sem := range p.slots {
		stats[provider] = ProviderStats{Provider: provider, Current: len(sem), Max: cap(sem)}
	}
	return stats
}

// ProviderStats represents usage statistics for a single provider
type ProviderStats struct {
	Provider string `json:"provider"`
	Current  int    `json:"current"`
	Max      int    `json:"max"`
}

// IsAvailable checks if the provider has available slots
func (s ProviderStats) IsAvailable() bool {
	return s.Current < s.Max
}
