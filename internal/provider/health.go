// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package provider

import (
	"context"
	"sync"
	"time"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
	"github.com/mnemos-dev/mnemos/pkg/health"
)

// HealthMetrics is an alias for health.Metrics, preserved so callers outside
// this package serialize the same snapshot shape the status endpoint exposes.
type HealthMetrics = health.Metrics

// HealthTracker provides simple health state tracking for an embedding
// provider. A provider is considered healthy until RecordFailure is called.
// After a failure, the provider is marked unhealthy for a cooldown period,
// after which it becomes available again to allow recovery.
type HealthTracker struct {
	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	cooldown     time.Duration
	failureCount int64
	nowFunc      func() time.Time // for testing
}

// DefaultHealthCooldown is the duration after which an unhealthy provider
// becomes eligible for retry.
const DefaultHealthCooldown = 30 * time.Second

// NewHealthTracker creates a HealthTracker that starts healthy.
// Returns an error if cooldown is zero or negative.
func NewHealthTracker(cooldown time.Duration) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	return &HealthTracker{
		healthy:  true,
		cooldown: cooldown,
		nowFunc:  time.Now,
	}, nil
}

// isHealthyLocked reports whether the provider is healthy or the cooldown
// has elapsed. The caller MUST hold at least h.mu.RLock.
func (h *HealthTracker) isHealthyLocked() bool {
	if h.healthy {
		return true
	}
	// Allow retry after cooldown expires.
	return h.nowFunc().Sub(h.failedAt) >= h.cooldown
}

// IsHealthy returns true if the provider is healthy or the cooldown has elapsed.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isHealthyLocked()
}

// RecordSuccess marks the provider as healthy.
func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.healthy = true
	h.mu.Unlock()
}

// RecordFailure marks the provider as unhealthy and increments the
// cumulative failure count.
func (h *HealthTracker) RecordFailure() {
	h.mu.Lock()
	h.healthy = false
	h.failedAt = h.nowFunc()
	h.failureCount++
	h.mu.Unlock()
}

// SetNowFunc overrides the time source (for testing).
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}

// HealthMetrics returns a point-in-time snapshot of the tracker's state.
func (h *HealthTracker) HealthMetrics() HealthMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := HealthMetrics{
		FailureCount: h.failureCount,
		Available:    h.isHealthyLocked(),
	}
	if !h.failedAt.IsZero() {
		failedAt := h.failedAt
		m.LastFailureAt = &failedAt
		if !h.healthy {
			until := h.failedAt.Add(h.cooldown)
			m.CooldownUntil = &until
		}
	}
	return m
}

// Tracked wraps an Embedder and records call outcomes on a HealthTracker so
// the status endpoint can report provider availability without probing.
type Tracked struct {
	embedder Embedder
	tracker  *HealthTracker
}

// NewTracked wraps embedder with outcome tracking.
func NewTracked(embedder Embedder, tracker *HealthTracker) *Tracked {
	return &Tracked{embedder: embedder, tracker: tracker}
}

func (t *Tracked) Name() string { return t.embedder.Name() }

func (t *Tracked) Dimensions() int { return t.embedder.Dimensions() }

func (t *Tracked) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := t.embedder.Embed(ctx, text)
	t.record(err)
	return vec, err
}

func (t *Tracked) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := t.embedder.EmbedBatch(ctx, texts)
	t.record(err)
	return vecs, err
}

func (t *Tracked) Close() error { return t.embedder.Close() }

// Metrics returns the tracker's current snapshot.
func (t *Tracked) Metrics() HealthMetrics {
	return t.tracker.HealthMetrics()
}

// record classifies an error as a provider outcome. Invalid-input failures
// are the caller's fault and do not count against provider health.
func (t *Tracked) record(err error) {
	switch {
	case err == nil:
		t.tracker.RecordSuccess()
	case mnemoserr.IsInvalidInput(err):
		// leave health untouched
	default:
		t.tracker.RecordFailure()
	}
}
