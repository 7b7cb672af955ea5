// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package provider_test

import (
	"context"
	"testing"
	"time"

	"github.com/mnemos-dev/mnemos/internal/provider"
	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T, cooldown time.Duration) *provider.HealthTracker {
	t.Helper()
	h, err := provider.NewHealthTracker(cooldown)
	require.NoError(t, err)
	return h
}

func TestHealthTracker_StartsHealthy(t *testing.T) {
	h := newTracker(t, 30*time.Second)
	assert.True(t, h.IsHealthy())
}

func TestHealthTracker_RejectsNonPositiveCooldown(t *testing.T) {
	_, err := provider.NewHealthTracker(0)
	require.Error(t, err)
	assert.True(t, mnemoserr.IsInvalidInput(err))
}

func TestHealthTracker_FailureMakesUnhealthy(t *testing.T) {
	h := newTracker(t, 30*time.Second)
	h.RecordFailure()
	assert.False(t, h.IsHealthy())
}

func TestHealthTracker_SuccessRestoresHealth(t *testing.T) {
	h := newTracker(t, 30*time.Second)
	h.RecordFailure()
	assert.False(t, h.IsHealthy())

	h.RecordSuccess()
	assert.True(t, h.IsHealthy())
}

func TestHealthTracker_CooldownExpiry(t *testing.T) {
	now := time.Now()
	h := newTracker(t, 10*time.Second)
	h.SetNowFunc(func() time.Time { return now })

	h.RecordFailure()
	assert.False(t, h.IsHealthy())

	// Advance time past cooldown.
	h.SetNowFunc(func() time.Time { return now.Add(11 * time.Second) })
	assert.True(t, h.IsHealthy(), "should recover after cooldown")
}

func TestHealthTracker_CooldownBoundary(t *testing.T) {
	cooldown := 10 * time.Second
	now := time.Now()

	tests := []struct {
		name        string
		elapsed     time.Duration
		wantHealthy bool
	}{
		{
			name:        "before cooldown",
			elapsed:     9 * time.Second,
			wantHealthy: false,
		},
		{
			name:        "at exact cooldown boundary",
			elapsed:     10 * time.Second,
			wantHealthy: true,
		},
		{
			name:        "after cooldown",
			elapsed:     11 * time.Second,
			wantHealthy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTracker(t, cooldown)
			h.SetNowFunc(func() time.Time { return now })

			h.RecordFailure()
			assert.False(t, h.IsHealthy(), "should be unhealthy immediately after failure")

			// Advance time by elapsed duration.
			h.SetNowFunc(func() time.Time { return now.Add(tt.elapsed) })

			got := h.IsHealthy()
			assert.Equal(t, tt.wantHealthy, got)
		})
	}
}

func TestHealthTracker_Metrics(t *testing.T) {
	now := time.Now()
	h := newTracker(t, 10*time.Second)
	h.SetNowFunc(func() time.Time { return now })

	m := h.HealthMetrics()
	assert.True(t, m.Available)
	assert.Zero(t, m.FailureCount)
	assert.Nil(t, m.LastFailureAt)
	assert.Nil(t, m.CooldownUntil)

	h.RecordFailure()
	h.RecordFailure()

	m = h.HealthMetrics()
	assert.False(t, m.Available)
	assert.Equal(t, int64(2), m.FailureCount)
	require.NotNil(t, m.LastFailureAt)
	assert.Equal(t, now, *m.LastFailureAt)
	require.NotNil(t, m.CooldownUntil)
	assert.Equal(t, now.Add(10*time.Second), *m.CooldownUntil)
}

func TestHealthTracker_ConcurrentRecordCalls(t *testing.T) {
	h := newTracker(t, 30*time.Second)

	const goroutines = 10
	const iterations = 100

	done := make(chan struct{})
	defer close(done)

	// Launch multiple goroutines calling RecordFailure and RecordSuccess concurrently.
	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < iterations; j++ {
				select {
				case <-done:
					return
				default:
					h.RecordFailure()
				}
			}
		}()
		go func() {
			for j := 0; j < iterations; j++ {
				select {
				case <-done:
					return
				default:
					h.RecordSuccess()
				}
			}
		}()
		go func() {
			for j := 0; j < iterations; j++ {
				select {
				case <-done:
					return
				default:
					_ = h.IsHealthy()
				}
			}
		}()
	}

	// Wait a bit for goroutines to finish their work.
	time.Sleep(100 * time.Millisecond)

	// Test passes if no data race is detected by `-race` flag.
	_ = h.IsHealthy()
}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Name() string    { return "stub" }
func (s *stubEmbedder) Dimensions() int { return 4 }
func (s *stubEmbedder) Close() error    { return nil }

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func TestTracked_RecordsOutcomes(t *testing.T) {
	h := newTracker(t, 30*time.Second)
	stub := &stubEmbedder{}
	tracked := provider.NewTracked(stub, h)

	_, err := tracked.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, h.IsHealthy())

	stub.err = mnemoserr.New(mnemoserr.CodeProviderUnavailable, "model not loaded")
	_, err = tracked.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, h.IsHealthy())

	stub.err = nil
	_, err = tracked.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, h.IsHealthy())
}

func TestTracked_InvalidInputDoesNotCount(t *testing.T) {
	h := newTracker(t, 30*time.Second)
	stub := &stubEmbedder{err: mnemoserr.New(mnemoserr.CodeIndexQueryInvalid, "empty text")}
	tracked := provider.NewTracked(stub, h)

	_, err := tracked.Embed(context.Background(), "")
	require.Error(t, err)
	assert.True(t, h.IsHealthy(), "caller mistakes must not trip provider health")
	assert.Zero(t, tracked.Metrics().FailureCount)
}
