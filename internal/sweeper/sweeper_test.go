package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// mockCleaner counts DeleteExpired calls
type mockCleaner struct {
	calls   atomic.Int32
	deleted int
	err     error
}

func (m *mockCleaner) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	m.calls.Add(1)
	return m.deleted, m.err
}

func TestNewSweeper_InvalidSchedule(t *testing.T) {
	s, err := NewSweeper(&mockCleaner{}, zap.NewNop(), "whenever")
	assert.Nil(t, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sweep schedule")
}

func TestSweeper_RunsImmediatelyAndOnSchedule(t *testing.T) {
	cleaner := &mockCleaner{deleted: 2}
	s, err := NewSweeper(cleaner, zap.NewNop(), "@every 1s")
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 1 }, 500*time.Millisecond, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
	s.Stop()

	after := cleaner.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, cleaner.calls.Load())
}

func TestSweeper_StopIsIdempotent(t *testing.T) {
	s, err := NewSweeper(&mockCleaner{}, zap.NewNop(), "@every 1h")
	require.NoError(t, err)
	s.Start()

	assert.NotPanics(t, func() {
		s.Stop()
		s.Stop()
	})
}

func TestSweeper_LogsOutcome(t *testing.T) {
	tests := []struct {
		name     string
		cleaner  *mockCleaner
		expected string
	}{
		{name: "failure", cleaner: &mockCleaner{err: errors.New("db down")}, expected: "Failed to purge expired revocations"},
		{name: "purged", cleaner: &mockCleaner{deleted: 3}, expected: "Purged expired revocations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			s, err := NewSweeper(tt.cleaner, zap.New(core), "@every 1h")
			require.NoError(t, err)

			s.sweep()

			require.Equal(t, 1, logs.FilterMessage(tt.expected).Len())
		})
	}
}

func TestSweeper_NothingToPurgeIsQuiet(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s, err := NewSweeper(&mockCleaner{}, zap.New(core), "@every 1h")
	require.NoError(t, err)

	s.sweep()
	assert.Equal(t, 0, logs.Len())
}
