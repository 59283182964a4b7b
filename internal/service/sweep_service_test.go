package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSweeper struct {
	olderThan time.Duration
	swept     int64
	calls     int
}

func (s *stubSweeper) SweepExpired(_ context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	s.calls++
	return s.swept, nil
}

func TestSweepOncePassesRetentions(t *testing.T) {
	expanded := &stubSweeper{swept: 5}
	clipboards := &stubSweeper{swept: 1}
	svc := NewSweepService(expanded, clipboards, SweepConfig{
		ExpandedRetention:  30 * 24 * time.Hour,
		ClipboardRetention: 24 * time.Hour,
	}, nil)

	svc.SweepOnce(context.Background())
	require.Equal(t, 30*24*time.Hour, expanded.olderThan)
	require.Equal(t, 24*time.Hour, clipboards.olderThan)
}

func TestSweepDefaultsRetentions(t *testing.T) {
	expanded := &stubSweeper{}
	clipboards := &stubSweeper{}
	svc := NewSweepService(expanded, clipboards, SweepConfig{}, nil)

	svc.SweepOnce(context.Background())
	require.Equal(t, 30*24*time.Hour, expanded.olderThan)
	require.Equal(t, 24*time.Hour, clipboards.olderThan)
}

func TestSweepLoopStops(t *testing.T) {
	expanded := &stubSweeper{}
	clipboards := &stubSweeper{}
	svc := NewSweepService(expanded, clipboards, SweepConfig{Interval: 5 * time.Millisecond}, nil)

	svc.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	svc.Stop()
	require.Positive(t, expanded.calls)
	require.Positive(t, clipboards.calls)
}
