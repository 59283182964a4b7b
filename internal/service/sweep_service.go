package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type expandedSweeper interface {
	SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type clipboardSweeper interface {
	SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SweepConfig holds the retention windows and the tick interval.
type SweepConfig struct {
	ExpandedRetention  time.Duration
	ClipboardRetention time.Duration
	Interval           time.Duration
}

// SweepService expires stale UI state on a timer: expanded-folder rows
// untouched for the long retention window and clipboard slots past the
// short one. One ticker drives both sweeps.
type SweepService struct {
	expanded   expandedSweeper
	clipboards clipboardSweeper
	cfg        SweepConfig
	metrics    *MetricsService
	logger     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweepService constructs the service.
func NewSweepService(expanded expandedSweeper, clipboards clipboardSweeper, cfg SweepConfig, logger *zap.Logger) *SweepService {
	if cfg.ExpandedRetention <= 0 {
		cfg.ExpandedRetention = 30 * 24 * time.Hour
	}
	if cfg.ClipboardRetention <= 0 {
		cfg.ClipboardRetention = 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepService{
		expanded:   expanded,
		clipboards: clipboards,
		cfg:        cfg,
		logger:     logger,
	}
}

// WithMetrics attaches the instrumentation sink.
func (s *SweepService) WithMetrics(m *MetricsService) *SweepService {
	s.metrics = m
	return s
}

// Start launches the sweep loop. Call Stop on shutdown.
func (s *SweepService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
	s.logger.Info("sweep loop started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("expanded_retention", s.cfg.ExpandedRetention),
		zap.Duration("clipboard_retention", s.cfg.ClipboardRetention))
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *SweepService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *SweepService) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs both sweeps immediately. Failures are logged and left for
// the next tick.
func (s *SweepService) SweepOnce(ctx context.Context) {
	folders, err := s.expanded.SweepExpired(ctx, s.cfg.ExpandedRetention)
	if err != nil {
		s.logger.Error("expanded folder sweep failed", zap.Error(err))
	}
	clipboards, err := s.clipboards.SweepExpired(ctx, s.cfg.ClipboardRetention)
	if err != nil {
		s.logger.Error("clipboard sweep failed", zap.Error(err))
	}
	s.metrics.ObserveSweep("expanded_folders", folders)
	s.metrics.ObserveSweep("clipboards", clipboards)
	if folders > 0 || clipboards > 0 {
		s.logger.Info("stale ui state swept",
			zap.Int64("expanded_folders", folders),
			zap.Int64("clipboards", clipboards))
	}
}
