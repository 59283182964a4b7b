package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openedu/filezone-api/internal/models"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
)

// PurgeStage names one step of the staged zone teardown.
type PurgeStage string

const (
	StageRequested      PurgeStage = "requested"
	StageValidating     PurgeStage = "validating"
	StagePurgingUIState PurgeStage = "purging_ui_state"
	StagePurgingIndex   PurgeStage = "purging_index"
	StagePurgingSizes   PurgeStage = "purging_sizes"
	StageDone           PurgeStage = "done"
)

// PurgeReport summarises one purge run.
type PurgeReport struct {
	RequestID      string                `json:"requestId"`
	Level          models.HierarchyLevel `json:"level"`
	OwnerCode      int64                 `json:"ownerCode"`
	Kinds          []models.ZoneKind     `json:"kinds"`
	Stage          PurgeStage            `json:"stage"`
	EntriesRemoved int64                 `json:"entriesRemoved"`
	StartedAt      time.Time             `json:"startedAt"`
	FinishedAt     time.Time             `json:"finishedAt"`
}

type lifecycleEntryStore interface {
	DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error)
	DeleteUserFromZone(ctx context.Context, zone models.Zone, userCode int64) (int64, error)
	CountZone(ctx context.Context, zone models.Zone) (int64, error)
}

type lifecycleExpandedStore interface {
	DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error)
	DeleteUserFromZone(ctx context.Context, zone models.Zone, userCode int64) error
}

type lifecycleClipboardStore interface {
	DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error)
	DeleteUser(ctx context.Context, userCode int64) error
}

type lifecycleVisitStore interface {
	DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error)
	DeleteUserFromZone(ctx context.Context, zone models.Zone, userCode int64) error
}

type lifecycleSizeStore interface {
	DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error)
	DeleteUserFromZone(ctx context.Context, zone models.Zone, userCode int64) error
}

type ownerChecker interface {
	OwnerExists(ctx context.Context, level models.HierarchyLevel, code int64) (bool, error)
}

// LifecycleConfig bounds the retry behaviour of purge stages.
type LifecycleConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// LifecycleService tears down zone state when the owning hierarchy entity
// goes away. The purge runs in stages, dependent UI state first so that a
// crash mid-purge never leaves view state pointing at live entries. Every
// stage deletes by predicate and treats zero affected rows as success, so
// a re-run after a partial failure completes the remainder.
type LifecycleService struct {
	entries    lifecycleEntryStore
	expanded   lifecycleExpandedStore
	clipboards lifecycleClipboardStore
	visits     lifecycleVisitStore
	sizes      lifecycleSizeStore
	hierarchy  ownerChecker
	cfg        LifecycleConfig
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(entries lifecycleEntryStore, expanded lifecycleExpandedStore, clipboards lifecycleClipboardStore, visits lifecycleVisitStore, sizes lifecycleSizeStore, hierarchy ownerChecker, cfg LifecycleConfig, logger *zap.Logger) *LifecycleService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		entries:    entries,
		expanded:   expanded,
		clipboards: clipboards,
		visits:     visits,
		sizes:      sizes,
		hierarchy:  hierarchy,
		cfg:        cfg,
		logger:     logger,
	}
}

// WithMetrics attaches the instrumentation sink.
func (s *LifecycleService) WithMetrics(m *MetricsService) *LifecycleService {
	s.metrics = m
	return s
}

// kindsForLevel lists the zone kinds owned by an entity of the level. A
// course also owns the personal assignment and works sub-zones nested in it.
func kindsForLevel(level models.HierarchyLevel) []models.ZoneKind {
	switch level {
	case models.LevelInstitution:
		return []models.ZoneKind{models.ZoneInstitutionDocuments, models.ZoneInstitutionShared}
	case models.LevelCenter:
		return []models.ZoneKind{models.ZoneCenterDocuments, models.ZoneCenterShared}
	case models.LevelDegree:
		return []models.ZoneKind{models.ZoneDegreeDocuments, models.ZoneDegreeShared}
	case models.LevelCourse:
		return append(models.KindsInGroup(models.GroupCourseZones),
			models.KindsInGroup(models.GroupPersonalZones)...)
	case models.LevelGroup:
		return models.KindsInGroup(models.GroupGroupZones)
	case models.LevelProject:
		return []models.ZoneKind{models.ZoneProjectDocuments, models.ZoneProjectAssessment}
	default:
		return nil
	}
}

// retry runs fn up to the configured attempt budget, backing off between
// attempts, as long as failures stay transient.
func (s *LifecycleService) retry(ctx context.Context, requestID string, stage PurgeStage, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !appErrors.Retryable(err) {
			return err
		}
		s.logger.Warn("purge stage failed, retrying",
			zap.String("request_id", requestID),
			zap.String("stage", string(stage)),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RetryDelay):
		}
	}
	return err
}

// PurgeZonesForOwner removes every trace of the owner's zones: UI state,
// the index entries with their view counters, and the size snapshots.
// Running it twice is a no-op the second time.
func (s *LifecycleService) PurgeZonesForOwner(ctx context.Context, level models.HierarchyLevel, ownerCode int64) (*PurgeReport, error) {
	kinds := kindsForLevel(level)
	if len(kinds) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("level %q owns no zones", level))
	}
	if ownerCode <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner code must be positive")
	}

	report := &PurgeReport{
		RequestID: uuid.NewString(),
		Level:     level,
		OwnerCode: ownerCode,
		Kinds:     kinds,
		Stage:     StageRequested,
		StartedAt: time.Now().UTC(),
	}
	log := s.logger.With(
		zap.String("request_id", report.RequestID),
		zap.String("level", string(level)),
		zap.Int64("owner", ownerCode))
	log.Info("zone purge requested")

	// The owner is expected to be gone already; a still-present owner means
	// the caller purged too early, not that the purge cannot run.
	report.Stage = StageValidating
	exists, err := s.hierarchy.OwnerExists(ctx, level, ownerCode)
	if err != nil {
		return report, storageErr("validate purge owner", err)
	}
	if exists {
		log.Warn("purging zones of a still-existing owner")
	}

	// Dependent stores key their rows by conflated kinds.
	report.Stage = StagePurgingUIState
	err = s.retry(ctx, report.RequestID, report.Stage, func() error {
		for _, kind := range kinds {
			if _, err := s.expanded.DeleteZone(ctx, models.ZoneKindForExpandedFolders(kind), ownerCode); err != nil {
				return storageErr("purge expanded folders", err)
			}
			if _, err := s.clipboards.DeleteZone(ctx, kind, ownerCode); err != nil {
				return storageErr("purge clipboards", err)
			}
			if _, err := s.visits.DeleteZone(ctx, models.ZoneKindForLastVisit(kind), ownerCode); err != nil {
				return storageErr("purge last visits", err)
			}
		}
		return nil
	})
	if err != nil {
		return report, s.failPurge(report, err)
	}

	report.Stage = StagePurgingIndex
	err = s.retry(ctx, report.RequestID, report.Stage, func() error {
		for _, kind := range kinds {
			removed, err := s.entries.DeleteZone(ctx, kind, ownerCode)
			if err != nil {
				return storageErr("purge index entries", err)
			}
			report.EntriesRemoved += removed
		}
		return nil
	})
	if err != nil {
		return report, s.failPurge(report, err)
	}

	report.Stage = StagePurgingSizes
	err = s.retry(ctx, report.RequestID, report.Stage, func() error {
		for _, kind := range kinds {
			if _, err := s.sizes.DeleteZone(ctx, kind, ownerCode); err != nil {
				return storageErr("purge size snapshots", err)
			}
		}
		return nil
	})
	if err != nil {
		return report, s.failPurge(report, err)
	}

	report.Stage = StageDone
	report.FinishedAt = time.Now().UTC()
	s.metrics.ObservePurge(true)
	log.Info("zone purge done",
		zap.Int64("entries_removed", report.EntriesRemoved),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// PurgeUserFromZone removes one user's footprint inside a shared zone: the
// personal sub-zone entries keyed by the secondary owner, plus the user's
// expansion state, clipboard and visit marker for that zone. Used when a
// user is unenrolled while the zone itself lives on.
func (s *LifecycleService) PurgeUserFromZone(ctx context.Context, zone models.Zone, userCode int64) (*PurgeReport, error) {
	if !zone.Kind.Known() || zone.OwnerCode <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidZone,
			fmt.Sprintf("invalid zone %s owner=%d", zone.Kind, zone.OwnerCode))
	}
	if userCode <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user code must be positive")
	}

	report := &PurgeReport{
		RequestID: uuid.NewString(),
		Level:     models.LevelCourse,
		OwnerCode: zone.OwnerCode,
		Kinds:     []models.ZoneKind{zone.Kind},
		Stage:     StageRequested,
		StartedAt: time.Now().UTC(),
	}
	log := s.logger.With(
		zap.String("request_id", report.RequestID),
		zap.String("zone", zone.Kind.String()),
		zap.Int64("owner", zone.OwnerCode),
		zap.Int64("user", userCode))

	// Dependent stores key their rows by conflated kinds.
	report.Stage = StagePurgingUIState
	err := s.retry(ctx, report.RequestID, report.Stage, func() error {
		if err := s.expanded.DeleteUserFromZone(ctx, forExpanded(zone), userCode); err != nil {
			return storageErr("purge user expanded folders", err)
		}
		if err := s.clipboards.DeleteUser(ctx, userCode); err != nil {
			return storageErr("purge user clipboard", err)
		}
		if err := s.visits.DeleteUserFromZone(ctx, forLastVisit(zone), userCode); err != nil {
			return storageErr("purge user last visit", err)
		}
		return nil
	})
	if err != nil {
		return report, s.failPurge(report, err)
	}

	report.Stage = StagePurgingIndex
	err = s.retry(ctx, report.RequestID, report.Stage, func() error {
		removed, err := s.entries.DeleteUserFromZone(ctx, zone, userCode)
		if err != nil {
			return storageErr("purge user index entries", err)
		}
		report.EntriesRemoved += removed
		return nil
	})
	if err != nil {
		return report, s.failPurge(report, err)
	}

	report.Stage = StagePurgingSizes
	err = s.retry(ctx, report.RequestID, report.Stage, func() error {
		if err := s.sizes.DeleteUserFromZone(ctx, zone, userCode); err != nil {
			return storageErr("purge user size snapshots", err)
		}
		return nil
	})
	if err != nil {
		return report, s.failPurge(report, err)
	}

	report.Stage = StageDone
	report.FinishedAt = time.Now().UTC()
	s.metrics.ObservePurge(true)
	log.Info("user purge done", zap.Int64("entries_removed", report.EntriesRemoved))
	return report, nil
}

// VerifyZoneEmpty reports leftovers after a purge, the consistency check
// run before the owning entity row itself is dropped.
func (s *LifecycleService) VerifyZoneEmpty(ctx context.Context, zone models.Zone) error {
	count, err := s.entries.CountZone(ctx, zone)
	if err != nil {
		return storageErr("verify zone empty", err)
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrInconsistentState,
			fmt.Sprintf("%d entries left in zone %s owner=%d", count, zone.Kind, zone.OwnerCode))
	}
	return nil
}

func (s *LifecycleService) failPurge(report *PurgeReport, err error) error {
	s.metrics.ObservePurge(false)
	s.logger.Error("zone purge failed",
		zap.String("request_id", report.RequestID),
		zap.String("stage", string(report.Stage)),
		zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrPurgeFailed.Code, appErrors.ErrPurgeFailed.Status,
		fmt.Sprintf("purge %s stalled at stage %s", report.RequestID, report.Stage))
}
