package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openedu/filezone-api/internal/models"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
)

type stubLifecycleEntryStore struct {
	deleteZoneFn func(kind models.ZoneKind, ownerCode int64) (int64, error)
	deletedKinds []models.ZoneKind
	zoneCount    int64
	userDeletes  int
}

func (s *stubLifecycleEntryStore) DeleteZone(_ context.Context, kind models.ZoneKind, ownerCode int64) (int64, error) {
	s.deletedKinds = append(s.deletedKinds, kind)
	if s.deleteZoneFn != nil {
		return s.deleteZoneFn(kind, ownerCode)
	}
	return 0, nil
}

func (s *stubLifecycleEntryStore) DeleteUserFromZone(_ context.Context, _ models.Zone, _ int64) (int64, error) {
	s.userDeletes++
	return 2, nil
}

func (s *stubLifecycleEntryStore) CountZone(_ context.Context, _ models.Zone) (int64, error) {
	return s.zoneCount, nil
}

type stubLifecycleStateStore struct {
	zoneDeletes  int
	userDeletes  int
	deletedKinds []models.ZoneKind
	userZone     models.Zone
}

func (s *stubLifecycleStateStore) DeleteZone(_ context.Context, kind models.ZoneKind, _ int64) (int64, error) {
	s.zoneDeletes++
	s.deletedKinds = append(s.deletedKinds, kind)
	return 0, nil
}

func (s *stubLifecycleStateStore) DeleteUserFromZone(_ context.Context, zone models.Zone, _ int64) error {
	s.userDeletes++
	s.userZone = zone
	return nil
}

func (s *stubLifecycleStateStore) DeleteUser(_ context.Context, _ int64) error {
	s.userDeletes++
	return nil
}

type stubOwnerChecker struct {
	exists bool
}

func (s *stubOwnerChecker) OwnerExists(_ context.Context, _ models.HierarchyLevel, _ int64) (bool, error) {
	return s.exists, nil
}

type lifecycleFixture struct {
	svc        *LifecycleService
	entries    *stubLifecycleEntryStore
	expanded   *stubLifecycleStateStore
	clipboards *stubLifecycleStateStore
	visits     *stubLifecycleStateStore
	sizes      *stubLifecycleStateStore
}

func newLifecycleFixture(cfg LifecycleConfig) *lifecycleFixture {
	f := &lifecycleFixture{
		entries:    &stubLifecycleEntryStore{},
		expanded:   &stubLifecycleStateStore{},
		clipboards: &stubLifecycleStateStore{},
		visits:     &stubLifecycleStateStore{},
		sizes:      &stubLifecycleStateStore{},
	}
	f.svc = NewLifecycleService(f.entries, f.expanded, f.clipboards, f.visits, f.sizes,
		&stubOwnerChecker{}, cfg, nil)
	return f
}

func TestKindsForLevel(t *testing.T) {
	require.Nil(t, kindsForLevel(models.LevelSystem))
	require.ElementsMatch(t,
		[]models.ZoneKind{models.ZoneDegreeDocuments, models.ZoneDegreeShared},
		kindsForLevel(models.LevelDegree))
	// A course drags its nested personal sub-zones along.
	require.Contains(t, kindsForLevel(models.LevelCourse), models.ZoneUserWorks)
	require.Contains(t, kindsForLevel(models.LevelCourse), models.ZoneCourseMarks)
	require.NotContains(t, kindsForLevel(models.LevelCourse), models.ZoneBriefcase)
}

func TestPurgeZonesForOwnerCoversEveryStore(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})
	f.entries.deleteZoneFn = func(_ models.ZoneKind, _ int64) (int64, error) { return 3, nil }

	report, err := f.svc.PurgeZonesForOwner(context.Background(), models.LevelDegree, 12)
	require.NoError(t, err)
	require.Equal(t, StageDone, report.Stage)
	require.Equal(t, int64(6), report.EntriesRemoved)
	require.NotEmpty(t, report.RequestID)
	require.Equal(t, 2, f.expanded.zoneDeletes)
	require.Equal(t, 2, f.clipboards.zoneDeletes)
	require.Equal(t, 2, f.visits.zoneDeletes)
	require.Equal(t, 2, f.sizes.zoneDeletes)
}

func TestPurgeZonesForOwnerIsIdempotent(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	first, err := f.svc.PurgeZonesForOwner(context.Background(), models.LevelGroup, 5)
	require.NoError(t, err)
	require.Equal(t, StageDone, first.Stage)

	// Everything already gone; zero-row deletes still complete the run.
	second, err := f.svc.PurgeZonesForOwner(context.Background(), models.LevelGroup, 5)
	require.NoError(t, err)
	require.Equal(t, StageDone, second.Stage)
	require.Zero(t, second.EntriesRemoved)
}

func TestPurgeZonesForOwnerRetriesTransientFailures(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	calls := 0
	f.entries.deleteZoneFn = func(_ models.ZoneKind, _ int64) (int64, error) {
		calls++
		if calls == 1 {
			return 0, storageErr("purge", context.DeadlineExceeded)
		}
		return 1, nil
	}

	report, err := f.svc.PurgeZonesForOwner(context.Background(), models.LevelProject, 3)
	require.NoError(t, err)
	require.Equal(t, StageDone, report.Stage)
	require.GreaterOrEqual(t, calls, 2)
}

func TestPurgeZonesForOwnerGivesUpAfterBudget(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	f.entries.deleteZoneFn = func(_ models.ZoneKind, _ int64) (int64, error) {
		return 0, storageErr("purge", context.DeadlineExceeded)
	}

	report, err := f.svc.PurgeZonesForOwner(context.Background(), models.LevelProject, 3)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPurgeFailed.Code, appErrors.FromError(err).Code)
	require.Equal(t, StagePurgingIndex, report.Stage)
}

func TestPurgeZonesForOwnerRejectsUnknownLevel(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	_, err := f.svc.PurgeZonesForOwner(context.Background(), models.LevelSystem, 1)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPurgeUserFromZoneClearsUserState(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})
	zone := models.Zone{Kind: models.ZoneUserWorks, OwnerCode: 42, SecondaryOwner: 7}

	report, err := f.svc.PurgeUserFromZone(context.Background(), zone, 7)
	require.NoError(t, err)
	require.Equal(t, StageDone, report.Stage)
	require.Equal(t, int64(2), report.EntriesRemoved)
	require.Equal(t, 1, f.entries.userDeletes)
	require.Equal(t, 1, f.expanded.userDeletes)
	require.Equal(t, 1, f.clipboards.userDeletes)
	require.Equal(t, 1, f.visits.userDeletes)
	require.Equal(t, 1, f.sizes.userDeletes)
}

func TestPurgeUserFromZoneConflatesDependentKinds(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	// Last-visit rows for user assignments are stored under user works;
	// the expanded-folder table keeps these two kinds distinct.
	zone := models.Zone{Kind: models.ZoneUserAssignments, OwnerCode: 42, SecondaryOwner: 7}
	_, err := f.svc.PurgeUserFromZone(context.Background(), zone, 7)
	require.NoError(t, err)
	require.Equal(t, models.ZoneUserWorks, f.visits.userZone.Kind)
	require.Equal(t, models.ZoneUserAssignments, f.expanded.userZone.Kind)
}

func TestPurgeZonesForOwnerConflatesDependentKinds(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	// A project owns documents and assessment zones; the expanded-folder
	// table stores both under the documents kind.
	_, err := f.svc.PurgeZonesForOwner(context.Background(), models.LevelProject, 3)
	require.NoError(t, err)
	require.NotContains(t, f.expanded.deletedKinds, models.ZoneProjectAssessment)
	require.Contains(t, f.expanded.deletedKinds, models.ZoneProjectDocuments)
	require.ElementsMatch(t,
		[]models.ZoneKind{models.ZoneProjectDocuments, models.ZoneProjectAssessment},
		f.clipboards.deletedKinds)
}

func TestVerifyZoneEmptyReportsLeftovers(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})
	require.NoError(t, f.svc.VerifyZoneEmpty(context.Background(), testZone()))

	f.entries.zoneCount = 4
	err := f.svc.VerifyZoneEmpty(context.Background(), testZone())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInconsistentState.Code, appErrors.FromError(err).Code)
}
