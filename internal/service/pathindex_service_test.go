package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/openedu/filezone-api/internal/models"
	"github.com/openedu/filezone-api/internal/repository"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
)

type stubEntryStore struct {
	db *sqlx.DB

	insertFn        func(entry *models.FileEntry, requireUnique bool) (int64, error)
	resolveByPathFn func(zone models.Zone, path string, publicOnly bool) (*models.FileEntry, error)
	setVisibilityFn func(id int64, public bool, license models.License) error

	renamedSubtree bool
	removedSubtree int64
}

func (s *stubEntryStore) Insert(_ context.Context, entry *models.FileEntry, requireUnique bool) (int64, error) {
	if s.insertFn != nil {
		return s.insertFn(entry, requireUnique)
	}
	return 1, nil
}

func (s *stubEntryStore) ResolveByPath(_ context.Context, zone models.Zone, path string, publicOnly bool) (*models.FileEntry, error) {
	if s.resolveByPathFn != nil {
		return s.resolveByPathFn(zone, path, publicOnly)
	}
	return nil, nil
}

func (s *stubEntryStore) ResolveByID(_ context.Context, _ int64) (*models.FileEntry, error) {
	return nil, nil
}

func (s *stubEntryStore) RenameOne(_ context.Context, _ *sqlx.Tx, _ models.Zone, _, _ string) error {
	return nil
}

func (s *stubEntryStore) RenameSubtree(_ context.Context, _ *sqlx.Tx, _ models.Zone, _, _ string) error {
	s.renamedSubtree = true
	return nil
}

func (s *stubEntryStore) RemoveOne(_ context.Context, _ *sqlx.Tx, _ models.Zone, _ string) (int64, error) {
	return 1, nil
}

func (s *stubEntryStore) RemoveSubtree(_ context.Context, _ *sqlx.Tx, _ models.Zone, _ string) (int64, error) {
	return s.removedSubtree, nil
}

func (s *stubEntryStore) SetVisibility(_ context.Context, id int64, public bool, license models.License) error {
	if s.setVisibilityFn != nil {
		return s.setVisibilityFn(id, public, license)
	}
	return nil
}

func (s *stubEntryStore) SetHidden(_ context.Context, _ models.Zone, _ string, _ bool) error {
	return nil
}

func (s *stubEntryStore) IsHiddenAtOrAbove(_ context.Context, _ models.Zone, _ string) (bool, error) {
	return false, nil
}

func (s *stubEntryStore) HasPublicDescendant(_ context.Context, _ models.Zone, _ string) (bool, error) {
	return false, nil
}

func (s *stubEntryStore) CountByPublisher(_ context.Context, _ int64, _ bool) (int64, error) {
	return 0, nil
}

func (s *stubEntryStore) CountByLicense(_ context.Context, _ []models.ZoneKind) ([]models.LicenseCount, error) {
	return nil, nil
}

func (s *stubEntryStore) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, nil)
}

type stubPathStore struct {
	renamed bool
	removed bool
	zone    models.Zone
}

func (s *stubPathStore) RenamePrefix(_ context.Context, _ *sqlx.Tx, zone models.Zone, _, _ string) error {
	s.renamed = true
	s.zone = zone
	return nil
}

func (s *stubPathStore) RemovePrefix(_ context.Context, _ *sqlx.Tx, zone models.Zone, _ string) error {
	s.removed = true
	s.zone = zone
	return nil
}

type stubScheduler struct {
	zones []models.Zone
}

func (s *stubScheduler) ScheduleRecompute(zone models.Zone) {
	s.zones = append(s.zones, zone)
}

func txMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func testZone() models.Zone {
	return models.Zone{Kind: models.ZoneCourseDocuments, OwnerCode: 42}
}

func TestPathIndexAddEntryRejectsInvalidZone(t *testing.T) {
	svc := NewPathIndexService(&stubEntryStore{}, &stubPathStore{}, &stubPathStore{}, nil, nil)

	_, err := svc.AddEntry(context.Background(), models.Zone{Kind: models.ZoneCourseDocuments}, "a.txt",
		models.EntryFile, 7, false, models.LicenseDefault, 0, false)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidZone.Code, appErrors.FromError(err).Code)

	// Personal zones additionally need the user code.
	_, err = svc.AddEntry(context.Background(), models.Zone{Kind: models.ZoneBriefcase, OwnerCode: 7}, "a.txt",
		models.EntryFile, 7, false, models.LicenseDefault, 0, false)
	require.Equal(t, appErrors.ErrInvalidZone.Code, appErrors.FromError(err).Code)
}

func TestPathIndexAddEntryDefaultsLicense(t *testing.T) {
	var inserted *models.FileEntry
	entries := &stubEntryStore{insertFn: func(entry *models.FileEntry, _ bool) (int64, error) {
		inserted = entry
		return 5, nil
	}}
	sched := &stubScheduler{}
	svc := NewPathIndexService(entries, &stubPathStore{}, &stubPathStore{}, sched, nil)

	id, err := svc.AddEntry(context.Background(), testZone(), "/docs/a.txt/",
		models.EntryFile, 7, false, 0, 128, false)
	require.NoError(t, err)
	require.Equal(t, int64(5), id)
	require.Equal(t, "docs/a.txt", inserted.Path)
	require.Equal(t, models.LicenseDefault, inserted.License)
	require.Equal(t, int64(128), inserted.SizeBytes)
	require.Len(t, sched.zones, 1)
}

func TestPathIndexAddEntryDuplicateIntent(t *testing.T) {
	entries := &stubEntryStore{insertFn: func(_ *models.FileEntry, _ bool) (int64, error) {
		return 0, repository.ErrDuplicate
	}}
	svc := NewPathIndexService(entries, &stubPathStore{}, &stubPathStore{}, nil, nil)

	_, err := svc.AddEntry(context.Background(), testZone(), "docs/a.txt",
		models.EntryFile, 7, false, models.LicenseDefault, 0, true)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrDuplicateIntent.Code, appErrors.FromError(err).Code)
}

func TestPathIndexAddEntryUniqueSerializesPerZone(t *testing.T) {
	svc := NewPathIndexService(&stubEntryStore{}, &stubPathStore{}, &stubPathStore{}, nil, nil)
	zone := testZone()

	lock := svc.zoneLock(zone)
	lock.Lock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.AddEntry(context.Background(), zone, "docs/a.txt",
			models.EntryFile, 7, false, models.LicenseDefault, 0, true)
	}()

	select {
	case <-done:
		t.Fatal("unique insert ran while the zone was locked")
	case <-time.After(20 * time.Millisecond):
	}

	lock.Unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unique insert never acquired the zone lock")
	}
}

func TestPathIndexAddEntryStorageFailureIsRetryable(t *testing.T) {
	entries := &stubEntryStore{insertFn: func(_ *models.FileEntry, _ bool) (int64, error) {
		return 0, errors.New("connection reset")
	}}
	svc := NewPathIndexService(entries, &stubPathStore{}, &stubPathStore{}, nil, nil)

	_, err := svc.AddEntry(context.Background(), testZone(), "docs/a.txt",
		models.EntryFile, 7, false, models.LicenseDefault, 0, false)
	require.Error(t, err)
	require.True(t, appErrors.Retryable(err))
}

func TestPathIndexRenameSubtreeUpdatesDependentStores(t *testing.T) {
	db, mock, cleanup := txMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	entries := &stubEntryStore{db: db}
	expanded := &stubPathStore{}
	clipboards := &stubPathStore{}
	sched := &stubScheduler{}
	svc := NewPathIndexService(entries, expanded, clipboards, sched, nil)

	err := svc.RenameSubtree(context.Background(), testZone(), "a/b", "a/c")
	require.NoError(t, err)
	require.True(t, entries.renamedSubtree)
	require.True(t, expanded.renamed)
	require.True(t, clipboards.renamed)
	require.Equal(t, []models.Zone{testZone()}, sched.zones)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPathIndexRenameSubtreeConflatesExpandedKind(t *testing.T) {
	db, mock, cleanup := txMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	entries := &stubEntryStore{db: db}
	expanded := &stubPathStore{}
	clipboards := &stubPathStore{}
	svc := NewPathIndexService(entries, expanded, clipboards, nil, nil)

	// Expanded-folder rows for project assessment live under the project
	// documents kind; the clipboard keeps kinds distinct.
	zone := models.Zone{Kind: models.ZoneProjectAssessment, OwnerCode: 31}
	err := svc.RenameSubtree(context.Background(), zone, "reports/q1", "reports/q2")
	require.NoError(t, err)
	require.Equal(t, models.ZoneProjectDocuments, expanded.zone.Kind)
	require.Equal(t, models.ZoneProjectAssessment, clipboards.zone.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPathIndexRemoveSubtreeConflatesExpandedKind(t *testing.T) {
	db, mock, cleanup := txMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	entries := &stubEntryStore{db: db}
	expanded := &stubPathStore{}
	svc := NewPathIndexService(entries, expanded, &stubPathStore{}, nil, nil)

	zone := models.Zone{Kind: models.ZoneProjectAssessment, OwnerCode: 31}
	_, err := svc.RemoveSubtree(context.Background(), zone, "reports/q1")
	require.NoError(t, err)
	require.Equal(t, models.ZoneProjectDocuments, expanded.zone.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPathIndexRenameSubtreeRejectsEmptyPrefix(t *testing.T) {
	svc := NewPathIndexService(&stubEntryStore{}, &stubPathStore{}, &stubPathStore{}, nil, nil)

	err := svc.RenameSubtree(context.Background(), testZone(), "/", "a/c")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPathIndexRemoveSubtreeReportsCount(t *testing.T) {
	db, mock, cleanup := txMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	entries := &stubEntryStore{db: db, removedSubtree: 4}
	expanded := &stubPathStore{}
	clipboards := &stubPathStore{}
	svc := NewPathIndexService(entries, expanded, clipboards, nil, nil)

	removed, err := svc.RemoveSubtree(context.Background(), testZone(), "docs/unit1")
	require.NoError(t, err)
	require.Equal(t, int64(4), removed)
	require.True(t, expanded.removed)
	require.True(t, clipboards.removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPathIndexSetVisibilityMissingEntry(t *testing.T) {
	entries := &stubEntryStore{setVisibilityFn: func(_ int64, _ bool, _ models.License) error {
		return sql.ErrNoRows
	}}
	svc := NewPathIndexService(entries, &stubPathStore{}, &stubPathStore{}, nil, nil)

	err := svc.SetVisibility(context.Background(), 99, true, models.LicenseCCBY)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
