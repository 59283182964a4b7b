package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/openedu/filezone-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func entryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "zone_kind", "owner_code", "secondary_owner", "path", "entry_kind",
		"publisher_id", "hidden", "public", "license", "size_bytes", "created_at",
	})
}

func courseZone() models.Zone {
	return models.Zone{Kind: models.ZoneCourseDocuments, OwnerCode: 42}
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `a/b`, escapeLike(`a/b`))
	require.Equal(t, `100\%`, escapeLike(`100%`))
	require.Equal(t, `a\_b`, escapeLike(`a_b`))
	require.Equal(t, `a\\b`, escapeLike(`a\b`))
}

func TestEntryRepositoryResolveByPathPicksNewest(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	rows := entryRows().
		AddRow(9, models.ZoneCourseDocuments, 42, 0, "docs/syllabus.pdf", "file",
			7, false, true, 2, 2048, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC LIMIT 1")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "docs/syllabus.pdf").
		WillReturnRows(rows)

	entry, err := repo.ResolveByPath(context.Background(), courseZone(), "docs/syllabus.pdf", false)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, int64(9), entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryResolveByPathMissReturnsNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC LIMIT 1")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "missing").
		WillReturnRows(entryRows())

	entry, err := repo.ResolveByPath(context.Background(), courseZone(), "missing", false)
	require.NoError(t, err)
	require.Nil(t, entry)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryResolveByPathPublicOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("AND public = TRUE AND hidden = FALSE")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "docs/hidden.pdf").
		WillReturnRows(entryRows())

	entry, err := repo.ResolveByPath(context.Background(), courseZone(), "docs/hidden.pdf", true)
	require.NoError(t, err)
	require.Nil(t, entry)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryInsertRequireUnique(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	existing := entryRows().
		AddRow(3, models.ZoneCourseDocuments, 42, 0, "docs/readme.txt", "file",
			7, false, false, 1, 10, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC LIMIT 1")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "docs/readme.txt").
		WillReturnRows(existing)

	entry := &models.FileEntry{
		ZoneKind:  models.ZoneCourseDocuments,
		OwnerCode: 42,
		Path:      "docs/readme.txt",
		Kind:      models.EntryFile,
		License:   models.LicenseDefault,
	}
	_, err := repo.Insert(context.Background(), entry, true)
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryInsertReturnsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO file_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(17))

	entry := &models.FileEntry{
		ZoneKind:  models.ZoneCourseDocuments,
		OwnerCode: 42,
		Path:      "docs/new.txt",
		Kind:      models.EntryFile,
		License:   models.LicenseDefault,
	}
	id, err := repo.Insert(context.Background(), entry, false)
	require.NoError(t, err)
	require.Equal(t, int64(17), id)
	require.Equal(t, int64(17), entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryRenameSubtreeEscapesPrefix(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	// The prefix row matches by equality; nested rows must continue with a
	// separator, so the sibling "a/bx" stays untouched.
	mock.ExpectExec(regexp.QuoteMeta("SET path = $5 || SUBSTRING(path FROM $6)")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "a/b", "a/c", 4, `a/b/%`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.RenameSubtree(context.Background(), nil, courseZone(), "a/b", "a/c")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryRenameSubtreeEscapesWildcards(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET path = $5 || SUBSTRING(path FROM $6)")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "lab 100%", "lab final", 9, `lab 100\%/%`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RenameSubtree(context.Background(), nil, courseZone(), "lab 100%", "lab final")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryRenameSubtreeMultibytePrefix(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	// SUBSTRING offsets count characters: "año" is 3 characters even
	// though it is 4 bytes, so nested paths must be cut from position 4.
	repo := NewEntryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET path = $5 || SUBSTRING(path FROM $6)")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "año", "ano", 4, `año/%`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.RenameSubtree(context.Background(), nil, courseZone(), "año", "ano")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryRemoveSubtreeDeletesCountersFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM file_views")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "docs/unit1", `docs/unit1/%`).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM file_entries")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "docs/unit1", `docs/unit1/%`).
		WillReturnResult(sqlmock.NewResult(0, 5))

	removed, err := repo.RemoveSubtree(context.Background(), nil, courseZone(), "docs/unit1")
	require.NoError(t, err)
	require.Equal(t, int64(5), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositorySetVisibilityMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE file_entries SET public")).
		WithArgs(int64(99), true, models.LicenseCCBY).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetVisibility(context.Background(), 99, true, models.LicenseCCBY)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryIsHiddenAtOrAbove(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM file_entries")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "docs/unit1/notes.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	hidden, err := repo.IsHiddenAtOrAbove(context.Background(), courseZone(), "docs/unit1/notes.pdf")
	require.NoError(t, err)
	require.True(t, hidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryDeleteZoneIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEntryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM file_views")).
		WithArgs(models.ZoneCourseDocuments, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM file_entries")).
		WithArgs(models.ZoneCourseDocuments, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.DeleteZone(context.Background(), models.ZoneCourseDocuments, 42)
	require.NoError(t, err)
	require.Zero(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
