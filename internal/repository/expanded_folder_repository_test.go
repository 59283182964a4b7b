package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/openedu/filezone-api/internal/models"
)

func TestFolderKeyAppendsSeparator(t *testing.T) {
	require.Equal(t, "a/b/", folderKey("a/b"))
	require.Equal(t, "a/b/", folderKey("a/b/"))
}

func TestExpandedFolderRepositorySetUpserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExpandedFolderRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO expanded_folders")).
		WithArgs(int64(7), models.ZoneCourseDocuments, int64(42), int64(0), "docs/unit1/", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Set(context.Background(), 7, courseZone(), "docs/unit1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpandedFolderRepositoryClearContractsNested(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExpandedFolderRepository(db)
	// Clearing "a/b" drops "a/b/" and "a/b/c/" but the trailing separator
	// keeps "a/bx/" out of the pattern.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM expanded_folders")).
		WithArgs(int64(7), models.ZoneCourseDocuments, int64(42), int64(0), "a/b/", `a/b/%`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Clear(context.Background(), 7, courseZone(), "a/b")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpandedFolderRepositoryRenamePrefixMultibyte(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	// The folder key "año/" is 4 characters, so nested keys are cut from
	// character 5 regardless of byte length.
	repo := NewExpandedFolderRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET path = $5 || SUBSTRING(path FROM $6)")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), `año/%`, "ano/", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RenamePrefix(context.Background(), nil, courseZone(), "año", "ano")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// cutoffNear matches a timestamp argument close to the expected cutoff.
type cutoffNear struct {
	want time.Time
}

func (c cutoffNear) Match(v driver.Value) bool {
	ts, ok := v.(time.Time)
	if !ok {
		return false
	}
	diff := ts.Sub(c.want)
	if diff < 0 {
		diff = -diff
	}
	return diff < time.Minute
}

func TestExpandedFolderRepositorySweepExpired(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	// The cutoff sits 30 days back: a row untouched for 31 days falls
	// before it and goes, one touched 29 days ago stays.
	repo := NewExpandedFolderRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM expanded_folders WHERE last_touched_at <")).
		WithArgs(cutoffNear{want: time.Now().UTC().Add(-30 * 24 * time.Hour)}).
		WillReturnResult(sqlmock.NewResult(0, 12))

	swept, err := repo.SweepExpired(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(12), swept)
	require.NoError(t, mock.ExpectationsWereMet())
}
