package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/openedu/filezone-api/internal/models"
)

func TestSizeRepositoryReplaceUpserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSizeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO zone_sizes")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), 3, int64(7), int64(21), int64(4096), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Replace(context.Background(), &models.ZoneSizeAggregate{
		ZoneKind:   models.ZoneCourseDocuments,
		OwnerCode:  42,
		Depth:      3,
		Folders:    7,
		Files:      21,
		TotalBytes: 4096,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSizeRepositoryGetMissReturnsNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSizeRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM zone_sizes")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{
			"zone_kind", "owner_code", "secondary_owner", "depth", "folders", "files", "total_bytes", "computed_at",
		}))

	agg, err := repo.Get(context.Background(), courseZone())
	require.NoError(t, err)
	require.Nil(t, agg)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSizeRepositoryDeleteZoneIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSizeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM zone_sizes")).
		WithArgs(models.ZoneCourseDocuments, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.DeleteZone(context.Background(), models.ZoneCourseDocuments, 42)
	require.NoError(t, err)
	require.Zero(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSizeRepositoryRollUpBriefcasesUnderGroupScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	// Briefcases do not hang under a group, so no branch applies and the
	// roll-up short-circuits without touching the database.
	repo := NewSizeRepository(db)
	roll, err := repo.RollUp(context.Background(),
		models.HierarchyScope{Level: models.LevelGroup, Code: 5},
		models.KindsInGroup(models.GroupBriefcases))
	require.NoError(t, err)
	require.Equal(t, &models.SizeRollUp{Courses: -1, Groups: -1, Users: -1}, roll)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSizeRepositoryRollUpCourseZonesUnderCourseScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSizeRepository(db)
	kinds := models.KindsInGroup(models.GroupCourseZones)
	rows := sqlmock.NewRows([]string{
		"courses", "groups", "users", "max_depth", "folders", "files", "total_bytes",
	}).AddRow(1, 0, 0, 4, 10, 25, 8192)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(DISTINCT crs_cod)")).
		WithArgs(
			int(kinds[0]), int(kinds[1]), int(kinds[2]),
			int(kinds[3]), int(kinds[4]), int(kinds[5]),
			int64(42),
		).
		WillReturnRows(rows)

	roll, err := repo.RollUp(context.Background(),
		models.HierarchyScope{Level: models.LevelCourse, Code: 42}, kinds)
	require.NoError(t, err)
	require.Equal(t, int64(1), roll.Courses)
	require.Equal(t, int64(10), roll.Folders)
	require.Equal(t, int64(8192), roll.TotalBytes)
	// Course zones carry no group or per-user dimension.
	require.Equal(t, int64(-1), roll.Groups)
	require.Equal(t, int64(-1), roll.Users)
	require.NoError(t, mock.ExpectationsWereMet())
}
