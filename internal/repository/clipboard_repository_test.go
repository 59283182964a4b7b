package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/openedu/filezone-api/internal/models"
)

func TestClipboardRepositorySetOverwrites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClipboardRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (usr_cod) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Set(context.Background(), &models.ClipboardSlot{
		UserCode:  7,
		ZoneKind:  models.ZoneCourseDocuments,
		OwnerCode: 42,
		Path:      "docs/unit1",
		EntryKind: models.EntryFolder,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClipboardRepositoryGetMissReturnsNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClipboardRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM clipboards WHERE usr_cod")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"usr_cod", "zone_kind", "owner_code", "secondary_owner", "path", "entry_kind", "set_at",
		}))

	slot, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Nil(t, slot)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClipboardRepositoryRemovePrefixMatchesExactAndNested(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClipboardRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM clipboards")).
		WithArgs(models.ZoneCourseDocuments, int64(42), int64(0), "a/b", `a/b/%`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RemovePrefix(context.Background(), nil, courseZone(), "a/b")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
