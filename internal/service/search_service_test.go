package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openedu/filezone-api/internal/models"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
)

type stubSearchStore struct {
	query string
	scope models.HierarchyScope
	user  int64
	hits  []models.SearchHit
}

func (s *stubSearchStore) SearchPublic(_ context.Context, queryText string, scope models.HierarchyScope, _ int) ([]models.SearchHit, error) {
	s.query, s.scope = queryText, scope
	return s.hits, nil
}

func (s *stubSearchStore) SearchOwned(_ context.Context, userCode int64, queryText string, scope models.HierarchyScope, _ int) ([]models.SearchHit, error) {
	s.user, s.query, s.scope = userCode, queryText, scope
	return s.hits, nil
}

func TestSearchPublicRejectsShortQuery(t *testing.T) {
	svc := NewSearchService(&stubSearchStore{}, nil)

	_, err := svc.SearchPublic(context.Background(), "  ab ", models.HierarchyScope{Level: models.LevelSystem}, 50)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSearchPublicRejectsBadScope(t *testing.T) {
	svc := NewSearchService(&stubSearchStore{}, nil)

	_, err := svc.SearchPublic(context.Background(), "syllabus", models.HierarchyScope{Level: "campus"}, 50)
	require.Error(t, err)

	// Any scope below system needs the owning entity's code.
	_, err = svc.SearchPublic(context.Background(), "syllabus", models.HierarchyScope{Level: models.LevelCourse}, 50)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSearchPublicTrimsQuery(t *testing.T) {
	store := &stubSearchStore{hits: []models.SearchHit{{}}}
	svc := NewSearchService(store, nil)

	hits, err := svc.SearchPublic(context.Background(), "  syllabus  ", models.HierarchyScope{Level: models.LevelCourse, Code: 42}, 50)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "syllabus", store.query)
	require.Equal(t, int64(42), store.scope.Code)
}

func TestSearchOwnedRequiresUser(t *testing.T) {
	svc := NewSearchService(&stubSearchStore{}, nil)

	_, err := svc.SearchOwned(context.Background(), 0, "syllabus", models.HierarchyScope{Level: models.LevelSystem}, 50)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSearchOwnedPassesUserThrough(t *testing.T) {
	store := &stubSearchStore{}
	svc := NewSearchService(store, nil)

	_, err := svc.SearchOwned(context.Background(), 7, "notes", models.HierarchyScope{Level: models.LevelSystem}, 50)
	require.NoError(t, err)
	require.Equal(t, int64(7), store.user)
	require.Equal(t, "notes", store.query)
}
