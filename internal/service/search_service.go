package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/openedu/filezone-api/internal/models"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
)

// minQueryLength keeps trivially short patterns from scanning the whole
// index.
const minQueryLength = 3

type searchStore interface {
	SearchPublic(ctx context.Context, queryText string, scope models.HierarchyScope, limit int) ([]models.SearchHit, error)
	SearchOwned(ctx context.Context, userCode int64, queryText string, scope models.HierarchyScope, limit int) ([]models.SearchHit, error)
}

// SearchService answers cross-zone file name searches, scoped to a subtree
// of the hierarchy. Hits carry their resolved placement so callers can
// render where each file lives.
type SearchService struct {
	store  searchStore
	logger *zap.Logger
}

// NewSearchService constructs the service.
func NewSearchService(store searchStore, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{store: store, logger: logger}
}

func validateQuery(queryText string, scope models.HierarchyScope) (string, error) {
	queryText = strings.TrimSpace(queryText)
	if len(queryText) < minQueryLength {
		return "", appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("search text must be at least %d characters", minQueryLength))
	}
	if !scope.Level.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("unknown scope level %q", scope.Level))
	}
	if scope.Level != models.LevelSystem && scope.Code <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "scope code must be positive")
	}
	return queryText, nil
}

// SearchPublic finds public, unhidden entries matching the text inside the
// scope. Safe to expose to unauthenticated callers.
func (s *SearchService) SearchPublic(ctx context.Context, queryText string, scope models.HierarchyScope, limit int) ([]models.SearchHit, error) {
	queryText, err := validateQuery(queryText, scope)
	if err != nil {
		return nil, err
	}
	hits, err := s.store.SearchPublic(ctx, queryText, scope, limit)
	if err != nil {
		return nil, storageErr("search public entries", err)
	}
	return hits, nil
}

// SearchOwned finds entries the user published or keeps in personal
// sub-areas, inside the scope. Hidden entries stay findable to their owner.
func (s *SearchService) SearchOwned(ctx context.Context, userCode int64, queryText string, scope models.HierarchyScope, limit int) ([]models.SearchHit, error) {
	if userCode <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user code must be positive")
	}
	queryText, err := validateQuery(queryText, scope)
	if err != nil {
		return nil, err
	}
	hits, err := s.store.SearchOwned(ctx, userCode, queryText, scope, limit)
	if err != nil {
		return nil, storageErr("search owned entries", err)
	}
	return hits, nil
}
