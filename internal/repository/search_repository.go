package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openedu/filezone-api/internal/models"
)

// SearchRepository answers cross-zone metadata searches. Hits are joined
// with the hierarchy lookup tables so each one carries its resolved
// context, and ordered by that context then path for stable pagination.
type SearchRepository struct {
	db *sqlx.DB
}

// NewSearchRepository constructs the repository.
func NewSearchRepository(db *sqlx.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// searchRow flattens an entry and its context for sqlx scanning.
type searchRow struct {
	models.FileEntry
	models.HierarchyContext
}

const searchColumns = `fe.id, fe.zone_kind, fe.owner_code, fe.secondary_owner, fe.path, fe.entry_kind,
	       fe.publisher_id, fe.hidden, fe.public, fe.license, fe.size_bytes, fe.created_at,
	       hc.ins_cod, hc.ins_name, hc.ctr_cod, hc.ctr_name, hc.deg_cod, hc.deg_name,
	       hc.crs_cod, hc.crs_name, hc.grp_cod, hc.grp_name`

// contextJoin builds one row of hierarchy context per course or group zone.
// Search covers course-owned and group-owned zones only; entries in
// institution, center, degree, project and briefcase zones have no course or
// group context and fall out of the inner join.
const contextJoin = `JOIN (
	SELECT c.crs_cod AS zone_owner, 'course' AS owner_level,
	       i.ins_cod, i.name AS ins_name, ct.ctr_cod, ct.name AS ctr_name,
	       d.deg_cod, d.name AS deg_name, c.crs_cod, c.name AS crs_name,
	       0::BIGINT AS grp_cod, '' AS grp_name
	FROM courses c
	JOIN degrees d ON d.deg_cod = c.deg_cod
	JOIN centers ct ON ct.ctr_cod = d.ctr_cod
	JOIN institutions i ON i.ins_cod = ct.ins_cod
	UNION ALL
	SELECT g.grp_cod AS zone_owner, 'group' AS owner_level,
	       i.ins_cod, i.name AS ins_name, ct.ctr_cod, ct.name AS ctr_name,
	       d.deg_cod, d.name AS deg_name, c.crs_cod, c.name AS crs_name,
	       g.grp_cod, g.name AS grp_name
	FROM course_groups g
	JOIN courses c ON c.crs_cod = g.crs_cod
	JOIN degrees d ON d.deg_cod = c.deg_cod
	JOIN centers ct ON ct.ctr_cod = d.ctr_cod
	JOIN institutions i ON i.ins_cod = ct.ins_cod
) hc ON hc.zone_owner = fe.owner_code AND hc.owner_level = CASE
	WHEN fe.zone_kind IN (5, 11, 13, 26) THEN 'group'
	WHEN fe.zone_kind IN (3, 4, 6, 7, 8, 14, 15, 25) THEN 'course'
	END`

func scopeCondition(scope models.HierarchyScope) (string, bool) {
	switch scope.Level {
	case models.LevelSystem:
		return "", false
	case models.LevelInstitution:
		return ` AND hc.ins_cod = ?`, true
	case models.LevelCenter:
		return ` AND hc.ctr_cod = ?`, true
	case models.LevelDegree:
		return ` AND hc.deg_cod = ?`, true
	case models.LevelCourse:
		return ` AND hc.crs_cod = ?`, true
	case models.LevelGroup:
		return ` AND hc.grp_cod = ?`, true
	default:
		return "", false
	}
}

func (r *SearchRepository) search(ctx context.Context, where string, args []interface{}, queryText string, scope models.HierarchyScope, limit int) ([]models.SearchHit, error) {
	query := `SELECT ` + searchColumns + `
	FROM file_entries fe
	` + contextJoin + `
	WHERE fe.path <> '' AND fe.path ILIKE ? ESCAPE '\'` + where
	args = append([]interface{}{`%` + escapeLike(queryText) + `%`}, args...)

	if cond, hasArg := scopeCondition(scope); cond != "" {
		query += cond
		if hasArg {
			args = append(args, scope.Code)
		}
	}

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += ` ORDER BY hc.ins_name, hc.ctr_name, hc.deg_name, hc.crs_name, hc.grp_name, fe.path
	LIMIT ` + fmt.Sprintf("%d", limit)
	query = r.db.Rebind(query)

	var rows []searchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, models.SearchHit{Entry: row.FileEntry, Context: row.HierarchyContext})
	}
	return hits, nil
}

// SearchPublic finds visible public entries matching the query text inside
// the scope.
func (r *SearchRepository) SearchPublic(ctx context.Context, queryText string, scope models.HierarchyScope, limit int) ([]models.SearchHit, error) {
	return r.search(ctx, ` AND fe.public = TRUE AND fe.hidden = FALSE`, nil, queryText, scope, limit)
}

// SearchOwned finds entries the user published, or entries in the user's
// personal sub-areas, inside the scope.
func (r *SearchRepository) SearchOwned(ctx context.Context, userCode int64, queryText string, scope models.HierarchyScope, limit int) ([]models.SearchHit, error) {
	where := ` AND (fe.publisher_id = ? OR fe.secondary_owner = ?)`
	return r.search(ctx, where, []interface{}{userCode, userCode}, queryText, scope, limit)
}
