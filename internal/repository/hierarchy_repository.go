package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openedu/filezone-api/internal/models"
)

// HierarchyRepository reads the organizational lookup tables owned by the
// hierarchy management system. This service never writes them; it only
// resolves names and scope membership for roll-ups and search.
type HierarchyRepository struct {
	db *sqlx.DB
}

// NewHierarchyRepository constructs the repository.
func NewHierarchyRepository(db *sqlx.DB) *HierarchyRepository {
	return &HierarchyRepository{db: db}
}

// CourseContext resolves the full hierarchy chain above one course.
func (r *HierarchyRepository) CourseContext(ctx context.Context, courseCode int64) (*models.HierarchyContext, error) {
	const query = `SELECT ct.ins_cod, i.name AS ins_name,
	       d.ctr_cod, ct.name AS ctr_name,
	       c.deg_cod, d.name AS deg_name,
	       c.crs_cod, c.name AS crs_name,
	       0::BIGINT AS grp_cod, '' AS grp_name
	FROM courses c
	JOIN degrees d ON d.deg_cod = c.deg_cod
	JOIN centers ct ON ct.ctr_cod = d.ctr_cod
	JOIN institutions i ON i.ins_cod = ct.ins_cod
	WHERE c.crs_cod = $1`
	var hc models.HierarchyContext
	if err := r.db.GetContext(ctx, &hc, query, courseCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve course context: %w", err)
	}
	return &hc, nil
}

// GroupContext resolves the chain above one group, course included.
func (r *HierarchyRepository) GroupContext(ctx context.Context, groupCode int64) (*models.HierarchyContext, error) {
	const query = `SELECT ct.ins_cod, i.name AS ins_name,
	       d.ctr_cod, ct.name AS ctr_name,
	       c.deg_cod, d.name AS deg_name,
	       c.crs_cod, c.name AS crs_name,
	       g.grp_cod, g.name AS grp_name
	FROM course_groups g
	JOIN courses c ON c.crs_cod = g.crs_cod
	JOIN degrees d ON d.deg_cod = c.deg_cod
	JOIN centers ct ON ct.ctr_cod = d.ctr_cod
	JOIN institutions i ON i.ins_cod = ct.ins_cod
	WHERE g.grp_cod = $1`
	var hc models.HierarchyContext
	if err := r.db.GetContext(ctx, &hc, query, groupCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve group context: %w", err)
	}
	return &hc, nil
}

// OwnerExists reports whether a hierarchy node of the level is still
// present, letting purge validation detect owners deleted mid-flight.
func (r *HierarchyRepository) OwnerExists(ctx context.Context, level models.HierarchyLevel, code int64) (bool, error) {
	var query string
	switch level {
	case models.LevelInstitution:
		query = `SELECT COUNT(*) FROM institutions WHERE ins_cod = $1`
	case models.LevelCenter:
		query = `SELECT COUNT(*) FROM centers WHERE ctr_cod = $1`
	case models.LevelDegree:
		query = `SELECT COUNT(*) FROM degrees WHERE deg_cod = $1`
	case models.LevelCourse:
		query = `SELECT COUNT(*) FROM courses WHERE crs_cod = $1`
	case models.LevelGroup:
		query = `SELECT COUNT(*) FROM course_groups WHERE grp_cod = $1`
	case models.LevelProject:
		query = `SELECT COUNT(*) FROM projects WHERE prj_cod = $1`
	default:
		return false, fmt.Errorf("level %q has no owner table", level)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, code); err != nil {
		return false, fmt.Errorf("check owner exists: %w", err)
	}
	return count > 0, nil
}
