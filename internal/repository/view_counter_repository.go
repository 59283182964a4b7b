package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ViewCounterRepository tracks how often each viewer opened each entry.
// Viewer codes of zero or below bucket unauthenticated visitors.
type ViewCounterRepository struct {
	db *sqlx.DB
}

// NewViewCounterRepository constructs the repository.
func NewViewCounterRepository(db *sqlx.DB) *ViewCounterRepository {
	return &ViewCounterRepository{db: db}
}

// Record increments the (entry, viewer) counter, creating it at 1 on first
// view.
func (r *ViewCounterRepository) Record(ctx context.Context, entryID, viewerCode int64) error {
	const query = `INSERT INTO file_views (entry_id, viewer_code, views)
	VALUES ($1, $2, 1)
	ON CONFLICT (entry_id, viewer_code) DO UPDATE SET views = file_views.views + 1`
	if _, err := r.db.ExecContext(ctx, query, entryID, viewerCode); err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// ViewsByAuthenticated sums views by signed-in users.
func (r *ViewCounterRepository) ViewsByAuthenticated(ctx context.Context, entryID int64) (int64, error) {
	const query = `SELECT COALESCE(SUM(views), 0) FROM file_views
	WHERE entry_id = $1 AND viewer_code > 0`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, entryID); err != nil {
		return 0, fmt.Errorf("sum authenticated views: %w", err)
	}
	return total, nil
}

// ViewsByAnonymous sums views recorded for unauthenticated visitors.
func (r *ViewCounterRepository) ViewsByAnonymous(ctx context.Context, entryID int64) (int64, error) {
	const query = `SELECT COALESCE(SUM(views), 0) FROM file_views
	WHERE entry_id = $1 AND viewer_code <= 0`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, entryID); err != nil {
		return 0, fmt.Errorf("sum anonymous views: %w", err)
	}
	return total, nil
}

// DeleteForUser drops the per-viewer rows of one user, used when the user
// account itself is purged.
func (r *ViewCounterRepository) DeleteForUser(ctx context.Context, userCode int64) (int64, error) {
	const query = `DELETE FROM file_views WHERE viewer_code = $1`
	res, err := r.db.ExecContext(ctx, query, userCode)
	if err != nil {
		return 0, fmt.Errorf("delete user views: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted views: %w", err)
	}
	return affected, nil
}
