package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openedu/filezone-api/internal/models"
)

// LastVisitRepository stores one timestamp per (user, zone), feeding the
// "what's new since your last visit" marker. Callers must translate the
// zone kind through models.ZoneKindForLastVisit before hitting this table.
type LastVisitRepository struct {
	db *sqlx.DB
}

// NewLastVisitRepository constructs the repository.
func NewLastVisitRepository(db *sqlx.DB) *LastVisitRepository {
	return &LastVisitRepository{db: db}
}

// Touch records the visit, creating or refreshing the row.
func (r *LastVisitRepository) Touch(ctx context.Context, userCode int64, zone models.Zone) error {
	const query = `INSERT INTO last_visits (usr_cod, zone_kind, owner_code, secondary_owner, visited_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (usr_cod, zone_kind, owner_code, secondary_owner)
	DO UPDATE SET visited_at = EXCLUDED.visited_at`
	if _, err := r.db.ExecContext(ctx, query,
		userCode, zone.Kind, zone.OwnerCode, zone.SecondaryOwner, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch last visit: %w", err)
	}
	return nil
}

// Get returns the last visit timestamp, or nil when the user has never
// opened the zone.
func (r *LastVisitRepository) Get(ctx context.Context, userCode int64, zone models.Zone) (*time.Time, error) {
	const query = `SELECT visited_at FROM last_visits
	WHERE usr_cod = $1 AND zone_kind = $2 AND owner_code = $3 AND secondary_owner = $4`
	var visitedAt time.Time
	if err := r.db.GetContext(ctx, &visitedAt, query,
		userCode, zone.Kind, zone.OwnerCode, zone.SecondaryOwner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last visit: %w", err)
	}
	return &visitedAt, nil
}

// DeleteZone drops all visit rows of the owner's zones of one kind.
func (r *LastVisitRepository) DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error) {
	const query = `DELETE FROM last_visits WHERE zone_kind = $1 AND owner_code = $2`
	res, err := r.db.ExecContext(ctx, query, kind, ownerCode)
	if err != nil {
		return 0, fmt.Errorf("delete zone last visits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted visits: %w", err)
	}
	return affected, nil
}

// DeleteUserFromZone drops one user's visit row for a zone.
func (r *LastVisitRepository) DeleteUserFromZone(ctx context.Context, zone models.Zone, userCode int64) error {
	const query = `DELETE FROM last_visits
	WHERE usr_cod = $1 AND zone_kind = $2 AND owner_code = $3`
	if _, err := r.db.ExecContext(ctx, query, userCode, zone.Kind, zone.OwnerCode); err != nil {
		return fmt.Errorf("delete user last visit: %w", err)
	}
	return nil
}
