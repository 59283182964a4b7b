package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/openedu/filezone-api/internal/models"
)

// ClipboardRepository keeps at most one pending cut/copy source per user.
// Setting a new value overwrites the old one; there is no history.
type ClipboardRepository struct {
	db *sqlx.DB
}

// NewClipboardRepository constructs the repository.
func NewClipboardRepository(db *sqlx.DB) *ClipboardRepository {
	return &ClipboardRepository{db: db}
}

// Set stores the user's clipboard slot, replacing any previous value.
func (r *ClipboardRepository) Set(ctx context.Context, slot *models.ClipboardSlot) error {
	if slot.SetAt.IsZero() {
		slot.SetAt = time.Now().UTC()
	}
	const query = `INSERT INTO clipboards (usr_cod, zone_kind, owner_code, secondary_owner, path, entry_kind, set_at)
	VALUES (:usr_cod, :zone_kind, :owner_code, :secondary_owner, :path, :entry_kind, :set_at)
	ON CONFLICT (usr_cod) DO UPDATE SET
	  zone_kind = EXCLUDED.zone_kind,
	  owner_code = EXCLUDED.owner_code,
	  secondary_owner = EXCLUDED.secondary_owner,
	  path = EXCLUDED.path,
	  entry_kind = EXCLUDED.entry_kind,
	  set_at = EXCLUDED.set_at`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// Get returns the user's slot, or nil when the clipboard is empty.
func (r *ClipboardRepository) Get(ctx context.Context, userCode int64) (*models.ClipboardSlot, error) {
	const query = `SELECT usr_cod, zone_kind, owner_code, secondary_owner, path, entry_kind, set_at
	FROM clipboards WHERE usr_cod = $1`
	var slot models.ClipboardSlot
	if err := r.db.GetContext(ctx, &slot, query, userCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get clipboard: %w", err)
	}
	return &slot, nil
}

// Clear empties the user's clipboard.
func (r *ClipboardRepository) Clear(ctx context.Context, userCode int64) error {
	const query = `DELETE FROM clipboards WHERE usr_cod = $1`
	if _, err := r.db.ExecContext(ctx, query, userCode); err != nil {
		return fmt.Errorf("clear clipboard: %w", err)
	}
	return nil
}

// RenamePrefix follows a subtree rename so that a pending clipboard source
// keeps pointing at the moved tree. Runs inside the rename transaction.
func (r *ClipboardRepository) RenamePrefix(ctx context.Context, tx *sqlx.Tx, zone models.Zone, oldPrefix, newPrefix string) error {
	const query = `UPDATE clipboards
	SET path = $5 || SUBSTRING(path FROM $6)
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	  AND (path = $4 OR path LIKE $7 ESCAPE '\')`
	if _, err := execer(r.db, tx).ExecContext(ctx, query,
		zone.Kind, zone.OwnerCode, zone.SecondaryOwner, oldPrefix,
		newPrefix, utf8.RuneCountInString(oldPrefix)+1, escapeLike(oldPrefix)+`/%`); err != nil {
		return fmt.Errorf("rename clipboard paths: %w", err)
	}
	return nil
}

// RemovePrefix drops slots pointing into a removed subtree. Runs inside the
// remove transaction.
func (r *ClipboardRepository) RemovePrefix(ctx context.Context, tx *sqlx.Tx, zone models.Zone, pathPrefix string) error {
	const query = `DELETE FROM clipboards
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	  AND (path = $4 OR path LIKE $5 ESCAPE '\')`
	if _, err := execer(r.db, tx).ExecContext(ctx, query,
		zone.Kind, zone.OwnerCode, zone.SecondaryOwner, pathPrefix,
		escapeLike(pathPrefix)+`/%`); err != nil {
		return fmt.Errorf("remove clipboard paths: %w", err)
	}
	return nil
}

// SweepExpired drops slots older than the retention window.
func (r *ClipboardRepository) SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	const query = `DELETE FROM clipboards WHERE set_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep clipboards: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check swept clipboards: %w", err)
	}
	return affected, nil
}

// DeleteZone drops every slot pointing into the owner's zones of one kind.
func (r *ClipboardRepository) DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error) {
	const query = `DELETE FROM clipboards WHERE zone_kind = $1 AND owner_code = $2`
	res, err := r.db.ExecContext(ctx, query, kind, ownerCode)
	if err != nil {
		return 0, fmt.Errorf("delete zone clipboards: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted clipboards: %w", err)
	}
	return affected, nil
}

// DeleteUser empties the user's clipboard regardless of zone.
func (r *ClipboardRepository) DeleteUser(ctx context.Context, userCode int64) error {
	return r.Clear(ctx, userCode)
}
