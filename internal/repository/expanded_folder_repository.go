package repository

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/openedu/filezone-api/internal/models"
)

// ExpandedFolderRepository stores which folders each user currently shows
// open per zone. Folder paths always carry a trailing separator so that a
// prefix match against "a/b/" can never hit the sibling "a/bx/".
type ExpandedFolderRepository struct {
	db *sqlx.DB
}

// NewExpandedFolderRepository constructs the repository.
func NewExpandedFolderRepository(db *sqlx.DB) *ExpandedFolderRepository {
	return &ExpandedFolderRepository{db: db}
}

func folderKey(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

// Set marks the folder expanded, refreshing the touch timestamp when the
// row already exists.
func (r *ExpandedFolderRepository) Set(ctx context.Context, userCode int64, zone models.Zone, folderPath string) error {
	const query = `INSERT INTO expanded_folders (usr_cod, zone_kind, owner_code, secondary_owner, path, last_touched_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (usr_cod, zone_kind, owner_code, secondary_owner, path)
	DO UPDATE SET last_touched_at = EXCLUDED.last_touched_at`
	if _, err := r.db.ExecContext(ctx, query,
		userCode, zone.Kind, zone.OwnerCode, zone.SecondaryOwner,
		folderKey(folderPath), time.Now().UTC()); err != nil {
		return fmt.Errorf("set expanded folder: %w", err)
	}
	return nil
}

// Clear contracts the folder and everything expanded beneath it.
func (r *ExpandedFolderRepository) Clear(ctx context.Context, userCode int64, zone models.Zone, folderPath string) error {
	key := folderKey(folderPath)
	const query = `DELETE FROM expanded_folders
	WHERE usr_cod = $1 AND zone_kind = $2 AND owner_code = $3 AND secondary_owner = $4
	  AND (path = $5 OR path LIKE $6 ESCAPE '\')`
	if _, err := r.db.ExecContext(ctx, query,
		userCode, zone.Kind, zone.OwnerCode, zone.SecondaryOwner,
		key, escapeLike(key)+`%`); err != nil {
		return fmt.Errorf("clear expanded folder: %w", err)
	}
	return nil
}

// IsExpanded reports whether the user currently shows the folder open.
func (r *ExpandedFolderRepository) IsExpanded(ctx context.Context, userCode int64, zone models.Zone, folderPath string) (bool, error) {
	const query = `SELECT COUNT(*) FROM expanded_folders
	WHERE usr_cod = $1 AND zone_kind = $2 AND owner_code = $3 AND secondary_owner = $4 AND path = $5`
	var count int
	if err := r.db.GetContext(ctx, &count, query,
		userCode, zone.Kind, zone.OwnerCode, zone.SecondaryOwner, folderKey(folderPath)); err != nil {
		return false, fmt.Errorf("check expanded folder: %w", err)
	}
	return count > 0, nil
}

// RenamePrefix follows a subtree rename of the underlying zone so that
// expansion state survives moves. Runs inside the rename transaction.
func (r *ExpandedFolderRepository) RenamePrefix(ctx context.Context, tx *sqlx.Tx, zone models.Zone, oldPrefix, newPrefix string) error {
	oldKey := folderKey(oldPrefix)
	const query = `UPDATE expanded_folders
	SET path = $5 || SUBSTRING(path FROM $6)
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	  AND path LIKE $4 ESCAPE '\'`
	if _, err := execer(r.db, tx).ExecContext(ctx, query,
		zone.Kind, zone.OwnerCode, zone.SecondaryOwner,
		escapeLike(oldKey)+`%`, folderKey(newPrefix), utf8.RuneCountInString(oldKey)+1); err != nil {
		return fmt.Errorf("rename expanded folders: %w", err)
	}
	return nil
}

// RemovePrefix drops expansion state for a removed subtree. Runs inside the
// remove transaction.
func (r *ExpandedFolderRepository) RemovePrefix(ctx context.Context, tx *sqlx.Tx, zone models.Zone, pathPrefix string) error {
	key := folderKey(pathPrefix)
	const query = `DELETE FROM expanded_folders
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	  AND path LIKE $4 ESCAPE '\'`
	if _, err := execer(r.db, tx).ExecContext(ctx, query,
		zone.Kind, zone.OwnerCode, zone.SecondaryOwner, escapeLike(key)+`%`); err != nil {
		return fmt.Errorf("remove expanded folders: %w", err)
	}
	return nil
}

// SweepExpired purges rows untouched for longer than the retention window.
// Only rows older than the cutoff go away, so the sweep is safe next to
// live traffic.
func (r *ExpandedFolderRepository) SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	const query = `DELETE FROM expanded_folders WHERE last_touched_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep expanded folders: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check swept folders: %w", err)
	}
	return affected, nil
}

// DeleteZone drops all expansion state of the owner's zones of one kind.
func (r *ExpandedFolderRepository) DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error) {
	const query = `DELETE FROM expanded_folders WHERE zone_kind = $1 AND owner_code = $2`
	res, err := r.db.ExecContext(ctx, query, kind, ownerCode)
	if err != nil {
		return 0, fmt.Errorf("delete zone expanded folders: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted folders: %w", err)
	}
	return affected, nil
}

// DeleteUserFromZone drops one user's expansion state inside a zone.
func (r *ExpandedFolderRepository) DeleteUserFromZone(ctx context.Context, zone models.Zone, userCode int64) error {
	const query = `DELETE FROM expanded_folders
	WHERE usr_cod = $1 AND zone_kind = $2 AND owner_code = $3`
	if _, err := r.db.ExecContext(ctx, query, userCode, zone.Kind, zone.OwnerCode); err != nil {
		return fmt.Errorf("delete user expanded folders: %w", err)
	}
	return nil
}
