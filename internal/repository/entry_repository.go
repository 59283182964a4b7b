package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/openedu/filezone-api/internal/models"
)

// ErrDuplicate is returned by Insert when uniqueness was requested and the
// path is already taken.
var ErrDuplicate = errors.New("entry already exists at path")

// EntryRepository persists the path index: one row per file or folder in a
// zone. Historic duplicate inserts for the same (zone, path) are tolerated;
// every lookup resolves them to the highest id.
type EntryRepository struct {
	db *sqlx.DB
}

// NewEntryRepository constructs the repository.
func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

const entryColumns = `id, zone_kind, owner_code, secondary_owner, path, entry_kind,
       publisher_id, hidden, public, license, size_bytes, created_at`

// escapeLike neutralises LIKE metacharacters in a path prefix so that a
// folder named "100%" or "a_b" never turns into a wildcard match.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Insert adds an entry to the index. When requireUnique is set the insert
// fails if a row already exists for the same (zone, path); by default
// duplicates are allowed and resolved by id on lookup. The uniqueness check
// is a separate read, so callers serialize unique inserts for a zone.
func (r *EntryRepository) Insert(ctx context.Context, entry *models.FileEntry, requireUnique bool) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if requireUnique {
		existing, err := r.ResolveByPath(ctx, entry.Zone(), entry.Path, false)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			return 0, ErrDuplicate
		}
	}
	const query = `INSERT INTO file_entries
	(zone_kind, owner_code, secondary_owner, path, entry_kind, publisher_id, hidden, public, license, size_bytes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id`
	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		entry.ZoneKind, entry.OwnerCode, entry.SecondaryOwner, entry.Path,
		entry.Kind, entry.PublisherID, entry.Hidden, entry.Public,
		entry.License, entry.SizeBytes, entry.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert file entry: %w", err)
	}
	entry.ID = id
	return id, nil
}

// ResolveByPath returns the most recently inserted entry at the path, or
// nil when none exists. With publicOnly set, hidden or non-public rows are
// skipped.
func (r *EntryRepository) ResolveByPath(ctx context.Context, zone models.Zone, path string, publicOnly bool) (*models.FileEntry, error) {
	query := `SELECT ` + entryColumns + `
	FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3 AND path = $4`
	args := []interface{}{zone.Kind, zone.OwnerCode, zone.SecondaryOwner, path}
	if publicOnly {
		query += ` AND public = TRUE AND hidden = FALSE`
	}
	query += ` ORDER BY id DESC LIMIT 1`

	var entry models.FileEntry
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve entry by path: %w", err)
	}
	return &entry, nil
}

// ResolveByID returns one entry by its surrogate id, or nil when missing.
func (r *EntryRepository) ResolveByID(ctx context.Context, id int64) (*models.FileEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM file_entries WHERE id = $1`
	var entry models.FileEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve entry by id: %w", err)
	}
	return &entry, nil
}

// RenameOne updates every row whose path equals oldPath. Duplicates move
// together so that the most-recent-wins rule keeps holding after a rename.
func (r *EntryRepository) RenameOne(ctx context.Context, tx *sqlx.Tx, zone models.Zone, oldPath, newPath string) error {
	const query = `UPDATE file_entries SET path = $5
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3 AND path = $4`
	if _, err := execer(r.db, tx).ExecContext(ctx, query,
		zone.Kind, zone.OwnerCode, zone.SecondaryOwner, oldPath, newPath); err != nil {
		return fmt.Errorf("rename entry: %w", err)
	}
	return nil
}

// RenameSubtree rewrites oldPrefix to newPrefix for the prefix row itself
// and everything nested beneath it. "a/bx" is never touched by a rename of
// "a/b": nested rows must continue with a separator.
func (r *EntryRepository) RenameSubtree(ctx context.Context, tx *sqlx.Tx, zone models.Zone, oldPrefix, newPrefix string) error {
	const query = `UPDATE file_entries
	SET path = $5 || SUBSTRING(path FROM $6)
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	  AND (path = $4 OR path LIKE $7 ESCAPE '\')`
	// SUBSTRING ... FROM counts characters, not bytes.
	pattern := escapeLike(oldPrefix) + `/%`
	if _, err := execer(r.db, tx).ExecContext(ctx, query,
		zone.Kind, zone.OwnerCode, zone.SecondaryOwner, oldPrefix,
		newPrefix, utf8.RuneCountInString(oldPrefix)+1, pattern); err != nil {
		return fmt.Errorf("rename subtree: %w", err)
	}
	return nil
}

// RemoveOne deletes the row(s) at exactly the given path together with
// their view counters, and reports how many entries went away.
func (r *EntryRepository) RemoveOne(ctx context.Context, tx *sqlx.Tx, zone models.Zone, path string) (int64, error) {
	e := execer(r.db, tx)
	const counters = `DELETE FROM file_views WHERE entry_id IN (
	SELECT id FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3 AND path = $4)`
	if _, err := e.ExecContext(ctx, counters, zone.Kind, zone.OwnerCode, zone.SecondaryOwner, path); err != nil {
		return 0, fmt.Errorf("remove entry view counters: %w", err)
	}
	const query = `DELETE FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3 AND path = $4`
	res, err := e.ExecContext(ctx, query, zone.Kind, zone.OwnerCode, zone.SecondaryOwner, path)
	if err != nil {
		return 0, fmt.Errorf("remove entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check removed entries: %w", err)
	}
	return affected, nil
}

// RemoveSubtree deletes the prefix row and everything nested beneath it,
// together with the dependent view counters.
func (r *EntryRepository) RemoveSubtree(ctx context.Context, tx *sqlx.Tx, zone models.Zone, pathPrefix string) (int64, error) {
	e := execer(r.db, tx)
	pattern := escapeLike(pathPrefix) + `/%`
	const counters = `DELETE FROM file_views WHERE entry_id IN (
	SELECT id FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	  AND (path = $4 OR path LIKE $5 ESCAPE '\'))`
	if _, err := e.ExecContext(ctx, counters, zone.Kind, zone.OwnerCode, zone.SecondaryOwner, pathPrefix, pattern); err != nil {
		return 0, fmt.Errorf("remove subtree view counters: %w", err)
	}
	const query = `DELETE FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	  AND (path = $4 OR path LIKE $5 ESCAPE '\')`
	res, err := e.ExecContext(ctx, query, zone.Kind, zone.OwnerCode, zone.SecondaryOwner, pathPrefix, pattern)
	if err != nil {
		return 0, fmt.Errorf("remove subtree: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check removed subtree: %w", err)
	}
	return affected, nil
}

// SetVisibility updates the public flag and license of one entry.
func (r *EntryRepository) SetVisibility(ctx context.Context, id int64, public bool, license models.License) error {
	const query = `UPDATE file_entries SET public = $2, license = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, public, license)
	if err != nil {
		return fmt.Errorf("set entry visibility: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check visibility update: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetHidden flags or unflags every row at the path.
func (r *EntryRepository) SetHidden(ctx context.Context, zone models.Zone, path string, hidden bool) error {
	const query = `UPDATE file_entries SET hidden = $5
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3 AND path = $4`
	if _, err := r.db.ExecContext(ctx, query,
		zone.Kind, zone.OwnerCode, zone.SecondaryOwner, path, hidden); err != nil {
		return fmt.Errorf("set entry hidden: %w", err)
	}
	return nil
}

// IsHiddenAtOrAbove reports whether the path itself or any ancestor folder
// carries the hidden flag. Ancestors are matched by comparing the stored
// path against the leading slice of the full path.
func (r *EntryRepository) IsHiddenAtOrAbove(ctx context.Context, zone models.Zone, fullPath string) (bool, error) {
	const query = `SELECT COUNT(*) FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	  AND hidden = TRUE
	  AND (path = $4 OR $4 LIKE REPLACE(REPLACE(REPLACE(path, '\', '\\'), '%', '\%'), '_', '\_') || '/%' ESCAPE '\')`
	var count int
	if err := r.db.GetContext(ctx, &count, query,
		zone.Kind, zone.OwnerCode, zone.SecondaryOwner, fullPath); err != nil {
		return false, fmt.Errorf("check hidden ancestors: %w", err)
	}
	return count > 0, nil
}

// HasPublicDescendant reports whether any visible public entry lives below
// the folder.
func (r *EntryRepository) HasPublicDescendant(ctx context.Context, zone models.Zone, folderPath string) (bool, error) {
	const query = `SELECT COUNT(*) FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	  AND public = TRUE AND hidden = FALSE
	  AND path LIKE $4 ESCAPE '\'`
	pattern := escapeLike(folderPath) + `/%`
	var count int
	if err := r.db.GetContext(ctx, &count, query,
		zone.Kind, zone.OwnerCode, zone.SecondaryOwner, pattern); err != nil {
		return false, fmt.Errorf("check public descendants: %w", err)
	}
	return count > 0, nil
}

// CountByPublisher counts entries attributed to a publisher, optionally
// restricted to visible public ones.
func (r *EntryRepository) CountByPublisher(ctx context.Context, publisherID int64, publicOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM file_entries WHERE publisher_id = $1`
	if publicOnly {
		query += ` AND public = TRUE AND hidden = FALSE`
	}
	var count int64
	if err := r.db.GetContext(ctx, &count, query, publisherID); err != nil {
		return 0, fmt.Errorf("count entries by publisher: %w", err)
	}
	return count, nil
}

// CountByLicense buckets public-zone entries by license and public flag,
// for the open-educational-resources figure.
func (r *EntryRepository) CountByLicense(ctx context.Context, kinds []models.ZoneKind) ([]models.LicenseCount, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT license, public, COUNT(*) AS count
	FROM file_entries
	WHERE zone_kind IN (?)
	GROUP BY license, public
	ORDER BY license, public`, kinds)
	if err != nil {
		return nil, fmt.Errorf("build license count query: %w", err)
	}
	query = r.db.Rebind(query)
	var counts []models.LicenseCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count entries by license: %w", err)
	}
	return counts, nil
}

// ListZone streams every entry of one zone ordered by path, for recompute
// walks.
func (r *EntryRepository) ListZone(ctx context.Context, zone models.Zone) ([]models.FileEntry, error) {
	const query = `SELECT ` + entryColumns + `
	FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3
	ORDER BY path`
	var entries []models.FileEntry
	if err := r.db.SelectContext(ctx, &entries, query, zone.Kind, zone.OwnerCode, zone.SecondaryOwner); err != nil {
		return nil, fmt.Errorf("list zone entries: %w", err)
	}
	return entries, nil
}

// CountZone reports how many rows the zone still holds, so lifecycle
// callers can decide whether a deletion is blocked.
func (r *EntryRepository) CountZone(ctx context.Context, zone models.Zone) (int64, error) {
	const query = `SELECT COUNT(*) FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, zone.Kind, zone.OwnerCode, zone.SecondaryOwner); err != nil {
		return 0, fmt.Errorf("count zone entries: %w", err)
	}
	return count, nil
}

// DeleteZone removes every entry of the owner's zones of one kind together
// with their view counters. A second run over an emptied zone affects zero
// rows and succeeds.
func (r *EntryRepository) DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error) {
	const counters = `DELETE FROM file_views WHERE entry_id IN (
	SELECT id FROM file_entries WHERE zone_kind = $1 AND owner_code = $2)`
	if _, err := r.db.ExecContext(ctx, counters, kind, ownerCode); err != nil {
		return 0, fmt.Errorf("delete zone view counters: %w", err)
	}
	const query = `DELETE FROM file_entries WHERE zone_kind = $1 AND owner_code = $2`
	res, err := r.db.ExecContext(ctx, query, kind, ownerCode)
	if err != nil {
		return 0, fmt.Errorf("delete zone entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted zone entries: %w", err)
	}
	return affected, nil
}

// DeleteUserFromZone removes one user's personal rows inside a shared zone.
func (r *EntryRepository) DeleteUserFromZone(ctx context.Context, zone models.Zone, userCode int64) (int64, error) {
	const counters = `DELETE FROM file_views WHERE entry_id IN (
	SELECT id FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3)`
	if _, err := r.db.ExecContext(ctx, counters, zone.Kind, zone.OwnerCode, userCode); err != nil {
		return 0, fmt.Errorf("delete user zone view counters: %w", err)
	}
	const query = `DELETE FROM file_entries
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3`
	res, err := r.db.ExecContext(ctx, query, zone.Kind, zone.OwnerCode, userCode)
	if err != nil {
		return 0, fmt.Errorf("delete user zone entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted user entries: %w", err)
	}
	return affected, nil
}

// BeginTx opens a transaction for multi-table rename and remove operations.
func (r *EntryRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

// execer lets repository methods run either on the pool or inside a shared
// transaction.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func execer(db *sqlx.DB, tx *sqlx.Tx) sqlExecer {
	if tx != nil {
		return tx
	}
	return db
}
