package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/openedu/filezone-api/internal/models"
	"github.com/openedu/filezone-api/internal/repository"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
)

type entryStore interface {
	Insert(ctx context.Context, entry *models.FileEntry, requireUnique bool) (int64, error)
	ResolveByPath(ctx context.Context, zone models.Zone, path string, publicOnly bool) (*models.FileEntry, error)
	ResolveByID(ctx context.Context, id int64) (*models.FileEntry, error)
	RenameOne(ctx context.Context, tx *sqlx.Tx, zone models.Zone, oldPath, newPath string) error
	RenameSubtree(ctx context.Context, tx *sqlx.Tx, zone models.Zone, oldPrefix, newPrefix string) error
	RemoveOne(ctx context.Context, tx *sqlx.Tx, zone models.Zone, path string) (int64, error)
	RemoveSubtree(ctx context.Context, tx *sqlx.Tx, zone models.Zone, pathPrefix string) (int64, error)
	SetVisibility(ctx context.Context, id int64, public bool, license models.License) error
	SetHidden(ctx context.Context, zone models.Zone, path string, hidden bool) error
	IsHiddenAtOrAbove(ctx context.Context, zone models.Zone, fullPath string) (bool, error)
	HasPublicDescendant(ctx context.Context, zone models.Zone, folderPath string) (bool, error)
	CountByPublisher(ctx context.Context, publisherID int64, publicOnly bool) (int64, error)
	CountByLicense(ctx context.Context, kinds []models.ZoneKind) ([]models.LicenseCount, error)
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
}

type expandedFolderPathStore interface {
	RenamePrefix(ctx context.Context, tx *sqlx.Tx, zone models.Zone, oldPrefix, newPrefix string) error
	RemovePrefix(ctx context.Context, tx *sqlx.Tx, zone models.Zone, pathPrefix string) error
}

type clipboardPathStore interface {
	RenamePrefix(ctx context.Context, tx *sqlx.Tx, zone models.Zone, oldPrefix, newPrefix string) error
	RemovePrefix(ctx context.Context, tx *sqlx.Tx, zone models.Zone, pathPrefix string) error
}

// recomputeScheduler is the write-through hook: structural changes enqueue
// a size recompute instead of updating aggregates inline.
type recomputeScheduler interface {
	ScheduleRecompute(zone models.Zone)
}

// PathIndexService owns path-based CRUD over zones. Structural writes to a
// zone are serialized through a per-zone lock, and every multi-table
// rename or remove runs in one transaction so readers never observe a
// half-renamed subtree.
type PathIndexService struct {
	entries    entryStore
	expanded   expandedFolderPathStore
	clipboards clipboardPathStore
	recompute  recomputeScheduler
	logger     *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPathIndexService constructs the service.
func NewPathIndexService(entries entryStore, expanded expandedFolderPathStore, clipboards clipboardPathStore, recompute recomputeScheduler, logger *zap.Logger) *PathIndexService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PathIndexService{
		entries:    entries,
		expanded:   expanded,
		clipboards: clipboards,
		recompute:  recompute,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// zoneLock returns the mutex serializing structural writes for one zone.
func (s *PathIndexService) zoneLock(zone models.Zone) *sync.Mutex {
	key := fmt.Sprintf("%d:%d:%d", zone.Kind, zone.OwnerCode, zone.SecondaryOwner)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

func validateZone(zone models.Zone) error {
	if !zone.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidZone,
			fmt.Sprintf("invalid zone %s owner=%d", zone.Kind, zone.OwnerCode))
	}
	return nil
}

func cleanPath(p string) string {
	return strings.Trim(strings.TrimSpace(p), "/")
}

func storageErr(op string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, op)
}

// AddEntry inserts a file or folder into the zone's index. The insert is
// permissive by default; duplicates for the same (zone, path) are legal
// and resolved by id on lookup. requireUnique turns an existing path into
// a DUPLICATE_INTENT failure instead.
func (s *PathIndexService) AddEntry(ctx context.Context, zone models.Zone, path string, kind models.EntryKind, publisherID int64, public bool, license models.License, sizeBytes int64, requireUnique bool) (int64, error) {
	if err := validateZone(zone); err != nil {
		return 0, err
	}
	path = cleanPath(path)
	if path == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "path must not be empty")
	}
	if license == 0 {
		license = models.LicenseDefault
	}
	entry := &models.FileEntry{
		ZoneKind:       zone.Kind,
		OwnerCode:      zone.OwnerCode,
		SecondaryOwner: zone.SecondaryOwner,
		Path:           path,
		Kind:           kind,
		PublisherID:    publisherID,
		Public:         public,
		License:        license,
		SizeBytes:      sizeBytes,
	}
	if requireUnique {
		// Uniqueness is checked with a read before the insert; the zone
		// lock keeps two such inserts from interleaving.
		lock := s.zoneLock(zone)
		lock.Lock()
		defer lock.Unlock()
	}
	id, err := s.entries.Insert(ctx, entry, requireUnique)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, appErrors.Clone(appErrors.ErrDuplicateIntent, fmt.Sprintf("path %q already indexed", path))
		}
		return 0, storageErr("insert entry", err)
	}
	s.scheduleRecompute(zone)
	return id, nil
}

// ResolveByPath returns the entry at the path, nil when absent. Duplicate
// rows resolve to the one inserted last.
func (s *PathIndexService) ResolveByPath(ctx context.Context, zone models.Zone, path string, publicOnly bool) (*models.FileEntry, error) {
	if err := validateZone(zone); err != nil {
		return nil, err
	}
	entry, err := s.entries.ResolveByPath(ctx, zone, cleanPath(path), publicOnly)
	if err != nil {
		return nil, storageErr("resolve by path", err)
	}
	return entry, nil
}

// ResolveByID returns the entry with the given id, nil when absent.
func (s *PathIndexService) ResolveByID(ctx context.Context, id int64) (*models.FileEntry, error) {
	entry, err := s.entries.ResolveByID(ctx, id)
	if err != nil {
		return nil, storageErr("resolve by id", err)
	}
	return entry, nil
}

// RenameOne moves exactly the row(s) at oldPath to newPath.
func (s *PathIndexService) RenameOne(ctx context.Context, zone models.Zone, oldPath, newPath string) error {
	if err := validateZone(zone); err != nil {
		return err
	}
	oldPath, newPath = cleanPath(oldPath), cleanPath(newPath)

	lock := s.zoneLock(zone)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return storageErr("begin rename", err)
	}
	if err := s.entries.RenameOne(ctx, tx, zone, oldPath, newPath); err != nil {
		_ = tx.Rollback()
		return storageErr("rename entry", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit rename", err)
	}
	s.scheduleRecompute(zone)
	return nil
}

// RenameSubtree moves the prefix and everything nested beneath it, in one
// transaction together with the dependent expanded-folder and clipboard
// paths. A sibling like "a/bx" is never dragged along by a rename of "a/b".
func (s *PathIndexService) RenameSubtree(ctx context.Context, zone models.Zone, oldPrefix, newPrefix string) error {
	if err := validateZone(zone); err != nil {
		return err
	}
	oldPrefix, newPrefix = cleanPath(oldPrefix), cleanPath(newPrefix)
	if oldPrefix == "" || newPrefix == "" {
		return appErrors.Clone(appErrors.ErrValidation, "subtree prefix must not be empty")
	}

	lock := s.zoneLock(zone)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return storageErr("begin subtree rename", err)
	}
	if err := s.entries.RenameSubtree(ctx, tx, zone, oldPrefix, newPrefix); err != nil {
		_ = tx.Rollback()
		return storageErr("rename subtree", err)
	}
	// The expanded-folder table stores conflated kinds.
	if err := s.expanded.RenamePrefix(ctx, tx, forExpanded(zone), oldPrefix, newPrefix); err != nil {
		_ = tx.Rollback()
		return storageErr("rename expanded folders", err)
	}
	if err := s.clipboards.RenamePrefix(ctx, tx, zone, oldPrefix, newPrefix); err != nil {
		_ = tx.Rollback()
		return storageErr("rename clipboard", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit subtree rename", err)
	}
	s.logger.Debug("subtree renamed",
		zap.String("zone", zone.Kind.String()),
		zap.Int64("owner", zone.OwnerCode),
		zap.String("from", oldPrefix),
		zap.String("to", newPrefix))
	s.scheduleRecompute(zone)
	return nil
}

// RemoveOne deletes the row(s) at exactly the path, with their view
// counters, and reports how many entries went away.
func (s *PathIndexService) RemoveOne(ctx context.Context, zone models.Zone, path string) (int64, error) {
	if err := validateZone(zone); err != nil {
		return 0, err
	}
	path = cleanPath(path)

	lock := s.zoneLock(zone)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return 0, storageErr("begin remove", err)
	}
	removed, err := s.entries.RemoveOne(ctx, tx, zone, path)
	if err != nil {
		_ = tx.Rollback()
		return 0, storageErr("remove entry", err)
	}
	if err := s.clipboards.RemovePrefix(ctx, tx, zone, path); err != nil {
		_ = tx.Rollback()
		return 0, storageErr("remove clipboard", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit remove", err)
	}
	s.scheduleRecompute(zone)
	return removed, nil
}

// RemoveSubtree deletes the prefix and everything nested beneath it, the
// dependent view counters, expansion state and clipboard slots included.
func (s *PathIndexService) RemoveSubtree(ctx context.Context, zone models.Zone, pathPrefix string) (int64, error) {
	if err := validateZone(zone); err != nil {
		return 0, err
	}
	pathPrefix = cleanPath(pathPrefix)
	if pathPrefix == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "subtree prefix must not be empty")
	}

	lock := s.zoneLock(zone)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return 0, storageErr("begin subtree remove", err)
	}
	removed, err := s.entries.RemoveSubtree(ctx, tx, zone, pathPrefix)
	if err != nil {
		_ = tx.Rollback()
		return 0, storageErr("remove subtree", err)
	}
	if err := s.expanded.RemovePrefix(ctx, tx, forExpanded(zone), pathPrefix); err != nil {
		_ = tx.Rollback()
		return 0, storageErr("remove expanded folders", err)
	}
	if err := s.clipboards.RemovePrefix(ctx, tx, zone, pathPrefix); err != nil {
		_ = tx.Rollback()
		return 0, storageErr("remove clipboard", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit subtree remove", err)
	}
	s.logger.Debug("subtree removed",
		zap.String("zone", zone.Kind.String()),
		zap.Int64("owner", zone.OwnerCode),
		zap.String("prefix", pathPrefix),
		zap.Int64("entries", removed))
	s.scheduleRecompute(zone)
	return removed, nil
}

// SetVisibility updates the public flag and license of one entry.
func (s *PathIndexService) SetVisibility(ctx context.Context, id int64, public bool, license models.License) error {
	if err := s.entries.SetVisibility(ctx, id, public, license); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("entry %d not found", id))
		}
		return storageErr("set visibility", err)
	}
	return nil
}

// SetHidden flags or unflags every row at the path.
func (s *PathIndexService) SetHidden(ctx context.Context, zone models.Zone, path string, hidden bool) error {
	if err := validateZone(zone); err != nil {
		return err
	}
	if err := s.entries.SetHidden(ctx, zone, cleanPath(path), hidden); err != nil {
		return storageErr("set hidden", err)
	}
	return nil
}

// IsHiddenAtOrAbove reports whether the path or any ancestor folder is
// hidden.
func (s *PathIndexService) IsHiddenAtOrAbove(ctx context.Context, zone models.Zone, fullPath string) (bool, error) {
	if err := validateZone(zone); err != nil {
		return false, err
	}
	hidden, err := s.entries.IsHiddenAtOrAbove(ctx, zone, cleanPath(fullPath))
	if err != nil {
		return false, storageErr("check hidden", err)
	}
	return hidden, nil
}

// HasPublicDescendant reports whether any visible public entry lives below
// the folder.
func (s *PathIndexService) HasPublicDescendant(ctx context.Context, zone models.Zone, folderPath string) (bool, error) {
	if err := validateZone(zone); err != nil {
		return false, err
	}
	has, err := s.entries.HasPublicDescendant(ctx, zone, cleanPath(folderPath))
	if err != nil {
		return false, storageErr("check public descendants", err)
	}
	return has, nil
}

// CountByPublisher counts entries attributed to a publisher.
func (s *PathIndexService) CountByPublisher(ctx context.Context, publisherID int64, publicOnly bool) (int64, error) {
	count, err := s.entries.CountByPublisher(ctx, publisherID, publicOnly)
	if err != nil {
		return 0, storageErr("count by publisher", err)
	}
	return count, nil
}

// CountByLicense buckets entries of the public document and shared zones
// by license, the open-educational-resources figure.
func (s *PathIndexService) CountByLicense(ctx context.Context) ([]models.LicenseCount, error) {
	kinds := append(models.KindsInGroup(models.GroupDocumentZones), models.KindsInGroup(models.GroupSharedZones)...)
	counts, err := s.entries.CountByLicense(ctx, kinds)
	if err != nil {
		return nil, storageErr("count by license", err)
	}
	return counts, nil
}

func (s *PathIndexService) scheduleRecompute(zone models.Zone) {
	if s.recompute != nil {
		s.recompute.ScheduleRecompute(zone)
	}
}
