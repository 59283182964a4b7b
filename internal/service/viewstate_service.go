package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openedu/filezone-api/internal/models"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
)

type viewCounterStore interface {
	Record(ctx context.Context, entryID, viewerCode int64) error
	ViewsByAuthenticated(ctx context.Context, entryID int64) (int64, error)
	ViewsByAnonymous(ctx context.Context, entryID int64) (int64, error)
}

type expandedFolderStore interface {
	Set(ctx context.Context, userCode int64, zone models.Zone, folderPath string) error
	Clear(ctx context.Context, userCode int64, zone models.Zone, folderPath string) error
	IsExpanded(ctx context.Context, userCode int64, zone models.Zone, folderPath string) (bool, error)
}

type clipboardStore interface {
	Set(ctx context.Context, slot *models.ClipboardSlot) error
	Get(ctx context.Context, userCode int64) (*models.ClipboardSlot, error)
	Clear(ctx context.Context, userCode int64) error
}

type lastVisitStore interface {
	Touch(ctx context.Context, userCode int64, zone models.Zone) error
	Get(ctx context.Context, userCode int64, zone models.Zone) (*time.Time, error)
}

// ViewStateService owns the per-user UI state around the file index: view
// counters, which folders a user keeps expanded, the single clipboard slot
// and the last-visit marker per zone. Each store collapses zone kinds with
// its own translation, applied here so repositories stay kind-agnostic.
type ViewStateService struct {
	views      viewCounterStore
	expanded   expandedFolderStore
	clipboards clipboardStore
	visits     lastVisitStore
	logger     *zap.Logger
}

// NewViewStateService constructs the service.
func NewViewStateService(views viewCounterStore, expanded expandedFolderStore, clipboards clipboardStore, visits lastVisitStore, logger *zap.Logger) *ViewStateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewStateService{
		views:      views,
		expanded:   expanded,
		clipboards: clipboards,
		visits:     visits,
		logger:     logger,
	}
}

// forExpanded translates the kind for the expanded-folder store.
func forExpanded(zone models.Zone) models.Zone {
	zone.Kind = models.ZoneKindForExpandedFolders(zone.Kind)
	return zone
}

// forLastVisit translates the kind for the last-visit store.
func forLastVisit(zone models.Zone) models.Zone {
	zone.Kind = models.ZoneKindForLastVisit(zone.Kind)
	return zone
}

// RecordView counts one more view of the entry by the viewer. A viewer
// code of zero or below buckets anonymous traffic.
func (s *ViewStateService) RecordView(ctx context.Context, entryID, viewerCode int64) error {
	if viewerCode < 0 {
		viewerCode = 0
	}
	if err := s.views.Record(ctx, entryID, viewerCode); err != nil {
		return storageErr("record view", err)
	}
	return nil
}

// ViewsByAuthenticated sums views by signed-in users for one entry.
func (s *ViewStateService) ViewsByAuthenticated(ctx context.Context, entryID int64) (int64, error) {
	total, err := s.views.ViewsByAuthenticated(ctx, entryID)
	if err != nil {
		return 0, storageErr("sum authenticated views", err)
	}
	return total, nil
}

// ViewsByAnonymous sums anonymous views for one entry.
func (s *ViewStateService) ViewsByAnonymous(ctx context.Context, entryID int64) (int64, error) {
	total, err := s.views.ViewsByAnonymous(ctx, entryID)
	if err != nil {
		return 0, storageErr("sum anonymous views", err)
	}
	return total, nil
}

// SetExpanded marks the folder open for the user.
func (s *ViewStateService) SetExpanded(ctx context.Context, userCode int64, zone models.Zone, folderPath string) error {
	if err := validateZone(zone); err != nil {
		return err
	}
	if err := s.expanded.Set(ctx, userCode, forExpanded(zone), cleanPath(folderPath)); err != nil {
		return storageErr("set expanded", err)
	}
	return nil
}

// ClearExpanded contracts the folder and anything expanded beneath it.
func (s *ViewStateService) ClearExpanded(ctx context.Context, userCode int64, zone models.Zone, folderPath string) error {
	if err := validateZone(zone); err != nil {
		return err
	}
	if err := s.expanded.Clear(ctx, userCode, forExpanded(zone), cleanPath(folderPath)); err != nil {
		return storageErr("clear expanded", err)
	}
	return nil
}

// IsExpanded reports whether the user currently shows the folder open.
func (s *ViewStateService) IsExpanded(ctx context.Context, userCode int64, zone models.Zone, folderPath string) (bool, error) {
	if err := validateZone(zone); err != nil {
		return false, err
	}
	open, err := s.expanded.IsExpanded(ctx, userCode, forExpanded(zone), cleanPath(folderPath))
	if err != nil {
		return false, storageErr("check expanded", err)
	}
	return open, nil
}

// SetClipboard stores the user's pending cut/copy source, replacing any
// previous one.
func (s *ViewStateService) SetClipboard(ctx context.Context, userCode int64, zone models.Zone, path string, kind models.EntryKind) error {
	if err := validateZone(zone); err != nil {
		return err
	}
	path = cleanPath(path)
	if path == "" {
		return appErrors.Clone(appErrors.ErrValidation, "clipboard path must not be empty")
	}
	slot := &models.ClipboardSlot{
		UserCode:       userCode,
		ZoneKind:       zone.Kind,
		OwnerCode:      zone.OwnerCode,
		SecondaryOwner: zone.SecondaryOwner,
		Path:           path,
		EntryKind:      kind,
	}
	if err := s.clipboards.Set(ctx, slot); err != nil {
		return storageErr("set clipboard", err)
	}
	return nil
}

// GetClipboard returns the user's slot, nil when empty.
func (s *ViewStateService) GetClipboard(ctx context.Context, userCode int64) (*models.ClipboardSlot, error) {
	slot, err := s.clipboards.Get(ctx, userCode)
	if err != nil {
		return nil, storageErr("get clipboard", err)
	}
	return slot, nil
}

// ClearClipboard empties the user's clipboard.
func (s *ViewStateService) ClearClipboard(ctx context.Context, userCode int64) error {
	if err := s.clipboards.Clear(ctx, userCode); err != nil {
		return storageErr("clear clipboard", err)
	}
	return nil
}

// TouchLastVisit records that the user opened the zone now.
func (s *ViewStateService) TouchLastVisit(ctx context.Context, userCode int64, zone models.Zone) error {
	if err := validateZone(zone); err != nil {
		return err
	}
	if err := s.visits.Touch(ctx, userCode, forLastVisit(zone)); err != nil {
		return storageErr("touch last visit", err)
	}
	return nil
}

// GetLastVisit returns the last visit timestamp, nil when the user has
// never opened the zone.
func (s *ViewStateService) GetLastVisit(ctx context.Context, userCode int64, zone models.Zone) (*time.Time, error) {
	if err := validateZone(zone); err != nil {
		return nil, err
	}
	visitedAt, err := s.visits.Get(ctx, userCode, forLastVisit(zone))
	if err != nil {
		return nil, storageErr("get last visit", err)
	}
	return visitedAt, nil
}
