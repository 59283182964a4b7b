package dto

import (
	"time"

	"github.com/openedu/filezone-api/internal/models"
)

// RecordViewRequest counts one view of an entry. The viewer comes from the
// access token when present, anonymous otherwise.
type RecordViewRequest struct {
	EntryID int64 `json:"entryId" binding:"required"`
}

// ViewTotalsResponse reports view counts split by authentication.
type ViewTotalsResponse struct {
	EntryID       int64 `json:"entryId"`
	Authenticated int64 `json:"authenticated"`
	Anonymous     int64 `json:"anonymous"`
}

// ExpandedFolderRequest toggles the expansion state of one folder.
type ExpandedFolderRequest struct {
	Zone ZoneRef `json:"zone" binding:"required"`
	Path string  `json:"path" binding:"required"`
}

// ExpandedFolderResponse answers an expansion probe.
type ExpandedFolderResponse struct {
	Expanded bool `json:"expanded"`
}

// SetClipboardRequest stores the pending cut/copy source.
type SetClipboardRequest struct {
	Zone ZoneRef          `json:"zone" binding:"required"`
	Path string           `json:"path" binding:"required"`
	Kind models.EntryKind `json:"kind" binding:"required,oneof=folder file unresolved"`
}

// LastVisitResponse reports when the user last opened the zone. VisitedAt
// is null for a first visit.
type LastVisitResponse struct {
	VisitedAt *time.Time `json:"visitedAt"`
}
