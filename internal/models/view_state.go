package models

import "time"

// ViewCounter counts how often one viewer opened one entry. Viewer codes of
// zero or below mean an unauthenticated visitor.
type ViewCounter struct {
	EntryID    int64 `json:"entryId" db:"entry_id"`
	ViewerCode int64 `json:"viewerCode" db:"viewer_code"`
	Views      int64 `json:"views" db:"views"`
}

// ExpandedFolder records that a user currently shows a folder open in the
// tree view of a zone. Paths are stored with a trailing separator.
type ExpandedFolder struct {
	UserCode       int64     `json:"userCode" db:"usr_cod"`
	ZoneKind       ZoneKind  `json:"zoneKind" db:"zone_kind"`
	OwnerCode      int64     `json:"ownerCode" db:"owner_code"`
	SecondaryOwner int64     `json:"secondaryOwner" db:"secondary_owner"`
	Path           string    `json:"path" db:"path"`
	LastTouchedAt  time.Time `json:"lastTouchedAt" db:"last_touched_at"`
}

// ClipboardSlot is the single pending cut/copy source remembered per user.
// Setting a new value overwrites the previous one.
type ClipboardSlot struct {
	UserCode       int64     `json:"userCode" db:"usr_cod"`
	ZoneKind       ZoneKind  `json:"zoneKind" db:"zone_kind"`
	OwnerCode      int64     `json:"ownerCode" db:"owner_code"`
	SecondaryOwner int64     `json:"secondaryOwner" db:"secondary_owner"`
	Path           string    `json:"path" db:"path"`
	EntryKind      EntryKind `json:"entryKind" db:"entry_kind"`
	SetAt          time.Time `json:"setAt" db:"set_at"`
}

// Zone rebuilds the zone value the clipboard slot points into.
func (c *ClipboardSlot) Zone() Zone {
	return Zone{Kind: c.ZoneKind, OwnerCode: c.OwnerCode, SecondaryOwner: c.SecondaryOwner}
}

// LastVisit is the per-user, per-zone timestamp used to compute "what's new
// since your last visit".
type LastVisit struct {
	UserCode       int64     `json:"userCode" db:"usr_cod"`
	ZoneKind       ZoneKind  `json:"zoneKind" db:"zone_kind"`
	OwnerCode      int64     `json:"ownerCode" db:"owner_code"`
	SecondaryOwner int64     `json:"secondaryOwner" db:"secondary_owner"`
	VisitedAt      time.Time `json:"visitedAt" db:"visited_at"`
}
