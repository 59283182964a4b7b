package dto

import "github.com/openedu/filezone-api/internal/models"

// ZoneRef addresses one zone in request payloads and query strings.
type ZoneRef struct {
	Kind           models.ZoneKind `form:"zoneKind" json:"zoneKind" binding:"required,zonekind"`
	OwnerCode      int64           `form:"ownerCode" json:"ownerCode" binding:"required"`
	SecondaryOwner int64           `form:"secondaryOwner" json:"secondaryOwner"`
}

// Zone converts the reference into the domain value.
func (z ZoneRef) Zone() models.Zone {
	return models.Zone{Kind: z.Kind, OwnerCode: z.OwnerCode, SecondaryOwner: z.SecondaryOwner}
}

// AddEntryRequest registers one file or folder in a zone's index.
type AddEntryRequest struct {
	Zone          ZoneRef          `json:"zone" binding:"required"`
	Path          string           `json:"path" binding:"required"`
	Kind          models.EntryKind `json:"kind" binding:"required,oneof=folder file unresolved"`
	PublisherID   int64            `json:"publisherId"`
	Public        bool             `json:"public"`
	License       models.License   `json:"license"`
	SizeBytes     int64            `json:"sizeBytes"`
	RequireUnique bool             `json:"requireUnique"`
}

// RenameRequest moves one path or a whole subtree.
type RenameRequest struct {
	Zone    ZoneRef `json:"zone" binding:"required"`
	OldPath string  `json:"oldPath" binding:"required"`
	NewPath string  `json:"newPath" binding:"required"`
	Subtree bool    `json:"subtree"`
}

// RemoveRequest deletes one path or a whole subtree.
type RemoveRequest struct {
	Zone    ZoneRef `json:"zone" binding:"required"`
	Path    string  `json:"path" binding:"required"`
	Subtree bool    `json:"subtree"`
}

// RemoveResponse reports how many entries went away.
type RemoveResponse struct {
	Removed int64 `json:"removed"`
}

// SetVisibilityRequest updates the public flag and license of one entry.
type SetVisibilityRequest struct {
	Public  bool           `json:"public"`
	License models.License `json:"license" binding:"omitempty,min=0,max=7"`
}

// SetHiddenRequest flags or unflags a path.
type SetHiddenRequest struct {
	Zone   ZoneRef `json:"zone" binding:"required"`
	Path   string  `json:"path" binding:"required"`
	Hidden bool    `json:"hidden"`
}

// VisibilityCheckResponse answers hidden-ancestor and public-descendant
// probes.
type VisibilityCheckResponse struct {
	Result bool `json:"result"`
}

// PublisherCountResponse reports how many entries a publisher owns.
type PublisherCountResponse struct {
	PublisherID int64 `json:"publisherId"`
	Count       int64 `json:"count"`
}
