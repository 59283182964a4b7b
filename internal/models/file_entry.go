package models

import "time"

// EntryKind distinguishes folders from files inside a zone.
type EntryKind string

const (
	EntryFolder     EntryKind = "folder"
	EntryFile       EntryKind = "file"
	EntryUnresolved EntryKind = "unresolved"
)

// License is the content license attached to a published file.
// Values are stored in the database and must not change.
type License int

const (
	LicenseUnknown           License = 0
	LicenseAllRightsReserved License = 1
	LicenseCCBY              License = 2
	LicenseCCBYSA            License = 3
	LicenseCCBYND            License = 4
	LicenseCCBYNC            License = 5
	LicenseCCBYNCSA          License = 6
	LicenseCCBYNCND          License = 7
)

// LicenseDefault is applied when a publisher does not pick one.
const LicenseDefault = LicenseAllRightsReserved

// FileEntry is one row of the path index. Duplicate (zone, path) rows are
// tolerated; lookups resolve to the highest ID.
type FileEntry struct {
	ID             int64     `json:"id" db:"id"`
	ZoneKind       ZoneKind  `json:"zoneKind" db:"zone_kind"`
	OwnerCode      int64     `json:"ownerCode" db:"owner_code"`
	SecondaryOwner int64     `json:"secondaryOwner" db:"secondary_owner"`
	Path           string    `json:"path" db:"path"`
	Kind           EntryKind `json:"kind" db:"entry_kind"`
	PublisherID    int64     `json:"publisherId" db:"publisher_id"`
	Hidden         bool      `json:"hidden" db:"hidden"`
	Public         bool      `json:"public" db:"public"`
	License        License   `json:"license" db:"license"`
	SizeBytes      int64     `json:"sizeBytes" db:"size_bytes"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Zone rebuilds the zone value the entry belongs to.
func (e *FileEntry) Zone() Zone {
	return Zone{Kind: e.ZoneKind, OwnerCode: e.OwnerCode, SecondaryOwner: e.SecondaryOwner}
}

// LicenseCount is one bucket of the open-educational-resources figure.
type LicenseCount struct {
	License License `json:"license" db:"license"`
	Public  bool    `json:"public" db:"public"`
	Count   int64   `json:"count" db:"count"`
}
