package models

import "time"

// ZoneSizeAggregate is the cached size snapshot of one zone. It is fully
// replaced on recompute, never maintained incrementally.
type ZoneSizeAggregate struct {
	ZoneKind       ZoneKind  `json:"zoneKind" db:"zone_kind"`
	OwnerCode      int64     `json:"ownerCode" db:"owner_code"`
	SecondaryOwner int64     `json:"secondaryOwner" db:"secondary_owner"`
	Depth          int       `json:"depth" db:"depth"`
	Folders        int64     `json:"folders" db:"folders"`
	Files          int64     `json:"files" db:"files"`
	TotalBytes     int64     `json:"totalBytes" db:"total_bytes"`
	ComputedAt     time.Time `json:"computedAt" db:"computed_at"`
}

// SizeRollUp sums snapshots across every zone under a hierarchy scope.
// Counts that do not apply to the queried group are reported as -1, matching
// the legacy figures screen.
type SizeRollUp struct {
	Courses    int64 `json:"courses" db:"courses"`
	Groups     int64 `json:"groups" db:"groups"`
	Users      int64 `json:"users" db:"users"`
	MaxDepth   int   `json:"maxDepth" db:"max_depth"`
	Folders    int64 `json:"folders" db:"folders"`
	Files      int64 `json:"files" db:"files"`
	TotalBytes int64 `json:"totalBytes" db:"total_bytes"`
}
