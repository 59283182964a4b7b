package dto

import "github.com/openedu/filezone-api/internal/models"

// ScopeRef narrows a roll-up or search to one hierarchy subtree. Level
// defaults to system when omitted.
type ScopeRef struct {
	Level models.HierarchyLevel `form:"level" json:"level"`
	Code  int64                 `form:"code" json:"code"`
}

// Scope converts the reference into the domain value.
func (s ScopeRef) Scope() models.HierarchyScope {
	level := s.Level
	if level == "" {
		level = models.LevelSystem
	}
	return models.HierarchyScope{Level: level, Code: s.Code}
}

// RecomputeRequest rebuilds the size snapshot of one zone synchronously.
type RecomputeRequest struct {
	Zone ZoneRef `json:"zone" binding:"required"`
}

// RollUpRequest sums snapshots over a scope for one zone group.
type RollUpRequest struct {
	Scope ScopeRef             `form:"scope"`
	Group models.ZoneKindGroup `form:"group" binding:"required,oneof=course group personal briefcase documents shared"`
}

// ExportReportRequest renders a usage report for download.
type ExportReportRequest struct {
	Scope  ScopeRef `json:"scope"`
	Format string   `json:"format" binding:"required,oneof=csv pdf"`
}
