package dto

import "github.com/openedu/filezone-api/internal/models"

// PurgeOwnerRequest tears down every zone owned by a removed hierarchy
// entity.
type PurgeOwnerRequest struct {
	Level     models.HierarchyLevel `json:"level" binding:"required,oneof=institution center degree course group project"`
	OwnerCode int64                 `json:"ownerCode" binding:"required,gt=0"`
}

// PurgeUserRequest removes one user's footprint from a shared zone.
type PurgeUserRequest struct {
	Zone     ZoneRef `json:"zone" binding:"required"`
	UserCode int64   `json:"userCode" binding:"required,gt=0"`
}
