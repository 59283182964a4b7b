package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openedu/filezone-api/internal/dto"
	"github.com/openedu/filezone-api/internal/service"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
	"github.com/openedu/filezone-api/pkg/response"
)

// LifecycleHandler exposes the service-to-service purge endpoints called
// by the hierarchy management system.
type LifecycleHandler struct {
	lifecycle *service.LifecycleService
}

// NewLifecycleHandler constructs handler.
func NewLifecycleHandler(lifecycle *service.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycle: lifecycle}
}

// PurgeOwner godoc
// @Summary Purge every zone owned by a removed hierarchy entity
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param payload body dto.PurgeOwnerRequest true "Owner"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lifecycle/purge-owner [post]
func (h *LifecycleHandler) PurgeOwner(c *gin.Context) {
	var req dto.PurgeOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid purge payload"))
		return
	}
	report, err := h.lifecycle.PurgeZonesForOwner(c.Request.Context(), req.Level, req.OwnerCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// PurgeUser godoc
// @Summary Remove one user's footprint from a shared zone
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param payload body dto.PurgeUserRequest true "User and zone"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lifecycle/purge-user [post]
func (h *LifecycleHandler) PurgeUser(c *gin.Context) {
	var req dto.PurgeUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid purge payload"))
		return
	}
	report, err := h.lifecycle.PurgeUserFromZone(c.Request.Context(), req.Zone.Zone(), req.UserCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// VerifyEmpty godoc
// @Summary Check a purged zone for leftovers
// @Tags Lifecycle
// @Produce json
// @Param zoneKind query int true "Zone kind"
// @Param ownerCode query int true "Owner code"
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /lifecycle/verify-empty [get]
func (h *LifecycleHandler) VerifyEmpty(c *gin.Context) {
	zone, ok := bindZoneQuery(c)
	if !ok {
		return
	}
	if err := h.lifecycle.VerifyZoneEmpty(c.Request.Context(), zone); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"empty": true}, nil)
}
