package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openedu/filezone-api/internal/dto"
	"github.com/openedu/filezone-api/internal/models"
	"github.com/openedu/filezone-api/internal/service"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
	"github.com/openedu/filezone-api/pkg/response"
)

// SizeHandler exposes snapshots, roll-ups and usage report exports.
type SizeHandler struct {
	sizes *service.SizeService
}

// NewSizeHandler constructs handler.
func NewSizeHandler(sizes *service.SizeService) *SizeHandler {
	return &SizeHandler{sizes: sizes}
}

// Snapshot godoc
// @Summary Stored size snapshot of one zone
// @Tags Sizes
// @Produce json
// @Param zoneKind query int true "Zone kind"
// @Param ownerCode query int true "Owner code"
// @Success 200 {object} response.Envelope
// @Router /sizes/snapshot [get]
func (h *SizeHandler) Snapshot(c *gin.Context) {
	zone, ok := bindZoneQuery(c)
	if !ok {
		return
	}
	agg, err := h.sizes.GetSnapshot(c.Request.Context(), zone)
	if err != nil {
		response.Error(c, err)
		return
	}
	if agg == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "zone never computed"))
		return
	}
	response.JSON(c, http.StatusOK, agg, nil)
}

// Recompute godoc
// @Summary Rebuild the size snapshot of one zone
// @Tags Sizes
// @Accept json
// @Produce json
// @Param payload body dto.RecomputeRequest true "Zone"
// @Success 200 {object} response.Envelope
// @Router /sizes/recompute [post]
func (h *SizeHandler) Recompute(c *gin.Context) {
	var req dto.RecomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recompute payload"))
		return
	}
	if err := h.sizes.RecomputeZone(c.Request.Context(), req.Zone.Zone()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"recomputed": true}, nil)
}

// RollUp godoc
// @Summary Sum size snapshots over a hierarchy scope
// @Tags Sizes
// @Produce json
// @Param level query string false "Scope level, system when omitted"
// @Param code query int false "Scope node code"
// @Param group query string true "Zone group (course, group, personal, briefcase, documents, shared)"
// @Success 200 {object} response.Envelope
// @Router /sizes/rollup [get]
func (h *SizeHandler) RollUp(c *gin.Context) {
	scope := dto.ScopeRef{
		Level: models.HierarchyLevel(c.Query("level")),
		Code:  parseQueryInt64(c, "code"),
	}
	group := models.ZoneKindGroup(c.Query("group"))
	rollUp, err := h.sizes.RollUp(c.Request.Context(), scope.Scope(), group)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rollUp, nil)
}

// ExportReport godoc
// @Summary Render a usage report and return a signed download token
// @Tags Sizes
// @Accept json
// @Produce json
// @Param payload body dto.ExportReportRequest true "Report parameters"
// @Success 201 {object} response.Envelope
// @Router /sizes/reports [post]
func (h *SizeHandler) ExportReport(c *gin.Context) {
	var req dto.ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload"))
		return
	}
	report, err := h.sizes.ExportUsageReport(c.Request.Context(), req.Scope.Scope(), req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// DownloadReport godoc
// @Summary Download a previously exported usage report
// @Tags Sizes
// @Produce octet-stream
// @Param token query string true "Signed report token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /sizes/reports/download [get]
func (h *SizeHandler) DownloadReport(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	path, err := h.sizes.OpenReport(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.File(path)
}
