package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openedu/filezone-api/internal/dto"
	"github.com/openedu/filezone-api/internal/service"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
	"github.com/openedu/filezone-api/pkg/response"
)

// ViewStateHandler exposes view counters, folder expansion, the clipboard
// and last-visit markers.
type ViewStateHandler struct {
	state *service.ViewStateService
}

// NewViewStateHandler constructs handler.
func NewViewStateHandler(state *service.ViewStateService) *ViewStateHandler {
	return &ViewStateHandler{state: state}
}

// RecordView godoc
// @Summary Count one view of an entry
// @Tags ViewState
// @Accept json
// @Produce json
// @Param payload body dto.RecordViewRequest true "View"
// @Success 200 {object} response.Envelope
// @Router /views [post]
func (h *ViewStateHandler) RecordView(c *gin.Context) {
	var req dto.RecordViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid view payload"))
		return
	}
	if err := h.state.RecordView(c.Request.Context(), req.EntryID, viewerCode(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"recorded": true}, nil)
}

// ViewTotals godoc
// @Summary View counts of one entry, split by authentication
// @Tags ViewState
// @Produce json
// @Param id path int true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /views/{id} [get]
func (h *ViewStateHandler) ViewTotals(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid entry id"))
		return
	}
	authenticated, err := h.state.ViewsByAuthenticated(c.Request.Context(), entryID)
	if err != nil {
		response.Error(c, err)
		return
	}
	anonymous, err := h.state.ViewsByAnonymous(c.Request.Context(), entryID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ViewTotalsResponse{
		EntryID:       entryID,
		Authenticated: authenticated,
		Anonymous:     anonymous,
	}, nil)
}

// Expand godoc
// @Summary Mark a folder expanded for the caller
// @Tags ViewState
// @Accept json
// @Produce json
// @Param payload body dto.ExpandedFolderRequest true "Folder"
// @Success 200 {object} response.Envelope
// @Router /folders/expand [post]
func (h *ViewStateHandler) Expand(c *gin.Context) {
	var req dto.ExpandedFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid folder payload"))
		return
	}
	if err := h.state.SetExpanded(c.Request.Context(), viewerCode(c), req.Zone.Zone(), req.Path); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"expanded": true}, nil)
}

// Contract godoc
// @Summary Contract a folder and everything expanded beneath it
// @Tags ViewState
// @Accept json
// @Produce json
// @Param payload body dto.ExpandedFolderRequest true "Folder"
// @Success 200 {object} response.Envelope
// @Router /folders/contract [post]
func (h *ViewStateHandler) Contract(c *gin.Context) {
	var req dto.ExpandedFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid folder payload"))
		return
	}
	if err := h.state.ClearExpanded(c.Request.Context(), viewerCode(c), req.Zone.Zone(), req.Path); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"expanded": false}, nil)
}

// IsExpanded godoc
// @Summary Check whether the caller shows a folder open
// @Tags ViewState
// @Produce json
// @Param zoneKind query int true "Zone kind"
// @Param ownerCode query int true "Owner code"
// @Param path query string true "Folder path"
// @Success 200 {object} response.Envelope
// @Router /folders/expanded [get]
func (h *ViewStateHandler) IsExpanded(c *gin.Context) {
	zone, ok := bindZoneQuery(c)
	if !ok {
		return
	}
	open, err := h.state.IsExpanded(c.Request.Context(), viewerCode(c), zone, c.Query("path"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ExpandedFolderResponse{Expanded: open}, nil)
}

// SetClipboard godoc
// @Summary Store the caller's pending cut/copy source
// @Tags ViewState
// @Accept json
// @Produce json
// @Param payload body dto.SetClipboardRequest true "Clipboard"
// @Success 200 {object} response.Envelope
// @Router /clipboard [put]
func (h *ViewStateHandler) SetClipboard(c *gin.Context) {
	var req dto.SetClipboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clipboard payload"))
		return
	}
	if err := h.state.SetClipboard(c.Request.Context(), viewerCode(c), req.Zone.Zone(), req.Path, req.Kind); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"set": true}, nil)
}

// GetClipboard godoc
// @Summary Read the caller's clipboard slot
// @Tags ViewState
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /clipboard [get]
func (h *ViewStateHandler) GetClipboard(c *gin.Context) {
	slot, err := h.state.GetClipboard(c.Request.Context(), viewerCode(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// ClearClipboard godoc
// @Summary Empty the caller's clipboard
// @Tags ViewState
// @Produce json
// @Success 204
// @Router /clipboard [delete]
func (h *ViewStateHandler) ClearClipboard(c *gin.Context) {
	if err := h.state.ClearClipboard(c.Request.Context(), viewerCode(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TouchVisit godoc
// @Summary Record that the caller opened a zone now
// @Tags ViewState
// @Accept json
// @Produce json
// @Param payload body dto.ZoneRef true "Zone"
// @Success 200 {object} response.Envelope
// @Router /visits [post]
func (h *ViewStateHandler) TouchVisit(c *gin.Context) {
	var ref dto.ZoneRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid zone payload"))
		return
	}
	if err := h.state.TouchLastVisit(c.Request.Context(), viewerCode(c), ref.Zone()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"touched": true}, nil)
}

// LastVisit godoc
// @Summary When the caller last opened a zone
// @Tags ViewState
// @Produce json
// @Param zoneKind query int true "Zone kind"
// @Param ownerCode query int true "Owner code"
// @Success 200 {object} response.Envelope
// @Router /visits [get]
func (h *ViewStateHandler) LastVisit(c *gin.Context) {
	zone, ok := bindZoneQuery(c)
	if !ok {
		return
	}
	visitedAt, err := h.state.GetLastVisit(c.Request.Context(), viewerCode(c), zone)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.LastVisitResponse{VisitedAt: visitedAt}, nil)
}
