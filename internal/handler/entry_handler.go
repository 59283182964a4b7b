package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openedu/filezone-api/internal/dto"
	"github.com/openedu/filezone-api/internal/models"
	"github.com/openedu/filezone-api/internal/service"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
	"github.com/openedu/filezone-api/pkg/response"
)

// EntryHandler exposes the path index endpoints.
type EntryHandler struct {
	entries *service.PathIndexService
}

// NewEntryHandler constructs handler.
func NewEntryHandler(entries *service.PathIndexService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

func bindZoneQuery(c *gin.Context) (models.Zone, bool) {
	var ref dto.ZoneRef
	if err := c.ShouldBindQuery(&ref); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid zone parameters"))
		return models.Zone{}, false
	}
	return ref.Zone(), true
}

// Add godoc
// @Summary Register a file or folder in a zone
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body dto.AddEntryRequest true "Entry"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /entries [post]
func (h *EntryHandler) Add(c *gin.Context) {
	var req dto.AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry payload"))
		return
	}
	id, err := h.entries.AddEntry(c.Request.Context(), req.Zone.Zone(), req.Path, req.Kind,
		req.PublisherID, req.Public, req.License, req.SizeBytes, req.RequireUnique)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// Resolve godoc
// @Summary Resolve an entry by zone and path
// @Tags Entries
// @Produce json
// @Param zoneKind query int true "Zone kind"
// @Param ownerCode query int true "Owner code"
// @Param secondaryOwner query int false "Secondary owner code"
// @Param path query string true "Path inside the zone"
// @Param publicOnly query bool false "Only public, unhidden entries"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /entries/resolve [get]
func (h *EntryHandler) Resolve(c *gin.Context) {
	zone, ok := bindZoneQuery(c)
	if !ok {
		return
	}
	path := c.Query("path")
	publicOnly := c.Query("publicOnly") == "true"
	entry, err := h.entries.ResolveByPath(c.Request.Context(), zone, path, publicOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	if entry == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no entry at path"))
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Get godoc
// @Summary Resolve an entry by ID
// @Tags Entries
// @Produce json
// @Param id path int true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /entries/{id} [get]
func (h *EntryHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid entry id"))
		return
	}
	entry, err := h.entries.ResolveByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if entry == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "entry not found"))
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Rename godoc
// @Summary Rename a path or a whole subtree
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body dto.RenameRequest true "Rename"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /entries/rename [post]
func (h *EntryHandler) Rename(c *gin.Context) {
	var req dto.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rename payload"))
		return
	}
	var err error
	if req.Subtree {
		err = h.entries.RenameSubtree(c.Request.Context(), req.Zone.Zone(), req.OldPath, req.NewPath)
	} else {
		err = h.entries.RenameOne(c.Request.Context(), req.Zone.Zone(), req.OldPath, req.NewPath)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"renamed": true}, nil)
}

// Remove godoc
// @Summary Remove a path or a whole subtree
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body dto.RemoveRequest true "Remove"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /entries/remove [post]
func (h *EntryHandler) Remove(c *gin.Context) {
	var req dto.RemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remove payload"))
		return
	}
	var removed int64
	var err error
	if req.Subtree {
		removed, err = h.entries.RemoveSubtree(c.Request.Context(), req.Zone.Zone(), req.Path)
	} else {
		removed, err = h.entries.RemoveOne(c.Request.Context(), req.Zone.Zone(), req.Path)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RemoveResponse{Removed: removed}, nil)
}

// SetVisibility godoc
// @Summary Update the public flag and license of one entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param id path int true "Entry ID"
// @Param payload body dto.SetVisibilityRequest true "Visibility"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /entries/{id}/visibility [put]
func (h *EntryHandler) SetVisibility(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid entry id"))
		return
	}
	var req dto.SetVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid visibility payload"))
		return
	}
	if err := h.entries.SetVisibility(c.Request.Context(), id, req.Public, req.License); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": true}, nil)
}

// SetHidden godoc
// @Summary Flag or unflag a path as hidden
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body dto.SetHiddenRequest true "Hidden flag"
// @Success 200 {object} response.Envelope
// @Router /entries/hidden [put]
func (h *EntryHandler) SetHidden(c *gin.Context) {
	var req dto.SetHiddenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hidden payload"))
		return
	}
	if err := h.entries.SetHidden(c.Request.Context(), req.Zone.Zone(), req.Path, req.Hidden); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": true}, nil)
}

// CheckHidden godoc
// @Summary Check whether a path or any ancestor is hidden
// @Tags Entries
// @Produce json
// @Param zoneKind query int true "Zone kind"
// @Param ownerCode query int true "Owner code"
// @Param path query string true "Full path"
// @Success 200 {object} response.Envelope
// @Router /entries/hidden-check [get]
func (h *EntryHandler) CheckHidden(c *gin.Context) {
	zone, ok := bindZoneQuery(c)
	if !ok {
		return
	}
	hidden, err := h.entries.IsHiddenAtOrAbove(c.Request.Context(), zone, c.Query("path"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.VisibilityCheckResponse{Result: hidden}, nil)
}

// CheckPublicDescendant godoc
// @Summary Check whether a folder contains any visible public entry
// @Tags Entries
// @Produce json
// @Param zoneKind query int true "Zone kind"
// @Param ownerCode query int true "Owner code"
// @Param path query string true "Folder path"
// @Success 200 {object} response.Envelope
// @Router /entries/public-check [get]
func (h *EntryHandler) CheckPublicDescendant(c *gin.Context) {
	zone, ok := bindZoneQuery(c)
	if !ok {
		return
	}
	has, err := h.entries.HasPublicDescendant(c.Request.Context(), zone, c.Query("path"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.VisibilityCheckResponse{Result: has}, nil)
}

// PublisherCount godoc
// @Summary Count entries attributed to a publisher
// @Tags Entries
// @Produce json
// @Param id path int true "Publisher user code"
// @Param publicOnly query bool false "Only public entries"
// @Success 200 {object} response.Envelope
// @Router /publishers/{id}/count [get]
func (h *EntryHandler) PublisherCount(c *gin.Context) {
	publisherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid publisher id"))
		return
	}
	count, err := h.entries.CountByPublisher(c.Request.Context(), publisherID, c.Query("publicOnly") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PublisherCountResponse{PublisherID: publisherID, Count: count}, nil)
}

// LicenseCounts godoc
// @Summary Bucket public-zone entries by content license
// @Tags Entries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /entries/licenses [get]
func (h *EntryHandler) LicenseCounts(c *gin.Context) {
	counts, err := h.entries.CountByLicense(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}
