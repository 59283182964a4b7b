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

// SearchHandler exposes cross-zone file name search.
type SearchHandler struct {
	search *service.SearchService
}

// NewSearchHandler constructs handler.
func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func bindSearch(c *gin.Context) (dto.SearchRequest, bool) {
	req := dto.SearchRequest{
		Query: c.Query("q"),
		Scope: dto.ScopeRef{
			Level: models.HierarchyLevel(c.Query("level")),
			Code:  parseQueryInt64(c, "code"),
		},
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid limit"))
			return req, false
		}
		req.Limit = limit
	}
	return req, true
}

// Public godoc
// @Summary Search public files by name
// @Tags Search
// @Produce json
// @Param q query string true "Search text, at least 3 characters"
// @Param level query string false "Scope level, system when omitted"
// @Param code query int false "Scope node code"
// @Param limit query int false "Maximum hits, default 100"
// @Success 200 {object} response.Envelope
// @Router /search/public [get]
func (h *SearchHandler) Public(c *gin.Context) {
	req, ok := bindSearch(c)
	if !ok {
		return
	}
	hits, err := h.search.SearchPublic(c.Request.Context(), req.Query, req.Scope.Scope(), req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hits, nil)
}

// Owned godoc
// @Summary Search the caller's own files by name
// @Tags Search
// @Produce json
// @Param q query string true "Search text, at least 3 characters"
// @Param level query string false "Scope level, system when omitted"
// @Param code query int false "Scope node code"
// @Param limit query int false "Maximum hits, default 100"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /search/mine [get]
func (h *SearchHandler) Owned(c *gin.Context) {
	req, ok := bindSearch(c)
	if !ok {
		return
	}
	hits, err := h.search.SearchOwned(c.Request.Context(), viewerCode(c), req.Query, req.Scope.Scope(), req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hits, nil)
}
