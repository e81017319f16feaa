package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/swipeclean/triage-api/internal/service"
	appErrors "github.com/swipeclean/triage-api/pkg/errors"
	"github.com/swipeclean/triage-api/pkg/response"
)

// LibraryHandler exposes paginated library reads and the derived views.
type LibraryHandler struct {
	library *service.LibraryService
}

// NewLibraryHandler creates a new handler.
func NewLibraryHandler(library *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

// Photos godoc
// @Summary List library photos
// @Description One page of the user's photo library, oldest first
// @Tags Library
// @Produce json
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /library/photos [get]
func (h *LibraryHandler) Photos(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	page, err := h.library.GetPage(c.Request.Context(), claims.UserID, c.Query("cursor"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, page.Records, &response.PageInfo{
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		TotalCount: page.TotalCount,
	})
}

// Similar godoc
// @Summary List similar-photo groups
// @Description Burst groups of photos taken close together in time
// @Tags Library
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /library/similar [get]
func (h *LibraryHandler) Similar(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	groups, err := h.library.SimilarGroups(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil, map[string]interface{}{"count": len(groups)})
}

// LowQuality godoc
// @Summary List low-quality photos
// @Description Photos whose known dimensions fall under the resolution threshold
// @Tags Library
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /library/low-quality [get]
func (h *LibraryHandler) LowQuality(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	records, err := h.library.LowQuality(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"count": len(records)})
}
