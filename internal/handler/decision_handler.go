package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swipeclean/triage-api/internal/dto"
	"github.com/swipeclean/triage-api/internal/models"
	"github.com/swipeclean/triage-api/internal/service"
	appErrors "github.com/swipeclean/triage-api/pkg/errors"
	"github.com/swipeclean/triage-api/pkg/response"
)

// DecisionHandler exposes the persisted decision lists: browsing, recovery
// and permanent purge. Recovered photos are fed back into the live review
// session when one is active.
type DecisionHandler struct {
	decisions *service.DecisionManager
	sessions  *service.SessionManager
	purge     *service.PurgeService
}

// NewDecisionHandler creates a new handler.
func NewDecisionHandler(decisions *service.DecisionManager, sessions *service.SessionManager, purge *service.PurgeService) *DecisionHandler {
	return &DecisionHandler{decisions: decisions, sessions: sessions, purge: purge}
}

// Deleted godoc
// @Summary List soft-deleted photos
// @Description Deleted entries, most recent first
// @Tags Decisions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /decisions/deleted [get]
func (h *DecisionHandler) Deleted(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	store := h.decisions.GetOrCreate(c.Request.Context(), claims.UserID)
	entries := store.DeletedEntries()
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"count": len(entries)})
}

// Kept godoc
// @Summary List kept photo ids
// @Description Kept ids in decision order
// @Tags Decisions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /decisions/kept [get]
func (h *DecisionHandler) Kept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	store := h.decisions.GetOrCreate(c.Request.Context(), claims.UserID)
	ids := store.KeptIDs()
	response.JSON(c, http.StatusOK, ids, nil, map[string]interface{}{"count": len(ids)})
}

// State godoc
// @Summary Full decision state
// @Description Deleted entries plus kept ids in one payload
// @Tags Decisions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /decisions [get]
func (h *DecisionHandler) State(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	store := h.decisions.GetOrCreate(c.Request.Context(), claims.UserID)
	response.JSON(c, http.StatusOK, dto.DecisionState{
		Deleted: store.DeletedEntries(),
		KeptIDs: store.KeptIDs(),
		Loaded:  store.Loaded(),
	}, nil)
}

// Recover godoc
// @Summary Recover soft-deleted photos
// @Description Move the given ids back to undecided
// @Tags Decisions
// @Accept json
// @Produce json
// @Param payload body dto.RecoverRequest true "Recover payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /decisions/recover [post]
func (h *DecisionHandler) Recover(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RecoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "ids must not be empty"))
		return
	}

	store := h.decisions.GetOrCreate(c.Request.Context(), claims.UserID)
	recovered := make([]models.PhotoRecord, 0, len(req.IDs))
	for _, id := range req.IDs {
		if record := store.RecoverOne(id); record != nil {
			recovered = append(recovered, *record)
		}
	}
	h.requeue(claims.UserID, recovered)

	response.JSON(c, http.StatusOK, recovered, nil, map[string]interface{}{"count": len(recovered)})
}

// RecoverAll godoc
// @Summary Recover every soft-deleted photo
// @Description Empty the deleted list back to undecided
// @Tags Decisions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /decisions/recover-all [post]
func (h *DecisionHandler) RecoverAll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	store := h.decisions.GetOrCreate(c.Request.Context(), claims.UserID)
	recovered := store.RecoverAll()
	h.requeue(claims.UserID, recovered)

	response.JSON(c, http.StatusOK, recovered, nil, map[string]interface{}{"count": len(recovered)})
}

// Purge godoc
// @Summary Permanently delete photos
// @Description Purge the given soft-deleted ids from the library; an empty list purges all
// @Tags Decisions
// @Accept json
// @Produce json
// @Param payload body dto.PurgeRequest true "Purge payload"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /decisions/purge [post]
func (h *DecisionHandler) Purge(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.PurgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid purge payload"))
		return
	}

	store := h.decisions.GetOrCreate(c.Request.Context(), claims.UserID)
	purged, err := h.purge.Purge(c.Request.Context(), claims.UserID, store, req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PurgeResult{PurgedIDs: purged}, nil)
}

// requeue makes recovered photos reviewable again without a session restart.
func (h *DecisionHandler) requeue(userID string, recovered []models.PhotoRecord) {
	if len(recovered) == 0 || h.sessions == nil {
		return
	}
	session, err := h.sessions.Get(userID)
	if err != nil {
		return
	}
	session.AppendPage(recovered)
}
