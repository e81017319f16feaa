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

// SessionHandler exposes the review session lifecycle over HTTP. Every
// endpoint responds with the post-operation session snapshot so clients can
// render without a follow-up read.
type SessionHandler struct {
	sessions *service.SessionManager
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(sessions *service.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Start godoc
// @Summary Start a review session
// @Description Start (or restart) the authenticated user's review session
// @Tags Session
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /session/start [post]
func (h *SessionHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.sessions.Start(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session.Snapshot())
}

// Snapshot godoc
// @Summary Get session state
// @Description Current, next and progress of the active session
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Snapshot(c *gin.Context) {
	session, ok := h.activeSession(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, session.Snapshot(), nil)
}

// Decide godoc
// @Summary Decide the current photo
// @Description Record keep or delete for the queue head and advance
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body dto.DecideRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session/decide [post]
func (h *SessionHandler) Decide(c *gin.Context) {
	session, ok := h.activeSession(c)
	if !ok {
		return
	}

	var req dto.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "outcome must be kept or deleted"))
		return
	}

	response.JSON(c, http.StatusOK, session.Decide(models.DecisionOutcome(req.Outcome)), nil)
}

// Skip godoc
// @Summary Skip the current photo
// @Description Move the queue head to the tail without deciding
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session/skip [post]
func (h *SessionHandler) Skip(c *gin.Context) {
	session, ok := h.activeSession(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, session.Skip(), nil)
}

// Undo godoc
// @Summary Undo the last decision
// @Description Reverse the most recent decision and restore its photo
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session/undo [post]
func (h *SessionHandler) Undo(c *gin.Context) {
	session, ok := h.activeSession(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, session.Undo(), nil)
}

// Resume godoc
// @Summary Resume a failed library load
// @Description Retry background pagination from the last good cursor
// @Tags Session
// @Success 204 "load retry scheduled"
// @Failure 404 {object} response.Envelope
// @Router /session/resume [post]
func (h *SessionHandler) Resume(c *gin.Context) {
	session, ok := h.activeSession(c)
	if !ok {
		return
	}
	session.ResumeLoad()
	response.NoContent(c)
}

func (h *SessionHandler) activeSession(c *gin.Context) (*service.ReviewSession, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	session, err := h.sessions.Get(claims.UserID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return session, true
}
