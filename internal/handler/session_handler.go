package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepstack/practice-engine/internal/model"
	"github.com/prepstack/practice-engine/internal/repository"
	"github.com/prepstack/practice-engine/internal/response"
	"github.com/prepstack/practice-engine/internal/service"
	"github.com/prepstack/practice-engine/internal/store"
	"github.com/prepstack/practice-engine/internal/validator"
	"github.com/prepstack/practice-engine/internal/wire"
	"github.com/rs/zerolog"
)

// SessionHandler handles the practice session HTTP surface.
type SessionHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// CreateSession godoc
// POST /api/v1/sessions
// Starts a new practice session for an exam.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessionService.CreateSession(c.Request.Context(), req.ExamSlug, req.OwnerID)
	if err != nil {
		if errors.Is(err, repository.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
			return
		}
		h.log.Error().Err(err).Str("exam_slug", req.ExamSlug).Msg("Create session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": view})
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
// Returns the full session view with derived statistics.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	view, err := h.sessionService.GetSession(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		h.log.Error().Err(err).Str("session_id", id.String()).Msg("Get session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// PatchSession godoc
// PATCH /api/v1/sessions/:session_id
// Applies one discriminated mutation operation and returns the refreshed
// session view. Malformed payloads are rejected before any store access.
func (h *SessionHandler) PatchSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	op, err := wire.DecodeOperation(body)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	view, err := h.sessionService.ApplyOperation(c.Request.Context(), id, op)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		case errors.Is(err, store.ErrSessionCompleted):
			response.Fail(c, http.StatusBadRequest, response.ErrSessionCompleted)
		case errors.Is(err, store.ErrUnknownQuestion):
			response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
		default:
			h.log.Error().Err(err).
				Str("session_id", id.String()).
				Str("operation", string(op.Tag())).
				Msg("Apply operation failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrSessionUpdate)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// GetSummary godoc
// GET /api/v1/sessions/:session_id/summary
// Returns aggregate statistics only.
func (h *SessionHandler) GetSummary(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	summary, err := h.sessionService.GetSummary(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		h.log.Error().Err(err).Str("session_id", id.String()).Msg("Get summary failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

func (h *SessionHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
