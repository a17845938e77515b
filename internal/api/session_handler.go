package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionHandler holds the session and record service dependencies.
type SessionHandler struct {
	sessionService service.SessionService
	recordService  service.RecordService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService service.SessionService, recordService service.RecordService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		recordService:  recordService,
	}
}

// --- DTOs ---

// StartSessionRequest begins a live session for an assignment.
type StartSessionRequest struct {
	AssignmentID string `json:"assignmentId" binding:"required"`
}

// CompleteSetRequest logs one set against the current exercise.
type CompleteSetRequest struct {
	Weight *float64 `json:"weight"`
	Reps   int      `json:"reps" binding:"required,min=1"`
	RPE    *int     `json:"rpe" binding:"omitempty,min=1,max=10"`
}

// EditSetRequest corrects an already-logged set in place.
type EditSetRequest struct {
	Weight *float64 `json:"weight"`
	Reps   int      `json:"reps" binding:"required,min=1"`
}

// CompleteSessionRequest finishes a session. ConfirmPartial must be
// true to finish with incomplete exercises.
type CompleteSessionRequest struct {
	ConfirmPartial bool `json:"confirmPartial"`
}

// --- Handler Methods ---

// StartSession godoc
// @Summary Start a live session
// @Description Flattens the assigned plan into a session and activates it.
// @Tags Sessions
// @Security BearerAuth
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	athleteID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	assignmentID, err := primitive.ObjectIDFromHex(req.AssignmentID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid assignmentId")
		return
	}

	session, err := h.sessionService.StartSession(c.Request.Context(), athleteID, assignmentID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetActiveSession returns the athlete's active or paused session, if
// any. Used by clients to resume after a reconnect.
func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	athleteID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}

	session, err := h.sessionService.GetActiveSession(c.Request.Context(), athleteID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetSession fetches one of the athlete's sessions by id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	athleteID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	sessionID, ok := parseObjectIDParam(c, "sessionId")
	if !ok {
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), athleteID, sessionID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CompleteSet logs a set against the current exercise and returns the
// advancement outcome plus any PR detected.
func (h *SessionHandler) CompleteSet(c *gin.Context) {
	var req CompleteSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	athleteID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	sessionID, ok := parseObjectIDParam(c, "sessionId")
	if !ok {
		return
	}

	result, err := h.sessionService.CompleteSet(c.Request.Context(), athleteID, sessionID, req.Weight, req.Reps, req.RPE)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// EditSetRecord corrects a logged set. No re-advancement happens.
func (h *SessionHandler) EditSetRecord(c *gin.Context) {
	var req EditSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	athleteID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	sessionID, ok := parseObjectIDParam(c, "sessionId")
	if !ok {
		return
	}
	setNumber, err := strconv.Atoi(c.Param("setNumber"))
	if err != nil || setNumber < 1 {
		abortWithError(c, http.StatusBadRequest, "Invalid setNumber")
		return
	}

	session, err := h.sessionService.EditSetRecord(c.Request.Context(), athleteID, sessionID, c.Param("exerciseId"), setNumber, req.Weight, req.Reps)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSetRecord removes a logged set and recomputes the exercise's
// completion state.
func (h *SessionHandler) DeleteSetRecord(c *gin.Context) {
	athleteID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	sessionID, ok := parseObjectIDParam(c, "sessionId")
	if !ok {
		return
	}
	setNumber, err := strconv.Atoi(c.Param("setNumber"))
	if err != nil || setNumber < 1 {
		abortWithError(c, http.StatusBadRequest, "Invalid setNumber")
		return
	}

	session, err := h.sessionService.DeleteSetRecord(c.Request.Context(), athleteID, sessionID, c.Param("exerciseId"), setNumber)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// PauseSession pauses an active session.
func (h *SessionHandler) PauseSession(c *gin.Context) {
	h.transition(c, h.sessionService.PauseSession)
}

// ResumeSession resumes a paused session.
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	h.transition(c, h.sessionService.ResumeSession)
}

// AbandonSession abandons a session, keeping logged data.
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	h.transition(c, h.sessionService.AbandonSession)
}

// CompleteSession finishes a session. Incomplete exercises require
// confirmPartial.
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	// Body is optional; an empty body means no partial confirmation.
	var req CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	athleteID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	sessionID, ok := parseObjectIDParam(c, "sessionId")
	if !ok {
		return
	}

	session, err := h.sessionService.CompleteSession(c.Request.Context(), athleteID, sessionID, req.ConfirmPartial)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetRecords lists the athlete's personal records.
func (h *SessionHandler) GetRecords(c *gin.Context) {
	athleteID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}

	records, err := h.recordService.GetRecordsByAthlete(c.Request.Context(), athleteID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch records")
		return
	}
	c.JSON(http.StatusOK, records)
}

// transition handles the body-less lifecycle endpoints.
func (h *SessionHandler) transition(c *gin.Context, op func(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error)) {
	athleteID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	sessionID, ok := parseObjectIDParam(c, "sessionId")
	if !ok {
		return
	}

	session, err := op(c.Request.Context(), athleteID, sessionID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// respondSessionError maps session service/domain errors to HTTP statuses.
func respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, domain.ErrSetRecordNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionAccessDenied),
		errors.Is(err, service.ErrNotAssigned):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSessionAlreadyActive):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSessionIncomplete):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidReps),
		errors.Is(err, domain.ErrInvalidRPE),
		errors.Is(err, domain.ErrNoCurrentExercise),
		errors.Is(err, domain.ErrSessionExerciseGone):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to process session request")
	}
}
