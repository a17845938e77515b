package api

import (
	"errors"
	"net/http"
	"time"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentHandler holds the assignment service dependency.
type AssignmentHandler struct {
	assignmentService service.AssignmentService
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignmentService service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// --- DTOs ---

// AssignRequest schedules a plan for one athlete or a whole group.
// Exactly one of athleteId / athleteGroupId must be set.
type AssignRequest struct {
	PlanID         string    `json:"planId" binding:"required"`
	AthleteID      *string   `json:"athleteId"`
	AthleteGroupID *string   `json:"athleteGroupId"`
	ScheduledAt    time.Time `json:"scheduledAt" binding:"required"`
	Location       string    `json:"location"`
	Notes          string    `json:"notes"`
}

// ModificationRequest adds a per-athlete tweak to an assignment.
type ModificationRequest struct {
	AthleteID     string                  `json:"athleteId" binding:"required"`
	ExerciseID    string                  `json:"exerciseId" binding:"required"`
	Type          domain.ModificationType `json:"type" binding:"required,oneof=sets reps weight exercise"`
	OriginalValue string                  `json:"originalValue"`
	NewValue      string                  `json:"newValue" binding:"required"`
	Reason        string                  `json:"reason"`
}

// --- Handler Methods ---

// Assign schedules a plan. A group target fans out to one assignment
// per roster member.
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if (req.AthleteID == nil) == (req.AthleteGroupID == nil) {
		abortWithError(c, http.StatusBadRequest, "Exactly one of athleteId or athleteGroupId is required")
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, err := primitive.ObjectIDFromHex(req.PlanID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid planId")
		return
	}

	if req.AthleteID != nil {
		athleteID, err := primitive.ObjectIDFromHex(*req.AthleteID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid athleteId")
			return
		}
		assignment, err := h.assignmentService.AssignToAthlete(c.Request.Context(), coachID, planID, athleteID, req.ScheduledAt, req.Location, req.Notes)
		if err != nil {
			respondAssignmentError(c, err)
			return
		}
		c.JSON(http.StatusCreated, assignment)
		return
	}

	groupID, err := primitive.ObjectIDFromHex(*req.AthleteGroupID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid athleteGroupId")
		return
	}
	assignments, err := h.assignmentService.AssignToGroup(c.Request.Context(), coachID, planID, groupID, req.ScheduledAt, req.Location, req.Notes)
	if err != nil && len(assignments) == 0 {
		respondAssignmentError(c, err)
		return
	}
	// Partial fan-out failures still return the assignments that were
	// created; the client surfaces the shortfall.
	status := http.StatusCreated
	if err != nil {
		status = http.StatusMultiStatus
	}
	c.JSON(status, assignments)
}

// GetAssignments lists the caller's assignments, coach or athlete side.
func (h *AssignmentHandler) GetAssignments(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	roleRaw, _ := c.Get(ContextUserRoleKey)

	var assignments []domain.Assignment
	if roleRaw == domain.RoleCoach {
		assignments, err = h.assignmentService.GetAssignmentsByCoach(c.Request.Context(), userID)
	} else {
		assignments, err = h.assignmentService.GetAssignmentsByAthlete(c.Request.Context(), userID)
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch assignments")
		return
	}
	c.JSON(http.StatusOK, assignments)
}

// GetAssignment fetches one assignment visible to the caller.
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	assignmentID, ok := parseObjectIDParam(c, "assignmentId")
	if !ok {
		return
	}

	assignment, err := h.assignmentService.GetAssignment(c.Request.Context(), assignmentID)
	if err != nil {
		respondAssignmentError(c, err)
		return
	}
	if assignment.CoachID != userID && (assignment.AthleteID == nil || *assignment.AthleteID != userID) {
		abortWithError(c, http.StatusForbidden, service.ErrAssignmentAccessDenied.Error())
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// AddModification attaches a per-athlete tweak to an assignment.
func (h *AssignmentHandler) AddModification(c *gin.Context) {
	var req ModificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	assignmentID, ok := parseObjectIDParam(c, "assignmentId")
	if !ok {
		return
	}
	athleteID, err := primitive.ObjectIDFromHex(req.AthleteID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid athleteId")
		return
	}

	mod := domain.Modification{
		AthleteID:     athleteID,
		ExerciseID:    req.ExerciseID,
		Type:          req.Type,
		OriginalValue: req.OriginalValue,
		NewValue:      req.NewValue,
		Reason:        req.Reason,
	}
	assignment, err := h.assignmentService.AddModification(c.Request.Context(), coachID, assignmentID, mod)
	if err != nil {
		respondAssignmentError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// RemoveModification deletes a tweak from an assignment.
func (h *AssignmentHandler) RemoveModification(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	assignmentID, ok := parseObjectIDParam(c, "assignmentId")
	if !ok {
		return
	}

	assignment, err := h.assignmentService.RemoveModification(c.Request.Context(), coachID, assignmentID, c.Param("modificationId"))
	if err != nil {
		respondAssignmentError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// respondAssignmentError maps assignment service errors to HTTP statuses.
func respondAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrAthleteGroupNotFound),
		errors.Is(err, service.ErrModificationNotFound),
		errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAssignmentAccessDenied),
		errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to process assignment request")
	}
}
