package api

import (
	"errors"
	"net/http"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
)

// PlanHandler holds the plan service dependency.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

// CreatePlanRequest defines the expected JSON for creating a plan.
type CreatePlanRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdatePlanRequest defines the expected JSON for updating plan metadata.
type UpdatePlanRequest struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	EstimatedDuration int    `json:"estimatedDuration" binding:"omitempty,min=0"`
}

// ExerciseRequest carries the prescription for adding or updating an
// exercise. Membership fields are set via the grouping endpoints, not
// here; the exercise id is taken from the path on update.
type ExerciseRequest struct {
	Name        string            `json:"name" binding:"required"`
	Sets        int               `json:"sets" binding:"required,min=1"`
	Reps        int               `json:"reps" binding:"required,min=1"`
	WeightType  domain.WeightType `json:"weightType" binding:"required,oneof=fixed percentage bodyweight"`
	Weight      *float64          `json:"weight"`
	Percentage  *float64          `json:"percentage"`
	Tempo       string            `json:"tempo"`
	RestSeconds int               `json:"restSeconds" binding:"omitempty,min=0"`
	EachSide    bool              `json:"eachSide"`
	Notes       string            `json:"notes"`
}

func (r ExerciseRequest) toDomain(id string) domain.Exercise {
	return domain.Exercise{
		ID:          id,
		Name:        r.Name,
		Sets:        r.Sets,
		Reps:        r.Reps,
		WeightType:  r.WeightType,
		Weight:      r.Weight,
		Percentage:  r.Percentage,
		Tempo:       r.Tempo,
		RestSeconds: r.RestSeconds,
		EachSide:    r.EachSide,
		Notes:       r.Notes,
	}
}

// MoveExerciseRequest nominates the direction for a reorder.
type MoveExerciseRequest struct {
	Direction domain.MoveDirection `json:"direction" binding:"required,oneof=up down"`
}

// CreateGroupRequest clusters existing exercises into a new group.
type CreateGroupRequest struct {
	ExerciseIDs          []string         `json:"exerciseIds" binding:"required,min=1"`
	Type                 domain.GroupType `json:"type" binding:"required,oneof=superset circuit section"`
	Name                 string           `json:"name"`
	Rounds               int              `json:"rounds" binding:"omitempty,min=1"`
	RestBetweenExercises int              `json:"restBetweenExercises" binding:"omitempty,min=0"`
	RestBetweenRounds    int              `json:"restBetweenRounds" binding:"omitempty,min=0"`
}

// UpdateGroupRequest replaces a group's type and settings. Members are
// untouched; use the move endpoints to change membership.
type UpdateGroupRequest struct {
	Type                 domain.GroupType `json:"type" binding:"required,oneof=superset circuit section"`
	Name                 string           `json:"name"`
	Rounds               int              `json:"rounds" binding:"omitempty,min=1"`
	RestBetweenExercises int              `json:"restBetweenExercises" binding:"omitempty,min=0"`
	RestBetweenRounds    int              `json:"restBetweenRounds" binding:"omitempty,min=0"`
}

// MoveToGroupRequest moves an exercise into a group, or out of any
// group when targetGroupId is omitted.
type MoveToGroupRequest struct {
	TargetGroupID *string `json:"targetGroupId"`
}

// --- Handler Methods ---

// CreatePlan godoc
// @Summary Create a training plan
// @Description Creates an empty plan shell for the authenticated coach.
// @Tags Plans
// @Security BearerAuth
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), coachID, req.Name, req.Description)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create plan")
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// GetPlans lists the authenticated coach's plans.
func (h *PlanHandler) GetPlans(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	plans, err := h.planService.GetPlansByCoach(c.Request.Context(), coachID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch plans")
		return
	}
	c.JSON(http.StatusOK, plans)
}

// GetPlan returns a single plan owned by the authenticated coach.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), planID)
	if err != nil {
		respondPlanError(c, err)
		return
	}
	if plan.CoachID != coachID {
		abortWithError(c, http.StatusForbidden, service.ErrPlanAccessDenied.Error())
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdatePlan updates plan name/description and the duration override.
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.UpdatePlanMeta(c.Request.Context(), coachID, planID, req.Name, req.Description, req.EstimatedDuration)
	if err != nil {
		respondPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeletePlan deletes a plan owned by the authenticated coach.
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	if err := h.planService.DeletePlan(c.Request.Context(), coachID, planID); err != nil {
		respondPlanError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddExercise appends an exercise to the plan's top level.
func (h *PlanHandler) AddExercise(c *gin.Context) {
	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.AddExercise(c.Request.Context(), coachID, planID, req.toDomain(""))
	if err != nil {
		respondPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdateExercise replaces an exercise's prescription in place.
func (h *PlanHandler) UpdateExercise(c *gin.Context) {
	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.UpdateExercise(c.Request.Context(), coachID, planID, req.toDomain(c.Param("exerciseId")))
	if err != nil {
		respondPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeleteExercise removes an exercise and renumbers its scope.
func (h *PlanHandler) DeleteExercise(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.DeleteExercise(c.Request.Context(), coachID, planID, c.Param("exerciseId"))
	if err != nil {
		respondPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// MoveExercise swaps an exercise with its neighbor within its scope.
func (h *PlanHandler) MoveExercise(c *gin.Context) {
	var req MoveExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.MoveExercise(c.Request.Context(), coachID, planID, c.Param("exerciseId"), req.Direction)
	if err != nil {
		respondPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// CreateGroup clusters existing plan exercises into a new group.
func (h *PlanHandler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	settings := domain.GroupSettings{
		Name:                 req.Name,
		Rounds:               req.Rounds,
		RestBetweenExercises: req.RestBetweenExercises,
		RestBetweenRounds:    req.RestBetweenRounds,
	}
	plan, err := h.planService.CreateGroup(c.Request.Context(), coachID, planID, req.ExerciseIDs, req.Type, settings)
	if err != nil {
		respondPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdateGroup replaces a group's settings.
func (h *PlanHandler) UpdateGroup(c *gin.Context) {
	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	group := domain.ExerciseGroup{
		ID:                   c.Param("groupId"),
		Type:                 req.Type,
		Name:                 req.Name,
		Rounds:               req.Rounds,
		RestBetweenExercises: req.RestBetweenExercises,
		RestBetweenRounds:    req.RestBetweenRounds,
	}
	plan, err := h.planService.UpdateGroup(c.Request.Context(), coachID, planID, group)
	if err != nil {
		respondPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeleteGroup ungroups members and removes the group shell.
func (h *PlanHandler) DeleteGroup(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.DeleteGroup(c.Request.Context(), coachID, planID, c.Param("groupId"))
	if err != nil {
		respondPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// MoveExerciseToGroup moves an exercise into (or out of) a group.
func (h *PlanHandler) MoveExerciseToGroup(c *gin.Context) {
	var req MoveToGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.MoveExerciseToGroup(c.Request.Context(), coachID, planID, c.Param("exerciseId"), req.TargetGroupID)
	if err != nil {
		respondPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// respondPlanError maps plan service/domain errors to HTTP statuses.
func respondPlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrExerciseNotFound),
		errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrInstanceNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCrossScopeMove),
		errors.Is(err, domain.ErrPlanValidation),
		errors.Is(err, domain.ErrEmptyGroup):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to update plan")
	}
}
