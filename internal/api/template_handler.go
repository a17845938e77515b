package api

import (
	"errors"
	"net/http"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TemplateHandler holds the template service dependency.
type TemplateHandler struct {
	templateService service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// --- DTOs ---

// TemplateExerciseRequest is one exercise inside a template payload.
// GroupID references a group handle from the same payload.
type TemplateExerciseRequest struct {
	ExerciseRequest
	GroupID *string `json:"groupId"`
}

// TemplateGroupRequest is one group inside a template payload. ID is a
// client-chosen handle used only to tie exercises to groups within the
// request; the server mints the stored identities.
type TemplateGroupRequest struct {
	ID                   string           `json:"id" binding:"required"`
	Type                 domain.GroupType `json:"type" binding:"required,oneof=superset circuit section"`
	Name                 string           `json:"name"`
	Rounds               int              `json:"rounds" binding:"omitempty,min=1"`
	RestBetweenExercises int              `json:"restBetweenExercises" binding:"omitempty,min=0"`
	RestBetweenRounds    int              `json:"restBetweenRounds" binding:"omitempty,min=0"`
}

// TemplateRequest defines the JSON body for creating or updating a
// block template.
type TemplateRequest struct {
	Name      string                    `json:"name" binding:"required"`
	Category  domain.BlockCategory      `json:"category" binding:"omitempty,oneof=warmup main accessory cooldown custom"`
	Exercises []TemplateExerciseRequest `json:"exercises" binding:"required,min=1"`
	Groups    []TemplateGroupRequest    `json:"groups"`
}

// toDomain mints fresh identities for the template content, remapping
// the client's group handles onto the stored group ids.
func (r TemplateRequest) toDomain() (domain.BlockTemplate, error) {
	tpl := domain.BlockTemplate{
		Name:     r.Name,
		Category: r.Category,
	}

	groupIDs := make(map[string]string, len(r.Groups))
	for i, g := range r.Groups {
		id := uuid.NewString()
		groupIDs[g.ID] = id
		tpl.Groups = append(tpl.Groups, domain.ExerciseGroup{
			ID:                   id,
			Name:                 g.Name,
			Type:                 g.Type,
			Rounds:               g.Rounds,
			RestBetweenExercises: g.RestBetweenExercises,
			RestBetweenRounds:    g.RestBetweenRounds,
			Order:                i + 1,
		})
	}

	// Dense per-scope ordering: ungrouped exercises count separately
	// from each group's members.
	scopeCount := make(map[string]int)
	for _, e := range r.Exercises {
		ex := e.toDomain(uuid.NewString())
		scope := ""
		if e.GroupID != nil {
			mapped, ok := groupIDs[*e.GroupID]
			if !ok {
				return domain.BlockTemplate{}, errors.New("exercise references unknown group handle " + *e.GroupID)
			}
			ex.GroupID = &mapped
			scope = mapped
		}
		scopeCount[scope]++
		ex.Order = scopeCount[scope]
		tpl.Exercises = append(tpl.Exercises, ex)
	}
	return tpl, nil
}

// SetFavoriteRequest toggles the favorite flag on a template.
type SetFavoriteRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

// SaveInstanceRequest carries the instance-level fields persisted at
// save time. Content edits go through the plan endpoints; this call
// recomputes the customization record.
type SaveInstanceRequest struct {
	InstanceName string `json:"instanceName"`
	Notes        string `json:"notes"`
}

// InstanceDiffResponse is the human-readable divergence summary.
type InstanceDiffResponse struct {
	Diff string `json:"diff"`
}

// --- Handler Methods ---

// CreateTemplate stores a new block template in the coach's library.
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	tpl, err := req.toDomain()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	tpl.CoachID = coachID

	created, err := h.templateService.CreateTemplate(c.Request.Context(), tpl)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetTemplates lists the coach's library, favorites first.
func (h *TemplateHandler) GetTemplates(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	templates, err := h.templateService.GetTemplatesByCoach(c.Request.Context(), coachID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch templates")
		return
	}
	c.JSON(http.StatusOK, templates)
}

// GetTemplate fetches one template.
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	templateID, ok := parseObjectIDParam(c, "templateId")
	if !ok {
		return
	}

	tpl, err := h.templateService.GetTemplate(c.Request.Context(), templateID)
	if err != nil {
		respondTemplateError(c, err)
		return
	}
	if tpl.CoachID != coachID {
		abortWithError(c, http.StatusForbidden, service.ErrTemplateAccessDenied.Error())
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// UpdateTemplate replaces a template's content. Existing plan
// instances keep their cloned content.
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	templateID, ok := parseObjectIDParam(c, "templateId")
	if !ok {
		return
	}

	tpl, err := req.toDomain()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	tpl.ID = templateID
	tpl.CoachID = coachID

	updated, err := h.templateService.UpdateTemplate(c.Request.Context(), tpl)
	if err != nil {
		respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteTemplate removes a template from the library.
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	templateID, ok := parseObjectIDParam(c, "templateId")
	if !ok {
		return
	}

	if err := h.templateService.DeleteTemplate(c.Request.Context(), coachID, templateID); err != nil {
		respondTemplateError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetFavorite toggles a template's favorite flag.
func (h *TemplateHandler) SetFavorite(c *gin.Context) {
	var req SetFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	templateID, ok := parseObjectIDParam(c, "templateId")
	if !ok {
		return
	}

	if err := h.templateService.SetFavorite(c.Request.Context(), coachID, templateID, *req.Favorite); err != nil {
		respondTemplateError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// InsertIntoPlan clones a template into a plan as a new block instance.
func (h *TemplateHandler) InsertIntoPlan(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}
	templateID, ok := parseObjectIDParam(c, "templateId")
	if !ok {
		return
	}

	plan, err := h.templateService.InsertIntoPlan(c.Request.Context(), coachID, planID, templateID)
	if err != nil {
		respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// SaveInstance persists instance-level fields and recomputes the
// instance's customization record against its template.
func (h *TemplateHandler) SaveInstance(c *gin.Context) {
	var req SaveInstanceRequest
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

	plan, err := h.templateService.SaveInstance(c.Request.Context(), coachID, planID, c.Param("instanceId"), req.Notes, req.InstanceName)
	if err != nil {
		respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ResetInstance discards an instance's customizations and re-clones
// the template. Destructive; the client collects confirmation.
func (h *TemplateHandler) ResetInstance(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.templateService.ResetInstance(c.Request.Context(), coachID, planID, c.Param("instanceId"))
	if err != nil {
		respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetInstanceDiff renders the instance-vs-template divergence summary.
func (h *TemplateHandler) GetInstanceDiff(c *gin.Context) {
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	diff, err := h.templateService.DescribeInstanceDiff(c.Request.Context(), planID, c.Param("instanceId"))
	if err != nil {
		respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusOK, InstanceDiffResponse{Diff: diff})
}

// respondTemplateError maps template service errors to HTTP statuses.
func respondTemplateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrInstanceNotInPlan),
		errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTemplateAccessDenied),
		errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrPlanValidation):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to process template request")
	}
}
