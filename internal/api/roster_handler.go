package api

import (
	"errors"
	"net/http"

	"forgefit/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RosterHandler holds the roster service dependency.
type RosterHandler struct {
	rosterService service.RosterService
}

// NewRosterHandler creates a new RosterHandler.
func NewRosterHandler(rosterService service.RosterService) *RosterHandler {
	return &RosterHandler{rosterService: rosterService}
}

// --- DTOs ---

// AddAthleteRequest puts an existing athlete account on the roster.
type AddAthleteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AthleteGroupRequest creates or replaces an athlete group.
type AthleteGroupRequest struct {
	Name       string   `json:"name" binding:"required"`
	AthleteIDs []string `json:"athleteIds" binding:"required,min=1"`
}

func (r AthleteGroupRequest) parseMembers() ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(r.AthleteIDs))
	for _, s := range r.AthleteIDs {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, errors.New("invalid athlete id " + s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// --- Handler Methods ---

// AddAthlete godoc
// @Summary Add an athlete to the roster
// @Description Finds an athlete by email and links them to the coach.
// @Tags Roster
// @Security BearerAuth
// @Router /athletes [post]
func (h *RosterHandler) AddAthlete(c *gin.Context) {
	var req AddAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	athlete, err := h.rosterService.AddAthleteByEmail(c.Request.Context(), coachID, req.Email)
	if err != nil {
		respondRosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(athlete))
}

// GetAthletes lists the coach's roster.
func (h *RosterHandler) GetAthletes(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	athletes, err := h.rosterService.GetAthletes(c.Request.Context(), coachID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch athletes")
		return
	}
	responses := make([]UserResponse, len(athletes))
	for i := range athletes {
		responses[i] = MapUserToResponse(&athletes[i])
	}
	c.JSON(http.StatusOK, responses)
}

// CreateAthleteGroup creates a named roster subset.
func (h *RosterHandler) CreateAthleteGroup(c *gin.Context) {
	var req AthleteGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	members, err := req.parseMembers()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	group, err := h.rosterService.CreateAthleteGroup(c.Request.Context(), coachID, req.Name, members)
	if err != nil {
		respondRosterError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// GetAthleteGroups lists the coach's athlete groups.
func (h *RosterHandler) GetAthleteGroups(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	groups, err := h.rosterService.GetAthleteGroups(c.Request.Context(), coachID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch athlete groups")
		return
	}
	c.JSON(http.StatusOK, groups)
}

// UpdateAthleteGroup renames a group and/or replaces its membership.
func (h *RosterHandler) UpdateAthleteGroup(c *gin.Context) {
	var req AthleteGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	groupID, ok := parseObjectIDParam(c, "groupId")
	if !ok {
		return
	}
	members, err := req.parseMembers()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	group, err := h.rosterService.UpdateAthleteGroup(c.Request.Context(), coachID, groupID, req.Name, members)
	if err != nil {
		respondRosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// DeleteAthleteGroup removes a group.
func (h *RosterHandler) DeleteAthleteGroup(c *gin.Context) {
	coachID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	groupID, ok := parseObjectIDParam(c, "groupId")
	if !ok {
		return
	}

	if err := h.rosterService.DeleteAthleteGroup(c.Request.Context(), coachID, groupID); err != nil {
		respondRosterError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondRosterError maps roster service errors to HTTP statuses.
func respondRosterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAthleteNotFound),
		errors.Is(err, service.ErrAthleteGroupNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAthleteNotRole),
		errors.Is(err, service.ErrAthleteNotOnRoster):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAthleteAlreadyCoached):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRosterAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to process roster request")
	}
}
