package api

import (
	"net/http"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures the application's API routes.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	rosterService service.RosterService,
	planService service.PlanService,
	templateService service.TemplateService,
	assignmentService service.AssignmentService,
	sessionService service.SessionService,
	recordService service.RecordService,
) {
	authHandler := NewAuthHandler(authService)
	rosterHandler := NewRosterHandler(rosterService)
	planHandler := NewPlanHandler(planService)
	templateHandler := NewTemplateHandler(templateService)
	assignmentHandler := NewAssignmentHandler(assignmentService)
	sessionHandler := NewSessionHandler(sessionService, recordService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		// --- Public routes ---
		apiV1.POST("/auth/register", authHandler.Register)
		apiV1.POST("/auth/login", authHandler.Login)

		// --- Authenticated routes ---
		authed := apiV1.Group("")
		authed.Use(AuthMiddleware(jwtSecret))
		{
			// Assignments are visible to both sides; the handler
			// scopes the result to the caller.
			authed.GET("/assignments", assignmentHandler.GetAssignments)
			authed.GET("/assignments/:assignmentId", assignmentHandler.GetAssignment)

			// --- Coach routes ---
			coach := authed.Group("")
			coach.Use(RoleMiddleware(domain.RoleCoach))
			{
				coach.POST("/athletes", rosterHandler.AddAthlete)
				coach.GET("/athletes", rosterHandler.GetAthletes)
				coach.POST("/athlete-groups", rosterHandler.CreateAthleteGroup)
				coach.GET("/athlete-groups", rosterHandler.GetAthleteGroups)
				coach.PUT("/athlete-groups/:groupId", rosterHandler.UpdateAthleteGroup)
				coach.DELETE("/athlete-groups/:groupId", rosterHandler.DeleteAthleteGroup)

				coach.POST("/plans", planHandler.CreatePlan)
				coach.GET("/plans", planHandler.GetPlans)
				coach.GET("/plans/:planId", planHandler.GetPlan)
				coach.PUT("/plans/:planId", planHandler.UpdatePlan)
				coach.DELETE("/plans/:planId", planHandler.DeletePlan)

				coach.POST("/plans/:planId/exercises", planHandler.AddExercise)
				coach.PUT("/plans/:planId/exercises/:exerciseId", planHandler.UpdateExercise)
				coach.DELETE("/plans/:planId/exercises/:exerciseId", planHandler.DeleteExercise)
				coach.POST("/plans/:planId/exercises/:exerciseId/move", planHandler.MoveExercise)
				coach.POST("/plans/:planId/exercises/:exerciseId/group", planHandler.MoveExerciseToGroup)

				coach.POST("/plans/:planId/groups", planHandler.CreateGroup)
				coach.PUT("/plans/:planId/groups/:groupId", planHandler.UpdateGroup)
				coach.DELETE("/plans/:planId/groups/:groupId", planHandler.DeleteGroup)

				coach.POST("/templates", templateHandler.CreateTemplate)
				coach.GET("/templates", templateHandler.GetTemplates)
				coach.GET("/templates/:templateId", templateHandler.GetTemplate)
				coach.PUT("/templates/:templateId", templateHandler.UpdateTemplate)
				coach.DELETE("/templates/:templateId", templateHandler.DeleteTemplate)
				coach.PUT("/templates/:templateId/favorite", templateHandler.SetFavorite)

				coach.POST("/plans/:planId/blocks/:templateId", templateHandler.InsertIntoPlan)
				coach.PUT("/plans/:planId/instances/:instanceId", templateHandler.SaveInstance)
				coach.POST("/plans/:planId/instances/:instanceId/reset", templateHandler.ResetInstance)
				coach.GET("/plans/:planId/instances/:instanceId/diff", templateHandler.GetInstanceDiff)

				coach.POST("/assignments", assignmentHandler.Assign)
				coach.POST("/assignments/:assignmentId/modifications", assignmentHandler.AddModification)
				coach.DELETE("/assignments/:assignmentId/modifications/:modificationId", assignmentHandler.RemoveModification)
			}

			// --- Athlete routes ---
			athlete := authed.Group("")
			athlete.Use(RoleMiddleware(domain.RoleAthlete))
			{
				athlete.POST("/sessions", sessionHandler.StartSession)
				athlete.GET("/sessions/active", sessionHandler.GetActiveSession)
				athlete.GET("/sessions/:sessionId", sessionHandler.GetSession)

				athlete.POST("/sessions/:sessionId/sets", sessionHandler.CompleteSet)
				athlete.PUT("/sessions/:sessionId/exercises/:exerciseId/sets/:setNumber", sessionHandler.EditSetRecord)
				athlete.DELETE("/sessions/:sessionId/exercises/:exerciseId/sets/:setNumber", sessionHandler.DeleteSetRecord)

				athlete.POST("/sessions/:sessionId/pause", sessionHandler.PauseSession)
				athlete.POST("/sessions/:sessionId/resume", sessionHandler.ResumeSession)
				athlete.POST("/sessions/:sessionId/complete", sessionHandler.CompleteSession)
				athlete.POST("/sessions/:sessionId/abandon", sessionHandler.AbandonSession)

				athlete.GET("/records", sessionHandler.GetRecords)
			}
		}
	}
}
