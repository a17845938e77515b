package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forgefit/coaching-app/internal/api"
	"forgefit/coaching-app/internal/config"
	"forgefit/coaching-app/internal/repository/mongo"
	"forgefit/coaching-app/internal/service"
	"forgefit/coaching-app/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron"
)

// @title Coaching Platform API
// @version 1.0
// @description API for coach-authored training plans, block templates, assignments and live sessions.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Coaching App Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureAthleteGroupIndexes(ctx, appDB.Collection("athlete_groups"))
		mongo.EnsurePlanIndexes(ctx, appDB.Collection("plans"))
		mongo.EnsureTemplateIndexes(ctx, appDB.Collection("block_templates"))
		mongo.EnsureAssignmentIndexes(ctx, appDB.Collection("assignments"))
		mongo.EnsureSessionIndexes(ctx, appDB)
		mongo.EnsureRecordIndexes(ctx, appDB.Collection("personal_records"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing session archive storage...")
	archive, err := storage.NewS3Archive(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 archive: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	groupRepo := mongo.NewMongoAthleteGroupRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	templateRepo := mongo.NewMongoTemplateRepository(appDB)
	assignmentRepo := mongo.NewMongoAssignmentRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	recordRepo := mongo.NewMongoRecordRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	rosterService := service.NewRosterService(userRepo, groupRepo)
	planService := service.NewPlanService(planRepo)
	templateService := service.NewTemplateService(templateRepo, planRepo)
	assignmentService := service.NewAssignmentService(assignmentRepo, planRepo, userRepo, groupRepo)
	recordService := service.NewRecordService(recordRepo)
	sessionService := service.NewSessionService(sessionRepo, assignmentRepo, planRepo, recordService, archive)

	// --- Assignment Sweeper ---
	// Marks overdue assignments missed once their grace window passes.
	sweeper := cron.New()
	if cfg.Sweeper.Schedule != "" {
		err := sweeper.AddFunc(cfg.Sweeper.Schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := assignmentService.SweepMissed(ctx, cfg.Sweeper.Grace)
			if err != nil {
				log.Printf("ERROR: Assignment sweep failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("Assignment sweep marked %d assignment(s) missed", n)
			}
		})
		if err != nil {
			log.Fatalf("FATAL: Invalid sweeper schedule %q: %v", cfg.Sweeper.Schedule, err)
		}
		sweeper.Start()
		defer sweeper.Stop()
		log.Printf("Assignment sweeper scheduled (%s, grace %s)", cfg.Sweeper.Schedule, cfg.Sweeper.Grace)
	}

	// --- Initialize Gin Engine ---
	router := gin.Default()

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, rosterService, planService, templateService, assignmentService, sessionService, recordService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
