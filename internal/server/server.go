package server

import (
	"context"
	"log"
	"strings"
	"time"

	"clickbag.eco/backend/internal/agent"
	"clickbag.eco/backend/internal/config"
	"clickbag.eco/backend/internal/handler"
	"clickbag.eco/backend/internal/ledger"
	"clickbag.eco/backend/internal/middleware"
	"clickbag.eco/backend/internal/repository"
	"clickbag.eco/backend/internal/service"
	"clickbag.eco/backend/pkg/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *agent.Scheduler
	validator   agent.ReceiptValidator
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	photoStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		// Photo persistence is best-effort everywhere it is used.
		log.Printf("cloudinary storage unavailable, submissions will be stored without photos: %v", err)
		photoStorage = nil
	}

	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := service.NewSearchService(meiliClient)

	validator, err := agent.NewGeminiValidator(context.Background(), cfg.GeminiModel, ledger.ClickPointsPerValidation)
	if err != nil {
		log.Fatalf("failed to initialize receipt validator: %v", err)
	}

	statsHub := service.NewStatsHub()
	statsSvc := service.NewStatsService(ledgerRepo, statsHub)

	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := handler.NewAuthHandler(authSvc)

	submissionSvc := service.NewSubmissionService(
		userRepo,
		submissionRepo,
		ledgerRepo,
		validator,
		photoStorage,
		cfg.CloudinaryUploadFolder,
		searchSvc,
		statsSvc,
		redisClient,
		cfg.SubmissionRateLimit,
	)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)

	adminSvc := service.NewAdminService(userRepo, submissionRepo, ledgerRepo, photoStorage, searchSvc, statsSvc, cfg.AdminEmail)
	adminHandler := handler.NewAdminHandler(adminSvc)

	statsHandler := handler.NewStatsHandler(statsSvc)

	// Nightly ledger audit
	scheduler := agent.NewScheduler()
	scheduler.RegisterJob(agent.NewLedgerAudit(userRepo, submissionRepo, ledgerRepo, cfg.AuditSchedule))
	scheduler.Start()

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret, cfg.AdminEmail)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}
	api.GET("/stats/community", statsHandler.GetCommunityStats)

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/users", adminHandler.GetAllUsers)
			adminGroup.GET("/submissions", adminHandler.GetAllSubmissions)
			adminGroup.PUT("/users/:id/points", adminHandler.UpdateUserPoints)
			adminGroup.PUT("/users/:id/tree-limit", adminHandler.UpdateUserTreeLimit)
			adminGroup.DELETE("/submissions/:id", adminHandler.DeleteSubmission)
		}

		// Submission routes
		protected.POST("/submissions", submissionHandler.CreateSubmission)
		protected.GET("/submissions/me", submissionHandler.GetMySubmissions)

		// Profile routes
		protected.GET("/profile/me", submissionHandler.GetMyProfile)

		// Live dashboard feed
		protected.GET("/stats/community/live", statsHandler.HandleLiveStats)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   scheduler,
		validator:   validator,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) Shutdown() {
	s.scheduler.Stop()
	s.validator.Close()
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
