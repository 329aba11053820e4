package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hirewise/assessment-backend/internal/config"
	"github.com/hirewise/assessment-backend/internal/handler"
	"github.com/hirewise/assessment-backend/internal/middleware"
	"github.com/hirewise/assessment-backend/internal/response"
	"github.com/hirewise/assessment-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session    *handler.SessionHandler
	Proctoring *handler.ProctoringHandler
	Review     *handler.ReviewHandler
	WS         *handler.WSHandler
	Health     *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Rate limiter for the integrity event endpoint: a violation storm
	// from one client must not drown the API.
	eventLimiter := middleware.NewRateLimiter(120, time.Minute)

	// Health check, including upstream reachability.
	router.GET("/health", handlers.Health.Check)

	// ─── 1. Candidate Group (JWT) ──────────────────────────────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(middleware.RequireCandidateJWT(authService))
	{
		sessionGroup := candidateAPI.Group("/assessments/:assessment_id/session")
		{
			sessionGroup.POST("", handlers.Session.StartSession)
			sessionGroup.GET("", handlers.Session.GetSession)
			sessionGroup.PUT("/cursor", handlers.Session.SelectQuestion)
			sessionGroup.POST("/next", handlers.Session.NextQuestion)
			sessionGroup.POST("/previous", handlers.Session.PreviousQuestion)
			sessionGroup.PUT("/draft", handlers.Session.SaveDraft)
			sessionGroup.POST("/submit", handlers.Session.SubmitAnswer)
			sessionGroup.POST("/run", handlers.Session.RunCode)
			sessionGroup.POST("/events", eventLimiter.Middleware(), handlers.Session.RecordEvent)
			sessionGroup.POST("/complete", handlers.Session.Complete)
		}
	}

	// ─── 2. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/candidate/assessments/:assessment_id/stream", handlers.WS.SessionStream)
	}

	// ─── 3. Recruiter Group (JWT) ──────────────────────────────────────
	recruiterAPI := router.Group("/api/v1/recruiter")
	recruiterAPI.Use(middleware.RequireRecruiterJWT(authService))
	{
		recruiterAPI.GET("/assessments/:assessment_id/proctoring/events", handlers.Proctoring.ListEvents)
		recruiterAPI.GET("/assessments/:assessment_id/proctoring/summary", handlers.Proctoring.Summary)
		recruiterAPI.GET("/assessments/:assessment_id/candidates/:candidate_id/responses", handlers.Review.ListResponses)
		recruiterAPI.GET("/assessments/:assessment_id/candidates/:candidate_id/progress", handlers.Review.Progress)
	}

	return router
}
