package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursegrade/internal/config"
	"github.com/stemsi/coursegrade/internal/handler"
	"github.com/stemsi/coursegrade/internal/metrics"
	"github.com/stemsi/coursegrade/internal/middleware"
	"github.com/stemsi/coursegrade/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Assignment *handler.AssignmentHandler
	Submission *handler.SubmissionHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	handlers *Handlers,
	submitLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(
		response.RequestIDMiddleware(),
		middleware.RequestLogger(log),
		metrics.Middleware(),
		middleware.BrotliWithConfig(middleware.BrotliConfig{
			Quality:   middleware.DefaultBrotliConfig.Quality,
			MinLength: middleware.DefaultBrotliConfig.MinLength,
			SkipPaths: []string{"/metrics"},
		}),
	)

	// ─── Service endpoints ─────────────────────────────────────────────
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	authAPI := router.Group("/api/v1/auth")
	{
		authAPI.POST("/login", handlers.Auth.Login)
		authAPI.GET("/me", middleware.RequireJWT(auth), handlers.Auth.Me)
	}

	// ─── 2. Student Group ──────────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireJWT(auth),
		middleware.RequireStudent(),
		middleware.NoStore(),
	)
	{
		studentAPI.GET("/assignments/:id", handlers.Assignment.GetStudentAssignment)
		studentAPI.POST("/assignments/:id/submit", submitLimiter.Middleware(), handlers.Submission.SubmitAssignment)
		studentAPI.GET("/assignments/:id/submission", handlers.Submission.GetMySubmission)
		studentAPI.GET("/submissions", handlers.Submission.ListMySubmissions)
	}

	// ─── 3. Instructor Group ───────────────────────────────────────────
	instructorAPI := router.Group("/api/v1/instructor")
	instructorAPI.Use(
		middleware.RequireJWT(auth),
		middleware.RequireInstructor(),
		middleware.NoStore(),
	)
	{
		instructorAPI.POST("/assignments", handlers.Assignment.CreateAssignment)
		instructorAPI.PUT("/assignments/:id", handlers.Assignment.UpdateAssignment)
		instructorAPI.GET("/assignments/:id", handlers.Assignment.GetAssignment)
		instructorAPI.GET("/courses/:course_id/assignments", handlers.Assignment.ListCourseAssignments)
		instructorAPI.GET("/assignments/:id/grading-stats", handlers.Assignment.GetGradingStats)

		instructorAPI.GET("/assignments/:id/submissions", handlers.Submission.ListAssignmentSubmissions)
		instructorAPI.POST("/assignments/:id/auto-grade", handlers.Submission.AutoGradeAll)
		instructorAPI.POST("/assignments/:id/preview", handlers.Submission.PreviewGrade)
		instructorAPI.POST("/submissions/:submission_id/auto-grade", handlers.Submission.AutoGradeSubmission)
		instructorAPI.PUT("/submissions/:submission_id/grade", handlers.Submission.GradeSubmission)
	}

	// ─── 4. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(auth), middleware.RequireInstructor())
	{
		ws.GET("/instructor/assignments/:id/grading", handlers.WS.GradingStream)
	}

	return router
}
