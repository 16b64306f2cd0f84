package router

import (
	"net/http"
	"time"

	"github.com/courseloop/examroom-backend/internal/config"
	"github.com/courseloop/examroom-backend/internal/handler"
	"github.com/courseloop/examroom-backend/internal/middleware"
	"github.com/courseloop/examroom-backend/internal/response"
	"github.com/courseloop/examroom-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth *handler.AuthHandler
	Room *handler.RoomHandler
	Exam *handler.ExamHandler
	WS   *handler.WSHandler
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Join is the only endpoint reachable with a guessed room code, so it
	// gets a per-IP limiter on top of auth.
	joinLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.POST("/rooms", handlers.Room.CreateRoom)
		teacherAPI.GET("/rooms", handlers.Room.ListRooms)
		teacherAPI.GET("/rooms/:code", handlers.Room.GetRoom)
		teacherAPI.POST("/rooms/:code/start", handlers.Room.StartRoom)
		teacherAPI.POST("/rooms/:code/end", handlers.Room.EndRoom)
		teacherAPI.PUT("/rooms/:code/publish", handlers.Room.SetPublish)
		teacherAPI.POST("/rooms/:code/ban", handlers.Room.BanStudent)
		teacherAPI.DELETE("/rooms/:code/ban/:student_id", handlers.Room.UnbanStudent)
		teacherAPI.PUT("/rooms/:code/allow-list", handlers.Room.SetAllowList)
		teacherAPI.GET("/rooms/:code/statistics", handlers.Room.RoomStatistics)
		teacherAPI.POST("/rooms/:code/submissions/:submission_id/grade", handlers.Room.GradeEssay)
	}

	// ─── 3. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.POST("/rooms/:code/join", joinLimiter.Middleware(), handlers.Exam.JoinRoom)
		studentAPI.GET("/rooms/:code/paper", handlers.Exam.GetPaper)
		studentAPI.POST("/rooms/:code/submit", handlers.Exam.SubmitExam)
		studentAPI.GET("/rooms/:code/result", handlers.Exam.GetResult)
		studentAPI.GET("/rooms/:code/overview", handlers.Exam.GetOverview)
	}

	// ─── 4. WebSocket Group (query-token auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/rooms/:code/stream", handlers.WS.RoomStream)
	}

	return router
}
