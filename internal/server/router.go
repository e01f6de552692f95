package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/memoapp/planner-backend/internal/handlers"
	"github.com/memoapp/planner-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	PlannerHandler      *handlers.PlannerHandler
	SessionHandler      *handlers.SessionHandler
	PriorityHandler     *handlers.PriorityHandler
	ExamHandler         *handlers.ExamHandler
	FlashcardHandler    *handlers.FlashcardHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("planner-backend"))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Planner
	protected.GET("/planner/dashboard", cfg.PlannerHandler.GetDashboard)
	protected.GET("/planner/settings", cfg.PlannerHandler.GetSettings)
	protected.PUT("/planner/settings", cfg.PlannerHandler.UpdateSettings)
	protected.GET("/planner/prayer-times", cfg.PlannerHandler.ListPrayerTimes)
	protected.PUT("/planner/prayer-times", cfg.PlannerHandler.SavePrayerTimes)
	protected.GET("/planner/points/history", cfg.PlannerHandler.PointsHistory)

	// Schedules
	protected.GET("/planner/schedules", cfg.PlannerHandler.ListSchedules)
	protected.POST("/planner/schedules/generate",
		cfg.RateLimitMiddleware.Limit("generate", 5, time.Minute),
		cfg.PlannerHandler.GenerateSchedule)
	protected.GET("/planner/schedules/active", cfg.PlannerHandler.GetActiveSchedule)
	protected.GET("/planner/schedules/:id", cfg.PlannerHandler.GetSchedule)
	protected.DELETE("/planner/schedules/:id", cfg.PlannerHandler.DeleteSchedule)
	protected.POST("/planner/schedules/:id/activate", cfg.PlannerHandler.ActivateSchedule)
	protected.POST("/planner/adapt",
		cfg.RateLimitMiddleware.Limit("adapt", 5, time.Minute),
		cfg.PlannerHandler.Adapt)

	// Sessions
	protected.GET("/planner/sessions/today", cfg.SessionHandler.Today)
	protected.GET("/planner/sessions/range", cfg.SessionHandler.Range)
	protected.POST("/planner/sessions/:id/start", cfg.SessionHandler.Start)
	protected.POST("/planner/sessions/:id/pause", cfg.SessionHandler.Pause)
	protected.POST("/planner/sessions/:id/resume", cfg.SessionHandler.Resume)
	protected.POST("/planner/sessions/:id/complete", cfg.SessionHandler.Complete)
	protected.POST("/planner/sessions/:id/skip", cfg.SessionHandler.Skip)
	protected.POST("/planner/sessions/:id/pin", cfg.SessionHandler.Pin)
	protected.PUT("/planner/sessions/:id/reschedule", cfg.SessionHandler.Reschedule)

	// Priorities
	protected.GET("/priorities", cfg.PriorityHandler.Latest)
	protected.GET("/priorities/history", cfg.PriorityHandler.History)
	protected.POST("/priorities/recalculate", cfg.PriorityHandler.Recalculate)
	protected.POST("/priorities/recalculate/subject/:id", cfg.PriorityHandler.RecalculateSubject)

	// Exams
	protected.GET("/exams", cfg.ExamHandler.List)
	protected.POST("/exams", cfg.ExamHandler.Create)
	protected.POST("/exams/:id/result", cfg.ExamHandler.RecordResult)

	// Flashcards
	protected.POST("/flashcard-decks", cfg.FlashcardHandler.CreateDeck)
	protected.GET("/flashcard-decks", cfg.FlashcardHandler.ListDecks)
	protected.POST("/flashcard-decks/:id/cards", cfg.FlashcardHandler.AddCards)
	protected.GET("/flashcards/due", cfg.FlashcardHandler.Due)
	protected.GET("/flashcards/new", cfg.FlashcardHandler.New)
	protected.POST("/flashcard-reviews/start", cfg.FlashcardHandler.StartReview)
	protected.GET("/flashcard-reviews/current", cfg.FlashcardHandler.CurrentReview)
	protected.POST("/flashcard-reviews/:id/answer", cfg.FlashcardHandler.Answer)
	protected.POST("/flashcard-reviews/:id/complete", cfg.FlashcardHandler.CompleteReview)
	protected.POST("/flashcard-reviews/:id/abandon", cfg.FlashcardHandler.AbandonReview)
	protected.GET("/flashcard-stats", cfg.FlashcardHandler.Stats)
	protected.GET("/flashcard-stats/forecast", cfg.FlashcardHandler.Forecast)

	return router
}
