package app

import (
	"github.com/gin-gonic/gin"

	"github.com/memoapp/planner-backend/internal/server"
)

func wireRouter(handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware:      middleware.Auth,
		RateLimitMiddleware: middleware.RateLimit,
		PlannerHandler:      handlers.Planner,
		SessionHandler:      handlers.Session,
		PriorityHandler:     handlers.Priority,
		ExamHandler:         handlers.Exam,
		FlashcardHandler:    handlers.Flashcard,
	})
}
