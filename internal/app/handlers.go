package app

import (
	"github.com/memoapp/planner-backend/internal/handlers"
	"github.com/memoapp/planner-backend/internal/logger"
)

type Handlers struct {
	Planner   *handlers.PlannerHandler
	Session   *handlers.SessionHandler
	Priority  *handlers.PriorityHandler
	Exam      *handlers.ExamHandler
	Flashcard *handlers.FlashcardHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Planner:   handlers.NewPlannerHandler(services.Planner, services.Adaptation, services.Points),
		Session:   handlers.NewSessionHandler(services.Session),
		Priority:  handlers.NewPriorityHandler(services.Priority),
		Exam:      handlers.NewExamHandler(services.Exam),
		Flashcard: handlers.NewFlashcardHandler(services.Review),
	}
}
