package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/config"
	"github.com/memoapp/planner-backend/internal/jobs"
	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/services"
)

type Services struct {
	Priority   services.PriorityService
	Points     services.PointsService
	Planner    services.PlannerService
	Session    services.SessionService
	Adaptation services.AdaptationService
	Review     services.ReviewService
	Exam       services.ExamService

	JobRegistry  *jobs.Registry
	JobWorker    *jobs.Worker
	JobScheduler *jobs.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	tuning, err := config.LoadTuning(cfg.TuningPath, log)
	if err != nil {
		return Services{}, fmt.Errorf("load tuning: %w", err)
	}

	priority := services.NewPriorityService(db, log, reposet.Subject, reposet.PriorityScore, reposet.User, tuning.Priority)
	points := services.NewPointsService(db, log, reposet.PointsEntry, reposet.StudySession, tuning.Points)
	planner := services.NewPlannerService(
		db, log,
		reposet.PlannerSetting,
		reposet.PrayerTime,
		reposet.Schedule,
		reposet.StudySession,
		reposet.PointsEntry,
		reposet.FlashcardProgress,
		priority,
		clients.UserLocker,
		tuning,
	)
	session := services.NewSessionService(db, log, reposet.StudySession, reposet.Subject, reposet.PlannerSetting, reposet.PrayerTime, points)
	adaptation := services.NewAdaptationService(
		db, log,
		reposet.Schedule,
		reposet.StudySession,
		reposet.Exam,
		reposet.User,
		reposet.PlannerSetting,
		priority,
		planner,
		clients.UserLocker,
	)
	review := services.NewReviewService(db, log, reposet.Flashcard, reposet.FlashcardProgress, reposet.ReviewSession, points, tuning.Review)
	exam := services.NewExamService(db, log, reposet.Exam, reposet.Subject)

	registry := jobs.NewRegistry()
	jobHandlers := []jobs.Handler{
		jobs.NewMissedSessionSweepHandler(session),
		jobs.NewAdaptationSweepHandler(adaptation),
		jobs.NewPriorityRecalcHandler(priority),
	}
	for _, h := range jobHandlers {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register job handler %s: %w", h.Type(), err)
		}
	}
	worker := jobs.NewWorker(db, log, reposet.JobRun, registry)
	scheduler := jobs.NewScheduler(log, reposet.JobRun)

	return Services{
		Priority:   priority,
		Points:     points,
		Planner:    planner,
		Session:    session,
		Adaptation: adaptation,
		Review:     review,
		Exam:       exam,

		JobRegistry:  registry,
		JobWorker:    worker,
		JobScheduler: scheduler,
	}, nil
}
