package app

import (
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
)

type Repos struct {
	User              repos.UserRepo
	Subject           repos.SubjectRepo
	PlannerSetting    repos.PlannerSettingRepo
	PrayerTime        repos.PrayerTimeRepo
	Schedule          repos.ScheduleRepo
	StudySession      repos.StudySessionRepo
	PriorityScore     repos.PriorityScoreRepo
	PointsEntry       repos.PointsEntryRepo
	Exam              repos.ExamRepo
	Flashcard         repos.FlashcardRepo
	FlashcardProgress repos.FlashcardProgressRepo
	ReviewSession     repos.ReviewSessionRepo
	JobRun            repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:              repos.NewUserRepo(db, log),
		Subject:           repos.NewSubjectRepo(db, log),
		PlannerSetting:    repos.NewPlannerSettingRepo(db, log),
		PrayerTime:        repos.NewPrayerTimeRepo(db, log),
		Schedule:          repos.NewScheduleRepo(db, log),
		StudySession:      repos.NewStudySessionRepo(db, log),
		PriorityScore:     repos.NewPriorityScoreRepo(db, log),
		PointsEntry:       repos.NewPointsEntryRepo(db, log),
		Exam:              repos.NewExamRepo(db, log),
		Flashcard:         repos.NewFlashcardRepo(db, log),
		FlashcardProgress: repos.NewFlashcardProgressRepo(db, log),
		ReviewSession:     repos.NewReviewSessionRepo(db, log),
		JobRun:            repos.NewJobRunRepo(db, log),
	}
}
