package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/memoapp/planner-backend/internal/config"
	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/types"
)

// testEnv wires the full service stack onto an in-memory SQLite database.
// The Redis locker and rate limiter are left out; services treat them as
// optional.
type testEnv struct {
	db *gorm.DB

	userRepo     repos.UserRepo
	subjectRepo  repos.SubjectRepo
	examRepo     repos.ExamRepo
	settingRepo  repos.PlannerSettingRepo
	prayerRepo   repos.PrayerTimeRepo
	scheduleRepo repos.ScheduleRepo
	sessionRepo  repos.StudySessionRepo
	scoreRepo    repos.PriorityScoreRepo
	cardRepo     repos.FlashcardRepo
	progressRepo repos.FlashcardProgressRepo
	reviewRepo   repos.ReviewSessionRepo
	pointsRepo   repos.PointsEntryRepo

	priority   PriorityService
	planner    PlannerService
	points     PointsService
	sessions   SessionService
	adaptation AdaptationService
	review     ReviewService
	exams      ExamService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Every pool connection to :memory: gets its own empty database, so
	// the whole suite has to run over a single connection.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(
		&types.User{},
		&types.Subject{},
		&types.Exam{},
		&types.PlannerSetting{},
		&types.PrayerTime{},
		&types.Schedule{},
		&types.StudySession{},
		&types.PriorityScore{},
		&types.FlashcardDeck{},
		&types.Flashcard{},
		&types.FlashcardProgress{},
		&types.ReviewSession{},
		&types.ReviewAnswer{},
		&types.PointsEntry{},
		&types.JobRun{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gdb.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_review_session_one_active_per_user
		 ON review_session (user_id) WHERE status = 'active' AND deleted_at IS NULL`,
	).Error; err != nil {
		t.Fatalf("active session index: %v", err)
	}

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	tuning := config.DefaultTuning()

	env := &testEnv{
		db:           gdb,
		userRepo:     repos.NewUserRepo(gdb, log),
		subjectRepo:  repos.NewSubjectRepo(gdb, log),
		examRepo:     repos.NewExamRepo(gdb, log),
		settingRepo:  repos.NewPlannerSettingRepo(gdb, log),
		prayerRepo:   repos.NewPrayerTimeRepo(gdb, log),
		scheduleRepo: repos.NewScheduleRepo(gdb, log),
		sessionRepo:  repos.NewStudySessionRepo(gdb, log),
		scoreRepo:    repos.NewPriorityScoreRepo(gdb, log),
		cardRepo:     repos.NewFlashcardRepo(gdb, log),
		progressRepo: repos.NewFlashcardProgressRepo(gdb, log),
		reviewRepo:   repos.NewReviewSessionRepo(gdb, log),
		pointsRepo:   repos.NewPointsEntryRepo(gdb, log),
	}
	env.priority = NewPriorityService(gdb, log, env.subjectRepo, env.scoreRepo, env.userRepo, tuning.Priority)
	env.points = NewPointsService(gdb, log, env.pointsRepo, env.sessionRepo, tuning.Points)
	env.planner = NewPlannerService(gdb, log, env.settingRepo, env.prayerRepo, env.scheduleRepo,
		env.sessionRepo, env.pointsRepo, env.progressRepo, env.priority, nil, tuning)
	env.sessions = NewSessionService(gdb, log, env.sessionRepo, env.subjectRepo, env.settingRepo, env.prayerRepo, env.points)
	env.adaptation = NewAdaptationService(gdb, log, env.scheduleRepo, env.sessionRepo, env.examRepo,
		env.userRepo, env.settingRepo, env.priority, env.planner, nil)
	env.review = NewReviewService(gdb, log, env.cardRepo, env.progressRepo, env.reviewRepo, env.points, tuning.Review)
	env.exams = NewExamService(gdb, log, env.examRepo, env.subjectRepo)
	return env
}

var seedSeq int

func (e *testEnv) seedUser(t *testing.T) *types.User {
	t.Helper()
	seedSeq++
	user := &types.User{Email: fmt.Sprintf("student%d@example.com", seedSeq), Name: "Student"}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) seedSubject(t *testing.T, userID uuid.UUID, name string, coefficient int, performance float64, examIn *time.Duration) *types.Subject {
	t.Helper()
	subject := &types.Subject{
		UserID:           userID,
		Name:             name,
		Coefficient:      coefficient,
		PerformanceScore: performance,
	}
	if examIn != nil {
		at := time.Now().Add(*examIn)
		subject.ExamDate = &at
	}
	if err := e.db.Create(subject).Error; err != nil {
		t.Fatalf("seed subject %s: %v", name, err)
	}
	return subject
}

func days(n int) *time.Duration {
	d := time.Duration(n) * 24 * time.Hour
	return &d
}

func (e *testEnv) seedSchedule(t *testing.T, userID uuid.UUID, status string) *types.Schedule {
	t.Helper()
	now := time.Now()
	schedule := &types.Schedule{
		UserID:      userID,
		Status:      status,
		StartDate:   now.AddDate(0, 0, -1),
		EndDate:     now.AddDate(0, 0, 6),
		GeneratedAt: now,
	}
	if status == types.ScheduleStatusActive {
		schedule.ActivatedAt = &now
	}
	if err := e.db.Create(schedule).Error; err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	return schedule
}

func (e *testEnv) seedSession(t *testing.T, schedule *types.Schedule, subjectID uuid.UUID, startsAt time.Time, minutes int, status string) *types.StudySession {
	t.Helper()
	session := &types.StudySession{
		ScheduleID:     schedule.ID,
		UserID:         schedule.UserID,
		SubjectID:      subjectID,
		StartsAt:       startsAt,
		EndsAt:         startsAt.Add(time.Duration(minutes) * time.Minute),
		PlannedMinutes: minutes,
		Status:         status,
	}
	if err := e.db.Create(session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return session
}

func (e *testEnv) seedDeckWithCards(t *testing.T, userID uuid.UUID, n int) (*types.FlashcardDeck, []*types.Flashcard) {
	t.Helper()
	deck := &types.FlashcardDeck{UserID: userID, Name: "Anatomy"}
	if err := e.db.Create(deck).Error; err != nil {
		t.Fatalf("seed deck: %v", err)
	}
	cards := make([]*types.Flashcard, 0, n)
	for i := 0; i < n; i++ {
		card := &types.Flashcard{
			DeckID: deck.ID,
			Front:  fmt.Sprintf("front %d", i),
			Back:   fmt.Sprintf("back %d", i),
		}
		if err := e.db.Create(card).Error; err != nil {
			t.Fatalf("seed card: %v", err)
		}
		cards = append(cards, card)
	}
	return deck, cards
}
