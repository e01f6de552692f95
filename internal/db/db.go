package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/types"
	"github.com/memoapp/planner-backend/internal/utils"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewService connects to the configured database. DB_DRIVER=sqlite gives a
// file-backed (or :memory:) database for local runs; everything else is
// Postgres.
func NewService(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	driver := utils.GetEnv("DB_DRIVER", "postgres", log)
	if driver == "sqlite" {
		path := utils.GetEnv("SQLITE_PATH", "planner.db", log)
		log.Info("Connecting to SQLite...", "path", path)
		gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
		}
		return &Service{db: gdb, log: serviceLog}, nil
	}

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "planner", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
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
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	// One active review session per user, enforced at the database so
	// concurrent starts cannot both slip past the service check.
	if err := s.db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_review_session_one_active_per_user
		 ON review_session (user_id) WHERE status = 'active' AND deleted_at IS NULL`,
	).Error; err != nil {
		s.log.Error("Failed to create active review session index", "error", err)
		return err
	}
	return nil
}

func (s *Service) DB() *gorm.DB {
	return s.db
}
