package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/memoapp/planner-backend/internal/clients/redis"
	"github.com/memoapp/planner-backend/internal/config"
	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/scheduling"
	"github.com/memoapp/planner-backend/internal/types"
)

type GenerateInput struct {
	StartDate   time.Time
	HorizonDays int
}

type ScheduleView struct {
	Schedule *types.Schedule       `json:"schedule"`
	Sessions []*types.StudySession `json:"sessions"`
}

type Dashboard struct {
	ActiveSchedule *types.Schedule       `json:"active_schedule,omitempty"`
	TodaySessions  []*types.StudySession `json:"today_sessions"`
	TotalPoints    int64                 `json:"total_points"`
	DueCards       int64                 `json:"due_cards"`
	Priorities     []*types.PriorityScore `json:"priorities"`
}

type PlannerService interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*types.PlannerSetting, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, setting *types.PlannerSetting) (*types.PlannerSetting, error)
	ListPrayerTimes(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*types.PrayerTime, error)
	SavePrayerTimes(ctx context.Context, userID uuid.UUID, date time.Time, rows []*types.PrayerTime) error

	GenerateSchedule(ctx context.Context, userID uuid.UUID, input GenerateInput) (*ScheduleView, error)
	ActivateSchedule(ctx context.Context, userID, scheduleID uuid.UUID) (*types.Schedule, error)
	ListSchedules(ctx context.Context, userID uuid.UUID) ([]*types.Schedule, error)
	GetSchedule(ctx context.Context, userID, scheduleID uuid.UUID) (*ScheduleView, error)
	GetActiveSchedule(ctx context.Context, userID uuid.UUID) (*ScheduleView, error)
	DeleteSchedule(ctx context.Context, userID, scheduleID uuid.UUID) error

	GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error)

	// BuildDays assembles the plannable days for a window, used both at
	// generation and adaptation time.
	BuildDays(ctx context.Context, tx *gorm.DB, userID uuid.UUID, setting *types.PlannerSetting, from time.Time, horizonDays int, occupied map[string][]scheduling.Window) ([]scheduling.Day, error)
	GeneratorConfig(setting *types.PlannerSetting) scheduling.GeneratorConfig
}

type plannerService struct {
	db           *gorm.DB
	log          *logger.Logger
	settingRepo  repos.PlannerSettingRepo
	prayerRepo   repos.PrayerTimeRepo
	scheduleRepo repos.ScheduleRepo
	sessionRepo  repos.StudySessionRepo
	pointsRepo   repos.PointsEntryRepo
	progressRepo repos.FlashcardProgressRepo
	prioritySvc  PriorityService
	locker       *redisclient.UserLocker
	tuning       config.Tuning
}

func NewPlannerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	settingRepo repos.PlannerSettingRepo,
	prayerRepo repos.PrayerTimeRepo,
	scheduleRepo repos.ScheduleRepo,
	sessionRepo repos.StudySessionRepo,
	pointsRepo repos.PointsEntryRepo,
	progressRepo repos.FlashcardProgressRepo,
	prioritySvc PriorityService,
	locker *redisclient.UserLocker,
	tuning config.Tuning,
) PlannerService {
	return &plannerService{
		db:           db,
		log:          baseLog.With("service", "PlannerService"),
		settingRepo:  settingRepo,
		prayerRepo:   prayerRepo,
		scheduleRepo: scheduleRepo,
		sessionRepo:  sessionRepo,
		pointsRepo:   pointsRepo,
		progressRepo: progressRepo,
		prioritySvc:  prioritySvc,
		locker:       locker,
		tuning:       tuning,
	}
}

func defaultSetting(userID uuid.UUID) *types.PlannerSetting {
	days, _ := json.Marshal([]int{0, 1, 2, 3, 4, 5, 6})
	return &types.PlannerSetting{
		UserID:                userID,
		StudyDays:             datatypes.JSON(days),
		StudyStartTime:        "08:00",
		StudyEndTime:          "22:00",
		MaxStudyMinutesPerDay: 240,
		MinBreakMinutes:       10,
		MinSessionMinutes:     30,
		MaxSessionMinutes:     120,
		RespectPrayerTimes:    true,
		PrayerDurationMinutes: 20,
		SameSubjectGapMinutes: 120,
	}
}

func (s *plannerService) GetSettings(ctx context.Context, userID uuid.UUID) (*types.PlannerSetting, error) {
	setting, err := s.settingRepo.GetByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if setting == nil {
		return defaultSetting(userID), nil
	}
	return setting, nil
}

func (s *plannerService) UpdateSettings(ctx context.Context, userID uuid.UUID, setting *types.PlannerSetting) (*types.PlannerSetting, error) {
	if setting == nil {
		return nil, &scheduling.InvalidInputError{Field: "settings", Reason: "missing body"}
	}
	if _, err := parseClock(setting.StudyStartTime); err != nil {
		return nil, &scheduling.InvalidInputError{Field: "study_start_time", Reason: err.Error()}
	}
	end, err := parseClock(setting.StudyEndTime)
	if err != nil {
		return nil, &scheduling.InvalidInputError{Field: "study_end_time", Reason: err.Error()}
	}
	start, _ := parseClock(setting.StudyStartTime)
	if end <= start {
		return nil, &scheduling.InvalidInputError{Field: "study_end_time", Reason: "must be after study_start_time"}
	}
	if setting.MinSessionMinutes <= 0 || setting.MaxSessionMinutes < setting.MinSessionMinutes {
		return nil, &scheduling.InvalidInputError{Field: "session bounds", Reason: "min must be positive and <= max"}
	}
	existing, err := s.settingRepo.GetByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if existing != nil {
		setting.ID = existing.ID
	}
	setting.UserID = userID
	return s.settingRepo.Upsert(ctx, nil, setting)
}

func (s *plannerService) ListPrayerTimes(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*types.PrayerTime, error) {
	return s.prayerRepo.ListByUserRange(ctx, nil, userID, from, to)
}

func (s *plannerService) SavePrayerTimes(ctx context.Context, userID uuid.UUID, date time.Time, rows []*types.PrayerTime) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.prayerRepo.DeleteByUserDate(ctx, tx, userID, date); err != nil {
			return err
		}
		for _, row := range rows {
			row.UserID = userID
			row.Date = date
		}
		_, err := s.prayerRepo.CreateBatch(ctx, tx, rows)
		return err
	})
}

func (s *plannerService) GeneratorConfig(setting *types.PlannerSetting) scheduling.GeneratorConfig {
	return scheduling.GeneratorConfig{
		MinSessionMinutes:     setting.MinSessionMinutes,
		MaxSessionMinutes:     setting.MaxSessionMinutes,
		MaxDailyMinutes:       setting.MaxStudyMinutesPerDay,
		BreakMinutes:          setting.MinBreakMinutes,
		SameSubjectGapMinutes: setting.SameSubjectGapMinutes,
		BaseMinutes:           s.tuning.Session.BaseMinutes,
		PerCoefficientMinutes: s.tuning.Session.PerCoefficientMinutes,
		BufferRate:            s.tuning.Session.BufferRate,
		RoundToMinutes:        s.tuning.Session.RoundToMinutes,
	}
}

func (s *plannerService) BuildDays(ctx context.Context, tx *gorm.DB, userID uuid.UUID, setting *types.PlannerSetting, from time.Time, horizonDays int, occupied map[string][]scheduling.Window) ([]scheduling.Day, error) {
	startMinute, err := parseClock(setting.StudyStartTime)
	if err != nil {
		return nil, &scheduling.InvalidInputError{Field: "study_start_time", Reason: err.Error()}
	}
	endMinute, err := parseClock(setting.StudyEndTime)
	if err != nil {
		return nil, &scheduling.InvalidInputError{Field: "study_end_time", Reason: err.Error()}
	}

	studyDays := map[int]bool{}
	if len(setting.StudyDays) > 0 {
		var nums []int
		if err := json.Unmarshal(setting.StudyDays, &nums); err != nil {
			return nil, &scheduling.InvalidInputError{Field: "study_days", Reason: "not a JSON array of weekday numbers"}
		}
		for _, n := range nums {
			studyDays[n] = true
		}
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	nowMinute := now.Hour()*60 + now.Minute()

	first := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	var prayers []*types.PrayerTime
	if setting.RespectPrayerTimes {
		prayers, err = s.prayerRepo.ListByUserRange(ctx, tx, userID, first, first.AddDate(0, 0, horizonDays))
		if err != nil {
			return nil, fmt.Errorf("list prayer times: %w", err)
		}
	}
	blockedByDate := map[string][]scheduling.Window{}
	for _, p := range prayers {
		start, err := parseClock(p.StartTime)
		if err != nil {
			continue
		}
		key := p.Date.Format("2006-01-02")
		blockedByDate[key] = append(blockedByDate[key], scheduling.Window{
			StartMinute: start,
			EndMinute:   start + setting.PrayerDurationMinutes,
		})
	}

	days := make([]scheduling.Day, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		date := first.AddDate(0, 0, i)
		if date.Before(today) {
			continue
		}
		if len(studyDays) > 0 && !studyDays[int(date.Weekday())] {
			continue
		}
		// Today's window opens no earlier than the current time, so
		// nothing is ever planned into the past.
		dayStart := startMinute
		if date.Equal(today) && nowMinute > dayStart {
			dayStart = nowMinute
		}
		if dayStart >= endMinute {
			continue
		}
		key := date.Format("2006-01-02")
		days = append(days, scheduling.Day{
			Date:        date,
			StartMinute: dayStart,
			EndMinute:   endMinute,
			Blocked:     blockedByDate[key],
			Occupied:    occupied[key],
		})
	}
	return days, nil
}

func (s *plannerService) GenerateSchedule(ctx context.Context, userID uuid.UUID, input GenerateInput) (*ScheduleView, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, userID, "generate")
		if err != nil {
			return nil, err
		}
		defer release()
	}

	if input.HorizonDays <= 0 {
		input.HorizonDays = s.tuning.Session.HorizonDays
	}
	if input.StartDate.IsZero() {
		input.StartDate = time.Now()
	}

	setting, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	ranked, err := s.prioritySvc.RankSubjects(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, &scheduling.InvalidInputError{Field: "subjects", Reason: "no active subjects to schedule"}
	}

	days, err := s.BuildDays(ctx, nil, userID, setting, input.StartDate, input.HorizonDays, nil)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, &scheduling.InvalidInputError{Field: "start_date", Reason: "no plannable days in the horizon"}
	}
	demands := make([]scheduling.SubjectDemand, 0, len(ranked))
	for _, r := range ranked {
		demands = append(demands, scheduling.SubjectDemand{
			SubjectID:   r.SubjectID,
			Coefficient: r.Coefficient,
			Weight:      r.Score,
		})
	}
	planned, err := scheduling.Generate(days, demands, s.GeneratorConfig(setting))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	schedule := &types.Schedule{
		UserID:      userID,
		Status:      types.ScheduleStatusDraft,
		StartDate:   days[0].Date,
		EndDate:     days[len(days)-1].Date,
		GeneratedAt: now,
	}
	var sessions []*types.StudySession
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.scheduleRepo.Create(ctx, tx, schedule); err != nil {
			return fmt.Errorf("create schedule: %w", err)
		}
		sessions = plannedToSessions(schedule, planned)
		if _, err := s.sessionRepo.CreateBatch(ctx, tx, sessions); err != nil {
			return fmt.Errorf("create sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Generated schedule", "user_id", userID, "schedule_id", schedule.ID, "sessions", len(sessions))
	return &ScheduleView{Schedule: schedule, Sessions: sessions}, nil
}

func plannedToSessions(schedule *types.Schedule, planned []scheduling.PlannedSession) []*types.StudySession {
	sessions := make([]*types.StudySession, 0, len(planned))
	for _, p := range planned {
		startsAt := p.Date.Add(time.Duration(p.StartMinute) * time.Minute)
		endsAt := p.Date.Add(time.Duration(p.EndMinute) * time.Minute)
		sessions = append(sessions, &types.StudySession{
			ScheduleID:     schedule.ID,
			UserID:         schedule.UserID,
			SubjectID:      p.SubjectID,
			StartsAt:       startsAt,
			EndsAt:         endsAt,
			PlannedMinutes: p.Minutes,
			Status:         types.SessionStatusScheduled,
		})
	}
	return sessions
}

// ActivateSchedule makes the schedule the user's single active one. Any
// previously active schedule is superseded and its pending sessions
// cancelled, all inside one transaction.
func (s *plannerService) ActivateSchedule(ctx context.Context, userID, scheduleID uuid.UUID) (*types.Schedule, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, userID, "activate")
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var activated *types.Schedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := s.scheduleRepo.GetByID(ctx, tx, scheduleID)
		if err != nil {
			return fmt.Errorf("get schedule: %w", err)
		}
		if schedule == nil || schedule.UserID != userID {
			return ErrNotFound
		}
		if schedule.Status == types.ScheduleStatusActive {
			activated = schedule
			return nil
		}

		now := time.Now()
		previous, err := s.scheduleRepo.GetActiveByUser(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("get active schedule: %w", err)
		}
		if previous != nil {
			if err := s.sessionRepo.CancelPending(ctx, tx, previous.ID, now); err != nil {
				return fmt.Errorf("cancel superseded sessions: %w", err)
			}
		}
		if err := s.scheduleRepo.SupersedeActiveExcept(ctx, tx, userID, scheduleID, now); err != nil {
			return fmt.Errorf("supersede schedules: %w", err)
		}
		if err := s.scheduleRepo.UpdateFields(ctx, tx, scheduleID, map[string]interface{}{
			"status":       types.ScheduleStatusActive,
			"activated_at": now,
		}); err != nil {
			return fmt.Errorf("activate schedule: %w", err)
		}
		schedule.Status = types.ScheduleStatusActive
		schedule.ActivatedAt = &now
		activated = schedule
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Activated schedule", "user_id", userID, "schedule_id", scheduleID)
	return activated, nil
}

func (s *plannerService) ListSchedules(ctx context.Context, userID uuid.UUID) ([]*types.Schedule, error) {
	return s.scheduleRepo.ListByUser(ctx, nil, userID)
}

func (s *plannerService) GetSchedule(ctx context.Context, userID, scheduleID uuid.UUID) (*ScheduleView, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, nil, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil || schedule.UserID != userID {
		return nil, ErrNotFound
	}
	sessions, err := s.sessionRepo.ListBySchedule(ctx, nil, scheduleID)
	if err != nil {
		return nil, err
	}
	return &ScheduleView{Schedule: schedule, Sessions: sessions}, nil
}

func (s *plannerService) GetActiveSchedule(ctx context.Context, userID uuid.UUID) (*ScheduleView, error) {
	schedule, err := s.scheduleRepo.GetActiveByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, &NoActiveScheduleError{UserID: userID}
	}
	sessions, err := s.sessionRepo.ListBySchedule(ctx, nil, schedule.ID)
	if err != nil {
		return nil, err
	}
	return &ScheduleView{Schedule: schedule, Sessions: sessions}, nil
}

func (s *plannerService) DeleteSchedule(ctx context.Context, userID, scheduleID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := s.scheduleRepo.GetByID(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		if schedule == nil || schedule.UserID != userID {
			return ErrNotFound
		}
		if schedule.Status == types.ScheduleStatusActive {
			return &scheduling.InvalidInputError{Field: "schedule", Reason: "cannot delete the active schedule"}
		}
		if err := s.sessionRepo.DeleteBySchedule(ctx, tx, scheduleID); err != nil {
			return err
		}
		return s.scheduleRepo.Delete(ctx, tx, scheduleID)
	})
}

func (s *plannerService) GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	dash := &Dashboard{}
	if schedule, err := s.scheduleRepo.GetActiveByUser(ctx, nil, userID); err != nil {
		return nil, err
	} else {
		dash.ActiveSchedule = schedule
	}
	sessions, err := s.sessionRepo.ListByUserRange(ctx, nil, userID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	dash.TodaySessions = sessions

	total, err := s.pointsRepo.TotalByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	dash.TotalPoints = total

	due, err := s.progressRepo.CountDueBetween(ctx, nil, userID, time.Time{}, now)
	if err != nil {
		return nil, err
	}
	dash.DueCards = due

	latest, err := s.prioritySvc.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	dash.Priorities = latest
	return dash, nil
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}
