package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/config"
	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/srs"
	"github.com/memoapp/planner-backend/internal/types"
)

type ReviewQueueItem struct {
	Card     *types.Flashcard `json:"card"`
	State    string           `json:"state"`
	DueAt    *time.Time       `json:"due_at,omitempty"`
	Position int              `json:"position"`
}

type AnswerResult struct {
	Session       *types.ReviewSession     `json:"session"`
	Progress      *types.FlashcardProgress `json:"progress"`
	Quality       int                      `json:"quality"`
	PointsAwarded int                      `json:"points_awarded"`
	Remaining     int                      `json:"remaining"`
}

type ReviewStats struct {
	CardsByState  map[string]int64 `json:"cards_by_state"`
	AnswersLast30 int64            `json:"answers_last_30_days"`
	RetentionRate float64          `json:"retention_rate"`
}

type ForecastDay struct {
	Date time.Time `json:"date"`
	Due  int64     `json:"due"`
}

type ReviewService interface {
	CreateDeck(ctx context.Context, userID uuid.UUID, subjectID *uuid.UUID, name string) (*types.FlashcardDeck, error)
	ListDecks(ctx context.Context, userID uuid.UUID) ([]*types.FlashcardDeck, error)
	AddCards(ctx context.Context, userID, deckID uuid.UUID, cards []*types.Flashcard) ([]*types.Flashcard, error)

	// DueCards returns the cards due now plus a capped batch of never-seen
	// cards, in the order a session would present them.
	DueCards(ctx context.Context, userID uuid.UUID, deckID *uuid.UUID) ([]ReviewQueueItem, error)
	// NewCards returns cards the user has never reviewed, capped at the
	// per-session intake limit.
	NewCards(ctx context.Context, userID uuid.UUID, deckID *uuid.UUID) ([]*types.Flashcard, error)
	StartSession(ctx context.Context, userID uuid.UUID, deckID *uuid.UUID) (*types.ReviewSession, []ReviewQueueItem, error)
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ReviewSession, error)
	// CurrentSession returns the user's active session, ErrNotFound when
	// there is none.
	CurrentSession(ctx context.Context, userID uuid.UUID) (*types.ReviewSession, error)
	Answer(ctx context.Context, userID, sessionID, cardID uuid.UUID, answer srs.Answer) (*AnswerResult, error)
	CompleteSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ReviewSession, error)
	AbandonSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ReviewSession, error)

	Stats(ctx context.Context, userID uuid.UUID) (*ReviewStats, error)
	Forecast(ctx context.Context, userID uuid.UUID) ([]ForecastDay, error)
}

type reviewService struct {
	db           *gorm.DB
	log          *logger.Logger
	cardRepo     repos.FlashcardRepo
	progressRepo repos.FlashcardProgressRepo
	sessionRepo  repos.ReviewSessionRepo
	pointsSvc    PointsService
	tuning       config.ReviewTuning
}

func NewReviewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cardRepo repos.FlashcardRepo,
	progressRepo repos.FlashcardProgressRepo,
	sessionRepo repos.ReviewSessionRepo,
	pointsSvc PointsService,
	tuning config.ReviewTuning,
) ReviewService {
	return &reviewService{
		db:           db,
		log:          baseLog.With("service", "ReviewService"),
		cardRepo:     cardRepo,
		progressRepo: progressRepo,
		sessionRepo:  sessionRepo,
		pointsSvc:    pointsSvc,
		tuning:       tuning,
	}
}

func (s *reviewService) CreateDeck(ctx context.Context, userID uuid.UUID, subjectID *uuid.UUID, name string) (*types.FlashcardDeck, error) {
	if name == "" {
		return nil, fmt.Errorf("deck name is required")
	}
	return s.cardRepo.CreateDeck(ctx, nil, &types.FlashcardDeck{
		UserID:    userID,
		SubjectID: subjectID,
		Name:      name,
	})
}

func (s *reviewService) ListDecks(ctx context.Context, userID uuid.UUID) ([]*types.FlashcardDeck, error) {
	return s.cardRepo.ListDecksByUser(ctx, nil, userID)
}

func (s *reviewService) AddCards(ctx context.Context, userID, deckID uuid.UUID, cards []*types.Flashcard) ([]*types.Flashcard, error) {
	deck, err := s.cardRepo.GetDeckByID(ctx, nil, deckID)
	if err != nil {
		return nil, err
	}
	if deck == nil || deck.UserID != userID {
		return nil, ErrNotFound
	}
	for _, c := range cards {
		c.DeckID = deckID
		if c.Front == "" || c.Back == "" {
			return nil, fmt.Errorf("cards need both a front and a back")
		}
	}
	return s.cardRepo.CreateCards(ctx, nil, cards)
}

// buildQueue loads due cards first, oldest and hardest leading, then pads
// with new cards up to the per-session caps.
func (s *reviewService) buildQueue(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deckID *uuid.UUID, now time.Time) ([]ReviewQueueItem, error) {
	due, err := s.progressRepo.ListDue(ctx, tx, userID, deckID, now, s.tuning.MaxDuePerSession)
	if err != nil {
		return nil, fmt.Errorf("list due cards: %w", err)
	}
	cardIDs := make([]uuid.UUID, 0, len(due))
	for _, p := range due {
		cardIDs = append(cardIDs, p.FlashcardID)
	}
	cards, err := s.cardRepo.GetCardsByIDs(ctx, tx, cardIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Flashcard, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	var queue []ReviewQueueItem
	for _, p := range due {
		card, ok := byID[p.FlashcardID]
		if !ok {
			continue
		}
		dueAt := p.DueAt
		queue = append(queue, ReviewQueueItem{Card: card, State: p.State, DueAt: &dueAt, Position: len(queue)})
	}

	fresh, err := s.cardRepo.ListNewForUser(ctx, tx, userID, deckID, s.tuning.MaxNewPerSession)
	if err != nil {
		return nil, fmt.Errorf("list new cards: %w", err)
	}
	for _, c := range fresh {
		queue = append(queue, ReviewQueueItem{Card: c, State: types.CardStateNew, Position: len(queue)})
	}
	return queue, nil
}

func (s *reviewService) DueCards(ctx context.Context, userID uuid.UUID, deckID *uuid.UUID) ([]ReviewQueueItem, error) {
	return s.buildQueue(ctx, nil, userID, deckID, time.Now())
}

func (s *reviewService) NewCards(ctx context.Context, userID uuid.UUID, deckID *uuid.UUID) ([]*types.Flashcard, error) {
	return s.cardRepo.ListNewForUser(ctx, nil, userID, deckID, s.tuning.MaxNewPerSession)
}

// StartSession checks and creates inside one transaction; a partial unique
// index on active sessions per user backstops concurrent starts that race
// past the check.
func (s *reviewService) StartSession(ctx context.Context, userID uuid.UUID, deckID *uuid.UUID) (*types.ReviewSession, []ReviewQueueItem, error) {
	var session *types.ReviewSession
	var queue []ReviewQueueItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := s.sessionRepo.GetActiveByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if active != nil {
			return &SessionAlreadyActiveError{ActiveID: active.ID}
		}

		now := time.Now()
		queue, err = s.buildQueue(ctx, tx, userID, deckID, now)
		if err != nil {
			return err
		}
		if len(queue) == 0 {
			return fmt.Errorf("no cards due for review")
		}
		ids := make([]uuid.UUID, len(queue))
		for i, item := range queue {
			ids[i] = item.Card.ID
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return err
		}

		session, err = s.sessionRepo.Create(ctx, tx, &types.ReviewSession{
			UserID:    userID,
			DeckID:    deckID,
			Status:    types.ReviewStatusActive,
			Queue:     raw,
			StartedAt: now,
		})
		if err != nil {
			return fmt.Errorf("create review session: %w", err)
		}
		return nil
	})
	if err != nil {
		var alreadyActive *SessionAlreadyActiveError
		if errors.As(err, &alreadyActive) {
			return nil, nil, err
		}
		// A concurrent start may hit the unique index instead of the check.
		if active, lookupErr := s.sessionRepo.GetActiveByUser(ctx, nil, userID); lookupErr == nil && active != nil {
			return nil, nil, &SessionAlreadyActiveError{ActiveID: active.ID}
		}
		return nil, nil, err
	}
	s.log.Info("Started review session", "user_id", userID, "session_id", session.ID, "cards", len(queue))
	return session, queue, nil
}

func (s *reviewService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ReviewSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != userID {
		return nil, ErrNotFound
	}
	return session, nil
}

func (s *reviewService) CurrentSession(ctx context.Context, userID uuid.UUID) (*types.ReviewSession, error) {
	session, err := s.sessionRepo.GetActiveByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}
	return session, nil
}

func (s *reviewService) Answer(ctx context.Context, userID, sessionID, cardID uuid.UUID, answer srs.Answer) (*AnswerResult, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != types.ReviewStatusActive {
		return nil, &InvalidTransitionError{From: session.Status, To: types.ReviewStatusActive}
	}
	var queue []uuid.UUID
	if err := json.Unmarshal(session.Queue, &queue); err != nil {
		return nil, fmt.Errorf("decode session queue: %w", err)
	}
	inQueue := false
	for _, id := range queue {
		if id == cardID {
			inQueue = true
			break
		}
	}
	if !inQueue {
		return nil, fmt.Errorf("card %s is not part of this session", cardID)
	}

	now := time.Now()
	result := &AnswerResult{Session: session}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		progress, err := s.progressRepo.GetByUserCard(ctx, tx, userID, cardID)
		if err != nil {
			return err
		}
		if progress == nil {
			progress = &types.FlashcardProgress{
				UserID:      userID,
				FlashcardID: cardID,
				State:       types.CardStateNew,
				Ease:        2.5,
			}
		}
		updated, err := srs.Review(srs.Card{
			State:        progress.State,
			Ease:         progress.Ease,
			IntervalDays: progress.IntervalDays,
			Repetitions:  progress.Repetitions,
			Lapses:       progress.Lapses,
		}, answer, now)
		if err != nil {
			return err
		}
		progress.State = updated.State
		progress.Ease = updated.Ease
		progress.IntervalDays = updated.IntervalDays
		progress.Repetitions = updated.Repetitions
		progress.Lapses = updated.Lapses
		progress.DueAt = updated.DueAt
		progress.LastReviewedAt = &now
		if _, err := s.progressRepo.Save(ctx, tx, progress); err != nil {
			return fmt.Errorf("save card progress: %w", err)
		}

		if _, err := s.sessionRepo.CreateAnswer(ctx, tx, &types.ReviewAnswer{
			ReviewSessionID: session.ID,
			FlashcardID:     cardID,
			Answer:          string(answer),
			Quality:         updated.Quality,
			EaseAfter:       updated.Ease,
			IntervalAfter:   updated.IntervalDays,
			AnsweredAt:      now,
		}); err != nil {
			return fmt.Errorf("record answer: %w", err)
		}

		updates := map[string]interface{}{"cards_reviewed": session.CardsReviewed + 1}
		session.CardsReviewed++
		if updated.Quality >= srs.QualityFail {
			updates["correct_count"] = session.CorrectCount + 1
			session.CorrectCount++
		}
		if err := s.sessionRepo.UpdateFields(ctx, tx, session.ID, updates); err != nil {
			return err
		}

		points, err := s.pointsSvc.AwardReviewAnswer(ctx, tx, userID, session.ID, cardID)
		if err != nil {
			return err
		}
		result.Progress = progress
		result.Quality = updated.Quality
		result.PointsAwarded = points
		return nil
	})
	if err != nil {
		return nil, err
	}
	if remaining := len(queue) - session.CardsReviewed; remaining > 0 {
		result.Remaining = remaining
	}
	return result, nil
}

func (s *reviewService) CompleteSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ReviewSession, error) {
	return s.finish(ctx, userID, sessionID, types.ReviewStatusCompleted)
}

func (s *reviewService) AbandonSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ReviewSession, error) {
	return s.finish(ctx, userID, sessionID, types.ReviewStatusAbandoned)
}

func (s *reviewService) finish(ctx context.Context, userID, sessionID uuid.UUID, status string) (*types.ReviewSession, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != types.ReviewStatusActive {
		return nil, &InvalidTransitionError{From: session.Status, To: status}
	}
	now := time.Now()
	if err := s.sessionRepo.UpdateFields(ctx, nil, session.ID, map[string]interface{}{
		"status":   status,
		"ended_at": now,
	}); err != nil {
		return nil, err
	}
	session.Status = status
	session.EndedAt = &now
	return session, nil
}

func (s *reviewService) Stats(ctx context.Context, userID uuid.UUID) (*ReviewStats, error) {
	byState, err := s.progressRepo.CountByState(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	total, correct, err := s.sessionRepo.CountAnswersByUserSince(ctx, nil, userID, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	stats := &ReviewStats{CardsByState: byState, AnswersLast30: total}
	if total > 0 {
		stats.RetentionRate = float64(correct) / float64(total)
	}
	return stats, nil
}

// Forecast counts how many cards fall due on each of the coming days.
func (s *reviewService) Forecast(ctx context.Context, userID uuid.UUID) ([]ForecastDay, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := s.tuning.ForecastDays
	if days <= 0 {
		days = 7
	}
	forecast := make([]ForecastDay, 0, days)
	for i := 0; i < days; i++ {
		from := start.AddDate(0, 0, i)
		to := from.AddDate(0, 0, 1)
		if i == 0 {
			// Everything overdue lands in today's bucket.
			from = time.Time{}
		}
		count, err := s.progressRepo.CountDueBetween(ctx, nil, userID, from, to)
		if err != nil {
			return nil, err
		}
		forecast = append(forecast, ForecastDay{Date: start.AddDate(0, 0, i), Due: count})
	}
	return forecast, nil
}
