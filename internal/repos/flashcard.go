package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type FlashcardRepo interface {
	CreateDeck(ctx context.Context, tx *gorm.DB, deck *types.FlashcardDeck) (*types.FlashcardDeck, error)
	GetDeckByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.FlashcardDeck, error)
	ListDecksByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.FlashcardDeck, error)
	CreateCards(ctx context.Context, tx *gorm.DB, cards []*types.Flashcard) ([]*types.Flashcard, error)
	GetCardByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Flashcard, error)
	GetCardsByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Flashcard, error)
	// ListNewForUser returns cards in the user's decks that have no progress
	// row yet, oldest first.
	ListNewForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deckID *uuid.UUID, limit int) ([]*types.Flashcard, error)
}

type flashcardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFlashcardRepo(db *gorm.DB, baseLog *logger.Logger) FlashcardRepo {
	return &flashcardRepo{
		db:  db,
		log: baseLog.With("repo", "FlashcardRepo"),
	}
}

func (r *flashcardRepo) CreateDeck(ctx context.Context, tx *gorm.DB, deck *types.FlashcardDeck) (*types.FlashcardDeck, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(deck).Error; err != nil {
		return nil, err
	}
	return deck, nil
}

func (r *flashcardRepo) GetDeckByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.FlashcardDeck, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var deck types.FlashcardDeck
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&deck).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func (r *flashcardRepo) ListDecksByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.FlashcardDeck, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.FlashcardDeck
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *flashcardRepo) CreateCards(ctx context.Context, tx *gorm.DB, cards []*types.Flashcard) ([]*types.Flashcard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(cards) == 0 {
		return []*types.Flashcard{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *flashcardRepo) GetCardByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Flashcard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var card types.Flashcard
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *flashcardRepo) GetCardsByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Flashcard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Flashcard
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *flashcardRepo) ListNewForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deckID *uuid.UUID, limit int) ([]*types.Flashcard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Joins("JOIN flashcard_deck ON flashcard_deck.id = flashcard.deck_id").
		Joins("LEFT JOIN flashcard_progress ON flashcard_progress.flashcard_id = flashcard.id AND flashcard_progress.user_id = ?", userID).
		Where("flashcard_deck.user_id = ? AND flashcard_progress.id IS NULL", userID).
		Where("flashcard.deleted_at IS NULL AND flashcard_deck.deleted_at IS NULL").
		Order("flashcard.created_at ASC")
	if deckID != nil {
		q = q.Where("flashcard.deck_id = ?", *deckID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Flashcard
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
