package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/services"
	"github.com/memoapp/planner-backend/internal/srs"
	"github.com/memoapp/planner-backend/internal/types"
)

type FlashcardHandler struct {
	reviewService services.ReviewService
}

func NewFlashcardHandler(reviewService services.ReviewService) *FlashcardHandler {
	return &FlashcardHandler{reviewService: reviewService}
}

// deckFilter reads the optional deck_id query parameter.
func deckFilter(c *gin.Context) (*uuid.UUID, error) {
	v := c.Query("deck_id")
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (fh *FlashcardHandler) CreateDeck(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var body struct {
		Name      string     `json:"name" binding:"required"`
		SubjectID *uuid.UUID `json:"subject_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	deck, err := fh.reviewService.CreateDeck(c.Request.Context(), userID, body.SubjectID, body.Name)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, deck)
}

func (fh *FlashcardHandler) ListDecks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	decks, err := fh.reviewService.ListDecks(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"decks": decks})
}

func (fh *FlashcardHandler) AddCards(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	deckID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var body struct {
		Cards []struct {
			Front string `json:"front" binding:"required"`
			Back  string `json:"back" binding:"required"`
		} `json:"cards" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	cards := make([]*types.Flashcard, 0, len(body.Cards))
	for _, card := range body.Cards {
		cards = append(cards, &types.Flashcard{Front: card.Front, Back: card.Back})
	}
	created, err := fh.reviewService.AddCards(c.Request.Context(), userID, deckID, cards)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"cards": created})
}

func (fh *FlashcardHandler) Due(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	deckID, err := deckFilter(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	queue, err := fh.reviewService.DueCards(c.Request.Context(), userID, deckID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"queue": queue})
}

func (fh *FlashcardHandler) New(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	deckID, err := deckFilter(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	cards, err := fh.reviewService.NewCards(c.Request.Context(), userID, deckID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"cards": cards})
}

func (fh *FlashcardHandler) StartReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var body struct {
		DeckID *uuid.UUID `json:"deck_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}
	session, queue, err := fh.reviewService.StartSession(c.Request.Context(), userID, body.DeckID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"session": session, "queue": queue})
}

func (fh *FlashcardHandler) CurrentReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	session, err := fh.reviewService.CurrentSession(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

func (fh *FlashcardHandler) Answer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var body struct {
		CardID uuid.UUID `json:"card_id" binding:"required"`
		Answer string    `json:"answer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	result, err := fh.reviewService.Answer(c.Request.Context(), userID, sessionID, body.CardID, srs.Answer(body.Answer))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, result)
}

func (fh *FlashcardHandler) CompleteReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	session, err := fh.reviewService.CompleteSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

func (fh *FlashcardHandler) AbandonReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	session, err := fh.reviewService.AbandonSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

func (fh *FlashcardHandler) Stats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	stats, err := fh.reviewService.Stats(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (fh *FlashcardHandler) Forecast(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	forecast, err := fh.reviewService.Forecast(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"forecast": forecast})
}
