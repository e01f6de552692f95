package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/services"
)

type SessionHandler struct {
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (sh *SessionHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return uuid.Nil, false
	}
	return id, true
}

func (sh *SessionHandler) Start(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sh.sessionID(c)
	if !ok {
		return
	}
	session, err := sh.sessionService.Start(c.Request.Context(), userID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

func (sh *SessionHandler) Pause(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sh.sessionID(c)
	if !ok {
		return
	}
	session, err := sh.sessionService.Pause(c.Request.Context(), userID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

func (sh *SessionHandler) Resume(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sh.sessionID(c)
	if !ok {
		return
	}
	session, err := sh.sessionService.Resume(c.Request.Context(), userID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

func (sh *SessionHandler) Complete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sh.sessionID(c)
	if !ok {
		return
	}
	session, awarded, err := sh.sessionService.Complete(c.Request.Context(), userID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"session": session, "points_awarded": awarded})
}

func (sh *SessionHandler) Skip(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sh.sessionID(c)
	if !ok {
		return
	}
	session, err := sh.sessionService.Skip(c.Request.Context(), userID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

func (sh *SessionHandler) Pin(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sh.sessionID(c)
	if !ok {
		return
	}
	session, err := sh.sessionService.Pin(c.Request.Context(), userID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

func (sh *SessionHandler) Reschedule(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sh.sessionID(c)
	if !ok {
		return
	}
	var body struct {
		StartsAt time.Time `json:"starts_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	session, err := sh.sessionService.Reschedule(c.Request.Context(), userID, id, body.StartsAt)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

func (sh *SessionHandler) Today(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sessions, err := sh.sessionService.Today(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"sessions": sessions})
}

func (sh *SessionHandler) Range(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	from, to, err := parseRange(c, 7)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	sessions, err := sh.sessionService.Range(c.Request.Context(), userID, from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"sessions": sessions})
}
