package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/services"
)

type PriorityHandler struct {
	priorityService services.PriorityService
}

func NewPriorityHandler(priorityService services.PriorityService) *PriorityHandler {
	return &PriorityHandler{priorityService: priorityService}
}

func (ph *PriorityHandler) Latest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	scores, err := ph.priorityService.Latest(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"priorities": scores})
}

func (ph *PriorityHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	subjectParam := c.Query("subject_id")
	if subjectParam == "" {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("subject_id query parameter is required"))
		return
	}
	subjectID, err := uuid.Parse(subjectParam)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	scores, err := ph.priorityService.History(c.Request.Context(), userID, subjectID, 50)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"history": scores})
}

func (ph *PriorityHandler) Recalculate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	scores, err := ph.priorityService.RecalculateForUser(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"priorities": scores})
}

func (ph *PriorityHandler) RecalculateSubject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	subjectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	score, err := ph.priorityService.RecalculateSubject(c.Request.Context(), userID, subjectID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, score)
}
