package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/services"
)

type ExamHandler struct {
	examService services.ExamService
}

func NewExamHandler(examService services.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

func (eh *ExamHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var body struct {
		SubjectID   uuid.UUID `json:"subject_id" binding:"required"`
		Title       string    `json:"title" binding:"required"`
		ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
		MaxScore    float64   `json:"max_score"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	exam, err := eh.examService.Create(c.Request.Context(), userID, services.CreateExamInput{
		SubjectID:   body.SubjectID,
		Title:       body.Title,
		ScheduledAt: body.ScheduledAt,
		MaxScore:    body.MaxScore,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, exam)
}

func (eh *ExamHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	exams, err := eh.examService.List(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"exams": exams})
}

func (eh *ExamHandler) RecordResult(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var body struct {
		Score *float64 `json:"score" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	exam, err := eh.examService.RecordResult(c.Request.Context(), userID, examID, *body.Score)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, exam)
}
