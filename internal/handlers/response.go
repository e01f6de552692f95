package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memoapp/planner-backend/internal/scheduling"
	"github.com/memoapp/planner-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps the planner's error taxonomy onto HTTP statuses.
// Capacity and validation failures carry the violated constraint in the
// message so callers can adjust their inputs.
func RespondDomainError(c *gin.Context, err error) {
	var (
		invalid    *scheduling.InvalidInputError
		capacity   *scheduling.CapacityExceededError
		overlap    *scheduling.OverlapError
		noActive   *services.NoActiveScheduleError
		active     *services.SessionAlreadyActiveError
		transition *services.InvalidTransitionError
	)
	switch {
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.As(err, &invalid):
		RespondError(c, http.StatusUnprocessableEntity, "invalid_input", err)
	case errors.As(err, &capacity):
		RespondError(c, http.StatusUnprocessableEntity, "capacity_exceeded", err)
	case errors.As(err, &overlap):
		RespondError(c, http.StatusConflict, "overlap", err)
	case errors.As(err, &noActive):
		RespondError(c, http.StatusNotFound, "no_active_schedule", err)
	case errors.As(err, &active):
		RespondError(c, http.StatusConflict, "session_already_active", err)
	case errors.As(err, &transition):
		RespondError(c, http.StatusConflict, "invalid_transition", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
