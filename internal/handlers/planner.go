package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/middleware"
	"github.com/memoapp/planner-backend/internal/services"
	"github.com/memoapp/planner-backend/internal/types"
)

type PlannerHandler struct {
	plannerService    services.PlannerService
	adaptationService services.AdaptationService
	pointsService     services.PointsService
}

func NewPlannerHandler(
	plannerService services.PlannerService,
	adaptationService services.AdaptationService,
	pointsService services.PointsService,
) *PlannerHandler {
	return &PlannerHandler{
		plannerService:    plannerService,
		adaptationService: adaptationService,
		pointsService:     pointsService,
	}
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
	}
	return userID, ok
}

func (ph *PlannerHandler) GetDashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	dash, err := ph.plannerService.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dash)
}

func (ph *PlannerHandler) GetSettings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	setting, err := ph.plannerService.GetSettings(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, setting)
}

func (ph *PlannerHandler) UpdateSettings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var body types.PlannerSetting
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	setting, err := ph.plannerService.UpdateSettings(c.Request.Context(), userID, &body)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, setting)
}

func (ph *PlannerHandler) ListPrayerTimes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	from, to, err := parseRange(c, 7)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	rows, err := ph.plannerService.ListPrayerTimes(c.Request.Context(), userID, from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"prayer_times": rows})
}

func (ph *PlannerHandler) SavePrayerTimes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var body struct {
		Date  string              `json:"date"`
		Times []*types.PrayerTime `json:"times"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	date, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := ph.plannerService.SavePrayerTimes(c.Request.Context(), userID, date, body.Times); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"saved": len(body.Times)})
}

func (ph *PlannerHandler) GenerateSchedule(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var body struct {
		StartDate   string `json:"start_date"`
		HorizonDays int    `json:"horizon_days"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}
	input := services.GenerateInput{HorizonDays: body.HorizonDays}
	if body.StartDate != "" {
		start, err := time.Parse("2006-01-02", body.StartDate)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		input.StartDate = start
	}
	view, err := ph.plannerService.GenerateSchedule(c.Request.Context(), userID, input)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, view)
}

func (ph *PlannerHandler) ActivateSchedule(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	schedule, err := ph.plannerService.ActivateSchedule(c.Request.Context(), userID, scheduleID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, schedule)
}

func (ph *PlannerHandler) ListSchedules(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	schedules, err := ph.plannerService.ListSchedules(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"schedules": schedules})
}

func (ph *PlannerHandler) GetSchedule(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	view, err := ph.plannerService.GetSchedule(c.Request.Context(), userID, scheduleID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, view)
}

func (ph *PlannerHandler) GetActiveSchedule(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := ph.plannerService.GetActiveSchedule(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, view)
}

func (ph *PlannerHandler) DeleteSchedule(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := ph.plannerService.DeleteSchedule(c.Request.Context(), userID, scheduleID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": scheduleID})
}

func (ph *PlannerHandler) Adapt(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := ph.adaptationService.Adapt(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ph *PlannerHandler) PointsHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	entries, err := ph.pointsService.History(c.Request.Context(), userID, 100)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	total, err := ph.pointsService.Total(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"total": total, "entries": entries})
}

// parseRange reads from/to query params as dates, defaulting to a window
// starting today.
func parseRange(c *gin.Context, defaultDays int) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, defaultDays)
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}
	return from, to, nil
}
