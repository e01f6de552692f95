package jobs

import (
	"time"

	"github.com/memoapp/planner-backend/internal/services"
)

const (
	JobTypeMissedSessionSweep = "missed_session_sweep"
	JobTypeAdaptationSweep    = "adaptation_sweep"
	JobTypePriorityRecalc     = "priority_recalc"
)

// sweepConcurrency bounds the per-user fan-out of the batch jobs.
const sweepConcurrency = 4

type MissedSessionSweepHandler struct {
	sessions services.SessionService
}

func NewMissedSessionSweepHandler(sessions services.SessionService) *MissedSessionSweepHandler {
	return &MissedSessionSweepHandler{sessions: sessions}
}

func (h *MissedSessionSweepHandler) Type() string { return JobTypeMissedSessionSweep }

func (h *MissedSessionSweepHandler) Run(jc *Context) error {
	marked, err := h.sessions.SweepMissed(jc.Ctx, time.Now())
	if err != nil {
		return err
	}
	return jc.Succeed(map[string]any{"marked_missed": marked})
}

type AdaptationSweepHandler struct {
	adaptation services.AdaptationService
}

func NewAdaptationSweepHandler(adaptation services.AdaptationService) *AdaptationSweepHandler {
	return &AdaptationSweepHandler{adaptation: adaptation}
}

func (h *AdaptationSweepHandler) Type() string { return JobTypeAdaptationSweep }

func (h *AdaptationSweepHandler) Run(jc *Context) error {
	if err := h.adaptation.AdaptAll(jc.Ctx, sweepConcurrency); err != nil {
		return err
	}
	return jc.Succeed(nil)
}

type PriorityRecalcHandler struct {
	priority services.PriorityService
}

func NewPriorityRecalcHandler(priority services.PriorityService) *PriorityRecalcHandler {
	return &PriorityRecalcHandler{priority: priority}
}

func (h *PriorityRecalcHandler) Type() string { return JobTypePriorityRecalc }

func (h *PriorityRecalcHandler) Run(jc *Context) error {
	if err := h.priority.RecalculateAll(jc.Ctx, sweepConcurrency); err != nil {
		return err
	}
	return jc.Succeed(nil)
}
