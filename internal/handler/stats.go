package handler

import (
	"net/http"

	"github.com/laborplan/laborplan/pkg/capacity"
)

// TimelineResponse 班次时间轴响应
type TimelineResponse struct {
	Success bool                     `json:"success"`
	Shifts  []capacity.ShiftTimeline `json:"shifts"`
}

// GetCapacity 期间产能明细
func (h *PlanHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	period, mode, err := h.periodAndMode(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.svc.Capacities(r.Context(), period, mode)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: report})
}

// GetShiftTimelines 班次时间轴（普通日与周五）
func (h *PlanHandler) GetShiftTimelines(w http.ResponseWriter, r *http.Request) {
	timelines, err := h.svc.ShiftTimelines(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, TimelineResponse{Success: true, Shifts: timelines})
}
