// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/laborplan/laborplan/internal/ingest"
	"github.com/laborplan/laborplan/internal/planning"
	"github.com/laborplan/laborplan/pkg/capacity"
	"github.com/laborplan/laborplan/pkg/errors"
	"github.com/laborplan/laborplan/pkg/logger"
	"github.com/laborplan/laborplan/pkg/model"
	"github.com/laborplan/laborplan/pkg/planner/allocator"
	"github.com/laborplan/laborplan/pkg/stats"
	"github.com/laborplan/laborplan/pkg/validator"
)

// PlanService 处理器依赖的计划服务
type PlanService interface {
	ResolveMode(raw string) (model.AllocationMode, error)
	Generate(ctx context.Context, period model.Period, mode model.AllocationMode) (*planning.Plan, error)
	Assignments(ctx context.Context, period model.Period) ([]*model.Assignment, error)
	Overrides(ctx context.Context, period model.Period, mode model.AllocationMode) (*planning.OverrideReport, error)
	Capacities(ctx context.Context, period model.Period, mode model.AllocationMode) (*planning.CapacityReport, error)
	ShiftTimelines(ctx context.Context) ([]capacity.ShiftTimeline, error)
	ModelReferences(ctx context.Context) ([]*model.ModelReference, error)
	ImportModelReferences(ctx context.Context, r io.Reader) (*ingest.Report, error)
	ImportDemand(ctx context.Context, period model.Period, r io.Reader) (*ingest.Report, error)
}

// PlanHandler 生产计划处理器
type PlanHandler struct {
	svc       PlanService
	maxUpload int64
}

// NewPlanHandler 创建计划处理器，maxUpload 为导入文件大小上限（字节）
func NewPlanHandler(svc PlanService, maxUpload int64) *PlanHandler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &PlanHandler{svc: svc, maxUpload: maxUpload}
}

// Register 注册路由
func (h *PlanHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/plans/{year:[0-9]{4}}/{month:[0-9]{1,2}}", h.Generate).Methods(http.MethodPost)
	api.HandleFunc("/plans/{year:[0-9]{4}}/{month:[0-9]{1,2}}", h.GetAssignments).Methods(http.MethodGet)
	api.HandleFunc("/plans/{year:[0-9]{4}}/{month:[0-9]{1,2}}/overrides", h.GetOverrides).Methods(http.MethodGet)
	api.HandleFunc("/capacity/{year:[0-9]{4}}/{month:[0-9]{1,2}}", h.GetCapacity).Methods(http.MethodGet)
	api.HandleFunc("/shifts/timelines", h.GetShiftTimelines).Methods(http.MethodGet)
	api.HandleFunc("/model-references", h.ListModelReferences).Methods(http.MethodGet)
	api.HandleFunc("/imports/model-references", h.ImportModelReferences).Methods(http.MethodPost)
	api.HandleFunc("/imports/demand/{year:[0-9]{4}}/{month:[0-9]{1,2}}", h.ImportDemand).Methods(http.MethodPost)
}

// Response 通用响应
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// PlanSummary 计划汇总
type PlanSummary struct {
	LineCount             int     `json:"line_count"`
	HoursPerLine          float64 `json:"hours_per_line"`
	TotalDemandHours      float64 `json:"total_demand_hours"`
	TotalCapacityHours    float64 `json:"total_capacity_hours"`
	CapacityGap           float64 `json:"capacity_gap"`
	UnassignedQuantity    int     `json:"unassigned_quantity"`
	RequiredOvertimeHours float64 `json:"required_overtime_hours"`
	WorkersSaved          int     `json:"workers_saved"`
}

// GenerateResponse 计划生成响应
type GenerateResponse struct {
	Success     bool                       `json:"success"`
	Partial     bool                       `json:"partial,omitempty"` // 存在未分配需求
	Period      string                     `json:"period"`
	Mode        model.AllocationMode       `json:"mode"`
	Summary     PlanSummary                `json:"summary"`
	Capacities  map[model.WorkType]float64 `json:"shift_capacities"`
	Assignments []*model.Assignment        `json:"assignments"`
	Unassigned  []*model.UnassignedDemand  `json:"unassigned"`
	Issues      []allocator.Issue          `json:"issues,omitempty"`
	Overrides   []*model.CapacityOverride  `json:"overrides"`
	Conflicts   []validator.Conflict       `json:"conflicts,omitempty"`
	Utilization *stats.UtilizationSummary  `json:"utilization"`
	Duration    string                     `json:"duration"`
}

// Generate 生成期间计划
func (h *PlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromVars(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	mode, err := h.svc.ResolveMode(r.URL.Query().Get("mode"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	plan, err := h.svc.Generate(r.Context(), period, mode)
	if err != nil {
		respondError(w, r, err)
		return
	}

	alloc := plan.Allocation
	respondJSON(w, http.StatusOK, GenerateResponse{
		Success: true,
		Partial: len(alloc.Unassigned) > 0,
		Period:  period.String(),
		Mode:    mode,
		Summary: PlanSummary{
			LineCount:             alloc.LineCount,
			HoursPerLine:          alloc.HoursPerLine,
			TotalDemandHours:      alloc.TotalDemandHours,
			TotalCapacityHours:    alloc.TotalCapacityHours,
			CapacityGap:           alloc.CapacityGap,
			UnassignedQuantity:    alloc.UnassignedQuantity(),
			RequiredOvertimeHours: alloc.RequiredOvertimeHours,
			WorkersSaved:          plan.Optimization.WorkersSaved,
		},
		Capacities:  alloc.ShiftCapacities,
		Assignments: alloc.Assignments,
		Unassigned:  alloc.Unassigned,
		Issues:      alloc.Issues,
		Overrides:   plan.Overrides,
		Conflicts:   plan.Conflicts,
		Utilization: plan.Utilization,
		Duration:    plan.Duration.String(),
	})
}

// GetAssignments 查询期间已保存的分配
func (h *PlanHandler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromVars(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	assignments, err := h.svc.Assignments(r.Context(), period)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: assignments})
}

// ListModelReferences 列出型号参考
func (h *PlanHandler) ListModelReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.ModelReferences(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: refs})
}

// GetOverrides 查询期间人数覆盖
func (h *PlanHandler) GetOverrides(w http.ResponseWriter, r *http.Request) {
	period, mode, err := h.periodAndMode(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	report, err := h.svc.Overrides(r.Context(), period, mode)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: report})
}

func (h *PlanHandler) periodAndMode(r *http.Request) (model.Period, model.AllocationMode, error) {
	period, err := periodFromVars(r)
	if err != nil {
		return model.Period{}, "", err
	}
	mode, err := h.svc.ResolveMode(r.URL.Query().Get("mode"))
	if err != nil {
		return model.Period{}, "", err
	}
	return period, mode, nil
}

// periodFromVars 从路径参数解析期间
func periodFromVars(r *http.Request) (model.Period, error) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		return model.Period{}, errors.InvalidInput("year", vars["year"])
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil {
		return model.Period{}, errors.InvalidInput("month", vars["month"])
	}
	period, err := model.NewPeriod(month, year)
	if err != nil {
		return model.Period{}, errors.InvalidInput("period", err.Error())
	}
	return period, nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应，5xx 记录错误日志
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.As(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("请求处理失败")
	}

	body := map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	respondJSON(w, appErr.HTTPStatus, body)
}
