// Package stats 提供生产计划统计分析功能
package stats

import (
	"sort"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/model"
)

// ShiftUtilization 班次利用率
type ShiftUtilization struct {
	WorkType           model.WorkType `json:"work_type"`
	CapacityPerLine    float64        `json:"capacity_per_line"`
	TotalCapacityHours float64        `json:"total_capacity_hours"` // 单线产能 × 产线数
	UsedHours          float64        `json:"used_hours"`
	Utilization        float64        `json:"utilization"` // %
	AssignmentCount    int            `json:"assignment_count"`
}

// LineUtilization 产线利用率
type LineUtilization struct {
	LineID          uuid.UUID `json:"line_id"`
	LineName        string    `json:"line_name"`
	CapacityHours   float64   `json:"capacity_hours"`
	UsedHours       float64   `json:"used_hours"`
	ChangeoverHours float64   `json:"changeover_hours"`
	Utilization     float64   `json:"utilization"` // %
	ModelCount      int       `json:"model_count"`
}

// UtilizationSummary 利用率汇总
type UtilizationSummary struct {
	Shifts             []ShiftUtilization `json:"shifts"`
	Lines              []LineUtilization  `json:"lines"`
	TotalCapacityHours float64            `json:"total_capacity_hours"`
	TotalUsedHours     float64            `json:"total_used_hours"`
	OverallUtilization float64            `json:"overall_utilization"` // %
}

// UtilizationAnalyzer 利用率分析器
type UtilizationAnalyzer struct{}

// NewUtilizationAnalyzer 创建利用率分析器
func NewUtilizationAnalyzer() *UtilizationAnalyzer {
	return &UtilizationAnalyzer{}
}

// Analyze 按班次与产线统计已用工时与利用率
func (u *UtilizationAnalyzer) Analyze(capacities map[model.WorkType]float64, lines []*model.Line,
	assignments []*model.Assignment) *UtilizationSummary {

	lineCount := 0
	for _, l := range lines {
		if l != nil && l.IsActive {
			lineCount++
		}
	}

	summary := &UtilizationSummary{
		Shifts: make([]ShiftUtilization, 0, len(capacities)),
		Lines:  make([]LineUtilization, 0, lineCount),
	}

	byShift := make(map[model.WorkType]*ShiftUtilization, len(capacities))
	workTypes := make([]model.WorkType, 0, len(capacities))
	for wt := range capacities {
		workTypes = append(workTypes, wt)
	}
	sort.Slice(workTypes, func(i, j int) bool { return workTypes[i] < workTypes[j] })

	hoursPerLine := 0.0
	for _, wt := range workTypes {
		hoursPerLine += capacities[wt]
		byShift[wt] = &ShiftUtilization{
			WorkType:           wt,
			CapacityPerLine:    capacities[wt],
			TotalCapacityHours: capacities[wt] * float64(lineCount),
		}
	}

	byLine := make(map[uuid.UUID]*LineUtilization, lineCount)
	lineModels := make(map[uuid.UUID]map[string]bool, lineCount)
	for _, l := range lines {
		if l == nil || !l.IsActive {
			continue
		}
		byLine[l.ID] = &LineUtilization{LineID: l.ID, LineName: l.Name, CapacityHours: hoursPerLine}
		lineModels[l.ID] = make(map[string]bool)
	}

	for _, a := range assignments {
		if a.Kind != model.AssignmentRegular {
			continue
		}
		if s, ok := byShift[a.WorkType]; ok {
			s.UsedHours += a.TotalHours()
			s.AssignmentCount++
		}
		if l, ok := byLine[a.LineID]; ok {
			l.UsedHours += a.TotalHours()
			l.ChangeoverHours += a.ChangeoverHours
			lineModels[a.LineID][a.ModelName] = true
		}
	}

	for _, wt := range workTypes {
		s := byShift[wt]
		s.Utilization = percent(s.UsedHours, s.TotalCapacityHours)
		summary.Shifts = append(summary.Shifts, *s)
		summary.TotalCapacityHours += s.TotalCapacityHours
		summary.TotalUsedHours += s.UsedHours
	}
	for _, l := range lines {
		if l == nil || !l.IsActive {
			continue
		}
		lu := byLine[l.ID]
		lu.Utilization = percent(lu.UsedHours, lu.CapacityHours)
		lu.ModelCount = len(lineModels[l.ID])
		summary.Lines = append(summary.Lines, *lu)
	}
	summary.OverallUtilization = percent(summary.TotalUsedHours, summary.TotalCapacityHours)

	return summary
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
