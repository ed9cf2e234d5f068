package stats

import (
	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/model"
)

// LineOptimization 单条产线的人数优化情况
type LineOptimization struct {
	LineID          uuid.UUID              `json:"line_id"`
	LineName        string                 `json:"line_name"`
	DefaultCapacity int                    `json:"default_capacity"`
	Shifts          map[model.WorkType]int `json:"shifts"` // 各班次优化后人数
	WorkersSaved    int                    `json:"workers_saved"`
}

// OptimizationSummary 人数优化汇总
type OptimizationSummary struct {
	Period                 model.Period       `json:"period"`
	Lines                  []LineOptimization `json:"lines"`
	TotalDefaultWorkers    int                `json:"total_default_workers"`
	TotalOptimizedWorkers  int                `json:"total_optimized_workers"`
	TotalWorkersSaved      int                `json:"total_workers_saved"`
	OptimizationPercentage float64            `json:"optimization_percentage"`
}

// SummarizeOptimization 汇总期间内各产线班次的优化人数，
// 未优化的班次按默认人数计入。
func SummarizeOptimization(period model.Period, mode model.AllocationMode, lines []*model.Line,
	overrides []*model.CapacityOverride) *OptimizationSummary {

	summary := &OptimizationSummary{Period: period, Lines: make([]LineOptimization, 0)}

	byLine := make(map[uuid.UUID]map[model.WorkType]*model.CapacityOverride)
	for _, o := range overrides {
		if o == nil || o.Period != period {
			continue
		}
		if byLine[o.LineID] == nil {
			byLine[o.LineID] = make(map[model.WorkType]*model.CapacityOverride)
		}
		byLine[o.LineID][o.WorkType] = o
	}

	for _, l := range lines {
		if l == nil || !l.IsActive {
			continue
		}
		lo := LineOptimization{
			LineID:          l.ID,
			LineName:        l.Name,
			DefaultCapacity: l.DefaultCapacity,
			Shifts:          make(map[model.WorkType]int),
		}
		for _, wt := range mode.WorkTypes() {
			workers := l.DefaultCapacity
			if o, ok := byLine[l.ID][wt]; ok {
				workers = o.RequiredWorkers
			}
			lo.Shifts[wt] = workers
			lo.WorkersSaved += l.DefaultCapacity - workers
			summary.TotalDefaultWorkers += l.DefaultCapacity
			summary.TotalOptimizedWorkers += workers
		}
		summary.Lines = append(summary.Lines, lo)
	}

	summary.TotalWorkersSaved = summary.TotalDefaultWorkers - summary.TotalOptimizedWorkers
	summary.OptimizationPercentage = percent(float64(summary.TotalWorkersSaved), float64(summary.TotalDefaultWorkers))
	return summary
}
