// Package optimizer 根据分配结果回算每条产线每个班次的最少人数
package optimizer

import (
	"time"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/logger"
	"github.com/laborplan/laborplan/pkg/model"
)

// Group 同一产线同一班次的分配汇总
type Group struct {
	LineID           uuid.UUID      `json:"line_id"`
	LineName         string         `json:"line_name"`
	WorkType         model.WorkType `json:"work_type"`
	DefaultCapacity  int            `json:"default_capacity"`
	PeakRequired     int            `json:"peak_required"`
	CurrentAllocated int            `json:"current_allocated"`
	Assignments      int            `json:"assignments"`
	Optimized        bool           `json:"optimized"`
}

// Saved 本组节省的人数
func (g Group) Saved() int {
	if !g.Optimized {
		return 0
	}
	return g.CurrentAllocated - g.PeakRequired
}

// Outcome 优化结果
type Outcome struct {
	Overrides    []*model.CapacityOverride `json:"overrides"`   // 新建或更新的覆盖记录
	Assignments  []*model.Assignment       `json:"assignments"` // 全部分配（原地更新）
	Groups       []Group                   `json:"groups"`
	WorkersSaved int                       `json:"workers_saved"`
}

type groupKey struct {
	lineID   uuid.UUID
	workType model.WorkType
}

// CapacityOptimizer 产线人数优化器
type CapacityOptimizer struct {
	logger *logger.PlannerLogger
	now    func() time.Time
}

// NewCapacityOptimizer 创建优化器
func NewCapacityOptimizer(l *logger.PlannerLogger) *CapacityOptimizer {
	if l == nil {
		l = logger.NewPlannerLogger()
	}
	return &CapacityOptimizer{logger: l, now: time.Now}
}

// SetClock 设置时钟
func (o *CapacityOptimizer) SetClock(now func() time.Time) {
	o.now = now
}

// Optimize 将每组分配人数降到组内最大所需人数，并写入覆盖记录。
// existing 为已有覆盖记录，同键记录原地更新；重复执行不会再产生变化。
func (o *CapacityOptimizer) Optimize(period model.Period, assignments []*model.Assignment,
	existing []*model.CapacityOverride) *Outcome {

	now := o.now()
	out := &Outcome{
		Overrides:   make([]*model.CapacityOverride, 0),
		Assignments: assignments,
		Groups:      make([]Group, 0),
	}

	index := make(map[model.OverrideKey]*model.CapacityOverride, len(existing))
	for _, ov := range existing {
		if ov != nil {
			index[ov.Key()] = ov
		}
	}

	order := make([]groupKey, 0)
	members := make(map[groupKey][]*model.Assignment)
	for _, a := range assignments {
		if a == nil || a.Kind != model.AssignmentRegular {
			continue
		}
		k := groupKey{lineID: a.LineID, workType: a.WorkType}
		if _, ok := members[k]; !ok {
			order = append(order, k)
		}
		members[k] = append(members[k], a)
	}

	for _, k := range order {
		group := members[k]
		first := group[0]

		peak := 0
		for _, a := range group {
			if a.RequiredWorkers > peak {
				peak = a.RequiredWorkers
			}
		}
		current := first.AllocatedWorkers

		g := Group{
			LineID:           k.lineID,
			LineName:         first.LineName,
			WorkType:         k.workType,
			DefaultCapacity:  first.DefaultCapacity,
			PeakRequired:     peak,
			CurrentAllocated: current,
			Assignments:      len(group),
		}

		if current > peak && peak <= first.DefaultCapacity {
			g.Optimized = true
			out.Overrides = append(out.Overrides, o.upsert(index, period, first, peak, current-peak, now))
			out.WorkersSaved += current - peak
			o.logger.CapacityOptimized(first.LineName, k.workType.String(), current, peak)
		}

		for _, a := range group {
			if a.AllocatedWorkers == peak && a.SurplusWorkers == peak-a.RequiredWorkers {
				continue
			}
			a.AllocatedWorkers = peak
			a.SurplusWorkers = peak - a.RequiredWorkers
			a.Touch(now)
		}
		out.Groups = append(out.Groups, g)
	}

	return out
}

func (o *CapacityOptimizer) upsert(index map[model.OverrideKey]*model.CapacityOverride, period model.Period,
	a *model.Assignment, peak, saved int, now time.Time) *model.CapacityOverride {

	key := model.OverrideKey{LineID: a.LineID, Period: period, WorkType: a.WorkType}
	note := model.OptimizedNote(a.WorkType, peak, saved)

	if ov, ok := index[key]; ok {
		ov.RequiredWorkers = peak
		ov.Notes = note
		ov.Touch(now)
		return ov
	}

	ov := &model.CapacityOverride{
		BaseModel:       model.NewBaseModelAt(now),
		LineID:          a.LineID,
		LineName:        a.LineName,
		Period:          period,
		WorkType:        a.WorkType,
		RequiredWorkers: peak,
		DefaultCapacity: a.DefaultCapacity,
		Notes:           note,
	}
	index[key] = ov
	return ov
}
