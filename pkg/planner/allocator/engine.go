// Package allocator 将月度需求贪心分配到产线与班次
package allocator

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/errors"
	"github.com/laborplan/laborplan/pkg/logger"
	"github.com/laborplan/laborplan/pkg/model"
)

// DefaultChangeoverHours 换线时间（15 分钟）
const DefaultChangeoverHours = 15.0 / 60.0

// fitEpsilon 计算可容纳件数时的浮点容差
const fitEpsilon = 1e-9

// Input 分配输入
type Input struct {
	Period          model.Period
	Mode            model.AllocationMode
	Demand          []*model.DemandRecord
	Lines           []*model.Line
	ShiftCapacities map[model.WorkType]float64 // 单条产线每班次的期间产能（小时）
	Overrides       []*model.CapacityOverride
}

// Issue 分配过程中发现的问题（不中断分配）
type Issue struct {
	Code      errors.Code `json:"code"`
	DemandID  uuid.UUID   `json:"demand_id"`
	ModelName string      `json:"model_name"`
	Quantity  int         `json:"quantity"`
	Message   string      `json:"message"`
}

// Result 分配结果
type Result struct {
	Period                model.Period               `json:"period"`
	Mode                  model.AllocationMode       `json:"mode"`
	LineCount             int                        `json:"line_count"`
	HoursPerLine          float64                    `json:"hours_per_line"`
	TotalDemandHours      float64                    `json:"total_demand_hours"`
	TotalCapacityHours    float64                    `json:"total_capacity_hours"`
	CapacityGap           float64                    `json:"capacity_gap"`
	ShiftCapacities       map[model.WorkType]float64 `json:"shift_capacities"`
	Assignments           []*model.Assignment        `json:"assignments"`
	Unassigned            []*model.UnassignedDemand  `json:"unassigned"`
	Issues                []Issue                    `json:"issues,omitempty"`
	RequiredOvertimeHours float64                    `json:"required_overtime_hours"`
	ActualOvertimeHours   float64                    `json:"actual_overtime_hours"`
	Duration              time.Duration              `json:"duration"`
}

// RegularAssignments 正常班次内的分配
func (r *Result) RegularAssignments() []*model.Assignment {
	return r.filter(model.AssignmentRegular)
}

// OvertimeAssignments 加班分配
func (r *Result) OvertimeAssignments() []*model.Assignment {
	return r.filter(model.AssignmentOvertime)
}

func (r *Result) filter(kind model.AssignmentKind) []*model.Assignment {
	out := make([]*model.Assignment, 0)
	for _, a := range r.Assignments {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// UnassignedQuantity 未分配总件数
func (r *Result) UnassignedQuantity() int {
	total := 0
	for _, u := range r.Unassigned {
		total += u.UnassignedQuantity
	}
	return total
}

// Engine 贪心分配引擎
type Engine struct {
	changeoverHours float64
	logger          *logger.PlannerLogger
	now             func() time.Time
}

// Option 引擎选项
type Option func(*Engine)

// WithChangeoverHours 设置换线时间（小时）
func WithChangeoverHours(h float64) Option {
	return func(e *Engine) {
		if h >= 0 {
			e.changeoverHours = h
		}
	}
}

// WithLogger 设置日志器
func WithLogger(l *logger.PlannerLogger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock 设置时钟，用于生成记录时间戳
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine 创建分配引擎
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		changeoverHours: DefaultChangeoverHours,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.NewPlannerLogger()
	}
	return e
}

// ChangeoverHours 当前换线时间
func (e *Engine) ChangeoverHours() float64 {
	return e.changeoverHours
}

// Allocate 生成期间的产线分配
func (e *Engine) Allocate(ctx context.Context, in *Input) (*Result, error) {
	start := e.now()

	if in == nil {
		return nil, errors.InvalidInput("input", "不能为空")
	}
	workTypes := in.Mode.WorkTypes()
	if workTypes == nil {
		return nil, errors.InvalidInput("mode", string(in.Mode))
	}
	for _, wt := range workTypes {
		if _, ok := in.ShiftCapacities[wt]; !ok {
			return nil, errors.ConfigurationMissing(wt.String())
		}
	}

	lines := activeLines(in.Lines)
	demand := orderDemand(in.Demand)
	e.logger.StartAllocation(in.Period.String(), string(in.Mode), len(demand), len(lines))

	result := &Result{
		Period:          in.Period,
		Mode:            in.Mode,
		LineCount:       len(lines),
		ShiftCapacities: make(map[model.WorkType]float64, len(workTypes)),
		Assignments:     make([]*model.Assignment, 0),
		Unassigned:      make([]*model.UnassignedDemand, 0),
	}
	for _, wt := range workTypes {
		result.ShiftCapacities[wt] = in.ShiftCapacities[wt]
		result.HoursPerLine += in.ShiftCapacities[wt]
	}
	result.TotalCapacityHours = float64(len(lines)) * result.HoursPerLine

	st := newAllocationState(in.Period, in.Overrides)

	for _, d := range demand {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := model.ValidateDemand(d); err != nil {
			e.reportInvalid(result, d, err)
			continue
		}
		result.TotalDemandHours += d.TotalWorkHours()

		var remaining int
		var reason string
		switch in.Mode {
		case model.ModeMultiShift:
			remaining = e.place(result, st, in, lines, d, d.Quantity, workTypes, false)
			reason = model.ReasonInsufficientCapacity
		case model.ModeNonShiftWithOvertime:
			remaining = e.place(result, st, in, lines, d, d.Quantity, workTypes, true)
			reason = model.ReasonRequiresOvertime
		}

		if remaining > 0 {
			u := unassigned(d, remaining, reason)
			result.Unassigned = append(result.Unassigned, u)
			if in.Mode == model.ModeNonShiftWithOvertime {
				result.RequiredOvertimeHours += u.RequiredHours
			}
			e.logger.Unassigned(d.ModelName, remaining, reason)
		}
	}

	for _, a := range result.Assignments {
		if a.IsOvertime() {
			result.ActualOvertimeHours += a.TotalHours()
		}
	}
	result.CapacityGap = result.TotalCapacityHours - result.TotalDemandHours
	result.Duration = e.now().Sub(start)

	e.logger.AllocationComplete(in.Period.String(), result.Duration, len(result.Assignments), len(result.Unassigned))
	return result, nil
}

// place 按班次顺序放置需求，返回剩余未分配件数。
// regularOnly 为 true 时只考虑仍有剩余常规产能的产线。
func (e *Engine) place(result *Result, st *allocationState, in *Input, lines []*model.Line,
	d *model.DemandRecord, remaining int, workTypes []model.WorkType, regularOnly bool) int {

	headCount := d.RequiredHeadCount()
	perUnit := d.HoursPerUnit()

	for _, wt := range workTypes {
		capacity := in.ShiftCapacities[wt]

		for remaining > 0 {
			placed := false
			for _, c := range st.candidates(lines, wt, headCount, capacity, regularOnly) {
				key := lineShiftKey{lineID: c.line.ID, workType: wt}
				changeover := st.changeoverFor(key, d.ModelName, e.changeoverHours)
				available := capacity - st.used[key] - changeover
				if available <= 0 {
					continue
				}

				fit := int(math.Floor(available/perUnit + fitEpsilon))
				units := remaining
				if fit < units {
					units = fit
				}
				if units <= 0 {
					continue
				}

				a := NewAssignment(model.AssignmentRegular, e.now(), in.Period, d, c.line, wt, c.capacity)
				a.AssignedQuantity = units
				a.PlannedHours = float64(units) * perUnit
				a.ChangeoverHours = changeover
				result.Assignments = append(result.Assignments, a)

				st.record(key, d.ModelName, a.TotalHours())
				remaining -= units
				placed = true
				break
			}
			if !placed {
				break
			}
		}
		if remaining == 0 {
			break
		}
	}
	return remaining
}

func (e *Engine) reportInvalid(result *Result, d *model.DemandRecord, cause error) {
	if d == nil {
		return
	}
	result.Issues = append(result.Issues, Issue{
		Code:      errors.CodeInvalidDemand,
		DemandID:  d.ID,
		ModelName: d.ModelName,
		Quantity:  d.Quantity,
		Message:   cause.Error(),
	})
	e.logger.InvalidDemand(d.ModelName, d.Quantity, cause.Error())

	// 数量为正但型号参考无效的需求仍需计入未分配，保证件数守恒
	if d.Quantity > 0 {
		result.Unassigned = append(result.Unassigned, &model.UnassignedDemand{
			DemandID:           d.ID,
			ModelName:          d.ModelName,
			UnassignedQuantity: d.Quantity,
			Reason:             model.ReasonInvalidDemand + ": " + cause.Error(),
		})
	}
}

// NewAssignment 创建分配记录，人数字段取自需求与产线的有效人数
func NewAssignment(kind model.AssignmentKind, now time.Time, period model.Period, d *model.DemandRecord,
	line *model.Line, wt model.WorkType, allocated int) *model.Assignment {

	required := d.RequiredHeadCount()
	return &model.Assignment{
		BaseModel:        model.NewBaseModelAt(now),
		Kind:             kind,
		Period:           period,
		DemandID:         d.ID,
		ModelName:        d.ModelName,
		LineID:           line.ID,
		LineName:         line.Name,
		RequiredWorkers:  required,
		AllocatedWorkers: allocated,
		DefaultCapacity:  line.DefaultCapacity,
		SurplusWorkers:   allocated - required,
		WorkType:         wt,
	}
}

func unassigned(d *model.DemandRecord, qty int, reason string) *model.UnassignedDemand {
	return &model.UnassignedDemand{
		DemandID:           d.ID,
		ModelName:          d.ModelName,
		UnassignedQuantity: qty,
		RequiredHours:      float64(qty) * d.HoursPerUnit(),
		RequiredHeadCount:  d.RequiredHeadCount(),
		Reason:             reason,
	}
}

// orderDemand 按所需人数降序排列，人数相同时保持导入顺序
func orderDemand(in []*model.DemandRecord) []*model.DemandRecord {
	out := make([]*model.DemandRecord, 0, len(in))
	for _, d := range in {
		if d != nil {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		hi, hj := out[i].RequiredHeadCount(), out[j].RequiredHeadCount()
		if hi != hj {
			return hi > hj
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// activeLines 过滤启用产线并按默认人数降序排列
func activeLines(in []*model.Line) []*model.Line {
	out := make([]*model.Line, 0, len(in))
	for _, l := range in {
		if l != nil && l.IsActive {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DefaultCapacity > out[j].DefaultCapacity
	})
	return out
}
