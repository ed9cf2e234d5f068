package capacity

import (
	"time"

	"github.com/laborplan/laborplan/pkg/errors"
	"github.com/laborplan/laborplan/pkg/model"
)

// WorkDays 期间内的工作日
type WorkDays struct {
	RegularDays int         `json:"regular_days"` // 周一至周四
	FridayDays  int         `json:"friday_days"`
	Dates       []time.Time `json:"dates"`
}

// Total 工作日总数
func (w WorkDays) Total() int {
	return w.RegularDays + w.FridayDays
}

// CountWorkDays 统计期间内周一至周四与周五的天数，周末不计
func CountWorkDays(p model.Period) WorkDays {
	var wd WorkDays
	for _, d := range p.Days() {
		switch d.Weekday() {
		case time.Monday, time.Tuesday, time.Wednesday, time.Thursday:
			wd.RegularDays++
			wd.Dates = append(wd.Dates, d)
		case time.Friday:
			wd.FridayDays++
			wd.Dates = append(wd.Dates, d)
		}
	}
	return wd
}

// Hours 期间产能小时数
func (dm DayMinutes) Hours(days WorkDays) float64 {
	return float64(days.RegularDays*dm.Regular+days.FridayDays*dm.Friday) / 60.0
}

// Breakdown 班次产能明细
type Breakdown struct {
	WorkType               model.WorkType `json:"work_type"`
	GrossMinutes           int            `json:"gross_minutes"`
	RegularDeductMinutes   int            `json:"regular_deduct_minutes"`
	FridayDeductMinutes    int            `json:"friday_deduct_minutes"`
	RegularNetMinutes      int            `json:"regular_net_minutes"`
	FridayNetMinutes       int            `json:"friday_net_minutes"`
	RegularDays            int            `json:"regular_days"`
	FridayDays             int            `json:"friday_days"`
	TotalCapacityHours     float64        `json:"total_capacity_hours"`
	UsesDefaultDefinitions bool           `json:"uses_default_definitions"`
}

// PeriodCalculator 期间产能计算器
type PeriodCalculator struct {
	shifts   map[model.WorkType]*model.ShiftDefinition
	fallback map[model.WorkType]DayMinutes
}

// PeriodOption 计算器选项
type PeriodOption func(*PeriodCalculator)

// WithFallback 缺少班次定义时使用给定的默认分钟数
func WithFallback(defaults map[model.WorkType]DayMinutes) PeriodOption {
	return func(c *PeriodCalculator) {
		c.fallback = defaults
	}
}

// NewPeriodCalculator 创建期间产能计算器，只使用启用的班次定义
func NewPeriodCalculator(defs []*model.ShiftDefinition, opts ...PeriodOption) *PeriodCalculator {
	c := &PeriodCalculator{shifts: make(map[model.WorkType]*model.ShiftDefinition)}
	for _, d := range defs {
		if d == nil || !d.IsActive {
			continue
		}
		if _, exists := c.shifts[d.WorkType]; !exists {
			c.shifts[d.WorkType] = d
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Minutes 返回班次的每日净分钟数
func (c *PeriodCalculator) Minutes(wt model.WorkType) (DayMinutes, error) {
	if shift, ok := c.shifts[wt]; ok {
		return DailyMinutes(shift)
	}
	if dm, ok := c.fallback[wt]; ok {
		return dm, nil
	}
	return DayMinutes{}, errors.ConfigurationMissing(wt.String())
}

// CapacityHours 单条产线在期间内某班次的产能小时数
func (c *PeriodCalculator) CapacityHours(p model.Period, wt model.WorkType) (float64, error) {
	dm, err := c.Minutes(wt)
	if err != nil {
		return 0, err
	}
	return dm.Hours(CountWorkDays(p)), nil
}

// ModeCapacities 返回模式所需各班次的产能小时数
func (c *PeriodCalculator) ModeCapacities(p model.Period, mode model.AllocationMode) (map[model.WorkType]float64, error) {
	workTypes := mode.WorkTypes()
	if workTypes == nil {
		return nil, errors.InvalidInput("mode", string(mode))
	}

	days := CountWorkDays(p)
	result := make(map[model.WorkType]float64, len(workTypes))
	for _, wt := range workTypes {
		dm, err := c.Minutes(wt)
		if err != nil {
			return nil, err
		}
		result[wt] = dm.Hours(days)
	}
	return result, nil
}

// Breakdown 返回班次在期间内的产能明细
func (c *PeriodCalculator) Breakdown(p model.Period, wt model.WorkType) (*Breakdown, error) {
	dm, err := c.Minutes(wt)
	if err != nil {
		return nil, err
	}
	days := CountWorkDays(p)
	b := &Breakdown{
		WorkType:           wt,
		RegularNetMinutes:  dm.Regular,
		FridayNetMinutes:   dm.Friday,
		RegularDays:        days.RegularDays,
		FridayDays:         days.FridayDays,
		TotalCapacityHours: dm.Hours(days),
	}
	if shift, ok := c.shifts[wt]; ok {
		b.GrossMinutes = shift.GrossMinutes()
		b.RegularDeductMinutes = b.GrossMinutes - dm.Regular
		b.FridayDeductMinutes = b.GrossMinutes - dm.Friday
	} else {
		b.UsesDefaultDefinitions = true
	}
	return b, nil
}

// CapacityHours 计算模式下各班次单条产线的期间产能
func CapacityHours(p model.Period, mode model.AllocationMode, defs []*model.ShiftDefinition) (map[model.WorkType]float64, error) {
	return NewPeriodCalculator(defs).ModeCapacities(p, mode)
}
