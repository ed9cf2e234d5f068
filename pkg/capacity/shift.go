// Package capacity 计算班次净工作时长与期间产能
package capacity

import (
	"sort"

	"github.com/laborplan/laborplan/pkg/errors"
	"github.com/laborplan/laborplan/pkg/model"
)

// DayMinutes 班次在普通日与周五的净工作分钟数
type DayMinutes struct {
	WorkType model.WorkType `json:"work_type"`
	Regular  int            `json:"regular"`
	Friday   int            `json:"friday"`
}

// EligibleDeductions 返回当天实际生效的扣除项，按距班次开始的偏移排序。
//
// 扣除项需满足：启用、班次类型一致、开始时刻落在班次时段内。
// 周五礼拜只在周五且班次受礼拜影响时生效，生效时与之重叠的其他扣除项被排除，
// 同名的重复礼拜项也按其他扣除项处理。
func EligibleDeductions(shift *model.ShiftDefinition, isFriday bool) []model.Deduction {
	window := shift.Window()

	var prayer *model.Deduction
	prayerIdx := -1
	candidates := make([]model.Deduction, 0, len(shift.Deductions))
	for i := range shift.Deductions {
		d := shift.Deductions[i]
		if !d.IsActive || d.WorkType != shift.WorkType || !window.Contains(d.Start) {
			continue
		}
		if d.IsFridayPrayer() {
			if !isFriday || !shift.WorkType.PrayerAffected() {
				continue
			}
			if prayer == nil {
				prayer = &d
				prayerIdx = len(candidates)
			}
		}
		candidates = append(candidates, d)
	}

	eligible := candidates
	if prayer != nil {
		eligible = candidates[:0:0]
		for i, d := range candidates {
			if i != prayerIdx && d.Window().Overlaps(prayer.Window()) {
				continue
			}
			eligible = append(eligible, d)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return window.Offset(eligible[i].Start) < window.Offset(eligible[j].Start)
	})
	return eligible
}

// NetMinutes 净工作分钟数 = 总时长 - 生效扣除项时长之和，配置错误时可能为负
func NetMinutes(shift *model.ShiftDefinition, isFriday bool) int {
	net := shift.GrossMinutes()
	for _, d := range EligibleDeductions(shift, isFriday) {
		net -= d.Minutes()
	}
	return net
}

// DeductionMinutes 生效扣除项时长之和
func DeductionMinutes(shift *model.ShiftDefinition, isFriday bool) int {
	return shift.GrossMinutes() - NetMinutes(shift, isFriday)
}

// DailyMinutes 计算普通日与周五的净工作分钟数，任一为负返回 MisconfiguredShift
func DailyMinutes(shift *model.ShiftDefinition) (DayMinutes, error) {
	dm := DayMinutes{
		WorkType: shift.WorkType,
		Regular:  NetMinutes(shift, false),
		Friday:   NetMinutes(shift, true),
	}
	if dm.Regular < 0 {
		return dm, errors.MisconfiguredShift(shift.WorkType.String(), dm.Regular)
	}
	if dm.Friday < 0 {
		return dm, errors.MisconfiguredShift(shift.WorkType.String(), dm.Friday)
	}
	return dm, nil
}

// DefaultDayMinutes 未配置班次明细时使用的默认净工作分钟数
var DefaultDayMinutes = map[model.WorkType]DayMinutes{
	model.NonShift: {WorkType: model.NonShift, Regular: 473, Friday: 433},
	model.Shift1:   {WorkType: model.Shift1, Regular: 458, Friday: 418},
	model.Shift2:   {WorkType: model.Shift2, Regular: 398, Friday: 398},
	model.Shift3:   {WorkType: model.Shift3, Regular: 398, Friday: 398},
}
