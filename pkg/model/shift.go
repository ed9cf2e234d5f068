package model

import (
	"strings"

	"github.com/google/uuid"
)

// FridayPrayerName 周五礼拜扣除项名称
const FridayPrayerName = "Friday Prayer"

// ShiftDefinition 班次定义
type ShiftDefinition struct {
	BaseModel
	WorkType   WorkType    `json:"work_type" db:"work_type"`
	Start      TimeOfDay   `json:"start" db:"start_time"`
	End        TimeOfDay   `json:"end" db:"end_time"`
	IsActive   bool        `json:"is_active" db:"is_active"`
	Deductions []Deduction `json:"deductions,omitempty" db:"-"`
}

// Window 班次时段
func (s *ShiftDefinition) Window() ClockRange {
	return ClockRange{Start: s.Start, End: s.End}
}

// GrossMinutes 班次总时长（分钟），跨午夜时加 24 小时
func (s *ShiftDefinition) GrossMinutes() int {
	return WrappedDuration(s.Start, s.End)
}

// Deduction 班次内的扣除时段（休息、用餐、礼拜等）
type Deduction struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ShiftID  uuid.UUID `json:"shift_id" db:"shift_id"`
	Name     string    `json:"name" db:"name"`
	Start    TimeOfDay `json:"start" db:"start_time"`
	End      TimeOfDay `json:"end" db:"end_time"`
	WorkType WorkType  `json:"work_type" db:"work_type"`
	IsActive bool      `json:"is_active" db:"is_active"`
}

// Window 扣除时段
func (d Deduction) Window() ClockRange {
	return ClockRange{Start: d.Start, End: d.End}
}

// Minutes 扣除时长
func (d Deduction) Minutes() int {
	return WrappedDuration(d.Start, d.End)
}

// IsFridayPrayer 是否为周五礼拜
func (d Deduction) IsFridayPrayer() bool {
	return strings.EqualFold(strings.TrimSpace(d.Name), FridayPrayerName)
}
