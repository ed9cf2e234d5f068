// Package model 定义生产计划引擎的核心数据模型
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	return NewBaseModelAt(time.Now())
}

// NewBaseModelAt 使用指定时间创建基础模型
func NewBaseModelAt(now time.Time) BaseModel {
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch 更新修改时间
func (b *BaseModel) Touch(now time.Time) {
	b.UpdatedAt = now
}

// Period 计划期间（月份）
type Period struct {
	Month int `json:"month" db:"month"`
	Year  int `json:"year" db:"year"`
}

// NewPeriod 创建并校验计划期间
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate 校验期间
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("月份无效: %d", p.Month)
	}
	if p.Year < 1900 || p.Year > 9999 {
		return fmt.Errorf("年份无效: %d", p.Year)
	}
	return nil
}

// String 返回 YYYY-MM 格式
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// MonthCode 返回两位月份编码
func (p Period) MonthCode() string {
	return fmt.Sprintf("%02d", p.Month)
}

// FirstDay 期间第一天
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Days 返回期间内的所有日期
func (p Period) Days() []time.Time {
	first := p.FirstDay()
	next := first.AddDate(0, 1, 0)
	days := make([]time.Time, 0, 31)
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// TimeOfDay 一天中的时刻，以距午夜的分钟数表示
type TimeOfDay int

// NewTimeOfDay 由时、分创建时刻
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay 解析 HH:MM 或 HH:MM:SS 格式
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("时间格式无效: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("小时无效: %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("分钟无效: %q", s)
	}
	return NewTimeOfDay(h, m), nil
}

// String 返回 HH:MM
func (t TimeOfDay) String() string {
	n := t.normalize()
	return fmt.Sprintf("%02d:%02d", int(n)/60, int(n)%60)
}

// Add 加上分钟数，跨午夜回绕
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return (t + TimeOfDay(minutes)).normalize()
}

func (t TimeOfDay) normalize() TimeOfDay {
	n := int(t) % MinutesPerDay
	if n < 0 {
		n += MinutesPerDay
	}
	return TimeOfDay(n)
}

// MarshalText 实现 encoding.TextMarshaler
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// WrappedDuration 返回 start 到 end 的分钟数，end 早于 start 视为跨午夜
func WrappedDuration(start, end TimeOfDay) int {
	d := int(end.normalize()) - int(start.normalize())
	if d < 0 {
		d += MinutesPerDay
	}
	return d
}

// ClockRange 一天内的时段，可跨午夜
type ClockRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Minutes 时段长度
func (r ClockRange) Minutes() int {
	return WrappedDuration(r.Start, r.End)
}

// Wraps 是否跨午夜
func (r ClockRange) Wraps() bool {
	return r.End.normalize() < r.Start.normalize()
}

// Contains 检查时刻是否落在 [Start, End) 内
func (r ClockRange) Contains(t TimeOfDay) bool {
	s, e, v := r.Start.normalize(), r.End.normalize(), t.normalize()
	if r.Wraps() {
		return v >= s || v < e
	}
	return v >= s && v < e
}

// Offset 返回时刻相对 Start 的分钟偏移
func (r ClockRange) Offset(t TimeOfDay) int {
	return WrappedDuration(r.Start, t)
}

// Overlaps 检查两个时段是否重叠（考虑跨午夜）
func (r ClockRange) Overlaps(other ClockRange) bool {
	aStart := int(r.Start.normalize())
	aEnd := aStart + r.Minutes()
	bStart := int(other.Start.normalize())
	bEnd := bStart + other.Minutes()

	for _, shift := range []int{-MinutesPerDay, 0, MinutesPerDay} {
		if aStart < bEnd+shift && aEnd > bStart+shift {
			return true
		}
	}
	return false
}
