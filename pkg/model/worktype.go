package model

import (
	"fmt"
	"strings"
)

// WorkType 班次类型
type WorkType int

const (
	NonShift WorkType = iota // 常日班（可加班）
	Shift1                   // 一班
	Shift2                   // 二班
	Shift3                   // 三班
)

// MultiShiftOrder 多班制下依次尝试的班次
var MultiShiftOrder = []WorkType{Shift1, Shift2, Shift3}

var workTypeNames = map[WorkType]string{
	NonShift: "NonShift",
	Shift1:   "Shift1",
	Shift2:   "Shift2",
	Shift3:   "Shift3",
}

// String 返回班次名称
func (w WorkType) String() string {
	if name, ok := workTypeNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WorkType(%d)", int(w))
}

// Valid 是否为已知班次
func (w WorkType) Valid() bool {
	_, ok := workTypeNames[w]
	return ok
}

// PrayerAffected 周五礼拜扣除是否适用于该班次
func (w WorkType) PrayerAffected() bool {
	return w == NonShift || w == Shift1
}

// ParseWorkType 解析班次名称或数字编码
func ParseWorkType(s string) (WorkType, error) {
	s = strings.TrimSpace(s)
	for w, name := range workTypeNames {
		if strings.EqualFold(s, name) || s == fmt.Sprint(int(w)) {
			return w, nil
		}
	}
	return 0, fmt.Errorf("未知班次类型: %q", s)
}

// MarshalText 实现 encoding.TextMarshaler
func (w WorkType) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (w *WorkType) UnmarshalText(b []byte) error {
	v, err := ParseWorkType(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// AllocationMode 分配模式
type AllocationMode string

const (
	ModeNonShiftWithOvertime AllocationMode = "non_shift_with_overtime" // 常日班 + 加班
	ModeMultiShift           AllocationMode = "multi_shift"             // 三班制
)

// WorkTypes 返回该模式需要计划的班次
func (m AllocationMode) WorkTypes() []WorkType {
	switch m {
	case ModeNonShiftWithOvertime:
		return []WorkType{NonShift}
	case ModeMultiShift:
		return MultiShiftOrder
	default:
		return nil
	}
}

// Valid 是否为已知模式
func (m AllocationMode) Valid() bool {
	return m == ModeNonShiftWithOvertime || m == ModeMultiShift
}

// ParseAllocationMode 解析分配模式，兼容数字编码 0/1
func ParseAllocationMode(s string) (AllocationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "non_shift_with_overtime", "nonshiftwithovertime", "0":
		return ModeNonShiftWithOvertime, nil
	case "multi_shift", "multishift", "1":
		return ModeMultiShift, nil
	default:
		return "", fmt.Errorf("未知分配模式: %q", s)
	}
}
