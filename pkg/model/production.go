package model

import (
	"github.com/google/uuid"
)

// SecondsPerHour 每小时秒数
const SecondsPerHour = 3600.0

// ModelReference 产品型号参考数据
type ModelReference struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ModelName string    `json:"model_name" db:"model_name" validate:"required"`
	SUT       float64   `json:"sut" db:"sut" validate:"gt=0"`              // 标准单件工时（秒）
	HeadCount int       `json:"head_count" db:"head_count" validate:"gt=0"` // 所需人数
}

// HoursPerUnit 单件工时（小时）
func (m *ModelReference) HoursPerUnit() float64 {
	return m.SUT / SecondsPerHour
}

// DemandRecord 月度需求
type DemandRecord struct {
	BaseModel
	ModelName string          `json:"model_name" db:"model_name" validate:"required"`
	Quantity  int             `json:"quantity" db:"quantity" validate:"gt=0"`
	Period    Period          `json:"period" db:"-"`
	Sequence  int             `json:"sequence" db:"sequence"` // 导入顺序
	Reference *ModelReference `json:"reference,omitempty" db:"-" validate:"required"`
}

// TotalWorkHours 总工时 = SUT/3600 × 数量
func (d *DemandRecord) TotalWorkHours() float64 {
	if d.Reference == nil {
		return 0
	}
	return d.Reference.HoursPerUnit() * float64(d.Quantity)
}

// HoursPerUnit 单件工时
func (d *DemandRecord) HoursPerUnit() float64 {
	if d.Quantity <= 0 {
		return 0
	}
	return d.TotalWorkHours() / float64(d.Quantity)
}

// RequiredHeadCount 所需人数
func (d *DemandRecord) RequiredHeadCount() int {
	if d.Reference == nil {
		return 0
	}
	return d.Reference.HeadCount
}

// Line 生产线
type Line struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            string    `json:"name" db:"name" validate:"required"`
	DefaultCapacity int       `json:"default_capacity" db:"default_capacity" validate:"gt=0"` // 默认人数
	IsActive        bool      `json:"is_active" db:"is_active"`
}
