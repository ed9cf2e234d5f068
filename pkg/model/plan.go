package model

import (
	"fmt"

	"github.com/google/uuid"
)

// AssignmentKind 分配记录类型
type AssignmentKind string

const (
	AssignmentRegular  AssignmentKind = "regular"  // 正常班次内
	AssignmentOvertime AssignmentKind = "overtime" // 加班
)

// Assignment 产线分配记录
type Assignment struct {
	BaseModel
	Kind             AssignmentKind `json:"kind" db:"kind"`
	Period           Period         `json:"period" db:"-"`
	DemandID         uuid.UUID      `json:"demand_id" db:"demand_id"`
	ModelName        string         `json:"model_name" db:"model_name"`
	LineID           uuid.UUID      `json:"line_id" db:"line_id"`
	LineName         string         `json:"line_name" db:"line_name"`
	AssignedQuantity int            `json:"assigned_quantity" db:"assigned_quantity"`
	PlannedHours     float64        `json:"planned_hours" db:"planned_hours"`
	ChangeoverHours  float64        `json:"changeover_hours" db:"changeover_hours"`
	RequiredWorkers  int            `json:"required_workers" db:"required_workers"`
	AllocatedWorkers int            `json:"allocated_workers" db:"allocated_workers"`
	DefaultCapacity  int            `json:"default_capacity" db:"default_capacity"`
	SurplusWorkers   int            `json:"surplus_workers" db:"surplus_workers"`
	WorkType         WorkType       `json:"work_type" db:"work_type"` // 仅 regular 有意义
}

// TotalHours 计划工时 + 换线工时
func (a *Assignment) TotalHours() float64 {
	return a.PlannedHours + a.ChangeoverHours
}

// IsOvertime 是否为加班分配
func (a *Assignment) IsOvertime() bool {
	return a.Kind == AssignmentOvertime
}

// CapacityOverride 期间内某产线某班次的优化人数
type CapacityOverride struct {
	BaseModel
	LineID          uuid.UUID `json:"line_id" db:"line_id"`
	LineName        string    `json:"line_name" db:"line_name"`
	Period          Period    `json:"period" db:"-"`
	WorkType        WorkType  `json:"work_type" db:"work_type"`
	RequiredWorkers int       `json:"required_workers" db:"required_workers"`
	DefaultCapacity int       `json:"default_capacity" db:"default_capacity"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
}

// WorkersSaved 相比默认人数节省的人数
func (o *CapacityOverride) WorkersSaved() int {
	return o.DefaultCapacity - o.RequiredWorkers
}

// Key 唯一键 (产线, 期间, 班次)
func (o *CapacityOverride) Key() OverrideKey {
	return OverrideKey{LineID: o.LineID, Period: o.Period, WorkType: o.WorkType}
}

// OverrideKey 人数覆盖记录的唯一键
type OverrideKey struct {
	LineID   uuid.UUID
	Period   Period
	WorkType WorkType
}

// OptimizedNote 生成优化说明
func OptimizedNote(wt WorkType, workers, saved int) string {
	return fmt.Sprintf("%s optimized: %d workers (saved %d)", wt, workers, saved)
}

// 未分配原因
const (
	ReasonInsufficientCapacity = "insufficient capacity across all shifts"
	ReasonRequiresOvertime     = "requires overtime — regular capacity exceeded"
	ReasonInvalidDemand        = "invalid demand"
)

// UnassignedDemand 未能分配的需求（不持久化）
type UnassignedDemand struct {
	DemandID           uuid.UUID `json:"demand_id"`
	ModelName          string    `json:"model_name"`
	UnassignedQuantity int       `json:"unassigned_quantity"`
	RequiredHours      float64   `json:"required_hours"`
	RequiredHeadCount  int       `json:"required_head_count"`
	Reason             string    `json:"reason"`
}
