// Package validator 校验生产计划结果的一致性
package validator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictConservation     ConflictType = "conservation"      // 件数不守恒
	ConflictOverCapacity     ConflictType = "over_capacity"     // 超出班次产能
	ConflictUnderstaffed     ConflictType = "understaffed"      // 分配人数小于所需
	ConflictChangeover       ConflictType = "changeover"        // 换线重复收取
	ConflictOverrideExceeded ConflictType = "override_exceeded" // 覆盖人数超过默认人数
)

// Severity 严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type        ConflictType   `json:"type"`
	Severity    string         `json:"severity"`
	LineID      uuid.UUID      `json:"line_id,omitempty"`
	WorkType    model.WorkType `json:"work_type"`
	ModelName   string         `json:"model_name,omitempty"`
	Message     string         `json:"message"`
	Assignments []uuid.UUID    `json:"assignments,omitempty"`
}

// CheckerConfig 检查器配置
type CheckerConfig struct {
	Tolerance float64 // 工时比较容差（小时）
}

// DefaultCheckerConfig 默认配置
func DefaultCheckerConfig() *CheckerConfig {
	return &CheckerConfig{Tolerance: 1e-6}
}

// PlanChecker 计划一致性检查器
type PlanChecker struct {
	config *CheckerConfig
}

// NewPlanChecker 创建检查器
func NewPlanChecker(config *CheckerConfig) *PlanChecker {
	if config == nil {
		config = DefaultCheckerConfig()
	}
	return &PlanChecker{config: config}
}

// Plan 待检查的计划
type Plan struct {
	Demand          []*model.DemandRecord
	Assignments     []*model.Assignment
	Unassigned      []*model.UnassignedDemand
	ShiftCapacities map[model.WorkType]float64
	Overrides       []*model.CapacityOverride
}

// CheckAll 执行全部检查
func (c *PlanChecker) CheckAll(p *Plan) []Conflict {
	var conflicts []Conflict
	conflicts = append(conflicts, c.checkConservation(p)...)
	conflicts = append(conflicts, c.checkCapacity(p)...)
	conflicts = append(conflicts, c.checkWorkers(p)...)
	conflicts = append(conflicts, c.checkOverrides(p)...)
	return conflicts
}

// HasErrors 是否存在错误级冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// checkConservation 每条需求的分配件数 + 未分配件数 == 需求数量
func (c *PlanChecker) checkConservation(p *Plan) []Conflict {
	var conflicts []Conflict

	accounted := make(map[uuid.UUID]int)
	for _, a := range p.Assignments {
		accounted[a.DemandID] += a.AssignedQuantity
	}
	for _, u := range p.Unassigned {
		accounted[u.DemandID] += u.UnassignedQuantity
	}

	for _, d := range p.Demand {
		if d == nil || d.Quantity <= 0 {
			continue
		}
		if got := accounted[d.ID]; got != d.Quantity {
			conflicts = append(conflicts, Conflict{
				Type:      ConflictConservation,
				Severity:  SeverityError,
				ModelName: d.ModelName,
				Message:   fmt.Sprintf("需求 %d 件，已计入 %d 件", d.Quantity, got),
			})
		}
	}
	return conflicts
}

type slot struct {
	lineID   uuid.UUID
	workType model.WorkType
}

// checkCapacity 每个产线班次的计划工时 + 换线工时不超过班次产能，且同一型号换线最多收取一次
func (c *PlanChecker) checkCapacity(p *Plan) []Conflict {
	var conflicts []Conflict

	used := make(map[slot]float64)
	ids := make(map[slot][]uuid.UUID)
	charged := make(map[slot]map[string]int)
	order := make([]slot, 0)

	for _, a := range p.Assignments {
		if a.Kind != model.AssignmentRegular {
			continue
		}
		k := slot{lineID: a.LineID, workType: a.WorkType}
		if _, ok := used[k]; !ok {
			order = append(order, k)
		}
		used[k] += a.TotalHours()
		ids[k] = append(ids[k], a.ID)
		if a.ChangeoverHours > 0 {
			if charged[k] == nil {
				charged[k] = make(map[string]int)
			}
			charged[k][a.ModelName]++
		}
	}

	for _, k := range order {
		limit, ok := p.ShiftCapacities[k.workType]
		if ok && used[k] > limit+c.config.Tolerance {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictOverCapacity,
				Severity:    SeverityError,
				LineID:      k.lineID,
				WorkType:    k.workType,
				Message:     fmt.Sprintf("已用 %.2f 小时，超过产能 %.2f 小时", used[k], limit),
				Assignments: ids[k],
			})
		}

		models := make([]string, 0, len(charged[k]))
		for m := range charged[k] {
			models = append(models, m)
		}
		sort.Strings(models)
		for _, m := range models {
			if n := charged[k][m]; n > 1 {
				conflicts = append(conflicts, Conflict{
					Type:      ConflictChangeover,
					Severity:  SeverityError,
					LineID:    k.lineID,
					WorkType:  k.workType,
					ModelName: m,
					Message:   fmt.Sprintf("换线时间收取了 %d 次", n),
				})
			}
		}
	}
	return conflicts
}

// checkWorkers 分配人数不小于所需人数
func (c *PlanChecker) checkWorkers(p *Plan) []Conflict {
	var conflicts []Conflict
	for _, a := range p.Assignments {
		if a.AllocatedWorkers < a.RequiredWorkers {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictUnderstaffed,
				Severity:    SeverityError,
				LineID:      a.LineID,
				WorkType:    a.WorkType,
				ModelName:   a.ModelName,
				Message:     fmt.Sprintf("分配 %d 人，少于所需 %d 人", a.AllocatedWorkers, a.RequiredWorkers),
				Assignments: []uuid.UUID{a.ID},
			})
		}
	}
	return conflicts
}

// checkOverrides 覆盖人数不超过产线默认人数
func (c *PlanChecker) checkOverrides(p *Plan) []Conflict {
	var conflicts []Conflict
	for _, o := range p.Overrides {
		if o.RequiredWorkers > o.DefaultCapacity {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictOverrideExceeded,
				Severity: SeverityWarning,
				LineID:   o.LineID,
				WorkType: o.WorkType,
				Message:  fmt.Sprintf("覆盖人数 %d 超过默认人数 %d", o.RequiredWorkers, o.DefaultCapacity),
			})
		}
	}
	return conflicts
}
