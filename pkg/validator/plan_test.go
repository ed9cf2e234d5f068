package validator

import (
	"testing"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/model"
)

func demand(qty int) *model.DemandRecord {
	return &model.DemandRecord{BaseModel: model.NewBaseModel(), ModelName: "M1", Quantity: qty}
}

func regular(d *model.DemandRecord, line uuid.UUID, wt model.WorkType, qty int, planned, changeover float64) *model.Assignment {
	return &model.Assignment{
		BaseModel:        model.NewBaseModel(),
		Kind:             model.AssignmentRegular,
		DemandID:         d.ID,
		ModelName:        d.ModelName,
		LineID:           line,
		AssignedQuantity: qty,
		PlannedHours:     planned,
		ChangeoverHours:  changeover,
		RequiredWorkers:  4,
		AllocatedWorkers: 5,
		WorkType:         wt,
	}
}

func TestPlanChecker_CheckAll(t *testing.T) {
	line := uuid.New()
	caps := map[model.WorkType]float64{model.Shift1: 10, model.Shift2: 10}

	tests := []struct {
		name     string
		build    func() *Plan
		expected []ConflictType
	}{
		{
			name: "一致的计划",
			build: func() *Plan {
				d := demand(100)
				return &Plan{
					Demand:          []*model.DemandRecord{d},
					Assignments:     []*model.Assignment{regular(d, line, model.Shift1, 60, 6, 0)},
					Unassigned:      []*model.UnassignedDemand{{DemandID: d.ID, UnassignedQuantity: 40}},
					ShiftCapacities: caps,
				}
			},
		},
		{
			name: "件数不守恒",
			build: func() *Plan {
				d := demand(100)
				return &Plan{
					Demand:          []*model.DemandRecord{d},
					Assignments:     []*model.Assignment{regular(d, line, model.Shift1, 60, 6, 0)},
					ShiftCapacities: caps,
				}
			},
			expected: []ConflictType{ConflictConservation},
		},
		{
			name: "超出产能",
			build: func() *Plan {
				d := demand(100)
				return &Plan{
					Demand: []*model.DemandRecord{d},
					Assignments: []*model.Assignment{
						regular(d, line, model.Shift1, 50, 6, 0),
						regular(d, line, model.Shift1, 50, 4, 0.25),
					},
					ShiftCapacities: caps,
				}
			},
			expected: []ConflictType{ConflictOverCapacity},
		},
		{
			name: "换线重复收取",
			build: func() *Plan {
				d := demand(100)
				return &Plan{
					Demand: []*model.DemandRecord{d},
					Assignments: []*model.Assignment{
						regular(d, line, model.Shift2, 50, 2, 0.25),
						regular(d, line, model.Shift2, 50, 2, 0.25),
					},
					ShiftCapacities: caps,
				}
			},
			expected: []ConflictType{ConflictChangeover},
		},
		{
			name: "人数不足与覆盖超限",
			build: func() *Plan {
				d := demand(10)
				a := regular(d, line, model.Shift1, 10, 1, 0)
				a.AllocatedWorkers = 3
				return &Plan{
					Demand:          []*model.DemandRecord{d},
					Assignments:     []*model.Assignment{a},
					ShiftCapacities: caps,
					Overrides: []*model.CapacityOverride{
						{LineID: line, WorkType: model.Shift1, RequiredWorkers: 9, DefaultCapacity: 8},
					},
				}
			},
			expected: []ConflictType{ConflictUnderstaffed, ConflictOverrideExceeded},
		},
	}

	checker := NewPlanChecker(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts := checker.CheckAll(tt.build())
			if len(conflicts) != len(tt.expected) {
				t.Fatalf("CheckAll() = %+v, expected %v", conflicts, tt.expected)
			}
			for i, typ := range tt.expected {
				if conflicts[i].Type != typ {
					t.Errorf("conflicts[%d] = %s, expected %s", i, conflicts[i].Type, typ)
				}
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Conflict{{Severity: SeverityWarning}}) {
		t.Error("仅有警告时不应返回 true")
	}
	if !HasErrors([]Conflict{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Error("存在错误时应返回 true")
	}
}
