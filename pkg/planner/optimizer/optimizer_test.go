package optimizer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/laborplan/laborplan/pkg/logger"
	"github.com/laborplan/laborplan/pkg/model"
)

var period = model.Period{Month: 9, Year: 2025}

func newOptimizer() *CapacityOptimizer {
	o := NewCapacityOptimizer(logger.NewPlannerLoggerWith(zerolog.Nop()))
	fixed := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	o.SetClock(func() time.Time { return fixed })
	return o
}

func assignment(line uuid.UUID, wt model.WorkType, required, allocated, def int) *model.Assignment {
	return &model.Assignment{
		BaseModel:        model.NewBaseModel(),
		Kind:             model.AssignmentRegular,
		Period:           period,
		LineID:           line,
		LineName:         "L-" + line.String()[:4],
		RequiredWorkers:  required,
		AllocatedWorkers: allocated,
		DefaultCapacity:  def,
		SurplusWorkers:   allocated - required,
		WorkType:         wt,
	}
}

func TestOptimize_ReducesToPeak(t *testing.T) {
	line := uuid.New()
	assignments := []*model.Assignment{
		assignment(line, model.Shift1, 3, 8, 8),
		assignment(line, model.Shift1, 5, 8, 8),
		assignment(line, model.Shift2, 8, 8, 8),
	}

	out := newOptimizer().Optimize(period, assignments, nil)

	if len(out.Overrides) != 1 {
		t.Fatalf("Overrides = %d, expected 1", len(out.Overrides))
	}
	ov := out.Overrides[0]
	if ov.WorkType != model.Shift1 || ov.RequiredWorkers != 5 || ov.DefaultCapacity != 8 {
		t.Errorf("override = %+v", ov)
	}
	if ov.Notes != "Shift1 optimized: 5 workers (saved 3)" {
		t.Errorf("Notes = %q", ov.Notes)
	}
	if out.WorkersSaved != 3 {
		t.Errorf("WorkersSaved = %d, expected 3", out.WorkersSaved)
	}

	expected := []struct{ allocated, surplus int }{{5, 2}, {5, 0}, {8, 0}}
	for i, e := range expected {
		a := out.Assignments[i]
		if a.AllocatedWorkers != e.allocated || a.SurplusWorkers != e.surplus {
			t.Errorf("assignment[%d] = %d/%d, expected %d/%d",
				i, a.AllocatedWorkers, a.SurplusWorkers, e.allocated, e.surplus)
		}
	}
	if len(out.Groups) != 2 || out.Groups[1].Optimized {
		t.Errorf("Groups = %+v", out.Groups)
	}
}

func TestOptimize_Idempotent(t *testing.T) {
	line := uuid.New()
	assignments := []*model.Assignment{
		assignment(line, model.Shift1, 4, 8, 8),
		assignment(line, model.Shift1, 6, 8, 8),
	}

	o := newOptimizer()
	first := o.Optimize(period, assignments, nil)
	second := o.Optimize(period, first.Assignments, first.Overrides)

	if len(second.Overrides) != 0 || second.WorkersSaved != 0 {
		t.Errorf("第二次优化不应产生变化: %+v", second.Overrides)
	}
	for _, a := range second.Assignments {
		if a.AllocatedWorkers != 6 {
			t.Errorf("AllocatedWorkers = %d, expected 6", a.AllocatedWorkers)
		}
	}
	if first.Overrides[0].RequiredWorkers != 6 {
		t.Errorf("已有覆盖记录不应变化: %d", first.Overrides[0].RequiredWorkers)
	}
}

func TestOptimize_UpdatesExistingOverride(t *testing.T) {
	line := uuid.New()
	created := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	existing := &model.CapacityOverride{
		BaseModel:       model.NewBaseModelAt(created),
		LineID:          line,
		Period:          period,
		WorkType:        model.Shift3,
		RequiredWorkers: 7,
		DefaultCapacity: 8,
	}

	out := newOptimizer().Optimize(period, []*model.Assignment{assignment(line, model.Shift3, 4, 7, 8)},
		[]*model.CapacityOverride{existing})

	if len(out.Overrides) != 1 || out.Overrides[0] != existing {
		t.Fatalf("应原地更新已有覆盖记录")
	}
	if existing.RequiredWorkers != 4 {
		t.Errorf("RequiredWorkers = %d, expected 4", existing.RequiredWorkers)
	}
	if !existing.UpdatedAt.After(created) || !existing.CreatedAt.Equal(created) {
		t.Errorf("只应更新修改时间: created=%v updated=%v", existing.CreatedAt, existing.UpdatedAt)
	}
	if existing.Notes != "Shift3 optimized: 4 workers (saved 3)" {
		t.Errorf("Notes = %q", existing.Notes)
	}
}

func TestOptimize_OvertimePassThrough(t *testing.T) {
	line := uuid.New()
	ot := assignment(line, model.NonShift, 3, 8, 8)
	ot.Kind = model.AssignmentOvertime

	out := newOptimizer().Optimize(period, []*model.Assignment{ot}, nil)

	if len(out.Overrides) != 0 || ot.AllocatedWorkers != 8 {
		t.Errorf("加班分配不参与优化")
	}
}

func TestOptimize_OverrideNeverExceedsDefault(t *testing.T) {
	lines := []uuid.UUID{uuid.New(), uuid.New()}
	assignments := []*model.Assignment{
		assignment(lines[0], model.Shift1, 2, 6, 6),
		assignment(lines[1], model.Shift2, 9, 10, 10),
		assignment(lines[1], model.Shift2, 1, 10, 10),
	}

	out := newOptimizer().Optimize(period, assignments, nil)
	for _, ov := range out.Overrides {
		if ov.RequiredWorkers > ov.DefaultCapacity {
			t.Errorf("覆盖人数 %d 超过默认人数 %d", ov.RequiredWorkers, ov.DefaultCapacity)
		}
	}
	for _, a := range out.Assignments {
		if a.AllocatedWorkers < a.RequiredWorkers || a.SurplusWorkers < 0 {
			t.Errorf("优化后人数不足: %+v", a)
		}
	}
}
