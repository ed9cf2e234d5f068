package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestShiftDefinition_GrossMinutes(t *testing.T) {
	tests := []struct {
		name     string
		start    TimeOfDay
		end      TimeOfDay
		expected int
	}{
		{"常日班", NewTimeOfDay(8, 0), NewTimeOfDay(16, 53), 533},
		{"三班跨午夜", NewTimeOfDay(22, 0), NewTimeOfDay(6, 0), 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &ShiftDefinition{Start: tt.start, End: tt.end}
			if got := s.GrossMinutes(); got != tt.expected {
				t.Errorf("GrossMinutes() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestDeduction_IsFridayPrayer(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"Friday Prayer", true},
		{"friday prayer", true},
		{" FRIDAY PRAYER ", true},
		{"Lunch", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Deduction{Name: tt.name}
			if got := d.IsFridayPrayer(); got != tt.expected {
				t.Errorf("IsFridayPrayer() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestWorkType(t *testing.T) {
	if !NonShift.PrayerAffected() || !Shift1.PrayerAffected() {
		t.Error("常日班与一班应受周五礼拜影响")
	}
	if Shift2.PrayerAffected() || Shift3.PrayerAffected() {
		t.Error("二班与三班不受周五礼拜影响")
	}

	for _, in := range []string{"Shift2", "shift2", "2"} {
		wt, err := ParseWorkType(in)
		if err != nil || wt != Shift2 {
			t.Errorf("ParseWorkType(%q) = %v, %v", in, wt, err)
		}
	}
	if _, err := ParseWorkType("Shift9"); err == nil {
		t.Error("未知班次应返回错误")
	}
}

func TestWorkType_JSONMapKey(t *testing.T) {
	caps := map[WorkType]float64{Shift1: 152.5}
	b, err := json.Marshal(caps)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(b), `"Shift1":152.5`) {
		t.Errorf("Marshal() = %s", b)
	}
}

func TestAllocationMode_WorkTypes(t *testing.T) {
	if got := ModeNonShiftWithOvertime.WorkTypes(); len(got) != 1 || got[0] != NonShift {
		t.Errorf("NonShiftWithOvertime.WorkTypes() = %v", got)
	}
	if got := ModeMultiShift.WorkTypes(); len(got) != 3 || got[0] != Shift1 || got[2] != Shift3 {
		t.Errorf("MultiShift.WorkTypes() = %v", got)
	}
	if _, err := ParseAllocationMode("weekly"); err == nil {
		t.Error("未知模式应返回错误")
	}
	if m, _ := ParseAllocationMode("1"); m != ModeMultiShift {
		t.Errorf("ParseAllocationMode(1) = %v", m)
	}
}

func TestDemandRecord_Hours(t *testing.T) {
	d := &DemandRecord{
		ModelName: "M1",
		Quantity:  100,
		Reference: &ModelReference{ModelName: "M1", SUT: 36, HeadCount: 4},
	}

	if got := d.TotalWorkHours(); got != 1.0 {
		t.Errorf("TotalWorkHours() = %v, expected 1.0", got)
	}
	if got := d.HoursPerUnit(); got != 0.01 {
		t.Errorf("HoursPerUnit() = %v, expected 0.01", got)
	}
	if got := d.RequiredHeadCount(); got != 4 {
		t.Errorf("RequiredHeadCount() = %d, expected 4", got)
	}
}

func TestValidateDemand(t *testing.T) {
	ref := &ModelReference{ID: uuid.New(), ModelName: "M1", SUT: 36, HeadCount: 4}

	tests := []struct {
		name    string
		demand  *DemandRecord
		wantErr bool
	}{
		{"有效需求", &DemandRecord{ModelName: "M1", Quantity: 10, Reference: ref}, false},
		{"数量为0", &DemandRecord{ModelName: "M1", Quantity: 0, Reference: ref}, true},
		{"缺少型号参考", &DemandRecord{ModelName: "M1", Quantity: 10}, true},
		{"SUT为0", &DemandRecord{ModelName: "M1", Quantity: 10, Reference: &ModelReference{ModelName: "M1", HeadCount: 4}}, true},
		{"空需求", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDemand(tt.demand)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDemand() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCapacityOverride_WorkersSaved(t *testing.T) {
	o := &CapacityOverride{WorkType: Shift1, RequiredWorkers: 5, DefaultCapacity: 8}
	if o.WorkersSaved() != 3 {
		t.Errorf("WorkersSaved() = %d, expected 3", o.WorkersSaved())
	}
	if got := OptimizedNote(Shift1, 5, 3); got != "Shift1 optimized: 5 workers (saved 3)" {
		t.Errorf("OptimizedNote() = %s", got)
	}
}
