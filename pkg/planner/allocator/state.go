package allocator

import (
	"sort"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/model"
)

type lineShiftKey struct {
	lineID   uuid.UUID
	workType model.WorkType
}

// allocationState 单次分配运行内的累加器
type allocationState struct {
	used      map[lineShiftKey]float64
	models    map[lineShiftKey]map[string]bool
	overrides map[lineShiftKey]int
}

type candidate struct {
	line     *model.Line
	capacity int
	used     float64
}

func newAllocationState(period model.Period, overrides []*model.CapacityOverride) *allocationState {
	st := &allocationState{
		used:      make(map[lineShiftKey]float64),
		models:    make(map[lineShiftKey]map[string]bool),
		overrides: make(map[lineShiftKey]int),
	}
	for _, o := range overrides {
		if o == nil || o.Period != period {
			continue
		}
		st.overrides[lineShiftKey{lineID: o.LineID, workType: o.WorkType}] = o.RequiredWorkers
	}
	return st
}

// effectiveCapacity 有覆盖记录时取覆盖人数，否则取产线默认人数
func (s *allocationState) effectiveCapacity(line *model.Line, wt model.WorkType) int {
	if n, ok := s.overrides[lineShiftKey{lineID: line.ID, workType: wt}]; ok {
		return n
	}
	return line.DefaultCapacity
}

// candidates 返回人数足够的产线，按有效人数升序、已用工时升序排列
func (s *allocationState) candidates(lines []*model.Line, wt model.WorkType, headCount int,
	capacityHours float64, regularOnly bool) []candidate {

	out := make([]candidate, 0, len(lines))
	for _, l := range lines {
		effCap := s.effectiveCapacity(l, wt)
		if effCap < headCount {
			continue
		}
		used := s.used[lineShiftKey{lineID: l.ID, workType: wt}]
		if regularOnly && used >= capacityHours {
			continue
		}
		out = append(out, candidate{line: l, capacity: effCap, used: used})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].capacity != out[j].capacity {
			return out[i].capacity < out[j].capacity
		}
		return out[i].used < out[j].used
	})
	return out
}

// changeoverFor 产线班次已有其他型号且本型号尚未放置时收取换线时间
func (s *allocationState) changeoverFor(key lineShiftKey, modelName string, hours float64) float64 {
	seen := s.models[key]
	if len(seen) == 0 || seen[modelName] {
		return 0
	}
	return hours
}

func (s *allocationState) record(key lineShiftKey, modelName string, hours float64) {
	s.used[key] += hours
	if s.models[key] == nil {
		s.models[key] = make(map[string]bool)
	}
	s.models[key][modelName] = true
}
