package capacity

import (
	"fmt"

	"github.com/laborplan/laborplan/pkg/model"
)

// BlockType 时间块类型
type BlockType string

const (
	BlockWork      BlockType = "work"
	BlockDeduction BlockType = "deduction"
)

// TimeBlock 班次时间轴上的一段
type TimeBlock struct {
	Type    BlockType       `json:"type"`
	Label   string          `json:"label"`
	Start   model.TimeOfDay `json:"start"`
	End     model.TimeOfDay `json:"end"`
	Minutes int             `json:"minutes"`
}

// Timeline 生成覆盖 [Start, End) 的连续时间块，仅用于展示
func Timeline(shift *model.ShiftDefinition, isFriday bool) []TimeBlock {
	window := shift.Window()
	gross := shift.GrossMinutes()
	blocks := make([]TimeBlock, 0)

	cursor := 0
	for _, d := range EligibleDeductions(shift, isFriday) {
		from := window.Offset(d.Start)
		to := from + d.Minutes()
		if to > gross {
			to = gross
		}
		if from < cursor {
			from = cursor
		}
		if from > cursor {
			blocks = append(blocks, newBlock(shift.Start, BlockWork, "Work", cursor, from))
		}
		if to > from {
			blocks = append(blocks, newBlock(shift.Start, BlockDeduction, d.Name, from, to))
			cursor = to
		}
	}
	if cursor < gross {
		blocks = append(blocks, newBlock(shift.Start, BlockWork, "Work", cursor, gross))
	}
	return blocks
}

func newBlock(origin model.TimeOfDay, typ BlockType, label string, from, to int) TimeBlock {
	return TimeBlock{
		Type:    typ,
		Label:   label,
		Start:   origin.Add(from),
		End:     origin.Add(to),
		Minutes: to - from,
	}
}

// ShiftTimeline 班次展示信息
type ShiftTimeline struct {
	WorkType       model.WorkType  `json:"work_type"`
	Title          string          `json:"title"`
	Start          model.TimeOfDay `json:"start"`
	End            model.TimeOfDay `json:"end"`
	GrossMinutes   int             `json:"gross_minutes"`
	RegularMinutes int             `json:"regular_minutes"`
	FridayMinutes  int             `json:"friday_minutes"`
	RegularBlocks  []TimeBlock     `json:"regular_blocks"`
	FridayBlocks   []TimeBlock     `json:"friday_blocks"`
}

// DescribeShift 汇总班次的普通日与周五时间轴
func DescribeShift(shift *model.ShiftDefinition) ShiftTimeline {
	return ShiftTimeline{
		WorkType:       shift.WorkType,
		Title:          fmt.Sprintf("%s (%s - %s)", shift.WorkType, shift.Start, shift.End),
		Start:          shift.Start,
		End:            shift.End,
		GrossMinutes:   shift.GrossMinutes(),
		RegularMinutes: NetMinutes(shift, false),
		FridayMinutes:  NetMinutes(shift, true),
		RegularBlocks:  Timeline(shift, false),
		FridayBlocks:   Timeline(shift, true),
	}
}
