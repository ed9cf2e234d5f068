// Package ingest 读取型号参考与月度需求工作簿
package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/laborplan/laborplan/pkg/errors"
	"github.com/laborplan/laborplan/pkg/logger"
	"github.com/laborplan/laborplan/pkg/model"
)

// 需求工作簿布局（行列均从 1 开始）
const (
	DefaultDemandSheet = "PSI"
	demandHeaderRow    = 6
	demandDataStartRow = 8
	demandModelColumn  = 6 // F
	demandTypeColumn   = 7 // G
	demandQuantityType = "P"
)

// 型号参考工作簿布局：首个工作表，第 1 行为表头
const referenceDataStartRow = 2

// SkippedRow 被跳过的行
type SkippedRow struct {
	Row    int    `json:"row"`
	Model  string `json:"model,omitempty"`
	Reason string `json:"reason"`
}

// Report 导入报告
type Report struct {
	Sheet    string       `json:"sheet"`
	Column   string       `json:"column,omitempty"` // 需求导入时匹配到的月份列
	Imported int          `json:"imported"`
	Skipped  []SkippedRow `json:"skipped,omitempty"`
}

func (r *Report) skip(row int, modelName, reason string) {
	r.Skipped = append(r.Skipped, SkippedRow{Row: row, Model: modelName, Reason: reason})
}

// ReadModelReferences 读取型号参考工作簿：A 列型号，B 列 SUT（秒），C 列人数
func ReadModelReferences(r io.Reader) ([]*model.ModelReference, *Report, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeImportFailed, "无法打开型号参考工作簿")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeImportFailed, "读取型号参考工作表失败")
	}

	report := &Report{Sheet: sheet}
	seen := make(map[string]int)
	refs := make([]*model.ModelReference, 0, len(rows))

	for i := referenceDataStartRow - 1; i < len(rows); i++ {
		rowNum := i + 1
		name := cell(rows[i], 1)
		if name == "" {
			continue
		}

		sut, err := parseNumber(cell(rows[i], 2))
		if err != nil {
			report.skip(rowNum, name, fmt.Sprintf("SUT 无效: %q", cell(rows[i], 2)))
			continue
		}
		headCount, err := parseInt(cell(rows[i], 3))
		if err != nil {
			report.skip(rowNum, name, fmt.Sprintf("人数无效: %q", cell(rows[i], 3)))
			continue
		}

		ref := &model.ModelReference{ModelName: name, SUT: sut, HeadCount: headCount}
		if err := model.ValidateStruct(ref); err != nil {
			report.skip(rowNum, name, err.Error())
			continue
		}

		// 同名型号以最后一行为准
		if idx, dup := seen[name]; dup {
			refs[idx] = ref
			report.skip(rowNum, name, "型号重复，覆盖前一行")
			continue
		}
		seen[name] = len(refs)
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		return nil, report, errors.New(errors.CodeImportFailed, "工作簿中没有有效的型号参考数据")
	}
	report.Imported = len(refs)
	logger.Info().
		Str("sheet", sheet).
		Int("imported", report.Imported).
		Int("skipped", len(report.Skipped)).
		Msg("型号参考已读取")
	return refs, report, nil
}

// DemandOptions 需求导入选项
type DemandOptions struct {
	Sheet  string
	Period model.Period
}

// ReadDemand 读取 PSI 需求工作簿中指定月份的 P 行数量。
// 数量为 0 的行与未登记型号的行被跳过并记入报告，同一型号出现多行时保留最后一行。
func ReadDemand(r io.Reader, opts DemandOptions, refs map[string]*model.ModelReference) ([]*model.DemandRecord, *Report, error) {
	if err := opts.Period.Validate(); err != nil {
		return nil, nil, errors.InvalidInput("period", err.Error())
	}
	sheet := opts.Sheet
	if sheet == "" {
		sheet = DefaultDemandSheet
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeImportFailed, "无法打开需求工作簿")
	}
	defer f.Close()

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeImportFailed, fmt.Sprintf("工作表 %s 不存在", sheet))
	}

	report := &Report{Sheet: sheet}
	records := make([]*model.DemandRecord, 0)
	type seenRow struct{ idx, row int }
	seen := make(map[string]seenRow)
	if len(rows) < demandHeaderRow {
		return records, report, nil
	}

	col := findPeriodColumn(rows[demandHeaderRow-1], opts.Period)
	if col == 0 {
		return nil, report, errors.New(errors.CodeImportFailed,
			fmt.Sprintf("工作表 %s 中未找到 %s 列", sheet, headerLabel(opts.Period))).
			WithField("period", opts.Period.String())
	}
	report.Column, _ = excelize.ColumnNumberToName(col)

	for i := demandDataStartRow - 1; i < len(rows); i++ {
		rowNum := i + 1
		name := cell(rows[i], demandModelColumn)
		if name == "" || cell(rows[i], demandTypeColumn) != demandQuantityType {
			continue
		}

		ref, ok := refs[name]
		if !ok {
			report.skip(rowNum, name, "型号参考中不存在")
			continue
		}

		raw := cell(rows[i], col)
		if raw == "" {
			continue
		}
		qty, err := parseInt(raw)
		if err != nil {
			report.skip(rowNum, name, fmt.Sprintf("数量无效: %q", raw))
			continue
		}
		if qty == 0 {
			continue
		}

		d := &model.DemandRecord{
			ModelName: name,
			Quantity:  qty,
			Period:    opts.Period,
			Sequence:  len(records),
			Reference: ref,
		}
		if err := model.ValidateDemand(d); err != nil {
			report.skip(rowNum, name, err.Error())
			continue
		}

		// 每个型号每期间一条需求，同名以最后一行为准
		if prev, dup := seen[name]; dup {
			d.Sequence = prev.idx
			records[prev.idx] = d
			report.skip(prev.row, name, fmt.Sprintf("型号重复，被第 %d 行覆盖", rowNum))
			seen[name] = seenRow{idx: prev.idx, row: rowNum}
			continue
		}
		seen[name] = seenRow{idx: len(records), row: rowNum}
		records = append(records, d)
	}

	report.Imported = len(records)
	logger.Info().
		Str("sheet", sheet).
		Str("period", opts.Period.String()).
		Str("column", report.Column).
		Int("imported", report.Imported).
		Int("skipped", len(report.Skipped)).
		Msg("需求已读取")
	return records, report, nil
}

// findPeriodColumn 返回表头中第一个匹配期间的列号，未找到返回 0
func findPeriodColumn(header []string, p model.Period) int {
	for i, v := range header {
		if t, ok := parseHeaderMonth(v); ok && t.Year() == p.Year && int(t.Month()) == p.Month {
			return i + 1
		}
	}
	return 0
}

// headerLayouts 表头可能出现的日期文本格式
var headerLayouts = []string{"Jan-06", "January-06", "Jan-2006", "2006-01-02", "01-02-06", "2006-01"}

// parseHeaderMonth 解析 Mon-YY 文本或 Excel 日期序列号
func parseHeaderMonth(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		return t, err == nil
	}
	for _, layout := range headerLayouts {
		if t, err := time.Parse(layout, normalizeMonth(v)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeMonth 把 "SEP-25"、"sep-25" 统一为 "Sep-25"
func normalizeMonth(v string) string {
	if len(v) < 3 || v[0] < 'A' || (v[0] > 'Z' && v[0] < 'a') || v[0] > 'z' {
		return v
	}
	end := strings.IndexAny(v, "- ")
	if end < 0 {
		end = len(v)
	}
	word := v[:end]
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:]) + v[end:]
}

// headerLabel 期间对应的 Mon-YY 表头
func headerLabel(p model.Period) string {
	return p.FirstDay().Format("Jan-06")
}

func cell(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return strings.TrimSpace(row[col-1])
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}

// parseInt 解析整数，允许千分位逗号与 "1200.0" 这类整值小数
func parseInt(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("不是整数: %s", s)
	}
	return int(f), nil
}
