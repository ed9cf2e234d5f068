package ingest

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/laborplan/laborplan/pkg/errors"
	"github.com/laborplan/laborplan/pkg/model"
)

func workbook(t *testing.T, sheet string, cells map[string]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for axis, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, axis, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadModelReferences(t *testing.T) {
	buf := workbook(t, "Sheet1", map[string]interface{}{
		"A1": "Model", "B1": "SUT", "C1": "HeadCount",
		"A2": "M-100", "B2": 720, "C2": 5,
		"A3": "M-200", "B3": "1,080.5", "C3": 6,
		"A4": "M-300", "B4": "n/a", "C4": 4,
		"A5": "M-400", "B5": 300, "C5": 0,
		"A7": "M-100", "B7": 360, "C7": 3,
	})

	refs, report, err := ReadModelReferences(buf)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, "M-100", refs[0].ModelName)
	assert.Equal(t, 360.0, refs[0].SUT)
	assert.Equal(t, 3, refs[0].HeadCount)
	assert.Equal(t, 1080.5, refs[1].SUT)

	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Skipped, 3)
	assert.Equal(t, 4, report.Skipped[0].Row)
	assert.Equal(t, "M-400", report.Skipped[1].Model)
	assert.Equal(t, 7, report.Skipped[2].Row)
}

func TestReadModelReferencesEmpty(t *testing.T) {
	buf := workbook(t, "Sheet1", map[string]interface{}{
		"A1": "Model", "B1": "SUT", "C1": "HeadCount",
	})

	_, _, err := ReadModelReferences(buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeImportFailed))
}

func TestReadModelReferencesNotWorkbook(t *testing.T) {
	_, _, err := ReadModelReferences(bytes.NewBufferString("model,sut,headcount"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeImportFailed))
}

func psiRefs() map[string]*model.ModelReference {
	return map[string]*model.ModelReference{
		"M-100": {ModelName: "M-100", SUT: 720, HeadCount: 5},
		"M-200": {ModelName: "M-200", SUT: 360, HeadCount: 3},
		"M-300": {ModelName: "M-300", SUT: 540, HeadCount: 4},
	}
}

func TestReadDemand(t *testing.T) {
	buf := workbook(t, "PSI", map[string]interface{}{
		"H6": "Aug-25", "I6": "SEP-25", "J6": "Oct-25",
		"F8": "M-100", "G8": "P", "H8": 10, "I8": "1,200",
		"F9": "M-100", "G9": "S", "I9": 999,
		"F10": "M-200", "G10": "P", "I10": 0,
		"F11": "M-999", "G11": "P", "I11": 50,
		"F12": "M-300", "G12": "P", "I12": "abc",
		"F13": "M-200", "G13": "P", "I13": 40,
		"F14": "M-300", "G14": "P",
		"F15": "M-100", "G15": "P", "I15": 300,
	})

	period := model.Period{Month: 9, Year: 2025}
	records, report, err := ReadDemand(buf, DemandOptions{Period: period}, psiRefs())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "M-100", records[0].ModelName)
	assert.Equal(t, 300, records[0].Quantity, "同一型号以最后一行为准")
	assert.Equal(t, 0, records[0].Sequence)
	assert.Equal(t, period, records[0].Period)
	assert.Equal(t, 5, records[0].RequiredHeadCount())

	assert.Equal(t, "M-200", records[1].ModelName)
	assert.Equal(t, 40, records[1].Quantity)
	assert.Equal(t, 1, records[1].Sequence)

	assert.Equal(t, "PSI", report.Sheet)
	assert.Equal(t, "I", report.Column)
	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Skipped, 3)
	assert.Equal(t, "M-999", report.Skipped[0].Model)
	assert.Equal(t, 12, report.Skipped[1].Row)
	assert.Equal(t, 8, report.Skipped[2].Row)
	assert.Equal(t, "M-100", report.Skipped[2].Model)
}

func TestReadDemandDateHeader(t *testing.T) {
	buf := workbook(t, "PSI", map[string]interface{}{
		"H6": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		"I6": time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		"F8": "M-100", "G8": "P", "H8": 300, "I8": 700,
	})

	records, report, err := ReadDemand(buf, DemandOptions{Period: model.Period{Month: 2, Year: 2026}}, psiRefs())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 700, records[0].Quantity)
	assert.Equal(t, "I", report.Column)
}

func TestReadDemandErrors(t *testing.T) {
	period := model.Period{Month: 9, Year: 2025}

	t.Run("工作表不存在", func(t *testing.T) {
		buf := workbook(t, "Sheet1", map[string]interface{}{"A1": "x"})
		_, _, err := ReadDemand(buf, DemandOptions{Period: period}, psiRefs())
		assert.True(t, errors.Is(err, errors.CodeImportFailed))
	})

	t.Run("未找到月份列", func(t *testing.T) {
		buf := workbook(t, "PSI", map[string]interface{}{"H6": "Aug-25", "F8": "M-100", "G8": "P", "H8": 1})
		_, _, err := ReadDemand(buf, DemandOptions{Period: period}, psiRefs())
		assert.True(t, errors.Is(err, errors.CodeImportFailed))
	})

	t.Run("期间无效", func(t *testing.T) {
		buf := workbook(t, "PSI", map[string]interface{}{"H6": "Aug-25"})
		_, _, err := ReadDemand(buf, DemandOptions{Period: model.Period{Month: 13, Year: 2025}}, psiRefs())
		assert.True(t, errors.Is(err, errors.CodeInvalidInput))
	})

	t.Run("自定义工作表名", func(t *testing.T) {
		buf := workbook(t, "Plan", map[string]interface{}{"H6": "Sep-25", "F8": "M-200", "G8": "P", "H8": 15})
		records, _, err := ReadDemand(buf, DemandOptions{Sheet: "Plan", Period: period}, psiRefs())
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 15, records[0].Quantity)
	})
}

func TestParseHeaderMonth(t *testing.T) {
	tests := []struct {
		name  string
		value string
		year  int
		month time.Month
		ok    bool
	}{
		{"缩写月份", "Sep-25", 2025, time.September, true},
		{"大写月份", "DEC-24", 2024, time.December, true},
		{"全称月份", "january-26", 2026, time.January, true},
		{"ISO 日期", "2025-11-01", 2025, time.November, true},
		{"Excel 序列号", "45901", 2025, time.September, true},
		{"空值", "", 0, 0, false},
		{"非日期", "Total", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseHeaderMonth(tt.value)
			if ok != tt.ok {
				t.Fatalf("parseHeaderMonth(%q) ok = %v, want %v", tt.value, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Year() != tt.year || got.Month() != tt.month {
				t.Errorf("parseHeaderMonth(%q) = %v, want %d-%02d", tt.value, got, tt.year, tt.month)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1,200", 1200, false},
		{" 42 ", 42, false},
		{"1200.0", 1200, false},
		{"12.5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseInt(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseInt(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
