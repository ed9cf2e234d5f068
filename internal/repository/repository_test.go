package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laborplan/laborplan/pkg/model"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, func() *PlanRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, func() *PlanRepository { return NewPlanRepository(db) }
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "($1, $2, $3)", placeholders(1, 3))
	assert.Equal(t, "($4, $5)", placeholders(4, 2))
}

func TestInsertBatchSplitsLargeInput(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := make([][]interface{}, maxBatchRows+5)
	for i := range rows {
		rows[i] = []interface{}{i}
	}
	mock.ExpectExec("INSERT INTO t").WillReturnResult(sqlmock.NewResult(0, maxBatchRows))
	mock.ExpectExec("INSERT INTO t").WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, insertBatch(context.Background(), db, "t", []string{"v"}, rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, insertBatch(context.Background(), db, "t", []string{"v"}, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryReplacePeriodResults(t *testing.T) {
	mock, repo := newMock(t)
	period := model.Period{Month: 9, Year: 2025}
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	assignments := []*model.Assignment{{
		BaseModel:        model.NewBaseModelAt(now),
		Kind:             model.AssignmentRegular,
		DemandID:         uuid.New(),
		ModelName:        "M-100",
		LineID:           uuid.New(),
		LineName:         "L-1",
		AssignedQuantity: 100,
		PlannedHours:     20,
		RequiredWorkers:  5,
		AllocatedWorkers: 5,
		DefaultCapacity:  8,
		SurplusWorkers:   3,
		WorkType:         model.Shift1,
	}}
	overrides := []*model.CapacityOverride{{
		BaseModel:       model.NewBaseModelAt(now),
		LineID:          assignments[0].LineID,
		LineName:        "L-1",
		WorkType:        model.Shift1,
		RequiredWorkers: 5,
		DefaultCapacity: 8,
	}}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM line_assignments").WithArgs(9, 2025).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM capacity_overrides").WithArgs(9, 2025).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO line_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO capacity_overrides").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo().ReplacePeriodResults(context.Background(), period, assignments, overrides)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryReplacePeriodResultsRollback(t *testing.T) {
	mock, repo := newMock(t)
	period := model.Period{Month: 9, Year: 2025}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM line_assignments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM capacity_overrides").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO line_assignments").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	assignments := []*model.Assignment{{Kind: model.AssignmentRegular, WorkType: model.Shift2}}
	err := repo().ReplacePeriodResults(context.Background(), period, assignments, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotEqual(t, uuid.Nil, assignments[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryListOverrides(t *testing.T) {
	mock, repo := newMock(t)
	period := model.Period{Month: 9, Year: 2025}
	now := time.Now()
	id, lineID := uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{"id", "line_id", "line_name", "work_type", "required_workers",
		"default_capacity", "notes", "created_at", "updated_at"}).
		AddRow(id.String(), lineID.String(), "L-1", 2, 5, 8, "Shift2 optimized: 5 workers (saved 3)", now, now)
	mock.ExpectQuery("FROM capacity_overrides").WithArgs(9, 2025).WillReturnRows(rows)

	out, err := repo().ListOverrides(context.Background(), period)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, id, out[0].ID)
	assert.Equal(t, lineID, out[0].LineID)
	assert.Equal(t, model.Shift2, out[0].WorkType)
	assert.Equal(t, 3, out[0].WorkersSaved())
	assert.Equal(t, period, out[0].Period)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryListAssignments(t *testing.T) {
	mock, repo := newMock(t)
	period := model.Period{Month: 1, Year: 2026}
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "kind", "demand_id", "model_name", "line_id", "line_name",
		"assigned_quantity", "planned_hours", "changeover_hours", "required_workers", "allocated_workers",
		"default_capacity", "surplus_workers", "work_type", "created_at", "updated_at"}).
		AddRow(uuid.NewString(), "regular", uuid.NewString(), "M-1", uuid.NewString(), "L-1",
			40, 10.5, 0.25, 4, 4, 6, 2, 3, now, now)
	mock.ExpectQuery("FROM line_assignments").WithArgs(1, 2026).WillReturnRows(rows)

	out, err := repo().ListAssignments(context.Background(), period)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.AssignmentRegular, out[0].Kind)
	assert.Equal(t, model.Shift3, out[0].WorkType)
	assert.InDelta(t, 10.75, out[0].TotalHours(), 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDemandRepositoryListByPeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	period := model.Period{Month: 9, Year: 2025}
	now := time.Now()
	refID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "model_name", "quantity", "sequence", "created_at", "updated_at",
		"ref_id", "sut", "head_count"}).
		AddRow(uuid.NewString(), "M-100", 100, 0, now, now, refID.String(), 720.0, 5).
		AddRow(uuid.NewString(), "M-UNKNOWN", 50, 1, now, now, nil, nil, nil)
	mock.ExpectQuery("FROM demand_records").WithArgs(9, 2025).WillReturnRows(rows)

	out, err := NewDemandRepository(db).ListByPeriod(context.Background(), period)
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.NotNil(t, out[0].Reference)
	assert.Equal(t, refID, out[0].Reference.ID)
	assert.Equal(t, 5, out[0].RequiredHeadCount())
	assert.InDelta(t, 20.0, out[0].TotalWorkHours(), 1e-9)

	assert.Nil(t, out[1].Reference)
	assert.Equal(t, period, out[1].Period)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDemandRepositoryReplacePeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	period := model.Period{Month: 9, Year: 2025}
	records := []*model.DemandRecord{
		{ModelName: "M-1", Quantity: 10},
		{ModelName: "M-2", Quantity: 20},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM demand_records").WithArgs(9, 2025).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO demand_records").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, NewDemandRepository(db).ReplacePeriod(context.Background(), period, records))
	assert.Equal(t, 1, records[1].Sequence)
	assert.NotEqual(t, uuid.Nil, records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModelReferenceRepositoryByName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "model_name", "sut", "head_count"}).
		AddRow(uuid.NewString(), "M-1", 360.0, 4).
		AddRow(uuid.NewString(), "M-2", 720.0, 6)
	mock.ExpectQuery("FROM model_references").WillReturnRows(rows)

	byName, err := NewModelReferenceRepository(db).ByName(context.Background())
	require.NoError(t, err)
	require.Contains(t, byName, "M-2")
	assert.Equal(t, 6, byName["M-2"].HeadCount)
	assert.InDelta(t, 0.1, byName["M-1"].HoursPerUnit(), 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	shiftID := uuid.New()

	mock.ExpectQuery("FROM shift_definitions").WillReturnRows(
		sqlmock.NewRows([]string{"id", "work_type", "start_time", "end_time", "is_active", "created_at", "updated_at"}).
			AddRow(shiftID.String(), 1, "06:00", "14:00", true, now, now))
	mock.ExpectQuery("FROM shift_deductions").WillReturnRows(
		sqlmock.NewRows([]string{"id", "shift_id", "name", "start_time", "end_time", "work_type", "is_active"}).
			AddRow(uuid.NewString(), shiftID.String(), "Break", "09:00", "09:15", 1, true).
			AddRow(uuid.NewString(), shiftID.String(), "Friday Prayer", "11:30:00", "12:30:00", 1, true).
			AddRow(uuid.NewString(), uuid.NewString(), "Orphan", "10:00", "10:10", 1, true))

	shifts, err := NewShiftRepository(db).ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, shifts, 1)

	s := shifts[0]
	assert.Equal(t, model.Shift1, s.WorkType)
	assert.Equal(t, 480, s.GrossMinutes())
	require.Len(t, s.Deductions, 2)
	assert.True(t, s.Deductions[1].IsFridayPrayer())
	assert.Equal(t, 60, s.Deductions[1].Minutes())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryInvalidTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("FROM shift_definitions").WillReturnRows(
		sqlmock.NewRows([]string{"id", "work_type", "start_time", "end_time", "is_active", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), 1, "6 am", "14:00", true, now, now))

	_, err = NewShiftRepository(db).ListActive(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "开始时间"))
}

func TestLineRepositoryListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM production_lines").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "default_capacity", "is_active"}).
			AddRow(uuid.NewString(), "L-8", 8, true).
			AddRow(uuid.NewString(), "L-5", 5, true))

	lines, err := NewLineRepository(db).ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "L-8", lines[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
