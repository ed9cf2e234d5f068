package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/model"
)

var assignmentColumns = []string{
	"id", "kind", "month", "year", "demand_id", "model_name", "line_id", "line_name",
	"assigned_quantity", "planned_hours", "changeover_hours", "required_workers",
	"allocated_workers", "default_capacity", "surplus_workers", "work_type", "created_at", "updated_at",
}

var overrideColumns = []string{
	"id", "line_id", "line_name", "month", "year", "work_type", "required_workers",
	"default_capacity", "notes", "created_at", "updated_at",
}

// PlanRepository 分配结果与人数覆盖仓储
type PlanRepository struct {
	conn Conn
}

// NewPlanRepository 创建计划结果仓储
func NewPlanRepository(conn Conn) *PlanRepository {
	return &PlanRepository{conn: conn}
}

// ListAssignments 查询期间内全部分配（含加班）
func (r *PlanRepository) ListAssignments(ctx context.Context, period model.Period) ([]*model.Assignment, error) {
	query := `
		SELECT id, kind, demand_id, model_name, line_id, line_name, assigned_quantity,
			planned_hours, changeover_hours, required_workers, allocated_workers,
			default_capacity, surplus_workers, work_type, created_at, updated_at
		FROM line_assignments
		WHERE month = $1 AND year = $2
		ORDER BY created_at, id
	`

	rows, err := r.conn.QueryContext(ctx, query, period.Month, period.Year)
	if err != nil {
		return nil, fmt.Errorf("查询分配失败: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Assignment, 0)
	for rows.Next() {
		var (
			a        model.Assignment
			kind     string
			workType int
		)
		if err := rows.Scan(&a.ID, &kind, &a.DemandID, &a.ModelName, &a.LineID, &a.LineName,
			&a.AssignedQuantity, &a.PlannedHours, &a.ChangeoverHours, &a.RequiredWorkers,
			&a.AllocatedWorkers, &a.DefaultCapacity, &a.SurplusWorkers, &workType,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("读取分配失败: %w", err)
		}
		a.Kind = model.AssignmentKind(kind)
		a.WorkType = model.WorkType(workType)
		a.Period = period
		out = append(out, &a)
	}
	return out, rows.Err()
}

// ListOverrides 查询期间内的人数覆盖
func (r *PlanRepository) ListOverrides(ctx context.Context, period model.Period) ([]*model.CapacityOverride, error) {
	query := `
		SELECT id, line_id, line_name, work_type, required_workers, default_capacity,
			notes, created_at, updated_at
		FROM capacity_overrides
		WHERE month = $1 AND year = $2
		ORDER BY line_name, work_type
	`

	rows, err := r.conn.QueryContext(ctx, query, period.Month, period.Year)
	if err != nil {
		return nil, fmt.Errorf("查询人数覆盖失败: %w", err)
	}
	defer rows.Close()

	out := make([]*model.CapacityOverride, 0)
	for rows.Next() {
		var (
			o        model.CapacityOverride
			workType int
		)
		if err := rows.Scan(&o.ID, &o.LineID, &o.LineName, &workType, &o.RequiredWorkers,
			&o.DefaultCapacity, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("读取人数覆盖失败: %w", err)
		}
		o.WorkType = model.WorkType(workType)
		o.Period = period
		out = append(out, &o)
	}
	return out, rows.Err()
}

// ReplacePeriodResults 在同一事务中清除期间旧结果并写入新结果
func (r *PlanRepository) ReplacePeriodResults(ctx context.Context, period model.Period,
	assignments []*model.Assignment, overrides []*model.CapacityOverride) error {

	return inTx(ctx, r.conn, func(tx *sql.Tx) error {
		if err := clearPeriod(ctx, tx, period); err != nil {
			return err
		}
		if err := insertBatch(ctx, tx, "line_assignments", assignmentColumns, assignmentRows(period, assignments)); err != nil {
			return err
		}
		return insertBatch(ctx, tx, "capacity_overrides", overrideColumns, overrideRows(period, overrides))
	})
}

func clearPeriod(ctx context.Context, db DB, period model.Period) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM line_assignments WHERE month = $1 AND year = $2`, period.Month, period.Year); err != nil {
		return fmt.Errorf("清除期间分配失败: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`DELETE FROM capacity_overrides WHERE month = $1 AND year = $2`, period.Month, period.Year); err != nil {
		return fmt.Errorf("清除期间人数覆盖失败: %w", err)
	}
	return nil
}

func assignmentRows(period model.Period, assignments []*model.Assignment) [][]interface{} {
	rows := make([][]interface{}, 0, len(assignments))
	for _, a := range assignments {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		rows = append(rows, []interface{}{
			a.ID, string(a.Kind), period.Month, period.Year, a.DemandID, a.ModelName, a.LineID, a.LineName,
			a.AssignedQuantity, a.PlannedHours, a.ChangeoverHours, a.RequiredWorkers,
			a.AllocatedWorkers, a.DefaultCapacity, a.SurplusWorkers, int(a.WorkType), a.CreatedAt, a.UpdatedAt,
		})
	}
	return rows
}

func overrideRows(period model.Period, overrides []*model.CapacityOverride) [][]interface{} {
	rows := make([][]interface{}, 0, len(overrides))
	for _, o := range overrides {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		rows = append(rows, []interface{}{
			o.ID, o.LineID, o.LineName, period.Month, period.Year, int(o.WorkType), o.RequiredWorkers,
			o.DefaultCapacity, o.Notes, o.CreatedAt, o.UpdatedAt,
		})
	}
	return rows
}
