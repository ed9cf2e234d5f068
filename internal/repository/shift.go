package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/model"
)

// ShiftRepository 班次定义仓储
type ShiftRepository struct {
	db DB
}

// NewShiftRepository 创建班次仓储
func NewShiftRepository(db DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// ListActive 列出启用的班次定义及其扣除项
func (r *ShiftRepository) ListActive(ctx context.Context) ([]*model.ShiftDefinition, error) {
	query := `
		SELECT id, work_type, start_time, end_time, is_active, created_at, updated_at
		FROM shift_definitions
		WHERE is_active = TRUE AND deleted_at IS NULL
		ORDER BY work_type
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询班次定义失败: %w", err)
	}
	defer rows.Close()

	shifts := make([]*model.ShiftDefinition, 0)
	byID := make(map[uuid.UUID]*model.ShiftDefinition)
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("读取班次定义失败: %w", err)
	}
	if len(shifts) == 0 {
		return shifts, nil
	}

	if err := r.attachDeductions(ctx, byID); err != nil {
		return nil, err
	}
	return shifts, nil
}

func (r *ShiftRepository) attachDeductions(ctx context.Context, byID map[uuid.UUID]*model.ShiftDefinition) error {
	query := `
		SELECT d.id, d.shift_id, d.name, d.start_time, d.end_time, d.work_type, d.is_active
		FROM shift_deductions d
		JOIN shift_definitions s ON s.id = d.shift_id
		WHERE s.is_active = TRUE AND s.deleted_at IS NULL
		ORDER BY d.start_time
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("查询班次扣除项失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d          model.Deduction
			start, end string
			workType   int
		)
		if err := rows.Scan(&d.ID, &d.ShiftID, &d.Name, &start, &end, &workType, &d.IsActive); err != nil {
			return fmt.Errorf("读取班次扣除项失败: %w", err)
		}
		if d.Start, err = model.ParseTimeOfDay(start); err != nil {
			return fmt.Errorf("扣除项 %s 开始时间无效: %w", d.Name, err)
		}
		if d.End, err = model.ParseTimeOfDay(end); err != nil {
			return fmt.Errorf("扣除项 %s 结束时间无效: %w", d.Name, err)
		}
		d.WorkType = model.WorkType(workType)

		if s, ok := byID[d.ShiftID]; ok {
			s.Deductions = append(s.Deductions, d)
		}
	}
	return rows.Err()
}

func scanShift(row Scanner) (*model.ShiftDefinition, error) {
	var (
		s          model.ShiftDefinition
		start, end string
		workType   int
	)
	if err := row.Scan(&s.ID, &workType, &start, &end, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("读取班次定义失败: %w", err)
	}

	var err error
	if s.Start, err = model.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("班次开始时间无效: %w", err)
	}
	if s.End, err = model.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("班次结束时间无效: %w", err)
	}
	s.WorkType = model.WorkType(workType)
	return &s, nil
}
