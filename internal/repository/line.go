package repository

import (
	"context"
	"fmt"

	"github.com/laborplan/laborplan/pkg/model"
)

// LineRepository 产线仓储
type LineRepository struct {
	db DB
}

// NewLineRepository 创建产线仓储
func NewLineRepository(db DB) *LineRepository {
	return &LineRepository{db: db}
}

// ListActive 列出启用的产线
func (r *LineRepository) ListActive(ctx context.Context) ([]*model.Line, error) {
	query := `
		SELECT id, name, default_capacity, is_active
		FROM production_lines
		WHERE is_active = TRUE
		ORDER BY default_capacity DESC, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询产线失败: %w", err)
	}
	defer rows.Close()

	lines := make([]*model.Line, 0)
	for rows.Next() {
		l := &model.Line{}
		if err := rows.Scan(&l.ID, &l.Name, &l.DefaultCapacity, &l.IsActive); err != nil {
			return nil, fmt.Errorf("读取产线失败: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
