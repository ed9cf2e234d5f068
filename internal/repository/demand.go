package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/model"
)

var demandColumns = []string{"id", "model_name", "quantity", "month", "year", "sequence", "created_at", "updated_at"}

// DemandRepository 月度需求仓储
type DemandRepository struct {
	conn Conn
}

// NewDemandRepository 创建需求仓储
func NewDemandRepository(conn Conn) *DemandRepository {
	return &DemandRepository{conn: conn}
}

// ListByPeriod 查询期间需求并关联型号参考，无参考的需求 Reference 为 nil
func (r *DemandRepository) ListByPeriod(ctx context.Context, period model.Period) ([]*model.DemandRecord, error) {
	query := `
		SELECT d.id, d.model_name, d.quantity, d.sequence, d.created_at, d.updated_at,
			m.id, m.sut, m.head_count
		FROM demand_records d
		LEFT JOIN model_references m ON m.model_name = d.model_name
		WHERE d.month = $1 AND d.year = $2
		ORDER BY d.sequence
	`

	rows, err := r.conn.QueryContext(ctx, query, period.Month, period.Year)
	if err != nil {
		return nil, fmt.Errorf("查询需求失败: %w", err)
	}
	defer rows.Close()

	records := make([]*model.DemandRecord, 0)
	for rows.Next() {
		var (
			d         model.DemandRecord
			refID     uuid.NullUUID
			sut       sql.NullFloat64
			headCount sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.ModelName, &d.Quantity, &d.Sequence, &d.CreatedAt, &d.UpdatedAt,
			&refID, &sut, &headCount); err != nil {
			return nil, fmt.Errorf("读取需求失败: %w", err)
		}
		d.Period = period
		if refID.Valid {
			d.Reference = &model.ModelReference{
				ID:        refID.UUID,
				ModelName: d.ModelName,
				SUT:       sut.Float64,
				HeadCount: int(headCount.Int64),
			}
		}
		records = append(records, &d)
	}
	return records, rows.Err()
}

// ReplacePeriod 整体替换期间需求
func (r *DemandRepository) ReplacePeriod(ctx context.Context, period model.Period, records []*model.DemandRecord) error {
	now := time.Now()
	return inTx(ctx, r.conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM demand_records WHERE month = $1 AND year = $2`, period.Month, period.Year); err != nil {
			return fmt.Errorf("清空期间需求失败: %w", err)
		}

		rows := make([][]interface{}, 0, len(records))
		for i, d := range records {
			if d.ID == uuid.Nil {
				d.BaseModel = model.NewBaseModelAt(now)
			}
			d.Period = period
			d.Sequence = i
			rows = append(rows, []interface{}{
				d.ID, d.ModelName, d.Quantity, period.Month, period.Year, d.Sequence, d.CreatedAt, d.UpdatedAt,
			})
		}
		return insertBatch(ctx, tx, "demand_records", demandColumns, rows)
	})
}
