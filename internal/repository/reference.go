package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/laborplan/laborplan/pkg/model"
)

var referenceColumns = []string{"id", "model_name", "sut", "head_count"}

// ModelReferenceRepository 型号参考数据仓储
type ModelReferenceRepository struct {
	conn Conn
}

// NewModelReferenceRepository 创建型号参考仓储
func NewModelReferenceRepository(conn Conn) *ModelReferenceRepository {
	return &ModelReferenceRepository{conn: conn}
}

// List 列出全部型号参考
func (r *ModelReferenceRepository) List(ctx context.Context) ([]*model.ModelReference, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT id, model_name, sut, head_count FROM model_references ORDER BY model_name`)
	if err != nil {
		return nil, fmt.Errorf("查询型号参考失败: %w", err)
	}
	defer rows.Close()

	refs := make([]*model.ModelReference, 0)
	for rows.Next() {
		ref := &model.ModelReference{}
		if err := rows.Scan(&ref.ID, &ref.ModelName, &ref.SUT, &ref.HeadCount); err != nil {
			return nil, fmt.Errorf("读取型号参考失败: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ByName 以型号名称为键返回全部参考
func (r *ModelReferenceRepository) ByName(ctx context.Context) (map[string]*model.ModelReference, error) {
	refs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*model.ModelReference, len(refs))
	for _, ref := range refs {
		out[ref.ModelName] = ref
	}
	return out, nil
}

// ReplaceAll 整体替换型号参考数据
func (r *ModelReferenceRepository) ReplaceAll(ctx context.Context, refs []*model.ModelReference) error {
	return inTx(ctx, r.conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM model_references`); err != nil {
			return fmt.Errorf("清空型号参考失败: %w", err)
		}

		rows := make([][]interface{}, 0, len(refs))
		for _, ref := range refs {
			if ref.ID == uuid.Nil {
				ref.ID = uuid.New()
			}
			rows = append(rows, []interface{}{ref.ID, ref.ModelName, ref.SUT, ref.HeadCount})
		}
		return insertBatch(ctx, tx, "model_references", referenceColumns, rows)
	})
}
