// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Conn 支持事务的数据库连接，*sql.DB 与 *database.DB 均满足
type Conn interface {
	DB
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// maxBatchRows 单条 INSERT 的最大行数，避免超过 PostgreSQL 参数上限
const maxBatchRows = 1000

// inTx 在事务中执行 fn，出错时回滚
func inTx(ctx context.Context, conn Conn, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}
	return nil
}

// insertBatch 批量插入，按 maxBatchRows 分段
func insertBatch(ctx context.Context, db DB, table string, columns []string, rows [][]interface{}) error {
	for start := 0; start < len(rows); start += maxBatchRows {
		end := start + maxBatchRows
		if end > len(rows) {
			end = len(rows)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*len(columns))
		argIndex := 1
		for _, row := range rows[start:end] {
			values = append(values, placeholders(argIndex, len(row)))
			args = append(args, row...)
			argIndex += len(row)
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(columns, ", "), strings.Join(values, ", "))
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("批量写入 %s 失败: %w", table, err)
		}
	}
	return nil
}

// placeholders 生成 ($n, $n+1, ...) 占位符
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
