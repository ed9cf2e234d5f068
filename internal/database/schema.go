package database

import (
	"context"
	"fmt"

	"github.com/laborplan/laborplan/pkg/logger"
)

// schema 生产计划表结构
var schema = []string{
	`CREATE TABLE IF NOT EXISTS model_references (
		id UUID PRIMARY KEY,
		model_name TEXT NOT NULL UNIQUE,
		sut DOUBLE PRECISION NOT NULL,
		head_count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS production_lines (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		default_capacity INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS shift_definitions (
		id UUID PRIMARY KEY,
		work_type SMALLINT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS shift_deductions (
		id UUID PRIMARY KEY,
		shift_id UUID NOT NULL REFERENCES shift_definitions(id),
		name TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		work_type SMALLINT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS demand_records (
		id UUID PRIMARY KEY,
		model_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		month SMALLINT NOT NULL,
		year SMALLINT NOT NULL,
		sequence INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_demand_period ON demand_records (year, month)`,
	`CREATE TABLE IF NOT EXISTS line_assignments (
		id UUID PRIMARY KEY,
		kind TEXT NOT NULL,
		month SMALLINT NOT NULL,
		year SMALLINT NOT NULL,
		demand_id UUID NOT NULL,
		model_name TEXT NOT NULL,
		line_id UUID NOT NULL,
		line_name TEXT NOT NULL,
		assigned_quantity INTEGER NOT NULL,
		planned_hours DOUBLE PRECISION NOT NULL,
		changeover_hours DOUBLE PRECISION NOT NULL,
		required_workers INTEGER NOT NULL,
		allocated_workers INTEGER NOT NULL,
		default_capacity INTEGER NOT NULL,
		surplus_workers INTEGER NOT NULL,
		work_type SMALLINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_period ON line_assignments (year, month)`,
	`CREATE TABLE IF NOT EXISTS capacity_overrides (
		id UUID PRIMARY KEY,
		line_id UUID NOT NULL,
		line_name TEXT NOT NULL,
		month SMALLINT NOT NULL,
		year SMALLINT NOT NULL,
		work_type SMALLINT NOT NULL,
		required_workers INTEGER NOT NULL,
		default_capacity INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (line_id, year, month, work_type)
	)`,
}

// Migrate 创建缺失的表
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("执行第 %d 条建表语句失败: %w", i+1, err)
		}
	}
	logger.Info().Int("statements", len(schema)).Msg("数据库结构已就绪")
	return nil
}
