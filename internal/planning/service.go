// Package planning 编排计划生成流程：加锁、读取、分配、优化、校验、保存、发布
package planning

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/laborplan/laborplan/internal/config"
	"github.com/laborplan/laborplan/internal/events"
	"github.com/laborplan/laborplan/internal/ingest"
	"github.com/laborplan/laborplan/internal/lock"
	"github.com/laborplan/laborplan/internal/metrics"
	"github.com/laborplan/laborplan/pkg/capacity"
	"github.com/laborplan/laborplan/pkg/errors"
	"github.com/laborplan/laborplan/pkg/logger"
	"github.com/laborplan/laborplan/pkg/model"
	"github.com/laborplan/laborplan/pkg/planner/allocator"
	"github.com/laborplan/laborplan/pkg/planner/optimizer"
	"github.com/laborplan/laborplan/pkg/stats"
	"github.com/laborplan/laborplan/pkg/validator"
)

// ShiftStore 班次定义读取
type ShiftStore interface {
	ListActive(ctx context.Context) ([]*model.ShiftDefinition, error)
}

// LineStore 产线读取
type LineStore interface {
	ListActive(ctx context.Context) ([]*model.Line, error)
}

// ReferenceStore 型号参考读写
type ReferenceStore interface {
	List(ctx context.Context) ([]*model.ModelReference, error)
	ByName(ctx context.Context) (map[string]*model.ModelReference, error)
	ReplaceAll(ctx context.Context, refs []*model.ModelReference) error
}

// DemandStore 需求读写
type DemandStore interface {
	ListByPeriod(ctx context.Context, period model.Period) ([]*model.DemandRecord, error)
	ReplacePeriod(ctx context.Context, period model.Period, records []*model.DemandRecord) error
}

// PlanStore 分配结果读写
type PlanStore interface {
	ListAssignments(ctx context.Context, period model.Period) ([]*model.Assignment, error)
	ListOverrides(ctx context.Context, period model.Period) ([]*model.CapacityOverride, error)
	ReplacePeriodResults(ctx context.Context, period model.Period,
		assignments []*model.Assignment, overrides []*model.CapacityOverride) error
}

// Stores 服务依赖的存储
type Stores struct {
	Shifts     ShiftStore
	Lines      LineStore
	References ReferenceStore
	Demand     DemandStore
	Plans      PlanStore
}

// Options 服务选项
type Options struct {
	ChangeoverHours     float64
	DefaultMode         model.AllocationMode
	Timeout             time.Duration
	ReuseOverrides      bool
	DefaultShiftMinutes bool
	RejectInconsistent  bool
	DemandSheet         string
}

// OptionsFromConfig 由配置生成服务选项，无法识别的默认模式回退为多班次
func OptionsFromConfig(cfg *config.PlannerConfig) Options {
	mode, err := model.ParseAllocationMode(cfg.DefaultMode)
	if err != nil {
		mode = model.ModeMultiShift
	}
	return Options{
		ChangeoverHours:     cfg.ChangeoverHours(),
		DefaultMode:         mode,
		Timeout:             cfg.Timeout,
		ReuseOverrides:      cfg.ReuseOverrides,
		DefaultShiftMinutes: cfg.DefaultShiftMinutes,
		RejectInconsistent:  cfg.RejectInconsistent,
		DemandSheet:         cfg.DemandSheet,
	}
}

// Service 生产计划服务
type Service struct {
	stores    Stores
	locker    lock.Locker
	publisher events.Publisher
	engine    *allocator.Engine
	optimizer *optimizer.CapacityOptimizer
	checker   *validator.PlanChecker
	analyzer  *stats.UtilizationAnalyzer
	opts      Options
	now       func() time.Time
}

// NewService 创建计划服务
func NewService(stores Stores, locker lock.Locker, publisher events.Publisher, opts Options) *Service {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = model.ModeMultiShift
	}

	plannerLog := logger.NewPlannerLogger()
	return &Service{
		stores:    stores,
		locker:    locker,
		publisher: publisher,
		engine: allocator.NewEngine(
			allocator.WithChangeoverHours(opts.ChangeoverHours),
			allocator.WithLogger(plannerLog),
		),
		optimizer: optimizer.NewCapacityOptimizer(plannerLog),
		checker:   validator.NewPlanChecker(nil),
		analyzer:  stats.NewUtilizationAnalyzer(),
		opts:      opts,
		now:       time.Now,
	}
}

// Plan 一次计划生成的结果
type Plan struct {
	Period       model.Period              `json:"period"`
	Mode         model.AllocationMode      `json:"mode"`
	Allocation   *allocator.Result         `json:"allocation"`
	Optimization *optimizer.Outcome        `json:"optimization"`
	Overrides    []*model.CapacityOverride `json:"overrides"`
	Utilization  *stats.UtilizationSummary `json:"utilization"`
	Conflicts    []validator.Conflict      `json:"conflicts,omitempty"`
	Duration     time.Duration             `json:"duration"`
}

// ResolveMode 解析模式参数，空值使用默认模式
func (s *Service) ResolveMode(raw string) (model.AllocationMode, error) {
	if raw == "" {
		return s.opts.DefaultMode, nil
	}
	mode, err := model.ParseAllocationMode(raw)
	if err != nil {
		return "", errors.InvalidInput("mode", err.Error())
	}
	return mode, nil
}

// Generate 生成期间计划并整体替换该期间已保存的结果
func (s *Service) Generate(ctx context.Context, period model.Period, mode model.AllocationMode) (plan *Plan, err error) {
	if err := period.Validate(); err != nil {
		return nil, errors.InvalidInput("period", err.Error())
	}
	if !mode.Valid() {
		return nil, errors.InvalidInput("mode", string(mode))
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := s.now()
	defer func() {
		if err != nil {
			metrics.RecordPlanGeneration(metrics.PlanOutcome{
				Period:   period.String(),
				Mode:     string(mode),
				Duration: s.now().Sub(start),
			})
		}
	}()

	release, err := s.locker.Acquire(ctx, period.String())
	if err != nil {
		return nil, err
	}
	defer release()

	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}
	capacities, err := calc.ModeCapacities(period, mode)
	if err != nil {
		return nil, err
	}

	demand, err := s.stores.Demand.ListByPeriod(ctx, period)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取需求失败")
	}
	lines, err := s.stores.Lines.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取产线失败")
	}

	var prior []*model.CapacityOverride
	if s.opts.ReuseOverrides {
		if prior, err = s.stores.Plans.ListOverrides(ctx, period); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取人数覆盖失败")
		}
	}

	result, err := s.engine.Allocate(ctx, &allocator.Input{
		Period:          period,
		Mode:            mode,
		Demand:          demand,
		Lines:           lines,
		ShiftCapacities: capacities,
		Overrides:       prior,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, errors.CodeTimeout, "计划生成超时或被取消")
		}
		return nil, err
	}

	outcome := s.optimizer.Optimize(period, result.Assignments, prior)
	overrides := mergeOverrides(prior, outcome.Overrides)

	conflicts := s.checker.CheckAll(&validator.Plan{
		Demand:          demand,
		Assignments:     result.Assignments,
		Unassigned:      result.Unassigned,
		ShiftCapacities: capacities,
		Overrides:       overrides,
	})
	for _, c := range conflicts {
		metrics.RecordConflict(string(c.Type), c.Severity)
		logger.WithContext(ctx).Warn().
			Str("type", string(c.Type)).
			Str("severity", c.Severity).
			Msg(c.Message)
	}
	if s.opts.RejectInconsistent && validator.HasErrors(conflicts) {
		return nil, errors.New(errors.CodePlanInconsistent,
			fmt.Sprintf("期间 %s 的计划未通过一致性检查", period)).
			WithField("conflicts", len(conflicts))
	}

	if err := s.stores.Plans.ReplacePeriodResults(ctx, period, result.Assignments, overrides); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "保存计划结果失败")
	}

	plan = &Plan{
		Period:       period,
		Mode:         mode,
		Allocation:   result,
		Optimization: outcome,
		Overrides:    overrides,
		Utilization:  s.analyzer.Analyze(capacities, lines, result.Assignments),
		Conflicts:    conflicts,
		Duration:     s.now().Sub(start),
	}

	s.publish(ctx, plan)
	metrics.RecordPlanGeneration(metrics.PlanOutcome{
		Period:                period.String(),
		Mode:                  string(mode),
		Success:               true,
		Duration:              plan.Duration,
		UnassignedQuantity:    result.UnassignedQuantity(),
		RequiredOvertimeHours: result.RequiredOvertimeHours,
		CapacityGap:           result.CapacityGap,
		WorkersSaved:          outcome.WorkersSaved,
	})

	logger.WithContext(ctx).Info().
		Str("period", period.String()).
		Str("mode", string(mode)).
		Int("assignments", len(result.Assignments)).
		Int("unassigned_qty", result.UnassignedQuantity()).
		Int("workers_saved", outcome.WorkersSaved).
		Dur("duration", plan.Duration).
		Msg("计划已生成")
	return plan, nil
}

// publish 发布事件失败只记录日志，计划已保存
func (s *Service) publish(ctx context.Context, plan *Plan) {
	err := s.publisher.PublishPlan(ctx, &events.PlanEvent{
		Period:                plan.Period.String(),
		Mode:                  string(plan.Mode),
		Assignments:           len(plan.Allocation.Assignments),
		UnassignedQuantity:    plan.Allocation.UnassignedQuantity(),
		RequiredOvertimeHours: plan.Allocation.RequiredOvertimeHours,
		CapacityGap:           plan.Allocation.CapacityGap,
		WorkersSaved:          plan.Optimization.WorkersSaved,
		DurationMs:            plan.Duration.Milliseconds(),
		GeneratedAt:           s.now(),
	})
	if err != nil {
		logger.WithContext(ctx).Warn().Err(err).Str("period", plan.Period.String()).Msg("计划事件发布失败")
	}
}

// mergeOverrides 以 updated 覆盖 prior 中同键的记录
func mergeOverrides(prior, updated []*model.CapacityOverride) []*model.CapacityOverride {
	out := make([]*model.CapacityOverride, 0, len(prior)+len(updated))
	seen := make(map[model.OverrideKey]bool, len(updated))
	for _, o := range updated {
		seen[o.Key()] = true
		out = append(out, o)
	}
	for _, o := range prior {
		if !seen[o.Key()] {
			out = append(out, o)
		}
	}
	return out
}

func (s *Service) calculator(ctx context.Context) (*capacity.PeriodCalculator, error) {
	defs, err := s.stores.Shifts.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取班次定义失败")
	}
	var opts []capacity.PeriodOption
	if s.opts.DefaultShiftMinutes {
		opts = append(opts, capacity.WithFallback(capacity.DefaultDayMinutes))
	}
	return capacity.NewPeriodCalculator(defs, opts...), nil
}

// CapacityReport 期间产能报告
type CapacityReport struct {
	Period             model.Period               `json:"period"`
	Mode               model.AllocationMode       `json:"mode"`
	WorkDays           capacity.WorkDays          `json:"work_days"`
	Shifts             []*capacity.Breakdown      `json:"shifts"`
	ShiftCapacities    map[model.WorkType]float64 `json:"shift_capacities"`
	HoursPerLine       float64                    `json:"hours_per_line"`
	LineCount          int                        `json:"line_count"`
	TotalCapacityHours float64                    `json:"total_capacity_hours"`
}

// Capacities 计算期间内各班次产能
func (s *Service) Capacities(ctx context.Context, period model.Period, mode model.AllocationMode) (*CapacityReport, error) {
	if err := period.Validate(); err != nil {
		return nil, errors.InvalidInput("period", err.Error())
	}
	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}
	capacities, err := calc.ModeCapacities(period, mode)
	if err != nil {
		return nil, err
	}
	lines, err := s.stores.Lines.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取产线失败")
	}

	report := &CapacityReport{
		Period:          period,
		Mode:            mode,
		WorkDays:        capacity.CountWorkDays(period),
		Shifts:          make([]*capacity.Breakdown, 0, len(capacities)),
		ShiftCapacities: capacities,
		LineCount:       len(lines),
	}
	for _, wt := range mode.WorkTypes() {
		b, err := calc.Breakdown(period, wt)
		if err != nil {
			return nil, err
		}
		report.Shifts = append(report.Shifts, b)
		report.HoursPerLine += capacities[wt]
	}
	report.TotalCapacityHours = report.HoursPerLine * float64(report.LineCount)
	return report, nil
}

// ShiftTimelines 返回全部启用班次的时间轴
func (s *Service) ShiftTimelines(ctx context.Context) ([]capacity.ShiftTimeline, error) {
	defs, err := s.stores.Shifts.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取班次定义失败")
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].WorkType < defs[j].WorkType })

	out := make([]capacity.ShiftTimeline, 0, len(defs))
	for _, d := range defs {
		out = append(out, capacity.DescribeShift(d))
	}
	return out, nil
}

// OverrideReport 期间人数覆盖及优化汇总
type OverrideReport struct {
	Overrides []*model.CapacityOverride  `json:"overrides"`
	Summary   *stats.OptimizationSummary `json:"summary"`
}

// Overrides 查询期间人数覆盖
func (s *Service) Overrides(ctx context.Context, period model.Period, mode model.AllocationMode) (*OverrideReport, error) {
	if err := period.Validate(); err != nil {
		return nil, errors.InvalidInput("period", err.Error())
	}
	overrides, err := s.stores.Plans.ListOverrides(ctx, period)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取人数覆盖失败")
	}
	lines, err := s.stores.Lines.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取产线失败")
	}
	return &OverrideReport{
		Overrides: overrides,
		Summary:   stats.SummarizeOptimization(period, mode, lines, overrides),
	}, nil
}

// Assignments 查询期间已保存的分配
func (s *Service) Assignments(ctx context.Context, period model.Period) ([]*model.Assignment, error) {
	if err := period.Validate(); err != nil {
		return nil, errors.InvalidInput("period", err.Error())
	}
	out, err := s.stores.Plans.ListAssignments(ctx, period)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取分配失败")
	}
	return out, nil
}

// ModelReferences 列出全部型号参考，按型号名称排序
func (s *Service) ModelReferences(ctx context.Context) ([]*model.ModelReference, error) {
	refs, err := s.stores.References.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取型号参考失败")
	}
	return refs, nil
}

// ImportModelReferences 以工作簿内容整体替换型号参考
func (s *Service) ImportModelReferences(ctx context.Context, r io.Reader) (*ingest.Report, error) {
	refs, report, err := ingest.ReadModelReferences(r)
	if err != nil {
		return report, err
	}
	if err := s.stores.References.ReplaceAll(ctx, refs); err != nil {
		return report, errors.Wrap(err, errors.CodeDatabaseError, "保存型号参考失败")
	}
	metrics.RecordImport("model_reference", report.Imported, len(report.Skipped))
	return report, nil
}

// ImportDemand 读取需求工作簿并整体替换期间需求，导入期间持有该期间的锁
func (s *Service) ImportDemand(ctx context.Context, period model.Period, r io.Reader) (*ingest.Report, error) {
	if err := period.Validate(); err != nil {
		return nil, errors.InvalidInput("period", err.Error())
	}
	release, err := s.locker.Acquire(ctx, period.String())
	if err != nil {
		return nil, err
	}
	defer release()

	refs, err := s.stores.References.ByName(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取型号参考失败")
	}
	records, report, err := ingest.ReadDemand(r, ingest.DemandOptions{Sheet: s.opts.DemandSheet, Period: period}, refs)
	if err != nil {
		return report, err
	}
	if err := s.stores.Demand.ReplacePeriod(ctx, period, records); err != nil {
		return report, errors.Wrap(err, errors.CodeDatabaseError, "保存需求失败")
	}
	metrics.RecordImport("demand", report.Imported, len(report.Skipped))
	return report, nil
}
