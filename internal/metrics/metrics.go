// Package metrics 提供 Prometheus 监控指标
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标名称
const (
	HTTPRequestsTotal      = "laborplan_http_requests_total"
	HTTPRequestDuration    = "laborplan_http_request_duration_seconds"
	PlanGenerationTotal    = "laborplan_plan_generation_total"
	PlanGenerationDuration = "laborplan_plan_generation_duration_seconds"
	UnassignedUnits        = "laborplan_unassigned_units"
	RequiredOvertimeHours  = "laborplan_required_overtime_hours"
	CapacityGapHours       = "laborplan_capacity_gap_hours"
	WorkersSaved           = "laborplan_workers_saved"
	PlanConflicts          = "laborplan_plan_conflicts_total"
	ImportRowsTotal        = "laborplan_import_rows_total"
	DBConnections          = "laborplan_db_connections"
)

// Metrics 服务指标集合，注册在独立的注册表上
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	PlanGenerations  *prometheus.CounterVec
	PlanDuration     *prometheus.HistogramVec
	Unassigned       *prometheus.GaugeVec
	RequiredOvertime *prometheus.GaugeVec
	CapacityGap      *prometheus.GaugeVec
	Saved            *prometheus.GaugeVec
	Conflicts        *prometheus.CounterVec
	ImportRows       *prometheus.CounterVec
	DBConns          *prometheus.GaugeVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// New 创建指标集合并注册到新的注册表
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestsTotal,
			Help: "HTTP请求总数",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    HTTPRequestDuration,
			Help:    "HTTP请求延迟",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
		PlanGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: PlanGenerationTotal,
			Help: "计划生成次数",
		}, []string{"mode", "status"}),
		PlanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    PlanGenerationDuration,
			Help:    "计划生成耗时",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mode"}),
		Unassigned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: UnassignedUnits,
			Help: "最近一次计划的未分配数量",
		}, []string{"period", "mode"}),
		RequiredOvertime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: RequiredOvertimeHours,
			Help: "最近一次计划需要的加班工时",
		}, []string{"period"}),
		CapacityGap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: CapacityGapHours,
			Help: "产能缺口（小时）",
		}, []string{"period", "mode"}),
		Saved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: WorkersSaved,
			Help: "人数优化节省的人数",
		}, []string{"period"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: PlanConflicts,
			Help: "计划一致性检查发现的问题",
		}, []string{"type", "severity"}),
		ImportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ImportRowsTotal,
			Help: "工作簿导入行数",
		}, []string{"kind", "result"}),
		DBConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: DBConnections,
			Help: "数据库连接数",
		}, []string{"state"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.PlanGenerations,
		m.PlanDuration,
		m.Unassigned,
		m.RequiredOvertime,
		m.CapacityGap,
		m.Saved,
		m.Conflicts,
		m.ImportRows,
		m.DBConns,
	)
	return m
}

// Default 获取全局指标集合
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// Handler 返回全局注册表的指标输出处理器
func Handler() http.Handler {
	return Default().Handler()
}

// Handler 返回指标输出处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordRequest 记录 HTTP 请求
func RecordRequest(method, path string, status int, d time.Duration) {
	Default().RecordRequest(method, path, status, d)
}

// RecordRequest 记录 HTTP 请求
func (m *Metrics) RecordRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// PlanOutcome 单次计划生成的结果指标
type PlanOutcome struct {
	Period                string
	Mode                  string
	Success               bool
	Duration              time.Duration
	UnassignedQuantity    int
	RequiredOvertimeHours float64
	CapacityGap           float64
	WorkersSaved          int
}

// RecordPlanGeneration 记录计划生成
func RecordPlanGeneration(o PlanOutcome) {
	Default().RecordPlanGeneration(o)
}

// RecordPlanGeneration 记录计划生成，失败时只计次数与耗时
func (m *Metrics) RecordPlanGeneration(o PlanOutcome) {
	status := "success"
	if !o.Success {
		status = "failure"
	}
	m.PlanGenerations.WithLabelValues(o.Mode, status).Inc()
	m.PlanDuration.WithLabelValues(o.Mode).Observe(o.Duration.Seconds())
	if !o.Success {
		return
	}

	m.Unassigned.WithLabelValues(o.Period, o.Mode).Set(float64(o.UnassignedQuantity))
	m.RequiredOvertime.WithLabelValues(o.Period).Set(o.RequiredOvertimeHours)
	m.CapacityGap.WithLabelValues(o.Period, o.Mode).Set(o.CapacityGap)
	m.Saved.WithLabelValues(o.Period).Set(float64(o.WorkersSaved))
}

// RecordConflict 记录一致性检查问题
func RecordConflict(conflictType, severity string) {
	Default().Conflicts.WithLabelValues(conflictType, severity).Inc()
}

// RecordImport 记录工作簿导入行数
func RecordImport(kind string, imported, skipped int) {
	c := Default().ImportRows
	c.WithLabelValues(kind, "imported").Add(float64(imported))
	c.WithLabelValues(kind, "skipped").Add(float64(skipped))
}

// RecordDBStats 记录连接池状态
func RecordDBStats(stats sql.DBStats) {
	g := Default().DBConns
	g.WithLabelValues("in_use").Set(float64(stats.InUse))
	g.WithLabelValues("idle").Set(float64(stats.Idle))
	g.WithLabelValues("open").Set(float64(stats.OpenConnections))
}
