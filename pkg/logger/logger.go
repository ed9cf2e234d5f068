// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

type ctxKey string

// RequestIDKey 请求ID在上下文中的键
const RequestIDKey ctxKey = "request_id"

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，仅首次调用生效
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))
		logger = zerolog.New(openOutput(cfg)).With().Timestamp().Logger()
	})
}

func openOutput(cfg Config) io.Writer {
	var output io.Writer = os.Stdout
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "file":
		if cfg.FilePath != "" {
			if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				output = f
			}
		}
	}

	if cfg.Format == "console" {
		return zerolog.ConsoleWriter{Out: output, TimeFormat: cfg.TimeFormat}
	}
	return output
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))
		logger = zerolog.New(openOutput(cfg)).With().Timestamp().Logger()
	})
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		l = l.With().Str("request_id", reqID).Logger()
	}
	return &l
}

// ContextWithRequestID 将请求ID写入上下文
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// PlannerLogger 生产计划引擎专用日志器
type PlannerLogger struct {
	base *zerolog.Logger
}

// NewPlannerLogger 创建计划引擎日志器
func NewPlannerLogger() *PlannerLogger {
	l := Get().With().Str("component", "planner").Logger()
	return &PlannerLogger{base: &l}
}

// NewPlannerLoggerWith 使用指定的 zerolog 实例创建日志器，测试时可传入 zerolog.Nop()
func NewPlannerLoggerWith(base zerolog.Logger) *PlannerLogger {
	l := base.With().Str("component", "planner").Logger()
	return &PlannerLogger{base: &l}
}

// StartAllocation 记录分配开始
func (l *PlannerLogger) StartAllocation(period, mode string, demand, lines int) {
	l.base.Info().
		Str("period", period).
		Str("mode", mode).
		Int("demand", demand).
		Int("lines", lines).
		Msg("开始生成生产分配")
}

// InvalidDemand 记录被跳过的需求
func (l *PlannerLogger) InvalidDemand(modelName string, quantity int, reason string) {
	l.base.Warn().
		Str("model", modelName).
		Int("quantity", quantity).
		Str("reason", reason).
		Msg("需求无效，已跳过")
}

// Unassigned 记录未分配的需求
func (l *PlannerLogger) Unassigned(modelName string, quantity int, reason string) {
	l.base.Warn().
		Str("model", modelName).
		Int("quantity", quantity).
		Str("reason", reason).
		Msg("需求未能完全分配")
}

// AllocationComplete 记录分配完成
func (l *PlannerLogger) AllocationComplete(period string, duration time.Duration, assignments, unassigned int) {
	l.base.Info().
		Str("period", period).
		Dur("duration", duration).
		Int("assignments", assignments).
		Int("unassigned", unassigned).
		Msg("生产分配完成")
}

// CapacityOptimized 记录产线班次人数优化
func (l *PlannerLogger) CapacityOptimized(line, workType string, from, to int) {
	l.base.Info().
		Str("line", line).
		Str("work_type", workType).
		Int("from", from).
		Int("to", to).
		Msg("产线人数已优化")
}
