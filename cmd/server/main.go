// LaborPlan 生产计划服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/laborplan/laborplan/internal/config"
	"github.com/laborplan/laborplan/internal/database"
	"github.com/laborplan/laborplan/internal/events"
	"github.com/laborplan/laborplan/internal/handler"
	"github.com/laborplan/laborplan/internal/lock"
	"github.com/laborplan/laborplan/internal/metrics"
	"github.com/laborplan/laborplan/internal/middleware"
	"github.com/laborplan/laborplan/internal/planning"
	"github.com/laborplan/laborplan/internal/repository"
	"github.com/laborplan/laborplan/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})

	fmt.Printf("LaborPlan 生产计划服务 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("数据库连接失败")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("数据库迁移失败")
		}
	}

	// 计划锁：启用 Redis 时跨实例生效，否则仅限本进程
	var locker lock.Locker = lock.NewLocalLocker()
	var redisLocker *lock.RedisLocker
	if cfg.Redis.Enabled {
		redisLocker = lock.NewRedisLocker(lock.NewRedisClient(&cfg.Redis), cfg.Planner.LockTTL)
		locker = redisLocker
	}

	publisher := events.New(&cfg.Kafka)
	defer publisher.Close()

	svc := planning.NewService(planning.Stores{
		Shifts:     repository.NewShiftRepository(db),
		Lines:      repository.NewLineRepository(db),
		References: repository.NewModelReferenceRepository(db),
		Demand:     repository.NewDemandRepository(db),
		Plans:      repository.NewPlanRepository(db),
	}, locker, publisher, planning.OptionsFromConfig(&cfg.Planner))

	router := mux.NewRouter()

	// ========================================
	// 系统端点
	// ========================================

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		checks := map[string]string{"database": "ok"}
		if err := db.Health(ctx); err != nil {
			checks["database"] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}
		if redisLocker != nil {
			checks["redis"] = "ok"
			if err := redisLocker.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, map[string]interface{}{
			"status":  status,
			"service": cfg.App.Name,
			"checks":  checks,
		})
	}).Methods(http.MethodGet)

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	}).Methods(http.MethodGet)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler()).Methods(http.MethodGet)
	}

	// ========================================
	// API v1 端点
	// ========================================

	handler.NewPlanHandler(svc, cfg.API.MaxUpload).Register(router)

	// 中间件执行顺序：recovery -> requestID -> cors -> rateLimit -> logging -> handler
	var limiter *rate.Limiter
	if cfg.API.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(float64(cfg.API.RateLimit))
	}
	router.Use(middleware.RateLimit(limiter), middleware.Logging)
	root := middleware.Recovery(middleware.RequestID(middleware.CORS(cfg.API.CORS)(router)))

	port := strconv.Itoa(cfg.App.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      root,
		ReadTimeout:  cfg.API.Timeout,
		WriteTimeout: cfg.Planner.Timeout + cfg.API.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	stopStats := make(chan struct{})
	go recordDBStats(db, stopStats)

	go func() {
		logger.Info().
			Str("port", port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("redis_lock", cfg.Redis.Enabled).
			Bool("kafka_events", cfg.Kafka.Enabled).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")
	close(stopStats)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// recordDBStats 定期记录连接池指标
func recordDBStats(db *database.DB, stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.RecordDBStats(db.Stats())
		case <-stop:
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
