package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kasirku/backend-pos/internal/config"
	"github.com/kasirku/backend-pos/internal/db"
	"github.com/kasirku/backend-pos/internal/obs"
	"github.com/kasirku/backend-pos/internal/report"
	"github.com/kasirku/backend-pos/internal/tasks"
)

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "json"), envOrDefault("OBS_LOG_LEVEL", "info")).
		With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "pos-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	reportService, err := report.NewService(report.NewPGXQuerier(pool), redisClient, cfg.ReportCacheTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise report service")
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 5),
		Queues:      map[string]int{"default": 1},
		Logger:      asynqLogger{logger},
	})

	mux := tasks.Mux(
		&tasks.LowStockHandler{Logger: logger},
		&tasks.ReportWarmHandler{Reports: reportService, Logger: logger},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.Local})
	warmCron := envOrDefault("WORKER_REPORT_WARM_CRON", "5 0 * * *")
	warmTask, err := tasks.NewReportWarmTask(tasks.ReportWarmPayload{Days: 7})
	if err != nil {
		logger.Fatal().Err(err).Msg("build report warm task")
	}
	if _, err := scheduler.Register(warmCron, warmTask); err != nil {
		logger.Fatal().Err(err).Msg("register report warm schedule")
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

// asynqLogger adapts zerolog to asynq's logging interface.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
