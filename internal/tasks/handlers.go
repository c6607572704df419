package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/kasirku/backend-pos/internal/report"
)

// LowStockHandler surfaces low-stock alerts to the operations log.
type LowStockHandler struct {
	Logger zerolog.Logger
}

// ProcessTask handles a pos:low_stock task.
func (h *LowStockHandler) ProcessTask(_ context.Context, task *asynq.Task) error {
	var payload LowStockPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode low stock payload: %w", err)
	}
	h.Logger.Warn().
		Str("product_id", payload.ProductID).
		Str("product", payload.Name).
		Int32("remaining", payload.Remaining).
		Msg("product stock is low")
	return nil
}

// ReportWarmHandler pre-computes report caches so the first admin hit of the
// day does not pay the aggregation cost.
type ReportWarmHandler struct {
	Reports *report.Service
	Logger  zerolog.Logger
}

// ProcessTask handles a pos:report_warm task.
func (h *ReportWarmHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	if h.Reports == nil {
		return fmt.Errorf("report service not configured")
	}
	var payload ReportWarmPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode report warm payload: %w", err)
	}
	// Scheduled warms carry no date and always target today.
	end := time.Now()
	if payload.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", payload.Date, time.Local)
		if err != nil {
			return fmt.Errorf("parse warm date: %w", err)
		}
		end = parsed
	}
	days := payload.Days
	if days < 1 {
		days = 7
	}
	start := end.AddDate(0, 0, -(days - 1))

	if _, err := h.Reports.SalesRange(ctx, start, end); err != nil {
		return fmt.Errorf("warm sales range: %w", err)
	}
	if _, err := h.Reports.TopProducts(ctx, start, end, 10); err != nil {
		return fmt.Errorf("warm top products: %w", err)
	}
	h.Logger.Info().Str("start", start.Format("2006-01-02")).Str("end", end.Format("2006-01-02")).Msg("report caches warmed")
	return nil
}

// Mux assembles the worker-side task router.
func Mux(low *LowStockHandler, warm *ReportWarmHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if low != nil {
		mux.Handle(TypeLowStock, low)
	}
	if warm != nil {
		mux.Handle(TypeReportWarm, warm)
	}
	return mux
}
