package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names routed through the asynq mux.
const (
	TypeLowStock   = "pos:low_stock"
	TypeReportWarm = "pos:report_warm"
)

// LowStockPayload describes a product whose stock fell to or below the
// alert threshold during a checkout.
type LowStockPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Remaining int32  `json:"remaining"`
}

// ReportWarmPayload asks the worker to pre-compute report caches for the
// trailing window ending at Date.
type ReportWarmPayload struct {
	Date string `json:"date"`
	Days int    `json:"days"`
}

// NewLowStockTask builds a low-stock alert task.
func NewLowStockTask(payload LowStockPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal low stock payload: %w", err)
	}
	return asynq.NewTask(TypeLowStock, data,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second)), nil
}

// NewReportWarmTask builds a report cache warm task.
func NewReportWarmTask(payload ReportWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal report warm payload: %w", err)
	}
	return asynq.NewTask(TypeReportWarm, data,
		asynq.MaxRetry(1),
		asynq.Timeout(time.Minute)), nil
}
