package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Client enqueues POS background tasks. It satisfies checkout.Enqueuer.
type Client struct {
	inner *asynq.Client
}

// NewClient wraps an asynq client.
func NewClient(inner *asynq.Client) *Client {
	return &Client{inner: inner}
}

// EnqueueLowStock queues a low-stock alert.
func (c *Client) EnqueueLowStock(ctx context.Context, productID, name string, remaining int32) error {
	if c == nil || c.inner == nil {
		return nil
	}
	task, err := NewLowStockTask(LowStockPayload{ProductID: productID, Name: name, Remaining: remaining})
	if err != nil {
		return err
	}
	if _, err := c.inner.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue low stock: %w", err)
	}
	return nil
}

// EnqueueReportWarm queues a report cache warm run.
func (c *Client) EnqueueReportWarm(ctx context.Context, payload ReportWarmPayload) error {
	if c == nil || c.inner == nil {
		return nil
	}
	task, err := NewReportWarmTask(payload)
	if err != nil {
		return err
	}
	if _, err := c.inner.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue report warm: %w", err)
	}
	return nil
}

// Close releases the underlying asynq client.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}
