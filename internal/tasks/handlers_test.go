package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/report"
)

type fakeReportQuerier struct {
	dailyCalls int
	topCalls   int
	lastStart  time.Time
	lastEnd    time.Time
}

func (f *fakeReportQuerier) DailyTotals(_ context.Context, start, end time.Time) ([]report.DayRow, error) {
	f.dailyCalls++
	f.lastStart = start
	f.lastEnd = end
	return nil, nil
}

func (f *fakeReportQuerier) TopItems(context.Context, time.Time, time.Time, int) ([]report.TopItem, error) {
	f.topCalls++
	return nil, nil
}

func TestLowStockHandlerDecodes(t *testing.T) {
	task, err := NewLowStockTask(LowStockPayload{ProductID: "p-1", Name: "Es Jeruk", Remaining: 2})
	require.NoError(t, err)

	h := &LowStockHandler{Logger: zerolog.Nop()}
	assert.NoError(t, h.ProcessTask(context.Background(), task))
}

func TestLowStockHandlerRejectsGarbage(t *testing.T) {
	h := &LowStockHandler{Logger: zerolog.Nop()}
	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeLowStock, []byte("{")))
	assert.Error(t, err)
}

func TestReportWarmHandlerWarmsBothReports(t *testing.T) {
	q := &fakeReportQuerier{}
	svc, err := report.NewService(q, nil, time.Minute, zerolog.Nop())
	require.NoError(t, err)

	task, err := NewReportWarmTask(ReportWarmPayload{Date: "2026-08-10", Days: 7})
	require.NoError(t, err)

	h := &ReportWarmHandler{Reports: svc, Logger: zerolog.Nop()}
	require.NoError(t, h.ProcessTask(context.Background(), task))

	assert.Equal(t, 1, q.dailyCalls)
	assert.Equal(t, 1, q.topCalls)
	assert.Equal(t, "2026-08-04", q.lastStart.Format("2006-01-02"))
}

func TestReportWarmHandlerBadDate(t *testing.T) {
	q := &fakeReportQuerier{}
	svc, err := report.NewService(q, nil, time.Minute, zerolog.Nop())
	require.NoError(t, err)

	task, err := NewReportWarmTask(ReportWarmPayload{Date: "not-a-date"})
	require.NoError(t, err)

	h := &ReportWarmHandler{Reports: svc, Logger: zerolog.Nop()}
	assert.Error(t, h.ProcessTask(context.Background(), task))
}

func TestMuxRoutes(t *testing.T) {
	mux := Mux(&LowStockHandler{Logger: zerolog.Nop()}, nil)
	task, err := NewLowStockTask(LowStockPayload{ProductID: "p-1", Name: "Kopi", Remaining: 0})
	require.NoError(t, err)
	assert.NoError(t, mux.ProcessTask(context.Background(), task))
}
