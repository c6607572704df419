package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/pricing"
)

const dateLayout = "2006-01-02"

// DayBucket is one calendar day of the sales chart. Days without sales are
// present with zero values.
type DayBucket struct {
	Date  string        `json:"date"`
	Total pricing.Money `json:"total"`
	Count int64         `json:"count"`
}

// SalesReport summarises a date range.
type SalesReport struct {
	Start string        `json:"start"`
	End   string        `json:"end"`
	Total pricing.Money `json:"total"`
	Count int64         `json:"count"`
	Days  []DayBucket   `json:"days"`
}

// TopItem is one row of the best-sellers report, keyed by the recorded
// line-item identity.
type TopItem struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	Quantity  int64         `json:"quantity"`
	Revenue   pricing.Money `json:"revenue"`
}

// Overview is the admin dashboard headline.
type Overview struct {
	Today DayBucket   `json:"today"`
	Week  SalesReport `json:"week"`
}

// DayRow is a non-zero aggregation row from storage.
type DayRow struct {
	Day   time.Time
	Total pricing.Money
	Count int64
}

// Querier is the aggregation surface over recorded orders.
type Querier interface {
	DailyTotals(ctx context.Context, start, end time.Time) ([]DayRow, error)
	TopItems(ctx context.Context, start, end time.Time, limit int) ([]TopItem, error)
}

// Service computes sales reports with a redis read-through cache.
type Service struct {
	Q      Querier
	Redis  *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
	Now    func() time.Time

	maxRangeDays int
	maxTopLimit  int
}

// NewService constructs a Service.
func NewService(q Querier, client *redis.Client, ttl time.Duration, logger zerolog.Logger) (*Service, error) {
	if q == nil {
		return nil, errors.New("report: querier is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		Q:            q,
		Redis:        client,
		TTL:          ttl,
		Logger:       logger,
		Now:          time.Now,
		maxRangeDays: 366,
		maxTopLimit:  100,
	}, nil
}

// SalesRange aggregates per-day totals for every calendar day between start
// and end inclusive, zero-filling days without sales.
func (s *Service) SalesRange(ctx context.Context, start, end time.Time) (SalesReport, error) {
	start, end, err := s.normalizeRange(start, end)
	if err != nil {
		return SalesReport{}, err
	}

	key := fmt.Sprintf("report:sales:%s:%s", start.Format(dateLayout), end.Format(dateLayout))
	var cached SalesReport
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.Q.DailyTotals(ctx, start, endOfDay(end))
	if err != nil {
		return SalesReport{}, err
	}
	report := buildSalesReport(start, end, rows)
	s.cacheSet(ctx, key, report)
	return report, nil
}

// TopProducts returns best sellers by summed quantity, ties broken by first
// sale so the ordering is stable between runs.
func (s *Service) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]TopItem, error) {
	start, end, err := s.normalizeRange(start, end)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 10
	}
	if limit > s.maxTopLimit {
		limit = s.maxTopLimit
	}

	key := fmt.Sprintf("report:top:%s:%s:%d", start.Format(dateLayout), end.Format(dateLayout), limit)
	var cached []TopItem
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	items, err := s.Q.TopItems(ctx, start, endOfDay(end), limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []TopItem{}
	}
	s.cacheSet(ctx, key, items)
	return items, nil
}

// DashboardOverview bundles today's numbers with the trailing week.
func (s *Service) DashboardOverview(ctx context.Context) (Overview, error) {
	today := dateOnly(s.Now())
	week, err := s.SalesRange(ctx, today.AddDate(0, 0, -6), today)
	if err != nil {
		return Overview{}, err
	}
	overview := Overview{Week: week}
	if len(week.Days) > 0 {
		overview.Today = week.Days[len(week.Days)-1]
	}
	return overview, nil
}

func (s *Service) normalizeRange(start, end time.Time) (time.Time, time.Time, error) {
	now := s.Now()
	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -6)
	}
	start = dateOnly(start)
	end = dateOnly(end)
	if end.Before(start) {
		return time.Time{}, time.Time{}, common.NewAppError("VALIDATION_ERROR", "end must not be before start", http.StatusBadRequest, nil)
	}
	if int(end.Sub(start).Hours()/24) >= s.maxRangeDays {
		return time.Time{}, time.Time{}, common.NewAppError("VALIDATION_ERROR", "range is too wide", http.StatusBadRequest, nil)
	}
	return start, end, nil
}

func buildSalesReport(start, end time.Time, rows []DayRow) SalesReport {
	byDay := make(map[string]DayRow, len(rows))
	for _, row := range rows {
		byDay[row.Day.Format(dateLayout)] = row
	}
	report := SalesReport{
		Start: start.Format(dateLayout),
		End:   end.Format(dateLayout),
		Days:  make([]DayBucket, 0),
	}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		bucket := DayBucket{Date: key}
		if row, ok := byDay[key]; ok {
			bucket.Total = row.Total
			bucket.Count = row.Count
		}
		report.Total += bucket.Total
		report.Count += bucket.Count
		report.Days = append(report.Days, bucket)
	}
	return report
}

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.Redis == nil {
		return false
	}
	data, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.Logger.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("report cache payload corrupt")
		return false
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, data, s.TTL).Err(); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return dateOnly(t).Add(24*time.Hour - time.Nanosecond)
}
