package order

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/pricing"
)

// ErrNotFound indicates the order does not exist.
var ErrNotFound = errors.New("order: not found")

// Item is a recorded sale line as stored.
type Item struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	Price     pricing.Money `json:"price"`
	Qty       int           `json:"quantity"`
	ImageURL  string        `json:"imageUrl"`
	Position  int           `json:"position"`
}

// Order is the read-side view of a recorded sale.
type Order struct {
	ID              string        `json:"id"`
	Subtotal        pricing.Money `json:"subtotal"`
	Discount        pricing.Money `json:"discount"`
	Total           pricing.Money `json:"total"`
	AmountPaid      pricing.Money `json:"amountPaid"`
	Change          pricing.Money `json:"change"`
	CashierID       string        `json:"cashierId"`
	CashierUsername string        `json:"cashierUsername"`
	CreatedAt       time.Time     `json:"createdAt"`
	Items           []Item        `json:"items"`
}

// ListParams filters the order listing. Zero times leave that bound open.
type ListParams struct {
	Start time.Time
	End   time.Time
	Page  int
	Limit int
}

// Querier is the read surface over recorded orders.
type Querier interface {
	ListOrders(ctx context.Context, params ListParams) ([]Order, int64, error)
	GetOrder(ctx context.Context, id string) (Order, error)
}

// Service serves order history queries.
type Service struct {
	Q Querier

	maxLimit int
}

// NewService constructs a Service.
func NewService(q Querier) (*Service, error) {
	if q == nil {
		return nil, errors.New("order: querier is required")
	}
	return &Service{Q: q, maxLimit: 100}, nil
}

// List returns orders within the requested range, newest first.
func (s *Service) List(ctx context.Context, params ListParams) ([]Order, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 20
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	if !params.Start.IsZero() && !params.End.IsZero() && params.End.Before(params.Start) {
		return nil, 0, common.NewAppError("VALIDATION_ERROR", "end must not be before start", http.StatusBadRequest, nil)
	}
	return s.Q.ListOrders(ctx, params)
}

// Get returns a single order with its items.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	o, err := s.Q.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, common.NewAppError("NOT_FOUND", "order not found", http.StatusNotFound, err)
		}
		return Order{}, err
	}
	return o, nil
}
