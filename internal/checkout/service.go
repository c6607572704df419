package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/obs"
	"github.com/kasirku/backend-pos/internal/pricing"
)

// Sentinels surfaced by RecorderTx implementations. The service maps them
// onto the API error taxonomy with the offending line's name attached.
var (
	ErrProductNotFound   = errors.New("checkout: product not found")
	ErrInsufficientStock = errors.New("checkout: insufficient stock")
	ErrCashierNotFound   = errors.New("checkout: cashier not found")
)

// Line is one cart line submitted for checkout. Price is the unit price the
// terminal displayed; it is recorded as-is on the order item.
type Line struct {
	ProductID string
	Name      string
	Price     pricing.Money
	Qty       int
	ImageURL  string
}

// Input is a checkout request after boundary decoding.
type Input struct {
	Lines    []Line
	Discount pricing.Money
	Tendered pricing.Money
}

// OrderItem is a recorded sale line.
type OrderItem struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	Price     pricing.Money `json:"price"`
	Qty       int           `json:"quantity"`
	ImageURL  string        `json:"imageUrl"`
	Position  int           `json:"position"`
}

// Order is a recorded sale. Monetary fields satisfy
// total = subtotal - discount and change = amountPaid - total.
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
	Items           []OrderItem   `json:"items"`
}

// Cashier is the operator resolved inside the recording transaction.
type Cashier struct {
	ID       string
	Username string
}

// RecorderTx is a single checkout transaction. Either Commit succeeds or
// the whole sale leaves no trace.
type RecorderTx interface {
	// DecrementStock re-checks and reduces stock for one line in a single
	// atomic statement, returning the remaining stock.
	DecrementStock(ctx context.Context, productID string, qty int) (int32, error)
	GetCashier(ctx context.Context, id string) (Cashier, error)
	InsertOrder(ctx context.Context, order Order) (Order, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens recording transactions.
type Store interface {
	Begin(ctx context.Context) (RecorderTx, error)
}

// Enqueuer pushes low-stock alert tasks onto the background queue.
type Enqueuer interface {
	EnqueueLowStock(ctx context.Context, productID, name string, remaining int32) error
}

// Config groups Service dependencies.
type Config struct {
	Store             Store
	Enqueuer          Enqueuer
	Logger            zerolog.Logger
	StockTracking     bool
	LowStockThreshold int32
}

// Service is the stock-safe order recorder.
type Service struct {
	store     Store
	enqueuer  Enqueuer
	logger    zerolog.Logger
	tracking  bool
	threshold int32
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("checkout: store is required")
	}
	return &Service{
		store:     cfg.Store,
		enqueuer:  cfg.Enqueuer,
		logger:    cfg.Logger,
		tracking:  cfg.StockTracking,
		threshold: cfg.LowStockThreshold,
	}, nil
}

type lowStockLine struct {
	productID string
	name      string
	remaining int32
}

// Record validates the sale, settles payment, and persists it atomically.
// Validation and tender checks happen before any I/O; stock re-check and
// decrement, cashier resolution, and the order insert share one transaction.
func (s *Service) Record(ctx context.Context, cashierID string, input Input) (Order, error) {
	if err := validateInput(cashierID, input); err != nil {
		countCheckout("validation")
		return Order{}, err
	}

	items := make([]pricing.Item, 0, len(input.Lines))
	for _, line := range input.Lines {
		items = append(items, pricing.Item{Qty: line.Qty, UnitPrice: line.Price})
	}
	summary := pricing.Compute(items, input.Discount)
	change, err := pricing.Settle(summary.Total, input.Tendered)
	if err != nil {
		countCheckout("insufficient_tender")
		return Order{}, common.NewAppError("INSUFFICIENT_TENDER",
			fmt.Sprintf("tendered %d does not cover total %d", input.Tendered, summary.Total),
			http.StatusBadRequest, err)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		countCheckout("error")
		return Order{}, fmt.Errorf("begin checkout: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lowStock []lowStockLine
	if s.tracking {
		for _, line := range input.Lines {
			remaining, err := tx.DecrementStock(ctx, line.ProductID, line.Qty)
			if err != nil {
				return Order{}, s.mapStockError(err, line)
			}
			if remaining <= s.threshold {
				lowStock = append(lowStock, lowStockLine{productID: line.ProductID, name: line.Name, remaining: remaining})
			}
		}
	}

	cashier, err := tx.GetCashier(ctx, cashierID)
	if err != nil {
		countCheckout("error")
		if errors.Is(err, ErrCashierNotFound) {
			return Order{}, common.NewAppError("NOT_FOUND", "cashier not found", http.StatusBadRequest, err)
		}
		return Order{}, fmt.Errorf("resolve cashier: %w", err)
	}

	order := Order{
		Subtotal:        summary.Subtotal,
		Discount:        summary.Discount,
		Total:           summary.Total,
		AmountPaid:      input.Tendered,
		Change:          change,
		CashierID:       cashier.ID,
		CashierUsername: cashier.Username,
		Items:           make([]OrderItem, 0, len(input.Lines)),
	}
	for i, line := range input.Lines {
		order.Items = append(order.Items, OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Qty:       line.Qty,
			ImageURL:  line.ImageURL,
			Position:  i,
		})
	}

	inserted, err := tx.InsertOrder(ctx, order)
	if err != nil {
		countCheckout("error")
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		countCheckout("error")
		return Order{}, fmt.Errorf("commit checkout: %w", err)
	}

	countCheckout("recorded")
	if obs.OrderAmount != nil {
		obs.OrderAmount.Observe(float64(inserted.Total))
	}
	s.alertLowStock(ctx, lowStock)
	s.logger.Info().
		Str("order_id", inserted.ID).
		Int64("total", inserted.Total).
		Int("lines", len(inserted.Items)).
		Str("cashier", cashier.Username).
		Msg("order recorded")
	return inserted, nil
}

func (s *Service) mapStockError(err error, line Line) error {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		countCheckout("insufficient_stock")
		return common.NewAppError("INSUFFICIENT_STOCK",
			fmt.Sprintf("insufficient stock for %s", line.Name),
			http.StatusBadRequest, err)
	case errors.Is(err, ErrProductNotFound):
		countCheckout("error")
		return common.NewAppError("NOT_FOUND",
			fmt.Sprintf("product not found: %s", line.Name),
			http.StatusBadRequest, err)
	default:
		countCheckout("error")
		return fmt.Errorf("decrement stock: %w", err)
	}
}

// alertLowStock is best effort: a queue outage never fails a committed sale.
func (s *Service) alertLowStock(ctx context.Context, lines []lowStockLine) {
	if s.enqueuer == nil {
		return
	}
	for _, line := range lines {
		if err := s.enqueuer.EnqueueLowStock(ctx, line.productID, line.name, line.remaining); err != nil {
			s.logger.Warn().Err(err).Str("product_id", line.productID).Msg("low stock alert enqueue failed")
			continue
		}
		if obs.LowStockAlerts != nil {
			obs.LowStockAlerts.Inc()
		}
	}
}

func validateInput(cashierID string, input Input) error {
	if strings.TrimSpace(cashierID) == "" {
		return common.NewAppError("UNAUTHORIZED", "missing cashier identity", http.StatusUnauthorized, nil)
	}
	if len(input.Lines) == 0 {
		return common.NewAppError("VALIDATION_ERROR", "cart is empty", http.StatusBadRequest, nil)
	}
	for _, line := range input.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return common.NewAppError("VALIDATION_ERROR", "line is missing a product id", http.StatusBadRequest, nil)
		}
		if line.Qty <= 0 {
			return common.NewAppError("VALIDATION_ERROR",
				fmt.Sprintf("quantity for %s must be positive", line.Name), http.StatusBadRequest, nil)
		}
		if line.Price < 0 {
			return common.NewAppError("VALIDATION_ERROR",
				fmt.Sprintf("price for %s must not be negative", line.Name), http.StatusBadRequest, nil)
		}
	}
	if input.Tendered < 0 {
		return common.NewAppError("VALIDATION_ERROR", "tendered amount must not be negative", http.StatusBadRequest, nil)
	}
	return nil
}

func countCheckout(result string) {
	if obs.CheckoutTotal == nil {
		return
	}
	obs.CheckoutTotal.WithLabelValues(result).Inc()
}
