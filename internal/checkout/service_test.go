package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/pricing"
)

// memStore emulates the Postgres recorder: Begin takes the store lock, so a
// transaction sees and mutates stock exclusively until Commit or Rollback,
// the same isolation the row-level UPDATE gives the real store.
type memStore struct {
	mu        sync.Mutex
	stock     map[string]int32
	cashiers  map[string]Cashier
	orders    []Order
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{
		stock: map[string]int32{},
		cashiers: map[string]Cashier{
			"u-1": {ID: "u-1", Username: "kasir1"},
		},
	}
}

func (s *memStore) Begin(context.Context) (RecorderTx, error) {
	s.mu.Lock()
	return &memTx{store: s}, nil
}

func (s *memStore) recordedOrders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.orders...)
}

type memTx struct {
	store   *memStore
	undo    []func()
	pending []Order
	done    bool
}

func (t *memTx) DecrementStock(_ context.Context, productID string, qty int) (int32, error) {
	current, ok := t.store.stock[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	if current < int32(qty) {
		return 0, ErrInsufficientStock
	}
	t.store.stock[productID] = current - int32(qty)
	t.undo = append(t.undo, func() { t.store.stock[productID] = current })
	return current - int32(qty), nil
}

func (t *memTx) GetCashier(_ context.Context, id string) (Cashier, error) {
	c, ok := t.store.cashiers[id]
	if !ok {
		return Cashier{}, ErrCashierNotFound
	}
	return c, nil
}

func (t *memTx) InsertOrder(_ context.Context, order Order) (Order, error) {
	if t.store.insertErr != nil {
		return Order{}, t.store.insertErr
	}
	order.ID = fmt.Sprintf("o-%d", len(t.store.orders)+len(t.pending)+1)
	t.pending = append(t.pending, order)
	return order, nil
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return errors.New("tx already finished")
	}
	t.done = true
	t.store.orders = append(t.store.orders, t.pending...)
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	return nil
}

type memEnqueuer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (e *memEnqueuer) EnqueueLowStock(_ context.Context, productID, name string, remaining int32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.calls = append(e.calls, fmt.Sprintf("%s:%d", name, remaining))
	return nil
}

func newTestService(t *testing.T, store Store, enq Enqueuer) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Store:             store,
		Enqueuer:          enq,
		Logger:            zerolog.Nop(),
		StockTracking:     true,
		LowStockThreshold: 5,
	})
	require.NoError(t, err)
	return svc
}

func singleLine(id, name string, price pricing.Money, qty int) Input {
	return Input{
		Lines:    []Line{{ProductID: id, Name: name, Price: price, Qty: qty}},
		Tendered: price * pricing.Money(qty),
	}
}

func TestRecordHappyPath(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 10
	store.stock["p-2"] = 20
	svc := newTestService(t, store, nil)

	order, err := svc.Record(context.Background(), "u-1", Input{
		Lines: []Line{
			{ProductID: "p-1", Name: "Nasi Goreng Spesial", Price: 25000, Qty: 2},
			{ProductID: "p-2", Name: "Es Teh Manis", Price: 5000, Qty: 3},
		},
		Discount: 5000,
		Tendered: 100000,
	})
	require.NoError(t, err)

	assert.Equal(t, pricing.Money(65000), order.Subtotal)
	assert.Equal(t, pricing.Money(5000), order.Discount)
	assert.Equal(t, pricing.Money(60000), order.Total)
	assert.Equal(t, pricing.Money(100000), order.AmountPaid)
	assert.Equal(t, pricing.Money(40000), order.Change)
	assert.Equal(t, "kasir1", order.CashierUsername)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 0, order.Items[0].Position)
	assert.Equal(t, 1, order.Items[1].Position)

	assert.Equal(t, int32(8), store.stock["p-1"])
	assert.Equal(t, int32(17), store.stock["p-2"])
	assert.Len(t, store.recordedOrders(), 1)
}

func TestRecordDiscountClampedToSubtotal(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 5
	svc := newTestService(t, store, nil)

	input := singleLine("p-1", "Es Teh Manis", 5000, 1)
	input.Discount = 999999
	order, err := svc.Record(context.Background(), "u-1", input)
	require.NoError(t, err)
	assert.Equal(t, pricing.Money(5000), order.Discount)
	assert.Equal(t, pricing.Money(0), order.Total)
	assert.Equal(t, input.Tendered, order.Change)
}

func TestRecordInsufficientTender(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 5
	svc := newTestService(t, store, nil)

	input := singleLine("p-1", "Nasi Goreng Spesial", 25000, 2)
	input.Tendered = 40000
	_, err := svc.Record(context.Background(), "u-1", input)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INSUFFICIENT_TENDER", appErr.Code)
	assert.Equal(t, int32(5), store.stock["p-1"], "tender is rejected before any stock I/O")
	assert.Empty(t, store.recordedOrders())
}

func TestRecordInsufficientStockNamesTheLine(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 10
	store.stock["p-2"] = 1
	svc := newTestService(t, store, nil)

	_, err := svc.Record(context.Background(), "u-1", Input{
		Lines: []Line{
			{ProductID: "p-1", Name: "Nasi Goreng Spesial", Price: 25000, Qty: 1},
			{ProductID: "p-2", Name: "Es Jeruk", Price: 7000, Qty: 2},
		},
		Tendered: 50000,
	})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	assert.Equal(t, "insufficient stock for Es Jeruk", appErr.Message)
	assert.Equal(t, int32(10), store.stock["p-1"], "earlier decrements roll back")
	assert.Equal(t, int32(1), store.stock["p-2"])
	assert.Empty(t, store.recordedOrders())
}

func TestRecordConcurrentLastUnit(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 1
	svc := newTestService(t, store, nil)

	input := singleLine("p-1", "Nasi Goreng Spesial", 25000, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Record(context.Background(), "u-1", input)
		}(i)
	}
	wg.Wait()

	var successes, stockFailures int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
		stockFailures++
	}
	assert.Equal(t, 1, successes, "exactly one checkout wins the last unit")
	assert.Equal(t, 1, stockFailures)
	assert.Equal(t, int32(0), store.stock["p-1"])
	assert.Len(t, store.recordedOrders(), 1)
}

func TestRecordMissingCashierRollsBack(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 5
	svc := newTestService(t, store, nil)

	_, err := svc.Record(context.Background(), "ghost", singleLine("p-1", "Es Teh Manis", 5000, 2))

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, int32(5), store.stock["p-1"])
	assert.Empty(t, store.recordedOrders())
}

func TestRecordInsertFailureRollsBack(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 5
	store.insertErr = errors.New("disk full")
	svc := newTestService(t, store, nil)

	_, err := svc.Record(context.Background(), "u-1", singleLine("p-1", "Es Teh Manis", 5000, 2))
	require.Error(t, err)
	assert.False(t, common.IsAppError(err))
	assert.Equal(t, int32(5), store.stock["p-1"])
	assert.Empty(t, store.recordedOrders())
}

func TestRecordValidation(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 5
	svc := newTestService(t, store, nil)

	cases := map[string]Input{
		"empty cart":     {Tendered: 1000},
		"zero quantity":  {Lines: []Line{{ProductID: "p-1", Name: "X", Price: 1000, Qty: 0}}, Tendered: 1000},
		"negative price": {Lines: []Line{{ProductID: "p-1", Name: "X", Price: -1, Qty: 1}}, Tendered: 1000},
		"no product id":  {Lines: []Line{{Name: "X", Price: 1000, Qty: 1}}, Tendered: 1000},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), "u-1", input)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
	assert.Equal(t, int32(5), store.stock["p-1"])
}

func TestRecordLowStockAlert(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 6
	enq := &memEnqueuer{}
	svc := newTestService(t, store, enq)

	_, err := svc.Record(context.Background(), "u-1", singleLine("p-1", "Es Jeruk", 7000, 2))
	require.NoError(t, err)
	require.Len(t, enq.calls, 1)
	assert.Equal(t, "Es Jeruk:4", enq.calls[0])
}

func TestRecordEnqueueFailureDoesNotFailSale(t *testing.T) {
	store := newMemStore()
	store.stock["p-1"] = 1
	enq := &memEnqueuer{err: errors.New("queue down")}
	svc := newTestService(t, store, enq)

	order, err := svc.Record(context.Background(), "u-1", singleLine("p-1", "Es Jeruk", 7000, 1))
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Len(t, store.recordedOrders(), 1)
}

func TestRecordWithoutStockTracking(t *testing.T) {
	store := newMemStore()
	// no stock rows at all: tracking disabled must not touch them
	svc, err := NewService(Config{Store: store, Logger: zerolog.Nop(), StockTracking: false})
	require.NoError(t, err)

	order, err := svc.Record(context.Background(), "u-1", singleLine("p-404", "Kopi", 10000, 2))
	require.NoError(t, err)
	assert.Equal(t, pricing.Money(20000), order.Total)
	assert.Len(t, store.recordedOrders(), 1)
}
