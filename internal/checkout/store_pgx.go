package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXStore opens checkout transactions against Postgres.
type PGXStore struct {
	Pool *pgxpool.Pool
}

func NewPGXStore(pool *pgxpool.Pool) *PGXStore {
	return &PGXStore{Pool: pool}
}

func (s *PGXStore) Begin(ctx context.Context) (RecorderTx, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &pgxRecorderTx{tx: tx}, nil
}

type pgxRecorderTx struct {
	tx pgx.Tx
}

// DecrementStock folds the re-check and the decrement into one statement so
// concurrent checkouts for the last unit cannot both pass.
func (t *pgxRecorderTx) DecrementStock(ctx context.Context, productID string, qty int) (int32, error) {
	var remaining int32
	err := t.tx.QueryRow(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now()
		 WHERE id = $1 AND stock >= $2
		 RETURNING stock`,
		productID, qty).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	// Zero rows means either the product is gone or stock ran out; look the
	// row up to tell the two apart.
	var exists bool
	if lookupErr := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); lookupErr != nil {
		return 0, fmt.Errorf("inspect product: %w", lookupErr)
	}
	if !exists {
		return 0, ErrProductNotFound
	}
	return 0, ErrInsufficientStock
}

func (t *pgxRecorderTx) GetCashier(ctx context.Context, id string) (Cashier, error) {
	var c Cashier
	err := t.tx.QueryRow(ctx, `SELECT id, username FROM users WHERE id = $1`, id).Scan(&c.ID, &c.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cashier{}, ErrCashierNotFound
		}
		return Cashier{}, fmt.Errorf("get cashier: %w", err)
	}
	return c, nil
}

func (t *pgxRecorderTx) InsertOrder(ctx context.Context, order Order) (Order, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO orders (subtotal, discount, total, amount_paid, change, cashier_id, cashier_username)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		order.Subtotal, order.Discount, order.Total, order.AmountPaid, order.Change,
		order.CashierID, order.CashierUsername).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range order.Items {
		batch.Queue(
			`INSERT INTO order_items (order_id, product_id, name, price, qty, image_url, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, item.ProductID, item.Name, item.Price, item.Qty, item.ImageURL, item.Position)
	}
	results := t.tx.SendBatch(ctx, batch)
	for range order.Items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return Order{}, fmt.Errorf("close order item batch: %w", err)
	}
	return order, nil
}

func (t *pgxRecorderTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxRecorderTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
