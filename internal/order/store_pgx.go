package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXQuerier implements Querier on top of Postgres.
type PGXQuerier struct {
	Pool *pgxpool.Pool
}

func NewPGXQuerier(pool *pgxpool.Pool) *PGXQuerier {
	return &PGXQuerier{Pool: pool}
}

const orderColumns = `id, subtotal, discount, total, amount_paid, change, cashier_id, cashier_username, created_at`

func (q *PGXQuerier) ListOrders(ctx context.Context, params ListParams) ([]Order, int64, error) {
	where := ` WHERE ($1::timestamptz IS NULL OR created_at >= $1)
	             AND ($2::timestamptz IS NULL OR created_at <= $2)`
	var start, end any
	if !params.Start.IsZero() {
		start = params.Start
	}
	if !params.End.IsZero() {
		end = params.End
	}

	var total int64
	if err := q.Pool.QueryRow(ctx, `SELECT count(*) FROM orders`+where, start, end).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	offset := (params.Page - 1) * params.Limit
	rows, err := q.Pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders`+where+` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
		start, end, params.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := q.attachItems(ctx, orders, ids); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (q *PGXQuerier) GetOrder(ctx context.Context, id string) (Order, error) {
	row := q.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	orders := []Order{o}
	if err := q.attachItems(ctx, orders, []string{id}); err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func (q *PGXQuerier) attachItems(ctx context.Context, orders []Order, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := q.Pool.Query(ctx,
		`SELECT order_id, product_id, name, price, qty, image_url, position
		 FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`,
		ids)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]int, len(orders))
	for i := range orders {
		orders[i].Items = make([]Item, 0)
		byID[orders[i].ID] = i
	}
	for rows.Next() {
		var orderID string
		var item Item
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Qty, &item.ImageURL, &item.Position); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := byID[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Subtotal, &o.Discount, &o.Total, &o.AmountPaid, &o.Change,
		&o.CashierID, &o.CashierUsername, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}
