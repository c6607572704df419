package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXQuerier implements Querier on top of Postgres.
type PGXQuerier struct {
	Pool *pgxpool.Pool
}

func NewPGXQuerier(pool *pgxpool.Pool) *PGXQuerier {
	return &PGXQuerier{Pool: pool}
}

func (q *PGXQuerier) DailyTotals(ctx context.Context, start, end time.Time) ([]DayRow, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT date_trunc('day', created_at) AS day, sum(total), count(*)
		 FROM orders
		 WHERE created_at >= $1 AND created_at <= $2
		 GROUP BY 1 ORDER BY 1`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	out := make([]DayRow, 0)
	for rows.Next() {
		var row DayRow
		if err := rows.Scan(&row.Day, &row.Total, &row.Count); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TopItems ranks line items by summed quantity. Ties are broken by the first
// sale then the name so repeated runs return the same order.
func (q *PGXQuerier) TopItems(ctx context.Context, start, end time.Time, limit int) ([]TopItem, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT i.product_id, i.name, sum(i.qty)::bigint, sum(i.price * i.qty)::bigint
		 FROM order_items i
		 JOIN orders o ON o.id = i.order_id
		 WHERE o.created_at >= $1 AND o.created_at <= $2
		 GROUP BY i.product_id, i.name
		 ORDER BY sum(i.qty) DESC, min(o.created_at) ASC, i.name ASC
		 LIMIT $3`,
		start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	defer rows.Close()

	out := make([]TopItem, 0)
	for rows.Next() {
		var item TopItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.Revenue); err != nil {
			return nil, fmt.Errorf("scan top item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
