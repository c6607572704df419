package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"
const foreignKeyViolation = "23503"

// PGXStore implements Store on top of Postgres.
type PGXStore struct {
	Pool *pgxpool.Pool
}

func NewPGXStore(pool *pgxpool.Pool) *PGXStore {
	return &PGXStore{Pool: pool}
}

const categoryColumns = `id, name, created_at`

func (s *PGXStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PGXStore) CreateCategory(ctx context.Context, name string) (Category, error) {
	row := s.Pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING `+categoryColumns, name)
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return Category{}, mapPGError(err, "insert category")
	}
	return c, nil
}

func (s *PGXStore) UpdateCategory(ctx context.Context, id, name string) (Category, error) {
	row := s.Pool.QueryRow(ctx, `UPDATE categories SET name = $2 WHERE id = $1 RETURNING `+categoryColumns, id, name)
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return Category{}, mapPGError(err, "update category")
	}
	return c, nil
}

func (s *PGXStore) DeleteCategoryCascade(ctx context.Context, id string) (int64, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin delete category: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	products, err := tx.Exec(ctx, `DELETE FROM products WHERE category_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete category products: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit delete category: %w", err)
	}
	return products.RowsAffected(), nil
}

const productColumns = `id, name, price, stock, category_id, image_url, created_at, updated_at`

func (s *PGXStore) ListProducts(ctx context.Context, params ListParams) ([]Product, int64, error) {
	where := ` WHERE ($1 = '' OR name ILIKE '%' || $1 || '%') AND ($2 = '' OR category_id::text = $2)`
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, params.Query, params.CategoryID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	offset := (params.Page - 1) * params.Limit
	rows, err := s.Pool.Query(ctx,
		`SELECT `+productColumns+` FROM products`+where+` ORDER BY name, id LIMIT $3 OFFSET $4`,
		params.Query, params.CategoryID, params.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (s *PGXStore) GetProduct(ctx context.Context, id string) (Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapPGError(err, "get product")
	}
	return p, nil
}

func (s *PGXStore) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	row := s.Pool.QueryRow(ctx,
		`INSERT INTO products (name, price, stock, category_id, image_url)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+productColumns,
		input.Name, input.Price, input.Stock, input.CategoryID, input.ImageURL)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapPGError(err, "insert product")
	}
	return p, nil
}

func (s *PGXStore) UpdateProduct(ctx context.Context, id string, input ProductInput) (Product, error) {
	row := s.Pool.QueryRow(ctx,
		`UPDATE products SET name = $2, price = $3, stock = $4, category_id = $5, image_url = $6, updated_at = now()
		 WHERE id = $1 RETURNING `+productColumns,
		id, input.Name, input.Price, input.Stock, input.CategoryID, input.ImageURL)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapPGError(err, "update product")
	}
	return p, nil
}

func (s *PGXStore) DeleteProduct(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGXStore) BulkInsertProducts(ctx context.Context, inputs []ProductInput) (int, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin bulk import: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, input := range inputs {
		batch.Queue(
			`INSERT INTO products (name, price, stock, category_id, image_url) VALUES ($1, $2, $3, $4, $5)`,
			input.Name, input.Price, input.Stock, input.CategoryID, input.ImageURL)
	}
	results := tx.SendBatch(ctx, batch)
	for range inputs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, mapPGError(err, "bulk insert product")
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close bulk import batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit bulk import: %w", err)
	}
	return len(inputs), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CategoryID, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func mapPGError(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicateName
		case foreignKeyViolation:
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
