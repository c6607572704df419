package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/pricing"
)

// ErrNotFound indicates the requested category or product does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrDuplicateName indicates a unique-name collision on insert or update.
var ErrDuplicateName = errors.New("catalog: name already exists")

// Category is a product grouping shown as a filter tab on the terminal.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Product is a sellable item.
type Product struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Price      pricing.Money `json:"price"`
	Stock      int32         `json:"stock"`
	CategoryID string        `json:"categoryId"`
	ImageURL   string        `json:"imageUrl"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	Name       string
	Price      pricing.Money
	Stock      int32
	CategoryID string
	ImageURL   string
}

// ListParams filters the product listing.
type ListParams struct {
	Query      string
	CategoryID string
	Page       int
	Limit      int
}

// Store is the persistence surface the service depends on.
type Store interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (Category, error)
	UpdateCategory(ctx context.Context, id, name string) (Category, error)
	// DeleteCategoryCascade removes the category and every product in it
	// inside one transaction, returning how many products went with it.
	DeleteCategoryCascade(ctx context.Context, id string) (int64, error)

	ListProducts(ctx context.Context, params ListParams) ([]Product, int64, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id string, input ProductInput) (Product, error)
	DeleteProduct(ctx context.Context, id string) error
	BulkInsertProducts(ctx context.Context, inputs []ProductInput) (int, error)
}

// Service orchestrates catalog reads/writes and the redis read cache.
type Service struct {
	Store  Store
	Cache  *Cache
	Logger zerolog.Logger

	maxLimit int
}

// NewService constructs a Service.
func NewService(store Store, cache *Cache, logger zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{Store: store, Cache: cache, Logger: logger, maxLimit: 100}, nil
}

// Categories lists all categories, cache-first.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	key := s.Cache.Key(ctx, "categories")
	var cached []Category
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	} else if err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache read failed")
	}
	categories, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, key, categories); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return categories, nil
}

// CreateCategory inserts a category, surfacing duplicates as 409.
func (s *Service) CreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, common.NewAppError("VALIDATION_ERROR", "category name is required", http.StatusBadRequest, nil)
	}
	category, err := s.Store.CreateCategory(ctx, name)
	if err != nil {
		return Category{}, s.mapWriteError(err, "category")
	}
	s.invalidate(ctx)
	return category, nil
}

// UpdateCategory renames a category.
func (s *Service) UpdateCategory(ctx context.Context, id, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, common.NewAppError("VALIDATION_ERROR", "category name is required", http.StatusBadRequest, nil)
	}
	category, err := s.Store.UpdateCategory(ctx, id, name)
	if err != nil {
		return Category{}, s.mapWriteError(err, "category")
	}
	s.invalidate(ctx)
	return category, nil
}

// DeleteCategory removes the category and all of its products.
func (s *Service) DeleteCategory(ctx context.Context, id string) (int64, error) {
	removed, err := s.Store.DeleteCategoryCascade(ctx, id)
	if err != nil {
		return 0, s.mapWriteError(err, "category")
	}
	s.invalidate(ctx)
	s.Logger.Info().Str("category_id", id).Int64("products_removed", removed).Msg("category deleted")
	return removed, nil
}

// Products lists products with optional category/name filters, cache-first.
func (s *Service) Products(ctx context.Context, params ListParams) ([]Product, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 50
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	params.Query = strings.TrimSpace(params.Query)
	params.CategoryID = strings.TrimSpace(params.CategoryID)

	key := s.Cache.Key(ctx, fmt.Sprintf("products:q=%s:c=%s:p=%d:l=%d", params.Query, params.CategoryID, params.Page, params.Limit))
	var cached productPage
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached.Items, cached.Total, nil
	} else if err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache read failed")
	}

	items, total, err := s.Store.ListProducts(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	if err := s.Cache.SetJSON(ctx, key, productPage{Items: items, Total: total}); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return items, total, nil
}

type productPage struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}

// GetProduct fetches one product by id, bypassing the cache.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	product, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Product{}, err
	}
	return product, nil
}

// CreateProduct inserts a product after validating its category reference.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	if err := validateProductInput(input); err != nil {
		return Product{}, err
	}
	product, err := s.Store.CreateProduct(ctx, input)
	if err != nil {
		return Product{}, s.mapWriteError(err, "product")
	}
	s.invalidate(ctx)
	return product, nil
}

// UpdateProduct replaces the writable fields of a product.
func (s *Service) UpdateProduct(ctx context.Context, id string, input ProductInput) (Product, error) {
	if err := validateProductInput(input); err != nil {
		return Product{}, err
	}
	product, err := s.Store.UpdateProduct(ctx, id, input)
	if err != nil {
		return Product{}, s.mapWriteError(err, "product")
	}
	s.invalidate(ctx)
	return product, nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Store.DeleteProduct(ctx, id); err != nil {
		return s.mapWriteError(err, "product")
	}
	s.invalidate(ctx)
	return nil
}

// BulkImport inserts many products in one transaction. The whole batch is
// rejected if any row is invalid.
func (s *Service) BulkImport(ctx context.Context, inputs []ProductInput) (int, error) {
	if len(inputs) == 0 {
		return 0, common.NewAppError("VALIDATION_ERROR", "no products to import", http.StatusBadRequest, nil)
	}
	for i, input := range inputs {
		if err := validateProductInput(input); err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				return 0, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("row %d: %s", i+1, appErr.Message), http.StatusBadRequest, nil)
			}
			return 0, err
		}
	}
	inserted, err := s.Store.BulkInsertProducts(ctx, inputs)
	if err != nil {
		return 0, s.mapWriteError(err, "product")
	}
	s.invalidate(ctx)
	s.Logger.Info().Int("count", inserted).Msg("bulk product import completed")
	return inserted, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

func (s *Service) mapWriteError(err error, entity string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("NOT_FOUND", entity+" not found", http.StatusNotFound, err)
	case errors.Is(err, ErrDuplicateName):
		return common.NewAppError("CONFLICT", entity+" name already exists", http.StatusConflict, err)
	default:
		return err
	}
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return common.NewAppError("VALIDATION_ERROR", "product name is required", http.StatusBadRequest, nil)
	}
	if input.Price < 0 {
		return common.NewAppError("VALIDATION_ERROR", "price must not be negative", http.StatusBadRequest, nil)
	}
	if input.Stock < 0 {
		return common.NewAppError("VALIDATION_ERROR", "stock must not be negative", http.StatusBadRequest, nil)
	}
	if strings.TrimSpace(input.CategoryID) == "" {
		return common.NewAppError("VALIDATION_ERROR", "category id is required", http.StatusBadRequest, nil)
	}
	return nil
}
