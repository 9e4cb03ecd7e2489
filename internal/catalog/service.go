package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haroonshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/haroonshop/storefront-backend/pkg/errors"
	"github.com/haroonshop/storefront-backend/pkg/pagination"
)

// StockLine names one product and a unit count for a bulk stock movement.
type StockLine struct {
	ProductID uuid.UUID
	Qty       int
}

// Service exposes catalog reads, admin catalog writes and the stock
// movements used by checkout and order cancellation.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductPage, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)

	DebitStockBulk(ctx context.Context, tx *gorm.DB, lines []StockLine) error
	RestockBulk(ctx context.Context, tx *gorm.DB, lines []StockLine) error
}

type service struct {
	products   *ProductRepository
	categories *CategoryRepository
}

// NewService builds a catalog service backed by the provided repositories.
func NewService(products *ProductRepository, categories *CategoryRepository) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{products: products, categories: categories}, nil
}

// ListProductsInput filters and paginates a product listing.
type ListProductsInput struct {
	CategoryID *uuid.UUID
	Pagination pagination.Params
}

// ProductPage is one page of a product listing plus the cursor for the next.
type ProductPage struct {
	Products   []models.Product
	NextCursor string
}

// CreateProductInput captures the payload for a new catalog listing.
type CreateProductInput struct {
	Title       string
	Description string
	PriceCents  int
	Stock       int
	Image       *string
	CategoryID  uuid.UUID
	OwnerID     uuid.UUID
}

// UpdateProductInput carries optional field updates; nil means unchanged.
type UpdateProductInput struct {
	Title       *string
	Description *string
	PriceCents  *int
	Stock       *int
	Image       *string
	CategoryID  *uuid.UUID
	IsActive    *bool
}

// CreateCategoryInput captures the payload for a new category.
type CreateCategoryInput struct {
	Name string
	Slug string
}

// GetProduct returns a single product or not-found.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// ListProducts returns active products, newest first, with cursor pagination.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductPage, error) {
	limit := pagination.NormalizeLimit(input.Pagination.Limit)

	products, err := s.products.List(ctx, ListFilter{
		CategoryID: input.CategoryID,
		ActiveOnly: true,
	}, input.Pagination)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	page := &ProductPage{Products: products}
	if len(products) > limit {
		page.Products = products[:limit]
		last := page.Products[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// CreateProduct validates and inserts a new listing.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product title is required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product stock cannot be negative")
	}
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}

	if _, err := s.categories.FindByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	product := &models.Product{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		PriceCents:  input.PriceCents,
		Stock:       input.Stock,
		Image:       input.Image,
		CategoryID:  input.CategoryID,
		OwnerID:     input.OwnerID,
		IsActive:    true,
	}
	created, err := s.products.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

// UpdateProduct applies the provided field changes to an existing listing.
func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product title cannot be empty")
		}
		product.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.PriceCents != nil {
		if *input.PriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
		}
		product.PriceCents = *input.PriceCents
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product stock cannot be negative")
		}
		product.Stock = *input.Stock
	}
	if input.Image != nil {
		product.Image = input.Image
	}
	if input.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		product.CategoryID = *input.CategoryID
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return updated, nil
}

// DeleteProduct removes a listing from the catalog.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// CreateCategory validates and inserts a new category.
func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		slug = slugify(name)
	}

	if _, err := s.categories.FindBySlug(ctx, slug); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	created, err := s.categories.Create(ctx, &models.Category{Name: name, Slug: slug})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return created, nil
}

// ListCategories returns every category.
func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

// DebitStockBulk debits every line inside the caller's transaction. Each
// debit is guarded against stock going negative. On Postgres the whole batch
// goes down in one statement; a rows-affected shortfall means at least one
// guard rejected its line and the caller rolls back. The per-line path serves
// sqlite and also names the offending product in its error.
func (s *service) DebitStockBulk(ctx context.Context, tx *gorm.DB, lines []StockLine) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stock debit requires a transaction")
	}
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock debit quantity must be positive")
		}
	}
	repo := s.products.WithTx(tx)

	if len(lines) > 1 && tx.Dialector.Name() == "postgres" {
		affected, err := repo.DebitStockBulk(ctx, lines)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit stock")
		}
		if affected != int64(len(lines)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
		}
		return nil
	}

	for _, line := range lines {
		ok, err := repo.DebitStock(ctx, line.ProductID, line.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit stock")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("insufficient stock for product %s", line.ProductID))
		}
	}
	return nil
}

// RestockBulk reverses prior debits inside the caller's transaction.
func (s *service) RestockBulk(ctx context.Context, tx *gorm.DB, lines []StockLine) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "restock requires a transaction")
	}
	repo := s.products.WithTx(tx)
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
		}
		if err := repo.RestockQty(ctx, line.ProductID, line.Qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock")
		}
	}
	return nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}
