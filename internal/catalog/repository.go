package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haroonshop/storefront-backend/pkg/db/models"
	"github.com/haroonshop/storefront-backend/pkg/pagination"
)

// ProductRepository encapsulates product persistence.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository binds the repository to the provided GORM handle.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository {
	if tx == nil {
		return r
	}
	return &ProductRepository{db: tx}
}

// FindByID returns the product with its category preloaded.
func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListFilter narrows a product listing.
type ListFilter struct {
	CategoryID *uuid.UUID
	ActiveOnly bool
}

// List returns a page of products ordered by newest first. The query fetches
// one row beyond the limit so callers can detect whether a next page exists.
func (r *ProductRepository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Product, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Preload("Category").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create inserts the provided product.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update saves the provided product.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes the product row.
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DebitStock atomically moves qty units from stock to sold. The decrement is
// guarded in the WHERE clause so stock can never go below zero; a zero
// rows-affected result means the guard rejected the debit.
func (r *ProductRepository) DebitStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumns(map[string]interface{}{
			"stock": gorm.Expr("stock - ?", qty),
			"sold":  gorm.Expr("sold + ?", qty),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DebitStockBulk applies every guarded debit in a single statement by joining
// the products table against a VALUES list. Lines whose guard fails are simply
// not matched, so the rows-affected count tells the caller whether every line
// went through. Postgres only; sqlite takes the per-line path in the service.
func (r *ProductRepository) DebitStockBulk(ctx context.Context, lines []StockLine) (int64, error) {
	stmt, args := bulkDebitStatement(lines)
	result := r.db.WithContext(ctx).Exec(stmt, args...)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func bulkDebitStatement(lines []StockLine) (string, []interface{}) {
	var tuples strings.Builder
	args := make([]interface{}, 0, len(lines)*2)
	for i, line := range lines {
		if i > 0 {
			tuples.WriteString(", ")
		}
		tuples.WriteString("(?::uuid, ?::int)")
		args = append(args, line.ProductID, line.Qty)
	}
	stmt := "UPDATE products SET stock = products.stock - v.qty, sold = products.sold + v.qty" +
		" FROM (VALUES " + tuples.String() + ") AS v(id, qty)" +
		" WHERE products.id = v.id AND products.stock >= v.qty"
	return stmt, args
}

// RestockQty returns qty units from sold back to stock.
func (r *ProductRepository) RestockQty(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]interface{}{
			"stock": gorm.Expr("stock + ?", qty),
			"sold":  gorm.Expr("sold - ?", qty),
		}).Error
}

// CategoryRepository encapsulates category persistence.
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository binds the repository to the provided GORM handle.
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *CategoryRepository) WithTx(tx *gorm.DB) *CategoryRepository {
	if tx == nil {
		return r
	}
	return &CategoryRepository{db: tx}
}

// FindByID returns the category by primary key.
func (r *CategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindBySlug returns the category with the given slug.
func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListAll returns every category ordered by name.
func (r *CategoryRepository) ListAll(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Create inserts the provided category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}
