package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/haroonshop/storefront-backend/pkg/db"
	"github.com/haroonshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/haroonshop/storefront-backend/pkg/errors"
	"github.com/haroonshop/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client, err := db.NewTestClient()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	svc, err := NewService(NewProductRepository(client.DB()), NewCategoryRepository(client.DB()))
	require.NoError(t, err)
	return svc, client
}

func seedCategory(t *testing.T, client *db.Client, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: name}
	require.NoError(t, client.DB().Create(category).Error)
	return category
}

func seedProduct(t *testing.T, client *db.Client, categoryID uuid.UUID, priceCents, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Title:       "widget",
		Description: "a widget",
		PriceCents:  priceCents,
		Stock:       stock,
		CategoryID:  categoryID,
		OwnerID:     uuid.New(),
		IsActive:    true,
	}
	require.NoError(t, client.DB().Create(product).Error)
	return product
}

func TestCreateProductValidation(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	category := seedCategory(t, client, "snacks")

	_, err := svc.CreateProduct(ctx, CreateProductInput{
		Title:      "",
		PriceCents: 100,
		CategoryID: category.ID,
		OwnerID:    uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Title:      "tea",
		PriceCents: 0,
		CategoryID: category.ID,
		OwnerID:    uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Title:      "tea",
		PriceCents: 100,
		CategoryID: uuid.New(),
		OwnerID:    uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Title:      "  tea  ",
		PriceCents: 100,
		Stock:      3,
		CategoryID: category.ID,
		OwnerID:    uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, "tea", created.Title)
	assert.True(t, created.IsActive)
}

func TestGetProductNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetProduct(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateProductPartialFields(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	category := seedCategory(t, client, "snacks")
	product := seedProduct(t, client, category.ID, 500, 10)

	newPrice := 750
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{PriceCents: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, 750, updated.PriceCents)
	assert.Equal(t, product.Title, updated.Title)
	assert.Equal(t, 10, updated.Stock)

	negative := -1
	_, err = svc.UpdateProduct(ctx, product.ID, UpdateProductInput{Stock: &negative})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeleteProduct(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	category := seedCategory(t, client, "snacks")
	product := seedProduct(t, client, category.ID, 500, 10)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))

	err := svc.DeleteProduct(ctx, product.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListProductsPagination(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	category := seedCategory(t, client, "snacks")
	for i := 0; i < 5; i++ {
		seedProduct(t, client, category.ID, 100+i, 1)
	}

	page, err := svc.ListProducts(ctx, ListProductsInput{
		Pagination: pagination.Params{Limit: 3},
	})
	require.NoError(t, err)
	assert.Len(t, page.Products, 3)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.ListProducts(ctx, ListProductsInput{
		Pagination: pagination.Params{Limit: 3, Cursor: page.NextCursor},
	})
	require.NoError(t, err)
	assert.Len(t, rest.Products, 2)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, p := range append(page.Products, rest.Products...) {
		assert.False(t, seen[p.ID], "product %s returned twice", p.ID)
		seen[p.ID] = true
	}
}

func TestListProductsFiltersByCategory(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	snacks := seedCategory(t, client, "snacks")
	drinks := seedCategory(t, client, "drinks")
	seedProduct(t, client, snacks.ID, 100, 1)
	seedProduct(t, client, drinks.ID, 200, 1)

	page, err := svc.ListProducts(ctx, ListProductsInput{CategoryID: &drinks.ID})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, drinks.ID, page.Products[0].CategoryID)
}

func TestDebitStockBulkGuardsAgainstOverselling(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	category := seedCategory(t, client, "snacks")
	product := seedProduct(t, client, category.ID, 500, 5)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.DebitStockBulk(ctx, tx, []StockLine{{ProductID: product.ID, Qty: 3}})
	})
	require.NoError(t, err)

	var reloaded models.Product
	require.NoError(t, client.DB().First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.Stock)
	assert.Equal(t, 3, reloaded.Sold)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.DebitStockBulk(ctx, tx, []StockLine{{ProductID: product.ID, Qty: 4}})
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	require.NoError(t, client.DB().First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.Stock)
	assert.Equal(t, 3, reloaded.Sold)
}

func TestDebitStockBulkRollsBackEarlierLines(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	category := seedCategory(t, client, "snacks")
	first := seedProduct(t, client, category.ID, 500, 5)
	second := seedProduct(t, client, category.ID, 300, 1)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.DebitStockBulk(ctx, tx, []StockLine{
			{ProductID: first.ID, Qty: 2},
			{ProductID: second.ID, Qty: 2},
		})
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	var reloaded models.Product
	require.NoError(t, client.DB().First(&reloaded, "id = ?", first.ID).Error)
	assert.Equal(t, 5, reloaded.Stock, "first line must be rolled back with the failed one")
	assert.Equal(t, 0, reloaded.Sold)
}

func TestBulkDebitStatementJoinsAllLines(t *testing.T) {
	lines := []StockLine{
		{ProductID: uuid.New(), Qty: 2},
		{ProductID: uuid.New(), Qty: 7},
		{ProductID: uuid.New(), Qty: 1},
	}

	stmt, args := bulkDebitStatement(lines)

	assert.Equal(t, 3, strings.Count(stmt, "(?::uuid, ?::int)"))
	assert.Contains(t, stmt, "FROM (VALUES")
	assert.Contains(t, stmt, "products.stock >= v.qty")
	require.Len(t, args, 6)
	assert.Equal(t, lines[0].ProductID, args[0])
	assert.Equal(t, 2, args[1])
	assert.Equal(t, lines[2].ProductID, args[4])
	assert.Equal(t, 1, args[5])
}

func TestRestockBulkReversesDebit(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	category := seedCategory(t, client, "snacks")
	product := seedProduct(t, client, category.ID, 500, 5)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.DebitStockBulk(ctx, tx, []StockLine{{ProductID: product.ID, Qty: 4}}); err != nil {
			return err
		}
		return svc.RestockBulk(ctx, tx, []StockLine{{ProductID: product.ID, Qty: 4}})
	})
	require.NoError(t, err)

	var reloaded models.Product
	require.NoError(t, client.DB().First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 5, reloaded.Stock)
	assert.Equal(t, 0, reloaded.Sold)
}

func TestCreateCategorySlugConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, CreateCategoryInput{Name: "Cold Drinks"})
	require.NoError(t, err)
	assert.Equal(t, "cold-drinks", created.Slug)

	_, err = svc.CreateCategory(ctx, CreateCategoryInput{Name: "Cold Drinks"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}
