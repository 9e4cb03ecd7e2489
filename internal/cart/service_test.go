package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haroonshop/storefront-backend/internal/catalog"
	"github.com/haroonshop/storefront-backend/internal/coupons"
	"github.com/haroonshop/storefront-backend/pkg/db"
	"github.com/haroonshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/haroonshop/storefront-backend/pkg/errors"
)

type cartFixture struct {
	svc     Service
	catalog catalog.Service
	coupons coupons.Service
	client  *db.Client
	userID  uuid.UUID
}

func newFixture(t *testing.T) *cartFixture {
	t.Helper()
	client, err := db.NewTestClient()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	catalogSvc, err := catalog.NewService(
		catalog.NewProductRepository(client.DB()),
		catalog.NewCategoryRepository(client.DB()),
	)
	require.NoError(t, err)

	couponSvc, err := coupons.NewService(coupons.NewRepository(client.DB()))
	require.NoError(t, err)

	svc, err := NewService(NewRepository(client.DB()), client, catalogSvc, couponSvc)
	require.NoError(t, err)

	return &cartFixture{
		svc:     svc,
		catalog: catalogSvc,
		coupons: couponSvc,
		client:  client,
		userID:  uuid.New(),
	}
}

func (f *cartFixture) seedProduct(t *testing.T, priceCents, stock int) *models.Product {
	t.Helper()
	category := &models.Category{Name: "stuff", Slug: uuid.NewString()}
	require.NoError(t, f.client.DB().Create(category).Error)
	product := &models.Product{
		Title:       "gadget",
		Description: "a gadget",
		PriceCents:  priceCents,
		Stock:       stock,
		CategoryID:  category.ID,
		OwnerID:     uuid.New(),
		IsActive:    true,
	}
	require.NoError(t, f.client.DB().Create(product).Error)
	return product
}

func (f *cartFixture) seedCoupon(t *testing.T, name string, percent int) *models.Coupon {
	t.Helper()
	coupon, err := f.coupons.Create(context.Background(), coupons.CreateInput{
		Name:            name,
		DiscountPercent: percent,
		ExpiresAt:       time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return coupon
}

func TestAddItemCreatesCartWithSnapshotPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1000, 5)

	cart, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, 1000, cart.Items[0].UnitPriceCents)
	assert.Equal(t, 1000, cart.TotalPriceCents)
	assert.Nil(t, cart.TotalAfterDiscountCents)
}

func TestAddItemMergesRepeatedAdds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1000, 5)

	_, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1, "repeated add must merge into one line")
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 2000, cart.TotalPriceCents)
}

func TestAddItemKeepsPriceSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1000, 5)

	_, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)

	newPrice := 9999
	_, err = f.catalog.UpdateProduct(ctx, product.ID, catalog.UpdateProductInput{PriceCents: &newPrice})
	require.NoError(t, err)

	cart, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, cart.Items[0].UnitPriceCents, "line keeps the price from first add")
	assert.Equal(t, 2000, cart.TotalPriceCents)
}

func TestAddItemRejectsMissingAndInactiveProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.userID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	product := f.seedProduct(t, 1000, 5)
	inactive := false
	_, err = f.catalog.UpdateProduct(ctx, product.ID, catalog.UpdateProductInput{IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, f.userID, product.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetCartNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetCart(context.Background(), f.userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateItemQuantityRecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 250, 10)

	cart, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)

	cart, err = f.svc.UpdateItemQuantity(ctx, f.userID, cart.Items[0].ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.Equal(t, 1000, cart.TotalPriceCents)

	_, err = f.svc.UpdateItemQuantity(ctx, f.userID, cart.Items[0].ID, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.UpdateItemQuantity(ctx, f.userID, uuid.New(), 2)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRemoveItemRecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.seedProduct(t, 1000, 5)
	second := f.seedProduct(t, 500, 5)

	_, err := f.svc.AddItem(ctx, f.userID, first.ID)
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, f.userID, second.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	var secondLine uuid.UUID
	for _, item := range cart.Items {
		if item.ProductID == second.ID {
			secondLine = item.ID
		}
	}

	cart, err = f.svc.RemoveItem(ctx, f.userID, secondLine)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1000, cart.TotalPriceCents)
}

func TestClearCartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1000, 5)

	_, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearCart(ctx, f.userID))
	require.NoError(t, f.svc.ClearCart(ctx, f.userID), "clearing a missing cart must succeed")

	_, err = f.svc.GetCart(ctx, f.userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestApplyCouponComputesDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1005, 10)
	f.seedCoupon(t, "QUARTER", 25)

	_, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)

	cart, err := f.svc.ApplyCoupon(ctx, f.userID, "quarter")
	require.NoError(t, err)
	require.NotNil(t, cart.TotalAfterDiscountCents)
	// 1005 * 0.75 = 753.75, rounds half up to 754
	assert.Equal(t, 754, *cart.TotalAfterDiscountCents)
	require.NotNil(t, cart.CouponName)
	assert.Equal(t, "QUARTER", *cart.CouponName)
}

func TestApplyCouponRejectsExpiredOrUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1000, 5)

	_, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)

	_, err = f.svc.ApplyCoupon(ctx, f.userID, "NOPE")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestApplyCouponRequiresNonEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCoupon(t, "EMPTY", 20)

	_, err := f.svc.ApplyCoupon(ctx, f.userID, "EMPTY")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	product := f.seedProduct(t, 1000, 5)
	cart, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)
	_, err = f.svc.RemoveItem(ctx, f.userID, cart.Items[0].ID)
	require.NoError(t, err)

	_, err = f.svc.ApplyCoupon(ctx, f.userID, "EMPTY")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestApplyCouponRejectsSecondDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1000, 10)
	f.seedCoupon(t, "FIRST", 20)
	f.seedCoupon(t, "SECOND", 30)

	_, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)
	cart, err := f.svc.ApplyCoupon(ctx, f.userID, "FIRST")
	require.NoError(t, err)
	require.NotNil(t, cart.TotalAfterDiscountCents)

	_, err = f.svc.ApplyCoupon(ctx, f.userID, "SECOND")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	refreshed, err := f.svc.GetCart(ctx, f.userID)
	require.NoError(t, err)
	require.NotNil(t, refreshed.TotalAfterDiscountCents)
	assert.Equal(t, *cart.TotalAfterDiscountCents, *refreshed.TotalAfterDiscountCents, "first discount must survive the rejected apply")
}

func TestCartMutationDropsDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1000, 10)
	f.seedCoupon(t, "DROPME", 50)

	_, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)
	cart, err := f.svc.ApplyCoupon(ctx, f.userID, "DROPME")
	require.NoError(t, err)
	require.NotNil(t, cart.TotalAfterDiscountCents)

	cart, err = f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)
	assert.Nil(t, cart.TotalAfterDiscountCents, "mutation must drop the stale discount")
	assert.Nil(t, cart.CouponName)
	assert.Equal(t, 2000, cart.TotalPriceCents)
}

func TestRemoveCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1000, 10)
	f.seedCoupon(t, "TEMP", 30)

	_, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)
	_, err = f.svc.ApplyCoupon(ctx, f.userID, "TEMP")
	require.NoError(t, err)

	cart, err := f.svc.RemoveCoupon(ctx, f.userID)
	require.NoError(t, err)
	assert.Nil(t, cart.TotalAfterDiscountCents)
	assert.Nil(t, cart.CouponName)
	assert.Equal(t, 1000, cart.TotalPriceCents)
}

func TestRemoveCouponRequiresActiveDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 1000, 10)

	_, err := f.svc.AddItem(ctx, f.userID, product.ID)
	require.NoError(t, err)

	_, err = f.svc.RemoveCoupon(ctx, f.userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestApplyPercentDiscountRounding(t *testing.T) {
	assert.Equal(t, 754, ApplyPercentDiscount(1005, 25))
	assert.Equal(t, 500, ApplyPercentDiscount(1000, 50))
	assert.Equal(t, 0, ApplyPercentDiscount(0, 25))
	assert.Equal(t, 1, ApplyPercentDiscount(1, 10)) // 0.9 rounds up
}

func TestTotalCents(t *testing.T) {
	items := []models.CartItem{
		{Quantity: 2, UnitPriceCents: 1000},
		{Quantity: 1, UnitPriceCents: 500},
	}
	assert.Equal(t, 2500, TotalCents(items))
	assert.Equal(t, 0, TotalCents(nil))
}
