package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haroonshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/haroonshop/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type couponValidator interface {
	GetValidByName(ctx context.Context, name string) (*models.Coupon, error)
}

// Service exposes the per-user cart operations.
type Service interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
	ApplyCoupon(ctx context.Context, userID uuid.UUID, couponName string) (*models.Cart, error)
	RemoveCoupon(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	products productLoader
	coupons  couponValidator
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader, coupons couponValidator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon validator required")
	}
	return &service{repo: repo, tx: tx, products: products, coupons: coupons}, nil
}

// AddItem puts one unit of the product into the user's cart, creating the
// cart on first use. Repeated adds of the same product increment the existing
// line. The line's unit price is snapshotted from the catalog on first add
// and kept through later catalog price changes.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	var saved *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := txRepo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			cart, err = txRepo.Create(ctx, &models.Cart{UserID: userID})
			if err != nil {
				return err
			}
		}

		var existing *models.CartItem
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				existing = &cart.Items[i]
				break
			}
		}

		if existing != nil {
			if err := txRepo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+1); err != nil {
				return err
			}
		} else {
			item := &models.CartItem{
				CartID:         cart.ID,
				ProductID:      productID,
				Quantity:       1,
				UnitPriceCents: product.PriceCents,
			}
			if err := txRepo.CreateItem(ctx, item); err != nil {
				return err
			}
		}

		saved, err = s.recomputeAndSave(ctx, txRepo, userID)
		return err
	})
	if err != nil {
		return nil, wrapTxErr(err, "add cart item")
	}
	return saved, nil
}

// GetCart returns the user's cart or not-found.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

// UpdateItemQuantity replaces the quantity on an existing cart line.
func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var saved *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := txRepo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}

		item := findItem(cart, itemID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if err := txRepo.UpdateItemQuantity(ctx, item.ID, qty); err != nil {
			return err
		}

		saved, err = s.recomputeAndSave(ctx, txRepo, userID)
		return err
	})
	if err != nil {
		return nil, wrapTxErr(err, "update cart item")
	}
	return saved, nil
}

// RemoveItem deletes one line from the cart.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var saved *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := txRepo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}

		item := findItem(cart, itemID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if err := txRepo.DeleteItem(ctx, item.ID); err != nil {
			return err
		}

		saved, err = s.recomputeAndSave(ctx, txRepo, userID)
		return err
	})
	if err != nil {
		return nil, wrapTxErr(err, "remove cart item")
	}
	return saved, nil
}

// ClearCart deletes the user's cart entirely. Clearing a cart that does not
// exist succeeds, so the operation is idempotent.
func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteByUserID(ctx, userID)
	})
	if err != nil {
		return wrapTxErr(err, "clear cart")
	}
	return nil
}

// ApplyCoupon locks a percentage discount into the cart. The discounted
// total is recomputed from the current item total; any later cart mutation
// drops the discount so a stale one can never be charged.
func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, couponName string) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	coupon, err := s.coupons.GetValidByName(ctx, couponName)
	if err != nil {
		return nil, err
	}

	var saved *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := txRepo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		if cart.HasActiveDiscount() {
			return pkgerrors.New(pkgerrors.CodeValidation, "a discount is already applied, remove it first")
		}

		discounted := ApplyPercentDiscount(cart.TotalPriceCents, coupon.DiscountPercent)
		cart.TotalAfterDiscountCents = &discounted
		cart.CouponName = &coupon.Name
		if err := txRepo.SaveTotals(ctx, cart); err != nil {
			return err
		}

		saved, err = txRepo.FindByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, wrapTxErr(err, "apply coupon")
	}
	return saved, nil
}

// RemoveCoupon drops any applied discount from the cart.
func (s *service) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var saved *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := txRepo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}

		if !cart.HasActiveDiscount() {
			return pkgerrors.New(pkgerrors.CodeValidation, "no discount applied")
		}

		cart.TotalAfterDiscountCents = nil
		cart.CouponName = nil
		if err := txRepo.SaveTotals(ctx, cart); err != nil {
			return err
		}

		saved, err = txRepo.FindByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, wrapTxErr(err, "remove coupon")
	}
	return saved, nil
}

// recomputeAndSave reloads the cart, derives the item total and persists it.
// Every mutation funnels through here, so the stored total always matches the
// lines and any previously applied discount is dropped.
func (s *service) recomputeAndSave(ctx context.Context, txRepo *Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := txRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.TotalPriceCents = TotalCents(cart.Items)
	cart.TotalAfterDiscountCents = nil
	cart.CouponName = nil
	if err := txRepo.SaveTotals(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// TotalCents sums quantity times snapshot price across the cart lines.
func TotalCents(items []models.CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity * item.UnitPriceCents
	}
	return total
}

// ApplyPercentDiscount returns the total after the percentage discount,
// rounded half up to the nearest cent.
func ApplyPercentDiscount(totalCents, percent int) int {
	discounted := decimal.NewFromInt(int64(totalCents)).
		Mul(decimal.NewFromInt(int64(100 - percent))).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return int(discounted.IntPart())
}

func findItem(cart *models.Cart, itemID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

// wrapTxErr passes typed errors through untouched and tags everything else
// as a dependency failure.
func wrapTxErr(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
