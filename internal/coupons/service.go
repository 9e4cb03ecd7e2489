package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haroonshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/haroonshop/storefront-backend/pkg/errors"
)

const (
	// MinDiscountPercent and MaxDiscountPercent bound every coupon.
	MinDiscountPercent = 10
	MaxDiscountPercent = 50
)

// ErrInvalidCoupon is the single public failure for coupon redemption.
// Unknown and expired names both map to it.
var ErrInvalidCoupon = pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid or has expired")

// Service exposes admin coupon management plus validation for redemption.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// GetValidByName resolves a redeemable coupon or returns ErrInvalidCoupon.
	GetValidByName(ctx context.Context, name string) (*models.Coupon, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService builds a coupon service backed by the provided repository.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// CreateInput captures the payload for a new coupon.
type CreateInput struct {
	Name            string
	DiscountPercent int
	ExpiresAt       time.Time
}

// UpdateInput carries optional field updates; nil means unchanged.
type UpdateInput struct {
	DiscountPercent *int
	ExpiresAt       *time.Time
}

// Create validates and inserts a new coupon. Names are normalized to upper
// case so redemption is case-insensitive.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	name := normalizeName(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon name is required")
	}
	if err := validateDiscount(input.DiscountPercent); err != nil {
		return nil, err
	}
	if !input.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon expiry must be in the future")
	}

	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon name already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	created, err := s.repo.Create(ctx, &models.Coupon{
		Name:            name,
		DiscountPercent: input.DiscountPercent,
		ExpiresAt:       input.ExpiresAt,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return created, nil
}

// Get returns a single coupon or not-found.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

// List returns every coupon.
func (s *service) List(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return coupons, nil
}

// Update applies the provided field changes to an existing coupon.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Coupon, error) {
	coupon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.DiscountPercent != nil {
		if err := validateDiscount(*input.DiscountPercent); err != nil {
			return nil, err
		}
		coupon.DiscountPercent = *input.DiscountPercent
	}
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(s.now()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon expiry must be in the future")
		}
		coupon.ExpiresAt = *input.ExpiresAt
	}

	updated, err := s.repo.Update(ctx, coupon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return updated, nil
}

// Delete removes a coupon. Carts that already locked in a discount keep it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	return nil
}

// GetValidByName resolves a redeemable coupon by name.
func (s *service) GetValidByName(ctx context.Context, name string) (*models.Coupon, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidCoupon
	}
	coupon, err := s.repo.FindValidByName(ctx, name, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCoupon
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func validateDiscount(percent int) error {
	if percent < MinDiscountPercent || percent > MaxDiscountPercent {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("discount must be between %d and %d percent", MinDiscountPercent, MaxDiscountPercent))
	}
	return nil
}
