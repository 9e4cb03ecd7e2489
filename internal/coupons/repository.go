package coupons

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haroonshop/storefront-backend/pkg/db/models"
)

// Repository encapsulates coupon persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID returns the coupon by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindByName returns the coupon with the given name regardless of expiry.
// Names are stored upper-cased, so the lookup normalizes first.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("name = ?", normalizeName(name)).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindValidByName returns the coupon only when it has not expired at the
// provided instant. An expired coupon is indistinguishable from a missing one.
func (r *Repository) FindValidByName(ctx context.Context, name string, now time.Time) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("name = ? AND expires_at > ?", normalizeName(name), now).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ListAll returns every coupon ordered by soonest expiry first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.WithContext(ctx).Order("expires_at ASC").Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// Create inserts the provided coupon.
func (r *Repository) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		return nil, err
	}
	return coupon, nil
}

// Update saves the provided coupon.
func (r *Repository) Update(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if err := r.db.WithContext(ctx).Save(coupon).Error; err != nil {
		return nil, err
	}
	return coupon, nil
}

// Delete removes the coupon row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Coupon{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
