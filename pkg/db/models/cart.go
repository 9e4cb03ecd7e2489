package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is the single live basket for a user. TotalPriceCents is always
// recomputed from the items before persistence, never trusted from storage or
// input. TotalAfterDiscountCents is nil while no coupon is active; nil and
// zero are distinct states.
type Cart struct {
	ID                      uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID                  uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	TotalPriceCents         int        `gorm:"column:total_price_cents;not null;default:0"`
	TotalAfterDiscountCents *int       `gorm:"column:total_after_discount_cents"`
	CouponName              *string    `gorm:"column:coupon_name"`
	Items                   []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HasActiveDiscount reports whether a coupon has been applied to the cart.
func (c *Cart) HasActiveDiscount() bool {
	return c.TotalAfterDiscountCents != nil && *c.TotalAfterDiscountCents > 0
}

// EffectiveTotalCents is the amount a checkout would charge right now.
func (c *Cart) EffectiveTotalCents() int {
	if c.HasActiveDiscount() {
		return *c.TotalAfterDiscountCents
	}
	return c.TotalPriceCents
}
