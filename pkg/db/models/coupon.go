package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon is a named, time-bound percentage discount. Names are stored
// upper-cased and matched exactly; DiscountPercent is bounded to 10–50 at the
// validation layer.
type Coupon struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name            string    `gorm:"column:name;not null;uniqueIndex"`
	DiscountPercent int       `gorm:"column:discount_percent;not null"`
	ExpiresAt       time.Time `gorm:"column:expires_at;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
