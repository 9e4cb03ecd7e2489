package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog listing. Stock and sold are inventory counters: stock
// never goes negative (debits are guarded) and sold only moves through the
// checkout path, never through catalog edits.
type Product struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Title       string     `gorm:"column:title;not null"`
	Description string     `gorm:"column:description;not null"`
	PriceCents  int        `gorm:"column:price_cents;not null"`
	Stock       int        `gorm:"column:stock;not null;default:0"`
	Sold        int        `gorm:"column:sold;not null;default:0"`
	Image       *string    `gorm:"column:image"`
	Rating      *float64   `gorm:"column:rating;type:numeric(3,2)"`
	CategoryID  uuid.UUID  `gorm:"column:category_id;type:uuid;not null"`
	OwnerID     uuid.UUID  `gorm:"column:owner_id;type:uuid;not null"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	Category    *Category  `gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsAvailable reports whether any units remain on hand.
func (p *Product) IsAvailable() bool {
	return p.Stock > 0
}
