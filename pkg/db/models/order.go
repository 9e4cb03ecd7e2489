package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haroonshop/storefront-backend/pkg/enums"
)

// ShippingAddress is embedded on the order so the ledger entry stands alone.
type ShippingAddress struct {
	City       string `gorm:"column:ship_city;not null" json:"city"`
	Street     string `gorm:"column:ship_street;not null" json:"street"`
	PostalCode string `gorm:"column:ship_postal_code;not null" json:"postal_code"`
	Phone      string `gorm:"column:ship_phone;not null" json:"phone"`
}

// Order is the durable record of a completed checkout. Items are copied from
// the cart, not referenced: the cart is deleted in the same transaction and
// the order must not drift if products are later edited. Status is the only
// field that changes after creation.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	ShippingAddress ShippingAddress     `gorm:"embedded"`
	TotalPriceCents int                 `gorm:"column:total_price_cents;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null;default:'online'"`
	IsPaid          bool                `gorm:"column:is_paid;not null;default:false"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
