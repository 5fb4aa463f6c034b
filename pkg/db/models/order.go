package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/florelink/florelink-backend/pkg/enums"
	"github.com/florelink/florelink-backend/pkg/types"
)

// Order represents a buyer order assembled from catalog line items.
type Order struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	OrderNumber     string                  `gorm:"column:order_number;not null;uniqueIndex"`
	Status          enums.OrderStatus       `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus   enums.OrderPaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod     `gorm:"column:payment_method;type:payment_method;not null;default:'card'"`
	Subtotal        decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost    decimal.Decimal         `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Tax             decimal.Decimal         `gorm:"column:tax;type:numeric(12,2);not null"`
	Total           decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	Currency        enums.Currency          `gorm:"column:currency;type:text;not null;default:'EUR'"`
	ShippingAddress types.ShippingAddress   `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	DeliveryDate    *time.Time              `gorm:"column:delivery_date"`
	Notes           *string                 `gorm:"column:notes"`
	Items           []OrderLineItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *Payment                `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
