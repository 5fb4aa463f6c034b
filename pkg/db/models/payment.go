package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/florelink/florelink-backend/pkg/enums"
	"github.com/florelink/florelink-backend/pkg/types"
)

// Payment tracks payment progress for an order.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         enums.Currency      `gorm:"column:currency;type:text;not null;default:'EUR'"`
	Method           enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'card'"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	TransactionID    *string             `gorm:"column:transaction_id"`
	ProviderResponse *types.JSONMap      `gorm:"column:provider_response;type:jsonb;serializer:json"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	RefundedAmount   *decimal.Decimal    `gorm:"column:refunded_amount;type:numeric(12,2)"`
	RefundedAt       *time.Time          `gorm:"column:refunded_at"`
	RefundReason     *string             `gorm:"column:refund_reason"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
