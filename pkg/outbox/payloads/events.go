package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/florelink/florelink-backend/pkg/enums"
)

// OrderCreatedEvent signals a newly assembled order awaiting payment.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	UserID      uuid.UUID           `json:"user_id"`
	Total       decimal.Decimal     `json:"total"`
	Currency    enums.Currency      `json:"currency"`
	Method      enums.PaymentMethod `json:"method"`
}

// OrderPaidEvent is emitted when a payment settles and the order confirms.
type OrderPaidEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	PaymentID     uuid.UUID           `json:"payment_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	TransactionID string              `json:"transaction_id,omitempty"`
	PaidAt        time.Time           `json:"paid_at"`
}

// OrderStatusChangedEvent mirrors the payload emitted on fulfillment moves.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedAt   time.Time         `json:"changed_at"`
}
