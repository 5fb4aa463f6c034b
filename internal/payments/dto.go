package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/florelink/florelink-backend/pkg/db/models"
	"github.com/florelink/florelink-backend/pkg/enums"
)

// IntentInput identifies the order a card payment intent is opened for.
type IntentInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Role    enums.UserRole
}

// IntentOutput is returned to the client so it can complete the card flow.
type IntentOutput struct {
	PaymentID     uuid.UUID           `json:"paymentId"`
	TransactionID string              `json:"transactionId"`
	ClientSecret  string              `json:"clientSecret"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      enums.Currency      `json:"currency"`
	Status        enums.PaymentStatus `json:"status"`
}

// ConfirmInput identifies the payment the client claims has settled. The
// intent id is cross-checked against the one recorded on the payment row.
type ConfirmInput struct {
	OrderID         uuid.UUID
	PaymentIntentID string
	UserID          uuid.UUID
	Role            enums.UserRole
}

// ConfirmOutput carries the settled order alongside its payment.
type ConfirmOutput struct {
	Order   *models.Order
	Payment *models.Payment
}

// HostedCheckoutInput starts a redirect-based PayU payment.
type HostedCheckoutInput struct {
	OrderID    uuid.UUID
	UserID     uuid.UUID
	Role       enums.UserRole
	CustomerIP string
}

// HostedCheckoutOutput carries the redirect the buyer must follow.
type HostedCheckoutOutput struct {
	PaymentID     uuid.UUID `json:"paymentId"`
	TransactionID string    `json:"transactionId"`
	RedirectURI   string    `json:"redirectUri"`
}
