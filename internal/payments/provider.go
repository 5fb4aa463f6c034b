package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripelib "github.com/stripe/stripe-go/v84"

	stripeclient "github.com/florelink/florelink-backend/pkg/stripe"
	"github.com/florelink/florelink-backend/pkg/types"
)

// Intent is the provider-neutral view of a card payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Raw          types.JSONMap
}

// IntentStatusSucceeded is the provider status that settles a payment.
const IntentStatusSucceeded = "succeeded"

// Provider opens and inspects card payment intents.
type Provider interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
}

type stripeProvider struct {
	client *stripeclient.Client
}

// NewStripeProvider adapts the Stripe client to the Provider interface.
func NewStripeProvider(client *stripeclient.Client) (Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &stripeProvider{client: client}, nil
}

func (p *stripeProvider) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error) {
	pi, err := p.client.CreatePaymentIntent(ctx, amount, currency, metadata)
	if err != nil {
		return nil, err
	}
	return mapIntent(pi), nil
}

func (p *stripeProvider) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	pi, err := p.client.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return mapIntent(pi), nil
}

func mapIntent(pi *stripelib.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Raw: types.JSONMap{
			"id":       pi.ID,
			"status":   string(pi.Status),
			"amount":   pi.Amount,
			"currency": string(pi.Currency),
		},
	}
}

type simulatedProvider struct{}

// NewSimulatedProvider returns an in-process provider used when no Stripe key
// is configured. Created intents require confirmation and every retrieval
// reports success, which keeps local checkout flows testable end to end.
func NewSimulatedProvider() Provider {
	return simulatedProvider{}
}

func (simulatedProvider) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error) {
	id := "pi_sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	return &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Status:       "requires_payment_method",
		Raw: types.JSONMap{
			"id":        id,
			"status":    "requires_payment_method",
			"amount":    amount.String(),
			"currency":  currency,
			"simulated": true,
		},
	}, nil
}

func (simulatedProvider) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	return &Intent{
		ID:     intentID,
		Status: IntentStatusSucceeded,
		Raw: types.JSONMap{
			"id":        intentID,
			"status":    IntentStatusSucceeded,
			"simulated": true,
		},
	}, nil
}
