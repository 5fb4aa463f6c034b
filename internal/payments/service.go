package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/florelink/florelink-backend/pkg/config"
	"github.com/florelink/florelink-backend/pkg/db/models"
	"github.com/florelink/florelink-backend/pkg/enums"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
	"github.com/florelink/florelink-backend/pkg/logger"
	"github.com/florelink/florelink-backend/pkg/metrics"
	"github.com/florelink/florelink-backend/pkg/outbox"
	"github.com/florelink/florelink-backend/pkg/outbox/payloads"
	"github.com/florelink/florelink-backend/pkg/payu"
	"github.com/florelink/florelink-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// HostedCheckout is the merchant-side surface of the PayU client.
type HostedCheckout interface {
	CreateOrder(ctx context.Context, req payu.OrderRequest) (*payu.OrderResponse, error)
}

// Service coordinates payments across the card and hosted checkout flows.
type Service interface {
	CreateIntent(ctx context.Context, input IntentInput) (*IntentOutput, error)
	Confirm(ctx context.Context, input ConfirmInput) (*ConfirmOutput, error)
	StartHostedCheckout(ctx context.Context, input HostedCheckoutInput) (*HostedCheckoutOutput, error)
	HandleHostedNotification(ctx context.Context, notification *payu.Notification) error
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	provider Provider
	payu     HostedCheckout
	payuCfg  config.PayUConfig
	provCfg  config.ProviderConfig
	metrics  *metrics.ProviderMetrics
	logg     *logger.Logger
}

// NewService builds the payment coordinator. The hosted checkout client may
// be nil when PayU is not configured; the card provider is mandatory.
func NewService(
	repo Repository,
	tx txRunner,
	publisher outboxPublisher,
	provider Provider,
	hosted HostedCheckout,
	payuCfg config.PayUConfig,
	provCfg config.ProviderConfig,
	providerMetrics *metrics.ProviderMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if provider == nil {
		return nil, fmt.Errorf("card payment provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if provCfg.Timeout <= 0 {
		return nil, fmt.Errorf("provider timeout must be positive")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   publisher,
		provider: provider,
		payu:     hosted,
		payuCfg:  payuCfg,
		provCfg:  provCfg,
		metrics:  providerMetrics,
		logg:     logg,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, input IntentInput) (*IntentOutput, error) {
	order, payment, err := s.loadOwned(ctx, input.OrderID, input.UserID, input.Role)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, alreadyProcessed(payment.Status)
	}

	metadata := map[string]string{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	}

	var intent *Intent
	err = s.callWithRetry(ctx, "stripe", "create_intent", func(ctx context.Context) error {
		var callErr error
		intent, callErr = s.provider.CreateIntent(ctx, order.Total, string(order.Currency), metadata)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"status":            enums.PaymentStatusProcessing,
		"transaction_id":    intent.ID,
		"provider_response": &intent.Raw,
	}
	if err := s.repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording payment intent")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithField(logCtx, "transaction_id", intent.ID)
	s.logg.Info(logCtx, "payment intent created")

	return &IntentOutput{
		PaymentID:     payment.ID,
		TransactionID: intent.ID,
		ClientSecret:  intent.ClientSecret,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Status:        enums.PaymentStatusProcessing,
	}, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmOutput, error) {
	order, payment, err := s.loadOwned(ctx, input.OrderID, input.UserID, input.Role)
	if err != nil {
		return nil, err
	}

	// Confirming an already settled payment is a no-op.
	if payment.Status == enums.PaymentStatusCompleted {
		return &ConfirmOutput{Order: order, Payment: payment}, nil
	}
	if payment.Status != enums.PaymentStatusProcessing {
		return nil, alreadyProcessed(payment.Status)
	}
	if payment.TransactionID == nil || *payment.TransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment intent to confirm")
	}
	if input.PaymentIntentID != "" && input.PaymentIntentID != *payment.TransactionID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent does not match this order")
	}

	var intent *Intent
	err = s.callWithRetry(ctx, "stripe", "retrieve_intent", func(ctx context.Context) error {
		var callErr error
		intent, callErr = s.provider.RetrieveIntent(ctx, *payment.TransactionID)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	// A non-succeeded intent leaves the payment untouched so the buyer can
	// retry once the provider settles the authorization.
	if intent.Status != IntentStatusSucceeded {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithField(logCtx, "provider_status", intent.Status)
		s.logg.Warn(logCtx, "payment intent not succeeded")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment was not successful").
			WithDetails(map[string]any{"providerStatus": intent.Status})
	}

	if err := s.settle(ctx, order, payment, *payment.TransactionID, &intent.Raw, input.UserID, input.Role); err != nil {
		return nil, err
	}
	return &ConfirmOutput{Order: order, Payment: payment}, nil
}

func (s *service) StartHostedCheckout(ctx context.Context, input HostedCheckoutInput) (*HostedCheckoutOutput, error) {
	if s.payu == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "hosted checkout not configured")
	}

	order, payment, err := s.loadOwned(ctx, input.OrderID, input.UserID, input.Role)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, alreadyProcessed(payment.Status)
	}

	products := make([]payu.OrderProduct, 0, len(order.Items))
	for _, item := range order.Items {
		products = append(products, payu.OrderProduct{
			Name:      item.Name,
			UnitPrice: payu.MinorUnits(item.UnitPrice),
			Quantity:  fmt.Sprintf("%d", item.Quantity),
		})
	}

	req := payu.OrderRequest{
		NotifyURL:     s.payuCfg.NotifyURL,
		ContinueURL:   s.payuCfg.ContinueURL,
		CustomerIP:    input.CustomerIP,
		MerchantPosID: s.payuCfg.PosID,
		Description:   fmt.Sprintf("Order %s", order.OrderNumber),
		CurrencyCode:  string(order.Currency),
		TotalAmount:   payu.MinorUnits(order.Total),
		ExtOrderID:    order.ID.String(),
		Products:      products,
	}

	var resp *payu.OrderResponse
	err = s.callWithRetry(ctx, "payu", "create_order", func(ctx context.Context) error {
		var callErr error
		resp, callErr = s.payu.CreateOrder(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	raw := types.JSONMap{
		"orderId":     resp.OrderID,
		"extOrderId":  resp.ExtOrderID,
		"redirectUri": resp.RedirectURI,
	}
	updates := map[string]any{
		"status":            enums.PaymentStatusProcessing,
		"transaction_id":    resp.OrderID,
		"provider_response": &raw,
	}
	if err := s.repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording hosted checkout")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithField(logCtx, "transaction_id", resp.OrderID)
	s.logg.Info(logCtx, "hosted checkout started")

	return &HostedCheckoutOutput{
		PaymentID:     payment.ID,
		TransactionID: resp.OrderID,
		RedirectURI:   resp.RedirectURI,
	}, nil
}

// HandleHostedNotification applies a PayU webhook. The endpoint is
// unauthenticated so the order is resolved purely from extOrderId, and
// repeated deliveries of a settled order are ignored.
func (s *service) HandleHostedNotification(ctx context.Context, notification *payu.Notification) error {
	if notification == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "empty notification")
	}

	orderID, err := uuid.Parse(notification.ExtOrderID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification extOrderId is not a valid order id")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	payment, err := s.repo.FindPaymentByOrder(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
	}

	switch notification.Status {
	case payu.OrderStatusCompleted:
		if payment.Status == enums.PaymentStatusCompleted {
			return nil
		}
		raw := types.JSONMap{
			"orderId": notification.OrderID,
			"status":  notification.Status,
		}
		return s.settle(ctx, order, payment, notification.OrderID, &raw, order.UserID, "")
	case payu.OrderStatusCanceled:
		if payment.Status == enums.PaymentStatusCompleted || payment.Status == enums.PaymentStatusCancelled {
			return nil
		}
		reason := "hosted checkout canceled"
		if err := s.repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"status":         enums.PaymentStatusCancelled,
			"failure_reason": reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording cancellation")
		}
		return s.repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status": enums.OrderPaymentStatusFailed,
		})
	default:
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithField(logCtx, "payu_status", notification.Status)
		s.logg.Info(logCtx, "ignoring intermediate payu notification")
		return nil
	}
}

// settle marks the payment completed and confirms the order in one
// transaction. The paid event is deduplicated so replayed confirmations and
// webhooks emit it at most once.
func (s *service) settle(ctx context.Context, order *models.Order, payment *models.Payment, transactionID string, raw *types.JSONMap, actorID uuid.UUID, role enums.UserRole) error {
	paidAt := time.Now().UTC()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if err := txRepo.UpdatePayment(ctx, payment.ID, map[string]any{
			"status":            enums.PaymentStatusCompleted,
			"transaction_id":    transactionID,
			"provider_response": raw,
		}); err != nil {
			return err
		}

		orderUpdates := map[string]any{
			"payment_status": enums.OrderPaymentStatusPaid,
		}
		if order.Status == enums.OrderStatusPending {
			orderUpdates["status"] = enums.OrderStatusConfirmed
		}
		if err := txRepo.UpdateOrder(ctx, order.ID, orderUpdates); err != nil {
			return err
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: string(role)},
			Version:       1,
			Data: payloads.OrderPaidEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				PaymentID:     payment.ID,
				Amount:        payment.Amount,
				Method:        payment.Method,
				TransactionID: transactionID,
				PaidAt:        paidAt,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling payment")
	}

	payment.Status = enums.PaymentStatusCompleted
	payment.TransactionID = &transactionID
	order.PaymentStatus = enums.OrderPaymentStatusPaid
	if order.Status == enums.OrderStatusPending {
		order.Status = enums.OrderStatusConfirmed
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithField(logCtx, "transaction_id", transactionID)
	s.logg.Info(logCtx, "payment settled")
	return nil
}

// loadOwned fetches the order and its payment, enforcing that the caller owns
// the order. Admins may act on any order.
func (s *service) loadOwned(ctx context.Context, orderID, userID uuid.UUID, role enums.UserRole) (*models.Order, *models.Payment, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.UserID != userID && role != enums.UserRoleAdmin {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}

	payment, err := s.repo.FindPaymentByOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
	}
	return order, payment, nil
}

// callWithRetry runs a provider call with a bounded timeout and a single
// retry. Failures surface as dependency errors.
func (s *service) callWithRetry(ctx context.Context, provider, operation string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			s.metrics.IncRetry(provider, operation)
			select {
			case <-time.After(s.provCfg.RetryDelay):
			case <-ctx.Done():
				return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "provider call aborted")
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.provCfg.Timeout)
		start := time.Now()
		err := fn(callCtx)
		s.metrics.ObserveDuration(provider, operation, time.Since(start))
		cancel()

		if err == nil {
			s.metrics.IncSuccess(provider, operation)
			return nil
		}
		lastErr = err
		s.metrics.IncFailure(provider, operation)
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"provider":  provider,
			"operation": operation,
			"attempt":   attempt + 1,
			"error":     err.Error(),
		})
		s.logg.Warn(logCtx, "provider call failed")
	}

	var typed *pkgerrors.Error
	if errors.As(lastErr, &typed) && typed.Code() == pkgerrors.CodeDependency {
		return lastErr
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, fmt.Sprintf("%s %s failed", provider, operation))
}

func alreadyProcessed(status enums.PaymentStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already processed").
		WithDetails(map[string]any{"status": status})
}
