package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/florelink/florelink-backend/internal/catalog"
	"github.com/florelink/florelink-backend/internal/pricing"
	dbpkg "github.com/florelink/florelink-backend/pkg/db"
	"github.com/florelink/florelink-backend/pkg/db/models"
	"github.com/florelink/florelink-backend/pkg/enums"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
	"github.com/florelink/florelink-backend/pkg/outbox"
	"github.com/florelink/florelink-backend/pkg/outbox/payloads"
	"github.com/florelink/florelink-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CheckoutPolicy holds the pricing knobs applied when totaling an order.
type CheckoutPolicy struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	TaxRate               decimal.Decimal
	Currency              enums.Currency
}

// Service defines the order assembly and lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	List(ctx context.Context, input ListInput) (*OrderList, error)
	Get(ctx context.Context, userID, orderID uuid.UUID, role enums.UserRole) (*models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
}

type service struct {
	repo    Repository
	catalog catalog.Reader
	tx      txRunner
	outbox  outboxPublisher
	policy  CheckoutPolicy
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, reader catalog.Reader, tx txRunner, publisher outboxPublisher, policy CheckoutPolicy) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if reader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if policy.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	if !policy.Currency.IsValid() {
		return nil, fmt.Errorf("invalid checkout currency %q", policy.Currency)
	}
	return &service{
		repo:    repo,
		catalog: reader,
		tx:      tx,
		outbox:  publisher,
		policy:  policy,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}

	lineItems, subtotal, err := s.priceCart(ctx, input.Role, input.Items)
	if err != nil {
		return nil, err
	}

	shipping := s.shippingCost(subtotal)
	tax := subtotal.Mul(s.policy.TaxRate).Round(2)
	total := subtotal.Add(shipping).Add(tax).Round(2)

	order := &models.Order{
		UserID:          input.UserID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.OrderPaymentStatusPending,
		PaymentMethod:   input.PaymentMethod,
		Subtotal:        subtotal,
		ShippingCost:    shipping,
		Tax:             tax,
		Total:           total,
		Currency:        s.policy.Currency,
		ShippingAddress: input.ShippingAddress,
		DeliveryDate:    input.DeliveryDate,
		Notes:           input.Notes,
		Items:           lineItems,
	}

	if err := s.persistOrder(ctx, input, order); err != nil {
		return nil, err
	}
	return order, nil
}

// persistOrder writes the order, its initial payment and the created event in
// one transaction. A colliding order number is regenerated once before the
// conflict is surfaced.
func (s *service) persistOrder(ctx context.Context, input CreateInput, order *models.Order) error {
	for attempt := 0; attempt < 2; attempt++ {
		order.OrderNumber = generateOrderNumber(time.Now())

		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)

			created, err := txRepo.CreateOrder(ctx, order)
			if err != nil {
				return err
			}

			payment := &models.Payment{
				OrderID:  created.ID,
				UserID:   input.UserID,
				Amount:   created.Total,
				Currency: created.Currency,
				Method:   input.PaymentMethod,
				Status:   enums.PaymentStatusPending,
			}
			if _, err := txRepo.CreatePayment(ctx, payment); err != nil {
				return err
			}
			created.Payment = payment

			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   created.ID,
				Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(input.Role)},
				Version:       1,
				Data: payloads.OrderCreatedEvent{
					OrderID:     created.ID,
					OrderNumber: created.OrderNumber,
					UserID:      created.UserID,
					Total:       created.Total,
					Currency:    created.Currency,
					Method:      created.PaymentMethod,
				},
			})
		})
		if err == nil {
			return nil
		}
		if dbpkg.IsUniqueViolation(err, "ux_orders_order_number") && attempt == 0 {
			order.ID = uuid.Nil
			continue
		}
		if dbpkg.IsUniqueViolation(err, "ux_orders_order_number") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting order")
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "persisting order")
}

// priceCart validates each cart entry in order and accumulates the subtotal,
// rounding after every addition to keep totals stable.
func (s *service) priceCart(ctx context.Context, role enums.UserRole, items []CartItem) ([]models.OrderLineItem, decimal.Decimal, error) {
	lineItems := make([]models.OrderLineItem, 0, len(items))
	subtotal := decimal.Zero

	for _, entry := range items {
		if entry.CatalogItemID == uuid.Nil {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "catalog item id required")
		}
		if entry.Quantity < 1 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"catalogItemId": entry.CatalogItemID})
		}

		item, err := s.catalog.FindItem(ctx, entry.CatalogItemID)
		if err != nil {
			var typed *pkgerrors.Error
			if errors.As(err, &typed) && typed.Code() == pkgerrors.CodeNotFound {
				return nil, decimal.Zero, unavailableItem(entry.CatalogItemID, "not found")
			}
			return nil, decimal.Zero, err
		}
		if !item.Active {
			return nil, decimal.Zero, unavailableItem(item.ID, item.Name)
		}
		if !item.InStock {
			return nil, decimal.Zero, unavailableItem(item.ID, item.Name)
		}

		unitPrice, err := pricing.Resolve(role, item.Pricing)
		if err != nil {
			return nil, decimal.Zero, err
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(entry.Quantity))).Round(2)
		subtotal = subtotal.Add(lineTotal).Round(2)

		lineItems = append(lineItems, models.OrderLineItem{
			CatalogItemID: item.ID,
			Name:          item.Name,
			Quantity:      entry.Quantity,
			UnitPrice:     unitPrice.Round(2),
			Total:         lineTotal,
		})
	}
	return lineItems, subtotal, nil
}

func (s *service) shippingCost(subtotal decimal.Decimal) decimal.Decimal {
	// Free shipping strictly above the threshold, never at it.
	if subtotal.GreaterThan(s.policy.FreeShippingThreshold) {
		return decimal.Zero.Round(2)
	}
	return s.policy.ShippingFee.Round(2)
}

func (s *service) List(ctx context.Context, input ListInput) (*OrderList, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	orders, total, err := s.repo.ListOrders(ctx, input.UserID, input.Params, input.Filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return &OrderList{
		Orders:     orders,
		Pagination: pagination.Build(input.Params, total),
	}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID, role enums.UserRole) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	// Non-owners get the same answer as a missing order.
	if order.UserID != userID && role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}

	order, err := s.Get(ctx, input.UserID, input.OrderID, input.Role)
	if err != nil {
		return nil, err
	}

	if input.Role != enums.UserRoleAdmin && input.Status != enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only cancellation is allowed")
	}
	if input.Status == enums.OrderStatusCancelled && order.Status.IsTerminalForCancel() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order already %s", order.Status))
	}

	from := order.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.UpdateOrder(ctx, order.ID, map[string]any{"status": input.Status}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatus,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(input.Role)},
			Version:       1,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          input.Status,
				ChangedAt:   time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}

	order.Status = input.Status
	return order, nil
}

func unavailableItem(itemID uuid.UUID, name string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %s is unavailable", name)).
		WithDetails(map[string]any{"catalogItemId": itemID})
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateOrderNumber yields ORD-<unixMillis>-<5 random base36 chars>.
func generateOrderNumber(now time.Time) string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform entropy source is broken.
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), string(buf))
}
