package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/florelink/florelink-backend/pkg/db/models"
	"github.com/florelink/florelink-backend/pkg/enums"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
	"github.com/florelink/florelink-backend/pkg/outbox"
	"github.com/florelink/florelink-backend/pkg/pagination"
	"github.com/florelink/florelink-backend/pkg/types"
)

type stubRepo struct {
	orders   []*models.Order
	payments []*models.Payment
	updates  []map[string]any
	found    *models.Order
	findErr  error
	listed   []models.Order
	total    int64

	createErrs []error
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	order.ID = uuid.New()
	r.orders = append(r.orders, order)
	return order, nil
}

func (r *stubRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	payment.ID = uuid.New()
	r.payments = append(r.payments, payment)
	return payment, nil
}

func (r *stubRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.found, nil
}

func (r *stubRepo) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Order, int64, error) {
	return r.listed, r.total, nil
}

func (r *stubRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	r.updates = append(r.updates, updates)
	return nil
}

type stubCatalog struct {
	items map[uuid.UUID]*models.CatalogItem
}

func (c *stubCatalog) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error) {
	item, ok := c.items[itemID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
	}
	return item, nil
}

type stubTx struct {
	calls int
}

func (t *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	t.calls++
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (o *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	o.events = append(o.events, event)
	return nil
}

func (o *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	o.events = append(o.events, event)
	return nil
}

func testPolicy() CheckoutPolicy {
	return CheckoutPolicy{
		FreeShippingThreshold: decimal.RequireFromString("200"),
		ShippingFee:           decimal.RequireFromString("25"),
		TaxRate:               decimal.RequireFromString("0.23"),
		Currency:              enums.CurrencyEUR,
	}
}

func testAddress() types.ShippingAddress {
	return types.ShippingAddress{
		Street:     "Kwiatowa 12",
		City:       "Warszawa",
		PostalCode: "00-001",
		Country:    "PL",
	}
}

func stemItem(name, pricePerStem string) *models.CatalogItem {
	return &models.CatalogItem{
		ID:      uuid.New(),
		Name:    name,
		Active:  true,
		InStock: true,
		Pricing: types.ItemPricing{
			Florist: &types.FloristPricing{PricePerStem: decimal.RequireFromString(pricePerStem)},
		},
	}
}

func newTestService(t *testing.T, repo *stubRepo, cat *stubCatalog) (Service, *stubTx, *stubOutbox) {
	t.Helper()
	tx := &stubTx{}
	ob := &stubOutbox{}
	svc, err := NewService(repo, cat, tx, ob, testPolicy())
	require.NoError(t, err)
	return svc, tx, ob
}

func TestCreateComputesTotals(t *testing.T) {
	item := stemItem("Red Rose", "10")
	repo := &stubRepo{}
	svc, _, ob := newTestService(t, repo, &stubCatalog{items: map[uuid.UUID]*models.CatalogItem{item.ID: item}})

	order, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Role:            enums.UserRoleFlorist,
		Items:           []CartItem{{CatalogItemID: item.ID, Quantity: 3}},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.NoError(t, err)

	assert.Equal(t, "30.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "25.00", order.ShippingCost.StringFixed(2))
	assert.Equal(t, "6.90", order.Tax.StringFixed(2))
	assert.Equal(t, "61.90", order.Total.StringFixed(2))
	assert.Equal(t, enums.CurrencyEUR, order.Currency)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.OrderPaymentStatusPending, order.PaymentStatus)

	require.Len(t, repo.payments, 1)
	assert.Equal(t, order.ID, repo.payments[0].OrderID)
	assert.Equal(t, "61.90", repo.payments[0].Amount.StringFixed(2))
	assert.Equal(t, enums.PaymentStatusPending, repo.payments[0].Status)

	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventOrderCreated, ob.events[0].EventType)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Red Rose", order.Items[0].Name)
	assert.Equal(t, "10.00", order.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "30.00", order.Items[0].Total.StringFixed(2))
}

func TestCreateFreeShippingStrictlyAboveThreshold(t *testing.T) {
	tests := []struct {
		name         string
		pricePerStem string
		wantShipping string
		wantTotal    string
	}{
		{"exactly at threshold pays shipping", "200.00", "25.00", "271.00"},
		{"just above threshold ships free", "200.01", "0.00", "246.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := stemItem("Premium Bundle", tt.pricePerStem)
			svc, _, _ := newTestService(t, &stubRepo{}, &stubCatalog{items: map[uuid.UUID]*models.CatalogItem{item.ID: item}})

			order, err := svc.Create(context.Background(), CreateInput{
				UserID:          uuid.New(),
				Role:            enums.UserRoleFlorist,
				Items:           []CartItem{{CatalogItemID: item.ID, Quantity: 1}},
				ShippingAddress: testAddress(),
				PaymentMethod:   enums.PaymentMethodCard,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantShipping, order.ShippingCost.StringFixed(2))
			assert.Equal(t, tt.wantTotal, order.Total.StringFixed(2))
		})
	}
}

func TestCreateWholesalerBoxPricing(t *testing.T) {
	item := &models.CatalogItem{
		ID:      uuid.New(),
		Name:    "Tulip Crate",
		Active:  true,
		InStock: true,
		Pricing: types.ItemPricing{
			Wholesaler: &types.WholesalerPricing{
				PricePerBox: decimal.RequireFromString("20"),
				BoxSize:     25,
			},
		},
	}
	svc, _, _ := newTestService(t, &stubRepo{}, &stubCatalog{items: map[uuid.UUID]*models.CatalogItem{item.ID: item}})

	order, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Role:            enums.UserRoleWholesaler,
		Items:           []CartItem{{CatalogItemID: item.ID, Quantity: 10}},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodTransfer,
	})
	require.NoError(t, err)

	// 20 / 25 per stem, ten stems.
	assert.Equal(t, "0.80", order.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "8.00", order.Subtotal.StringFixed(2))
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	svc, _, _ := newTestService(t, &stubRepo{}, &stubCatalog{})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Role:            enums.UserRoleFlorist,
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.Error(t, err)
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateUnavailableItemWritesNothing(t *testing.T) {
	available := stemItem("Lily", "5.50")
	outOfStock := stemItem("Orchid", "9.00")
	outOfStock.InStock = false

	repo := &stubRepo{}
	svc, tx, ob := newTestService(t, repo, &stubCatalog{items: map[uuid.UUID]*models.CatalogItem{
		available.ID:  available,
		outOfStock.ID: outOfStock,
	}})

	input := CreateInput{
		UserID: uuid.New(),
		Role:   enums.UserRoleFlorist,
		Items: []CartItem{
			{CatalogItemID: available.ID, Quantity: 2},
			{CatalogItemID: outOfStock.ID, Quantity: 1},
		},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	}
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Error(), "Orchid")

	assert.Empty(t, repo.orders)
	assert.Empty(t, repo.payments)
	assert.Empty(t, ob.events)
	assert.Zero(t, tx.calls)

	// Retrying with the unavailable item removed succeeds.
	input.Items = input.Items[:1]
	order, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "11.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "25.00", order.ShippingCost.StringFixed(2))
	assert.Equal(t, "2.53", order.Tax.StringFixed(2))
	assert.Equal(t, "38.53", order.Total.StringFixed(2))
}

func TestCreateInactiveItemRejected(t *testing.T) {
	item := stemItem("Discontinued Fern", "3.00")
	item.Active = false
	svc, _, _ := newTestService(t, &stubRepo{}, &stubCatalog{items: map[uuid.UUID]*models.CatalogItem{item.ID: item}})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Role:            enums.UserRoleFlorist,
		Items:           []CartItem{{CatalogItemID: item.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Discontinued Fern")
}

func TestCreateZeroQuantityRejected(t *testing.T) {
	item := stemItem("Rose", "10")
	svc, _, _ := newTestService(t, &stubRepo{}, &stubCatalog{items: map[uuid.UUID]*models.CatalogItem{item.ID: item}})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Role:            enums.UserRoleFlorist,
		Items:           []CartItem{{CatalogItemID: item.ID, Quantity: 0}},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.Error(t, err)
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateRetriesOrderNumberCollisionOnce(t *testing.T) {
	item := stemItem("Rose", "10")
	uniqueErr := fmt.Errorf(`duplicate key value violates unique constraint "ux_orders_order_number"`)
	repo := &stubRepo{createErrs: []error{uniqueErr}}
	svc, tx, _ := newTestService(t, repo, &stubCatalog{items: map[uuid.UUID]*models.CatalogItem{item.ID: item}})

	order, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Role:            enums.UserRoleFlorist,
		Items:           []CartItem{{CatalogItemID: item.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tx.calls)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
}

func TestCreateSecondCollisionIsConflict(t *testing.T) {
	item := stemItem("Rose", "10")
	uniqueErr := fmt.Errorf(`duplicate key value violates unique constraint "ux_orders_order_number"`)
	repo := &stubRepo{createErrs: []error{uniqueErr, uniqueErr}}
	svc, _, _ := newTestService(t, repo, &stubCatalog{items: map[uuid.UUID]*models.CatalogItem{item.ID: item}})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Role:            enums.UserRoleFlorist,
		Items:           []CartItem{{CatalogItemID: item.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.Error(t, err)
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestGetHidesForeignOrders(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	repo := &stubRepo{found: &models.Order{ID: uuid.New(), UserID: owner}}
	svc, _, _ := newTestService(t, repo, &stubCatalog{})

	_, err := svc.Get(context.Background(), stranger, repo.found.ID, enums.UserRoleFlorist)
	require.Error(t, err)
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	// The owner and an admin both see the order.
	got, err := svc.Get(context.Background(), owner, repo.found.ID, enums.UserRoleFlorist)
	require.NoError(t, err)
	assert.Equal(t, repo.found.ID, got.ID)

	got, err = svc.Get(context.Background(), stranger, repo.found.ID, enums.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, repo.found.ID, got.ID)
}

func TestGetMissingOrder(t *testing.T) {
	repo := &stubRepo{findErr: gorm.ErrRecordNotFound}
	svc, _, _ := newTestService(t, repo, &stubCatalog{})

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New(), enums.UserRoleFlorist)
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListBuildsPagination(t *testing.T) {
	repo := &stubRepo{
		listed: []models.Order{{ID: uuid.New()}, {ID: uuid.New()}},
		total:  12,
	}
	svc, _, _ := newTestService(t, repo, &stubCatalog{})

	result, err := svc.List(context.Background(), ListInput{
		UserID: uuid.New(),
		Params: pagination.Params{Page: 1, Limit: 5},
	})
	require.NoError(t, err)
	assert.Len(t, result.Orders, 2)
	assert.Equal(t, 1, result.Pagination.Current)
	assert.Equal(t, 3, result.Pagination.Pages)
	assert.Equal(t, int64(12), result.Pagination.Total)
	assert.Equal(t, 5, result.Pagination.Limit)
}

func TestUpdateStatusNonAdminOnlyCancels(t *testing.T) {
	userID := uuid.New()
	repo := &stubRepo{found: &models.Order{ID: uuid.New(), UserID: userID, Status: enums.OrderStatusPending}}
	svc, _, ob := newTestService(t, repo, &stubCatalog{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: repo.found.ID,
		UserID:  userID,
		Role:    enums.UserRoleFlorist,
		Status:  enums.OrderStatusShipped,
	})
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
	assert.Empty(t, ob.events)

	order, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: repo.found.ID,
		UserID:  userID,
		Role:    enums.UserRoleFlorist,
		Status:  enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, enums.OrderStatusCancelled, repo.updates[0]["status"])
	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventOrderStatus, ob.events[0].EventType)
}

func TestUpdateStatusShippedOrderCannotBeCancelled(t *testing.T) {
	userID := uuid.New()
	for _, status := range []enums.OrderStatus{enums.OrderStatusShipped, enums.OrderStatusDelivered} {
		repo := &stubRepo{found: &models.Order{ID: uuid.New(), UserID: userID, Status: status}}
		svc, _, _ := newTestService(t, repo, &stubCatalog{})

		_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
			OrderID: repo.found.ID,
			UserID:  userID,
			Role:    enums.UserRoleAdmin,
			Status:  enums.OrderStatusCancelled,
		})
		var typed *pkgerrors.Error
		require.ErrorAs(t, err, &typed)
		assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code(), "status %s", status)
	}
}

func TestUpdateStatusAdminProgresses(t *testing.T) {
	admin := uuid.New()
	repo := &stubRepo{found: &models.Order{ID: uuid.New(), UserID: uuid.New(), Status: enums.OrderStatusConfirmed}}
	svc, _, _ := newTestService(t, repo, &stubCatalog{})

	order, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: repo.found.ID,
		UserID:  admin,
		Role:    enums.UserRoleAdmin,
		Status:  enums.OrderStatusShipped,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, order.Status)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	repo := &stubRepo{}
	cat := &stubCatalog{}
	tx := &stubTx{}
	ob := &stubOutbox{}

	_, err := NewService(nil, cat, tx, ob, testPolicy())
	require.Error(t, err)
	_, err = NewService(repo, nil, tx, ob, testPolicy())
	require.Error(t, err)
	_, err = NewService(repo, cat, nil, ob, testPolicy())
	require.Error(t, err)
	_, err = NewService(repo, cat, tx, nil, testPolicy())
	require.Error(t, err)

	bad := testPolicy()
	bad.Currency = "XYZ"
	_, err = NewService(repo, cat, tx, ob, bad)
	require.Error(t, err)
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := generateOrderNumber(time.Now())
		parts := strings.Split(n, "-")
		require.Len(t, parts, 3)
		assert.Equal(t, "ORD", parts[0])
		assert.Len(t, parts[2], 5)
		for _, r := range parts[2] {
			assert.True(t, strings.ContainsRune(orderNumberAlphabet, r))
		}
		seen[n] = true
	}
	// 50 draws from 36^5 should not collide.
	assert.Greater(t, len(seen), 45)
}

func TestPriceCartErrorsPropagate(t *testing.T) {
	svc, _, _ := newTestService(t, &stubRepo{}, &stubCatalog{})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Role:            enums.UserRoleFlorist,
		Items:           []CartItem{{CatalogItemID: uuid.New(), Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.Error(t, err)
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
