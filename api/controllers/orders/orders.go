package orders

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/florelink/florelink-backend/api/middleware"
	"github.com/florelink/florelink-backend/api/responses"
	"github.com/florelink/florelink-backend/api/validators"
	orderssvc "github.com/florelink/florelink-backend/internal/orders"
	"github.com/florelink/florelink-backend/pkg/db/models"
	"github.com/florelink/florelink-backend/pkg/enums"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
	"github.com/florelink/florelink-backend/pkg/logger"
	"github.com/florelink/florelink-backend/pkg/types"
)

type cartItemRequest struct {
	CatalogItemID uuid.UUID `json:"catalogItemId" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	Items           []cartItemRequest     `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress" validate:"required"`
	DeliveryDate    *time.Time            `json:"deliveryDate,omitempty"`
	Notes           *string               `json:"notes,omitempty"`
	PaymentMethod   enums.PaymentMethod   `json:"paymentMethod,omitempty"`
}

type updateStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

type lineItemResponse struct {
	CatalogItemID uuid.UUID       `json:"catalogItemId"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Total         decimal.Decimal `json:"total"`
}

type paymentResponse struct {
	ID            uuid.UUID           `json:"id"`
	Status        enums.PaymentStatus `json:"status"`
	Method        enums.PaymentMethod `json:"method"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      enums.Currency      `json:"currency"`
	TransactionID *string             `json:"transactionId,omitempty"`
}

// OrderResponse is the wire shape of an order, shared with the payment handlers.
type OrderResponse struct {
	ID              uuid.UUID                `json:"id"`
	OrderNumber     string                   `json:"orderNumber"`
	Status          enums.OrderStatus        `json:"status"`
	PaymentStatus   enums.OrderPaymentStatus `json:"paymentStatus"`
	PaymentMethod   enums.PaymentMethod      `json:"paymentMethod"`
	Subtotal        decimal.Decimal          `json:"subtotal"`
	ShippingCost    decimal.Decimal          `json:"shippingCost"`
	Tax             decimal.Decimal          `json:"tax"`
	Total           decimal.Decimal          `json:"total"`
	Currency        enums.Currency           `json:"currency"`
	ShippingAddress types.ShippingAddress    `json:"shippingAddress"`
	DeliveryDate    *time.Time               `json:"deliveryDate,omitempty"`
	Notes           *string                  `json:"notes,omitempty"`
	Items           []lineItemResponse       `json:"items"`
	Payment         *paymentResponse         `json:"payment,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
}

func NewOrderResponse(order *models.Order) OrderResponse {
	items := make([]lineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, lineItemResponse{
			CatalogItemID: item.CatalogItemID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Total:         item.Total,
		})
	}

	resp := OrderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		PaymentMethod:   order.PaymentMethod,
		Subtotal:        order.Subtotal,
		ShippingCost:    order.ShippingCost,
		Tax:             order.Tax,
		Total:           order.Total,
		Currency:        order.Currency,
		ShippingAddress: order.ShippingAddress,
		DeliveryDate:    order.DeliveryDate,
		Notes:           order.Notes,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
	if order.Payment != nil {
		resp.Payment = &paymentResponse{
			ID:            order.Payment.ID,
			Status:        order.Payment.Status,
			Method:        order.Payment.Method,
			Amount:        order.Payment.Amount,
			Currency:      order.Payment.Currency,
			TransactionID: order.Payment.TransactionID,
		}
	}
	return resp
}

// Create assembles an order from the submitted cart.
func Create(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method := payload.PaymentMethod
		if method == "" {
			method = enums.PaymentMethodCard
		}

		items := make([]orderssvc.CartItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, orderssvc.CartItem{
				CatalogItemID: item.CatalogItemID,
				Quantity:      item.Quantity,
			})
		}

		order, err := svc.Create(r.Context(), orderssvc.CreateInput{
			UserID:          middleware.UserIDFromContext(r.Context()),
			Role:            middleware.RoleFromContext(r.Context()),
			Items:           items,
			ShippingAddress: payload.ShippingAddress,
			DeliveryDate:    payload.DeliveryDate,
			Notes:           payload.Notes,
			PaymentMethod:   method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"message": "order created",
			"order":   NewOrderResponse(order),
		})
	}
}

// List returns the caller's orders, newest first.
func List(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := orderssvc.ListFilters{}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, parseErr.Error()))
				return
			}
			filters.Status = &status
		}

		result, err := svc.List(r.Context(), orderssvc.ListInput{
			UserID:  middleware.UserIDFromContext(r.Context()),
			Params:  params,
			Filters: filters,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders := make([]OrderResponse, 0, len(result.Orders))
		for i := range result.Orders {
			orders = append(orders, NewOrderResponse(&result.Orders[i]))
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":     orders,
			"pagination": result.Pagination,
		})
	}
}

// Get returns a single order owned by the caller.
func Get(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()), orderID, middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"order": NewOrderResponse(order),
		})
	}
}

// UpdateStatus moves an order through its fulfillment lifecycle.
func UpdateStatus(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderssvc.UpdateStatusInput{
			OrderID: orderID,
			UserID:  middleware.UserIDFromContext(r.Context()),
			Role:    middleware.RoleFromContext(r.Context()),
			Status:  payload.Status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"message": "order status updated",
			"order":   NewOrderResponse(order),
		})
	}
}
