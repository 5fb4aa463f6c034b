package payments

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/florelink/florelink-backend/api/controllers/orders"
	"github.com/florelink/florelink-backend/api/middleware"
	"github.com/florelink/florelink-backend/api/responses"
	"github.com/florelink/florelink-backend/api/validators"
	paymentssvc "github.com/florelink/florelink-backend/internal/payments"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
	"github.com/florelink/florelink-backend/pkg/logger"
	"github.com/florelink/florelink-backend/pkg/payu"
)

type createIntentRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	OrderID         string `json:"orderId" validate:"required,uuid"`
}

type payuOrderRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
}

// CreateIntent opens a card payment intent for the order.
func CreateIntent(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req createIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.CreateIntent(r.Context(), paymentssvc.IntentInput{
			OrderID: orderID,
			UserID:  middleware.UserIDFromContext(r.Context()),
			Role:    middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"clientSecret":    out.ClientSecret,
			"paymentIntentId": out.TransactionID,
		})
	}
}

// Confirm settles the order once the card payment has succeeded.
func Confirm(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.Confirm(r.Context(), paymentssvc.ConfirmInput{
			OrderID:         orderID,
			PaymentIntentID: req.PaymentIntentID,
			UserID:          middleware.UserIDFromContext(r.Context()),
			Role:            middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"message": "payment confirmed",
			"order":   orders.NewOrderResponse(out.Order),
		})
	}
}

// StartHostedCheckout begins a PayU redirect flow for the order.
func StartHostedCheckout(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req payuOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.StartHostedCheckout(r.Context(), paymentssvc.HostedCheckoutInput{
			OrderID:    orderID,
			UserID:     middleware.UserIDFromContext(r.Context()),
			Role:       middleware.RoleFromContext(r.Context()),
			CustomerIP: clientIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"redirectUri": out.RedirectURI,
			"payuOrderId": out.TransactionID,
		})
	}
}

// HostedNotify receives PayU webhook notifications. The route is
// unauthenticated; provider retries expect a 200 whenever the notification
// was understood.
func HostedNotify(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		notification, err := payu.ParseNotification(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.HandleHostedNotification(r.Context(), notification); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func parseOrderID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
