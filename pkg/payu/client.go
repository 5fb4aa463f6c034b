package payu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florelink/florelink-backend/pkg/config"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
)

const (
	oauthPath          = "/pl/standard/user/oauth/authorize"
	ordersPath         = "/api/v2_1/orders"
	errorBodyReadLimit = 1024
	defaultTokenTTL    = 10 * time.Minute
	tokenExpirySafety  = 30 * time.Second
	statusSuccess      = "SUCCESS"

	// OrderStatusCompleted is the notification status that settles an order.
	OrderStatusCompleted = "COMPLETED"
	// OrderStatusCanceled is the notification status for abandoned orders.
	OrderStatusCanceled = "CANCELED"
)

var (
	errPosIDRequired       = errors.New("payu pos id is required")
	errCredentialsRequired = errors.New("payu client id and secret are required")
)

// Client wraps the PayU REST API used for hosted checkout orders.
type Client struct {
	httpClient *http.Client
	baseURL    string
	posID      string
	clientID   string
	secret     string
	tokenTTL   time.Duration

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured PayU base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the PayU client from the merchant credentials.
func NewClient(cfg config.PayUConfig, opts ...Option) (*Client, error) {
	posID := strings.TrimSpace(cfg.PosID)
	if posID == "" {
		return nil, errPosIDRequired
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	secret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || secret == "" {
		return nil, errCredentialsRequired
	}

	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		posID:      posID,
		clientID:   clientID,
		secret:     secret,
		tokenTTL:   tokenTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return client, nil
}

// OrderProduct is a single line entry in a PayU order.
type OrderProduct struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  string `json:"quantity"`
}

// OrderRequest describes the payload sent to the PayU order API.
type OrderRequest struct {
	NotifyURL     string         `json:"notifyUrl,omitempty"`
	ContinueURL   string         `json:"continueUrl,omitempty"`
	CustomerIP    string         `json:"customerIp"`
	MerchantPosID string         `json:"merchantPosId"`
	Description   string         `json:"description"`
	CurrencyCode  string         `json:"currencyCode"`
	TotalAmount   string         `json:"totalAmount"`
	ExtOrderID    string         `json:"extOrderId"`
	Products      []OrderProduct `json:"products"`
}

// OrderResponse holds the mapped data returned by the order API.
type OrderResponse struct {
	Status struct {
		StatusCode string `json:"statusCode"`
	} `json:"status"`
	RedirectURI string `json:"redirectUri"`
	OrderID     string `json:"orderId"`
	ExtOrderID  string `json:"extOrderId"`
}

// Notification is the normalized webhook body posted by PayU on status
// changes. PayU wraps the fields in an "order" envelope; bare bodies with
// top-level orderId/status are accepted too.
type Notification struct {
	OrderID    string
	ExtOrderID string
	Status     string
}

// CreateOrder registers a hosted checkout order and returns the redirect data.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payu client not configured")
	}
	if req.MerchantPosID == "" {
		req.MerchantPosID = c.posID
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal payu order request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payu order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payu order request")
	}
	defer func() { _ = resp.Body.Close() }()

	// PayU answers 302 with a JSON body when the order was accepted.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusFound {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payu order request failed")
	}

	var orderResp OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payu order response")
	}
	if orderResp.Status.StatusCode != statusSuccess {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payu rejected order: %s", orderResp.Status.StatusCode))
	}
	return &orderResp, nil
}

// ParseNotification decodes a webhook body into the typed notification.
// A bare body carries the merchant order id, so it doubles as extOrderId.
func ParseNotification(body io.Reader) (*Notification, error) {
	var raw struct {
		Order *struct {
			OrderID    string `json:"orderId"`
			ExtOrderID string `json:"extOrderId"`
			Status     string `json:"status"`
		} `json:"order"`
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payu notification")
	}

	notification := &Notification{}
	if raw.Order != nil {
		notification.OrderID = raw.Order.OrderID
		notification.ExtOrderID = raw.Order.ExtOrderID
		notification.Status = raw.Order.Status
	} else {
		notification.OrderID = raw.OrderID
		notification.ExtOrderID = raw.OrderID
		notification.Status = raw.Status
	}
	if notification.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payu notification missing order id")
	}
	return notification, nil
}

// MinorUnits renders a decimal money amount as the integer-string PayU expects.
func MinorUnits(amount decimal.Decimal) string {
	return strconv.FormatInt(amount.Shift(2).Round(0).IntPart(), 10)
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.secret)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+oauthPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payu oauth request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payu oauth request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payu oauth request failed")
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payu oauth response")
	}
	if tokenResp.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payu oauth response missing access token")
	}

	ttl := c.tokenTTL
	if tokenResp.ExpiresIn > 0 {
		ttl = time.Duration(tokenResp.ExpiresIn) * time.Second
	}
	if ttl > tokenExpirySafety {
		ttl -= tokenExpirySafety
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)
	return c.accessToken, nil
}
