package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/model"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentPartial   PaymentStatus = "partial"
)

// TransportError wraps a network-level failure (connection refused, timeout,
// DNS). During reconciliation these are inconclusive, never a definitive
// payment failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx backend response with the body preserved for
// support reconciliation.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: backend error %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) IsClientError() bool { return e.Code >= 400 && e.Code < 500 }
func (e *StatusError) IsServerError() bool { return e.Code >= 500 }

type CreateOrderRequest struct {
	StoreID         string             `json:"storeId"`
	Items           []model.LineItem   `json:"items"`
	CustomerInfo    model.CustomerInfo `json:"customerInfo"`
	ShippingAddress model.Address      `json:"shippingAddress"`
	ShippingMethod  string             `json:"shippingMethod,omitempty"`
	ShippingCost    decimal.Decimal    `json:"shippingCost,omitempty"`
	PaymentMethod   string             `json:"paymentMethod"`
	CustomerID      string             `json:"customerId,omitempty"`
}

type VerifyRequest struct {
	TransactionRef string `json:"transactionRef"`
	StoreID        string `json:"storeId,omitempty"`
}

type VerifyResponse struct {
	Verified          bool            `json:"verified"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	OrderID           string          `json:"orderId,omitempty"`
	OrderNumber       string          `json:"orderNumber,omitempty"`
	Amount            decimal.Decimal `json:"amount,omitempty"`
	Currency          string          `json:"currency,omitempty"`
	WebhookPending    bool            `json:"webhookPending,omitempty"`
	WebhookProcessing bool            `json:"webhookProcessing,omitempty"`
}

type ConfirmResponse struct {
	OrderID          string        `json:"orderId"`
	OrderNumber      string        `json:"orderNumber,omitempty"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	Message          string        `json:"message"`
	AlreadyProcessed bool          `json:"alreadyProcessed,omitempty"`
}

type ShippingRequest struct {
	StoreID  string           `json:"storeId"`
	Address  model.Address    `json:"address"`
	Items    []model.LineItem `json:"items"`
	Subtotal decimal.Decimal  `json:"subtotal"`
	Currency string           `json:"currency"`
}

type ShippingMethod struct {
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Cost             decimal.Decimal `json:"cost"`
	EstimatedDays    int             `json:"estimatedDays,omitempty"`
	EstimatedDaysMin int             `json:"estimatedDaysMin,omitempty"`
	EstimatedDaysMax int             `json:"estimatedDaysMax,omitempty"`
	Description      string          `json:"description,omitempty"`
}

type ShippingResponse struct {
	Methods               []ShippingMethod `json:"methods"`
	FreeShippingEligible  bool             `json:"freeShippingEligible"`
	FreeShippingThreshold decimal.Decimal  `json:"freeShippingThreshold,omitempty"`
}

// CommerceClient is the storefront's view of the remote commerce backend.
type CommerceClient interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error)
	VerifyPayment(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error)
	ConfirmFromCallback(ctx context.Context, payload map[string]any) (*ConfirmResponse, error)
	CalculateShipping(ctx context.Context, req *ShippingRequest) (*ShippingResponse, error)
}

type commerceClientImpl struct {
	httpClient *http.Client
	baseURL    string
}

func NewCommerceClient(backendCfg *config.Backend) CommerceClient {
	timeout := time.Duration(backendCfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &commerceClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: backendCfg.BaseURL,
	}
}

func (c *commerceClientImpl) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error) {
	var ord model.Order
	headers := map[string]string{
		// retries of a flaky create must not mint a second order
		"Idempotency-Key": uuid.NewString(),
	}
	if err := c.postJSON(ctx, "create order", "/api/orders", req, &ord, headers); err != nil {
		return nil, err
	}
	if ord.OrderID == "" {
		return nil, fmt.Errorf("create order: response missing orderId")
	}
	return &ord, nil
}

func (c *commerceClientImpl) VerifyPayment(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error) {
	var res VerifyResponse
	if err := c.postJSON(ctx, "verify payment", "/api/payments/verify", req, &res, nil); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *commerceClientImpl) ConfirmFromCallback(ctx context.Context, payload map[string]any) (*ConfirmResponse, error) {
	var res ConfirmResponse
	if err := c.postJSON(ctx, "confirm payment", "/api/payments/confirm", payload, &res, nil); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *commerceClientImpl) CalculateShipping(ctx context.Context, req *ShippingRequest) (*ShippingResponse, error) {
	var res ShippingResponse
	if err := c.postJSON(ctx, "calculate shipping", "/api/shipping/calculate", req, &res, nil); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *commerceClientImpl) postJSON(ctx context.Context, op, path string, payload, out any, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal req payload: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("%s: http new request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: op, Code: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
