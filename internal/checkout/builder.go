package checkout

import (
	"errors"

	"github.com/shopspring/decimal"

	"storefront-checkout/internal/currency"
	"storefront-checkout/internal/errs"
	"storefront-checkout/internal/model"
)

// ErrMissingPublicKey means the store has no payment public key configured.
// Checkout cannot proceed without it.
var ErrMissingPublicKey = errs.Configuration("payment public key is not configured")

// Metadata travels with the SDK payload so the backend webhook can attribute
// the payment.
type Metadata struct {
	StoreID     string `json:"storeId,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

// Config is the payload handed to the payment SDK. Amount must equal the
// server-confirmed order total and Currency must be a validated ISO code by
// the time it reaches the SDK; ApplyOrder enforces both.
type Config struct {
	PublicKey       string          `json:"publicKey"`
	Mode            string          `json:"mode,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Email           string          `json:"email"`
	FirstName       string          `json:"firstName,omitempty"`
	LastName        string          `json:"lastName,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	CallbackURL     string          `json:"callbackUrl,omitempty"`
	ShippingAddress *model.Address  `json:"shippingAddress,omitempty"`
	Metadata        Metadata        `json:"metadata"`
}

// Options carries the optional customer and store context for Build.
type Options struct {
	FirstName        string
	LastName         string
	Phone            string
	CallbackURL      string
	Currency         string
	FallbackCurrency string
	Reference        string
	Mode             string
	StoreID          string
	OrderID          string
	OrderNumber      string
	ShippingAddress  *model.Address
}

// Build converts line items plus customer data into the SDK payload shape.
// The computed amount is a client-side estimate only; it has no knowledge of
// server-side discounts, shipping, or VAT, so callers must overwrite it with
// the server-confirmed total via ApplyOrder once the order exists.
func Build(items []model.LineItem, email, publicKey string, opts Options) (*Config, error) {
	if publicKey == "" {
		return nil, ErrMissingPublicKey
	}
	if len(items) == 0 {
		return nil, errs.Validation("items", "at least one line item is required")
	}
	if email == "" {
		return nil, errs.Validation("email", "customer email is required")
	}

	fallback := opts.FallbackCurrency
	if fallback == "" {
		fallback = currency.DefaultCurrency
	}

	code := ""
	if opts.Currency != "" {
		normalized, err := currency.Normalize(opts.Currency)
		if err != nil {
			return nil, err
		}
		code = normalized
	} else {
		code = currency.FromLineItems(items, fallback)
	}

	amount := decimal.Zero
	for _, item := range items {
		amount = amount.Add(item.Subtotal())
	}

	return &Config{
		PublicKey:       publicKey,
		Mode:            opts.Mode,
		Amount:          amount,
		Currency:        code,
		Email:           email,
		FirstName:       opts.FirstName,
		LastName:        opts.LastName,
		Phone:           opts.Phone,
		Reference:       opts.Reference,
		CallbackURL:     opts.CallbackURL,
		ShippingAddress: opts.ShippingAddress,
		Metadata: Metadata{
			StoreID:     opts.StoreID,
			OrderID:     opts.OrderID,
			OrderNumber: opts.OrderNumber,
		},
	}, nil
}

// ApplyOrder overwrites the client-side estimate with the authoritative
// values order-creation returned. The transaction reference from the server
// is the only identifier valid for the SDK and for later verification; it is
// never regenerated client-side.
func (c *Config) ApplyOrder(ord *model.Order) error {
	if ord == nil || ord.OrderID == "" {
		return errors.New("apply order: order is missing an id")
	}
	if ord.TransactionRef != "" {
		c.Reference = ord.TransactionRef
	}
	if !ord.TotalAmount.IsZero() {
		c.Amount = ord.TotalAmount
	}
	if ord.Currency != "" {
		normalized, err := currency.Normalize(ord.Currency)
		if err != nil {
			return err
		}
		c.Currency = normalized
	}
	c.Metadata.OrderID = ord.OrderID
	if ord.OrderNumber != "" {
		c.Metadata.OrderNumber = ord.OrderNumber
	}
	return nil
}
