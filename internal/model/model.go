package model

import (
	"github.com/shopspring/decimal"
)

// LineItem is a single purchasable unit inside a checkout intent. Products
// carry a ProductID, bookable services a ServiceID; exactly one is expected.
type LineItem struct {
	ProductID string            `json:"productId,omitempty"`
	ServiceID string            `json:"serviceId,omitempty"`
	Name      string            `json:"name" validate:"required"`
	UnitPrice decimal.Decimal   `json:"unitPrice"`
	Quantity  int               `json:"quantity" validate:"required,gt=0"`
	Currency  string            `json:"currency,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type CustomerInfo struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone,omitempty"`
}

type Address struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country" validate:"required"`
}

// Order mirrors what order-creation returns. The front end never owns the
// order; it only carries these identifiers through the payment flow. The
// TransactionRef returned here is the only reference valid for the SDK and
// for all later verification calls.
type Order struct {
	OrderID        string          `json:"orderId"`
	OrderNumber    string          `json:"orderNumber,omitempty"`
	TransactionRef string          `json:"transactionReference,omitempty"`
	TotalAmount    decimal.Decimal `json:"totalAmount,omitempty"`
	Currency       string          `json:"currency,omitempty"`
}

// CheckoutIntent is the ephemeral order intent a controller assembles before
// calling order creation. It is destroyed on navigation away or once the
// order exists server-side.
type CheckoutIntent struct {
	ID              string          `json:"id"`
	StoreID         string          `json:"storeId" validate:"required"`
	Items           []LineItem      `json:"items" validate:"required,min=1,dive"`
	Customer        CustomerInfo    `json:"customer"`
	ShippingAddress Address         `json:"shippingAddress"`
	BillingAddress  *Address        `json:"billingAddress,omitempty"`
	ShippingMethod  string          `json:"shippingMethod,omitempty"`
	ShippingCost    decimal.Decimal `json:"shippingCost,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	CustomerID      string          `json:"customerId,omitempty"`
}

func (ci *CheckoutIntent) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range ci.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}
