package controller

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/currency"
	"storefront-checkout/internal/errs"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/reconcile"
)

// Cart is the store-level cart context shared across pages. Only the active
// controller mutates it.
type Cart interface {
	Items() []model.LineItem
	Add(item model.LineItem)
	Clear()
}

type memoryCart struct {
	mu    sync.Mutex
	items []model.LineItem
}

func NewMemoryCart() Cart {
	return &memoryCart{}
}

func (c *memoryCart) Items() []model.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *memoryCart) Add(item model.LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

func (c *memoryCart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

type CartStep int

const (
	CartStepDetails CartStep = iota
	CartStepShipping
	CartStepPayment
	CartStepSuccess
)

func (s CartStep) String() string {
	switch s {
	case CartStepDetails:
		return "details"
	case CartStepShipping:
		return "shipping"
	case CartStepPayment:
		return "payment"
	case CartStepSuccess:
		return "success"
	}
	return "unknown"
}

// CartController drives the full-cart checkout wizard:
// details → shipping → payment → success.
type CartController struct {
	engine *Engine
	cart   Cart
	api    client.CommerceClient
	log    *zap.Logger

	step     CartStep
	customer model.CustomerInfo
	address  model.Address
	method   *client.ShippingMethod
}

func NewCartController(engine *Engine, cart Cart, api client.CommerceClient, log *zap.Logger) *CartController {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartController{engine: engine, cart: cart, api: api, log: log}
}

func (c *CartController) Step() CartStep { return c.step }

// SubmitDetails records contact and address info and advances to shipping.
func (c *CartController) SubmitDetails(customer model.CustomerInfo, address model.Address) error {
	if c.step != CartStepDetails {
		return errs.Validation("step", "details already submitted")
	}
	c.customer = customer
	c.address = address
	c.step = CartStepShipping
	return nil
}

// ShippingMethods fetches the available methods for the submitted address.
func (c *CartController) ShippingMethods(ctx context.Context) (*client.ShippingResponse, error) {
	if c.step != CartStepShipping {
		return nil, errs.Validation("step", "submit your details first")
	}
	items := c.cart.Items()
	intent := model.CheckoutIntent{Items: items}
	return c.api.CalculateShipping(ctx, &client.ShippingRequest{
		StoreID:  c.engine.store.ID,
		Address:  c.address,
		Items:    items,
		Subtotal: intent.Subtotal(),
		Currency: currency.FromLineItems(items, c.engine.store.Currency),
	})
}

// SelectShipping records the chosen method and advances to payment.
func (c *CartController) SelectShipping(method client.ShippingMethod) error {
	if c.step != CartStepShipping {
		return errs.Validation("step", "submit your details first")
	}
	c.method = &method
	c.step = CartStepPayment
	return nil
}

// Pay runs the shared checkout flow for the current cart. The cart clears
// only once the payment is confirmed; an ambiguous outcome keeps it so the
// user can retry after manual verification.
func (c *CartController) Pay(ctx context.Context) error {
	if c.step != CartStepPayment {
		return errs.Validation("step", "choose a shipping method first")
	}

	intent := &model.CheckoutIntent{
		StoreID:         c.engine.store.ID,
		Items:           c.cart.Items(),
		Customer:        c.customer,
		ShippingAddress: c.address,
		PaymentMethod:   "card",
	}
	if c.method != nil {
		intent.ShippingMethod = c.method.Code
		intent.ShippingCost = c.method.Cost
	}

	outcome, err := c.engine.Checkout(ctx, intent)
	if err != nil {
		return err
	}
	if outcome.Route == reconcile.RouteSuccess {
		c.cart.Clear()
		c.step = CartStepSuccess
	}
	return nil
}
