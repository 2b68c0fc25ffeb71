package controller

import (
	"context"

	"go.uber.org/zap"

	"storefront-checkout/internal/errs"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/reconcile"
	"storefront-checkout/internal/store"
)

// BuyNowController drives the single-item fast checkout. The pending item is
// rehydrated from the one-slot store on construction, because a "buy now"
// click navigates to a freshly loaded checkout page.
type BuyNowController struct {
	engine *Engine
	slot   *store.Slot
	item   *model.LineItem
	log    *zap.Logger
}

func NewBuyNowController(engine *Engine, slot *store.Slot, log *zap.Logger) *BuyNowController {
	if log == nil {
		log = zap.NewNop()
	}
	c := &BuyNowController{engine: engine, slot: slot, log: log}
	if item, ok := slot.Take(); ok {
		c.item = &item
	}
	return c
}

// Item returns the rehydrated buy-now item, if any.
func (c *BuyNowController) Item() (model.LineItem, bool) {
	if c.item == nil {
		return model.LineItem{}, false
	}
	return *c.item, true
}

// Pay runs the shared checkout flow for the single pending item.
func (c *BuyNowController) Pay(ctx context.Context, customer model.CustomerInfo, address model.Address) error {
	if c.item == nil {
		return errs.Validation("item", "nothing to buy")
	}

	intent := &model.CheckoutIntent{
		StoreID:         c.engine.store.ID,
		Items:           []model.LineItem{*c.item},
		Customer:        customer,
		ShippingAddress: address,
		PaymentMethod:   "card",
	}

	outcome, err := c.engine.Checkout(ctx, intent)
	if err != nil {
		return err
	}
	if outcome.Route == reconcile.RouteSuccess {
		c.item = nil
	}
	return nil
}

// Close releases the controller on unmount. The slot is cleared so a stale
// item cannot leak into a later, unrelated checkout session.
func (c *BuyNowController) Close() {
	c.item = nil
	c.slot.Clear()
}
