package controller

import (
	"context"

	"go.uber.org/zap"

	"storefront-checkout/internal/errs"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/reconcile"
)

type BookingStep int

const (
	BookingStepService BookingStep = iota
	BookingStepDateTime
	BookingStepDetails
	BookingStepPayment
	BookingStepSuccess
)

func (s BookingStep) String() string {
	switch s {
	case BookingStepService:
		return "service"
	case BookingStepDateTime:
		return "datetime"
	case BookingStepDetails:
		return "details"
	case BookingStepPayment:
		return "payment"
	case BookingStepSuccess:
		return "success"
	}
	return "unknown"
}

// BookingController drives the service-booking wizard:
// service → datetime → details → payment → success.
type BookingController struct {
	engine *Engine
	log    *zap.Logger

	step     BookingStep
	service  *model.LineItem
	date     string
	timeSlot string
	customer model.CustomerInfo
}

func NewBookingController(engine *Engine, log *zap.Logger) *BookingController {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingController{engine: engine, log: log}
}

func (c *BookingController) Step() BookingStep { return c.step }

func (c *BookingController) SelectService(service model.LineItem) error {
	if c.step != BookingStepService {
		return errs.Validation("step", "a service is already selected")
	}
	if service.ServiceID == "" {
		return errs.Validation("service", "a bookable service is required")
	}
	if service.Quantity == 0 {
		service.Quantity = 1
	}
	c.service = &service
	c.step = BookingStepDateTime
	return nil
}

func (c *BookingController) SelectSlot(date, timeSlot string) error {
	if c.step != BookingStepDateTime {
		return errs.Validation("step", "select a service first")
	}
	if date == "" || timeSlot == "" {
		return errs.Validation("datetime", "date and time are required")
	}
	c.date = date
	c.timeSlot = timeSlot
	c.step = BookingStepDetails
	return nil
}

func (c *BookingController) SubmitDetails(customer model.CustomerInfo) error {
	if c.step != BookingStepDetails {
		return errs.Validation("step", "choose a date and time first")
	}
	c.customer = customer
	c.step = BookingStepPayment
	return nil
}

// Pay runs the shared checkout flow for the booked service. The chosen date
// and time travel as line-item options so the backend can create the booking
// alongside the order.
func (c *BookingController) Pay(ctx context.Context, address model.Address) error {
	if c.step != BookingStepPayment {
		return errs.Validation("step", "complete the previous steps first")
	}

	item := *c.service
	if item.Options == nil {
		item.Options = make(map[string]string, 2)
	}
	item.Options["date"] = c.date
	item.Options["time"] = c.timeSlot

	intent := &model.CheckoutIntent{
		StoreID:         c.engine.store.ID,
		Items:           []model.LineItem{item},
		Customer:        c.customer,
		ShippingAddress: address,
		PaymentMethod:   "card",
	}

	outcome, err := c.engine.Checkout(ctx, intent)
	if err != nil {
		return err
	}
	if outcome.Route == reconcile.RouteSuccess {
		c.step = BookingStepSuccess
	}
	return nil
}
