package controller

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/errs"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/reconcile"
	"storefront-checkout/internal/sdk"
	"storefront-checkout/internal/store"
)

// Navigator receives the terminal routing decision for a checkout run.
type Navigator interface {
	Success(outcome reconcile.Outcome)
	ManualVerification(outcome reconcile.Outcome)
}

// Notifier surfaces user-facing error toasts.
type Notifier interface {
	Toast(message string)
}

// ErrCheckoutInProgress means a checkout is already running; the double-click
// guard rejected the call.
var ErrCheckoutInProgress = errors.New("checkout already in progress")

// Engine is the shared checkout flow every page controller delegates to:
// validate → create order → build SDK config → apply server totals → popup →
// reconcile → route. Controllers only supply items, customer data, and step
// bookkeeping.
type Engine struct {
	api      client.CommerceClient
	adapter  *sdk.Adapter
	machine  *reconcile.Machine
	profiles store.ProfileStore
	payment  config.Payment
	store    config.Store
	nav      Navigator
	notify   Notifier
	validate *validator.Validate
	log      *zap.Logger

	processing atomic.Bool
}

func NewEngine(
	api client.CommerceClient,
	adapter *sdk.Adapter,
	machine *reconcile.Machine,
	profiles store.ProfileStore,
	paymentCfg config.Payment,
	storeCfg config.Store,
	nav Navigator,
	notify Notifier,
	log *zap.Logger,
) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		api:      api,
		adapter:  adapter,
		machine:  machine,
		profiles: profiles,
		payment:  paymentCfg,
		store:    storeCfg,
		nav:      nav,
		notify:   notify,
		validate: validator.New(),
		log:      log,
	}
}

// Processing reports whether a checkout run is currently active. The UI uses
// it to render the non-interactive processing state.
func (e *Engine) Processing() bool {
	return e.processing.Load()
}

// Checkout runs the full flow for one intent. It always terminates: either a
// routed outcome (success or manual verification) or an error after a toast,
// with the processing flag cleared so the user can retry.
func (e *Engine) Checkout(ctx context.Context, intent *model.CheckoutIntent) (*reconcile.Outcome, error) {
	if !e.processing.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInProgress
	}
	defer e.processing.Store(false)

	if err := e.preflight(intent); err != nil {
		e.notify.Toast(err.Error())
		return nil, err
	}

	ord, err := e.api.CreateOrder(ctx, &client.CreateOrderRequest{
		StoreID:         intent.StoreID,
		Items:           intent.Items,
		CustomerInfo:    intent.Customer,
		ShippingAddress: intent.ShippingAddress,
		ShippingMethod:  intent.ShippingMethod,
		ShippingCost:    intent.ShippingCost,
		PaymentMethod:   intent.PaymentMethod,
		CustomerID:      intent.CustomerID,
	})
	if err != nil {
		e.log.Error("order creation failed", zap.Error(err))
		e.notify.Toast(orderCreationMessage(err))
		return nil, err
	}

	cfg, err := checkout.Build(intent.Items, intent.Customer.Email, e.payment.PublicKey, checkout.Options{
		FirstName:        intent.Customer.FirstName,
		LastName:         intent.Customer.LastName,
		Phone:            intent.Customer.Phone,
		CallbackURL:      e.payment.CallbackURL,
		Currency:         intent.Currency,
		FallbackCurrency: e.store.Currency,
		Mode:             e.payment.Mode,
		StoreID:          intent.StoreID,
		ShippingAddress:  &intent.ShippingAddress,
	})
	if err != nil {
		e.notify.Toast(err.Error())
		return nil, err
	}
	if err := cfg.ApplyOrder(ord); err != nil {
		e.notify.Toast("We could not prepare your payment. Please try again.")
		return nil, err
	}

	// Logged so support can reconcile manually if the automated flow fails.
	e.log.Info("checkout config ready",
		zap.String("reference", cfg.Reference),
		zap.String("amount", cfg.Amount.String()),
		zap.String("currency", cfg.Currency),
		zap.String("order_id", ord.OrderID))

	e.saveGuestProfile(ctx, intent.Customer)

	inv, err := e.adapter.Open(ctx, cfg)
	if err != nil {
		e.log.Error("payment popup failed to open", zap.Error(err))
		e.notify.Toast("The payment window could not be opened. Please try again.")
		return nil, err
	}

	result := inv.Await(ctx)
	switch result.Status {
	case sdk.StatusClosed:
		e.notify.Toast("Payment window closed before completing. You have not been charged.")
		return nil, errors.New("payment window closed")
	case sdk.StatusError:
		e.notify.Toast("Payment could not be completed: " + result.Message)
		return nil, errors.New(result.Message)
	}

	data := result.Payload
	if !data.Structured() {
		data = nil
	}
	outcome := e.machine.Reconcile(ctx, reconcile.Callback{
		TransactionRef: ord.TransactionRef,
		Data:           data,
		StoreID:        intent.StoreID,
	})

	switch outcome.Route {
	case reconcile.RouteSuccess:
		e.nav.Success(outcome)
	case reconcile.RouteManualVerification:
		e.nav.ManualVerification(outcome)
	}
	return &outcome, nil
}

func (e *Engine) preflight(intent *model.CheckoutIntent) error {
	if e.payment.PublicKey == "" {
		return checkout.ErrMissingPublicKey
	}
	if len(intent.Items) == 0 {
		return errs.Validation("items", "your cart is empty")
	}
	if err := e.validate.Struct(intent); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return errs.Validation(first.Field(), "is missing or invalid")
		}
		return errs.Validation("", err.Error())
	}
	return nil
}

func (e *Engine) saveGuestProfile(ctx context.Context, info model.CustomerInfo) {
	if e.profiles == nil {
		return
	}
	if err := e.profiles.Save(ctx, info); err != nil {
		e.log.Warn("could not persist guest profile", zap.Error(err))
	}
}

// GuestProfile returns the persisted guest contact info for form prefill.
func (e *Engine) GuestProfile(ctx context.Context) (model.CustomerInfo, bool) {
	if e.profiles == nil {
		return model.CustomerInfo{}, false
	}
	info, found, err := e.profiles.Load(ctx)
	if err != nil {
		e.log.Warn("could not load guest profile", zap.Error(err))
		return model.CustomerInfo{}, false
	}
	return info, found
}

// orderCreationMessage classifies an order-creation failure for the user.
// Order creation is the one stage that truly aborts the flow.
func orderCreationMessage(err error) string {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.IsClientError() {
			return "We could not create your order. Please check your details and try again."
		}
		return "Our servers are having trouble right now. Please try again in a moment."
	}
	var transportErr *client.TransportError
	if errors.As(err, &transportErr) {
		return "We could not reach the server. Please check your connection and try again."
	}
	return "We could not create your order. Please try again."
}
