package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/sdk"
)

// PaymentAPI is the slice of the commerce backend the machine needs.
type PaymentAPI interface {
	VerifyPayment(ctx context.Context, req *client.VerifyRequest) (*client.VerifyResponse, error)
	ConfirmFromCallback(ctx context.Context, payload map[string]any) (*client.ConfirmResponse, error)
}

type State string

const (
	StateAwaitingCallback       State = "awaiting-callback"
	StateImmediateVerifying     State = "immediate-verifying"
	StateConfirmingFromCallback State = "confirming-from-callback"
	StateShortPolling           State = "short-polling"
	StateResolved               State = "resolved"
	StateAmbiguous              State = "ambiguous"
)

type Route int

const (
	// RouteSuccess lands on the order-confirmation page.
	RouteSuccess Route = iota
	// RouteManualVerification lands on the manual-verification page keyed by
	// transaction reference and store. It is shown as "verifying, please
	// wait" — never as a failure, because the payment may still be pending
	// webhook delivery.
	RouteManualVerification
)

// Outcome is the machine's terminal decision.
type Outcome struct {
	Route          Route
	OrderID        string
	OrderNumber    string
	TransactionRef string
	StoreID        string
	// Via records which state produced the decision, for logging and tests.
	Via State
}

// Callback is the SDK success event handed to the machine. TransactionRef is
// the reference the controller knows (from order creation); Data is the
// structured payload, nil when the SDK delivered only a bare reference.
type Callback struct {
	TransactionRef string
	Data           sdk.Payload
	StoreID        string
}

// Machine reconciles an SDK success callback against the backend. Strategies
// run strictly in sequence for a given reference: an immediate verify (fast
// path for when the webhook already landed), a confirm-from-callback stage
// with retries, then a short verification poll. Transport errors are
// inconclusive and drive the next strategy; only full exhaustion yields the
// manual-verification route.
type Machine struct {
	api        PaymentAPI
	confirm    Policy
	poll       Policy
	onProgress func(attempt, maxAttempts int)
	wait       func(ctx context.Context, d time.Duration) error
	log        *zap.Logger
}

type Option func(*Machine)

func WithConfirmPolicy(p Policy) Option {
	return func(m *Machine) { m.confirm = p }
}

func WithPollPolicy(p Policy) Option {
	return func(m *Machine) { m.poll = p }
}

// WithProgress installs a side channel invoked once per poll attempt, for UI
// feedback ("checking payment 2/3...").
func WithProgress(fn func(attempt, maxAttempts int)) Option {
	return func(m *Machine) { m.onProgress = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Machine) { m.log = log }
}

// withWait overrides the sleep function. Test hook.
func withWait(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Machine) { m.wait = fn }
}

func NewMachine(api PaymentAPI, opts ...Option) *Machine {
	m := &Machine{
		api:     api,
		confirm: Policy{MaxAttempts: 3, Delay: Linear(time.Second)},
		poll:    Policy{MaxAttempts: 3, Delay: Fixed(time.Second)},
		wait:    sleep,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reconcile runs the full strategy sequence and always returns a terminal
// Outcome. It never reports a payment as failed: the worst case is the
// manual-verification route.
func (m *Machine) Reconcile(ctx context.Context, cb Callback) Outcome {
	ref := cb.TransactionRef
	if ref == "" {
		ref = cb.Data.Reference()
	}
	if ref == "" {
		// Nothing to verify against. Non-retryable; zero network calls.
		m.log.Warn("sdk callback carried no transaction reference")
		return Outcome{Route: RouteManualVerification, StoreID: cb.StoreID, Via: StateAmbiguous}
	}

	log := m.log.With(zap.String("reference", ref))

	if outcome, ok := m.verifyOnce(ctx, ref, cb.StoreID, StateImmediateVerifying, log); ok {
		return outcome
	}

	if cb.Data == nil {
		// Bare reference only: there is no payload to confirm against, so
		// skip straight to manual verification.
		log.Info("no callback data, routing to manual verification")
		return m.ambiguous(ref, cb.StoreID)
	}

	if outcome, ok := m.confirmFromCallback(ctx, ref, cb, log); ok {
		return outcome
	}

	if outcome, ok := m.shortPoll(ctx, ref, cb.StoreID, log); ok {
		return outcome
	}

	log.Warn("reconciliation exhausted, routing to manual verification")
	return m.ambiguous(ref, cb.StoreID)
}

func (m *Machine) verifyOnce(ctx context.Context, ref, storeID string, state State, log *zap.Logger) (Outcome, bool) {
	res, err := m.api.VerifyPayment(ctx, &client.VerifyRequest{TransactionRef: ref, StoreID: storeID})
	if err != nil {
		// Soft failure: the webhook may simply not have landed yet.
		log.Debug("verify attempt inconclusive", zap.String("state", string(state)), zap.Error(err))
		return Outcome{}, false
	}
	if res.Verified && res.PaymentStatus == client.PaymentCompleted {
		log.Info("payment verified",
			zap.String("state", string(state)),
			zap.String("order_id", res.OrderID))
		return Outcome{
			Route:          RouteSuccess,
			OrderID:        res.OrderID,
			OrderNumber:    res.OrderNumber,
			TransactionRef: ref,
			StoreID:        storeID,
			Via:            state,
		}, true
	}
	return Outcome{}, false
}

func (m *Machine) confirmFromCallback(ctx context.Context, ref string, cb Callback, log *zap.Logger) (Outcome, bool) {
	for attempt := 1; attempt <= m.confirm.MaxAttempts; attempt++ {
		res, err := m.api.ConfirmFromCallback(ctx, cb.Data)
		if err == nil {
			// alreadyProcessed is informational: idempotent re-confirmation
			// resolves the same way as a first-time confirmation.
			log.Info("payment confirmed from callback",
				zap.Int("attempt", attempt),
				zap.Bool("already_processed", res.AlreadyProcessed))
			return Outcome{
				Route:          RouteSuccess,
				OrderID:        res.OrderID,
				OrderNumber:    res.OrderNumber,
				TransactionRef: ref,
				StoreID:        cb.StoreID,
				Via:            StateConfirmingFromCallback,
			}, true
		}
		log.Debug("confirm attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < m.confirm.MaxAttempts {
			if err := m.wait(ctx, m.confirm.Delay(attempt)); err != nil {
				return Outcome{}, false
			}
		}
	}
	return Outcome{}, false
}

func (m *Machine) shortPoll(ctx context.Context, ref, storeID string, log *zap.Logger) (Outcome, bool) {
	for attempt := 1; attempt <= m.poll.MaxAttempts; attempt++ {
		if m.onProgress != nil {
			m.onProgress(attempt, m.poll.MaxAttempts)
		}
		if err := m.wait(ctx, m.poll.Delay(attempt)); err != nil {
			return Outcome{}, false
		}
		if outcome, ok := m.verifyOnce(ctx, ref, storeID, StateShortPolling, log); ok {
			return outcome, true
		}
	}
	return Outcome{}, false
}

func (m *Machine) ambiguous(ref, storeID string) Outcome {
	return Outcome{
		Route:          RouteManualVerification,
		TransactionRef: ref,
		StoreID:        storeID,
		Via:            StateAmbiguous,
	}
}
