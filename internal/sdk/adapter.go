package sdk

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"storefront-checkout/internal/checkout"
)

// Payload is the structured success payload the vendor SDK delivers. Shape
// varies by SDK version, so it stays schemaless and is forwarded verbatim to
// the backend's confirm endpoint.
type Payload map[string]any

// referenceKeys in the order different SDK versions have used them.
var referenceKeys = []string{"transactionRef", "reference", "trxref", "transaction"}

// Reference extracts the transaction reference, if any, from the payload.
func (p Payload) Reference() string {
	for _, key := range referenceKeys {
		if v, ok := p[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Structured reports whether the payload carries anything beyond a bare
// transaction reference. Confirmation calls need a structured payload;
// a bare reference has nothing to confirm against.
func (p Payload) Structured() bool {
	for key := range p {
		isRef := false
		for _, refKey := range referenceKeys {
			if key == refKey {
				isRef = true
				break
			}
		}
		if !isRef {
			return true
		}
	}
	return false
}

// SDK mirrors the vendor's setup(config) factory.
type SDK interface {
	Setup(cfg *checkout.Config) (Instance, error)
}

// Instance mirrors one configured popup invocation.
type Instance interface {
	SetCallback(fn func(Payload))
	SetOnClose(fn func())
	ShowPopup() error
}

// Loader injects the vendor script. Real deployments fetch it over the
// network; tests and the demo binary supply a local implementation.
type Loader func(ctx context.Context) (SDK, error)

// LoadError means the vendor script could not be injected.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("payment sdk failed to load: %v", e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

type Status int

const (
	// StatusPopupOpened is the asynchronous handoff: the popup is on screen
	// and the terminal result arrives later via Await.
	StatusPopupOpened Status = iota
	StatusSuccess
	StatusClosed
	StatusError
)

type Result struct {
	Status  Status
	Payload Payload
	Message string
}

// Adapter owns the vendor script lifecycle: load once per page lifetime,
// then hand out one Invocation per popup.
type Adapter struct {
	mu   sync.Mutex
	load Loader
	sdk  SDK
	log  *zap.Logger
}

func NewAdapter(load Loader, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{load: load, log: log}
}

// EnsureLoaded injects the script if it is not already present. Success is
// cached; a failure leaves the adapter retryable.
func (a *Adapter) EnsureLoaded(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sdk != nil {
		return nil
	}

	loaded, err := a.load(ctx)
	if err != nil {
		return &LoadError{Err: err}
	}
	a.sdk = loaded
	a.log.Debug("payment sdk loaded")
	return nil
}

// Open configures the SDK, shows the popup, and returns immediately. The
// terminal result is delivered through Invocation.Await.
//
// The SDK may fire both the success and the close callback in some
// environments; only the first one wins. A close arriving after a success is
// a no-op.
func (a *Adapter) Open(ctx context.Context, cfg *checkout.Config) (*Invocation, error) {
	if err := a.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	a.mu.Lock()
	loaded := a.sdk
	a.mu.Unlock()

	instance, err := loaded.Setup(cfg)
	if err != nil {
		return nil, fmt.Errorf("sdk setup: %w", err)
	}

	inv := &Invocation{done: make(chan Result, 1)}
	instance.SetCallback(func(payload Payload) {
		inv.resolve(Result{Status: StatusSuccess, Payload: payload})
	})
	instance.SetOnClose(func() {
		inv.resolve(Result{Status: StatusClosed, Message: "payment window closed"})
	})

	if err := instance.ShowPopup(); err != nil {
		return nil, fmt.Errorf("sdk show popup: %w", err)
	}
	a.log.Debug("payment popup opened", zap.String("reference", cfg.Reference))
	return inv, nil
}

// Invocation is one in-flight popup. Exactly one Result ever resolves.
type Invocation struct {
	once sync.Once
	done chan Result
}

func (inv *Invocation) resolve(res Result) {
	inv.once.Do(func() {
		inv.done <- res
	})
}

// Await blocks until the SDK delivers a terminal result or ctx ends.
func (inv *Invocation) Await(ctx context.Context) Result {
	select {
	case res := <-inv.done:
		return res
	case <-ctx.Done():
		return Result{Status: StatusError, Message: ctx.Err().Error()}
	}
}
