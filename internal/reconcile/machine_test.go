package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/sdk"
)

// ---- mock payment api ----

type verifyStep struct {
	res *client.VerifyResponse
	err error
}

type confirmStep struct {
	res *client.ConfirmResponse
	err error
}

type mockAPI struct {
	verifySteps  []verifyStep
	confirmSteps []confirmStep

	verifyCalls  int
	confirmCalls int
	lastVerify   *client.VerifyRequest
}

func (m *mockAPI) VerifyPayment(_ context.Context, req *client.VerifyRequest) (*client.VerifyResponse, error) {
	m.verifyCalls++
	m.lastVerify = req
	if len(m.verifySteps) == 0 {
		return nil, errors.New("unexpected verify call")
	}
	step := m.verifySteps[0]
	if len(m.verifySteps) > 1 {
		m.verifySteps = m.verifySteps[1:]
	}
	return step.res, step.err
}

func (m *mockAPI) ConfirmFromCallback(_ context.Context, _ map[string]any) (*client.ConfirmResponse, error) {
	m.confirmCalls++
	if len(m.confirmSteps) == 0 {
		return nil, errors.New("unexpected confirm call")
	}
	step := m.confirmSteps[0]
	if len(m.confirmSteps) > 1 {
		m.confirmSteps = m.confirmSteps[1:]
	}
	return step.res, step.err
}

func recordedWaits(waits *[]time.Duration) Option {
	return withWait(func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	})
}

func verifiedCompleted(orderID, orderNumber string) verifyStep {
	return verifyStep{res: &client.VerifyResponse{
		Verified:      true,
		PaymentStatus: client.PaymentCompleted,
		OrderID:       orderID,
		OrderNumber:   orderNumber,
	}}
}

func TestFastPathSkipsConfirmAndPoll(t *testing.T) {
	api := &mockAPI{verifySteps: []verifyStep{verifiedCompleted("O-1", "1001")}}
	var waits []time.Duration
	m := NewMachine(api, recordedWaits(&waits))

	outcome := m.Reconcile(context.Background(), Callback{
		TransactionRef: "TXN-123",
		Data:           sdk.Payload{"reference": "TXN-123"},
		StoreID:        "store-1",
	})

	assert.Equal(t, RouteSuccess, outcome.Route)
	assert.Equal(t, "O-1", outcome.OrderID)
	assert.Equal(t, "1001", outcome.OrderNumber)
	assert.Equal(t, "TXN-123", outcome.TransactionRef)
	assert.Equal(t, StateImmediateVerifying, outcome.Via)
	assert.Equal(t, 1, api.verifyCalls)
	assert.Equal(t, 0, api.confirmCalls)
	assert.Empty(t, waits)
}

func TestMissingReferenceIsAmbiguousWithZeroCalls(t *testing.T) {
	api := &mockAPI{}
	m := NewMachine(api)

	outcome := m.Reconcile(context.Background(), Callback{StoreID: "store-1"})

	assert.Equal(t, RouteManualVerification, outcome.Route)
	assert.Equal(t, StateAmbiguous, outcome.Via)
	assert.Equal(t, 0, api.verifyCalls)
	assert.Equal(t, 0, api.confirmCalls)
}

func TestReferenceExtractedFromCallbackData(t *testing.T) {
	api := &mockAPI{verifySteps: []verifyStep{verifiedCompleted("O-2", "")}}
	m := NewMachine(api)

	outcome := m.Reconcile(context.Background(), Callback{
		Data: sdk.Payload{"trxref": "TXN-777"},
	})

	assert.Equal(t, RouteSuccess, outcome.Route)
	require.NotNil(t, api.lastVerify)
	assert.Equal(t, "TXN-777", api.lastVerify.TransactionRef)
}

func TestBareReferenceSkipsConfirmation(t *testing.T) {
	// Verify does not resolve and there is no callback data: route straight
	// to manual verification without ever calling confirm.
	api := &mockAPI{verifySteps: []verifyStep{{res: &client.VerifyResponse{Verified: false}}}}
	m := NewMachine(api)

	outcome := m.Reconcile(context.Background(), Callback{
		TransactionRef: "TXN-123",
		StoreID:        "store-1",
	})

	assert.Equal(t, RouteManualVerification, outcome.Route)
	assert.Equal(t, "TXN-123", outcome.TransactionRef)
	assert.Equal(t, "store-1", outcome.StoreID)
	assert.Equal(t, 1, api.verifyCalls)
	assert.Equal(t, 0, api.confirmCalls)
}

func TestConfirmResolvesAfterVerifyMisses(t *testing.T) {
	api := &mockAPI{
		verifySteps: []verifyStep{{err: errors.New("timeout")}},
		confirmSteps: []confirmStep{{res: &client.ConfirmResponse{
			OrderID:       "O-3",
			PaymentStatus: client.PaymentCompleted,
		}}},
	}
	m := NewMachine(api)

	outcome := m.Reconcile(context.Background(), Callback{
		TransactionRef: "TXN-123",
		Data:           sdk.Payload{"reference": "TXN-123"},
	})

	assert.Equal(t, RouteSuccess, outcome.Route)
	assert.Equal(t, "O-3", outcome.OrderID)
	assert.Equal(t, StateConfirmingFromCallback, outcome.Via)
	assert.Equal(t, 1, api.confirmCalls)
}

func TestAlreadyProcessedConfirmStillResolves(t *testing.T) {
	api := &mockAPI{
		verifySteps: []verifyStep{{err: errors.New("timeout")}},
		confirmSteps: []confirmStep{
			{err: errors.New("not yet")},
			{res: &client.ConfirmResponse{OrderID: "O-4", AlreadyProcessed: true}},
		},
	}
	var waits []time.Duration
	m := NewMachine(api, recordedWaits(&waits))

	outcome := m.Reconcile(context.Background(), Callback{
		TransactionRef: "TXN-123",
		Data:           sdk.Payload{"reference": "TXN-123"},
	})

	assert.Equal(t, RouteSuccess, outcome.Route)
	assert.Equal(t, "O-4", outcome.OrderID)
	assert.Equal(t, 2, api.confirmCalls)
	assert.Equal(t, []time.Duration{time.Second}, waits)
}

func TestPollingResolvesAfterConfirmExhausts(t *testing.T) {
	api := &mockAPI{
		verifySteps: []verifyStep{
			{res: &client.VerifyResponse{Verified: false, PaymentStatus: client.PaymentPending}},
			{res: &client.VerifyResponse{Verified: false, PaymentStatus: client.PaymentPending}},
			verifiedCompleted("O-5", "1005"),
		},
		confirmSteps: []confirmStep{{err: errors.New("still processing")}},
	}
	var waits []time.Duration
	var progress [][2]int
	m := NewMachine(api,
		recordedWaits(&waits),
		WithProgress(func(attempt, max int) { progress = append(progress, [2]int{attempt, max}) }),
	)

	outcome := m.Reconcile(context.Background(), Callback{
		TransactionRef: "TXN-123",
		Data:           sdk.Payload{"reference": "TXN-123"},
	})

	assert.Equal(t, RouteSuccess, outcome.Route)
	assert.Equal(t, StateShortPolling, outcome.Via)
	assert.Equal(t, "O-5", outcome.OrderID)
	assert.Equal(t, 3, api.verifyCalls)
	assert.Equal(t, 3, api.confirmCalls)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}}, progress)
}

func TestFullExhaustionBoundsAndDelays(t *testing.T) {
	// Everything fails: 1 verify + 3 confirms + 3 polls = 7 calls, with
	// linear confirm backoff (1s, 2s) and fixed 1s poll spacing.
	api := &mockAPI{
		verifySteps:  []verifyStep{{err: errors.New("network down")}},
		confirmSteps: []confirmStep{{err: errors.New("network down")}},
	}
	var waits []time.Duration
	m := NewMachine(api, recordedWaits(&waits))

	outcome := m.Reconcile(context.Background(), Callback{
		TransactionRef: "TXN-123",
		Data:           sdk.Payload{"reference": "TXN-123"},
		StoreID:        "store-1",
	})

	assert.Equal(t, RouteManualVerification, outcome.Route)
	assert.Equal(t, StateAmbiguous, outcome.Via)
	assert.Equal(t, "TXN-123", outcome.TransactionRef)
	assert.Equal(t, 4, api.verifyCalls)
	assert.Equal(t, 3, api.confirmCalls)
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, // between confirm attempts
		time.Second, time.Second, time.Second, // before each poll
	}, waits)
}

func TestCancelledContextEndsInManualVerification(t *testing.T) {
	api := &mockAPI{
		verifySteps:  []verifyStep{{err: errors.New("network down")}},
		confirmSteps: []confirmStep{{err: errors.New("network down")}},
	}
	m := NewMachine(api, withWait(func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}))

	outcome := m.Reconcile(context.Background(), Callback{
		TransactionRef: "TXN-123",
		Data:           sdk.Payload{"reference": "TXN-123"},
	})

	// Cancellation is still inconclusive, never a declared failure.
	assert.Equal(t, RouteManualVerification, outcome.Route)
}

func TestDelayFunctions(t *testing.T) {
	linear := Linear(time.Second)
	assert.Equal(t, time.Second, linear(1))
	assert.Equal(t, 3*time.Second, linear(3))

	fixed := Fixed(500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, fixed(1))
	assert.Equal(t, 500*time.Millisecond, fixed(9))
}
