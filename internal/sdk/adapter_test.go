package sdk_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/sdk"
)

// ---- fake sdk ----

type fakeInstance struct {
	onSuccess func(sdk.Payload)
	onClose   func()
	showErr   error
	shown     bool
}

func (f *fakeInstance) SetCallback(fn func(sdk.Payload)) { f.onSuccess = fn }
func (f *fakeInstance) SetOnClose(fn func())             { f.onClose = fn }
func (f *fakeInstance) ShowPopup() error {
	f.shown = true
	return f.showErr
}

type fakeSDK struct {
	instance *fakeInstance
	setupErr error
}

func (f *fakeSDK) Setup(_ *checkout.Config) (sdk.Instance, error) {
	if f.setupErr != nil {
		return nil, f.setupErr
	}
	return f.instance, nil
}

func loaderFor(s sdk.SDK, err error) (sdk.Loader, *int) {
	calls := 0
	return func(context.Context) (sdk.SDK, error) {
		calls++
		if err != nil {
			return nil, err
		}
		return s, nil
	}, &calls
}

func testConfig() *checkout.Config {
	return &checkout.Config{PublicKey: "pk_test", Reference: "TXN-1"}
}

func TestEnsureLoadedIsIdempotent(t *testing.T) {
	load, calls := loaderFor(&fakeSDK{instance: &fakeInstance{}}, nil)
	adapter := sdk.NewAdapter(load, nil)

	require.NoError(t, adapter.EnsureLoaded(context.Background()))
	require.NoError(t, adapter.EnsureLoaded(context.Background()))
	assert.Equal(t, 1, *calls)
}

func TestEnsureLoadedFailureIsRetryable(t *testing.T) {
	boom := errors.New("script blocked")
	attempt := 0
	adapter := sdk.NewAdapter(func(context.Context) (sdk.SDK, error) {
		attempt++
		if attempt == 1 {
			return nil, boom
		}
		return &fakeSDK{instance: &fakeInstance{}}, nil
	}, nil)

	err := adapter.EnsureLoaded(context.Background())
	var loadErr *sdk.LoadError
	require.True(t, errors.As(err, &loadErr))

	require.NoError(t, adapter.EnsureLoaded(context.Background()))
	assert.Equal(t, 2, attempt)
}

func TestOpenResolvesSuccess(t *testing.T) {
	instance := &fakeInstance{}
	load, _ := loaderFor(&fakeSDK{instance: instance}, nil)
	adapter := sdk.NewAdapter(load, nil)

	inv, err := adapter.Open(context.Background(), testConfig())
	require.NoError(t, err)
	require.True(t, instance.shown)

	instance.onSuccess(sdk.Payload{"reference": "TXN-1", "status": "success"})

	res := inv.Await(context.Background())
	assert.Equal(t, sdk.StatusSuccess, res.Status)
	assert.Equal(t, "TXN-1", res.Payload.Reference())
}

func TestCloseAfterSuccessIsIgnored(t *testing.T) {
	instance := &fakeInstance{}
	load, _ := loaderFor(&fakeSDK{instance: instance}, nil)
	adapter := sdk.NewAdapter(load, nil)

	inv, err := adapter.Open(context.Background(), testConfig())
	require.NoError(t, err)

	instance.onSuccess(sdk.Payload{"trxref": "TXN-1"})
	instance.onClose() // SDK fires both in some environments
	instance.onClose()

	res := inv.Await(context.Background())
	assert.Equal(t, sdk.StatusSuccess, res.Status)

	// no second result is buffered
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res = inv.Await(ctx)
	assert.Equal(t, sdk.StatusError, res.Status)
}

func TestCloseWithoutSuccessResolvesClosed(t *testing.T) {
	instance := &fakeInstance{}
	load, _ := loaderFor(&fakeSDK{instance: instance}, nil)
	adapter := sdk.NewAdapter(load, nil)

	inv, err := adapter.Open(context.Background(), testConfig())
	require.NoError(t, err)

	instance.onClose()
	res := inv.Await(context.Background())
	assert.Equal(t, sdk.StatusClosed, res.Status)
}

func TestPayloadReferenceKeys(t *testing.T) {
	assert.Equal(t, "A", sdk.Payload{"transactionRef": "A"}.Reference())
	assert.Equal(t, "B", sdk.Payload{"reference": "B"}.Reference())
	assert.Equal(t, "C", sdk.Payload{"trxref": "C"}.Reference())
	assert.Equal(t, "", sdk.Payload{"reference": 42}.Reference())
	assert.Equal(t, "", sdk.Payload{}.Reference())
	assert.Equal(t, "", sdk.Payload(nil).Reference())
}

func TestPayloadStructured(t *testing.T) {
	assert.False(t, sdk.Payload(nil).Structured())
	assert.False(t, sdk.Payload{"reference": "B"}.Structured())
	assert.False(t, sdk.Payload{"reference": "B", "trxref": "B"}.Structured())
	assert.True(t, sdk.Payload{"reference": "B", "status": "success"}.Structured())
}
