package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-checkout/internal/model"
	"storefront-checkout/internal/store"
)

func TestSlotTakeConsumes(t *testing.T) {
	slot := store.NewSlot()

	_, ok := slot.Take()
	assert.False(t, ok)

	slot.Put(model.LineItem{ProductID: "p-1", Name: "Shirt", UnitPrice: decimal.NewFromInt(20), Quantity: 1})

	item, ok := slot.Peek()
	require.True(t, ok)
	assert.Equal(t, "p-1", item.ProductID)

	item, ok = slot.Take()
	require.True(t, ok)
	assert.Equal(t, "p-1", item.ProductID)

	_, ok = slot.Take()
	assert.False(t, ok, "take must clear the slot")
}

func TestSlotPutReplaces(t *testing.T) {
	slot := store.NewSlot()
	slot.Put(model.LineItem{ProductID: "p-1", Name: "Shirt", Quantity: 1})
	slot.Put(model.LineItem{ProductID: "p-2", Name: "Cap", Quantity: 1})

	item, ok := slot.Take()
	require.True(t, ok)
	assert.Equal(t, "p-2", item.ProductID)
}

func TestProfileStoreRoundTrip(t *testing.T) {
	db, err := store.OpenProfileDB(filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)

	profiles := store.NewProfileStore(db)
	ctx := context.Background()

	_, found, err := profiles.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	info := model.CustomerInfo{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", Phone: "+15550100"}
	require.NoError(t, profiles.Save(ctx, info))

	got, found, err := profiles.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, info, got)

	// save again overwrites the single slot
	info.Phone = "+15550199"
	require.NoError(t, profiles.Save(ctx, info))
	got, _, err = profiles.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+15550199", got.Phone)

	require.NoError(t, profiles.Clear(ctx))
	_, found, err = profiles.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}
