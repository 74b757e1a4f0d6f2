package storefront

import (
	"context"
	"testing"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCartService(t *testing.T) (*CartService, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewCartService(store, store, noopLocker{}), store
}

func seedProduct(t *testing.T, store *memStore, name, price string) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
	require.NoError(t, store.CreateProduct(context.Background(), product))
	return product
}

func TestGetCartWithoutCartReturnsEmptyView(t *testing.T) {
	svc, _ := newTestCartService(t)

	view, err := svc.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	svc, store := newTestCartService(t)
	product := seedProduct(t, store, "widget", "9.99")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, product.ID, 2)
	require.NoError(t, err)

	view, err := svc.AddItem(ctx, 1, product.ID, 3)
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, product.ID, view.Items[0].ProductID)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, "widget", view.Items[0].Name)
	assert.True(t, view.Items[0].Price.Equal(decimal.RequireFromString("9.99")))
}

func TestAddItemRejectsBadInput(t *testing.T) {
	svc, store := newTestCartService(t)
	product := seedProduct(t, store, "widget", "1.00")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddItem(ctx, 1, product.ID, -2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddItem(ctx, 1, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, _ := newTestCartService(t)

	_, err := svc.AddItem(context.Background(), 1, 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetQuantityOverwritesInsteadOfAccumulating(t *testing.T) {
	svc, store := newTestCartService(t)
	product := seedProduct(t, store, "widget", "2.50")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, product.ID, 7)
	require.NoError(t, err)

	view, err := svc.SetQuantity(ctx, 1, product.ID, 2)
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, map[int64]int{product.ID: 2}, store.cartQuantities(1))
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	svc, store := newTestCartService(t)
	product := seedProduct(t, store, "widget", "2.50")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, product.ID, 3)
	require.NoError(t, err)

	view, err := svc.SetQuantity(ctx, 1, product.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Empty(t, store.cartQuantities(1))
}

func TestSetQuantityMissingLineLeavesCartUnchanged(t *testing.T) {
	svc, store := newTestCartService(t)
	product := seedProduct(t, store, "widget", "2.50")
	other := seedProduct(t, store, "gadget", "4.00")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, product.ID, 3)
	require.NoError(t, err)

	_, err = svc.SetQuantity(ctx, 1, other.ID, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, map[int64]int{product.ID: 3}, store.cartQuantities(1))
}

func TestSetQuantityWithoutCart(t *testing.T) {
	svc, store := newTestCartService(t)
	product := seedProduct(t, store, "widget", "2.50")

	_, err := svc.SetQuantity(context.Background(), 1, product.ID, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	svc, store := newTestCartService(t)
	product := seedProduct(t, store, "widget", "2.50")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, product.ID, 3)
	require.NoError(t, err)

	view, err := svc.RemoveItem(ctx, 1, product.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	view, err = svc.RemoveItem(ctx, 1, product.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Empty(t, store.cartQuantities(1))
}

func TestGetCartDropsAndPersistsDanglingLines(t *testing.T) {
	svc, store := newTestCartService(t)
	kept := seedProduct(t, store, "kept", "1.00")
	doomed := seedProduct(t, store, "doomed", "2.00")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, kept.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 1, doomed.ID, 4)
	require.NoError(t, err)

	require.NoError(t, store.DeleteProduct(ctx, doomed.ID))

	view, err := svc.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, kept.ID, view.Items[0].ProductID)

	// the drop is persisted, not just filtered from the view
	assert.Equal(t, map[int64]int{kept.ID: 1}, store.cartQuantities(1))
}
