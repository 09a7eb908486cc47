package repo_test

import (
	"context"
	"testing"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/internal/repo"
	"github.com/minhngo-dev/storefront-checkout/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepo_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	carts := repo.NewCartRepo(kv.NewMemoryStore())

	items := []entities.CartItem{
		{ProductRef: "p1", Name: "Áo thun", UnitPrice: 150000, Quantity: 2, Weight: 200, Length: 25, Width: 20, Height: 2},
		{ProductRef: "p2", Name: "Giày sneaker", UnitPrice: 900000, Quantity: 1, ImageRef: "img/p2.jpg", Weight: 800, Length: 32, Width: 22, Height: 12},
	}
	require.NoError(t, carts.Save(ctx, "cus-1", items))

	snapshot, err := carts.Snapshot(ctx, "cus-1")
	require.NoError(t, err)
	assert.Equal(t, entities.Snapshot(items), snapshot)
}

func TestCartRepo_MissingCartIsEmpty(t *testing.T) {
	ctx := context.Background()
	carts := repo.NewCartRepo(kv.NewMemoryStore())

	snapshot, err := carts.Snapshot(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

// A snapshot is a value copy: mutating the cart after the read must not
// change what an in-flight checkout sees.
func TestCartRepo_SnapshotIsDecoupled(t *testing.T) {
	ctx := context.Background()
	carts := repo.NewCartRepo(kv.NewMemoryStore())

	require.NoError(t, carts.Save(ctx, "cus-1", []entities.CartItem{
		{ProductRef: "p1", UnitPrice: 100000, Quantity: 1},
	}))

	snapshot, err := carts.Snapshot(ctx, "cus-1")
	require.NoError(t, err)

	require.NoError(t, carts.Save(ctx, "cus-1", []entities.CartItem{
		{ProductRef: "p1", UnitPrice: 100000, Quantity: 5},
		{ProductRef: "p2", UnitPrice: 50000, Quantity: 1},
	}))

	assert.Len(t, snapshot, 1)
	assert.Equal(t, 1, snapshot[0].Quantity)
}

func TestCartRepo_Clear(t *testing.T) {
	ctx := context.Background()
	carts := repo.NewCartRepo(kv.NewMemoryStore())

	require.NoError(t, carts.Save(ctx, "cus-1", []entities.CartItem{{ProductRef: "p1", Quantity: 1}}))
	require.NoError(t, carts.Clear(ctx, "cus-1"))

	snapshot, err := carts.Snapshot(ctx, "cus-1")
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestDraftRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	drafts := repo.NewDraftRepo(kv.NewMemoryStore())

	// missing draft comes back empty, not as an error
	d, err := drafts.Get(ctx, "cus-1")
	require.NoError(t, err)
	assert.Equal(t, "cus-1", d.CustomerRef)
	assert.Nil(t, d.Quote)

	d.FullName = "Nguyễn Văn An"
	d.Phone = "0912345678"
	d.Address.SetProvince(201)
	d.Address.SetDistrict(1442)
	d.Address.SetWard("20101")
	require.NoError(t, drafts.Save(ctx, d))

	got, err := drafts.Get(ctx, "cus-1")
	require.NoError(t, err)
	assert.Equal(t, d, got)
}
