package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQuoteService_Quote(t *testing.T) {
	snapshot := entities.Snapshot{
		{ProductRef: "p1", UnitPrice: 500000, Quantity: 2, Weight: 200, Length: 20, Width: 15, Height: 5},
	}

	t.Run("resolver fee is passed through", func(t *testing.T) {
		carts := new(mockCartRepo)
		resolver := new(mockResolver)

		carts.On("Snapshot", mock.Anything, "cus-1").Return(snapshot, nil).Once()
		resolver.On("CalculateFee", mock.Anything, resolvedAddress(), snapshot.PackageProfile()).
			Return(int64(36300), nil).Once()

		svc := service.NewQuoteService(discardLogger(), resolver, carts)
		quote, err := svc.Quote(context.Background(), "cus-1", resolvedAddress())
		require.NoError(t, err)
		assert.Equal(t, int64(36300), quote.Fee)
		assert.False(t, quote.Degraded)
		assert.False(t, quote.ComputedAt.IsZero())
		resolver.AssertExpectations(t)
	})

	t.Run("resolver failure degrades to zero", func(t *testing.T) {
		carts := new(mockCartRepo)
		resolver := new(mockResolver)

		carts.On("Snapshot", mock.Anything, "cus-1").Return(snapshot, nil).Once()
		resolver.On("CalculateFee", mock.Anything, mock.Anything, mock.Anything).
			Return(int64(0), errors.New("carrier unreachable")).Once()

		svc := service.NewQuoteService(discardLogger(), resolver, carts)
		quote, err := svc.Quote(context.Background(), "cus-1", resolvedAddress())
		require.NoError(t, err)
		assert.Equal(t, int64(0), quote.Fee)
		assert.True(t, quote.Degraded)
	})

	t.Run("unresolved address", func(t *testing.T) {
		svc := service.NewQuoteService(discardLogger(), new(mockResolver), new(mockCartRepo))
		_, err := svc.Quote(context.Background(), "cus-1", entities.Address{ProvinceID: 201})
		assert.ErrorIs(t, err, service.ErrAddressUnresolved)
	})

	t.Run("cart read failure", func(t *testing.T) {
		carts := new(mockCartRepo)
		carts.On("Snapshot", mock.Anything, "cus-1").Return(nil, errors.New("redis down")).Once()

		svc := service.NewQuoteService(discardLogger(), new(mockResolver), carts)
		_, err := svc.Quote(context.Background(), "cus-1", resolvedAddress())
		assert.Error(t, err)
	})

	t.Run("quoting a snapshot never re-reads the cart", func(t *testing.T) {
		carts := new(mockCartRepo)
		resolver := new(mockResolver)

		resolver.On("CalculateFee", mock.Anything, resolvedAddress(), snapshot.PackageProfile()).
			Return(int64(36300), nil).Once()

		svc := service.NewQuoteService(discardLogger(), resolver, carts)
		quote, err := svc.QuoteSnapshot(context.Background(), snapshot, resolvedAddress())
		require.NoError(t, err)
		assert.Equal(t, int64(36300), quote.Fee)
		carts.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything)
	})
}
