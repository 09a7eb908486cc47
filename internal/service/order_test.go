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

func sampleOrder(id string, status entities.Status) entities.Order {
	return entities.Order{
		ID:          id,
		CustomerRef: "cus-1",
		FullName:    "Nguyễn Văn An",
		Phone:       "0912345678",
		Address:     resolvedAddress(),
		Items: entities.Snapshot{
			{ProductRef: "p1", Name: "Áo thun", UnitPrice: 500000, Quantity: 2},
		},
		Subtotal:    1000000,
		ShippingFee: 36300,
		Total:       1036300,
		Status:      status,
	}
}

func TestOrderService_GetOrderByID(t *testing.T) {
	t.Run("cache miss falls through and fills", func(t *testing.T) {
		repo := new(mockOrderRepo)
		cache := new(mockCache)
		order := sampleOrder("ord-1", entities.StatusPending)

		cache.On("Get", "ord-1").Return(nil, false).Once()
		repo.On("GetOrderByID", mock.Anything, "ord-1").Return(order, nil).Once()
		cache.On("Set", "ord-1", mock.Anything).Once()

		svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, cache, quietEvents())
		got, err := svc.GetOrderByID(context.Background(), "ord-1")
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
		assert.Equal(t, order.Total, got.Total)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		repo := new(mockOrderRepo)
		cache := new(mockCache)
		order := sampleOrder("ord-1", entities.StatusPaid)
		data, err := order.Marshal()
		require.NoError(t, err)

		cache.On("Get", "ord-1").Return(data, true).Once()

		svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, cache, quietEvents())
		got, err := svc.GetOrderByID(context.Background(), "ord-1")
		require.NoError(t, err)
		assert.Equal(t, order, got)
		repo.AssertNotCalled(t, "GetOrderByID", mock.Anything, mock.Anything)
	})

	t.Run("corrupted cache entry", func(t *testing.T) {
		repo := new(mockOrderRepo)
		cache := new(mockCache)

		cache.On("Get", "ord-1").Return([]byte("not gob"), true).Once()

		svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, cache, quietEvents())
		_, err := svc.GetOrderByID(context.Background(), "ord-1")
		assert.ErrorIs(t, err, entities.ErrInvalidOrder)
	})

	t.Run("not found is not retried", func(t *testing.T) {
		repo := new(mockOrderRepo)
		cache := new(mockCache)

		cache.On("Get", "missing").Return(nil, false).Once()
		repo.On("GetOrderByID", mock.Anything, "missing").Return(entities.Order{}, entities.ErrOrderNotFound).Once()

		svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, cache, quietEvents())
		_, err := svc.GetOrderByID(context.Background(), "missing")
		assert.ErrorIs(t, err, entities.ErrOrderNotFound)
		repo.AssertExpectations(t)
	})
}

func TestOrderService_ListByCustomer(t *testing.T) {
	repo := new(mockOrderRepo)
	orders := []entities.Order{sampleOrder("ord-1", entities.StatusPending)}

	repo.On("ListByCustomer", mock.Anything, "cus-1", 20).Return(orders, nil).Twice()
	repo.On("ListByCustomer", mock.Anything, "cus-1", 5).Return(orders, nil).Once()

	svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, new(mockCache), quietEvents())

	// out-of-range limits clamp to the default page size
	for _, limit := range []int{0, 500, 5} {
		got, err := svc.ListByCustomer(context.Background(), "cus-1", limit)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	repo.AssertExpectations(t)
}

func TestOrderService_ChangeStatus(t *testing.T) {
	t.Run("valid transition", func(t *testing.T) {
		repo := new(mockOrderRepo)
		cache := new(mockCache)
		events := new(mockEvents)
		order := sampleOrder("ord-1", entities.StatusPaid)

		repo.On("GetOrderByID", mock.Anything, "ord-1").Return(order, nil).Once()
		repo.On("UpdateStatus", mock.Anything, "ord-1", mock.MatchedBy(func(c entities.StatusChange) bool {
			return c.From == entities.StatusPaid && c.To == entities.StatusProcessing && c.Actor == "staff-7"
		})).Return(nil).Once()
		cache.On("Delete", "ord-1").Once()
		events.On("StatusChanged", mock.Anything, "ord-1", mock.Anything).Return(nil).Once()

		svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, cache, events)
		got, err := svc.ChangeStatus(context.Background(), "ord-1", entities.StatusProcessing, "staff-7", "")
		require.NoError(t, err)
		assert.Equal(t, entities.StatusProcessing, got.Status)
		require.Len(t, got.History, 1)
		assert.Equal(t, entities.StatusPaid, got.History[0].From)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
		events.AssertExpectations(t)
	})

	t.Run("illegal transition", func(t *testing.T) {
		repo := new(mockOrderRepo)
		order := sampleOrder("ord-1", entities.StatusCompleted)

		repo.On("GetOrderByID", mock.Anything, "ord-1").Return(order, nil).Once()

		svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, new(mockCache), quietEvents())
		_, err := svc.ChangeStatus(context.Background(), "ord-1", entities.StatusShipping, "staff-7", "")
		assert.ErrorIs(t, err, entities.ErrInvalidTransition)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancellation requires a reason", func(t *testing.T) {
		repo := new(mockOrderRepo)

		svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, new(mockCache), quietEvents())
		_, err := svc.ChangeStatus(context.Background(), "ord-1", entities.StatusCancelled, "cus-1", "")
		assert.ErrorIs(t, err, entities.ErrInvalidTransition)
		repo.AssertNotCalled(t, "GetOrderByID", mock.Anything, mock.Anything)
	})

	t.Run("missing actor", func(t *testing.T) {
		svc := service.NewOrderService(discardLogger(), passthroughTx(), new(mockOrderRepo), new(mockCache), quietEvents())
		_, err := svc.ChangeStatus(context.Background(), "ord-1", entities.StatusProcessing, "", "")
		assert.ErrorIs(t, err, entities.ErrInvalidTransition)
	})

	t.Run("lost race against a concurrent writer", func(t *testing.T) {
		repo := new(mockOrderRepo)
		order := sampleOrder("ord-1", entities.StatusPending)

		repo.On("GetOrderByID", mock.Anything, "ord-1").Return(order, nil).Once()
		repo.On("UpdateStatus", mock.Anything, "ord-1", mock.Anything).Return(entities.ErrInvalidTransition).Once()

		svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, new(mockCache), quietEvents())
		_, err := svc.ChangeStatus(context.Background(), "ord-1", entities.StatusProcessing, "staff-7", "")
		assert.ErrorIs(t, err, entities.ErrInvalidTransition)
	})

	t.Run("event publish failure does not fail the change", func(t *testing.T) {
		repo := new(mockOrderRepo)
		cache := new(mockCache)
		events := new(mockEvents)
		order := sampleOrder("ord-1", entities.StatusShipping)

		repo.On("GetOrderByID", mock.Anything, "ord-1").Return(order, nil).Once()
		repo.On("UpdateStatus", mock.Anything, "ord-1", mock.Anything).Return(nil).Once()
		cache.On("Delete", "ord-1").Once()
		events.On("StatusChanged", mock.Anything, "ord-1", mock.Anything).Return(errors.New("broker down")).Once()

		svc := service.NewOrderService(discardLogger(), passthroughTx(), repo, cache, events)
		got, err := svc.ChangeStatus(context.Background(), "ord-1", entities.StatusShipped, "carrier", "")
		require.NoError(t, err)
		assert.Equal(t, entities.StatusShipped, got.Status)
	})
}
