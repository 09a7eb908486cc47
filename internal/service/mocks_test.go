package service_test

import (
	"context"
	"net/url"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/internal/payment"
	"github.com/minhngo-dev/storefront-checkout/pkg/trm"

	"github.com/stretchr/testify/mock"
)

type mockTxManager struct{ mock.Mock }

func (m *mockTxManager) BeginTx(ctx context.Context) (context.Context, trm.Transaction, error) {
	args := m.Called(ctx)
	return ctx, nil, args.Error(2)
}

func (m *mockTxManager) Do(ctx context.Context, callback func(ctx context.Context) error) error {
	m.Called(ctx, callback)
	return callback(ctx)
}

// passthroughTx wires Do to simply run the callback.
func passthroughTx() *mockTxManager {
	tx := new(mockTxManager)
	tx.On("Do", mock.Anything, mock.Anything).Return(nil).Maybe()
	return tx
}

type mockCartRepo struct{ mock.Mock }

func (m *mockCartRepo) Snapshot(ctx context.Context, customerRef string) (entities.Snapshot, error) {
	args := m.Called(ctx, customerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.Snapshot), args.Error(1)
}

func (m *mockCartRepo) Clear(ctx context.Context, customerRef string) error {
	return m.Called(ctx, customerRef).Error(0)
}

type mockStockRepo struct{ mock.Mock }

func (m *mockStockRepo) Get(ctx context.Context, productRef string) (entities.StockRecord, error) {
	args := m.Called(ctx, productRef)
	return args.Get(0).(entities.StockRecord), args.Error(1)
}

func (m *mockStockRepo) Decrement(ctx context.Context, productRef string, quantity int) error {
	return m.Called(ctx, productRef, quantity).Error(0)
}

type mockOrderWriter struct{ mock.Mock }

func (m *mockOrderWriter) SaveOrder(ctx context.Context, o entities.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockOrderWriter) SaveFulfillmentException(ctx context.Context, orderID, productRef, reason string, at time.Time) error {
	return m.Called(ctx, orderID, productRef, reason, at).Error(0)
}

type mockQuoter struct{ mock.Mock }

func (m *mockQuoter) QuoteSnapshot(ctx context.Context, snapshot entities.Snapshot, dest entities.Address) (entities.ShippingQuote, error) {
	args := m.Called(ctx, snapshot, dest)
	return args.Get(0).(entities.ShippingQuote), args.Error(1)
}

func (m *mockQuoter) Quote(ctx context.Context, customerRef string, dest entities.Address) (entities.ShippingQuote, error) {
	args := m.Called(ctx, customerRef, dest)
	return args.Get(0).(entities.ShippingQuote), args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) OrderCreated(ctx context.Context, order entities.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockEvents) StatusChanged(ctx context.Context, orderID string, change entities.StatusChange) error {
	return m.Called(ctx, orderID, change).Error(0)
}

// quietEvents accepts and ignores every publish.
func quietEvents() *mockEvents {
	events := new(mockEvents)
	events.On("OrderCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	events.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return events
}

type mockOrderRepo struct{ mock.Mock }

func (m *mockOrderRepo) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(entities.Order), args.Error(1)
}

func (m *mockOrderRepo) ListByCustomer(ctx context.Context, customerRef string, limit int) ([]entities.Order, error) {
	args := m.Called(ctx, customerRef, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Order), args.Error(1)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, orderID string, change entities.StatusChange) error {
	return m.Called(ctx, orderID, change).Error(0)
}

func (m *mockOrderRepo) SavePayment(ctx context.Context, orderID string, p entities.PaymentDetails) error {
	return m.Called(ctx, orderID, p).Error(0)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) Get(key string) ([]byte, bool) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]byte), args.Bool(1)
}

func (m *mockCache) Set(key string, value []byte) {
	m.Called(key, value)
}

func (m *mockCache) Delete(key string) {
	m.Called(key)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) BuildPaymentURL(order entities.Order, clientIP string, now time.Time) string {
	return m.Called(order, clientIP, now).String(0)
}

func (m *mockGateway) ParseCallback(values url.Values) (payment.Callback, error) {
	args := m.Called(values)
	return args.Get(0).(payment.Callback), args.Error(1)
}

type mockDraftRepo struct{ mock.Mock }

func (m *mockDraftRepo) Get(ctx context.Context, customerRef string) (entities.CheckoutDraft, error) {
	args := m.Called(ctx, customerRef)
	return args.Get(0).(entities.CheckoutDraft), args.Error(1)
}

func (m *mockDraftRepo) Save(ctx context.Context, d entities.CheckoutDraft) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockDraftRepo) Delete(ctx context.Context, customerRef string) error {
	return m.Called(ctx, customerRef).Error(0)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) CalculateFee(ctx context.Context, dest entities.Address, profile entities.PackageProfile) (int64, error) {
	args := m.Called(ctx, dest, profile)
	return args.Get(0).(int64), args.Error(1)
}
