package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/internal/payment"
	"github.com/minhngo-dev/storefront-checkout/pkg/trm"
)

// ErrStaleCallback rejects a gateway callback arriving after the order moved
// past its payment states, a replayed redirect must not overwrite a manual
// status change.
var ErrStaleCallback = errors.New("order has progressed past payment reconciliation")

var ErrNotPayable = errors.New("order is not awaiting payment")

type Gateway interface {
	BuildPaymentURL(order entities.Order, clientIP string, now time.Time) string
	ParseCallback(values url.Values) (payment.Callback, error)
}

type PaymentRepo interface {
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	UpdateStatus(ctx context.Context, orderID string, change entities.StatusChange) error
	SavePayment(ctx context.Context, orderID string, p entities.PaymentDetails) error
}

type paymentService struct {
	logger    *slog.Logger
	txManager trm.Manager
	repo      PaymentRepo
	gateway   Gateway
	cache     Cache
	events    EventPublisher
}

func NewPaymentService(
	logger *slog.Logger,
	txManager trm.Manager,
	repo PaymentRepo,
	gateway Gateway,
	cache Cache,
	events EventPublisher,
) *paymentService {
	return &paymentService{
		logger:    logger.With(slog.String("service", "payment")),
		txManager: txManager,
		repo:      repo,
		gateway:   gateway,
		cache:     cache,
		events:    events,
	}
}

// CreatePaymentURL builds the gateway redirect for a pending order.
func (s *paymentService) CreatePaymentURL(ctx context.Context, orderID, clientIP string) (string, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.Status != entities.StatusPending {
		return "", fmt.Errorf("%w: order is %s", ErrNotPayable, order.Status)
	}
	return s.gateway.BuildPaymentURL(order, clientIP, time.Now()), nil
}

// Reconcile maps a gateway return redirect onto the order. Success requires
// both gateway flags to agree; anything else records the mapped failure
// reason. Reapplying the same callback rewrites the same fields, which keeps
// the operation idempotent at the data level.
func (s *paymentService) Reconcile(ctx context.Context, values url.Values) (entities.Order, error) {
	cb, err := s.gateway.ParseCallback(values)
	if err != nil {
		return entities.Order{}, err
	}

	order, err := s.repo.GetOrderByID(ctx, cb.TxnRef)
	if err != nil {
		return entities.Order{}, err
	}

	target := entities.StatusPaymentFailed
	if cb.Succeeded() {
		target = entities.StatusPaid
	}

	// Orders already advanced by fulfillment (processing and beyond) are
	// off-limits to callbacks.
	switch order.Status {
	case entities.StatusPending:
	case entities.StatusPaid, entities.StatusPaymentFailed:
		if order.Status != target {
			return entities.Order{}, ErrStaleCallback
		}
	default:
		return entities.Order{}, ErrStaleCallback
	}

	payTime, err := cb.PayTime()
	if err != nil {
		s.logger.WarnContext(ctx, "unparseable gateway pay date",
			slog.String("order_id", order.ID),
			slog.String("pay_date", cb.PayDate),
		)
	}

	details := entities.PaymentDetails{
		Amount:        cb.AmountMajor(),
		TransactionNo: cb.TransactionNo,
		PayDate:       payTime,
		OrderInfo:     cb.OrderInfo,
		ResponseCode:  cb.ResponseCode,
	}
	if !cb.Succeeded() {
		details.FailureReason = payment.FailureMessage(cb.ResponseCode)
	}

	change := entities.StatusChange{
		From:   order.Status,
		To:     target,
		Actor:  "payment-gateway",
		Reason: details.FailureReason,
		At:     time.Now().UTC(),
	}

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.repo.SavePayment(ctx, order.ID, details); err != nil {
			return err
		}
		if order.Status == target {
			// same callback replayed, nothing to transition
			return nil
		}
		return s.repo.UpdateStatus(ctx, order.ID, change)
	})
	if errors.Is(err, entities.ErrInvalidTransition) {
		// another actor moved the order between our read and the guarded
		// update, treat it like any other out-of-date callback
		return entities.Order{}, ErrStaleCallback
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	s.cache.Delete(order.ID)

	if order.Status != target {
		if err := s.events.StatusChanged(ctx, order.ID, change); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish status change event",
				slog.String("order_id", order.ID),
				slog.Any("error", err),
			)
		}
	}

	s.logger.InfoContext(ctx, "payment reconciled",
		slog.String("order_id", order.ID),
		slog.String("response_code", cb.ResponseCode),
		slog.String("status", string(target)),
	)

	order.Status = target
	order.Payment = &details
	return order, nil
}
