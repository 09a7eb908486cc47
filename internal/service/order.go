package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/pkg/trm"
	"github.com/minhngo-dev/storefront-checkout/pkg/utils"
)

type OrderRepo interface {
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	ListByCustomer(ctx context.Context, customerRef string, limit int) ([]entities.Order, error)
	UpdateStatus(ctx context.Context, orderID string, change entities.StatusChange) error
}

type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

type orderService struct {
	logger    *slog.Logger
	txManager trm.Manager
	repo      OrderRepo
	cache     Cache
	events    EventPublisher
}

func NewOrderService(logger *slog.Logger, txManager trm.Manager, repo OrderRepo, cache Cache, events EventPublisher) *orderService {
	return &orderService{
		logger:    logger.With(slog.String("service", "order")),
		txManager: txManager,
		repo:      repo,
		cache:     cache,
		events:    events,
	}
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	if data, ok := s.cache.Get(orderID); ok {
		var order entities.Order
		if err := order.Unmarshal(data); err != nil {
			s.logger.Error("failed to unmarshal cached order", slog.String("order_id", orderID), slog.Any("error", err))
			return entities.Order{}, entities.ErrInvalidOrder
		}
		return order, nil
	}

	var order entities.Order
	fn := func() error {
		var err error
		order, err = s.repo.GetOrderByID(ctx, orderID)
		return err
	}
	cfg := utils.RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxAttempts:  5,
		Multiplier:   2,
	}
	if err := utils.Retry(cfg, fn, entities.ErrOrderNotFound); err != nil {
		return entities.Order{}, err
	}

	data, err := order.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal order", slog.String("order_id", orderID), slog.Any("error", err))
		return entities.Order{}, err
	}
	s.cache.Set(orderID, data)
	return order, nil
}

func (s *orderService) ListByCustomer(ctx context.Context, customerRef string, limit int) ([]entities.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByCustomer(ctx, customerRef, limit)
}

// ChangeStatus applies one transition from the table and records who did it.
// Cancellations must carry a reason.
func (s *orderService) ChangeStatus(ctx context.Context, orderID string, to entities.Status, actor, reason string) (entities.Order, error) {
	if actor == "" {
		return entities.Order{}, fmt.Errorf("%w: actor is required", entities.ErrInvalidTransition)
	}
	if to == entities.StatusCancelled && reason == "" {
		return entities.Order{}, fmt.Errorf("%w: cancellation requires a reason", entities.ErrInvalidTransition)
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return entities.Order{}, err
	}

	if !order.Status.CanTransitionTo(to) {
		return entities.Order{}, fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, order.Status, to)
	}

	change := entities.StatusChange{
		From:   order.Status,
		To:     to,
		Actor:  actor,
		Reason: reason,
		At:     time.Now().UTC(),
	}

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		return s.repo.UpdateStatus(ctx, orderID, change)
	})
	if errors.Is(err, entities.ErrInvalidTransition) {
		// a concurrent writer moved the order first
		return entities.Order{}, err
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to update order status: %w", err)
	}

	s.cache.Delete(orderID)

	if err := s.events.StatusChanged(ctx, orderID, change); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish status change event",
			slog.String("order_id", orderID),
			slog.Any("error", err),
		)
	}

	order.Status = to
	order.History = append(order.History, change)
	return order, nil
}
