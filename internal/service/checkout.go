package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/pkg/trm"
	"github.com/minhngo-dev/storefront-checkout/pkg/utils"

	"github.com/google/uuid"
)

// ErrInvalidCheckout wraps every caller-correctable input problem: missing
// name, unrecognized phone, unresolved address.
var ErrInvalidCheckout = errors.New("invalid checkout")

// vietnamese mobile numbers: 0 or +84 prefix, then a 3/5/7/8/9 carrier block
var phonePattern = regexp.MustCompile(`^(0|\+84)(3|5|7|8|9)\d{8}$`)

type CartRepo interface {
	Snapshot(ctx context.Context, customerRef string) (entities.Snapshot, error)
	Clear(ctx context.Context, customerRef string) error
}

type StockRepo interface {
	Get(ctx context.Context, productRef string) (entities.StockRecord, error)
	Decrement(ctx context.Context, productRef string, quantity int) error
}

type OrderWriter interface {
	SaveOrder(ctx context.Context, o entities.Order) error
	SaveFulfillmentException(ctx context.Context, orderID, productRef, reason string, at time.Time) error
}

type Quoter interface {
	Quote(ctx context.Context, customerRef string, dest entities.Address) (entities.ShippingQuote, error)
}

// SnapshotQuoter prices a snapshot the caller already holds, so the fee and
// the persisted items always describe the same cart contents.
type SnapshotQuoter interface {
	QuoteSnapshot(ctx context.Context, snapshot entities.Snapshot, dest entities.Address) (entities.ShippingQuote, error)
}

type EventPublisher interface {
	OrderCreated(ctx context.Context, order entities.Order) error
	StatusChanged(ctx context.Context, orderID string, change entities.StatusChange) error
}

type CheckoutInput struct {
	CustomerRef string
	FullName    string
	Phone       string
	Address     entities.Address
}

type CheckoutResult struct {
	Order entities.Order

	// Warnings are non-fatal degradations the customer should see:
	// an unreachable rate resolver, a stale cart, a decrement shortfall.
	Warnings []string
}

type checkoutService struct {
	logger    *slog.Logger
	txManager trm.Manager
	orders    OrderWriter
	carts     CartRepo
	stocks    StockRepo
	quoter    SnapshotQuoter
	events    EventPublisher
}

func NewCheckoutService(
	logger *slog.Logger,
	txManager trm.Manager,
	orders OrderWriter,
	carts CartRepo,
	stocks StockRepo,
	quoter SnapshotQuoter,
	events EventPublisher,
) *checkoutService {
	return &checkoutService{
		logger:    logger.With(slog.String("service", "checkout")),
		txManager: txManager,
		orders:    orders,
		carts:     carts,
		stocks:    stocks,
		quoter:    quoter,
		events:    events,
	}
}

// Submit turns the customer's cart into a durable order. The step order is
// deliberate: validate stock, persist the order, clear the cart, decrement
// stock. Persisting before decrementing means a crash in between leaves a
// reconcilable order rather than silently lost inventory.
func (s *checkoutService) Submit(ctx context.Context, input CheckoutInput) (CheckoutResult, error) {
	if err := validateInput(input); err != nil {
		return CheckoutResult{}, err
	}

	snapshot, err := s.carts.Snapshot(ctx, input.CustomerRef)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("failed to snapshot cart: %w", err)
	}
	if len(snapshot) == 0 {
		return CheckoutResult{}, entities.ErrEmptyCart
	}

	// advisory pass: reduces wasted order creation, the decrement below is
	// the source of truth
	if err := s.validateStock(ctx, snapshot); err != nil {
		return CheckoutResult{}, err
	}

	var warnings []string

	quote, err := s.quoter.QuoteSnapshot(ctx, snapshot, input.Address)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("failed to quote shipping: %w", err)
	}
	if quote.Degraded {
		warnings = append(warnings, "shipping fee could not be resolved, order placed with zero shipping fee")
	}

	subtotal := snapshot.Subtotal()
	order := entities.Order{
		ID:          uuid.NewString(),
		CustomerRef: input.CustomerRef,
		FullName:    strings.TrimSpace(input.FullName),
		Phone:       input.Phone,
		Address:     input.Address,
		Items:       snapshot,
		Subtotal:    subtotal,
		ShippingFee: quote.Fee,
		Total:       subtotal + quote.Fee,
		Status:      entities.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	persist := func() error {
		return s.txManager.Do(ctx, func(ctx context.Context) error {
			return s.orders.SaveOrder(ctx, order)
		})
	}
	cfg := utils.RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxAttempts:  5,
		Multiplier:   2,
	}
	if err := utils.Retry(cfg, persist); err != nil {
		return CheckoutResult{}, fmt.Errorf("failed to persist order: %w", err)
	}

	// stale carts are cosmetic, the order already exists
	if err := s.carts.Clear(ctx, input.CustomerRef); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("customer_ref", input.CustomerRef),
			slog.String("order_id", order.ID),
			slog.Any("error", err),
		)
		warnings = append(warnings, "cart could not be cleared")
	}

	warnings = append(warnings, s.decrementStock(ctx, order)...)

	if err := s.events.OrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order created event",
			slog.String("order_id", order.ID),
			slog.Any("error", err),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("customer_ref", order.CustomerRef),
		slog.Int64("total", order.Total),
	)

	return CheckoutResult{Order: order, Warnings: warnings}, nil
}

func validateInput(input CheckoutInput) error {
	if input.CustomerRef == "" {
		return fmt.Errorf("%w: customer reference is required", ErrInvalidCheckout)
	}
	if strings.TrimSpace(input.FullName) == "" {
		return fmt.Errorf("%w: recipient name is required", ErrInvalidCheckout)
	}
	if !phonePattern.MatchString(input.Phone) {
		return fmt.Errorf("%w: phone number is not a recognized mobile number", ErrInvalidCheckout)
	}
	if !input.Address.Resolved() {
		return fmt.Errorf("%w: shipping address is not fully resolved", ErrInvalidCheckout)
	}
	return nil
}

func (s *checkoutService) validateStock(ctx context.Context, snapshot entities.Snapshot) error {
	var shortages []entities.StockShortage
	for _, item := range snapshot {
		rec, err := s.stocks.Get(ctx, item.ProductRef)
		if errors.Is(err, entities.ErrStockNotFound) {
			shortages = append(shortages, entities.StockShortage{
				ProductRef: item.ProductRef,
				Requested:  item.Quantity,
			})
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read stock for %s: %w", item.ProductRef, err)
		}
		if rec.Available < item.Quantity {
			shortages = append(shortages, entities.StockShortage{
				ProductRef: item.ProductRef,
				Requested:  item.Quantity,
				Available:  rec.Available,
			})
		}
	}
	if len(shortages) > 0 {
		return &entities.InsufficientStockError{Shortages: shortages}
	}
	return nil
}

// decrementStock applies per-item decrements after the order is committed.
// Each item is independent: a failure does not roll back siblings or the
// order, it is flagged for manual fulfillment review.
func (s *checkoutService) decrementStock(ctx context.Context, order entities.Order) []string {
	var warnings []string
	for _, item := range order.Items {
		err := s.stocks.Decrement(ctx, item.ProductRef, item.Quantity)
		if err == nil {
			continue
		}

		s.logger.ErrorContext(ctx, "stock decrement failed after order commit",
			slog.String("order_id", order.ID),
			slog.String("product_ref", item.ProductRef),
			slog.Int("quantity", item.Quantity),
			slog.Any("error", err),
		)

		if excErr := s.orders.SaveFulfillmentException(ctx, order.ID, item.ProductRef, err.Error(), time.Now().UTC()); excErr != nil {
			s.logger.ErrorContext(ctx, "failed to record fulfillment exception",
				slog.String("order_id", order.ID),
				slog.String("product_ref", item.ProductRef),
				slog.Any("error", excErr),
			)
		}

		warnings = append(warnings, fmt.Sprintf("stock for %s could not be reserved, flagged for fulfillment review", item.ProductRef))
	}
	return warnings
}
