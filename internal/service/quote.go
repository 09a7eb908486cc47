package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
)

type RateResolver interface {
	CalculateFee(ctx context.Context, dest entities.Address, profile entities.PackageProfile) (int64, error)
}

var ErrAddressUnresolved = errors.New("address is not fully resolved")

type quoteService struct {
	logger   *slog.Logger
	resolver RateResolver
	carts    CartSnapshotter
}

type CartSnapshotter interface {
	Snapshot(ctx context.Context, customerRef string) (entities.Snapshot, error)
}

func NewQuoteService(logger *slog.Logger, resolver RateResolver, carts CartSnapshotter) *quoteService {
	return &quoteService{
		logger:   logger.With(slog.String("service", "quote")),
		resolver: resolver,
		carts:    carts,
	}
}

// Quote prices shipping the customer's current cart to dest. Resolver
// failures degrade to a zero fee stamped as such, they never block the
// caller.
func (s *quoteService) Quote(ctx context.Context, customerRef string, dest entities.Address) (entities.ShippingQuote, error) {
	if !dest.Resolved() {
		return entities.ShippingQuote{}, ErrAddressUnresolved
	}

	snapshot, err := s.carts.Snapshot(ctx, customerRef)
	if err != nil {
		return entities.ShippingQuote{}, fmt.Errorf("failed to snapshot cart: %w", err)
	}

	return s.QuoteSnapshot(ctx, snapshot, dest)
}

// QuoteSnapshot prices shipping an already-taken snapshot. Checkout uses
// this so the fee covers exactly the items being ordered, never whatever
// the cart holds by the time the fee is computed.
func (s *quoteService) QuoteSnapshot(ctx context.Context, snapshot entities.Snapshot, dest entities.Address) (entities.ShippingQuote, error) {
	if !dest.Resolved() {
		return entities.ShippingQuote{}, ErrAddressUnresolved
	}

	fee, err := s.resolver.CalculateFee(ctx, dest, snapshot.PackageProfile())
	if err != nil {
		s.logger.WarnContext(ctx, "shipping fee unavailable, degrading to zero",
			slog.Int("district_id", dest.DistrictID),
			slog.Any("error", err),
		)
		return entities.ShippingQuote{Fee: 0, ComputedAt: time.Now().UTC(), Degraded: true}, nil
	}

	return entities.ShippingQuote{Fee: fee, ComputedAt: time.Now().UTC()}, nil
}
