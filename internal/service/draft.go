package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
)

type DraftRepo interface {
	Get(ctx context.Context, customerRef string) (entities.CheckoutDraft, error)
	Save(ctx context.Context, d entities.CheckoutDraft) error
	Delete(ctx context.Context, customerRef string) error
}

// DraftUpdate carries the fields the customer touched. Nil means unchanged.
type DraftUpdate struct {
	FullName   *string
	Phone      *string
	ProvinceID *int
	DistrictID *int
	WardCode   *string
	Line       *string
}

type draftService struct {
	logger *slog.Logger
	drafts DraftRepo
	quoter Quoter
}

func NewDraftService(logger *slog.Logger, drafts DraftRepo, quoter Quoter) *draftService {
	return &draftService{
		logger: logger.With(slog.String("service", "draft")),
		drafts: drafts,
		quoter: quoter,
	}
}

func (s *draftService) Get(ctx context.Context, customerRef string) (entities.CheckoutDraft, error) {
	return s.drafts.Get(ctx, customerRef)
}

// Update applies the customer's edits with the hierarchy cascade: changing a
// province drops the district and ward, changing a district drops the ward.
// Any address change invalidates the stored quote; a fresh one is computed
// as soon as the address is fully resolved again.
func (s *draftService) Update(ctx context.Context, customerRef string, update DraftUpdate) (entities.CheckoutDraft, error) {
	draft, err := s.drafts.Get(ctx, customerRef)
	if err != nil {
		return entities.CheckoutDraft{}, err
	}

	if update.FullName != nil {
		draft.FullName = *update.FullName
	}
	if update.Phone != nil {
		draft.Phone = *update.Phone
	}

	before := draft.Address
	if update.ProvinceID != nil {
		draft.Address.SetProvince(*update.ProvinceID)
	}
	if update.DistrictID != nil {
		draft.Address.SetDistrict(*update.DistrictID)
	}
	if update.WardCode != nil {
		draft.Address.SetWard(*update.WardCode)
	}
	if update.Line != nil {
		draft.Address.Line = *update.Line
	}

	if draft.Address != before {
		draft.Quote = nil
		if draft.Address.Resolved() {
			quote, err := s.quoter.Quote(ctx, customerRef, draft.Address)
			if err != nil {
				return entities.CheckoutDraft{}, fmt.Errorf("failed to quote shipping: %w", err)
			}
			draft.Quote = &quote
		}
	}

	if err := s.drafts.Save(ctx, draft); err != nil {
		return entities.CheckoutDraft{}, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

// RefreshQuote recomputes the fee for the already-resolved address. Cart
// mutations invalidate any previous quote, the storefront calls this after
// every cart change.
func (s *draftService) RefreshQuote(ctx context.Context, customerRef string) (entities.CheckoutDraft, error) {
	draft, err := s.drafts.Get(ctx, customerRef)
	if err != nil {
		return entities.CheckoutDraft{}, err
	}

	if !draft.Address.Resolved() {
		return entities.CheckoutDraft{}, ErrAddressUnresolved
	}

	quote, err := s.quoter.Quote(ctx, customerRef, draft.Address)
	if err != nil {
		return entities.CheckoutDraft{}, fmt.Errorf("failed to quote shipping: %w", err)
	}
	draft.Quote = &quote

	if err := s.drafts.Save(ctx, draft); err != nil {
		return entities.CheckoutDraft{}, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}
