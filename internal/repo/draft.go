package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/pkg/kv"
)

type draftQuote struct {
	Fee        int64     `json:"fee"`
	ComputedAt time.Time `json:"computed_at"`
	Degraded   bool      `json:"degraded,omitempty"`
}

type draft struct {
	FullName   string      `json:"full_name,omitempty"`
	Phone      string      `json:"phone,omitempty"`
	ProvinceID int         `json:"province_id,omitempty"`
	DistrictID int         `json:"district_id,omitempty"`
	WardCode   string      `json:"ward_code,omitempty"`
	Line       string      `json:"line,omitempty"`
	Quote      *draftQuote `json:"quote,omitempty"`
}

func draftKey(customerRef string) string {
	return "drafts:" + customerRef
}

type draftRepo struct {
	store kv.Store
}

func NewDraftRepo(store kv.Store) *draftRepo {
	return &draftRepo{store: store}
}

// Get returns the customer's draft, an empty one when none is stored yet.
func (r *draftRepo) Get(ctx context.Context, customerRef string) (entities.CheckoutDraft, error) {
	data, err := r.store.Get(ctx, draftKey(customerRef))
	if errors.Is(err, kv.ErrNotFound) {
		return entities.CheckoutDraft{CustomerRef: customerRef}, nil
	}
	if err != nil {
		return entities.CheckoutDraft{}, fmt.Errorf("failed to get draft: %w", err)
	}

	var d draft
	if err := json.Unmarshal(data, &d); err != nil {
		return entities.CheckoutDraft{}, fmt.Errorf("failed to decode draft: %w", err)
	}

	out := entities.CheckoutDraft{
		CustomerRef: customerRef,
		FullName:    d.FullName,
		Phone:       d.Phone,
		Address: entities.Address{
			ProvinceID: d.ProvinceID,
			DistrictID: d.DistrictID,
			WardCode:   d.WardCode,
			Line:       d.Line,
		},
	}
	if d.Quote != nil {
		out.Quote = &entities.ShippingQuote{
			Fee:        d.Quote.Fee,
			ComputedAt: d.Quote.ComputedAt,
			Degraded:   d.Quote.Degraded,
		}
	}
	return out, nil
}

func (r *draftRepo) Save(ctx context.Context, d entities.CheckoutDraft) error {
	row := draft{
		FullName:   d.FullName,
		Phone:      d.Phone,
		ProvinceID: d.Address.ProvinceID,
		DistrictID: d.Address.DistrictID,
		WardCode:   d.Address.WardCode,
		Line:       d.Address.Line,
	}
	if d.Quote != nil {
		row.Quote = &draftQuote{
			Fee:        d.Quote.Fee,
			ComputedAt: d.Quote.ComputedAt,
			Degraded:   d.Quote.Degraded,
		}
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	return r.store.Set(ctx, draftKey(d.CustomerRef), data)
}

func (r *draftRepo) Delete(ctx context.Context, customerRef string) error {
	return r.store.Delete(ctx, draftKey(customerRef))
}
