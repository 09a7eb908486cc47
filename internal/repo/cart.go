package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/pkg/kv"
)

type cartItem struct {
	ProductRef string  `json:"product_ref"`
	Name       string  `json:"name"`
	UnitPrice  int64   `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	ImageRef   string  `json:"image_ref,omitempty"`
	Weight     float64 `json:"weight"`
	Length     float64 `json:"length"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

func cartKey(customerRef string) string {
	return "carts:" + customerRef
}

type cartRepo struct {
	store kv.Store
}

func NewCartRepo(store kv.Store) *cartRepo {
	return &cartRepo{store: store}
}

// Snapshot reads the cart once and returns a value copy. A missing key is an
// empty cart, not an error.
func (r *cartRepo) Snapshot(ctx context.Context, customerRef string) (entities.Snapshot, error) {
	data, err := r.store.Get(ctx, cartKey(customerRef))
	if errors.Is(err, kv.ErrNotFound) {
		return entities.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	var items []cartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}

	snapshot := make(entities.Snapshot, 0, len(items))
	for _, it := range items {
		snapshot = append(snapshot, entities.CartItem{
			ProductRef: it.ProductRef,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			ImageRef:   it.ImageRef,
			Weight:     it.Weight,
			Length:     it.Length,
			Width:      it.Width,
			Height:     it.Height,
		})
	}
	return snapshot, nil
}

func (r *cartRepo) Save(ctx context.Context, customerRef string, items []entities.CartItem) error {
	rows := make([]cartItem, 0, len(items))
	for _, it := range items {
		rows = append(rows, cartItem{
			ProductRef: it.ProductRef,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			ImageRef:   it.ImageRef,
			Weight:     it.Weight,
			Length:     it.Length,
			Width:      it.Width,
			Height:     it.Height,
		})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	return r.store.Set(ctx, cartKey(customerRef), data)
}

func (r *cartRepo) Clear(ctx context.Context, customerRef string) error {
	return r.store.Delete(ctx, cartKey(customerRef))
}
