package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/pkg/kv"
)

type stockRecord struct {
	AvailableStock int `json:"available_stock"`
}

func stockKey(productRef string) string {
	return "stock:" + productRef
}

// stockRepo holds the shared, concurrently mutated availability counters in
// the KV store. Decrement is the source of truth for the stock invariant,
// reads are advisory.
type stockRepo struct {
	store kv.Store
}

func NewStockRepo(store kv.Store) *stockRepo {
	return &stockRepo{store: store}
}

func (r *stockRepo) Get(ctx context.Context, productRef string) (entities.StockRecord, error) {
	data, err := r.store.Get(ctx, stockKey(productRef))
	if errors.Is(err, kv.ErrNotFound) {
		return entities.StockRecord{}, entities.ErrStockNotFound
	}
	if err != nil {
		return entities.StockRecord{}, fmt.Errorf("failed to get stock record: %w", err)
	}

	var rec stockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return entities.StockRecord{}, fmt.Errorf("failed to decode stock record: %w", err)
	}
	return entities.StockRecord{ProductRef: productRef, Available: rec.AvailableStock}, nil
}

func (r *stockRepo) Set(ctx context.Context, productRef string, available int) error {
	data, err := json.Marshal(stockRecord{AvailableStock: available})
	if err != nil {
		return fmt.Errorf("failed to encode stock record: %w", err)
	}
	return r.store.Set(ctx, stockKey(productRef), data)
}

// Decrement atomically reduces the counter by quantity, re-reading the
// current value at apply time. A result below zero is rejected with
// ErrInsufficientStock and nothing is written.
func (r *stockRepo) Decrement(ctx context.Context, productRef string, quantity int) error {
	return r.store.Update(ctx, stockKey(productRef), func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, entities.ErrStockNotFound
		}

		var rec stockRecord
		if err := json.Unmarshal(current, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode stock record: %w", err)
		}

		if rec.AvailableStock-quantity < 0 {
			return nil, entities.ErrInsufficientStock
		}
		rec.AvailableStock -= quantity

		return json.Marshal(rec)
	})
}
