package entities

import (
	"errors"
	"fmt"
	"strings"
)

// StockRecord is shared, global state mutated by concurrent checkouts.
// Available never goes below zero, a decrement that would cross zero is
// rejected at decrement time.
type StockRecord struct {
	ProductRef string
	Available  int
}

var (
	ErrStockNotFound     = errors.New("stock record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockShortage describes one line item that cannot be satisfied.
type StockShortage struct {
	ProductRef string
	Requested  int
	Available  int
}

// InsufficientStockError reports every line item the validation pass found
// short, so the caller can correct all of them at once.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	refs := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		refs[i] = fmt.Sprintf("%s (requested %d, available %d)", s.ProductRef, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(refs, ", ")
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
