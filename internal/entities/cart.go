package entities

import (
	"errors"
	"math"
)

type CartItem struct {
	ProductRef string
	Name       string
	UnitPrice  int64
	Quantity   int
	ImageRef   string
	Weight     float64
	Length     float64
	Width      float64
	Height     float64
}

// Snapshot is a value copy of a cart taken when checkout begins. Later cart
// mutations never reach an in-flight checkout.
type Snapshot []CartItem

var ErrEmptyCart = errors.New("cart is empty")

func (s Snapshot) Subtotal() int64 {
	var total int64
	for _, item := range s {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// PackageProfile is the aggregate shape of a snapshot as carriers expect it:
// summed weight, bounding dimensions, insured value equal to the subtotal.
type PackageProfile struct {
	Weight       int
	Length       int
	Width        int
	Height       int
	InsuredValue int64
}

func (s Snapshot) PackageProfile() PackageProfile {
	var weight, length, width, height float64
	for _, item := range s {
		weight += item.Weight * float64(item.Quantity)
		length = math.Max(length, item.Length)
		width = math.Max(width, item.Width)
		height = math.Max(height, item.Height)
	}

	return PackageProfile{
		Weight:       clampDimension(weight),
		Length:       clampDimension(length),
		Width:        clampDimension(width),
		Height:       clampDimension(height),
		InsuredValue: s.Subtotal(),
	}
}

// clampDimension rounds to a whole unit and never goes below 1, carrier APIs
// reject zero and negative dimensions.
func clampDimension(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}
