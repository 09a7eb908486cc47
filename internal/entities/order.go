package entities

import (
	"bytes"
	"encoding/gob"
	"errors"
	"time"
)

type Order struct {
	ID          string
	CustomerRef string
	FullName    string
	Phone       string
	Address     Address

	// Items and the three amounts are fixed at creation. Corrections go
	// through cancellation/refund flows, never through mutating these.
	Items       []CartItem
	Subtotal    int64
	ShippingFee int64
	Total       int64

	Status    Status
	CreatedAt time.Time

	Payment *PaymentDetails
	History []StatusChange
}

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")
)

func (o *Order) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Order) Unmarshal(data []byte) error {
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	return dec.Decode(o)
}

func init() {
	gob.Register(Order{})
	gob.Register(CartItem{})
	gob.Register(StatusChange{})
	gob.Register(PaymentDetails{})
}
