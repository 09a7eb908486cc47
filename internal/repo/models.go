package repo

import (
	"database/sql"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
)

type Order struct {
	ID          string         `db:"order_id"`
	CustomerRef string         `db:"customer_ref"`
	FullName    string         `db:"full_name"`
	Phone       string         `db:"phone"`
	ProvinceID  int            `db:"province_id"`
	DistrictID  int            `db:"district_id"`
	WardCode    string         `db:"ward_code"`
	AddressLine sql.NullString `db:"address_line"`
	Subtotal    int64          `db:"subtotal"`
	ShippingFee int64          `db:"shipping_fee"`
	Total       int64          `db:"total"`
	Status      string         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
}

type Item struct {
	OrderID    string         `db:"order_id"`
	ProductRef string         `db:"product_ref"`
	Name       string         `db:"name"`
	UnitPrice  int64          `db:"unit_price"`
	Quantity   int            `db:"quantity"`
	ImageRef   sql.NullString `db:"image_ref"`
	Weight     float64        `db:"weight"`
	Length     float64        `db:"length"`
	Width      float64        `db:"width"`
	Height     float64        `db:"height"`
}

type Payment struct {
	OrderID       string         `db:"order_id"`
	Amount        int64          `db:"amount"`
	TransactionNo sql.NullString `db:"transaction_no"`
	PayDate       sql.NullTime   `db:"pay_date"`
	OrderInfo     sql.NullString `db:"order_info"`
	ResponseCode  string         `db:"response_code"`
	FailureReason sql.NullString `db:"failure_reason"`
}

type Event struct {
	OrderID    string         `db:"order_id"`
	FromStatus sql.NullString `db:"from_status"`
	ToStatus   string         `db:"to_status"`
	Actor      string         `db:"actor"`
	Reason     sql.NullString `db:"reason"`
	CreatedAt  time.Time      `db:"created_at"`
}

func ItemToEntity(i Item) entities.CartItem {
	return entities.CartItem{
		ProductRef: i.ProductRef,
		Name:       i.Name,
		UnitPrice:  i.UnitPrice,
		Quantity:   i.Quantity,
		ImageRef:   i.ImageRef.String,
		Weight:     i.Weight,
		Length:     i.Length,
		Width:      i.Width,
		Height:     i.Height,
	}
}

func PaymentToEntity(p Payment) *entities.PaymentDetails {
	return &entities.PaymentDetails{
		Amount:        p.Amount,
		TransactionNo: p.TransactionNo.String,
		PayDate:       p.PayDate.Time,
		OrderInfo:     p.OrderInfo.String,
		ResponseCode:  p.ResponseCode,
		FailureReason: p.FailureReason.String,
	}
}

func EventToEntity(e Event) entities.StatusChange {
	return entities.StatusChange{
		From:   entities.Status(e.FromStatus.String),
		To:     entities.Status(e.ToStatus),
		Actor:  e.Actor,
		Reason: e.Reason.String,
		At:     e.CreatedAt,
	}
}

func OrderToEntity(o Order, items []Item, payment *Payment, events []Event) entities.Order {
	cartItems := make([]entities.CartItem, 0, len(items))
	for _, it := range items {
		cartItems = append(cartItems, ItemToEntity(it))
	}

	history := make([]entities.StatusChange, 0, len(events))
	for _, e := range events {
		history = append(history, EventToEntity(e))
	}

	order := entities.Order{
		ID:          o.ID,
		CustomerRef: o.CustomerRef,
		FullName:    o.FullName,
		Phone:       o.Phone,
		Address: entities.Address{
			ProvinceID: o.ProvinceID,
			DistrictID: o.DistrictID,
			WardCode:   o.WardCode,
			Line:       o.AddressLine.String,
		},
		Items:       cartItems,
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		Total:       o.Total,
		Status:      entities.Status(o.Status),
		CreatedAt:   o.CreatedAt,
		History:     history,
	}
	if payment != nil {
		order.Payment = PaymentToEntity(*payment)
	}
	return order
}
