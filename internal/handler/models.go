package handler

import (
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/internal/service"
)

// Address mirrors the province/district/ward hierarchy of the carrier API.
type Address struct {
	ProvinceID int    `json:"province_id" validate:"required,gt=0"`
	DistrictID int    `json:"district_id" validate:"required,gt=0"`
	WardCode   string `json:"ward_code" validate:"required"`
	Line       string `json:"line,omitempty"`
}

type CheckoutRequest struct {
	FullName string  `json:"full_name" validate:"required"`
	Phone    string  `json:"phone" validate:"required,vn_mobile"`
	Address  Address `json:"address" validate:"required"`
}

type CheckoutResponse struct {
	Order    Order    `json:"order"`
	Warnings []string `json:"warnings,omitempty"`
}

type Item struct {
	ProductRef string `json:"product_ref"`
	Name       string `json:"name,omitempty"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	ImageRef   string `json:"image_ref,omitempty"`
}

type Payment struct {
	Amount        int64  `json:"amount"`
	TransactionNo string `json:"transaction_no,omitempty"`
	PayDate       int64  `json:"pay_date,omitempty"`
	OrderInfo     string `json:"order_info,omitempty"`
	ResponseCode  string `json:"response_code"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type StatusChange struct {
	From   string    `json:"from,omitempty"`
	To     string    `json:"to"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

type Order struct {
	ID          string         `json:"id"`
	CustomerRef string         `json:"customer_ref"`
	FullName    string         `json:"full_name"`
	Phone       string         `json:"phone"`
	Address     Address        `json:"address"`
	Items       []Item         `json:"items"`
	Subtotal    int64          `json:"subtotal"`
	ShippingFee int64          `json:"shipping_fee"`
	Total       int64          `json:"total"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	Payment     *Payment       `json:"payment,omitempty"`
	History     []StatusChange `json:"history,omitempty"`
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
	Actor  string `json:"actor" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

// DraftAddressRequest carries partial edits, absent fields stay untouched.
type DraftAddressRequest struct {
	FullName   *string `json:"full_name,omitempty"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,vn_mobile"`
	ProvinceID *int    `json:"province_id,omitempty" validate:"omitempty,gt=0"`
	DistrictID *int    `json:"district_id,omitempty" validate:"omitempty,gt=0"`
	WardCode   *string `json:"ward_code,omitempty"`
	Line       *string `json:"line,omitempty"`
}

type Quote struct {
	Fee        int64     `json:"fee"`
	ComputedAt time.Time `json:"computed_at"`
	Degraded   bool      `json:"degraded,omitempty"`
}

type Draft struct {
	CustomerRef string  `json:"customer_ref"`
	FullName    string  `json:"full_name,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Address     Address `json:"address"`
	Quote       *Quote  `json:"quote,omitempty"`
}

type Shortage struct {
	ProductRef string `json:"product_ref"`
	Requested  int    `json:"requested"`
	Available  int    `json:"available"`
}

// StockConflictResponse lists every line the cart could not be fulfilled on.
// swagger:model StockConflictResponse
type StockConflictResponse struct {
	Message   string     `json:"message"`
	Shortages []Shortage `json:"shortages"`
}

type PaymentURLResponse struct {
	PaymentURL string `json:"payment_url"`
}

func AddressEntityToJSON(a entities.Address) Address {
	return Address{
		ProvinceID: a.ProvinceID,
		DistrictID: a.DistrictID,
		WardCode:   a.WardCode,
		Line:       a.Line,
	}
}

func AddressJSONToEntity(a Address) entities.Address {
	return entities.Address{
		ProvinceID: a.ProvinceID,
		DistrictID: a.DistrictID,
		WardCode:   a.WardCode,
		Line:       a.Line,
	}
}

func ItemEntityToJSON(i entities.CartItem) Item {
	return Item{
		ProductRef: i.ProductRef,
		Name:       i.Name,
		UnitPrice:  i.UnitPrice,
		Quantity:   i.Quantity,
		ImageRef:   i.ImageRef,
	}
}

func PaymentEntityToJSON(p entities.PaymentDetails) Payment {
	out := Payment{
		Amount:        p.Amount,
		TransactionNo: p.TransactionNo,
		OrderInfo:     p.OrderInfo,
		ResponseCode:  p.ResponseCode,
		FailureReason: p.FailureReason,
	}
	if !p.PayDate.IsZero() {
		out.PayDate = p.PayDate.Unix()
	}
	return out
}

func StatusChangeEntityToJSON(c entities.StatusChange) StatusChange {
	return StatusChange{
		From:   string(c.From),
		To:     string(c.To),
		Actor:  c.Actor,
		Reason: c.Reason,
		At:     c.At,
	}
}

func OrderEntityToJSON(o entities.Order) Order {
	items := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemEntityToJSON(it))
	}

	history := make([]StatusChange, 0, len(o.History))
	for _, c := range o.History {
		history = append(history, StatusChangeEntityToJSON(c))
	}

	out := Order{
		ID:          o.ID,
		CustomerRef: o.CustomerRef,
		FullName:    o.FullName,
		Phone:       o.Phone,
		Address:     AddressEntityToJSON(o.Address),
		Items:       items,
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		Total:       o.Total,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		History:     history,
	}
	if o.Payment != nil {
		p := PaymentEntityToJSON(*o.Payment)
		out.Payment = &p
	}
	return out
}

func QuoteEntityToJSON(q entities.ShippingQuote) Quote {
	return Quote{Fee: q.Fee, ComputedAt: q.ComputedAt, Degraded: q.Degraded}
}

func DraftEntityToJSON(d entities.CheckoutDraft) Draft {
	out := Draft{
		CustomerRef: d.CustomerRef,
		FullName:    d.FullName,
		Phone:       d.Phone,
		Address:     AddressEntityToJSON(d.Address),
	}
	if d.Quote != nil {
		q := QuoteEntityToJSON(*d.Quote)
		out.Quote = &q
	}
	return out
}

func ShortagesToJSON(shortages []entities.StockShortage) []Shortage {
	out := make([]Shortage, 0, len(shortages))
	for _, s := range shortages {
		out = append(out, Shortage{
			ProductRef: s.ProductRef,
			Requested:  s.Requested,
			Available:  s.Available,
		})
	}
	return out
}

func DraftUpdateFromRequest(req DraftAddressRequest) service.DraftUpdate {
	return service.DraftUpdate{
		FullName:   req.FullName,
		Phone:      req.Phone,
		ProvinceID: req.ProvinceID,
		DistrictID: req.DistrictID,
		WardCode:   req.WardCode,
		Line:       req.Line,
	}
}
