package entities

import "time"

// PaymentDetails is attached to an order once a gateway callback has been
// reconciled. Amount is in whole currency units, converted back from the
// gateway's minor-unit encoding.
type PaymentDetails struct {
	Amount        int64
	TransactionNo string
	PayDate       time.Time
	OrderInfo     string
	ResponseCode  string
	FailureReason string
}
