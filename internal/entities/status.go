package entities

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusPaid          Status = "paid"
	StatusPaymentFailed Status = "payment_failed"
	StatusProcessing    Status = "processing"
	StatusShipping      Status = "shipping"
	StatusShipped       Status = "shipped"
	StatusDelivered     Status = "delivered"
	StatusReviewed      Status = "reviewed"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the closed table of lifecycle moves this service generates.
// There is no path backward.
var transitions = map[Status][]Status{
	StatusPending:       {StatusProcessing, StatusPaid, StatusPaymentFailed, StatusCancelled},
	StatusPaid:          {StatusProcessing, StatusCancelled},
	StatusPaymentFailed: {StatusCancelled},
	StatusProcessing:    {StatusShipping, StatusCancelled},
	StatusShipping:      {StatusShipped},
	StatusShipped:       {StatusDelivered},
	StatusDelivered:     {StatusReviewed},
	StatusReviewed:      {StatusCompleted},
	StatusCompleted:     nil,
	StatusCancelled:     nil,
}

// Known reports whether the status is one this service generates. Unknown
// values coming from older records are displayed verbatim but never accepted
// as a transition source or target.
func (s Status) Known() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusChange is one entry of an order's history trail. Every transition
// after creation is attributable to an actor.
type StatusChange struct {
	From   Status
	To     Status
	Actor  string
	Reason string
	At     time.Time
}
