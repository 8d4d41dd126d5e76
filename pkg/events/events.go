// Package events holds the routing keys and payloads exchanged between the
// booking, payment and notification services.
package events

import (
	"encoding/json"
	"fmt"
)

const (
	RKBookingReserved  = "booking.reserved"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCancelled = "booking.cancelled"
	RKBookingExpired   = "booking.expired"

	RKPaymentPaid   = "payment.paid"
	RKPaymentFailed = "payment.failed"
)

type BookingReserved struct {
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	CourtID   string `json:"court_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM
}

// BookingStatus is emitted for confirmations and cancellations. Actor is
// "user", "admin" or "payment".
type BookingStatus struct {
	BookingID string `json:"booking_id"`
	Actor     string `json:"actor"`
}

type HoldsExpired struct {
	Count   int64  `json:"count"`
	CourtID string `json:"court_id,omitempty"`
	Date    string `json:"date,omitempty"`
}

type PaymentPaid struct {
	PaymentID string `json:"payment_id"`
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Method    string `json:"method"`
}

type PaymentFailed struct {
	PaymentID      string `json:"payment_id"`
	BookingID      string `json:"booking_id"`
	UserID         string `json:"user_id"`
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
