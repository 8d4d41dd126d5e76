package events

import "testing"

func TestDecode(t *testing.T) {
	ev, err := Decode[PaymentPaid]([]byte(`{"payment_id":"chrg_1","booking_id":"b1","user_id":"u1","amount":2500,"currency":"thb"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.PaymentID != "chrg_1" || ev.BookingID != "b1" || ev.UserID != "u1" || ev.Amount != 2500 {
		t.Errorf("decoded = %+v", ev)
	}

	if _, err := Decode[PaymentPaid]([]byte(`{"payment_id":`)); err == nil {
		t.Error("Decode of truncated payload succeeded, want error")
	}
}
