package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/you/padel-booking/pkg/events"
	"github.com/you/padel-booking/pkg/mq"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

type fakeConfirmer struct {
	calls [][3]string
	err   error
}

func (f *fakeConfirmer) ConfirmPayment(_ context.Context, id, userID, paymentID string) error {
	f.calls = append(f.calls, [3]string{id, userID, paymentID})
	return f.err
}

func delivery(t *testing.T, key string, v any) amqp.Delivery {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return amqp.Delivery{RoutingKey: key, Body: b, MessageId: "m-1"}
}

func TestPaymentConsumer_Handle(t *testing.T) {
	paid := events.PaymentPaid{PaymentID: "chrg_1", BookingID: "b-1", UserID: "u-1", Amount: 2500, Currency: "THB"}

	tests := []struct {
		name      string
		d         amqp.Delivery
		confirmEr error
		want      mq.Outcome
		wantCalls int
	}{
		{"confirms", delivery(t, events.RKPaymentPaid, paid), nil, mq.Ack, 1},
		{"other key ignored", delivery(t, events.RKPaymentFailed, paid), nil, mq.Ack, 0},
		{"garbage dead-lettered", amqp.Delivery{RoutingKey: events.RKPaymentPaid, Body: []byte("{")}, nil, mq.Reject, 0},
		{"missing user acked", delivery(t, events.RKPaymentPaid, events.PaymentPaid{PaymentID: "chrg_1", BookingID: "b-1"}), nil, mq.Ack, 0},
		{"unknown booking acked", delivery(t, events.RKPaymentPaid, paid), domain.ErrNotFound, mq.Ack, 1},
		{"store failure requeued", delivery(t, events.RKPaymentPaid, paid), &domain.StoreError{Op: "confirm payment", Err: errors.New("conn reset")}, mq.Requeue, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeConfirmer{err: tt.confirmEr}
			pc := NewPaymentConsumer(fc, nil, nil)
			if got := pc.Handle(context.Background(), tt.d); got != tt.want {
				t.Errorf("Handle = %v, want %v", got, tt.want)
			}
			if len(fc.calls) != tt.wantCalls {
				t.Fatalf("ConfirmPayment called %d times, want %d", len(fc.calls), tt.wantCalls)
			}
			if tt.wantCalls == 1 && fc.calls[0] != [3]string{"b-1", "u-1", "chrg_1"} {
				t.Errorf("ConfirmPayment args = %v", fc.calls[0])
			}
		})
	}
}
