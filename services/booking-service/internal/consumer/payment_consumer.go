package consumer

import (
	"context"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/you/padel-booking/pkg/events"
	"github.com/you/padel-booking/pkg/mq"
	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

// PaymentConfirmer is implemented by *service.Ledger.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, id, userID, paymentID string) error
}

type PaymentConsumer struct {
	ledger PaymentConfirmer
	cons   *mq.Consumer
	log    *slog.Logger
}

func NewPaymentConsumer(ledger PaymentConfirmer, cons *mq.Consumer, logger *slog.Logger) *PaymentConsumer {
	if logger == nil {
		logger = obs.Discard()
	}
	return &PaymentConsumer{ledger: ledger, cons: cons, log: logger.With("component", "payment-consumer")}
}

// Run blocks until ctx is done or the broker closes the channel.
func (pc *PaymentConsumer) Run(ctx context.Context) error {
	return pc.cons.Serve(ctx, pc.Handle)
}

// Handle applies one payment event. Malformed bodies are dead-lettered,
// events that can never apply are acked and logged, store failures are
// requeued.
func (pc *PaymentConsumer) Handle(ctx context.Context, d amqp.Delivery) mq.Outcome {
	if d.RoutingKey != events.RKPaymentPaid {
		return mq.Ack
	}
	evt, err := events.Decode[events.PaymentPaid](d.Body)
	if err != nil {
		pc.log.Error("bad payment event", "message_id", d.MessageId, "err", err)
		return mq.Reject
	}
	if evt.BookingID == "" || evt.PaymentID == "" || evt.UserID == "" {
		pc.log.Warn("incomplete payment event", "message_id", d.MessageId, "payment_id", evt.PaymentID, "booking_id", evt.BookingID)
		return mq.Ack
	}

	err = pc.ledger.ConfirmPayment(ctx, evt.BookingID, evt.UserID, evt.PaymentID)
	switch {
	case err == nil:
		return mq.Ack
	case errors.Is(err, domain.ErrNotFound), domain.IsValidation(err):
		// paid for a hold that is gone or was never theirs; needs a refund, not a retry
		pc.log.Warn("payment for unknown booking", "payment_id", evt.PaymentID, "booking_id", evt.BookingID, "user_id", evt.UserID, "err", err)
		return mq.Ack
	default:
		pc.log.Error("confirm payment failed", "payment_id", evt.PaymentID, "booking_id", evt.BookingID, "err", err)
		return mq.Requeue
	}
}
