package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/you/padel-booking/pkg/events"
	"github.com/you/padel-booking/pkg/mq"
	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/notification-service/internal/notifier"
)

var errUndecodable = errors.New("undecodable payload")

type Worker struct {
	notifier notifier.Notifier
	log      *slog.Logger
}

func New(n notifier.Notifier, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = obs.Discard()
	}
	return &Worker{notifier: n, log: logger.With("component", "worker")}
}

// Run serves deliveries from cons until ctx is done.
func (w *Worker) Run(ctx context.Context, cons *mq.Consumer) error {
	return cons.Serve(ctx, w.Handle)
}

// Handle notifies for one delivery. Undecodable messages go to the DLQ;
// delivery failures are requeued.
func (w *Worker) Handle(_ context.Context, d amqp.Delivery) mq.Outcome {
	err := w.handleDelivery(d)
	switch {
	case err == nil:
		return mq.Ack
	case errors.Is(err, errUndecodable):
		w.log.Error("dead-lettering message", "key", d.RoutingKey, "message_id", d.MessageId, "err", err)
		return mq.Reject
	default:
		w.log.Warn("notify failed, requeueing", "key", d.RoutingKey, "err", err)
		return mq.Requeue
	}
}

func decode[T any](b []byte) (T, error) {
	v, err := events.Decode[T](b)
	if err != nil {
		return v, fmt.Errorf("%w: %v", errUndecodable, err)
	}
	return v, nil
}

func (w *Worker) handleDelivery(d amqp.Delivery) error {
	body := d.Body

	switch d.RoutingKey {
	case events.RKBookingReserved:
		ev, err := decode[events.BookingReserved](body)
		if err != nil {
			return err
		}
		return w.notifier.Notify("📅 Slot on hold",
			fmt.Sprintf("Booking %s: court %s, %s held for payment.", ev.BookingID, ev.CourtID, notifier.HumanSlot(ev.Date, ev.Time)))

	case events.RKBookingConfirmed:
		ev, err := decode[events.BookingStatus](body)
		if err != nil {
			return err
		}
		return w.notifier.Notify("✅ Booking confirmed",
			fmt.Sprintf("Booking %s confirmed by %s.", ev.BookingID, ev.Actor))

	case events.RKBookingCancelled:
		ev, err := decode[events.BookingStatus](body)
		if err != nil {
			return err
		}
		return w.notifier.Notify("❌ Booking cancelled",
			fmt.Sprintf("Booking %s cancelled by %s.", ev.BookingID, ev.Actor))

	case events.RKBookingExpired:
		ev, err := decode[events.HoldsExpired](body)
		if err != nil {
			return err
		}
		scope := "all courts"
		if ev.CourtID != "" {
			scope = "court " + ev.CourtID
			if ev.Date != "" {
				scope += " on " + ev.Date
			}
		}
		return w.notifier.Notify("⌛ Holds expired",
			fmt.Sprintf("%d unpaid hold(s) released for %s.", ev.Count, scope))

	case events.RKPaymentPaid:
		ev, err := decode[events.PaymentPaid](body)
		if err != nil {
			return err
		}
		return w.notifier.Notify("💰 Payment received",
			fmt.Sprintf("Booking %s paid %d %s (charge=%s).", ev.BookingID, ev.Amount, strings.ToUpper(ev.Currency), ev.PaymentID))

	case events.RKPaymentFailed:
		ev, err := decode[events.PaymentFailed](body)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Payment failed for booking %s (charge=%s).", ev.BookingID, ev.PaymentID)
		if ev.FailureCode != "" || ev.FailureMessage != "" {
			msg = strings.TrimSpace(fmt.Sprintf("%s Reason: %s %s", msg, ev.FailureCode, ev.FailureMessage))
		}
		return w.notifier.Notify("⚠️ Payment failed", msg)

	default:
		w.log.Debug("skip unknown key", "key", d.RoutingKey)
	}
	return nil
}
