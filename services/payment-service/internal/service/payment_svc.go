package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"

	"github.com/you/padel-booking/pkg/events"
	"github.com/you/padel-booking/pkg/obs"
	omisecli "github.com/you/padel-booking/services/payment-service/internal/omise"
)

var ErrInvalidParams = errors.New("invalid params")

// EventPublisher is satisfied by *mq.Publisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type PaymentSvc struct {
	gw       omisecli.Gateway
	pub      EventPublisher
	fee      int64
	currency string
	log      *slog.Logger
}

// NewPaymentSvc charges fee (minor units of currency) per booking.
func NewPaymentSvc(gw omisecli.Gateway, pub EventPublisher, fee int64, currency string, logger *slog.Logger) *PaymentSvc {
	if logger == nil {
		logger = obs.Discard()
	}
	return &PaymentSvc{gw: gw, pub: pub, fee: fee, currency: currency, log: logger.With("component", "payments")}
}

func (s *PaymentSvc) publish(ctx context.Context, key string, v any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishJSON(ctx, key, v); err != nil {
		s.log.Warn("publish failed", "key", key, "err", err)
	}
}

// PublishOutcome emits payment.paid or payment.failed for a settled charge.
// Pending charges publish nothing; the webhook reports their final state.
func (s *PaymentSvc) PublishOutcome(ctx context.Context, ch *omise.Charge) {
	bookingID, _ := ch.Metadata["booking_id"].(string)
	userID, _ := ch.Metadata["user_id"].(string)

	switch string(ch.Status) {
	case "successful":
		method := "card"
		if ch.Source != nil && ch.Source.Type != "" {
			method = ch.Source.Type
		}
		s.publish(ctx, events.RKPaymentPaid, events.PaymentPaid{
			PaymentID: ch.ID,
			BookingID: bookingID,
			UserID:    userID,
			Amount:    ch.Amount,
			Currency:  ch.Currency,
			Method:    method,
		})
	case "failed":
		evt := events.PaymentFailed{PaymentID: ch.ID, BookingID: bookingID, UserID: userID}
		if ch.FailureCode != nil {
			evt.FailureCode = *ch.FailureCode
		}
		if ch.FailureMessage != nil {
			evt.FailureMessage = *ch.FailureMessage
		}
		s.publish(ctx, events.RKPaymentFailed, evt)
	}
}

type ChargeInput struct {
	BookingID string
	UserID    string
	CardToken string // tokn_...
	SourceID  string // src_..., used when CardToken is empty
}

// CreateCharge charges the booking fee with the booking and payer recorded in
// the charge metadata, so the webhook can route the outcome back.
func (s *PaymentSvc) CreateCharge(ctx context.Context, in ChargeInput) (*omise.Charge, error) {
	in.BookingID = strings.TrimSpace(in.BookingID)
	in.UserID = strings.TrimSpace(in.UserID)
	if in.BookingID == "" || in.UserID == "" || (in.CardToken == "" && in.SourceID == "") || s.fee <= 0 || s.currency == "" {
		return nil, ErrInvalidParams
	}
	req := &operations.CreateCharge{
		Amount:      s.fee,
		Currency:    s.currency,
		Card:        in.CardToken,
		Description: "Court booking " + in.BookingID,
		Metadata: map[string]interface{}{
			"booking_id": in.BookingID,
			"user_id":    in.UserID,
		},
	}
	if in.CardToken == "" {
		req.Source = in.SourceID
	}

	ch, err := s.gw.CreateCharge(req)
	if err != nil {
		// no charge id yet
		s.publish(ctx, events.RKPaymentFailed, events.PaymentFailed{
			BookingID:      in.BookingID,
			UserID:         in.UserID,
			FailureCode:    "create_charge_error",
			FailureMessage: err.Error(),
		})
		return nil, err
	}
	s.log.Info("charge created", "charge_id", ch.ID, "booking_id", in.BookingID, "status", string(ch.Status))
	s.PublishOutcome(ctx, ch)
	return ch, nil
}

func (s *PaymentSvc) GetCharge(_ context.Context, id string) (*omise.Charge, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidParams
	}
	return s.gw.RetrieveCharge(id)
}
