package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/you/padel-booking/pkg/events"
	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
	"github.com/you/padel-booking/services/booking-service/internal/repository"
)

const (
	ActorUser    = "user"
	ActorAdmin   = "admin"
	ActorPayment = "payment"
)

type Option func(*Ledger)

// WithStrictConfirm makes Confirm and ConfirmPayment treat a pending hold
// past the window as gone. Off by default: an aged hold that has not been
// swept yet can still be confirmed.
func WithStrictConfirm(strict bool) Option {
	return func(l *Ledger) { l.strict = strict }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.log = logger
		}
	}
}

// Ledger is the authority on slot occupancy. It performs no authorization;
// callers hand it an already verified identity.
type Ledger struct {
	repo    *repository.ReservationRepo
	users   *repository.UserRepo
	sweeper *Sweeper
	pub     EventPublisher
	strict  bool
	log     *slog.Logger
	tracer  trace.Tracer
}

func NewLedger(repo *repository.ReservationRepo, users *repository.UserRepo, sw *Sweeper, pub EventPublisher, opts ...Option) *Ledger {
	l := &Ledger{
		repo:    repo,
		users:   users,
		sweeper: sw,
		pub:     pub,
		log:     obs.Discard(),
		tracer:  otel.Tracer("booking-service/ledger"),
	}
	for _, o := range opts {
		o(l)
	}
	l.log = l.log.With("component", "ledger")
	return l
}

func (l *Ledger) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attrs...))
}

// end records err on span unless it is an expected client error.
func end(span trace.Span, err error) {
	if err != nil && !domain.IsValidation(err) && !errors.Is(err, domain.ErrSlotConflict) && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Reserve places a pending hold on slot for who. Repeating the call while the
// caller's own hold is alive returns that hold. A court missing from the
// catalog is ErrNotFound.
func (l *Ledger) Reserve(ctx context.Context, slot domain.Slot, who domain.Identity) (res *domain.Reservation, err error) {
	ctx, span := l.start(ctx, "Reserve",
		attribute.String("court_id", slot.CourtID),
		attribute.String("date", slot.Date),
		attribute.String("time", slot.Time),
	)
	defer func() { end(span, err) }()

	slot, err = slot.Normalize()
	if err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(who.UserID)
	if userID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "required"}
	}

	if err := l.users.Sync(ctx, &domain.User{ID: userID, Email: who.Email, Name: who.Name, Role: who.Role}); err != nil {
		return nil, err
	}
	if _, err := l.sweeper.Sweep(ctx, repository.Scope{CourtID: slot.CourtID, Date: slot.Date}); err != nil {
		return nil, err
	}

	res, created, err := l.repo.Reserve(ctx, slot, userID, l.sweeper.Now(), l.sweeper.Cutoff())
	if err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			l.log.Info("slot taken", "court_id", slot.CourtID, "date", slot.Date, "time", slot.Time, "user_id", userID)
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("reservation_id", res.ID), attribute.Bool("created", created))
	if created {
		l.log.Info("hold placed", "reservation_id", res.ID, "court_id", slot.CourtID, "date", slot.Date, "time", slot.Time, "user_id", userID)
		publish(ctx, l.pub, l.log, events.RKBookingReserved, events.BookingReserved{
			BookingID: res.ID,
			UserID:    userID,
			CourtID:   slot.CourtID,
			Date:      slot.Date,
			Time:      slot.Time,
		})
	}
	return res, nil
}

func (l *Ledger) strictCutoff() time.Time {
	if !l.strict {
		return time.Time{}
	}
	return l.sweeper.Cutoff()
}

func requireIDs(id, userID string) (string, string, error) {
	id, userID = strings.TrimSpace(id), strings.TrimSpace(userID)
	if id == "" {
		return "", "", &domain.ValidationError{Field: "id", Reason: "required"}
	}
	if userID == "" {
		return "", "", &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	return id, userID, nil
}

// Confirm marks userID's reservation id as confirmed. A reservation that is
// missing or owned by someone else is ErrNotFound; an already confirmed one
// succeeds without change.
func (l *Ledger) Confirm(ctx context.Context, id, userID string) (err error) {
	ctx, span := l.start(ctx, "Confirm", attribute.String("reservation_id", id))
	defer func() { end(span, err) }()

	if id, userID, err = requireIDs(id, userID); err != nil {
		return err
	}
	changed, err := l.repo.ConfirmOwned(ctx, id, userID, l.strictCutoff())
	if err != nil {
		return err
	}
	if changed {
		l.log.Info("reservation confirmed", "reservation_id", id, "actor", ActorUser)
		publish(ctx, l.pub, l.log, events.RKBookingConfirmed, events.BookingStatus{BookingID: id, Actor: ActorUser})
	}
	return nil
}

// ConfirmPayment is Confirm on behalf of a settled payment. Each paymentID
// is applied at most once.
func (l *Ledger) ConfirmPayment(ctx context.Context, id, userID, paymentID string) (err error) {
	ctx, span := l.start(ctx, "ConfirmPayment",
		attribute.String("reservation_id", id),
		attribute.String("payment_id", paymentID),
	)
	defer func() { end(span, err) }()

	if id, userID, err = requireIDs(id, userID); err != nil {
		return err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return &domain.ValidationError{Field: "payment_id", Reason: "required"}
	}
	changed, dup, err := l.repo.ConfirmPayment(ctx, id, userID, paymentID, events.RKPaymentPaid, l.sweeper.Now(), l.strictCutoff())
	if err != nil {
		return err
	}
	if dup {
		l.log.Info("payment already applied", "reservation_id", id, "payment_id", paymentID)
		return nil
	}
	if changed {
		l.log.Info("reservation confirmed", "reservation_id", id, "actor", ActorPayment, "payment_id", paymentID)
		publish(ctx, l.pub, l.log, events.RKBookingConfirmed, events.BookingStatus{BookingID: id, Actor: ActorPayment})
	}
	return nil
}

// AdminConfirm confirms id with no owner or age check. Confirming a
// confirmed reservation succeeds without publishing again.
func (l *Ledger) AdminConfirm(ctx context.Context, id string) (err error) {
	ctx, span := l.start(ctx, "AdminConfirm", attribute.String("reservation_id", id))
	defer func() { end(span, err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return &domain.ValidationError{Field: "id", Reason: "required"}
	}
	changed, err := l.repo.AdminConfirm(ctx, id)
	if err != nil || !changed {
		return err
	}
	l.log.Info("reservation confirmed", "reservation_id", id, "actor", ActorAdmin)
	publish(ctx, l.pub, l.log, events.RKBookingConfirmed, events.BookingStatus{BookingID: id, Actor: ActorAdmin})
	return nil
}

// AdminCancel deletes id whatever its status or owner.
func (l *Ledger) AdminCancel(ctx context.Context, id string) (err error) {
	ctx, span := l.start(ctx, "AdminCancel", attribute.String("reservation_id", id))
	defer func() { end(span, err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return &domain.ValidationError{Field: "id", Reason: "required"}
	}
	res, err := l.repo.AdminCancel(ctx, id)
	if err != nil {
		return err
	}
	l.log.Info("reservation cancelled", "reservation_id", id, "status", res.Status, "actor", ActorAdmin)
	publish(ctx, l.pub, l.log, events.RKBookingCancelled, events.BookingStatus{BookingID: id, Actor: ActorAdmin})
	return nil
}

// Get returns userID's live reservation id. It is ErrNotFound for other
// users' reservations and for lapsed holds.
func (l *Ledger) Get(ctx context.Context, id, userID string) (view *domain.ReservationView, err error) {
	ctx, span := l.start(ctx, "Get", attribute.String("reservation_id", id))
	defer func() { end(span, err) }()

	if id, userID, err = requireIDs(id, userID); err != nil {
		return nil, err
	}
	return l.repo.OwnedView(ctx, id, userID, l.sweeper.Cutoff())
}

// ListOccupied returns the taken times of courtID on date, ascending.
func (l *Ledger) ListOccupied(ctx context.Context, courtID, date string) (times []string, err error) {
	ctx, span := l.start(ctx, "ListOccupied", attribute.String("court_id", courtID), attribute.String("date", date))
	defer func() { end(span, err) }()

	courtID, date = strings.TrimSpace(courtID), strings.TrimSpace(date)
	if courtID == "" {
		return nil, &domain.ValidationError{Field: "court_id", Reason: "required"}
	}
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}
	if _, err := l.sweeper.Sweep(ctx, repository.Scope{CourtID: courtID, Date: date}); err != nil {
		return nil, err
	}
	return l.repo.Occupied(ctx, courtID, date, l.sweeper.Cutoff())
}

// ListForUser returns userID's live reservations with court details.
func (l *Ledger) ListForUser(ctx context.Context, userID string) (views []domain.ReservationView, err error) {
	ctx, span := l.start(ctx, "ListForUser")
	defer func() { end(span, err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	if _, err := l.sweeper.Sweep(ctx, repository.Scope{UserID: userID}); err != nil {
		return nil, err
	}
	return l.repo.ForUser(ctx, userID, l.sweeper.Cutoff())
}

// ListAll returns every stored reservation for the admin view. It does not
// sweep; unswept dead holds come back flagged Expired.
func (l *Ledger) ListAll(ctx context.Context) (views []domain.ReservationView, err error) {
	ctx, span := l.start(ctx, "ListAll")
	defer func() { end(span, err) }()

	views, err = l.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := l.sweeper.Cutoff().UnixMilli()
	for i := range views {
		views[i].Expired = views[i].Status == domain.StatusPending && views[i].CreatedAt < cutoff
	}
	return views, nil
}
