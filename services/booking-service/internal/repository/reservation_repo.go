package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

// liveSlotIndex makes (court_id, slot_date, slot_time) unique among pending
// and confirmed rows. It is the only thing standing between two concurrent
// reservers of the same slot.
const liveSlotIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_reservations_live_slot
	ON reservations (court_id, slot_date, slot_time)
	WHERE status IN ('pending', 'confirmed')`

// Scope narrows a sweep. Empty fields match everything, so the zero value
// sweeps the whole table.
type Scope struct {
	CourtID string
	Date    string
	UserID  string
}

type ReservationRepo struct{ db *gorm.DB }

func NewReservationRepo(db *gorm.DB) *ReservationRepo {
	return &ReservationRepo{db: db}
}

func (r *ReservationRepo) Migrate() error {
	if err := r.db.AutoMigrate(&domain.Reservation{}, &domain.ConsumedEvent{}); err != nil {
		return err
	}
	return r.db.Exec(liveSlotIndex).Error
}

// Sweep deletes pending holds created before cutoff. Confirmed rows are never
// touched.
func (r *ReservationRepo) Sweep(ctx context.Context, cutoff time.Time, scope Scope) (int64, error) {
	n, err := sweep(r.db.WithContext(ctx), cutoff, scope)
	if err != nil {
		return 0, storeErr("sweep", err)
	}
	return n, nil
}

func sweep(tx *gorm.DB, cutoff time.Time, scope Scope) (int64, error) {
	q := tx.Where("status = ? AND created_at < ?", domain.StatusPending, cutoff.UnixMilli())
	if scope.CourtID != "" {
		q = q.Where("court_id = ?", scope.CourtID)
	}
	if scope.Date != "" {
		q = q.Where("slot_date = ?", scope.Date)
	}
	if scope.UserID != "" {
		q = q.Where("user_id = ?", scope.UserID)
	}
	res := q.Delete(&domain.Reservation{})
	return res.RowsAffected, res.Error
}

// Reserve claims slot for userID. The insert is a single
// INSERT .. ON CONFLICT DO NOTHING against the live-slot index, so of any
// number of concurrent callers exactly one inserts. A loser that finds its
// own pending hold gets that hold back (created == false). A hold that aged
// past cutoff since the caller's sweep is reclaimed and the insert retried.
// An unknown court is ErrNotFound.
func (r *ReservationRepo) Reserve(ctx context.Context, slot domain.Slot, userID string, now, cutoff time.Time) (*domain.Reservation, bool, error) {
	var (
		out     *domain.Reservation
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var courts int64
		if err := tx.Model(&domain.Court{}).Where("id = ?", slot.CourtID).Count(&courts).Error; err != nil {
			return err
		}
		if courts == 0 {
			return domain.ErrNotFound
		}
		for attempt := 0; attempt < 3; attempt++ {
			res := &domain.Reservation{
				ID:        uuid.NewString(),
				CourtID:   slot.CourtID,
				UserID:    userID,
				Date:      slot.Date,
				Time:      slot.Time,
				Status:    domain.StatusPending,
				CreatedAt: now.UnixMilli(),
			}
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(res)
			if ins.Error != nil {
				if errors.Is(ins.Error, gorm.ErrDuplicatedKey) {
					return domain.ErrSlotConflict
				}
				return ins.Error
			}
			if ins.RowsAffected == 1 {
				out, created = res, true
				return nil
			}

			existing, err := liveAt(tx, slot)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// holder went away between our insert and read
				continue
			}
			if err != nil {
				return err
			}
			if existing.Expired(cutoff) {
				if err := tx.Where("id = ? AND status = ?", existing.ID, domain.StatusPending).
					Delete(&domain.Reservation{}).Error; err != nil {
					return err
				}
				continue
			}
			if existing.UserID == userID && existing.Status == domain.StatusPending {
				out = existing
				return nil
			}
			return domain.ErrSlotConflict
		}
		return domain.ErrSlotConflict
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotConflict) || errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
		return nil, false, storeErr("reserve", err)
	}
	return out, created, nil
}

func liveAt(tx *gorm.DB, slot domain.Slot) (*domain.Reservation, error) {
	var res domain.Reservation
	err := tx.Where("court_id = ? AND slot_date = ? AND slot_time = ?", slot.CourtID, slot.Date, slot.Time).
		Where("status IN ?", []domain.Status{domain.StatusPending, domain.StatusConfirmed}).
		Take(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepo) ByID(ctx context.Context, id string) (*domain.Reservation, error) {
	var res domain.Reservation
	if err := r.db.WithContext(ctx).Take(&res, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get reservation", err)
	}
	return &res, nil
}

// ConfirmOwned moves userID's reservation id to confirmed. It reports whether
// the status changed; an already confirmed row is a successful no-op. With a
// non-zero strictCutoff, a pending hold created before it counts as gone.
func (r *ReservationRepo) ConfirmOwned(ctx context.Context, id, userID string, strictCutoff time.Time) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = confirmOwned(tx, id, userID, strictCutoff)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
		return false, storeErr("confirm", err)
	}
	return changed, nil
}

// ConfirmPayment is ConfirmOwned driven by a payment event. paymentID is
// recorded in the same transaction; a payment seen before returns
// (false, true, nil) without touching the reservation.
func (r *ReservationRepo) ConfirmPayment(ctx context.Context, id, userID, paymentID, eventKey string, now, strictCutoff time.Time) (changed, duplicate bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&domain.ConsumedEvent{}).Where("id = ?", paymentID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			duplicate = true
			return nil
		}
		var err error
		if changed, err = confirmOwned(tx, id, userID, strictCutoff); err != nil {
			return err
		}
		return tx.Create(&domain.ConsumedEvent{
			ID:          paymentID,
			EventKey:    eventKey,
			BookingID:   id,
			ProcessedAt: now.UTC(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, false, err
		}
		return false, false, storeErr("confirm payment", err)
	}
	return changed, duplicate, nil
}

func confirmOwned(tx *gorm.DB, id, userID string, strictCutoff time.Time) (bool, error) {
	var res domain.Reservation
	if err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	if res.Status == domain.StatusConfirmed {
		return false, nil
	}
	if !strictCutoff.IsZero() && res.Expired(strictCutoff) {
		return false, domain.ErrNotFound
	}
	upd := tx.Model(&domain.Reservation{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", domain.StatusConfirmed)
	if upd.Error != nil {
		return false, upd.Error
	}
	if upd.RowsAffected == 1 {
		return true, nil
	}
	// Lost a race: either someone confirmed it first or it was deleted.
	var again domain.Reservation
	err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&again).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if again.Status != domain.StatusConfirmed {
		return false, fmt.Errorf("reservation %s left in status %q", id, again.Status)
	}
	return false, nil
}

// AdminConfirm confirms id regardless of owner or age. It reports whether the
// status changed; confirming a confirmed row is a no-op.
func (r *ReservationRepo) AdminConfirm(ctx context.Context, id string) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&domain.Reservation{}).
			Where("id = ? AND status <> ?", id, domain.StatusConfirmed).
			Update("status", domain.StatusConfirmed)
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 1 {
			changed = true
			return nil
		}
		var n int64
		if err := tx.Model(&domain.Reservation{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
		return false, storeErr("admin confirm", err)
	}
	return changed, nil
}

// AdminCancel deletes id whatever its status and returns the removed row.
func (r *ReservationRepo) AdminCancel(ctx context.Context, id string) (*domain.Reservation, error) {
	var res domain.Reservation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&res, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		del := tx.Where("id = ?", id).Delete(&domain.Reservation{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, storeErr("admin cancel", err)
	}
	return &res, nil
}

// Occupied lists the taken times of courtID on date. Pending holds created
// before cutoff are ignored even if not swept yet.
func (r *ReservationRepo) Occupied(ctx context.Context, courtID, date string, cutoff time.Time) ([]string, error) {
	times := []string{}
	err := r.db.WithContext(ctx).Model(&domain.Reservation{}).
		Where("court_id = ? AND slot_date = ?", courtID, date).
		Where("(status = ? OR created_at >= ?)", domain.StatusConfirmed, cutoff.UnixMilli()).
		Order("slot_time ASC").
		Pluck("slot_time", &times).Error
	if err != nil {
		return nil, storeErr("list occupied", err)
	}
	return times, nil
}

const viewColumns = `r.id, r.court_id, r.user_id, r.slot_date, r.slot_time, r.status, r.created_at,
	COALESCE(c.name, '') AS court_name, COALESCE(c.address, '') AS court_address, COALESCE(c.price, 0) AS court_price`

// ForUser lists userID's live reservations with court details, newest date
// first.
func (r *ReservationRepo) ForUser(ctx context.Context, userID string, cutoff time.Time) ([]domain.ReservationView, error) {
	out := []domain.ReservationView{}
	err := r.db.WithContext(ctx).Table("reservations AS r").
		Select(viewColumns).
		Joins("LEFT JOIN courts AS c ON c.id = r.court_id").
		Where("r.user_id = ?", userID).
		Where("(r.status = ? OR r.created_at >= ?)", domain.StatusConfirmed, cutoff.UnixMilli()).
		Order("r.slot_date DESC, r.slot_time ASC").
		Scan(&out).Error
	if err != nil {
		return nil, storeErr("list user reservations", err)
	}
	return out, nil
}

// OwnedView returns userID's reservation id with court details. Missing rows,
// rows owned by someone else and pending holds created before cutoff are all
// ErrNotFound.
func (r *ReservationRepo) OwnedView(ctx context.Context, id, userID string, cutoff time.Time) (*domain.ReservationView, error) {
	var out []domain.ReservationView
	err := r.db.WithContext(ctx).Table("reservations AS r").
		Select(viewColumns).
		Joins("LEFT JOIN courts AS c ON c.id = r.court_id").
		Where("r.id = ? AND r.user_id = ?", id, userID).
		Where("(r.status = ? OR r.created_at >= ?)", domain.StatusConfirmed, cutoff.UnixMilli()).
		Limit(1).
		Scan(&out).Error
	if err != nil {
		return nil, storeErr("get user reservation", err)
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return &out[0], nil
}

// All lists every stored reservation with court and owner details.
func (r *ReservationRepo) All(ctx context.Context) ([]domain.ReservationView, error) {
	out := []domain.ReservationView{}
	err := r.db.WithContext(ctx).Table("reservations AS r").
		Select(viewColumns + `, COALESCE(u.name, '') AS user_name, COALESCE(u.email, '') AS user_email`).
		Joins("LEFT JOIN courts AS c ON c.id = r.court_id").
		Joins("LEFT JOIN users AS u ON u.id = r.user_id").
		Order("r.slot_date DESC, r.slot_time ASC").
		Scan(&out).Error
	if err != nil {
		return nil, storeErr("list reservations", err)
	}
	return out, nil
}

func storeErr(op string, err error) error {
	return &domain.StoreError{Op: op, Err: err}
}
