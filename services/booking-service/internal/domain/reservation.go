package domain

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Reservation is one claim on a (court, date, time) slot. At most one live
// row exists per slot; see the ux_reservations_live_slot index.
type Reservation struct {
	ID        string `gorm:"primaryKey"`
	CourtID   string `gorm:"index:idx_reservations_slot,priority:1;not null"`
	UserID    string `gorm:"index;not null"`
	Date      string `gorm:"column:slot_date;index:idx_reservations_slot,priority:2;not null"` // YYYY-MM-DD
	Time      string `gorm:"column:slot_time;index:idx_reservations_slot,priority:3;not null"` // HH:MM
	Status    Status `gorm:"index;not null"`
	CreatedAt int64  `gorm:"autoCreateTime:false;index;not null"` // unix millis, hold start
	UpdatedAt time.Time
}

// HeldAt returns the hold creation time.
func (r *Reservation) HeldAt() time.Time { return time.UnixMilli(r.CreatedAt) }

// Expired reports whether r is a pending hold that started before cutoff.
// Expired holds do not occupy their slot even if still stored.
func (r *Reservation) Expired(cutoff time.Time) bool {
	return r.Status == StatusPending && r.CreatedAt < cutoff.UnixMilli()
}

func (r *Reservation) Slot() Slot {
	return Slot{CourtID: r.CourtID, Date: r.Date, Time: r.Time}
}

// ReservationView is a reservation joined with its court and, for admin
// listings, its owner.
type ReservationView struct {
	ID           string `json:"id"`
	CourtID      string `json:"court_id"`
	UserID       string `json:"user_id"`
	Date         string `json:"date" gorm:"column:slot_date"`
	Time         string `json:"time" gorm:"column:slot_time"`
	Status       Status `json:"status"`
	CreatedAt    int64  `json:"created_at"`
	CourtName    string `json:"court_name"`
	CourtAddress string `json:"court_address"`
	CourtPrice   int64  `json:"court_price"`
	UserName     string `json:"user_name,omitempty"`
	UserEmail    string `json:"user_email,omitempty"`
	Expired      bool   `json:"expired,omitempty"`
}

// ConsumedEvent records a payment event that already confirmed a booking.
type ConsumedEvent struct {
	ID          string `gorm:"primaryKey"` // payment id
	EventKey    string `gorm:"index"`
	BookingID   string `gorm:"index"`
	ProcessedAt time.Time
}
