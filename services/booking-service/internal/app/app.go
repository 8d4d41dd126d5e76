// Package app wires the booking store and services for the service binary
// and ledgerctl.
package app

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/you/padel-booking/pkg/clock"
	"github.com/you/padel-booking/pkg/config"
	"github.com/you/padel-booking/services/booking-service/internal/repository"
	"github.com/you/padel-booking/services/booking-service/internal/service"
)

type Config struct {
	config.Postgres
	config.JWT
	config.Rabbit
	config.Redis
	config.Telemetry

	HTTPAddr     string `envconfig:"BOOKING_HTTP_ADDR" default:":8080"`
	PaymentQueue string `envconfig:"BOOKING_PAYMENT_QUEUE" default:"booking.payment.q"`
	PaymentDLX   string `envconfig:"BOOKING_PAYMENT_DLX" default:"booking.dlx"`

	HoldTTL       time.Duration `envconfig:"HOLD_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"0s"`
	StrictConfirm bool          `envconfig:"STRICT_CONFIRM" default:"false"`
	SeedCourts    bool          `envconfig:"SEED_COURTS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := config.Load(&cfg)
	return cfg, err
}

type Store struct {
	Reservations *repository.ReservationRepo
	Users        *repository.UserRepo
	Courts       *repository.CourtRepo
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{
		Reservations: repository.NewReservationRepo(gdb),
		Users:        repository.NewUserRepo(gdb),
		Courts:       repository.NewCourtRepo(gdb),
	}
}

func (s *Store) Migrate() error {
	for _, m := range []func() error{s.Courts.Migrate, s.Users.Migrate, s.Reservations.Migrate} {
		if err := m(); err != nil {
			return err
		}
	}
	return nil
}

type App struct {
	Store   *Store
	Sweeper *service.Sweeper
	Ledger  *service.Ledger
	Courts  *service.CourtSvc
}

// New builds the services over gdb. pub and cache may be nil.
func New(gdb *gorm.DB, cfg Config, clk clock.Clock, pub service.EventPublisher, cache service.CourtCache, logger *slog.Logger) *App {
	st := NewStore(gdb)
	sw := service.NewSweeper(st.Reservations, clk, cfg.HoldTTL, pub, logger)
	return &App{
		Store:   st,
		Sweeper: sw,
		Ledger: service.NewLedger(st.Reservations, st.Users, sw, pub,
			service.WithStrictConfirm(cfg.StrictConfirm),
			service.WithLogger(logger),
		),
		Courts: service.NewCourtSvc(st.Courts, cache, logger),
	}
}
