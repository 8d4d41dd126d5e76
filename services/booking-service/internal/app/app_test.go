package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/you/padel-booking/pkg/clock"
	"github.com/you/padel-booking/pkg/db/dbtest"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PG_BOOKING_DSN", "postgres://booking@localhost/booking")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STRICT_CONFIRM", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HoldTTL != 30*time.Minute || cfg.SweepInterval != 0 {
		t.Errorf("durations = %v / %v", cfg.HoldTTL, cfg.SweepInterval)
	}
	if !cfg.StrictConfirm || !cfg.SeedCourts {
		t.Errorf("flags = strict %v seed %v", cfg.StrictConfirm, cfg.SeedCourts)
	}
	if cfg.DSN == "" || cfg.HTTPAddr != ":8080" || cfg.Redis.Enabled() {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("PG_BOOKING_DSN", "postgres://booking@localhost/booking")
	t.Setenv("JWT_SECRET", "placeholder")
	os.Unsetenv("JWT_SECRET")
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig accepted an empty JWT_SECRET")
	}
}

func TestNew_Wires(t *testing.T) {
	gdb := dbtest.Open(t)
	clk := clock.Fake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	a := New(gdb, Config{HoldTTL: 10 * time.Minute}, clk, nil, nil, nil)
	if err := a.Store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	ctx := context.Background()
	if _, err := a.Courts.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}

	slot := domain.Slot{CourtID: "1", Date: "2025-06-01", Time: "20:00"}
	if _, err := a.Ledger.Reserve(ctx, slot, domain.Identity{UserID: "u1"}); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	clk.Advance(11 * time.Minute)
	times, err := a.Ledger.ListOccupied(ctx, "1", "2025-06-01")
	if err != nil {
		t.Fatalf("ListOccupied: %v", err)
	}
	if len(times) != 0 {
		t.Errorf("hold outlived configured HoldTTL: %v", times)
	}
}
