package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/you/padel-booking/pkg/clock"
	"github.com/you/padel-booking/pkg/db/dbtest"
	"github.com/you/padel-booking/services/booking-service/internal/app"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

func newEnv(t *testing.T) (*cliEnv, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	gdb := dbtest.Open(t)
	clk := clock.Fake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	env := &cliEnv{
		open:    func() (*gorm.DB, error) { return gdb, nil },
		clock:   clk,
		holdTTL: 30 * time.Minute,
	}
	return env, gdb, clk
}

func run(t *testing.T, env *cliEnv, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd(env)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("ledgerctl %s: %v (%s)", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestMigrateSeedSweepList(t *testing.T) {
	env, gdb, clk := newEnv(t)

	if out := run(t, env, "migrate"); !strings.Contains(out, "migrated") {
		t.Errorf("migrate output = %q", out)
	}
	if out := run(t, env, "seed"); !strings.Contains(out, "seeded 3 courts") {
		t.Errorf("seed output = %q", out)
	}

	path := filepath.Join(t.TempDir(), "courts.yaml")
	yml := "courts:\n  - id: \"9\"\n    name: Costa Padel\n    address: Calle 2 100\n    city: Quequen\n    price: 8000\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	if out := run(t, env, "seed", "--file", path); !strings.Contains(out, "seeded 1 courts") {
		t.Errorf("seed --file output = %q", out)
	}

	a := app.New(gdb, app.Config{HoldTTL: env.holdTTL}, clk, nil, nil, nil)
	ctx := context.Background()
	old, err := a.Ledger.Reserve(ctx, domain.Slot{CourtID: "1", Date: "2025-06-01", Time: "18:00"}, domain.Identity{UserID: "u1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	clk.Advance(31 * time.Minute)
	if _, err := a.Ledger.Reserve(ctx, domain.Slot{CourtID: "9", Date: "2025-06-01", Time: "19:00"}, domain.Identity{UserID: "u2"}); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	table := run(t, env, "bookings")
	if !strings.Contains(table, old.ID) || !strings.Contains(table, "pending (expired)") {
		t.Errorf("bookings table missing expired hold:\n%s", table)
	}

	if out := run(t, env, "sweep", "--court", "9"); !strings.Contains(out, "removed 0") {
		t.Errorf("scoped sweep output = %q", out)
	}
	if out := run(t, env, "sweep"); !strings.Contains(out, "removed 1") {
		t.Errorf("sweep output = %q", out)
	}

	var views []domain.ReservationView
	if err := json.Unmarshal([]byte(run(t, env, "bookings", "--json")), &views); err != nil {
		t.Fatalf("bookings --json: %v", err)
	}
	if len(views) != 1 || views[0].CourtName != "Costa Padel" {
		t.Errorf("bookings after sweep = %+v", views)
	}
}
