package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/you/padel-booking/pkg/db"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

// Runs concurrent reserve transactions on a real connection pool; set
// TEST_POSTGRES_DSN to run it. The sqlite tests share one connection, so only
// this test has two inserts racing on ux_reservations_live_slot.
func TestReserve_ConcurrentPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	gdb, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	res, courts := NewReservationRepo(gdb), NewCourtRepo(gdb)
	for _, m := range []func() error{courts.Migrate, res.Migrate} {
		if err := m(); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	ctx := context.Background()
	courtID := "race-" + uuid.NewString()
	if err := courts.Upsert(ctx, &domain.Court{ID: courtID, Name: "Race court", City: "Necochea", Price: 9000}); err != nil {
		t.Fatalf("Upsert court: %v", err)
	}
	t.Cleanup(func() {
		gdb.Where("court_id = ?", courtID).Delete(&domain.Reservation{})
		gdb.Where("id = ?", courtID).Delete(&domain.Court{})
	})

	const racers = 16
	slot := domain.Slot{CourtID: courtID, Date: "2025-06-01", Time: "18:30"}
	now := time.Now()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		start     = make(chan struct{})
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			<-start
			_, ok, err := res.Reserve(ctx, slot, user, now, now.Add(-30*time.Minute))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && ok:
				created++
			case errors.Is(err, domain.ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("Reserve(%s) = (%v, %v)", user, ok, err)
			}
		}(fmt.Sprintf("racer-%d", i))
	}
	close(start)
	wg.Wait()

	if created != 1 || conflicts != racers-1 {
		t.Errorf("created = %d, conflicts = %d; want 1 and %d", created, conflicts, racers-1)
	}
	var live int64
	if err := gdb.Model(&domain.Reservation{}).Where("court_id = ?", courtID).Count(&live).Error; err != nil {
		t.Fatal(err)
	}
	if live != 1 {
		t.Errorf("%d rows stored for the slot, want 1", live)
	}
}
