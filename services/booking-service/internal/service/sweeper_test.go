package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/you/padel-booking/pkg/events"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
	"github.com/you/padel-booking/services/booking-service/internal/repository"
)

func TestSweeper_NeverDeletesConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kept := f.reserve(t, slot, alice)
	if err := f.ledger.Confirm(ctx, kept.ID, alice.UserID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	other := slot
	other.Time = "20:00"
	dropped := f.reserve(t, other, bruno)

	f.clock.Advance(72 * time.Hour)
	n, err := f.sweeper.Sweep(ctx, repository.Scope{})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep removed %d rows, want 1", n)
	}
	if _, err := f.res.ByID(ctx, kept.ID); err != nil {
		t.Errorf("confirmed row swept: %v", err)
	}
	if _, err := f.res.ByID(ctx, dropped.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expired hold kept: %v", err)
	}

	n, err = f.sweeper.Sweep(ctx, repository.Scope{})
	if err != nil || n != 0 {
		t.Errorf("repeat Sweep = (%d, %v), want (0, nil)", n, err)
	}
	if got := f.pub.count(events.RKBookingExpired); got != 1 {
		t.Errorf("booking.expired published %d times, want 1", got)
	}
}

func TestSweeper_WindowBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reserve(t, slot, alice)

	f.clock.Advance(DefaultHoldTTL)
	if n, err := f.sweeper.Sweep(ctx, repository.Scope{}); err != nil || n != 0 {
		t.Fatalf("Sweep at exactly the window = (%d, %v), want (0, nil)", n, err)
	}
	f.clock.Advance(time.Millisecond)
	if n, err := f.sweeper.Sweep(ctx, repository.Scope{}); err != nil || n != 1 {
		t.Fatalf("Sweep past the window = (%d, %v), want (1, nil)", n, err)
	}
}

func TestSweeper_Cutoff(t *testing.T) {
	f := newFixture(t)
	want := f.clock.Now().Add(-30 * time.Minute)
	if got := f.sweeper.Cutoff(); !got.Equal(want) {
		t.Errorf("Cutoff = %v, want %v", got, want)
	}
}

func TestSweeper_RunStops(t *testing.T) {
	f := newFixture(t)

	done := make(chan struct{})
	go func() {
		f.sweeper.Run(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with zero interval did not return")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done = make(chan struct{})
	go func() {
		f.sweeper.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
