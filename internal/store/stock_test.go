package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
)

func TestReserveUntilSoldOut(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	if _, err := Reserve(ctx, s.db, s.item.ID, s.loc.ID, 10, nil); err != nil {
		t.Fatalf("Reserve 10: %v", err)
	}

	_, err := Reserve(ctx, s.db, s.item.ID, s.loc.ID, 1, nil)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	s.expectLevel(t, 10, 10)
}

func TestReserveThenReleaseRestoresReserved(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 2, nil))
	before := s.level(t).Reserved

	r, err := Reserve(ctx, s.db, s.item.ID, s.loc.ID, 5, nil)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if r.Status != model.ReservationActive {
		t.Errorf("expected ACTIVE, got %s", r.Status)
	}
	if !r.ExpiresAt.After(time.Now()) {
		t.Errorf("expected expiry in the future, got %v", r.ExpiresAt)
	}

	if err := Release(ctx, s.db, r.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := s.level(t).Reserved; got != before {
		t.Errorf("expected reserved %d after release, got %d", before, got)
	}
}

func TestReleaseTwiceIsNoOp(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	r := must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 4, nil))
	must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 3, nil))

	if err := Release(ctx, s.db, r.ID); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := Release(ctx, s.db, r.ID); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	s.expectLevel(t, 10, 3)
}

func TestReleaseMissingReservation(t *testing.T) {
	s := newShelf(t, 1)

	err := Release(context.Background(), s.db, uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConsumeDecrementsBothCounters(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	r := must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 3, nil))
	origin := model.Origin{ReturnItemID: ptr(uuid.New())}

	if err := Consume(ctx, s.db, r.ID, origin, nil); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	s.expectLevel(t, 7, 0)

	got := must(t, GetReservation(ctx, s.db, r.ID))
	if got.Status != model.ReservationConsumed {
		t.Errorf("expected CONSUMED, got %s", got.Status)
	}

	movements := must(t, ListMovements(ctx, s.db, MovementFilter{ItemID: &s.item.ID}))
	last := movements[len(movements)-1]
	if last.Kind != model.MovementOut || last.Quantity != 3 || last.Delta != -3 {
		t.Errorf("unexpected ledger entry %+v", last)
	}
	if last.ReturnItemID == nil || *last.ReturnItemID != *origin.ReturnItemID {
		t.Errorf("expected movement tagged with origin, got %+v", last.Origin)
	}

	// Consuming again changes nothing.
	if err := Consume(ctx, s.db, r.ID, origin, nil); err != nil {
		t.Fatalf("second Consume: %v", err)
	}
	s.expectLevel(t, 7, 0)
	again := must(t, ListMovements(ctx, s.db, MovementFilter{ItemID: &s.item.ID}))
	if len(again) != len(movements) {
		t.Errorf("expected %d movements, got %d", len(movements), len(again))
	}
}

func TestConsumeMissingReservation(t *testing.T) {
	s := newShelf(t, 1)

	err := Consume(context.Background(), s.db, uuid.New(), model.Origin{}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTerminalReservationNeverChanges(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	released := must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 2, nil))
	noErr(t, Release(ctx, s.db, released.ID))
	if err := Consume(ctx, s.db, released.ID, model.Origin{}, nil); err != nil {
		t.Fatalf("Consume on cancelled: %v", err)
	}

	consumed := must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 2, nil))
	noErr(t, Consume(ctx, s.db, consumed.ID, model.Origin{}, nil))
	if err := Release(ctx, s.db, consumed.ID); err != nil {
		t.Fatalf("Release on consumed: %v", err)
	}

	r1 := must(t, GetReservation(ctx, s.db, released.ID))
	r2 := must(t, GetReservation(ctx, s.db, consumed.ID))
	if r1.Status != model.ReservationCancelled {
		t.Errorf("expected CANCELLED, got %s", r1.Status)
	}
	if r2.Status != model.ReservationConsumed {
		t.Errorf("expected CONSUMED, got %s", r2.Status)
	}
	s.expectLevel(t, 8, 0)
}

func TestAdjustOutKeepsReservedCovered(t *testing.T) {
	s := newShelf(t, 5)
	ctx := context.Background()

	must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 3, nil))

	_, err := Adjust(ctx, s.db, Adjustment{
		ItemID: s.item.ID, LocationID: s.loc.ID, Kind: model.MovementOut, Delta: 3, Reason: "damaged",
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	s.expectLevel(t, 5, 3)

	movements := must(t, ListMovements(ctx, s.db, MovementFilter{ItemID: &s.item.ID}))
	if len(movements) != 1 {
		t.Errorf("expected only the delivery in the ledger, got %d entries", len(movements))
	}

	m, err := Adjust(ctx, s.db, Adjustment{
		ItemID: s.item.ID, LocationID: s.loc.ID, Kind: model.MovementOut, Delta: 2, Reason: "damaged",
	})
	if err != nil {
		t.Fatalf("Adjust OUT 2: %v", err)
	}
	if m.Delta != -2 || m.Quantity != 2 {
		t.Errorf("expected delta -2 magnitude 2, got %d and %d", m.Delta, m.Quantity)
	}
	s.expectLevel(t, 3, 3)
}

func TestAdjustNegativeAdjust(t *testing.T) {
	s := newShelf(t, 5)
	ctx := context.Background()

	m, err := Adjust(ctx, s.db, Adjustment{
		ItemID: s.item.ID, LocationID: s.loc.ID, Kind: model.MovementAdjust, Delta: -4, Reason: "shrinkage",
	})
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if m.Kind != model.MovementAdjust || m.Quantity != 4 || m.Delta != -4 {
		t.Errorf("unexpected movement %+v", m)
	}
	s.expectLevel(t, 1, 0)

	_, err = Adjust(ctx, s.db, Adjustment{
		ItemID: s.item.ID, LocationID: s.loc.ID, Kind: model.MovementAdjust, Delta: -2, Reason: "shrinkage",
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestAdjustRejectsBadInput(t *testing.T) {
	s := newShelf(t, 5)
	ctx := context.Background()

	bad := []Adjustment{
		{Kind: model.MovementIn, Delta: 0, Reason: "x"},
		{Kind: model.MovementIn, Delta: -1, Reason: "x"},
		{Kind: model.MovementOut, Delta: -1, Reason: "x"},
		{Kind: model.MovementAdjust, Delta: 0, Reason: "x"},
		{Kind: "TRANSFER", Delta: 1, Reason: "x"},
		{Kind: model.MovementIn, Delta: 1, Reason: ""},
	}
	for _, a := range bad {
		a.ItemID, a.LocationID = s.item.ID, s.loc.ID
		if _, err := Adjust(ctx, s.db, a); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Adjust(%+v): expected ErrInvalidInput, got %v", a, err)
		}
	}
}

func TestAdjustTracksNewPair(t *testing.T) {
	s := newShelf(t, 0)
	ctx := context.Background()

	if _, err := GetStockLevel(ctx, s.db, s.item.ID, s.loc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected untracked pair, got %v", err)
	}

	must(t, Adjust(ctx, s.db, Adjustment{
		ItemID: s.item.ID, LocationID: s.loc.ID, Kind: model.MovementIn, Delta: 4, Reason: "delivery",
	}))
	s.expectLevel(t, 4, 0)
}

func TestEnsureTrackedIsIdempotent(t *testing.T) {
	s := newShelf(t, 6)
	ctx := context.Background()

	if err := EnsureTracked(ctx, s.db, s.item.ID, s.loc.ID); err != nil {
		t.Fatalf("EnsureTracked: %v", err)
	}
	s.expectLevel(t, 6, 0)

	err := EnsureTracked(ctx, s.db, uuid.New(), s.loc.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown item, got %v", err)
	}
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	// Two requests that together exceed what is available.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, qty := range []int{6, 7} {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := Reserve(ctx, s.db, s.item.ID, s.loc.ID, qty, nil)
			errs <- err
		}(qty)
	}
	wg.Wait()
	close(errs)

	succeeded, short := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || short != 1 {
		t.Fatalf("expected one success and one ErrInsufficientStock, got %d and %d", succeeded, short)
	}

	reserved := s.level(t).Reserved
	if reserved != 6 && reserved != 7 {
		t.Errorf("expected reserved to reflect the single winner, got %d", reserved)
	}
}

func TestConcurrentSingleCopyReservations(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Reserve(ctx, s.db, s.item.ID, s.loc.ID, 1, nil)
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if won != 10 {
		t.Errorf("expected exactly 10 reservations, got %d", won)
	}
	s.expectLevel(t, 10, 10)
}

func TestReleaseExpiredReservations(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	r := must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 4, nil))
	kept := must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 1, nil))
	noErr(t, Release(ctx, s.db, kept.ID))

	n, err := ReleaseExpiredReservations(ctx, s.db, time.Now())
	if err != nil {
		t.Fatalf("ReleaseExpiredReservations: %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing expired yet, released %d", n)
	}

	n, err = ReleaseExpiredReservations(ctx, s.db, time.Now().Add(ReservationTTL+time.Minute))
	if err != nil {
		t.Fatalf("ReleaseExpiredReservations: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 released, got %d", n)
	}

	got := must(t, GetReservation(ctx, s.db, r.ID))
	if got.Status != model.ReservationCancelled {
		t.Errorf("expected CANCELLED, got %s", got.Status)
	}
	s.expectLevel(t, 10, 0)
}

func TestLowStockAndMinimum(t *testing.T) {
	s := newShelf(t, 5)
	ctx := context.Background()

	low := must(t, ListLowStock(ctx, s.db, nil))
	if len(low) != 0 {
		t.Fatalf("expected no low stock, got %d", len(low))
	}

	if err := SetMinimum(ctx, s.db, s.item.ID, s.loc.ID, 3); err != nil {
		t.Fatalf("SetMinimum: %v", err)
	}
	must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 2, nil))

	low = must(t, ListLowStock(ctx, s.db, &s.loc.ID))
	if len(low) != 1 {
		t.Fatalf("expected 1 low stock entry, got %d", len(low))
	}
	if low[0].ItemTitle != s.item.Title || low[0].Minimum != 3 {
		t.Errorf("unexpected entry %+v", low[0])
	}

	if err := SetMinimum(ctx, s.db, s.item.ID, s.loc.ID, -1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	all := must(t, ListStock(ctx, s.db, nil))
	if len(all) != 1 {
		t.Errorf("expected 1 stock level, got %d", len(all))
	}
}

func TestMovementsAreAppendOnly(t *testing.T) {
	s := newShelf(t, 5)
	ctx := context.Background()

	if _, err := s.db.ExecContext(ctx, `UPDATE movements SET quantity = 1`); err == nil {
		t.Error("expected update of movements to fail")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM movements`); err == nil {
		t.Error("expected delete of movements to fail")
	}

	movements := must(t, ListMovements(ctx, s.db, MovementFilter{}))
	if len(movements) != 1 || movements[0].Quantity != 5 {
		t.Errorf("expected the original delivery entry, got %+v", movements)
	}
}

func ptr[T any](v T) *T {
	return &v
}
