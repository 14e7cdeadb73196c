package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
)

func TestCloseCountPostsAdjustment(t *testing.T) {
	s := newShelf(t, 50)
	ctx := context.Background()

	c, err := OpenCount(ctx, s.db, s.loc.ID, "spring count", nil)
	if err != nil {
		t.Fatalf("OpenCount: %v", err)
	}
	if c.Status != model.CountOpen {
		t.Errorf("expected OPEN, got %s", c.Status)
	}

	ci, err := RecordCount(ctx, s.db, c.ID, s.item.ID, 47)
	if err != nil {
		t.Fatalf("RecordCount: %v", err)
	}
	if ci.SystemQuantity != 50 || ci.CountedQuantity != 47 {
		t.Errorf("expected snapshot 50 counted 47, got %d and %d", ci.SystemQuantity, ci.CountedQuantity)
	}

	closed, err := CloseCount(ctx, s.db, c.ID, nil)
	if err != nil {
		t.Fatalf("CloseCount: %v", err)
	}
	if closed.Status != model.CountClosed || closed.ClosedAt == nil {
		t.Errorf("expected CLOSED with closed_at, got %s %v", closed.Status, closed.ClosedAt)
	}
	s.expectLevel(t, 47, 0)

	movements := must(t, ListMovements(ctx, s.db, MovementFilter{CountID: &c.ID}))
	if len(movements) != 1 {
		t.Fatalf("expected 1 count movement, got %d", len(movements))
	}
	m := movements[0]
	if m.Kind != model.MovementAdjust || m.Delta != -3 || m.Quantity != 3 || m.Reason != model.ReasonInventoryCount {
		t.Errorf("unexpected movement %+v", m)
	}
}

func TestCloseCountTwiceFails(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	c := must(t, OpenCount(ctx, s.db, s.loc.ID, "", nil))
	must(t, RecordCount(ctx, s.db, c.ID, s.item.ID, 12))

	if _, err := CloseCount(ctx, s.db, c.ID, nil); err != nil {
		t.Fatalf("first CloseCount: %v", err)
	}
	_, err := CloseCount(ctx, s.db, c.ID, nil)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	s.expectLevel(t, 12, 0)
	movements := must(t, ListMovements(ctx, s.db, MovementFilter{CountID: &c.ID}))
	if len(movements) != 1 {
		t.Errorf("expected deltas posted once, got %d movements", len(movements))
	}
}

func TestRecountKeepsSnapshot(t *testing.T) {
	s := newShelf(t, 50)
	ctx := context.Background()

	c := must(t, OpenCount(ctx, s.db, s.loc.ID, "", nil))
	must(t, RecordCount(ctx, s.db, c.ID, s.item.ID, 45))

	// A delivery arrives while counting.
	must(t, Adjust(ctx, s.db, Adjustment{
		ItemID: s.item.ID, LocationID: s.loc.ID, Kind: model.MovementIn, Delta: 5, Reason: "delivery",
	}))

	ci, err := RecordCount(ctx, s.db, c.ID, s.item.ID, 47)
	if err != nil {
		t.Fatalf("RecordCount: %v", err)
	}
	if ci.SystemQuantity != 50 || ci.CountedQuantity != 47 {
		t.Errorf("expected snapshot 50 counted 47, got %d and %d", ci.SystemQuantity, ci.CountedQuantity)
	}

	must(t, CloseCount(ctx, s.db, c.ID, nil))
	s.expectLevel(t, 52, 0)
}

func TestRecordCountRules(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	c := must(t, OpenCount(ctx, s.db, s.loc.ID, "", nil))

	if _, err := RecordCount(ctx, s.db, c.ID, s.item.ID, -1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := RecordCount(ctx, s.db, uuid.New(), s.item.ID, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown count, got %v", err)
	}
	if _, err := RecordCount(ctx, s.db, c.ID, uuid.New(), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown item, got %v", err)
	}

	must(t, CloseCount(ctx, s.db, c.ID, nil))
	if _, err := RecordCount(ctx, s.db, c.ID, s.item.ID, 3); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after close, got %v", err)
	}
}

func TestCloseCountIsAllOrNothing(t *testing.T) {
	s := newShelf(t, 10)
	ctx := context.Background()

	other := must(t, CreateItem(ctx, s.db, "Foucault's Pendulum", "", dec("18.00")))
	must(t, Adjust(ctx, s.db, Adjustment{
		ItemID: other.ID, LocationID: s.loc.ID, Kind: model.MovementIn, Delta: 4, Reason: "delivery",
	}))

	// Nine copies are held, so a count of five cannot be applied.
	must(t, Reserve(ctx, s.db, s.item.ID, s.loc.ID, 9, nil))

	c := must(t, OpenCount(ctx, s.db, s.loc.ID, "", nil))
	must(t, RecordCount(ctx, s.db, c.ID, other.ID, 6))
	must(t, RecordCount(ctx, s.db, c.ID, s.item.ID, 5))

	_, err := CloseCount(ctx, s.db, c.ID, nil)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got := must(t, GetCount(ctx, s.db, c.ID))
	if got.Status != model.CountOpen {
		t.Errorf("expected count to stay OPEN, got %s", got.Status)
	}
	if len(got.Items) != 2 {
		t.Errorf("expected 2 counted items, got %d", len(got.Items))
	}
	s.expectLevel(t, 10, 9)

	lvl := must(t, GetStockLevel(ctx, s.db, other.ID, s.loc.ID))
	if lvl.Quantity != 4 {
		t.Errorf("expected other item untouched at 4, got %d", lvl.Quantity)
	}
	movements := must(t, ListMovements(ctx, s.db, MovementFilter{CountID: &c.ID}))
	if len(movements) != 0 {
		t.Errorf("expected no count movements, got %d", len(movements))
	}
}

func TestCountOfUntrackedItem(t *testing.T) {
	s := newShelf(t, 0)
	ctx := context.Background()

	c := must(t, OpenCount(ctx, s.db, s.loc.ID, "", nil))
	ci := must(t, RecordCount(ctx, s.db, c.ID, s.item.ID, 2))
	if ci.SystemQuantity != 0 {
		t.Errorf("expected snapshot 0, got %d", ci.SystemQuantity)
	}

	if _, err := CloseCount(ctx, s.db, c.ID, nil); err != nil {
		t.Fatalf("CloseCount: %v", err)
	}
	s.expectLevel(t, 2, 0)

	counts := must(t, ListCounts(ctx, s.db, &s.loc.ID))
	if len(counts) != 1 {
		t.Errorf("expected 1 count, got %d", len(counts))
	}
}

func TestOpenCountUnknownLocation(t *testing.T) {
	s := newShelf(t, 0)

	_, err := OpenCount(context.Background(), s.db, uuid.New(), "", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
