package store

import (
	"context"
	"testing"

	"github.com/erazemk/knjigarna/internal/db"
	"github.com/erazemk/knjigarna/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// shelf is one item stocked at one location.
type shelf struct {
	db   *sqlx.DB
	item *model.Item
	loc  *model.Location
}

// newShelf creates an item and a location and puts onHand copies on the shelf.
func newShelf(t *testing.T, onHand int) *shelf {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "The Name of the Rose", "9780156001311", dec("20.00"))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	loc, err := CreateLocation(ctx, database, "Shop floor")
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}

	if onHand > 0 {
		_, err := Adjust(ctx, database, Adjustment{
			ItemID: item.ID, LocationID: loc.ID, Kind: model.MovementIn, Delta: onHand, Reason: "delivery",
		})
		if err != nil {
			t.Fatalf("Adjust: %v", err)
		}
	}
	return &shelf{db: database, item: item, loc: loc}
}

func (s *shelf) level(t *testing.T) *model.StockLevel {
	t.Helper()
	lvl, err := GetStockLevel(context.Background(), s.db, s.item.ID, s.loc.ID)
	if err != nil {
		t.Fatalf("GetStockLevel: %v", err)
	}
	return lvl
}

func (s *shelf) expectLevel(t *testing.T, quantity, reserved int) {
	t.Helper()
	lvl := s.level(t)
	if lvl.Quantity != quantity || lvl.Reserved != reserved {
		t.Errorf("expected quantity %d reserved %d, got quantity %d reserved %d",
			quantity, reserved, lvl.Quantity, lvl.Reserved)
	}
	if lvl.Available() < 0 {
		t.Errorf("available went negative: %d", lvl.Available())
	}
}

// must fails the test on a setup error and returns the value.
func must[T any](t *testing.T, v T, err error) T {
	t.Helper()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return v
}

func noErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
}
