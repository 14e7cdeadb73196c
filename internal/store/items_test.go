package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/knjigarna/internal/db"
	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "Solaris", "9780156027601", dec("14.999"))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Title != "Solaris" {
		t.Errorf("expected title 'Solaris', got %q", item.Title)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if !got.ListPrice.Equal(dec("15.00")) {
		t.Errorf("expected list price rounded to 15.00, got %s", got.ListPrice)
	}

	if _, err := GetItem(ctx, database, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateItemValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateItem(ctx, database, "  ", "", dec("1")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty title, got %v", err)
	}
	if _, err := CreateItem(ctx, database, "Dune", "", dec("-1")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for negative price, got %v", err)
	}
}

func TestListItemsAndLocations(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateItem(ctx, database, "Zorba", "", dec("10"))
	CreateItem(ctx, database, "Anna Karenina", "", dec("12"))
	CreateLocation(ctx, database, "Storeroom")
	CreateLocation(ctx, database, "Annex")

	items, _ := ListItems(ctx, database)
	if len(items) != 2 || items[0].Title != "Anna Karenina" {
		t.Errorf("expected items ordered by title, got %+v", items)
	}

	locations, _ := ListLocations(ctx, database)
	if len(locations) != 2 || locations[0].Name != "Annex" {
		t.Errorf("expected locations ordered by name, got %+v", locations)
	}
}

func TestCreateCoupon(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c, err := CreateCoupon(ctx, database, model.Coupon{Code: " welcome ", Kind: model.CouponAmount, Value: dec("5"), Active: true})
	if err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}
	if c.Code != "WELCOME" {
		t.Errorf("expected code 'WELCOME', got %q", c.Code)
	}

	got, err := GetCouponByCode(ctx, database, "welcome")
	if err != nil {
		t.Fatalf("GetCouponByCode: %v", err)
	}
	if got.ID != c.ID || !got.Active {
		t.Errorf("unexpected coupon %+v", got)
	}

	bad := []model.Coupon{
		{Code: "", Kind: model.CouponAmount, Value: dec("1")},
		{Code: "X", Kind: "FREE", Value: dec("1")},
		{Code: "X", Kind: model.CouponPercent, Value: dec("0")},
		{Code: "X", Kind: model.CouponPercent, Value: dec("100.01")},
		{Code: "X", Kind: model.CouponAmount, Value: dec("1"), MinimumPurchase: dec("-1")},
	}
	for _, b := range bad {
		if _, err := CreateCoupon(ctx, database, b); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("CreateCoupon(%+v): expected ErrInvalidInput, got %v", b, err)
		}
	}

	// A full-price giveaway is the largest percent coupon.
	if _, err := CreateCoupon(ctx, database, model.Coupon{Code: "FREE", Kind: model.CouponPercent, Value: dec("100")}); err != nil {
		t.Errorf("expected 100%% coupon to be accepted, got %v", err)
	}

	if _, err := CreateCoupon(ctx, database, model.Coupon{Code: "WELCOME", Kind: model.CouponAmount, Value: dec("1")}); !errors.Is(err, ErrPersistence) {
		t.Errorf("expected ErrPersistence for duplicate code, got %v", err)
	}
}

func TestCustomersAndPaymentMethods(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c, err := CreateCustomer(ctx, database, "Ana Novak", "ana@example.com")
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if c.Name != "Ana Novak" {
		t.Errorf("expected name 'Ana Novak', got %q", c.Name)
	}

	CreatePaymentMethod(ctx, database, "Card")
	CreatePaymentMethod(ctx, database, "Cash")
	methods, _ := ListPaymentMethods(ctx, database)
	if len(methods) != 2 || methods[0].Name != "Card" {
		t.Errorf("expected 2 methods ordered by name, got %+v", methods)
	}

	if _, err := CreatePaymentMethod(ctx, database, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
