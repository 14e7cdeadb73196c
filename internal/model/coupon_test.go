package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCouponDiscount(t *testing.T) {
	tests := []struct {
		kind     string
		value    string
		subtotal string
		want     string
	}{
		{CouponPercent, "10", "40.00", "4.00"},
		{CouponPercent, "15", "19.99", "3.00"},
		{CouponAmount, "5.50", "40.00", "5.50"},
		{CouponAmount, "50", "40.00", "50"},
	}

	for _, tt := range tests {
		c := &Coupon{Kind: tt.kind, Value: decimal.RequireFromString(tt.value)}
		got := c.Discount(decimal.RequireFromString(tt.subtotal))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s %s of %s = %s, want %s", tt.kind, tt.value, tt.subtotal, got, tt.want)
		}
	}
}

func TestCouponValidAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name   string
		coupon Coupon
		want   bool
	}{
		{"active without window", Coupon{Active: true}, true},
		{"inactive", Coupon{Active: false}, false},
		{"inside window", Coupon{Active: true, ValidFrom: &before, ValidUntil: &after}, true},
		{"not yet valid", Coupon{Active: true, ValidFrom: &after}, false},
		{"expired", Coupon{Active: true, ValidUntil: &before}, false},
	}

	for _, tt := range tests {
		if got := tt.coupon.ValidAt(now); got != tt.want {
			t.Errorf("%s: ValidAt = %v, want %v", tt.name, got, tt.want)
		}
	}
}
