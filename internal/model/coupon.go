package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon kinds.
const (
	CouponPercent = "PERCENT"
	CouponAmount  = "AMOUNT"
)

// Coupon is a discount code that can be applied to an open sale.
type Coupon struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Code            string          `db:"code" json:"code"`
	Kind            string          `db:"kind" json:"kind"`
	Value           decimal.Decimal `db:"value" json:"value"`
	MinimumPurchase decimal.Decimal `db:"minimum_purchase" json:"minimum_purchase"`
	Active          bool            `db:"active" json:"active"`
	ValidFrom       *time.Time      `db:"valid_from" json:"valid_from,omitempty"`
	ValidUntil      *time.Time      `db:"valid_until" json:"valid_until,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// ValidAt reports whether the coupon is active and inside its validity window.
func (c *Coupon) ValidAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// Discount returns the amount the coupon takes off the given subtotal,
// rounded to cents.
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Kind {
	case CouponPercent:
		d = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
	default:
		d = c.Value
	}
	return d.Round(2)
}
