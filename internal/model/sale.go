package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale statuses.
const (
	SaleOpen          = "OPEN"
	SalePartiallyPaid = "PARTIALLY_PAID"
	SalePaid          = "PAID"
	SaleFinalized     = "FINALIZED"
	SaleCancelled     = "CANCELLED"
	SaleReversed      = "REVERSED"
)

// Sale origins.
const (
	OriginPOS    = "POS"
	OriginOnline = "ONLINE"
)

// PaymentApproved is the only payment status the engine records.
const PaymentApproved = "APPROVED"

// Sale is a customer purchase moving from OPEN to a terminal status.
type Sale struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Code          string          `db:"code" json:"code"`
	CustomerID    *uuid.UUID      `db:"customer_id" json:"customer_id,omitempty"`
	ClerkID       *int64          `db:"clerk_id" json:"clerk_id,omitempty"`
	LocationID    uuid.UUID       `db:"location_id" json:"location_id"`
	Status        string          `db:"status" json:"status"`
	Origin        string          `db:"origin" json:"origin"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountTotal decimal.Decimal `db:"discount_total" json:"discount_total"`
	FreightTotal  decimal.Decimal `db:"freight_total" json:"freight_total"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Note          string          `db:"note" json:"note,omitempty"`
	SoldAt        *time.Time      `db:"sold_at" json:"sold_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	// Loaded by GetSale.
	PaidTotal decimal.Decimal `db:"-" json:"paid_total"`
	Items     []SaleItem      `db:"-" json:"items,omitempty"`
	Coupons   []AppliedCoupon `db:"-" json:"coupons,omitempty"`
	Freight   *Freight        `db:"-" json:"freight,omitempty"`
	Payments  []Payment       `db:"-" json:"payments,omitempty"`
}

// Terminal reports whether the sale can no longer change.
func (s *Sale) Terminal() bool {
	switch s.Status {
	case SaleFinalized, SaleCancelled, SaleReversed:
		return true
	}
	return false
}

// PaymentStatus is the informational status for a sale with the given
// approved payments.
func PaymentStatus(paid, total decimal.Decimal) string {
	switch {
	case paid.IsPositive() && paid.GreaterThanOrEqual(total):
		return SalePaid
	case paid.IsPositive():
		return SalePartiallyPaid
	}
	return SaleOpen
}

// SaleItem is one line of a sale. Every line holds a reservation while the
// sale is open.
type SaleItem struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	SaleID        uuid.UUID       `db:"sale_id" json:"sale_id"`
	ItemID        uuid.UUID       `db:"item_id" json:"item_id"`
	Quantity      int             `db:"quantity" json:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price"`
	ItemDiscount  decimal.Decimal `db:"item_discount" json:"item_discount"`
	LineTotal     decimal.Decimal `db:"line_total" json:"line_total"`
	ReservationID *uuid.UUID      `db:"reservation_id" json:"reservation_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Gross is unit price times quantity, before the line discount.
func (i SaleItem) Gross() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AppliedCoupon is a coupon attached to a sale with the amount it took off.
type AppliedCoupon struct {
	SaleID    uuid.UUID       `db:"sale_id" json:"sale_id"`
	CouponID  uuid.UUID       `db:"coupon_id" json:"coupon_id"`
	Code      string          `db:"code" json:"code"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	AppliedAt time.Time       `db:"applied_at" json:"applied_at"`
}

// Freight holds shipping details of a sale. A sale has at most one.
type Freight struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	SaleID              uuid.UUID       `db:"sale_id" json:"sale_id"`
	Carrier             string          `db:"carrier" json:"carrier,omitempty"`
	OriginPostcode      string          `db:"origin_postcode" json:"origin_postcode,omitempty"`
	DestinationPostcode string          `db:"destination_postcode" json:"destination_postcode,omitempty"`
	Value               decimal.Decimal `db:"value" json:"value"`
	LeadDays            int             `db:"lead_days" json:"lead_days,omitempty"`
	TrackingCode        string          `db:"tracking_code" json:"tracking_code,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// Payment is an approved payment recorded against a sale.
type Payment struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	SaleID     uuid.UUID       `db:"sale_id" json:"sale_id"`
	MethodID   uuid.UUID       `db:"method_id" json:"method_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Status     string          `db:"status" json:"status"`
	Reference  string          `db:"reference" json:"reference,omitempty"`
	RecordedBy *int64          `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
