package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const couponColumns = `id, code, kind, value, minimum_purchase, active, valid_from, valid_until, created_at`

// CreateCoupon stores a new coupon. Codes are kept upper-case.
func CreateCoupon(ctx context.Context, db *sqlx.DB, c model.Coupon) (*model.Coupon, error) {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	if c.Kind != model.CouponPercent && c.Kind != model.CouponAmount {
		return nil, fmt.Errorf("%w: unknown coupon kind %q", ErrInvalidInput, c.Kind)
	}
	if !c.Value.IsPositive() {
		return nil, fmt.Errorf("%w: coupon value must be positive", ErrInvalidInput)
	}
	if c.Kind == model.CouponPercent && c.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: percent coupon cannot exceed 100", ErrInvalidInput)
	}
	if c.MinimumPurchase.IsNegative() {
		return nil, fmt.Errorf("%w: minimum purchase must not be negative", ErrInvalidInput)
	}
	if c.ValidFrom != nil && c.ValidUntil != nil && c.ValidUntil.Before(*c.ValidFrom) {
		return nil, fmt.Errorf("%w: coupon ends before it starts", ErrInvalidInput)
	}

	c.ID = uuid.New()
	c.CreatedAt = now()
	_, err := exec(ctx, db,
		`INSERT INTO coupons (`+couponColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Code, c.Kind, c.Value, c.MinimumPurchase, c.Active, c.ValidFrom, c.ValidUntil, c.CreatedAt,
	)
	if err != nil {
		return nil, dbErr("creating coupon", err)
	}
	return &c, nil
}

// GetCouponByCode returns a coupon by its code.
func GetCouponByCode(ctx context.Context, db *sqlx.DB, code string) (*model.Coupon, error) {
	return getCouponByCode(ctx, db, code)
}

func getCouponByCode(ctx context.Context, q sqlx.ExtContext, code string) (*model.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	c := &model.Coupon{}
	err := get(ctx, q, c, `SELECT `+couponColumns+` FROM coupons WHERE code = ?`, code)
	if isNoRows(err) {
		return nil, fmt.Errorf("coupon %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting coupon", err)
	}
	return c, nil
}

// ListCoupons returns all coupons ordered by code.
func ListCoupons(ctx context.Context, db *sqlx.DB) ([]model.Coupon, error) {
	var coupons []model.Coupon
	if err := sel(ctx, db, &coupons, `SELECT `+couponColumns+` FROM coupons ORDER BY code`); err != nil {
		return nil, dbErr("listing coupons", err)
	}
	return coupons, nil
}
