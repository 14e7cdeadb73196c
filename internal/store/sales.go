package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const saleColumns = `id, code, customer_id, clerk_id, location_id, status, origin,
        subtotal, discount_total, freight_total, total, note, sold_at, created_at, updated_at`

const saleItemColumns = `id, sale_id, item_id, quantity, unit_price, item_discount, line_total,
        reservation_id, created_at, updated_at`

// Statuses from which a sale may still be paid, finalized or cancelled.
var liveSaleStatuses = []string{model.SaleOpen, model.SalePartiallyPaid, model.SalePaid}

// NewSale describes a sale to open.
type NewSale struct {
	CustomerID *uuid.UUID
	ClerkID    *int64
	LocationID uuid.UUID
	Origin     string
	Note       string
}

// Line is the content of a sale item.
type Line struct {
	ItemID    uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// total validates the line and returns its line total.
func (l Line) total() (decimal.Decimal, error) {
	if l.Quantity <= 0 {
		return decimal.Zero, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if l.UnitPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: unit price must not be negative", ErrInvalidInput)
	}
	if l.Discount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: discount must not be negative", ErrInvalidInput)
	}
	gross := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	if l.Discount.GreaterThan(gross) {
		return decimal.Zero, fmt.Errorf("%w: discount %s exceeds line amount %s", ErrInvalidInput, l.Discount, gross)
	}
	return gross.Sub(l.Discount).Round(2), nil
}

// PaymentInput describes a payment to record.
type PaymentInput struct {
	MethodID   uuid.UUID
	Amount     decimal.Decimal
	Reference  string
	RecordedBy *int64
}

// newSaleCode returns a short human-readable sale code such as S-1A2B3C4D.
func newSaleCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "S-" + strings.ToUpper(hex[:8])
}

// OpenSale creates a sale in OPEN status with zeroed totals.
func OpenSale(ctx context.Context, db *sqlx.DB, in NewSale) (*model.Sale, error) {
	origin := strings.ToUpper(strings.TrimSpace(in.Origin))
	if origin == "" {
		origin = model.OriginPOS
	}

	var id uuid.UUID
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		ok, err := exists(ctx, tx, "locations", in.LocationID)
		if err != nil {
			return dbErr("checking location", err)
		}
		if !ok {
			return fmt.Errorf("location %s: %w", in.LocationID, ErrNotFound)
		}
		if in.CustomerID != nil {
			ok, err := exists(ctx, tx, "customers", *in.CustomerID)
			if err != nil {
				return dbErr("checking customer", err)
			}
			if !ok {
				return fmt.Errorf("customer %s: %w", *in.CustomerID, ErrNotFound)
			}
		}

		code, err := uniqueSaleCode(ctx, tx)
		if err != nil {
			return err
		}

		at := now()
		id = uuid.New()
		_, err = exec(ctx, tx,
			`INSERT INTO sales (id, code, customer_id, clerk_id, location_id, status, origin,
			                    subtotal, discount_total, freight_total, total, note, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, code, in.CustomerID, in.ClerkID, in.LocationID, model.SaleOpen, origin,
			decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, in.Note, at, at,
		)
		if err != nil {
			return dbErr("opening sale", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetSale(ctx, db, id)
}

func uniqueSaleCode(ctx context.Context, q sqlx.ExtContext) (string, error) {
	for range 5 {
		code := newSaleCode()
		var n int
		if err := get(ctx, q, &n, `SELECT COUNT(*) FROM sales WHERE code = ?`, code); err != nil {
			return "", dbErr("checking sale code", err)
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("generating sale code: %w", ErrConflict)
}

// claimSale locks the sale row for the rest of the transaction when its
// status is one of allowed. Otherwise it returns the stored sale together
// with ErrInvalidState.
func claimSale(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time, allowed ...string) (*model.Sale, error) {
	query, args, err := sqlx.In(`UPDATE sales SET updated_at = ? WHERE id = ? AND status IN (?)`, at, id, allowed)
	if err != nil {
		return nil, fmt.Errorf("building sale lock: %w", err)
	}
	ok, err := execOne(ctx, tx, query, args...)
	if err != nil {
		return nil, dbErr("locking sale", err)
	}

	s, err := getSaleRow(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s, fmt.Errorf("sale %s is %s: %w", s.Code, s.Status, ErrInvalidState)
	}
	return s, nil
}

// AddItem reserves stock for a new line and adds it to an open sale.
func AddItem(ctx context.Context, db *sqlx.DB, saleID uuid.UUID, l Line) (*model.SaleItem, error) {
	lineTotal, err := l.total()
	if err != nil {
		return nil, err
	}

	item := &model.SaleItem{}
	err = withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, model.SaleOpen)
		if err != nil {
			return fmt.Errorf("adding item: %w", err)
		}

		r, err := reserve(ctx, tx, l.ItemID, s.LocationID, l.Quantity, &s.ID, at)
		if err != nil {
			return err
		}

		*item = model.SaleItem{
			ID:            uuid.New(),
			SaleID:        s.ID,
			ItemID:        l.ItemID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice.Round(2),
			ItemDiscount:  l.Discount.Round(2),
			LineTotal:     lineTotal,
			ReservationID: &r.ID,
			CreatedAt:     at,
			UpdatedAt:     at,
		}
		_, err = exec(ctx, tx,
			`INSERT INTO sale_items (`+saleItemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.SaleID, item.ItemID, item.Quantity, item.UnitPrice, item.ItemDiscount,
			item.LineTotal, item.ReservationID, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			return dbErr("adding sale item", err)
		}

		return recalc(ctx, tx, s.ID, at)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem replaces the content of a sale line. Releasing the old hold and
// taking the new one happen in one transaction, so a failed update leaves
// the line and its hold untouched.
func UpdateItem(ctx context.Context, db *sqlx.DB, saleID, saleItemID uuid.UUID, l Line) (*model.SaleItem, error) {
	lineTotal, err := l.total()
	if err != nil {
		return nil, err
	}

	var item *model.SaleItem
	err = withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, model.SaleOpen)
		if err != nil {
			return fmt.Errorf("updating item: %w", err)
		}

		item, err = getSaleItem(ctx, tx, s.ID, saleItemID)
		if err != nil {
			return err
		}

		// The old hold is returned first so the line's own copies count as
		// available; a failed reservation rolls the release back with it.
		if item.ReservationID != nil {
			if err := release(ctx, tx, *item.ReservationID, at); err != nil {
				return err
			}
		}
		r, err := reserve(ctx, tx, l.ItemID, s.LocationID, l.Quantity, &s.ID, at)
		if err != nil {
			return err
		}

		item.ItemID = l.ItemID
		item.Quantity = l.Quantity
		item.UnitPrice = l.UnitPrice.Round(2)
		item.ItemDiscount = l.Discount.Round(2)
		item.LineTotal = lineTotal
		item.ReservationID = &r.ID
		item.UpdatedAt = at
		_, err = exec(ctx, tx,
			`UPDATE sale_items
			 SET item_id = ?, quantity = ?, unit_price = ?, item_discount = ?, line_total = ?,
			     reservation_id = ?, updated_at = ?
			 WHERE id = ?`,
			item.ItemID, item.Quantity, item.UnitPrice, item.ItemDiscount, item.LineTotal,
			item.ReservationID, item.UpdatedAt, item.ID,
		)
		if err != nil {
			return dbErr("updating sale item", err)
		}

		return recalc(ctx, tx, s.ID, at)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem releases a line's reservation and deletes the line.
func RemoveItem(ctx context.Context, db *sqlx.DB, saleID, saleItemID uuid.UUID) error {
	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, model.SaleOpen)
		if err != nil {
			return fmt.Errorf("removing item: %w", err)
		}

		item, err := getSaleItem(ctx, tx, s.ID, saleItemID)
		if err != nil {
			return err
		}
		if item.ReservationID != nil {
			if err := release(ctx, tx, *item.ReservationID, at); err != nil {
				return err
			}
		}

		if _, err := exec(ctx, tx, `DELETE FROM sale_items WHERE id = ?`, item.ID); err != nil {
			return dbErr("removing sale item", err)
		}

		return recalc(ctx, tx, s.ID, at)
	})
}

// ApplyCoupon attaches a coupon to an open sale. The discount is computed
// from the current subtotal; applying the same coupon again replaces it.
func ApplyCoupon(ctx context.Context, db *sqlx.DB, saleID uuid.UUID, code string) (*model.AppliedCoupon, error) {
	var applied *model.AppliedCoupon
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, model.SaleOpen)
		if err != nil {
			return fmt.Errorf("applying coupon: %w", err)
		}

		c, err := getCouponByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("coupon %q does not exist: %w", code, ErrInvalidCoupon)
			}
			return err
		}
		if !c.ValidAt(at) {
			return fmt.Errorf("coupon %q is inactive or outside its validity: %w", c.Code, ErrInvalidCoupon)
		}
		if s.Subtotal.LessThan(c.MinimumPurchase) {
			return fmt.Errorf("coupon %q needs a subtotal of at least %s, sale has %s: %w",
				c.Code, c.MinimumPurchase, s.Subtotal, ErrBusinessRule)
		}

		applied = &model.AppliedCoupon{
			SaleID:    s.ID,
			CouponID:  c.ID,
			Code:      c.Code,
			Amount:    c.Discount(s.Subtotal),
			AppliedAt: at,
		}
		_, err = exec(ctx, tx,
			`INSERT INTO sale_coupons (sale_id, coupon_id, amount, applied_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (sale_id, coupon_id) DO UPDATE
			 SET amount = excluded.amount, applied_at = excluded.applied_at`,
			applied.SaleID, applied.CouponID, applied.Amount, applied.AppliedAt,
		)
		if err != nil {
			return dbErr("applying coupon", err)
		}

		return recalc(ctx, tx, s.ID, at)
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// RemoveCoupon detaches a coupon from an open sale.
func RemoveCoupon(ctx context.Context, db *sqlx.DB, saleID uuid.UUID, code string) error {
	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, model.SaleOpen)
		if err != nil {
			return fmt.Errorf("removing coupon: %w", err)
		}

		c, err := getCouponByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		ok, err := execOne(ctx, tx,
			`DELETE FROM sale_coupons WHERE sale_id = ? AND coupon_id = ?`, s.ID, c.ID,
		)
		if err != nil {
			return dbErr("removing coupon", err)
		}
		if !ok {
			return fmt.Errorf("coupon %q on sale %s: %w", c.Code, s.Code, ErrNotFound)
		}

		return recalc(ctx, tx, s.ID, at)
	})
}

// SetFreight sets or replaces the freight of an open sale.
func SetFreight(ctx context.Context, db *sqlx.DB, saleID uuid.UUID, f model.Freight) (*model.Freight, error) {
	if f.Value.IsNegative() {
		return nil, fmt.Errorf("%w: freight value must not be negative", ErrInvalidInput)
	}
	if f.LeadDays < 0 {
		return nil, fmt.Errorf("%w: lead days must not be negative", ErrInvalidInput)
	}

	out := &model.Freight{}
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, model.SaleOpen)
		if err != nil {
			return fmt.Errorf("setting freight: %w", err)
		}

		_, err = exec(ctx, tx,
			`INSERT INTO sale_freights (id, sale_id, carrier, origin_postcode, destination_postcode,
			                            value, lead_days, tracking_code, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (sale_id) DO UPDATE
			 SET carrier = excluded.carrier, origin_postcode = excluded.origin_postcode,
			     destination_postcode = excluded.destination_postcode, value = excluded.value,
			     lead_days = excluded.lead_days, tracking_code = excluded.tracking_code,
			     created_at = excluded.created_at`,
			uuid.New(), s.ID, f.Carrier, f.OriginPostcode, f.DestinationPostcode,
			f.Value.Round(2), f.LeadDays, f.TrackingCode, at,
		)
		if err != nil {
			return dbErr("setting freight", err)
		}

		if err := recalc(ctx, tx, s.ID, at); err != nil {
			return err
		}

		stored, err := getFreight(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		*out = *stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordPayment appends an approved payment and moves the sale to PAID or
// PARTIALLY_PAID depending on what has been paid so far.
func RecordPayment(ctx context.Context, db *sqlx.DB, saleID uuid.UUID, in PaymentInput) (*model.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
	}

	var p *model.Payment
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, liveSaleStatuses...)
		if err != nil {
			return fmt.Errorf("recording payment: %w", err)
		}

		ok, err := exists(ctx, tx, "payment_methods", in.MethodID)
		if err != nil {
			return dbErr("checking payment method", err)
		}
		if !ok {
			return fmt.Errorf("payment method %s: %w", in.MethodID, ErrNotFound)
		}

		p = &model.Payment{
			ID:         uuid.New(),
			SaleID:     s.ID,
			MethodID:   in.MethodID,
			Amount:     in.Amount.Round(2),
			Status:     model.PaymentApproved,
			Reference:  in.Reference,
			RecordedBy: in.RecordedBy,
			CreatedAt:  at,
		}
		_, err = exec(ctx, tx,
			`INSERT INTO sale_payments (id, sale_id, method_id, amount, status, reference, recorded_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.SaleID, p.MethodID, p.Amount, p.Status, p.Reference, p.RecordedBy, p.CreatedAt,
		)
		if err != nil {
			return dbErr("recording payment", err)
		}

		paid, err := paidTotal(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		_, err = exec(ctx, tx,
			`UPDATE sales SET status = ?, updated_at = ? WHERE id = ?`,
			model.PaymentStatus(paid, s.Total), at, s.ID,
		)
		if err != nil {
			return dbErr("updating sale status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Finalize consumes the reservation of every line, posting one OUT entry per
// line, and marks the sale FINALIZED. Lines whose hold was reclaimed go
// through the availability-checked adjust path instead.
func Finalize(ctx context.Context, db *sqlx.DB, saleID uuid.UUID, by *int64) (*model.Sale, error) {
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, liveSaleStatuses...)
		if err != nil {
			return fmt.Errorf("finalizing sale: %w", err)
		}

		paid, err := paidTotal(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		if paid.LessThan(s.Total) {
			return fmt.Errorf("finalizing sale %s: paid %s of %s: %w", s.Code, paid, s.Total, ErrBusinessRule)
		}

		items, err := saleItems(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			origin := model.Origin{SaleItemID: &it.ID}

			consumed := false
			if it.ReservationID != nil {
				consumed, err = consume(ctx, tx, *it.ReservationID, origin, by, at)
				if err != nil {
					return fmt.Errorf("finalizing sale %s: %w", s.Code, err)
				}
			}
			if consumed {
				continue
			}

			_, err = adjust(ctx, tx, Adjustment{
				ItemID:     it.ItemID,
				LocationID: s.LocationID,
				Kind:       model.MovementOut,
				Delta:      it.Quantity,
				Reason:     model.ReasonSale,
				Origin:     origin,
				By:         by,
			}, at)
			if err != nil {
				return fmt.Errorf("finalizing sale %s: %w", s.Code, err)
			}
		}

		_, err = exec(ctx, tx,
			`UPDATE sales SET status = ?, sold_at = ?, updated_at = ? WHERE id = ?`,
			model.SaleFinalized, at, at, s.ID,
		)
		if err != nil {
			return dbErr("finalizing sale", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetSale(ctx, db, saleID)
}

// Cancel releases every active reservation of the sale and marks it
// CANCELLED. A finalized sale has to be reversed instead.
func Cancel(ctx context.Context, db *sqlx.DB, saleID uuid.UUID) (*model.Sale, error) {
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, liveSaleStatuses...)
		if err != nil {
			if s != nil && (s.Status == model.SaleFinalized || s.Status == model.SaleReversed) {
				return fmt.Errorf("cancelling sale %s: sale is %s, reverse it instead: %w", s.Code, s.Status, ErrConflict)
			}
			return fmt.Errorf("cancelling sale: %w", err)
		}

		var held []uuid.UUID
		err = sel(ctx, tx, &held,
			`SELECT id FROM reservations WHERE sale_id = ? AND status = ?`,
			s.ID, model.ReservationActive,
		)
		if err != nil {
			return dbErr("listing sale reservations", err)
		}
		for _, id := range held {
			if err := release(ctx, tx, id, at); err != nil {
				return fmt.Errorf("cancelling sale %s: %w", s.Code, err)
			}
		}

		_, err = exec(ctx, tx,
			`UPDATE sales SET status = ?, updated_at = ? WHERE id = ?`,
			model.SaleCancelled, at, s.ID,
		)
		if err != nil {
			return dbErr("cancelling sale", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetSale(ctx, db, saleID)
}

// Reverse returns the stock of a finalized sale with one IN entry per line
// and marks it REVERSED. Reserved counters are not touched.
func Reverse(ctx context.Context, db *sqlx.DB, saleID uuid.UUID, by *int64) (*model.Sale, error) {
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		s, err := claimSale(ctx, tx, saleID, at, model.SaleFinalized)
		if err != nil {
			if s != nil {
				return fmt.Errorf("reversing sale %s: only finalized sales can be reversed, sale is %s: %w", s.Code, s.Status, ErrConflict)
			}
			return fmt.Errorf("reversing sale: %w", err)
		}

		items, err := saleItems(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			_, err := adjust(ctx, tx, Adjustment{
				ItemID:     it.ItemID,
				LocationID: s.LocationID,
				Kind:       model.MovementIn,
				Delta:      it.Quantity,
				Reason:     model.ReasonSaleReversal,
				Origin:     model.Origin{SaleItemID: &it.ID},
				By:         by,
			}, at)
			if err != nil {
				return fmt.Errorf("reversing sale %s: %w", s.Code, err)
			}
		}

		_, err = exec(ctx, tx,
			`UPDATE sales SET status = ?, updated_at = ? WHERE id = ?`,
			model.SaleReversed, at, s.ID,
		)
		if err != nil {
			return dbErr("reversing sale", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetSale(ctx, db, saleID)
}

// recalc recomputes the money fields of a sale from its lines, coupons and
// freight. Running it twice gives the same result.
func recalc(ctx context.Context, q sqlx.ExtContext, saleID uuid.UUID, at time.Time) error {
	items, err := saleItems(ctx, q, saleID)
	if err != nil {
		return err
	}
	subtotal, itemDiscounts := decimal.Zero, decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Gross())
		itemDiscounts = itemDiscounts.Add(it.ItemDiscount)
	}

	var amounts []decimal.Decimal
	if err := sel(ctx, q, &amounts, `SELECT amount FROM sale_coupons WHERE sale_id = ?`, saleID); err != nil {
		return dbErr("summing coupons", err)
	}
	discount := decimal.Sum(decimal.Zero, amounts...)

	var freights []decimal.Decimal
	if err := sel(ctx, q, &freights, `SELECT value FROM sale_freights WHERE sale_id = ?`, saleID); err != nil {
		return dbErr("reading freight", err)
	}
	freight := decimal.Sum(decimal.Zero, freights...)

	total := subtotal.Sub(itemDiscounts).Sub(discount).Add(freight)
	if total.IsNegative() {
		total = decimal.Zero
	}

	_, err = exec(ctx, q,
		`UPDATE sales SET subtotal = ?, discount_total = ?, freight_total = ?, total = ?, updated_at = ?
		 WHERE id = ?`,
		subtotal.Round(2), discount.Round(2), freight.Round(2), total.Round(2), at, saleID,
	)
	if err != nil {
		return dbErr("updating sale totals", err)
	}
	return nil
}

func paidTotal(ctx context.Context, q sqlx.ExtContext, saleID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := sel(ctx, q, &amounts,
		`SELECT amount FROM sale_payments WHERE sale_id = ? AND status = ?`,
		saleID, model.PaymentApproved,
	)
	if err != nil {
		return decimal.Zero, dbErr("summing payments", err)
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// GetSale returns a sale with its lines, coupons, freight and payments.
func GetSale(ctx context.Context, db *sqlx.DB, id uuid.UUID) (*model.Sale, error) {
	s, err := getSaleRow(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := loadSaleDetails(ctx, db, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSaleByCode returns a sale by its human-readable code.
func GetSaleByCode(ctx context.Context, db *sqlx.DB, code string) (*model.Sale, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	s := &model.Sale{}
	err := get(ctx, db, s, `SELECT `+saleColumns+` FROM sales WHERE code = ?`, code)
	if isNoRows(err) {
		return nil, fmt.Errorf("sale %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting sale", err)
	}
	if err := loadSaleDetails(ctx, db, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSales returns sales newest first, optionally filtered by status.
func ListSales(ctx context.Context, db *sqlx.DB, status string) ([]model.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE 1=1`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	var sales []model.Sale
	if err := sel(ctx, db, &sales, query, args...); err != nil {
		return nil, dbErr("listing sales", err)
	}
	return sales, nil
}

func getSaleRow(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*model.Sale, error) {
	s := &model.Sale{}
	err := get(ctx, q, s, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, fmt.Errorf("sale %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting sale", err)
	}
	return s, nil
}

func loadSaleDetails(ctx context.Context, q sqlx.ExtContext, s *model.Sale) error {
	var err error
	if s.Items, err = saleItems(ctx, q, s.ID); err != nil {
		return err
	}

	err = sel(ctx, q, &s.Coupons,
		`SELECT sc.sale_id, sc.coupon_id, c.code, sc.amount, sc.applied_at
		 FROM sale_coupons sc
		 JOIN coupons c ON c.id = sc.coupon_id
		 WHERE sc.sale_id = ?
		 ORDER BY sc.applied_at`,
		s.ID,
	)
	if err != nil {
		return dbErr("listing sale coupons", err)
	}

	f, err := getFreight(ctx, q, s.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	s.Freight = f

	err = sel(ctx, q, &s.Payments,
		`SELECT id, sale_id, method_id, amount, status, reference, recorded_by, created_at
		 FROM sale_payments WHERE sale_id = ? ORDER BY created_at`,
		s.ID,
	)
	if err != nil {
		return dbErr("listing sale payments", err)
	}

	s.PaidTotal = decimal.Zero
	for _, p := range s.Payments {
		if p.Status == model.PaymentApproved {
			s.PaidTotal = s.PaidTotal.Add(p.Amount)
		}
	}
	return nil
}

func saleItems(ctx context.Context, q sqlx.ExtContext, saleID uuid.UUID) ([]model.SaleItem, error) {
	var items []model.SaleItem
	err := sel(ctx, q, &items,
		`SELECT `+saleItemColumns+` FROM sale_items WHERE sale_id = ? ORDER BY created_at, id`,
		saleID,
	)
	if err != nil {
		return nil, dbErr("listing sale items", err)
	}
	return items, nil
}

func getSaleItem(ctx context.Context, q sqlx.ExtContext, saleID, id uuid.UUID) (*model.SaleItem, error) {
	it := &model.SaleItem{}
	err := get(ctx, q, it,
		`SELECT `+saleItemColumns+` FROM sale_items WHERE id = ? AND sale_id = ?`, id, saleID,
	)
	if isNoRows(err) {
		return nil, fmt.Errorf("sale item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting sale item", err)
	}
	return it, nil
}

func getFreight(ctx context.Context, q sqlx.ExtContext, saleID uuid.UUID) (*model.Freight, error) {
	f := &model.Freight{}
	err := get(ctx, q, f,
		`SELECT id, sale_id, carrier, origin_postcode, destination_postcode, value, lead_days,
		        tracking_code, created_at
		 FROM sale_freights WHERE sale_id = ?`,
		saleID,
	)
	if isNoRows(err) {
		return nil, fmt.Errorf("freight of sale %s: %w", saleID, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting freight", err)
	}
	return f, nil
}
