package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReservationTTL is how long a reservation holds stock before a sweep may
// reclaim it.
const ReservationTTL = time.Hour

// Adjustment is a direct change of quantity on hand.
// Delta is positive for IN and OUT; for ADJUST it is signed and non-zero.
type Adjustment struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
	Kind       string
	Delta      int
	Reason     string
	Origin     model.Origin
	By         *int64
}

// signed returns the effect of the adjustment on quantity on hand.
func (a Adjustment) signed() (int, error) {
	switch a.Kind {
	case model.MovementIn:
		if a.Delta <= 0 {
			return 0, fmt.Errorf("%w: IN quantity must be positive", ErrInvalidInput)
		}
		return a.Delta, nil
	case model.MovementOut:
		if a.Delta <= 0 {
			return 0, fmt.Errorf("%w: OUT quantity must be positive", ErrInvalidInput)
		}
		return -a.Delta, nil
	case model.MovementAdjust:
		if a.Delta == 0 {
			return 0, fmt.Errorf("%w: adjustment must be non-zero", ErrInvalidInput)
		}
		return a.Delta, nil
	}
	return 0, fmt.Errorf("%w: unknown movement kind %q", ErrInvalidInput, a.Kind)
}

// EnsureTracked creates a zero stock level for the pair if there is none.
func EnsureTracked(ctx context.Context, db *sqlx.DB, itemID, locationID uuid.UUID) error {
	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		return ensureTracked(ctx, tx, itemID, locationID, now())
	})
}

func ensureTracked(ctx context.Context, q sqlx.ExtContext, itemID, locationID uuid.UUID, at time.Time) error {
	ok, err := exists(ctx, q, "items", itemID)
	if err != nil {
		return dbErr("checking item", err)
	}
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	ok, err = exists(ctx, q, "locations", locationID)
	if err != nil {
		return dbErr("checking location", err)
	}
	if !ok {
		return fmt.Errorf("location %s: %w", locationID, ErrNotFound)
	}

	_, err = exec(ctx, q,
		`INSERT INTO stock_levels (item_id, location_id, quantity, reserved, minimum, updated_at)
		 VALUES (?, ?, 0, 0, 0, ?)
		 ON CONFLICT (item_id, location_id) DO NOTHING`,
		itemID, locationID, at,
	)
	if err != nil {
		return dbErr("tracking stock level", err)
	}
	return nil
}

// Adjust applies a direct quantity change and records it in the ledger.
func Adjust(ctx context.Context, db *sqlx.DB, a Adjustment) (*model.Movement, error) {
	var m *model.Movement
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		var err error
		m, err = adjust(ctx, tx, a, now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func adjust(ctx context.Context, q sqlx.ExtContext, a Adjustment, at time.Time) (*model.Movement, error) {
	delta, err := a.signed()
	if err != nil {
		return nil, err
	}
	if a.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}

	if err := ensureTracked(ctx, q, a.ItemID, a.LocationID, at); err != nil {
		return nil, err
	}

	magnitude := delta
	if delta > 0 {
		_, err = exec(ctx, q,
			`UPDATE stock_levels SET quantity = quantity + ?, updated_at = ?
			 WHERE item_id = ? AND location_id = ?`,
			delta, at, a.ItemID, a.LocationID,
		)
		if err != nil {
			return nil, dbErr("increasing stock", err)
		}
	} else {
		magnitude = -delta
		// Decrease only if it leaves reserved stock covered.
		ok, err := execOne(ctx, q,
			`UPDATE stock_levels SET quantity = quantity - ?, updated_at = ?
			 WHERE item_id = ? AND location_id = ? AND quantity - reserved >= ?`,
			magnitude, at, a.ItemID, a.LocationID, magnitude,
		)
		if err != nil {
			return nil, dbErr("decreasing stock", err)
		}
		if !ok {
			return nil, fmt.Errorf("removing %d of item %s at %s: %w",
				magnitude, a.ItemID, a.LocationID, ErrInsufficientStock)
		}
	}

	m := &model.Movement{
		ItemID:     a.ItemID,
		LocationID: a.LocationID,
		Kind:       a.Kind,
		Quantity:   magnitude,
		Delta:      delta,
		Reason:     a.Reason,
		Origin:     a.Origin,
		CreatedBy:  a.By,
		CreatedAt:  at,
	}
	if err := appendMovement(ctx, q, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Reserve holds quantity of an item at a location, optionally for a sale.
func Reserve(ctx context.Context, db *sqlx.DB, itemID, locationID uuid.UUID, quantity int, saleID *uuid.UUID) (*model.Reservation, error) {
	var r *model.Reservation
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		var err error
		r, err = reserve(ctx, tx, itemID, locationID, quantity, saleID, now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func reserve(ctx context.Context, q sqlx.ExtContext, itemID, locationID uuid.UUID, quantity int, saleID *uuid.UUID, at time.Time) (*model.Reservation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: reservation quantity must be positive", ErrInvalidInput)
	}
	if err := ensureTracked(ctx, q, itemID, locationID, at); err != nil {
		return nil, err
	}

	// Check and increment in one statement.
	ok, err := execOne(ctx, q,
		`UPDATE stock_levels SET reserved = reserved + ?, updated_at = ?
		 WHERE item_id = ? AND location_id = ? AND quantity - reserved >= ?`,
		quantity, at, itemID, locationID, quantity,
	)
	if err != nil {
		return nil, dbErr("reserving stock", err)
	}
	if !ok {
		return nil, fmt.Errorf("reserving %d of item %s at %s: %w",
			quantity, itemID, locationID, ErrInsufficientStock)
	}

	r := &model.Reservation{
		ID:         uuid.New(),
		ItemID:     itemID,
		LocationID: locationID,
		SaleID:     saleID,
		Quantity:   quantity,
		Status:     model.ReservationActive,
		ExpiresAt:  at.Add(ReservationTTL),
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	_, err = exec(ctx, q,
		`INSERT INTO reservations (id, item_id, location_id, sale_id, quantity, status, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ItemID, r.LocationID, r.SaleID, r.Quantity, r.Status, r.ExpiresAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, dbErr("creating reservation", err)
	}
	return r, nil
}

// Release returns a reservation's quantity to availability. Releasing a
// consumed or cancelled reservation does nothing.
func Release(ctx context.Context, db *sqlx.DB, id uuid.UUID) error {
	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		return release(ctx, tx, id, now())
	})
}

func release(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, at time.Time) error {
	r, err := getReservation(ctx, q, id)
	if err != nil {
		return err
	}
	if !r.Active() {
		return nil
	}

	// Only the transaction that flips the status touches the counters.
	ok, err := execOne(ctx, q,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		model.ReservationCancelled, at, id, model.ReservationActive,
	)
	if err != nil {
		return dbErr("cancelling reservation", err)
	}
	if !ok {
		return nil
	}

	ok, err = execOne(ctx, q,
		`UPDATE stock_levels SET reserved = reserved - ?, updated_at = ?
		 WHERE item_id = ? AND location_id = ? AND reserved >= ?`,
		r.Quantity, at, r.ItemID, r.LocationID, r.Quantity,
	)
	if err != nil {
		return dbErr("releasing stock", err)
	}
	if !ok {
		return fmt.Errorf("releasing reservation %s: reserved counter below %d: %w", id, r.Quantity, ErrConflict)
	}
	return nil
}

// Consume turns a reservation into a real decrement and posts an OUT entry
// tagged with origin. Consuming a terminal reservation does nothing.
func Consume(ctx context.Context, db *sqlx.DB, id uuid.UUID, origin model.Origin, by *int64) error {
	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		_, err := consume(ctx, tx, id, origin, by, now())
		return err
	})
}

// consume reports whether this call consumed the reservation.
func consume(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, origin model.Origin, by *int64, at time.Time) (bool, error) {
	r, err := getReservation(ctx, q, id)
	if err != nil {
		return false, err
	}
	if !r.Active() {
		return false, nil
	}

	ok, err := execOne(ctx, q,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		model.ReservationConsumed, at, id, model.ReservationActive,
	)
	if err != nil {
		return false, dbErr("consuming reservation", err)
	}
	if !ok {
		return false, nil
	}

	ok, err = execOne(ctx, q,
		`UPDATE stock_levels SET quantity = quantity - ?, reserved = reserved - ?, updated_at = ?
		 WHERE item_id = ? AND location_id = ? AND reserved >= ? AND quantity >= ?`,
		r.Quantity, r.Quantity, at, r.ItemID, r.LocationID, r.Quantity, r.Quantity,
	)
	if err != nil {
		return false, dbErr("consuming stock", err)
	}
	if !ok {
		return false, fmt.Errorf("consuming reservation %s: counters below %d: %w", id, r.Quantity, ErrConflict)
	}

	m := &model.Movement{
		ItemID:     r.ItemID,
		LocationID: r.LocationID,
		Kind:       model.MovementOut,
		Quantity:   r.Quantity,
		Delta:      -r.Quantity,
		Reason:     model.ReasonSale,
		Origin:     origin,
		CreatedBy:  by,
		CreatedAt:  at,
	}
	if err := appendMovement(ctx, q, m); err != nil {
		return false, err
	}
	return true, nil
}

const reservationColumns = `id, item_id, location_id, sale_id, quantity, status, expires_at, created_at, updated_at`

// GetReservation returns a reservation by ID.
func GetReservation(ctx context.Context, db *sqlx.DB, id uuid.UUID) (*model.Reservation, error) {
	return getReservation(ctx, db, id)
}

func getReservation(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*model.Reservation, error) {
	r := &model.Reservation{}
	err := get(ctx, q, r, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting reservation", err)
	}
	return r, nil
}

// ReleaseExpiredReservations releases every active reservation past its
// expiry and returns how many it released. Each release is its own
// transaction so one failure does not hold back the rest.
func ReleaseExpiredReservations(ctx context.Context, db *sqlx.DB, at time.Time) (int, error) {
	var active []model.Reservation
	err := sel(ctx, db, &active,
		`SELECT `+reservationColumns+` FROM reservations WHERE status = ? ORDER BY expires_at`,
		model.ReservationActive,
	)
	if err != nil {
		return 0, dbErr("listing active reservations", err)
	}

	released := 0
	for _, r := range active {
		if !r.Expired(at) {
			continue
		}
		if err := Release(ctx, db, r.ID); err != nil {
			return released, fmt.Errorf("releasing expired reservation %s: %w", r.ID, err)
		}
		released++
	}
	return released, nil
}

const stockColumns = `s.item_id, s.location_id, s.quantity, s.reserved, s.minimum, s.updated_at,
        i.title AS item_title, l.name AS location_name`

// GetStockLevel returns the counters for one item at one location.
func GetStockLevel(ctx context.Context, db *sqlx.DB, itemID, locationID uuid.UUID) (*model.StockLevel, error) {
	s := &model.StockLevel{}
	err := get(ctx, db, s,
		`SELECT `+stockColumns+`
		 FROM stock_levels s
		 JOIN items i ON i.id = s.item_id
		 JOIN locations l ON l.id = s.location_id
		 WHERE s.item_id = ? AND s.location_id = ?`,
		itemID, locationID,
	)
	if isNoRows(err) {
		return nil, fmt.Errorf("stock level of item %s at %s: %w", itemID, locationID, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting stock level", err)
	}
	return s, nil
}

// ListStock returns stock levels, optionally only for one location.
func ListStock(ctx context.Context, db *sqlx.DB, locationID *uuid.UUID) ([]model.StockLevel, error) {
	return listStock(ctx, db, locationID, false)
}

// ListLowStock returns stock levels whose available quantity is at or below
// their minimum.
func ListLowStock(ctx context.Context, db *sqlx.DB, locationID *uuid.UUID) ([]model.StockLevel, error) {
	return listStock(ctx, db, locationID, true)
}

func listStock(ctx context.Context, db *sqlx.DB, locationID *uuid.UUID, lowOnly bool) ([]model.StockLevel, error) {
	query := `SELECT ` + stockColumns + `
	          FROM stock_levels s
	          JOIN items i ON i.id = s.item_id
	          JOIN locations l ON l.id = s.location_id
	          WHERE 1=1`
	var args []any

	if locationID != nil {
		query += ` AND s.location_id = ?`
		args = append(args, *locationID)
	}
	if lowOnly {
		query += ` AND s.quantity - s.reserved <= s.minimum`
	}
	query += ` ORDER BY l.name, i.title`

	var levels []model.StockLevel
	if err := sel(ctx, db, &levels, query, args...); err != nil {
		return nil, dbErr("listing stock", err)
	}
	return levels, nil
}

// SetMinimum sets the reorder threshold of a stock level, tracking it first
// if needed.
func SetMinimum(ctx context.Context, db *sqlx.DB, itemID, locationID uuid.UUID, minimum int) error {
	if minimum < 0 {
		return fmt.Errorf("%w: minimum must not be negative", ErrInvalidInput)
	}
	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()
		if err := ensureTracked(ctx, tx, itemID, locationID, at); err != nil {
			return err
		}
		_, err := exec(ctx, tx,
			`UPDATE stock_levels SET minimum = ?, updated_at = ? WHERE item_id = ? AND location_id = ?`,
			minimum, at, itemID, locationID,
		)
		if err != nil {
			return dbErr("setting minimum", err)
		}
		return nil
	})
}
