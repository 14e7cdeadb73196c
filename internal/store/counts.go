package store

import (
	"context"
	"fmt"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const countColumns = `id, location_id, status, note, opened_by, opened_at, closed_at`

// OpenCount starts a counting session at a location.
func OpenCount(ctx context.Context, db *sqlx.DB, locationID uuid.UUID, note string, by *int64) (*model.InventoryCount, error) {
	c := &model.InventoryCount{
		ID:         uuid.New(),
		LocationID: locationID,
		Status:     model.CountOpen,
		Note:       note,
		OpenedBy:   by,
		OpenedAt:   now(),
	}

	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		ok, err := exists(ctx, tx, "locations", locationID)
		if err != nil {
			return dbErr("checking location", err)
		}
		if !ok {
			return fmt.Errorf("location %s: %w", locationID, ErrNotFound)
		}

		_, err = exec(ctx, tx,
			`INSERT INTO inventory_counts (`+countColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.LocationID, c.Status, c.Note, c.OpenedBy, c.OpenedAt, c.ClosedAt,
		)
		if err != nil {
			return dbErr("opening count", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// RecordCount stores the counted quantity of an item. The first count of an
// item snapshots the system quantity; later counts only replace the counted value.
func RecordCount(ctx context.Context, db *sqlx.DB, countID, itemID uuid.UUID, counted int) (*model.CountedItem, error) {
	if counted < 0 {
		return nil, fmt.Errorf("%w: counted quantity must not be negative", ErrInvalidInput)
	}

	ci := &model.CountedItem{}
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()

		// Touch the session row so a concurrent close waits for this count.
		ok, err := execOne(ctx, tx,
			`UPDATE inventory_counts SET status = status WHERE id = ? AND status = ?`,
			countID, model.CountOpen,
		)
		if err != nil {
			return dbErr("locking count", err)
		}
		c, err := getCount(ctx, tx, countID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("recording count %s: count is %s: %w", countID, c.Status, ErrInvalidState)
		}

		found, err := exists(ctx, tx, "items", itemID)
		if err != nil {
			return dbErr("checking item", err)
		}
		if !found {
			return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
		}

		var system int
		err = get(ctx, tx, &system,
			`SELECT quantity FROM stock_levels WHERE item_id = ? AND location_id = ?`,
			itemID, c.LocationID,
		)
		if isNoRows(err) {
			system = 0
		} else if err != nil {
			return dbErr("reading system quantity", err)
		}

		_, err = exec(ctx, tx,
			`INSERT INTO counted_items (count_id, item_id, system_quantity, counted_quantity, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (count_id, item_id) DO UPDATE
			 SET counted_quantity = excluded.counted_quantity, updated_at = excluded.updated_at`,
			countID, itemID, system, counted, at,
		)
		if err != nil {
			return dbErr("recording count", err)
		}

		err = get(ctx, tx, ci,
			`SELECT count_id, item_id, system_quantity, counted_quantity, updated_at
			 FROM counted_items WHERE count_id = ? AND item_id = ?`,
			countID, itemID,
		)
		if err != nil {
			return dbErr("reading counted item", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ci, nil
}

// CloseCount posts an ADJUST movement for every counted item that differs
// from its snapshot and closes the session. Everything happens in one
// transaction; a second close fails with ErrInvalidState.
func CloseCount(ctx context.Context, db *sqlx.DB, countID uuid.UUID, by *int64) (*model.InventoryCount, error) {
	var c *model.InventoryCount
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		at := now()

		ok, err := execOne(ctx, tx,
			`UPDATE inventory_counts SET status = ?, closed_at = ? WHERE id = ? AND status = ?`,
			model.CountClosed, at, countID, model.CountOpen,
		)
		if err != nil {
			return dbErr("closing count", err)
		}
		c, err = getCount(ctx, tx, countID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("closing count %s: count is %s: %w", countID, c.Status, ErrInvalidState)
		}

		items, err := countedItems(ctx, tx, countID)
		if err != nil {
			return err
		}

		for _, ci := range items {
			delta := ci.Delta()
			if delta == 0 {
				continue
			}
			_, err := adjust(ctx, tx, Adjustment{
				ItemID:     ci.ItemID,
				LocationID: c.LocationID,
				Kind:       model.MovementAdjust,
				Delta:      delta,
				Reason:     model.ReasonInventoryCount,
				Origin:     model.Origin{CountID: &c.ID},
				By:         by,
			}, at)
			if err != nil {
				return fmt.Errorf("closing count %s: %w", countID, err)
			}
		}

		c.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCount returns a counting session with its counted items.
func GetCount(ctx context.Context, db *sqlx.DB, id uuid.UUID) (*model.InventoryCount, error) {
	c, err := getCount(ctx, db, id)
	if err != nil {
		return nil, err
	}
	c.Items, err = countedItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCounts returns counting sessions, newest first, optionally for one location.
func ListCounts(ctx context.Context, db *sqlx.DB, locationID *uuid.UUID) ([]model.InventoryCount, error) {
	query := `SELECT ` + countColumns + ` FROM inventory_counts WHERE 1=1`
	var args []any
	if locationID != nil {
		query += ` AND location_id = ?`
		args = append(args, *locationID)
	}
	query += ` ORDER BY opened_at DESC`

	var counts []model.InventoryCount
	if err := sel(ctx, db, &counts, query, args...); err != nil {
		return nil, dbErr("listing counts", err)
	}
	return counts, nil
}

func getCount(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*model.InventoryCount, error) {
	c := &model.InventoryCount{}
	err := get(ctx, q, c, `SELECT `+countColumns+` FROM inventory_counts WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, fmt.Errorf("count %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting count", err)
	}
	return c, nil
}

func countedItems(ctx context.Context, q sqlx.ExtContext, countID uuid.UUID) ([]model.CountedItem, error) {
	var items []model.CountedItem
	err := sel(ctx, q, &items,
		`SELECT count_id, item_id, system_quantity, counted_quantity, updated_at
		 FROM counted_items WHERE count_id = ? ORDER BY item_id`,
		countID,
	)
	if err != nil {
		return nil, dbErr("listing counted items", err)
	}
	return items, nil
}
