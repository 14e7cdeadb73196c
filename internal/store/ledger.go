package store

import (
	"context"
	"fmt"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// appendMovement writes one ledger entry and fills in its ID. There is no
// update or delete counterpart; triggers reject both at the database.
func appendMovement(ctx context.Context, q sqlx.ExtContext, m *model.Movement) error {
	err := get(ctx, q, &m.ID,
		`INSERT INTO movements (item_id, location_id, kind, quantity, delta, reason,
		                        sale_item_id, return_item_id, count_id, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		m.ItemID, m.LocationID, m.Kind, m.Quantity, m.Delta, m.Reason,
		m.SaleItemID, m.ReturnItemID, m.CountID, m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		return dbErr("appending movement", err)
	}
	return nil
}

// MovementFilter narrows ListMovements. Zero fields are ignored.
type MovementFilter struct {
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
	SaleItemID *uuid.UUID
	CountID    *uuid.UUID
	Limit      int
}

// ListMovements returns ledger entries in the order they were written.
func ListMovements(ctx context.Context, db *sqlx.DB, f MovementFilter) ([]model.Movement, error) {
	query := `SELECT id, item_id, location_id, kind, quantity, delta, reason,
	                 sale_item_id, return_item_id, count_id, created_by, created_at
	          FROM movements
	          WHERE 1=1`
	var args []any

	if f.ItemID != nil {
		query += ` AND item_id = ?`
		args = append(args, *f.ItemID)
	}
	if f.LocationID != nil {
		query += ` AND location_id = ?`
		args = append(args, *f.LocationID)
	}
	if f.SaleItemID != nil {
		query += ` AND sale_item_id = ?`
		args = append(args, *f.SaleItemID)
	}
	if f.CountID != nil {
		query += ` AND count_id = ?`
		args = append(args, *f.CountID)
	}

	query += ` ORDER BY id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	var movements []model.Movement
	if err := sel(ctx, db, &movements, query, args...); err != nil {
		return nil, dbErr("listing movements", err)
	}
	return movements, nil
}
