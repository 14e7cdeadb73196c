package model

import (
	"time"

	"github.com/google/uuid"
)

// Movement kinds.
const (
	MovementIn     = "IN"
	MovementOut    = "OUT"
	MovementAdjust = "ADJUST"
)

// Movement reasons written by the engine itself.
const (
	ReasonSale           = "sale"
	ReasonSaleReversal   = "sale-reversal"
	ReasonInventoryCount = "inventory-count"
)

// Origin links a movement to the document that caused it.
type Origin struct {
	SaleItemID   *uuid.UUID `db:"sale_item_id" json:"sale_item_id,omitempty"`
	ReturnItemID *uuid.UUID `db:"return_item_id" json:"return_item_id,omitempty"`
	CountID      *uuid.UUID `db:"count_id" json:"count_id,omitempty"`
}

// Movement is one immutable entry of the stock ledger. Quantity is the
// magnitude, Delta the signed effect on quantity on hand.
type Movement struct {
	ID         int64     `db:"id" json:"id"`
	ItemID     uuid.UUID `db:"item_id" json:"item_id"`
	LocationID uuid.UUID `db:"location_id" json:"location_id"`
	Kind       string    `db:"kind" json:"kind"`
	Quantity   int       `db:"quantity" json:"quantity"`
	Delta      int       `db:"delta" json:"delta"`
	Reason     string    `db:"reason" json:"reason"`
	Origin
	CreatedBy *int64    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
