package model

import (
	"time"

	"github.com/google/uuid"
)

// Inventory count statuses.
const (
	CountOpen   = "OPEN"
	CountClosed = "CLOSED"
)

// InventoryCount is a physical counting session at one location.
type InventoryCount struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	LocationID uuid.UUID  `db:"location_id" json:"location_id"`
	Status     string     `db:"status" json:"status"`
	Note       string     `db:"note" json:"note,omitempty"`
	OpenedBy   *int64     `db:"opened_by" json:"opened_by,omitempty"`
	OpenedAt   time.Time  `db:"opened_at" json:"opened_at"`
	ClosedAt   *time.Time `db:"closed_at" json:"closed_at,omitempty"`

	Items []CountedItem `db:"-" json:"items,omitempty"`
}

// CountedItem is the counted quantity of one item in a session, next to the
// system quantity seen when the item was first counted.
type CountedItem struct {
	CountID         uuid.UUID `db:"count_id" json:"count_id"`
	ItemID          uuid.UUID `db:"item_id" json:"item_id"`
	SystemQuantity  int       `db:"system_quantity" json:"system_quantity"`
	CountedQuantity int       `db:"counted_quantity" json:"counted_quantity"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Delta is the adjustment closing the session will post for this item.
func (c CountedItem) Delta() int {
	return c.CountedQuantity - c.SystemQuantity
}
