package model

import (
	"time"

	"github.com/google/uuid"
)

// StockLevel holds the on-hand and reserved counters of one item at one location.
type StockLevel struct {
	ItemID     uuid.UUID `db:"item_id" json:"item_id"`
	LocationID uuid.UUID `db:"location_id" json:"location_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	Reserved   int       `db:"reserved" json:"reserved"`
	Minimum    int       `db:"minimum" json:"minimum"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields (not always populated).
	ItemTitle    string `db:"item_title" json:"item_title,omitempty"`
	LocationName string `db:"location_name" json:"location_name,omitempty"`
}

// Available is the quantity that can still be reserved or sold.
func (s StockLevel) Available() int {
	return s.Quantity - s.Reserved
}

// Reservation statuses.
const (
	ReservationActive    = "ACTIVE"
	ReservationConsumed  = "CONSUMED"
	ReservationCancelled = "CANCELLED"
)

// Reservation is a temporary hold against available stock.
type Reservation struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ItemID     uuid.UUID  `db:"item_id" json:"item_id"`
	LocationID uuid.UUID  `db:"location_id" json:"location_id"`
	SaleID     *uuid.UUID `db:"sale_id" json:"sale_id,omitempty"`
	Quantity   int        `db:"quantity" json:"quantity"`
	Status     string     `db:"status" json:"status"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the reservation still holds stock.
func (r *Reservation) Active() bool {
	return r.Status == ReservationActive
}

// Expired reports whether an active reservation is past its expiry and may
// be reclaimed.
func (r *Reservation) Expired(now time.Time) bool {
	return r.Active() && now.After(r.ExpiresAt)
}
