package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a sellable title. Only the fields the ledger and sales need are kept.
type Item struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Title     string          `db:"title" json:"title"`
	ISBN      string          `db:"isbn" json:"isbn,omitempty"`
	ListPrice decimal.Decimal `db:"list_price" json:"list_price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Location is a shop floor or storeroom that holds stock.
type Location struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Customer is the optional buyer on a sale.
type Customer struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PaymentMethod is a way of paying (cash, card, voucher).
type PaymentMethod struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
