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

// CreateItem creates a new catalog item.
func CreateItem(ctx context.Context, db *sqlx.DB, title, isbn string, listPrice decimal.Decimal) (*model.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if listPrice.IsNegative() {
		return nil, fmt.Errorf("%w: list price must not be negative", ErrInvalidInput)
	}

	item := &model.Item{
		ID:        uuid.New(),
		Title:     title,
		ISBN:      strings.TrimSpace(isbn),
		ListPrice: listPrice.Round(2),
		CreatedAt: now(),
	}
	_, err := exec(ctx, db,
		`INSERT INTO items (id, title, isbn, list_price, created_at) VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.ISBN, item.ListPrice, item.CreatedAt,
	)
	if err != nil {
		return nil, dbErr("creating item", err)
	}
	return item, nil
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sqlx.DB, id uuid.UUID) (*model.Item, error) {
	item := &model.Item{}
	err := get(ctx, db, item,
		`SELECT id, title, isbn, list_price, created_at FROM items WHERE id = ?`, id,
	)
	if isNoRows(err) {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting item", err)
	}
	return item, nil
}

// ListItems returns all items ordered by title.
func ListItems(ctx context.Context, db *sqlx.DB) ([]model.Item, error) {
	var items []model.Item
	err := sel(ctx, db, &items,
		`SELECT id, title, isbn, list_price, created_at FROM items ORDER BY title`,
	)
	if err != nil {
		return nil, dbErr("listing items", err)
	}
	return items, nil
}
