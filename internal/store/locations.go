package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateLocation creates a new stock location.
func CreateLocation(ctx context.Context, db *sqlx.DB, name string) (*model.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	l := &model.Location{ID: uuid.New(), Name: name, CreatedAt: now()}
	_, err := exec(ctx, db,
		`INSERT INTO locations (id, name, created_at) VALUES (?, ?, ?)`,
		l.ID, l.Name, l.CreatedAt,
	)
	if err != nil {
		return nil, dbErr("creating location", err)
	}
	return l, nil
}

// GetLocation returns a location by ID.
func GetLocation(ctx context.Context, db *sqlx.DB, id uuid.UUID) (*model.Location, error) {
	l := &model.Location{}
	err := get(ctx, db, l, `SELECT id, name, created_at FROM locations WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("getting location", err)
	}
	return l, nil
}

// ListLocations returns all locations ordered by name.
func ListLocations(ctx context.Context, db *sqlx.DB) ([]model.Location, error) {
	var locations []model.Location
	if err := sel(ctx, db, &locations, `SELECT id, name, created_at FROM locations ORDER BY name`); err != nil {
		return nil, dbErr("listing locations", err)
	}
	return locations, nil
}
