package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateCustomer creates a new customer.
func CreateCustomer(ctx context.Context, db *sqlx.DB, name, email string) (*model.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	c := &model.Customer{ID: uuid.New(), Name: name, Email: strings.TrimSpace(email), CreatedAt: now()}
	_, err := exec(ctx, db,
		`INSERT INTO customers (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.CreatedAt,
	)
	if err != nil {
		return nil, dbErr("creating customer", err)
	}
	return c, nil
}

// CreatePaymentMethod creates a new payment method.
func CreatePaymentMethod(ctx context.Context, db *sqlx.DB, name string) (*model.PaymentMethod, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	m := &model.PaymentMethod{ID: uuid.New(), Name: name, CreatedAt: now()}
	_, err := exec(ctx, db,
		`INSERT INTO payment_methods (id, name, created_at) VALUES (?, ?, ?)`,
		m.ID, m.Name, m.CreatedAt,
	)
	if err != nil {
		return nil, dbErr("creating payment method", err)
	}
	return m, nil
}

// ListPaymentMethods returns all payment methods ordered by name.
func ListPaymentMethods(ctx context.Context, db *sqlx.DB) ([]model.PaymentMethod, error) {
	var methods []model.PaymentMethod
	if err := sel(ctx, db, &methods, `SELECT id, name, created_at FROM payment_methods ORDER BY name`); err != nil {
		return nil, dbErr("listing payment methods", err)
	}
	return methods, nil
}
