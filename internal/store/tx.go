package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// withTx runs fn inside one transaction. Any error from fn rolls the whole
// unit of work back.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return dbErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dbErr("committing transaction", err)
	}
	return nil
}

// get, sel and exec rebind ? placeholders for the connected driver.

func get(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
}

func sel(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

func exec(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, q.Rebind(query), args...)
}

// execOne runs a conditional statement and reports whether it matched a row.
func execOne(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (bool, error) {
	res, err := exec(ctx, q, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// exists reports whether a row with the given id is present in table.
// table is always a constant from this package.
func exists(ctx context.Context, q sqlx.ExtContext, table string, id any) (bool, error) {
	var n int
	if err := get(ctx, q, &n, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id); err != nil {
		return false, err
	}
	return n > 0, nil
}

func now() time.Time {
	return time.Now().UTC()
}
