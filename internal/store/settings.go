package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Insert-if-absent followed by a re-select keeps concurrent startups on one secret.
func GetJWTSecret(ctx context.Context, db *sqlx.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := exec(ctx, db,
		`INSERT INTO settings (key, value) VALUES ('jwt_secret', ?)
		 ON CONFLICT (key) DO NOTHING`,
		candidate,
	)
	if err != nil {
		return "", dbErr("storing jwt_secret", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	if err := get(ctx, db, &secret, `SELECT value FROM settings WHERE key = 'jwt_secret'`); err != nil {
		return "", dbErr("querying jwt_secret", err)
	}

	return secret, nil
}
