package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// sqliteSchema is the full SQLite schema, one statement per entry.
// Money columns are TEXT so decimal values round-trip without float loss.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'clerk' CHECK (role IN ('admin', 'manager', 'clerk')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS locations (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS items (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    isbn       TEXT NOT NULL DEFAULT '',
    list_price TEXT NOT NULL DEFAULT '0',
    created_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS customers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS coupons (
    id               TEXT PRIMARY KEY,
    code             TEXT NOT NULL UNIQUE,
    kind             TEXT NOT NULL CHECK (kind IN ('PERCENT', 'AMOUNT')),
    value            TEXT NOT NULL,
    minimum_purchase TEXT NOT NULL DEFAULT '0',
    active           BOOLEAN NOT NULL DEFAULT 1,
    valid_from       DATETIME,
    valid_until      DATETIME,
    created_at       DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS payment_methods (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS stock_levels (
    item_id     TEXT NOT NULL REFERENCES items(id),
    location_id TEXT NOT NULL REFERENCES locations(id),
    quantity    INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    reserved    INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0),
    minimum     INTEGER NOT NULL DEFAULT 0 CHECK (minimum >= 0),
    updated_at  DATETIME NOT NULL,
    PRIMARY KEY (item_id, location_id),
    CHECK (quantity - reserved >= 0)
)`,
	`CREATE TABLE IF NOT EXISTS sales (
    id             TEXT PRIMARY KEY,
    code           TEXT NOT NULL UNIQUE,
    customer_id    TEXT REFERENCES customers(id),
    clerk_id       INTEGER REFERENCES users(id),
    location_id    TEXT NOT NULL REFERENCES locations(id),
    status         TEXT NOT NULL CHECK (status IN ('OPEN', 'PARTIALLY_PAID', 'PAID', 'FINALIZED', 'CANCELLED', 'REVERSED')),
    origin         TEXT NOT NULL DEFAULT 'POS',
    subtotal       TEXT NOT NULL DEFAULT '0',
    discount_total TEXT NOT NULL DEFAULT '0',
    freight_total  TEXT NOT NULL DEFAULT '0',
    total          TEXT NOT NULL DEFAULT '0',
    note           TEXT NOT NULL DEFAULT '',
    sold_at        DATETIME,
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_status ON sales(status)`,
	`CREATE TABLE IF NOT EXISTS reservations (
    id          TEXT PRIMARY KEY,
    item_id     TEXT NOT NULL,
    location_id TEXT NOT NULL,
    sale_id     TEXT REFERENCES sales(id),
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    status      TEXT NOT NULL CHECK (status IN ('ACTIVE', 'CONSUMED', 'CANCELLED')),
    expires_at  DATETIME NOT NULL,
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL,
    FOREIGN KEY (item_id, location_id) REFERENCES stock_levels(item_id, location_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status, expires_at)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
    id             TEXT PRIMARY KEY,
    sale_id        TEXT NOT NULL REFERENCES sales(id),
    item_id        TEXT NOT NULL REFERENCES items(id),
    quantity       INTEGER NOT NULL CHECK (quantity > 0),
    unit_price     TEXT NOT NULL,
    item_discount  TEXT NOT NULL DEFAULT '0',
    line_total     TEXT NOT NULL,
    reservation_id TEXT REFERENCES reservations(id),
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id)`,
	`CREATE TABLE IF NOT EXISTS sale_coupons (
    sale_id    TEXT NOT NULL REFERENCES sales(id),
    coupon_id  TEXT NOT NULL REFERENCES coupons(id),
    amount     TEXT NOT NULL,
    applied_at DATETIME NOT NULL,
    PRIMARY KEY (sale_id, coupon_id)
)`,
	`CREATE TABLE IF NOT EXISTS sale_freights (
    id                   TEXT PRIMARY KEY,
    sale_id              TEXT NOT NULL UNIQUE REFERENCES sales(id),
    carrier              TEXT NOT NULL DEFAULT '',
    origin_postcode      TEXT NOT NULL DEFAULT '',
    destination_postcode TEXT NOT NULL DEFAULT '',
    value                TEXT NOT NULL,
    lead_days            INTEGER NOT NULL DEFAULT 0,
    tracking_code        TEXT NOT NULL DEFAULT '',
    created_at           DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS sale_payments (
    id          TEXT PRIMARY KEY,
    sale_id     TEXT NOT NULL REFERENCES sales(id),
    method_id   TEXT NOT NULL REFERENCES payment_methods(id),
    amount      TEXT NOT NULL,
    status      TEXT NOT NULL CHECK (status IN ('APPROVED')),
    reference   TEXT NOT NULL DEFAULT '',
    recorded_by INTEGER REFERENCES users(id),
    created_at  DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_payments_sale ON sale_payments(sale_id)`,
	`CREATE TABLE IF NOT EXISTS inventory_counts (
    id          TEXT PRIMARY KEY,
    location_id TEXT NOT NULL REFERENCES locations(id),
    status      TEXT NOT NULL CHECK (status IN ('OPEN', 'CLOSED')),
    note        TEXT NOT NULL DEFAULT '',
    opened_by   INTEGER REFERENCES users(id),
    opened_at   DATETIME NOT NULL,
    closed_at   DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS counted_items (
    count_id         TEXT NOT NULL REFERENCES inventory_counts(id),
    item_id          TEXT NOT NULL REFERENCES items(id),
    system_quantity  INTEGER NOT NULL,
    counted_quantity INTEGER NOT NULL CHECK (counted_quantity >= 0),
    updated_at       DATETIME NOT NULL,
    PRIMARY KEY (count_id, item_id)
)`,
	`CREATE TABLE IF NOT EXISTS movements (
    id             INTEGER PRIMARY KEY,
    item_id        TEXT NOT NULL REFERENCES items(id),
    location_id    TEXT NOT NULL REFERENCES locations(id),
    kind           TEXT NOT NULL CHECK (kind IN ('IN', 'OUT', 'ADJUST')),
    quantity       INTEGER NOT NULL CHECK (quantity > 0),
    delta          INTEGER NOT NULL CHECK (delta <> 0),
    reason         TEXT NOT NULL,
    sale_item_id   TEXT REFERENCES sale_items(id),
    return_item_id TEXT,
    count_id       TEXT REFERENCES inventory_counts(id),
    created_by     INTEGER REFERENCES users(id),
    created_at     DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_movements_stock ON movements(item_id, location_id)`,
	`CREATE TRIGGER IF NOT EXISTS movements_no_update BEFORE UPDATE ON movements
BEGIN
    SELECT RAISE(ABORT, 'movements are append-only');
END`,
	`CREATE TRIGGER IF NOT EXISTS movements_no_delete BEFORE DELETE ON movements
BEGIN
    SELECT RAISE(ABORT, 'movements are append-only');
END`,
}

// postgresSchema mirrors sqliteSchema with native types.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'clerk' CHECK (role IN ('admin', 'manager', 'clerk')),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    deleted_at    TIMESTAMPTZ
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS locations (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS items (
    id         UUID PRIMARY KEY,
    title      TEXT NOT NULL,
    isbn       TEXT NOT NULL DEFAULT '',
    list_price NUMERIC(14,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS customers (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS coupons (
    id               UUID PRIMARY KEY,
    code             TEXT NOT NULL UNIQUE,
    kind             TEXT NOT NULL CHECK (kind IN ('PERCENT', 'AMOUNT')),
    value            NUMERIC(14,2) NOT NULL,
    minimum_purchase NUMERIC(14,2) NOT NULL DEFAULT 0,
    active           BOOLEAN NOT NULL DEFAULT TRUE,
    valid_from       TIMESTAMPTZ,
    valid_until      TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS payment_methods (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS stock_levels (
    item_id     UUID NOT NULL REFERENCES items(id),
    location_id UUID NOT NULL REFERENCES locations(id),
    quantity    INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    reserved    INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0),
    minimum     INTEGER NOT NULL DEFAULT 0 CHECK (minimum >= 0),
    updated_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (item_id, location_id),
    CHECK (quantity - reserved >= 0)
)`,
	`CREATE TABLE IF NOT EXISTS sales (
    id             UUID PRIMARY KEY,
    code           TEXT NOT NULL UNIQUE,
    customer_id    UUID REFERENCES customers(id),
    clerk_id       BIGINT REFERENCES users(id),
    location_id    UUID NOT NULL REFERENCES locations(id),
    status         TEXT NOT NULL CHECK (status IN ('OPEN', 'PARTIALLY_PAID', 'PAID', 'FINALIZED', 'CANCELLED', 'REVERSED')),
    origin         TEXT NOT NULL DEFAULT 'POS',
    subtotal       NUMERIC(14,2) NOT NULL DEFAULT 0,
    discount_total NUMERIC(14,2) NOT NULL DEFAULT 0,
    freight_total  NUMERIC(14,2) NOT NULL DEFAULT 0,
    total          NUMERIC(14,2) NOT NULL DEFAULT 0,
    note           TEXT NOT NULL DEFAULT '',
    sold_at        TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_status ON sales(status)`,
	`CREATE TABLE IF NOT EXISTS reservations (
    id          UUID PRIMARY KEY,
    item_id     UUID NOT NULL,
    location_id UUID NOT NULL,
    sale_id     UUID REFERENCES sales(id),
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    status      TEXT NOT NULL CHECK (status IN ('ACTIVE', 'CONSUMED', 'CANCELLED')),
    expires_at  TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL,
    FOREIGN KEY (item_id, location_id) REFERENCES stock_levels(item_id, location_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status, expires_at)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
    id             UUID PRIMARY KEY,
    sale_id        UUID NOT NULL REFERENCES sales(id),
    item_id        UUID NOT NULL REFERENCES items(id),
    quantity       INTEGER NOT NULL CHECK (quantity > 0),
    unit_price     NUMERIC(14,2) NOT NULL,
    item_discount  NUMERIC(14,2) NOT NULL DEFAULT 0,
    line_total     NUMERIC(14,2) NOT NULL,
    reservation_id UUID REFERENCES reservations(id),
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id)`,
	`CREATE TABLE IF NOT EXISTS sale_coupons (
    sale_id    UUID NOT NULL REFERENCES sales(id),
    coupon_id  UUID NOT NULL REFERENCES coupons(id),
    amount     NUMERIC(14,2) NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (sale_id, coupon_id)
)`,
	`CREATE TABLE IF NOT EXISTS sale_freights (
    id                   UUID PRIMARY KEY,
    sale_id              UUID NOT NULL UNIQUE REFERENCES sales(id),
    carrier              TEXT NOT NULL DEFAULT '',
    origin_postcode      TEXT NOT NULL DEFAULT '',
    destination_postcode TEXT NOT NULL DEFAULT '',
    value                NUMERIC(14,2) NOT NULL,
    lead_days            INTEGER NOT NULL DEFAULT 0,
    tracking_code        TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS sale_payments (
    id          UUID PRIMARY KEY,
    sale_id     UUID NOT NULL REFERENCES sales(id),
    method_id   UUID NOT NULL REFERENCES payment_methods(id),
    amount      NUMERIC(14,2) NOT NULL,
    status      TEXT NOT NULL CHECK (status IN ('APPROVED')),
    reference   TEXT NOT NULL DEFAULT '',
    recorded_by BIGINT REFERENCES users(id),
    created_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_payments_sale ON sale_payments(sale_id)`,
	`CREATE TABLE IF NOT EXISTS inventory_counts (
    id          UUID PRIMARY KEY,
    location_id UUID NOT NULL REFERENCES locations(id),
    status      TEXT NOT NULL CHECK (status IN ('OPEN', 'CLOSED')),
    note        TEXT NOT NULL DEFAULT '',
    opened_by   BIGINT REFERENCES users(id),
    opened_at   TIMESTAMPTZ NOT NULL,
    closed_at   TIMESTAMPTZ
)`,
	`CREATE TABLE IF NOT EXISTS counted_items (
    count_id         UUID NOT NULL REFERENCES inventory_counts(id),
    item_id          UUID NOT NULL REFERENCES items(id),
    system_quantity  INTEGER NOT NULL,
    counted_quantity INTEGER NOT NULL CHECK (counted_quantity >= 0),
    updated_at       TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (count_id, item_id)
)`,
	`CREATE TABLE IF NOT EXISTS movements (
    id             BIGSERIAL PRIMARY KEY,
    item_id        UUID NOT NULL REFERENCES items(id),
    location_id    UUID NOT NULL REFERENCES locations(id),
    kind           TEXT NOT NULL CHECK (kind IN ('IN', 'OUT', 'ADJUST')),
    quantity       INTEGER NOT NULL CHECK (quantity > 0),
    delta          INTEGER NOT NULL CHECK (delta <> 0),
    reason         TEXT NOT NULL,
    sale_item_id   UUID REFERENCES sale_items(id),
    return_item_id UUID,
    count_id       UUID REFERENCES inventory_counts(id),
    created_by     BIGINT REFERENCES users(id),
    created_at     TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_movements_stock ON movements(item_id, location_id)`,
	`CREATE OR REPLACE FUNCTION movements_append_only() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'movements are append-only';
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS movements_append_only ON movements`,
	`CREATE TRIGGER movements_append_only BEFORE UPDATE OR DELETE ON movements
    FOR EACH ROW EXECUTE FUNCTION movements_append_only()`,
}

// EnsureSchema creates all tables, indexes and triggers if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == DriverPostgres {
		schema = postgresSchema
	}

	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema (statement %d): %w", i+1, err)
		}
	}
	return nil
}
