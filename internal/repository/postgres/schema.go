package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id    TEXT PRIMARY KEY,
		name  TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS drivers (
		id          TEXT PRIMARY KEY,
		name        TEXT,
		email       TEXT,
		phone       TEXT,
		car_id      TEXT,
		available   BOOLEAN NOT NULL DEFAULT TRUE,
		has_own_car BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_drivers_pool ON drivers (id) WHERE available AND NOT has_own_car`,
	`CREATE TABLE IF NOT EXISTS cars (
		id                 TEXT PRIMARY KEY,
		brand              TEXT NOT NULL,
		model              TEXT NOT NULL,
		license_plate      TEXT NOT NULL UNIQUE,
		capacity           INTEGER NOT NULL DEFAULT 4,
		base_rate          NUMERIC(12, 2) NOT NULL,
		driver_rate        NUMERIC(12, 2) NOT NULL DEFAULT 0,
		assigned_driver_id TEXT,
		available          BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                        TEXT PRIMARY KEY,
		customer_id               TEXT NOT NULL,
		car_id                    TEXT NOT NULL,
		driver_id                 TEXT,
		pickup_location           TEXT NOT NULL,
		destination               TEXT NOT NULL,
		pickup_date               TEXT NOT NULL,
		pickup_time               TEXT NOT NULL,
		pickup_at                 TIMESTAMPTZ,
		booking_date              TIMESTAMPTZ NOT NULL,
		distance                  DOUBLE PRECISION NOT NULL DEFAULT 0,
		distance_fare             DOUBLE PRECISION NOT NULL DEFAULT 0,
		tax                       DOUBLE PRECISION NOT NULL DEFAULT 0,
		driver_fee                DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_amount              DOUBLE PRECISION NOT NULL DEFAULT 0,
		refund_amount             DOUBLE PRECISION NOT NULL DEFAULT 0,
		driver_required           BOOLEAN NOT NULL DEFAULT FALSE,
		driver_assignment_message TEXT NOT NULL DEFAULT '',
		status                    TEXT NOT NULL,
		cancellation_reason       TEXT,
		cancelled_at              TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_car_status ON bookings (car_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_due ON bookings (status, pickup_at)`,
}

// Migrate creates the tables the service needs if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
