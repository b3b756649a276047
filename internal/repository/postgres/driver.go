package postgres

import (
	"context"
	"database/sql"

	"cab/internal/domain"
	"cab/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

var _ repository.DriverRepository = (*DriverRepository)(nil)

const driverColumns = `id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(phone, ''), car_id, available, has_own_car`

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	return scanDriver(r.q.QueryRowContext(ctx, query, id))
}

// FirstAvailablePoolDriver returns the lowest-ID available driver without an
// own car. SKIP LOCKED lets concurrent bookings pick different drivers.
func (r *DriverRepository) FirstAvailablePoolDriver(ctx context.Context) (*domain.Driver, error) {
	query := `
		SELECT ` + driverColumns + ` FROM drivers
		WHERE available = TRUE AND has_own_car = FALSE
		ORDER BY id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	return scanDriver(r.q.QueryRowContext(ctx, query))
}

// Update updates an existing driver.
func (r *DriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	query := `
		UPDATE drivers
		SET name = $1, email = $2, phone = $3, car_id = $4, available = $5, has_own_car = $6
		WHERE id = $7
	`

	result, err := r.q.ExecContext(ctx, query,
		driver.Name,
		driver.Email,
		driver.Phone,
		nullString(driver.CarID),
		driver.Available,
		driver.HasOwnCar,
		driver.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var driver domain.Driver
	var carID sql.NullString

	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Email,
		&driver.Phone,
		&carID,
		&driver.Available,
		&driver.HasOwnCar,
	)
	if err != nil {
		return nil, mapError(err)
	}

	driver.CarID = carID.String
	return &driver, nil
}
