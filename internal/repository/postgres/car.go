package postgres

import (
	"context"
	"database/sql"

	"cab/internal/domain"
	"cab/internal/repository"
)

// CarRepository is a PostgreSQL implementation of repository.CarRepository.
type CarRepository struct {
	q Querier
}

// NewCarRepository creates a new PostgreSQL car repository.
func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{q: db}
}

// NewCarRepositoryWithTx creates a car repository using a transaction.
func NewCarRepositoryWithTx(tx *sql.Tx) *CarRepository {
	return &CarRepository{q: tx}
}

var _ repository.CarRepository = (*CarRepository)(nil)

const carColumns = `id, brand, model, license_plate, capacity, base_rate, driver_rate, assigned_driver_id, available`

// GetByID retrieves a car by ID.
func (r *CarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1`
	return scanCar(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a car and locks its row.
func (r *CarRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1 FOR UPDATE`
	return scanCar(r.q.QueryRowContext(ctx, query, id))
}

// ListByAvailability retrieves cars whose availability flag matches.
func (r *CarRepository) ListByAvailability(ctx context.Context, available bool) ([]*domain.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE available = $1 ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, available)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []*domain.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

// Update updates an existing car.
func (r *CarRepository) Update(ctx context.Context, car *domain.Car) error {
	query := `
		UPDATE cars
		SET brand = $1, model = $2, license_plate = $3, capacity = $4, base_rate = $5, driver_rate = $6,
			assigned_driver_id = $7, available = $8
		WHERE id = $9
	`

	result, err := r.q.ExecContext(ctx, query,
		car.Brand,
		car.Model,
		car.LicensePlate,
		car.Capacity,
		car.BaseRate,
		car.DriverRate,
		nullString(car.AssignedDriverID),
		car.Available,
		car.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

func scanCar(row rowScanner) (*domain.Car, error) {
	var car domain.Car
	var assignedDriverID sql.NullString

	err := row.Scan(
		&car.ID,
		&car.Brand,
		&car.Model,
		&car.LicensePlate,
		&car.Capacity,
		&car.BaseRate,
		&car.DriverRate,
		&assignedDriverID,
		&car.Available,
	)
	if err != nil {
		return nil, mapError(err)
	}

	car.AssignedDriverID = assignedDriverID.String
	return &car, nil
}
