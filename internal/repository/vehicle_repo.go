package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"motorent/internal/db"
)

type VehicleRepository struct {
	DB *sql.DB
}

func NewVehicleRepository(database *sql.DB) *VehicleRepository {
	return &VehicleRepository{DB: database}
}

func (r *VehicleRepository) GetByID(id int) (*db.Vehicle, error) {
	var v db.Vehicle
	query := `
		SELECT id, plate_number, model, active, hourly_rate, deposit_amount, created_at, updated_at
		FROM vehicles WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(
		&v.ID, &v.PlateNumber, &v.Model, &v.Active, &v.HourlyRate, &v.DepositAmount, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vehicle %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("error querying vehicle %d: %w", id, err)
	}
	return &v, nil
}

// LockRow takes a row lock on the vehicle inside tx. Every mutating
// flow that depends on an availability read (acquire, consume+create,
// complete) locks the vehicle row first so those flows serialize per
// vehicle.
func (r *VehicleRepository) LockRow(tx *sql.Tx, id int) (*db.Vehicle, error) {
	var v db.Vehicle
	query := `
		SELECT id, plate_number, model, active, hourly_rate, deposit_amount, created_at, updated_at
		FROM vehicles WHERE id = $1 FOR UPDATE`
	err := tx.QueryRow(query, id).Scan(
		&v.ID, &v.PlateNumber, &v.Model, &v.Active, &v.HourlyRate, &v.DepositAmount, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vehicle %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("error locking vehicle %d: %w", id, err)
	}
	return &v, nil
}
