package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"motorent/internal/db"
)

type OrderRepository struct {
	DB *sql.DB
}

func NewOrderRepository(database *sql.DB) *OrderRepository {
	return &OrderRepository{DB: database}
}

const orderColumns = `id, code, user_id, user_email, user_phone, vehicle_id, from_date, to_date, total_cost, deposit_amount,
	hourly_rate, trust_score_at_booking, preview_token, status, cancellation_reason, expires_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*db.Order, error) {
	var o db.Order
	err := row.Scan(
		&o.ID, &o.Code, &o.UserID, &o.UserEmail, &o.UserPhone, &o.VehicleID, &o.FromDate, &o.ToDate, &o.TotalCost, &o.DepositAmount,
		&o.HourlyRate, &o.TrustScoreAtBooking, &o.PreviewToken, &o.Status, &o.CancellationReason, &o.ExpiresAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CountOverlapping counts orders for the vehicle in a blocking status
// whose range overlaps [from, to). Completed and cancelled orders never
// block. excludeOrderID lets an update-in-place check ignore itself
// (pass 0 to exclude nothing).
func (r *OrderRepository) CountOverlapping(tx *sql.Tx, vehicleID int, from, to time.Time, excludeOrderID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM orders
		WHERE vehicle_id = $1
		  AND status IN ('pending', 'confirmed', 'in_progress')
		  AND from_date < $2
		  AND to_date > $3
		  AND id <> $4`
	var count int
	err := tx.QueryRow(query, vehicleID, to, from, excludeOrderID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting overlapping orders: %w", err)
	}
	return count, nil
}

// ConflictingOrders lists the blocking orders overlapping [from, to)
// for a vehicle. Read-only; not part of any atomic write flow.
func (r *OrderRepository) ConflictingOrders(vehicleID int, from, to time.Time) ([]db.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE vehicle_id = $1
		  AND status IN ('pending', 'confirmed', 'in_progress')
		  AND from_date < $2
		  AND to_date > $3
		ORDER BY from_date`
	rows, err := r.DB.Query(query, vehicleID, to, from)
	if err != nil {
		return nil, fmt.Errorf("error querying conflicting orders: %w", err)
	}
	defer rows.Close()

	var orders []db.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning conflicting order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating conflicting orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepository) Create(tx *sql.Tx, o *db.Order) error {
	query := `
		INSERT INTO orders
		(code, user_id, user_email, user_phone, vehicle_id, from_date, to_date, total_cost, deposit_amount, hourly_rate,
		 trust_score_at_booking, preview_token, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	return tx.QueryRow(query,
		o.Code,
		o.UserID,
		o.UserEmail,
		o.UserPhone,
		o.VehicleID,
		o.FromDate,
		o.ToDate,
		o.TotalCost,
		o.DepositAmount,
		o.HourlyRate,
		o.TrustScoreAtBooking,
		o.PreviewToken,
		o.Status,
		o.ExpiresAt,
		o.CreatedAt,
		o.UpdatedAt,
	).Scan(&o.ID)
}

func (r *OrderRepository) GetByCode(code string) (*db.Order, error) {
	o, err := scanOrder(r.DB.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order with code '%s' not found: %w", code, err)
		}
		return nil, fmt.Errorf("error querying order: %w", err)
	}
	return o, nil
}

// GetByCodeForUpdate loads the order with a row lock inside tx so a
// state transition cannot race a concurrent one on the same order.
func (r *OrderRepository) GetByCodeForUpdate(tx *sql.Tx, code string) (*db.Order, error) {
	o, err := scanOrder(tx.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE code = $1 FOR UPDATE`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order with code '%s' not found: %w", code, err)
		}
		return nil, fmt.Errorf("error querying order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) GetByID(tx *sql.Tx, id int) (*db.Order, error) {
	o, err := scanOrder(tx.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("error querying order: %w", err)
	}
	return o, nil
}

// TransitionStatus moves an order from one status to another, guarded
// by the current status in the WHERE clause so an illegal or stale
// transition affects zero rows. expires_at is cleared whenever the
// order leaves pending.
func (r *OrderRepository) TransitionStatus(tx *sql.Tx, id int, from, to db.OrderStatus, reason string) (bool, error) {
	var reasonArg sql.NullString
	if reason != "" {
		reasonArg = sql.NullString{String: reason, Valid: true}
	}
	result, err := tx.Exec(`
		UPDATE orders
		SET status = $3,
		    expires_at = NULL,
		    cancellation_reason = COALESCE($4, cancellation_reason),
		    updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to, reasonArg)
	if err != nil {
		return false, fmt.Errorf("error transitioning order %d from %s to %s: %w", id, from, to, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}

// ListExpiredPendingIDs returns ids of pending orders whose payment
// deadline has passed. Used by the expiration sweep.
func (r *OrderRepository) ListExpiredPendingIDs(now time.Time) ([]int, error) {
	rows, err := r.DB.Query(`
		SELECT id FROM orders
		WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return nil, fmt.Errorf("error querying expired pending orders: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating expired orders: %w", err)
	}
	return ids, nil
}

func (r *OrderRepository) List(status string, limit, offset int) ([]db.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing orders: %w", err)
	}
	defer rows.Close()

	var orders []db.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating orders: %w", err)
	}
	return orders, nil
}
