package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"motorent/internal/db"
)

type LockRepository struct {
	DB *sql.DB
}

func NewLockRepository(database *sql.DB) *LockRepository {
	return &LockRepository{DB: database}
}

// CountOverlappingActive counts active, unexpired locks for the vehicle
// whose range overlaps [from, to). Two half-open ranges overlap iff
// f1 < t2 AND f2 < t1. Runs inside the caller's transaction.
func (r *LockRepository) CountOverlappingActive(tx *sql.Tx, vehicleID int, from, to, now time.Time, excludeToken string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservation_locks
		WHERE vehicle_id = $1
		  AND status = 'active'
		  AND expires_at > $2
		  AND from_date < $3
		  AND to_date > $4
		  AND token <> $5`
	var count int
	err := tx.QueryRow(query, vehicleID, now, to, from, excludeToken).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting overlapping locks: %w", err)
	}
	return count, nil
}

func (r *LockRepository) Create(tx *sql.Tx, lock *db.ReservationLock) error {
	query := `
		INSERT INTO reservation_locks
		(token, vehicle_id, user_id, from_date, to_date, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	return tx.QueryRow(query,
		lock.Token,
		lock.VehicleID,
		lock.UserID,
		lock.FromDate,
		lock.ToDate,
		lock.Status,
		lock.CreatedAt,
		lock.ExpiresAt,
	).Scan(&lock.ID)
}

func (r *LockRepository) GetByToken(token string) (*db.ReservationLock, error) {
	return scanLock(r.DB.QueryRow(`
		SELECT id, token, vehicle_id, user_id, from_date, to_date, status, created_at, expires_at
		FROM reservation_locks WHERE token = $1`, token), token)
}

func (r *LockRepository) GetByTokenTx(tx *sql.Tx, token string) (*db.ReservationLock, error) {
	return scanLock(tx.QueryRow(`
		SELECT id, token, vehicle_id, user_id, from_date, to_date, status, created_at, expires_at
		FROM reservation_locks WHERE token = $1`, token), token)
}

func scanLock(row *sql.Row, token string) (*db.ReservationLock, error) {
	var l db.ReservationLock
	err := row.Scan(&l.ID, &l.Token, &l.VehicleID, &l.UserID, &l.FromDate, &l.ToDate, &l.Status, &l.CreatedAt, &l.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lock with token '%s' not found: %w", token, err)
		}
		return nil, fmt.Errorf("error querying lock: %w", err)
	}
	return &l, nil
}

// Consume flips an active, unexpired lock to consumed. Returns false
// when the lock was missing, already consumed, already expired, or past
// its TTL; the guard in the WHERE clause is what makes Consume safe to
// race.
func (r *LockRepository) Consume(tx *sql.Tx, token string, now time.Time) (bool, error) {
	result, err := tx.Exec(`
		UPDATE reservation_locks
		SET status = 'consumed'
		WHERE token = $1 AND status = 'active' AND expires_at > $2`, token, now)
	if err != nil {
		return false, fmt.Errorf("error consuming lock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}

// Release discards an active hold before its TTL. Flipping a lock that
// is no longer active is a no-op.
func (r *LockRepository) Release(token string) error {
	_, err := r.DB.Exec(`
		UPDATE reservation_locks
		SET status = 'expired'
		WHERE token = $1 AND status = 'active'`, token)
	if err != nil {
		return fmt.Errorf("error releasing lock: %w", err)
	}
	return nil
}

// SweepExpired flips every active lock past its TTL to expired and
// returns the affected ids. Safe to run concurrently and repeatedly:
// an already-expired lock no longer matches the WHERE clause.
func (r *LockRepository) SweepExpired(now time.Time) ([]int, error) {
	rows, err := r.DB.Query(`
		UPDATE reservation_locks
		SET status = 'expired'
		WHERE status = 'active' AND expires_at <= $1
		RETURNING id`, now)
	if err != nil {
		return nil, fmt.Errorf("error sweeping expired locks: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning expired lock id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating expired locks: %w", err)
	}
	return ids, nil
}
