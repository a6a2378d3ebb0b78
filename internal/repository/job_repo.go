package repository

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/lib/pq"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(database *sql.DB) *JobRepository {
	return &JobRepository{DB: database}
}

// CancelExpiredOrders cancels the given pending orders with reason
// "expired". The status guard makes the sweep idempotent: an order
// confirmed between the read and this write is left alone.
func (r *JobRepository) CancelExpiredOrders(ids []int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		UPDATE orders
		SET status = 'cancelled', cancellation_reason = 'expired', expires_at = NULL, updated_at = NOW()
		WHERE id = ANY($1) AND status = 'pending'`
	result, err := r.DB.Exec(query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("error cancelling expired orders: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Could not get rows affected: %v", err)
		return 0, nil
	}
	return rowsAffected, nil
}

// CancelPaymentsForOrders cancels still-pending payments attached to
// the given orders, so an abandoned checkout session cannot complete a
// payment against a cancelled order.
func (r *JobRepository) CancelPaymentsForOrders(ids []int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		UPDATE payments
		SET status = 'cancelled', updated_at = NOW()
		WHERE order_id = ANY($1) AND status = 'pending'`
	result, err := r.DB.Exec(query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("error cancelling payments for expired orders: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Could not get rows affected: %v", err)
		return 0, nil
	}
	return rowsAffected, nil
}
