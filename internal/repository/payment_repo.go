package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"motorent/internal/db"
)

type PaymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(database *sql.DB) *PaymentRepository {
	return &PaymentRepository{DB: database}
}

const paymentColumns = `id, code, order_id, amount, payment_method, purpose, status, transaction_id,
	session_id, paid_at, gateway_response, expires_at, created_at, updated_at`

func scanPayment(row rowScanner) (*db.Payment, error) {
	var p db.Payment
	err := row.Scan(
		&p.ID, &p.Code, &p.OrderID, &p.Amount, &p.PaymentMethod, &p.Purpose, &p.Status, &p.TransactionID,
		&p.SessionID, &p.PaidAt, &p.GatewayResponse, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Create(tx *sql.Tx, p *db.Payment) error {
	query := `
		INSERT INTO payments
		(code, order_id, amount, payment_method, purpose, status, session_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	return tx.QueryRow(query,
		p.Code,
		p.OrderID,
		p.Amount,
		p.PaymentMethod,
		p.Purpose,
		p.Status,
		p.SessionID,
		p.ExpiresAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
}

// GetBySessionIDForUpdate loads the payment tied to a gateway checkout
// session, row-locked so duplicate callbacks for the same session
// serialize instead of both applying side effects.
// GetBySessionID reads a payment without taking its row lock, so a
// caller can learn the order id before locking rows in the canonical
// order.
func (r *PaymentRepository) GetBySessionID(tx *sql.Tx, sessionID string) (*db.Payment, error) {
	p, err := scanPayment(tx.QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE session_id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment for session '%s' not found: %w", sessionID, err)
		}
		return nil, fmt.Errorf("error querying payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetBySessionIDForUpdate(tx *sql.Tx, sessionID string) (*db.Payment, error) {
	p, err := scanPayment(tx.QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE session_id = $1 FOR UPDATE`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment for session '%s' not found: %w", sessionID, err)
		}
		return nil, fmt.Errorf("error querying payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByCode(code string) (*db.Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment with code '%s' not found: %w", code, err)
		}
		return nil, fmt.Errorf("error querying payment: %w", err)
	}
	return p, nil
}

// GetDepositForUpdate loads the deposit payment for an order.
func (r *PaymentRepository) GetDepositForUpdate(tx *sql.Tx, orderID int) (*db.Payment, error) {
	p, err := scanPayment(tx.QueryRow(`
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = $1 AND purpose = 'deposit'
		ORDER BY created_at DESC LIMIT 1 FOR UPDATE`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deposit payment for order %d not found: %w", orderID, err)
		}
		return nil, fmt.Errorf("error querying deposit payment: %w", err)
	}
	return p, nil
}

// MarkCompleted flips a pending payment to completed, recording the
// gateway transaction id and raw response. The status guard rejects
// re-completing an already-settled payment: zero rows affected means
// an illegal re-entry, which is what the confirmation handler's
// duplicate detection relies on.
func (r *PaymentRepository) MarkCompleted(tx *sql.Tx, id int, transactionID, gatewayResponse string, paidAt time.Time) (bool, error) {
	result, err := tx.Exec(`
		UPDATE payments
		SET status = 'completed', transaction_id = $2, gateway_response = $3, paid_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, transactionID, gatewayResponse, paidAt)
	if err != nil {
		return false, fmt.Errorf("error marking payment %d completed: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}

// MarkFailed flips a pending payment to failed. Same guard semantics
// as MarkCompleted.
func (r *PaymentRepository) MarkFailed(tx *sql.Tx, id int, gatewayResponse string) (bool, error) {
	result, err := tx.Exec(`
		UPDATE payments
		SET status = 'failed', gateway_response = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, gatewayResponse)
	if err != nil {
		return false, fmt.Errorf("error marking payment %d failed: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}

// MarkCancelled voids a pending payment whose order was cancelled
// before the gateway confirmed it.
func (r *PaymentRepository) MarkCancelled(tx *sql.Tx, id int) (bool, error) {
	result, err := tx.Exec(`
		UPDATE payments
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("error marking payment %d cancelled: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}

// MarkRefunded records the single allowed completed-to-refunded edge.
func (r *PaymentRepository) MarkRefunded(tx *sql.Tx, id int) (bool, error) {
	result, err := tx.Exec(`
		UPDATE payments
		SET status = 'refunded', updated_at = NOW()
		WHERE id = $1 AND status = 'completed'`, id)
	if err != nil {
		return false, fmt.Errorf("error marking payment %d refunded: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}
