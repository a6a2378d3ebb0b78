package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"motorent/internal/db"
)

type SettlementRepository struct {
	DB *sql.DB
}

func NewSettlementRepository(database *sql.DB) *SettlementRepository {
	return &SettlementRepository{DB: database}
}

const settlementColumns = `id, order_id, scheduled_return_time, actual_return_time, overtime_hours,
	overtime_fee, damage_charge, damage_description, initial_deposit, total_additional_charges,
	deposit_refund_amount, additional_payment_required, is_finalized, refund_status, refund_method,
	refunded_by, refund_notes, additional_payment_status, created_at, updated_at`

func scanSettlement(row rowScanner) (*db.Settlement, error) {
	var s db.Settlement
	err := row.Scan(
		&s.ID, &s.OrderID, &s.ScheduledReturnTime, &s.ActualReturnTime, &s.OvertimeHours,
		&s.OvertimeFee, &s.DamageCharge, &s.DamageDescription, &s.InitialDeposit, &s.TotalAdditionalCharges,
		&s.DepositRefundAmount, &s.AdditionalPaymentRequired, &s.IsFinalized, &s.RefundStatus, &s.RefundMethod,
		&s.RefundedBy, &s.RefundNotes, &s.AdditionalPaymentStatus, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettlementRepository) Create(tx *sql.Tx, s *db.Settlement) error {
	query := `
		INSERT INTO settlements
		(order_id, scheduled_return_time, actual_return_time, overtime_hours, overtime_fee,
		 damage_charge, damage_description, initial_deposit, total_additional_charges,
		 deposit_refund_amount, additional_payment_required, is_finalized, refund_status,
		 refund_method, additional_payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`
	return tx.QueryRow(query,
		s.OrderID,
		s.ScheduledReturnTime,
		s.ActualReturnTime,
		s.OvertimeHours,
		s.OvertimeFee,
		s.DamageCharge,
		s.DamageDescription,
		s.InitialDeposit,
		s.TotalAdditionalCharges,
		s.DepositRefundAmount,
		s.AdditionalPaymentRequired,
		s.IsFinalized,
		s.RefundStatus,
		s.RefundMethod,
		s.AdditionalPaymentStatus,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)
}

func (r *SettlementRepository) GetByOrderID(orderID int) (*db.Settlement, error) {
	s, err := scanSettlement(r.DB.QueryRow(`SELECT `+settlementColumns+` FROM settlements WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settlement for order %d not found: %w", orderID, err)
		}
		return nil, fmt.Errorf("error querying settlement: %w", err)
	}
	return s, nil
}

func (r *SettlementRepository) GetByIDForUpdate(tx *sql.Tx, id int) (*db.Settlement, error) {
	s, err := scanSettlement(tx.QueryRow(`SELECT `+settlementColumns+` FROM settlements WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settlement %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("error querying settlement: %w", err)
	}
	return s, nil
}

// UpdateCharges rewrites the charge figures and the recomputed net
// amounts. Guarded on is_finalized so no charge edit can land after
// the one-way finalize latch.
func (r *SettlementRepository) UpdateCharges(tx *sql.Tx, s *db.Settlement) (bool, error) {
	result, err := tx.Exec(`
		UPDATE settlements
		SET damage_charge = $2,
		    damage_description = $3,
		    total_additional_charges = $4,
		    deposit_refund_amount = $5,
		    additional_payment_required = $6,
		    refund_status = $7,
		    additional_payment_status = $8,
		    updated_at = NOW()
		WHERE id = $1 AND is_finalized = FALSE`,
		s.ID, s.DamageCharge, s.DamageDescription, s.TotalAdditionalCharges,
		s.DepositRefundAmount, s.AdditionalPaymentRequired, s.RefundStatus, s.AdditionalPaymentStatus)
	if err != nil {
		return false, fmt.Errorf("error updating settlement %d charges: %w", s.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}

// Finalize sets the one-way latch. A second call affects zero rows.
func (r *SettlementRepository) Finalize(tx *sql.Tx, id int) (bool, error) {
	result, err := tx.Exec(`
		UPDATE settlements
		SET is_finalized = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_finalized = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("error finalizing settlement %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}

// MarkRefund records the staff decision on the deposit refund. Guarded
// on the pending sub-state: re-marking an already-processed refund
// affects zero rows.
func (r *SettlementRepository) MarkRefund(tx *sql.Tx, id int, status db.RefundStatus, method db.RefundMethod, adminID int, notes string) (bool, error) {
	var notesArg sql.NullString
	if notes != "" {
		notesArg = sql.NullString{String: notes, Valid: true}
	}
	result, err := tx.Exec(`
		UPDATE settlements
		SET refund_status = $2, refund_method = $3, refunded_by = $4, refund_notes = $5, updated_at = NOW()
		WHERE id = $1 AND refund_status = 'pending'`, id, status, method, adminID, notesArg)
	if err != nil {
		return false, fmt.Errorf("error marking refund on settlement %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}

// TransitionAdditionalPayment advances the additional-payment
// sub-state, guarded by the current value.
func (r *SettlementRepository) TransitionAdditionalPayment(tx *sql.Tx, id int, from, to db.AdditionalPaymentStatus) (bool, error) {
	result, err := tx.Exec(`
		UPDATE settlements
		SET additional_payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND additional_payment_status = $2`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("error transitioning additional payment on settlement %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected == 1, nil
}
