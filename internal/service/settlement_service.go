package service

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"motorent/internal/config"
	"motorent/internal/db"
	"motorent/internal/entities"
	apperrors "motorent/internal/errors"
	"motorent/internal/repository"
)

const damageDescriptionSeparator = "; "

// SettlementService computes the post-rental bill once per completed
// order and drives the refund / additional-payment follow-through.
type SettlementService struct {
	DB          *sql.DB
	Settlements *repository.SettlementRepository
	Orders      *repository.OrderRepository
	Payments    *repository.PaymentRepository
	Gateway     PaymentGateway
	Cfg         *config.Config

	now func() time.Time
}

func NewSettlementService(database *sql.DB, settlements *repository.SettlementRepository, orders *repository.OrderRepository, payments *repository.PaymentRepository, gateway PaymentGateway, cfg *config.Config) *SettlementService {
	return &SettlementService{
		DB:          database,
		Settlements: settlements,
		Orders:      orders,
		Payments:    payments,
		Gateway:     gateway,
		Cfg:         cfg,
		now:         time.Now,
	}
}

// computeOvertime returns the billable overtime hours (fractional) and
// fee. Returns within the grace period cost nothing; past it, only the
// excess over the grace period is billed.
func computeOvertime(scheduled, actual time.Time, graceMinutes int, hourlyRate int64, multiplier float64) (float64, int64) {
	lateMinutes := actual.Sub(scheduled).Minutes()
	if lateMinutes <= float64(graceMinutes) {
		return 0, 0
	}
	hours := (lateMinutes - float64(graceMinutes)) / 60
	fee := int64(math.Round(hours * float64(hourlyRate) * multiplier))
	return hours, fee
}

// applyNet recomputes the derived settlement amounts from the charge
// figures. totalAdditionalCharges is always recomputed, never
// hand-edited, and exactly one of refund / additional-payment can be
// positive.
func applyNet(s *db.Settlement) {
	s.TotalAdditionalCharges = s.OvertimeFee + s.DamageCharge
	net := s.InitialDeposit - s.TotalAdditionalCharges
	if net >= 0 {
		s.DepositRefundAmount = net
		s.AdditionalPaymentRequired = 0
	} else {
		s.DepositRefundAmount = 0
		s.AdditionalPaymentRequired = -net
	}

	if s.DepositRefundAmount > 0 {
		s.RefundStatus = db.RefundPending
	} else {
		s.RefundStatus = db.RefundNotRequired
	}
	if s.AdditionalPaymentRequired > 0 {
		s.AdditionalPaymentStatus = db.AdditionalPending
	} else {
		s.AdditionalPaymentStatus = db.AdditionalNotRequired
	}
}

// CreateForOrderTx builds and inserts the settlement for an order
// being completed, inside the completion transaction, so "completed"
// and "has a settlement" are established together.
func (s *SettlementService) CreateForOrderTx(tx *sql.Tx, order *db.Order, actualReturnTime time.Time) (*db.Settlement, error) {
	overtimeHours, overtimeFee := computeOvertime(order.ToDate, actualReturnTime, s.Cfg.GracePeriodMinutes, order.HourlyRate, s.Cfg.OvertimeMultiplier)

	now := s.now().UTC()
	settlement := &db.Settlement{
		OrderID:             order.ID,
		ScheduledReturnTime: order.ToDate,
		ActualReturnTime:    actualReturnTime,
		OvertimeHours:       overtimeHours,
		OvertimeFee:         overtimeFee,
		InitialDeposit:      order.DepositAmount,
		RefundMethod:        db.RefundMethodNotSet,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	applyNet(settlement)

	if err := s.Settlements.Create(tx, settlement); err != nil {
		return nil, fmt.Errorf("error creating settlement for order %s: %w", order.Code, err)
	}
	return settlement, nil
}

// AddDamageCharge accumulates a damage finding onto the settlement.
// Descriptions concatenate so multiple findings are preserved. Only
// legal before finalization.
func (s *SettlementService) AddDamageCharge(orderCode string, req entities.DamageChargeRequest) (*entities.SettlementResponse, error) {
	if req.Amount < 0 {
		return nil, apperrors.Validation("damage amount must not be negative")
	}

	var updated *db.Settlement
	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		settlement, err := s.loadForUpdate(tx, orderCode)
		if err != nil {
			return err
		}
		if settlement.IsFinalized {
			return apperrors.IllegalTransition("settlement is finalized; no further charge edits permitted")
		}

		settlement.DamageCharge += req.Amount
		if req.Description != "" {
			if settlement.DamageDescription == "" {
				settlement.DamageDescription = req.Description
			} else {
				settlement.DamageDescription += damageDescriptionSeparator + req.Description
			}
		}
		applyNet(settlement)

		ok, err := s.Settlements.UpdateCharges(tx, settlement)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.IllegalTransition("settlement is finalized; no further charge edits permitted")
		}
		updated = settlement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.toResponse(orderCode, updated), nil
}

// Finalize sets the one-way latch. Calling it twice is an error, not a
// no-op.
func (s *SettlementService) Finalize(orderCode string) error {
	return repository.WithTx(s.DB, func(tx *sql.Tx) error {
		settlement, err := s.loadForUpdate(tx, orderCode)
		if err != nil {
			return err
		}
		ok, err := s.Settlements.Finalize(tx, settlement.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.IllegalTransition("settlement already finalized")
		}
		return nil
	})
}

// MarkRefund records the staff decision on the deposit refund. Only
// legal on a finalized settlement: charge edits stop at finalization,
// so the refund amount a decision refers to can no longer move under
// it. Re-marking an already-processed refund is rejected. For
// automatic refunds the gateway call happens after the decision
// commits, never inside the transaction.
func (s *SettlementService) MarkRefund(orderCode string, req entities.MarkRefundRequest, adminID int) error {
	method := db.RefundMethodNotSet
	switch req.Method {
	case "automatic":
		method = db.RefundMethodAutomatic
	case "manual":
		method = db.RefundMethodManual
	case "":
		if req.Processed {
			return apperrors.Validation("refund method is required when marking processed")
		}
	default:
		return apperrors.Validation("refund method must be 'automatic' or 'manual'")
	}

	status := db.RefundProcessed
	if !req.Processed {
		status = db.RefundFailed
	}

	var settlement *db.Settlement
	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		loaded, err := s.loadForUpdate(tx, orderCode)
		if err != nil {
			return err
		}
		if !loaded.IsFinalized {
			return apperrors.IllegalTransition("settlement must be finalized before the refund decision")
		}
		if loaded.RefundStatus == db.RefundNotRequired {
			return apperrors.IllegalTransition("no deposit refund is due on this settlement")
		}
		if loaded.RefundStatus != db.RefundPending {
			return apperrors.IllegalTransition(fmt.Sprintf("refund already %s", loaded.RefundStatus))
		}
		ok, err := s.Settlements.MarkRefund(tx, loaded.ID, status, method, adminID, req.Notes)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.IllegalTransition("refund already settled")
		}
		settlement = loaded
		return nil
	})
	if err != nil {
		return err
	}

	if status == db.RefundProcessed && method == db.RefundMethodAutomatic {
		s.executeGatewayRefund(orderCode, settlement)
	}
	return nil
}

// executeGatewayRefund pushes the partial deposit refund through the
// gateway and records the payment's refunded edge. Failures are logged
// for staff follow-up; the recorded decision stands.
func (s *SettlementService) executeGatewayRefund(orderCode string, settlement *db.Settlement) {
	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		deposit, err := s.Payments.GetDepositForUpdate(tx, settlement.OrderID)
		if err != nil {
			return err
		}
		if deposit.Status != db.PaymentCompleted {
			return fmt.Errorf("deposit payment for order %s is %s, not completed", orderCode, deposit.Status)
		}
		if !deposit.SessionID.Valid {
			return fmt.Errorf("deposit payment for order %s has no gateway session", orderCode)
		}
		if err := s.Gateway.RefundBySessionID(deposit.SessionID.String, settlement.DepositRefundAmount); err != nil {
			return err
		}
		_, err = s.Payments.MarkRefunded(tx, deposit.ID)
		return err
	})
	if err != nil {
		log.Printf("WARNING: automatic refund for order %s failed after being marked processed: %v", orderCode, err)
	}
}

// CreateAdditionalPayment opens a new payment attempt for the amount
// still owed after the deposit was consumed. The resulting checkout
// session is confirmed through the same gateway callback path as the
// deposit. A failed earlier attempt moves back to pending.
func (s *SettlementService) CreateAdditionalPayment(orderCode, paymentMethod string) (*entities.AdditionalPaymentResponse, error) {
	order, err := s.Orders.GetByCode(orderCode)
	if err != nil {
		return nil, apperrors.NotFound("order not found")
	}
	settlement, err := s.Settlements.GetByOrderID(order.ID)
	if err != nil {
		return nil, apperrors.NotFound("settlement not found")
	}
	if !settlement.IsFinalized {
		return nil, apperrors.IllegalTransition("settlement must be finalized before collecting additional payment")
	}
	switch settlement.AdditionalPaymentStatus {
	case db.AdditionalNotRequired:
		return nil, apperrors.IllegalTransition("no additional payment is required on this settlement")
	case db.AdditionalCompleted:
		return nil, apperrors.IllegalTransition("additional payment already completed")
	case db.AdditionalPending, db.AdditionalFailed:
	}

	// Gateway I/O happens before the transaction; no lock is held
	// while waiting on the provider.
	sess, err := s.Gateway.CreateCheckoutSession(
		settlement.AdditionalPaymentRequired,
		s.Cfg.Currency,
		fmt.Sprintf("Motorent additional charges for order %s", order.Code),
		order.UserEmail,
	)
	if err != nil {
		log.Printf("Error creating additional-charge checkout session for order %s: %v", orderCode, err)
		return nil, apperrors.Upstream("payment gateway unavailable")
	}

	now := s.now().UTC()
	payment := &db.Payment{
		Code:          newPaymentCode(now),
		OrderID:       order.ID,
		Amount:        settlement.AdditionalPaymentRequired,
		PaymentMethod: paymentMethod,
		Purpose:       db.PurposeAdditionalCharge,
		Status:        db.PaymentPending,
		SessionID:     sql.NullString{String: sess.ID, Valid: true},
		ExpiresAt:     sql.NullTime{Time: now.Add(s.Cfg.PendingOrderTTL), Valid: true},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = repository.WithTx(s.DB, func(tx *sql.Tx) error {
		if settlement.AdditionalPaymentStatus == db.AdditionalFailed {
			ok, err := s.Settlements.TransitionAdditionalPayment(tx, settlement.ID, db.AdditionalFailed, db.AdditionalPending)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.Conflict("additional payment state changed; retry")
			}
		}
		return s.Payments.Create(tx, payment)
	})
	if err != nil {
		return nil, err
	}

	return &entities.AdditionalPaymentResponse{
		PaymentCode: payment.Code,
		CheckoutURL: sess.URL,
		SessionID:   sess.ID,
		Amount:      payment.Amount,
	}, nil
}

func (s *SettlementService) GetByOrderCode(orderCode string) (*entities.SettlementResponse, error) {
	order, err := s.Orders.GetByCode(orderCode)
	if err != nil {
		return nil, apperrors.NotFound("order not found")
	}
	settlement, err := s.Settlements.GetByOrderID(order.ID)
	if err != nil {
		return nil, apperrors.NotFound("settlement not found")
	}
	return s.toResponse(orderCode, settlement), nil
}

func (s *SettlementService) loadForUpdate(tx *sql.Tx, orderCode string) (*db.Settlement, error) {
	order, err := s.Orders.GetByCodeForUpdate(tx, orderCode)
	if err != nil {
		return nil, apperrors.NotFound("order not found")
	}
	settlement, err := s.Settlements.GetByOrderID(order.ID)
	if err != nil {
		return nil, apperrors.NotFound("settlement not found")
	}
	return s.Settlements.GetByIDForUpdate(tx, settlement.ID)
}

func (s *SettlementService) toResponse(orderCode string, settlement *db.Settlement) *entities.SettlementResponse {
	return &entities.SettlementResponse{
		OrderCode:                 orderCode,
		ScheduledReturnTime:       settlement.ScheduledReturnTime,
		ActualReturnTime:          settlement.ActualReturnTime,
		OvertimeHours:             settlement.OvertimeHours,
		OvertimeFee:               settlement.OvertimeFee,
		DamageCharge:              settlement.DamageCharge,
		DamageDescription:         settlement.DamageDescription,
		InitialDeposit:            settlement.InitialDeposit,
		TotalAdditionalCharges:    settlement.TotalAdditionalCharges,
		DepositRefundAmount:       settlement.DepositRefundAmount,
		AdditionalPaymentRequired: settlement.AdditionalPaymentRequired,
		IsFinalized:               settlement.IsFinalized,
		RefundStatus:              string(settlement.RefundStatus),
		RefundMethod:              string(settlement.RefundMethod),
		AdditionalPaymentStatus:   string(settlement.AdditionalPaymentStatus),
	}
}
