package service

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"motorent/internal/db"
	apperrors "motorent/internal/errors"
	"motorent/internal/repository"
)

// PaymentService applies gateway outcomes to payment rows. Webhook
// delivery is at-least-once, so ConfirmPayment must be exactly-once on
// our side: the payment row is locked by session id and replays of an
// already-completed payment are accepted without re-running effects.
type PaymentService struct {
	DB          *sql.DB
	Payments    *repository.PaymentRepository
	Orders      *repository.OrderRepository
	Settlements *repository.SettlementRepository
	OrderSvc    *OrderService
	Gateway     PaymentGateway

	now func() time.Time
}

func NewPaymentService(database *sql.DB, payments *repository.PaymentRepository, orders *repository.OrderRepository, settlements *repository.SettlementRepository, orderSvc *OrderService, gateway PaymentGateway) *PaymentService {
	return &PaymentService{
		DB:          database,
		Payments:    payments,
		Orders:      orders,
		Settlements: settlements,
		OrderSvc:    orderSvc,
		Gateway:     gateway,
		now:         time.Now,
	}
}

// ConfirmPayment records a successful gateway charge. Deposit payments
// confirm their pending order in the same transaction; additional
// charges complete the settlement's collection sub-state. A replay for
// a payment already completed returns success with no further effect.
func (s *PaymentService) ConfirmPayment(sessionID, transactionID, gatewayResponse string) error {
	var (
		order        *db.Order
		refundNeeded *db.Payment
	)
	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		peek, err := s.Payments.GetBySessionID(tx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound(fmt.Sprintf("no payment for session %s", sessionID))
			}
			return err
		}
		if peek.Status == db.PaymentCompleted {
			// Webhook replay. The first delivery already did the work.
			return nil
		}
		if peek.Status != db.PaymentPending {
			return apperrors.IllegalTransition(fmt.Sprintf("payment %s is %s and cannot be completed", peek.Code, peek.Status))
		}

		// Row locks are taken order first, then payment, in every flow
		// that touches both.
		loaded, err := s.Orders.GetByID(tx, peek.OrderID)
		if err != nil {
			return err
		}
		payment, err := s.Payments.GetBySessionIDForUpdate(tx, sessionID)
		if err != nil {
			return err
		}
		if payment.Status == db.PaymentCompleted {
			// A concurrent delivery won the race between the unlocked
			// read and the lock.
			return nil
		}
		if payment.Status != db.PaymentPending {
			return apperrors.IllegalTransition(fmt.Sprintf("payment %s is %s and cannot be completed", payment.Code, payment.Status))
		}

		ok, err := s.Payments.MarkCompleted(tx, payment.ID, transactionID, gatewayResponse, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("payment status changed concurrently")
		}

		switch payment.Purpose {
		case db.PurposeDeposit:
			switch loaded.Status {
			case db.OrderPending:
				if err := s.OrderSvc.ConfirmTx(tx, loaded); err != nil {
					return err
				}
				loaded.Status = db.OrderConfirmed
				order = loaded
			case db.OrderConfirmed:
				// Already confirmed through another path; nothing to do.
			default:
				// The money arrived after the order died. Keep the
				// completed payment as the record of the charge and
				// push it back through the gateway after commit.
				log.Printf("WARNING: deposit for order %s completed while order is %s; refunding", loaded.Code, loaded.Status)
				refundNeeded = payment
				order = loaded
			}
		case db.PurposeAdditionalCharge:
			return s.completeAdditionalCharge(tx, payment)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if refundNeeded != nil {
		s.refundStrayDeposit(order, refundNeeded)
		return nil
	}
	if order != nil {
		s.OrderSvc.notify(order, "confirmed")
	}
	return nil
}

// completeAdditionalCharge flips the settlement's collection sub-state
// once the owed amount is paid. A failed sub-state still accepts the
// completion; the customer may have retried an old checkout link.
func (s *PaymentService) completeAdditionalCharge(tx *sql.Tx, payment *db.Payment) error {
	settlement, err := s.Settlements.GetByOrderID(payment.OrderID)
	if err != nil {
		return fmt.Errorf("error loading settlement for order %d: %w", payment.OrderID, err)
	}
	locked, err := s.Settlements.GetByIDForUpdate(tx, settlement.ID)
	if err != nil {
		return err
	}
	switch locked.AdditionalPaymentStatus {
	case db.AdditionalCompleted:
		return nil
	case db.AdditionalPending, db.AdditionalFailed:
		ok, err := s.Settlements.TransitionAdditionalPayment(tx, locked.ID, locked.AdditionalPaymentStatus, db.AdditionalCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("additional payment state changed concurrently")
		}
		return nil
	default:
		return apperrors.IllegalTransition(fmt.Sprintf("settlement for order %d requires no additional payment", payment.OrderID))
	}
}

// MarkPaymentFailed records a failed or expired gateway session. A
// deposit's order stays pending until the expiry sweep cancels it; an
// additional charge moves its settlement sub-state to failed so staff
// can open a new attempt.
func (s *PaymentService) MarkPaymentFailed(sessionID, gatewayResponse string) error {
	return repository.WithTx(s.DB, func(tx *sql.Tx) error {
		peek, err := s.Payments.GetBySessionID(tx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound(fmt.Sprintf("no payment for session %s", sessionID))
			}
			return err
		}
		if peek.Status == db.PaymentCompleted {
			return apperrors.IllegalTransition(fmt.Sprintf("payment %s already completed; failure signal contradicts recorded outcome", peek.Code))
		}
		if peek.Status != db.PaymentPending {
			// Same outcome replayed; harmless.
			return nil
		}

		// Order row before payment row, matching the other flows.
		if _, err := s.Orders.GetByID(tx, peek.OrderID); err != nil {
			return err
		}
		payment, err := s.Payments.GetBySessionIDForUpdate(tx, sessionID)
		if err != nil {
			return err
		}
		if payment.Status == db.PaymentCompleted {
			return apperrors.IllegalTransition(fmt.Sprintf("payment %s already completed; failure signal contradicts recorded outcome", payment.Code))
		}
		if payment.Status != db.PaymentPending {
			return nil
		}
		if _, err := s.Payments.MarkFailed(tx, payment.ID, gatewayResponse); err != nil {
			return err
		}
		if payment.Purpose != db.PurposeAdditionalCharge {
			return nil
		}

		settlement, err := s.Settlements.GetByOrderID(payment.OrderID)
		if err != nil {
			return fmt.Errorf("error loading settlement for order %d: %w", payment.OrderID, err)
		}
		locked, err := s.Settlements.GetByIDForUpdate(tx, settlement.ID)
		if err != nil {
			return err
		}
		if locked.AdditionalPaymentStatus != db.AdditionalPending {
			return nil
		}
		_, err = s.Settlements.TransitionAdditionalPayment(tx, locked.ID, db.AdditionalPending, db.AdditionalFailed)
		return err
	})
}

// refundStrayDeposit reverses a charge that landed on a dead order.
func (s *PaymentService) refundStrayDeposit(order *db.Order, payment *db.Payment) {
	if !payment.SessionID.Valid {
		return
	}
	if err := s.Gateway.RefundBySessionID(payment.SessionID.String, payment.Amount); err != nil {
		log.Printf("WARNING: refund of stray deposit for order %s failed: %v", order.Code, err)
		return
	}
	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		_, err := s.Payments.MarkRefunded(tx, payment.ID)
		return err
	})
	if err != nil {
		log.Printf("WARNING: stray deposit for order %s refunded at gateway but not recorded: %v", order.Code, err)
	}
}
