package service

import (
	"database/sql"
	"errors"
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

// OrderService owns the order lifecycle from lock consumption to
// completion. Every status change runs as a guarded transition inside
// a single transaction; gateway calls stay outside transactions.
type OrderService struct {
	DB           *sql.DB
	Orders       *repository.OrderRepository
	Payments     *repository.PaymentRepository
	Vehicles     *repository.VehicleRepository
	LockSvc      *LockService
	Availability *AvailabilityService
	Settlement   *SettlementService
	Gateway      PaymentGateway
	Trust        TrustScoreClient
	Sender       *SenderService
	Cfg          *config.Config

	now func() time.Time
}

func NewOrderService(database *sql.DB, orders *repository.OrderRepository, payments *repository.PaymentRepository, vehicles *repository.VehicleRepository, lockSvc *LockService, availability *AvailabilityService, settlement *SettlementService, gateway PaymentGateway, trust TrustScoreClient, sender *SenderService, cfg *config.Config) *OrderService {
	return &OrderService{
		DB:           database,
		Orders:       orders,
		Payments:     payments,
		Vehicles:     vehicles,
		LockSvc:      lockSvc,
		Availability: availability,
		Settlement:   settlement,
		Gateway:      gateway,
		Trust:        trust,
		Sender:       sender,
		Cfg:          cfg,
		now:          time.Now,
	}
}

// Create converts a reservation lock into a pending order plus its
// deposit checkout session. The lock is consumed, availability is
// re-checked against everything except the lock itself, and the order
// and deposit payment rows land in the same transaction. The order
// stays pending until the gateway confirms the deposit.
func (s *OrderService) Create(req entities.CreateOrderRequest) (*entities.CreateOrderResponse, error) {
	if req.LockToken == "" {
		return nil, apperrors.Validation("lock_token is required")
	}
	if req.UserEmail == "" {
		return nil, apperrors.Validation("user_email is required")
	}

	now := s.now().UTC()

	// Read-only peek at the lock so vehicle, pricing and the checkout
	// session can be prepared before any row lock is taken.
	lock, err := s.LockSvc.Locks.GetByToken(req.LockToken)
	if err != nil {
		return nil, apperrors.NotFound("lock not found")
	}
	vehicle, err := s.Vehicles.GetByID(lock.VehicleID)
	if err != nil {
		return nil, apperrors.NotFound("vehicle not found")
	}

	trustScore, err := s.Trust.GetScore(lock.UserID)
	if err != nil {
		log.Printf("Error fetching trust score for user %d, using default: %v", lock.UserID, err)
		trustScore = defaultTrustScore
	}

	totalCost := rentalCost(lock.FromDate, lock.ToDate, vehicle.HourlyRate)
	orderCode := newOrderCode(now)

	sess, err := s.Gateway.CreateCheckoutSession(
		vehicle.DepositAmount,
		s.Cfg.Currency,
		fmt.Sprintf("Motorent deposit for order %s", orderCode),
		req.UserEmail,
	)
	if err != nil {
		log.Printf("Error creating checkout session for order %s: %v", orderCode, err)
		return nil, apperrors.Upstream("payment gateway unavailable")
	}

	expiresAt := now.Add(s.Cfg.PendingOrderTTL)
	order := &db.Order{
		Code:                orderCode,
		UserID:              lock.UserID,
		UserEmail:           req.UserEmail,
		UserPhone:           req.UserPhone,
		VehicleID:           lock.VehicleID,
		FromDate:            lock.FromDate,
		ToDate:              lock.ToDate,
		TotalCost:           totalCost,
		DepositAmount:       vehicle.DepositAmount,
		HourlyRate:          vehicle.HourlyRate,
		TrustScoreAtBooking: trustScore,
		PreviewToken:        lock.Token,
		Status:              db.OrderPending,
		ExpiresAt:           sql.NullTime{Time: expiresAt, Valid: true},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	payment := &db.Payment{
		Code:          newPaymentCode(now),
		Amount:        vehicle.DepositAmount,
		PaymentMethod: req.PaymentMethod,
		Purpose:       db.PurposeDeposit,
		Status:        db.PaymentPending,
		SessionID:     sql.NullString{String: sess.ID, Valid: true},
		ExpiresAt:     sql.NullTime{Time: expiresAt, Valid: true},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = repository.WithTx(s.DB, func(tx *sql.Tx) error {
		if _, err := s.Vehicles.LockRow(tx, lock.VehicleID); err != nil {
			return apperrors.NotFound("vehicle not found")
		}

		consumed, err := s.LockSvc.ConsumeTx(tx, req.LockToken, now)
		if err != nil {
			return err
		}

		// The consumed lock no longer blocks, so exclude its token
		// from the re-check. Anything else overlapping means another
		// flow won the range between lock expiry and now.
		available, err := s.Availability.IsAvailableTx(tx, consumed.VehicleID, consumed.FromDate, consumed.ToDate, now, 0, consumed.Token)
		if err != nil {
			return err
		}
		if !available {
			return apperrors.Conflict("vehicle is no longer available for the requested range")
		}

		if err := s.Orders.Create(tx, order); err != nil {
			return err
		}
		payment.OrderID = order.ID
		return s.Payments.Create(tx, payment)
	})
	if err != nil {
		return nil, err
	}

	return &entities.CreateOrderResponse{
		OrderCode:   order.Code,
		CheckoutURL: sess.URL,
		SessionID:   sess.ID,
		ExpiresAt:   expiresAt,
	}, nil
}

// ConfirmTx moves a pending order to confirmed inside the caller's
// transaction. Used by the payment confirmation flow.
func (s *OrderService) ConfirmTx(tx *sql.Tx, order *db.Order) error {
	if !order.Status.CanTransition(db.OrderConfirmed) {
		return apperrors.IllegalTransition(fmt.Sprintf("order %s cannot be confirmed from status %s", order.Code, order.Status))
	}
	ok, err := s.Orders.TransitionStatus(tx, order.ID, order.Status, db.OrderConfirmed, "")
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Conflict("order status changed concurrently")
	}
	return nil
}

// Start is the handover: the customer picks up the vehicle and a
// confirmed order moves to in progress.
func (s *OrderService) Start(code string) (*entities.OrderResponse, error) {
	var order *db.Order
	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		loaded, err := s.Orders.GetByCodeForUpdate(tx, code)
		if err != nil {
			return apperrors.NotFound("order not found")
		}
		if !loaded.Status.CanTransition(db.OrderInProgress) {
			return apperrors.IllegalTransition(fmt.Sprintf("order %s cannot start from status %s", code, loaded.Status))
		}
		ok, err := s.Orders.TransitionStatus(tx, loaded.ID, loaded.Status, db.OrderInProgress, "")
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("order status changed concurrently")
		}
		loaded.Status = db.OrderInProgress
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(order, "in progress")
	return toOrderResponse(order), nil
}

// Complete is the vehicle return: the order moves to completed and its
// settlement is created in the same transaction, so a completed order
// always has a bill attached.
func (s *OrderService) Complete(code string, actualReturnTime time.Time) (*entities.SettlementResponse, error) {
	if actualReturnTime.IsZero() {
		actualReturnTime = s.now().UTC()
	}

	var (
		order      *db.Order
		settlement *db.Settlement
	)
	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		loaded, err := s.Orders.GetByCodeForUpdate(tx, code)
		if err != nil {
			return apperrors.NotFound("order not found")
		}
		if !loaded.Status.CanTransition(db.OrderCompleted) {
			return apperrors.IllegalTransition(fmt.Sprintf("order %s cannot be completed from status %s", code, loaded.Status))
		}
		ok, err := s.Orders.TransitionStatus(tx, loaded.ID, loaded.Status, db.OrderCompleted, "")
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("order status changed concurrently")
		}
		loaded.Status = db.OrderCompleted

		settlement, err = s.Settlement.CreateForOrderTx(tx, loaded, actualReturnTime.UTC())
		if err != nil {
			return err
		}
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(order, "completed")
	s.Trust.ReportCompletion(order.UserID, order.Code)
	return s.Settlement.toResponse(order.Code, settlement), nil
}

// Cancel aborts an order that has not been handed over yet. A pending
// deposit payment is voided; a completed one is refunded in full
// through the gateway after the cancellation commits.
func (s *OrderService) Cancel(code, reason string) error {
	var (
		order   *db.Order
		deposit *db.Payment
	)
	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		loaded, err := s.Orders.GetByCodeForUpdate(tx, code)
		if err != nil {
			return apperrors.NotFound("order not found")
		}
		if !loaded.Status.CanTransition(db.OrderCancelled) {
			return apperrors.IllegalTransition(fmt.Sprintf("order %s cannot be cancelled from status %s", code, loaded.Status))
		}
		ok, err := s.Orders.TransitionStatus(tx, loaded.ID, loaded.Status, db.OrderCancelled, reason)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("order status changed concurrently")
		}

		pay, err := s.Payments.GetDepositForUpdate(tx, loaded.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				loaded.Status = db.OrderCancelled
				order = loaded
				return nil
			}
			return err
		}
		if pay.Status == db.PaymentPending {
			if _, err := s.Payments.MarkCancelled(tx, pay.ID); err != nil {
				return err
			}
		}
		loaded.Status = db.OrderCancelled
		order = loaded
		deposit = pay
		return nil
	})
	if err != nil {
		return err
	}

	if deposit != nil && deposit.Status == db.PaymentCompleted {
		s.refundDeposit(order, deposit)
	}
	if order != nil {
		s.notify(order, "cancelled")
	}
	return nil
}

// refundDeposit pushes the full deposit back through the gateway after
// a cancellation commits. A gateway failure leaves the payment
// completed for staff to refund manually; the cancellation stands.
func (s *OrderService) refundDeposit(order *db.Order, deposit *db.Payment) {
	if !deposit.SessionID.Valid {
		log.Printf("WARNING: deposit payment %s for order %s has no gateway session; manual refund required", deposit.Code, order.Code)
		return
	}
	if err := s.Gateway.RefundBySessionID(deposit.SessionID.String, deposit.Amount); err != nil {
		log.Printf("WARNING: deposit refund for cancelled order %s failed: %v", order.Code, err)
		return
	}
	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		_, err := s.Payments.MarkRefunded(tx, deposit.ID)
		return err
	})
	if err != nil {
		log.Printf("WARNING: deposit for order %s refunded at gateway but not recorded: %v", order.Code, err)
	}
}

// GetByCode returns the order for the given public code.
func (s *OrderService) GetByCode(code string) (*entities.OrderResponse, error) {
	order, err := s.Orders.GetByCode(code)
	if err != nil {
		return nil, apperrors.NotFound("order not found")
	}
	return toOrderResponse(order), nil
}

// List returns orders for the staff console, optionally filtered by
// status.
func (s *OrderService) List(status string, limit, offset int) (*entities.OrdersList, error) {
	if status != "" && !db.ValidOrderStatus(status) {
		return nil, apperrors.Validation(fmt.Sprintf("unknown order status %q", status))
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	orders, err := s.Orders.List(status, limit, offset)
	if err != nil {
		return nil, err
	}
	list := &entities.OrdersList{Total: len(orders), Orders: make([]entities.OrderResponse, 0, len(orders))}
	for i := range orders {
		list.Orders = append(list.Orders, *toOrderResponse(&orders[i]))
	}
	return list, nil
}

func (s *OrderService) notify(order *db.Order, status string) {
	vehicle, err := s.Vehicles.GetByID(order.VehicleID)
	if err != nil {
		log.Printf("Error loading vehicle %d for order %s notification: %v", order.VehicleID, order.Code, err)
		vehicle = nil
	}
	s.Sender.SendOrderEmail(*order, vehicle, status)
	if order.UserPhone != "" {
		s.Sender.SendOrderSMS(*order, status)
	}
}

// rentalCost prices the booked range at the vehicle's hourly rate.
func rentalCost(from, to time.Time, hourlyRate int64) int64 {
	hours := to.Sub(from).Hours()
	return int64(math.Round(hours * float64(hourlyRate)))
}

func toOrderResponse(o *db.Order) *entities.OrderResponse {
	resp := &entities.OrderResponse{
		Code:                o.Code,
		UserID:              o.UserID,
		VehicleID:           o.VehicleID,
		FromDate:            o.FromDate,
		ToDate:              o.ToDate,
		TotalCost:           o.TotalCost,
		DepositAmount:       o.DepositAmount,
		HourlyRate:          o.HourlyRate,
		TrustScoreAtBooking: o.TrustScoreAtBooking,
		Status:              string(o.Status),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	if o.CancellationReason.Valid {
		resp.CancellationReason = o.CancellationReason.String
	}
	if o.ExpiresAt.Valid {
		t := o.ExpiresAt.Time
		resp.ExpiresAt = &t
	}
	return resp
}
