package service

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"motorent/internal/config"
	"motorent/internal/db"
	apperrors "motorent/internal/errors"
	"motorent/internal/repository"
)

func newOrderServiceForTest(t *testing.T) (*OrderService, *fakeGateway, sqlmock.Sqlmock, func()) {
	t.Helper()
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}

	cfg := &config.Config{
		Currency:           "eur",
		LockTTL:            5 * time.Minute,
		PendingOrderTTL:    15 * time.Minute,
		GracePeriodMinutes: 60,
		OvertimeMultiplier: 1.5,
		BusinessHours:      allDayBusinessHours(),
	}
	orderRepo := repository.NewOrderRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	settlementRepo := repository.NewSettlementRepository(database)
	vehicleRepo := repository.NewVehicleRepository(database)
	lockRepo := repository.NewLockRepository(database)
	gateway := newFakeGateway()

	availability := NewAvailabilityService(database, orderRepo, lockRepo)
	lockSvc := NewLockService(database, lockRepo, vehicleRepo, availability, cfg)
	settlementSvc := NewSettlementService(database, settlementRepo, orderRepo, paymentRepo, gateway, cfg)
	svc := NewOrderService(database, orderRepo, paymentRepo, vehicleRepo, lockSvc, availability, settlementSvc, gateway, NewTrustScoreClient(""), NewSenderService(), cfg)
	return svc, gateway, mock, func() { database.Close() }
}

func allDayBusinessHours() map[time.Weekday]config.BusinessWindow {
	hours := make(map[time.Weekday]config.BusinessWindow, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		hours[day] = config.BusinessWindow{OpenMinute: 0, CloseMinute: 24 * 60}
	}
	return hours
}

func TestRentalCost(t *testing.T) {
	from := time.Date(2026, time.September, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(400000), rentalCost(from, from.Add(8*time.Hour), 50000))
	assert.Equal(t, int64(25000), rentalCost(from, from.Add(30*time.Minute), 50000))
	assert.Equal(t, int64(1200000), rentalCost(from, from.Add(24*time.Hour), 50000))
}

func TestStartRejectsPendingOrder(t *testing.T) {
	svc, _, mock, done := newOrderServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE code").
		WithArgs("ORD-1").
		WillReturnRows(orderRow(42, "ORD-1", db.OrderPending, now))
	mock.ExpectRollback()

	_, err := svc.Start("ORD-1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindIllegalTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartMovesConfirmedOrderToInProgress(t *testing.T) {
	svc, _, mock, done := newOrderServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE code").
		WithArgs("ORD-1").
		WillReturnRows(orderRow(42, "ORD-1", db.OrderConfirmed, now))
	mock.ExpectExec("UPDATE orders").
		WithArgs(42, db.OrderConfirmed, db.OrderInProgress, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Start("ORD-1")
	assert.NoError(t, err)
	assert.Equal(t, string(db.OrderInProgress), res.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRejectsInProgressOrder(t *testing.T) {
	svc, gateway, mock, done := newOrderServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE code").
		WithArgs("ORD-1").
		WillReturnRows(orderRow(42, "ORD-1", db.OrderInProgress, now))
	mock.ExpectRollback()

	err := svc.Cancel("ORD-1", "changed my mind")
	assert.True(t, apperrors.IsKind(err, apperrors.KindIllegalTransition))
	assert.Empty(t, gateway.refunds, "no refund may fire for a rejected cancellation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRejectsCompletedOrder(t *testing.T) {
	svc, _, mock, done := newOrderServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE code").
		WithArgs("ORD-1").
		WillReturnRows(orderRow(42, "ORD-1", db.OrderCompleted, now))
	mock.ExpectRollback()

	err := svc.Cancel("ORD-1", "too late")
	assert.True(t, apperrors.IsKind(err, apperrors.KindIllegalTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Cancelling a confirmed order refunds the completed deposit through
// the gateway after the cancellation has committed.
func TestCancelConfirmedOrderRefundsDeposit(t *testing.T) {
	svc, gateway, mock, done := newOrderServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE code").
		WithArgs("ORD-1").
		WillReturnRows(orderRow(42, "ORD-1", db.OrderConfirmed, now))
	mock.ExpectExec("UPDATE orders").
		WithArgs(42, db.OrderConfirmed, db.OrderCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM payments").
		WithArgs(42).
		WillReturnRows(paymentRow(9, 42, "sess_1", db.PurposeDeposit, db.PaymentCompleted, now))
	mock.ExpectCommit()

	// Post-commit refund bookkeeping runs in its own transaction.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments").
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.Cancel("ORD-1", "customer request")
	assert.NoError(t, err)
	assert.Equal(t, int64(500000), gateway.refunds["sess_1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
