package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"motorent/internal/config"
	"motorent/internal/db"
	apperrors "motorent/internal/errors"
	"motorent/internal/repository"
)

// fakeGateway records calls so tests can assert which gateway
// interactions a flow triggered.
type fakeGateway struct {
	sessions     []string
	refunds      map[string]int64
	failCheckout bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{refunds: map[string]int64{}}
}

func (g *fakeGateway) CreateCheckoutSession(amount int64, currency, description, customerEmail string) (*CheckoutSession, error) {
	if g.failCheckout {
		return nil, fmt.Errorf("gateway down")
	}
	id := fmt.Sprintf("sess_%d", len(g.sessions)+1)
	g.sessions = append(g.sessions, id)
	return &CheckoutSession{ID: id, URL: "https://checkout.example/" + id}, nil
}

func (g *fakeGateway) RefundBySessionID(sessionID string, amount int64) error {
	g.refunds[sessionID] += amount
	return nil
}

var paymentTestColumns = []string{
	"id", "code", "order_id", "amount", "payment_method", "purpose", "status", "transaction_id",
	"session_id", "paid_at", "gateway_response", "expires_at", "created_at", "updated_at",
}

var orderTestColumns = []string{
	"id", "code", "user_id", "user_email", "user_phone", "vehicle_id", "from_date", "to_date",
	"total_cost", "deposit_amount", "hourly_rate", "trust_score_at_booking", "preview_token",
	"status", "cancellation_reason", "expires_at", "created_at", "updated_at",
}

func paymentRow(id int, orderID int, sessionID string, purpose db.PaymentPurpose, status db.PaymentStatus, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(paymentTestColumns).
		AddRow(id, fmt.Sprintf("PAY-%08X", id), orderID, 500000, "card", purpose, status, nil,
			sessionID, nil, nil, nil, now, now)
}

func orderRow(id int, code string, status db.OrderStatus, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(orderTestColumns).
		AddRow(id, code, 7, "rider@example.com", "", 5, now.Add(time.Hour), now.Add(9*time.Hour),
			400000, 500000, 50000, 100, "tok-1", status, nil, nil, now, now)
}

func newPaymentServiceForTest(t *testing.T) (*PaymentService, sqlmock.Sqlmock, func()) {
	t.Helper()
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}

	cfg := &config.Config{Currency: "eur", PendingOrderTTL: 15 * time.Minute}
	orderRepo := repository.NewOrderRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	settlementRepo := repository.NewSettlementRepository(database)
	vehicleRepo := repository.NewVehicleRepository(database)
	gateway := newFakeGateway()

	orderSvc := &OrderService{
		DB:       database,
		Orders:   orderRepo,
		Payments: paymentRepo,
		Vehicles: vehicleRepo,
		Gateway:  gateway,
		Trust:    NewTrustScoreClient(""),
		Sender:   NewSenderService(),
		Cfg:      cfg,
		now:      time.Now,
	}
	svc := &PaymentService{
		DB:          database,
		Payments:    paymentRepo,
		Orders:      orderRepo,
		Settlements: settlementRepo,
		OrderSvc:    orderSvc,
		Gateway:     gateway,
		now:         time.Now,
	}
	return svc, mock, func() { database.Close() }
}

// The expectations are ordered: the order row lock is taken before the
// payment row lock, the same sequence the cancellation flow uses.
func TestConfirmPaymentDepositConfirmsOrder(t *testing.T) {
	svc, mock, done := newPaymentServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE session_id").
		WithArgs("sess_1").
		WillReturnRows(paymentRow(1, 42, "sess_1", db.PurposeDeposit, db.PaymentPending, now))
	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs(42).
		WillReturnRows(orderRow(42, "ORD-1", db.OrderPending, now))
	mock.ExpectQuery("FROM payments WHERE session_id").
		WithArgs("sess_1").
		WillReturnRows(paymentRow(1, 42, "sess_1", db.PurposeDeposit, db.PaymentPending, now))
	mock.ExpectExec("UPDATE payments").
		WithArgs(1, "pi_123", "checkout.session.completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders").
		WithArgs(42, db.OrderPending, db.OrderConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.ConfirmPayment("sess_1", "pi_123", "checkout.session.completed")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A replayed success callback for an already-completed payment must be
// a pure no-op: no updates, no order transition, no notifications.
func TestConfirmPaymentReplayIsNoOp(t *testing.T) {
	svc, mock, done := newPaymentServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE session_id").
		WithArgs("sess_1").
		WillReturnRows(paymentRow(1, 42, "sess_1", db.PurposeDeposit, db.PaymentCompleted, now))
	mock.ExpectCommit()

	err := svc.ConfirmPayment("sess_1", "pi_123", "checkout.session.completed")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPaymentRejectsIllegalReentry(t *testing.T) {
	svc, mock, done := newPaymentServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE session_id").
		WithArgs("sess_1").
		WillReturnRows(paymentRow(1, 42, "sess_1", db.PurposeDeposit, db.PaymentFailed, now))
	mock.ExpectRollback()

	err := svc.ConfirmPayment("sess_1", "pi_123", "checkout.session.completed")
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindIllegalTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPaymentUnknownSession(t *testing.T) {
	svc, mock, done := newPaymentServiceForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE session_id").
		WithArgs("sess_missing").
		WillReturnRows(sqlmock.NewRows(paymentTestColumns))
	mock.ExpectRollback()

	err := svc.ConfirmPayment("sess_missing", "pi_123", "checkout.session.completed")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failure callback marks the payment failed; the order is left alone
// for the expiry sweep.
func TestMarkPaymentFailedLeavesOrderPending(t *testing.T) {
	svc, mock, done := newPaymentServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE session_id").
		WithArgs("sess_1").
		WillReturnRows(paymentRow(1, 42, "sess_1", db.PurposeDeposit, db.PaymentPending, now))
	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs(42).
		WillReturnRows(orderRow(42, "ORD-1", db.OrderPending, now))
	mock.ExpectQuery("FROM payments WHERE session_id").
		WithArgs("sess_1").
		WillReturnRows(paymentRow(1, 42, "sess_1", db.PurposeDeposit, db.PaymentPending, now))
	mock.ExpectExec("UPDATE payments").
		WithArgs(1, "checkout.session.expired").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.MarkPaymentFailed("sess_1", "checkout.session.expired")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaymentFailedReplayIsNoOp(t *testing.T) {
	svc, mock, done := newPaymentServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE session_id").
		WithArgs("sess_1").
		WillReturnRows(paymentRow(1, 42, "sess_1", db.PurposeDeposit, db.PaymentFailed, now))
	mock.ExpectCommit()

	err := svc.MarkPaymentFailed("sess_1", "checkout.session.expired")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failure signal for a payment already recorded as completed
// contradicts the stored outcome and must not be absorbed silently.
func TestMarkPaymentFailedRejectsCompletedPayment(t *testing.T) {
	svc, mock, done := newPaymentServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE session_id").
		WithArgs("sess_1").
		WillReturnRows(paymentRow(1, 42, "sess_1", db.PurposeDeposit, db.PaymentCompleted, now))
	mock.ExpectRollback()

	err := svc.MarkPaymentFailed("sess_1", "checkout.session.expired")
	assert.True(t, apperrors.IsKind(err, apperrors.KindIllegalTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}
