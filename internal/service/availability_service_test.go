package service

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"motorent/internal/db"
	"motorent/internal/entities"
	apperrors "motorent/internal/errors"
	"motorent/internal/repository"
)

func newAvailabilityServiceForTest(t *testing.T) (*AvailabilityService, sqlmock.Sqlmock, func()) {
	t.Helper()
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	svc := NewAvailabilityService(database, repository.NewOrderRepository(database), repository.NewLockRepository(database))
	return svc, mock, func() { database.Close() }
}

func TestConflictReportListsBlockingOrders(t *testing.T) {
	svc, mock, done := newAvailabilityServiceForTest(t)
	defer done()
	now := time.Now().UTC()
	from := now.Add(24 * time.Hour)
	to := from.Add(8 * time.Hour)

	rows := sqlmock.NewRows(orderTestColumns).
		AddRow(1, "ORD-1", 7, "a@example.com", "", 5, from.Add(-time.Hour), from.Add(2*time.Hour),
			400000, 500000, 50000, 100, "tok-1", db.OrderConfirmed, nil, nil, now, now).
		AddRow(2, "ORD-2", 8, "b@example.com", "", 5, to.Add(-time.Hour), to.Add(3*time.Hour),
			400000, 500000, 50000, 100, "tok-2", db.OrderInProgress, nil, nil, now, now)
	mock.ExpectQuery("FROM orders\\s+WHERE vehicle_id").
		WithArgs(5, to, from).
		WillReturnRows(rows)

	report, err := svc.ConflictReport(entities.AvailabilityRequest{VehicleID: 5, FromDate: from, ToDate: to})
	assert.NoError(t, err)
	assert.Len(t, report.Orders, 2)
	assert.Equal(t, "ORD-1", report.Orders[0].Code)
	assert.Equal(t, string(db.OrderConfirmed), report.Orders[0].Status)
	assert.Equal(t, "ORD-2", report.Orders[1].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictReportRejectsInvertedRange(t *testing.T) {
	svc, _, done := newAvailabilityServiceForTest(t)
	defer done()
	now := time.Now().UTC()

	_, err := svc.ConflictReport(entities.AvailabilityRequest{VehicleID: 5, FromDate: now, ToDate: now.Add(-time.Hour)})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
