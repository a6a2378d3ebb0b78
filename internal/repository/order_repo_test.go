package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"motorent/internal/db"
)

func TestOrderRepository_TransitionStatus(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer database.Close()

	repo := NewOrderRepository(database)

	t.Run("guarded edge applies once", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE orders").
			WithArgs(42, db.OrderPending, db.OrderConfirmed, sql.NullString{}).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, _ := database.Begin()
		ok, err := repo.TransitionStatus(tx, 42, db.OrderPending, db.OrderConfirmed, "")
		assert.NoError(t, err)
		assert.True(t, ok)
		tx.Commit()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale from-status affects zero rows", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE orders").
			WithArgs(42, db.OrderPending, db.OrderConfirmed, sql.NullString{}).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, _ := database.Begin()
		ok, err := repo.TransitionStatus(tx, 42, db.OrderPending, db.OrderConfirmed, "")
		assert.NoError(t, err)
		assert.False(t, ok)
		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancel records the reason", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE orders").
			WithArgs(42, db.OrderPending, db.OrderCancelled, sql.NullString{String: "customer request", Valid: true}).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, _ := database.Begin()
		ok, err := repo.TransitionStatus(tx, 42, db.OrderPending, db.OrderCancelled, "customer request")
		assert.NoError(t, err)
		assert.True(t, ok)
		tx.Commit()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_CountOverlapping(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer database.Close()

	repo := NewOrderRepository(database)
	from := time.Date(2026, time.September, 10, 9, 0, 0, 0, time.UTC)
	to := from.Add(8 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM orders").
		WithArgs(5, to, from, 0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	tx, _ := database.Begin()
	count, err := repo.CountOverlapping(tx, 5, from, to, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
	tx.Commit()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_CancelExpiredOrders(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer database.Close()

	repo := NewJobRepository(database)
	ids := []int{11, 12, 13}

	mock.ExpectExec("UPDATE orders").
		WithArgs(pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.CancelExpiredOrders(ids)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
