package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestLockRepository_Consume(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer database.Close()

	repo := NewLockRepository(database)
	now := time.Now().UTC()

	t.Run("active unexpired lock is consumed", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE reservation_locks").
			WithArgs("tok-1", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, _ := database.Begin()
		ok, err := repo.Consume(tx, "tok-1", now)
		assert.NoError(t, err)
		assert.True(t, ok)
		tx.Commit()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("guard rejects stale lock without error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE reservation_locks").
			WithArgs("tok-2", now).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, _ := database.Begin()
		ok, err := repo.Consume(tx, "tok-2", now)
		assert.NoError(t, err)
		assert.False(t, ok)
		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLockRepository_CountOverlappingActive(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer database.Close()

	repo := NewLockRepository(database)
	now := time.Now().UTC()
	from := now.Add(2 * time.Hour)
	to := now.Add(5 * time.Hour)

	// Half-open overlap: the query takes (to, from) so the WHERE can
	// express f1 < t2 AND f2 < t1.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM reservation_locks").
		WithArgs(7, now, to, from, "skip-me").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	tx, _ := database.Begin()
	count, err := repo.CountOverlappingActive(tx, 7, from, to, now, "skip-me")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	tx.Commit()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockRepository_SweepExpired(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer database.Close()

	repo := NewLockRepository(database)
	now := time.Now().UTC()

	t.Run("returns swept ids", func(t *testing.T) {
		mock.ExpectQuery("UPDATE reservation_locks").
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(9))

		ids, err := repo.SweepExpired(now)
		assert.NoError(t, err)
		assert.Equal(t, []int{3, 9}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to sweep", func(t *testing.T) {
		mock.ExpectQuery("UPDATE reservation_locks").
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		ids, err := repo.SweepExpired(now)
		assert.NoError(t, err)
		assert.Empty(t, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
