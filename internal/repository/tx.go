package repository

import (
	"database/sql"
	"fmt"
	"log"
)

// WithTx runs fn inside a transaction, committing on nil and rolling
// back otherwise. Every read-then-write decision in the reservation
// core must go through here so the availability check and the write it
// guards cannot be interleaved by another request.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("rollback failed: %v (original error: %v)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
