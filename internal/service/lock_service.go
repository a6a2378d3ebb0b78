package service

import (
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"motorent/internal/config"
	"motorent/internal/db"
	"motorent/internal/entities"
	apperrors "motorent/internal/errors"
	"motorent/internal/repository"
	"motorent/internal/utils"
)

// LockService grants short-lived exclusive holds on a (vehicle,
// date-range) pair so two concurrent preview-to-confirm flows cannot
// both succeed.
type LockService struct {
	DB           *sql.DB
	Locks        *repository.LockRepository
	Vehicles     *repository.VehicleRepository
	Availability *AvailabilityService
	Cfg          *config.Config

	now func() time.Time
}

func NewLockService(database *sql.DB, locks *repository.LockRepository, vehicles *repository.VehicleRepository, availability *AvailabilityService, cfg *config.Config) *LockService {
	return &LockService{
		DB:           database,
		Locks:        locks,
		Vehicles:     vehicles,
		Availability: availability,
		Cfg:          cfg,
		now:          time.Now,
	}
}

// Acquire validates the requested range, then, under the vehicle row
// lock, re-checks availability and writes the hold in the same
// transaction. Returns the lock token the client later converts into
// an order.
func (s *LockService) Acquire(req entities.AcquireLockRequest) (*entities.LockResponse, error) {
	now := s.now().UTC()
	if err := s.validateRange(req.FromDate, req.ToDate, now); err != nil {
		return nil, err
	}

	lock := &db.ReservationLock{
		Token:     uuid.NewString(),
		VehicleID: req.VehicleID,
		UserID:    req.UserID,
		FromDate:  req.FromDate,
		ToDate:    req.ToDate,
		Status:    db.LockActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.Cfg.LockTTL),
	}

	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		vehicle, err := s.Vehicles.LockRow(tx, req.VehicleID)
		if err != nil {
			return apperrors.NotFound("vehicle not found")
		}
		if !vehicle.Active {
			return apperrors.Validation("vehicle is not active")
		}

		available, err := s.Availability.IsAvailableTx(tx, req.VehicleID, req.FromDate, req.ToDate, now, 0, "")
		if err != nil {
			return err
		}
		if !available {
			return apperrors.Conflict("vehicle is not available for the requested range")
		}

		return s.Locks.Create(tx, lock)
	})
	if err != nil {
		return nil, err
	}

	return &entities.LockResponse{
		Token:     lock.Token,
		VehicleID: lock.VehicleID,
		FromDate:  lock.FromDate,
		ToDate:    lock.ToDate,
		ExpiresAt: lock.ExpiresAt,
	}, nil
}

// ConsumeTx flips an active, unexpired lock to consumed inside the
// caller's transaction and returns it as the order-creation permit.
// Rejection reasons are distinguished so the caller sees why the
// permit was refused.
func (s *LockService) ConsumeTx(tx *sql.Tx, token string, now time.Time) (*db.ReservationLock, error) {
	consumed, err := s.Locks.Consume(tx, token, now)
	if err != nil {
		return nil, err
	}
	if !consumed {
		lock, getErr := s.Locks.GetByTokenTx(tx, token)
		if getErr != nil {
			return nil, apperrors.NotFound("lock not found")
		}
		switch lock.Status {
		case db.LockConsumed:
			return nil, apperrors.IllegalTransition("lock already consumed")
		case db.LockExpired:
			return nil, apperrors.Conflict("lock has expired")
		case db.LockActive:
			// Active but past its TTL; the sweep just has not seen it yet.
			return nil, apperrors.Conflict("lock has expired")
		}
		return nil, apperrors.Conflict("lock cannot be consumed")
	}
	return s.Locks.GetByTokenTx(tx, token)
}

// Release discards a hold before its TTL, e.g. when the customer
// abandons the preview.
func (s *LockService) Release(token string) error {
	return s.Locks.Release(token)
}

// SweepExpired flips stale active locks to expired. Idempotent and
// safe under concurrent runs.
func (s *LockService) SweepExpired() (int, error) {
	ids, err := s.Locks.SweepExpired(s.now().UTC())
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		log.Printf("Expired %d reservation locks. IDs: %v", len(ids), ids)
	}
	return len(ids), nil
}

func (s *LockService) validateRange(from, to, now time.Time) error {
	if !to.After(from) {
		return apperrors.Validation("to_date must be after from_date")
	}
	if from.Before(now) {
		return apperrors.Validation("from_date must be in the future")
	}
	if !utils.WithinBusinessHours(from, s.Cfg.BusinessHours) {
		return apperrors.Validation("pick-up time is outside business hours")
	}
	if !utils.WithinBusinessHours(to, s.Cfg.BusinessHours) {
		return apperrors.Validation("return time is outside business hours")
	}
	return nil
}
