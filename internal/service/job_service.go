package service

import (
	"fmt"
	"log"
	"time"

	"motorent/internal/repository"
)

// JobService runs the periodic sweeps: stale reservation locks flip to
// expired and pending orders past their payment deadline are cancelled
// together with their pending deposit payments.
type JobService struct {
	Repo    *repository.JobRepository
	Orders  *repository.OrderRepository
	LockSvc *LockService

	now func() time.Time
}

func NewJobService(repo *repository.JobRepository, orders *repository.OrderRepository, lockSvc *LockService) *JobService {
	return &JobService{
		Repo:    repo,
		Orders:  orders,
		LockSvc: lockSvc,
		now:     time.Now,
	}
}

// SweepExpiredLocks expires stale holds so their vehicle ranges open
// up again.
func (s *JobService) SweepExpiredLocks() error {
	_, err := s.LockSvc.SweepExpired()
	if err != nil {
		return fmt.Errorf("cron job: failed to sweep expired locks: %w", err)
	}
	return nil
}

// ExpirePendingOrders cancels orders whose deposit was never confirmed
// before the payment deadline. The guarded bulk update only touches
// rows still pending, so an order confirmed between the listing and
// the update survives.
func (s *JobService) ExpirePendingOrders() error {
	log.Println("Cron Job: Checking for pending orders past their payment deadline...")

	ids, err := s.Orders.ListExpiredPendingIDs(s.now().UTC())
	if err != nil {
		return fmt.Errorf("cron job: failed to list expired pending orders: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	log.Printf("Cron Job: Found %d pending orders to expire. IDs: %v", len(ids), ids)

	cancelled, err := s.Repo.CancelExpiredOrders(ids)
	if err != nil {
		return fmt.Errorf("cron job: failed to cancel expired orders: %w", err)
	}
	if _, err := s.Repo.CancelPaymentsForOrders(ids); err != nil {
		return fmt.Errorf("cron job: failed to cancel payments for expired orders: %w", err)
	}

	log.Printf("Cron Job: Cancelled %d expired pending orders.", cancelled)
	return nil
}
