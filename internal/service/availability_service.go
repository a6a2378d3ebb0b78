package service

import (
	"database/sql"
	"log"
	"time"

	"motorent/internal/db"
	"motorent/internal/entities"
	apperrors "motorent/internal/errors"
	"motorent/internal/repository"
)

// AvailabilityService answers "is vehicle V free for [from, to)?" by
// combining blocking orders and active unexpired locks. The predicate
// itself always runs inside the caller's transaction: evaluating it
// and acting on the answer in separate transactions is the race this
// whole design exists to close.
type AvailabilityService struct {
	DB     *sql.DB
	Orders *repository.OrderRepository
	Locks  *repository.LockRepository
}

func NewAvailabilityService(database *sql.DB, orders *repository.OrderRepository, locks *repository.LockRepository) *AvailabilityService {
	return &AvailabilityService{DB: database, Orders: orders, Locks: locks}
}

// IsAvailableTx evaluates the overlap predicate inside tx.
// excludeOrderID lets an update-in-place check ignore itself;
// excludeToken lets order creation ignore the lock it just consumed.
func (s *AvailabilityService) IsAvailableTx(tx *sql.Tx, vehicleID int, from, to, now time.Time, excludeOrderID int, excludeToken string) (bool, error) {
	orderConflicts, err := s.Orders.CountOverlapping(tx, vehicleID, from, to, excludeOrderID)
	if err != nil {
		return false, err
	}
	if orderConflicts > 0 {
		return false, nil
	}
	lockConflicts, err := s.Locks.CountOverlappingActive(tx, vehicleID, from, to, now, excludeToken)
	if err != nil {
		return false, err
	}
	return lockConflicts == 0, nil
}

// CheckAvailability is the read-only preview used by the public API.
// Its answer is advisory: Acquire re-evaluates under the vehicle row
// lock before writing anything.
func (s *AvailabilityService) CheckAvailability(req entities.AvailabilityRequest) (*entities.AvailabilityResponse, error) {
	if !req.ToDate.After(req.FromDate) {
		return nil, apperrors.Validation("to_date must be after from_date")
	}

	response := &entities.AvailabilityResponse{
		VehicleID:         req.VehicleID,
		RequestedFromDate: req.FromDate,
		RequestedToDate:   req.ToDate,
	}

	err := repository.WithTx(s.DB, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		orderConflicts, err := s.Orders.CountOverlapping(tx, req.VehicleID, req.FromDate, req.ToDate, 0)
		if err != nil {
			return err
		}
		lockConflicts, err := s.Locks.CountOverlappingActive(tx, req.VehicleID, req.FromDate, req.ToDate, now, "")
		if err != nil {
			return err
		}
		response.ConflictingOrders = orderConflicts
		response.ConflictingLocks = lockConflicts
		response.IsAvailable = orderConflicts == 0 && lockConflicts == 0
		return nil
	})
	if err != nil {
		log.Printf("Error checking availability for vehicle %d: %v", req.VehicleID, err)
		return nil, err
	}

	if !response.IsAvailable {
		response.Message = "vehicle is not available for the requested range"
	}
	return response, nil
}

// ConflictingOrders lists the blocking orders for a range, for staff
// diagnostics.
func (s *AvailabilityService) ConflictingOrders(vehicleID int, from, to time.Time) ([]db.Order, error) {
	return s.Orders.ConflictingOrders(vehicleID, from, to)
}

// ConflictReport answers the staff console's "why is this vehicle
// unavailable" question with the actual blocking orders rather than
// just a count.
func (s *AvailabilityService) ConflictReport(req entities.AvailabilityRequest) (*entities.ConflictReport, error) {
	if !req.ToDate.After(req.FromDate) {
		return nil, apperrors.Validation("to_date must be after from_date")
	}

	orders, err := s.ConflictingOrders(req.VehicleID, req.FromDate, req.ToDate)
	if err != nil {
		log.Printf("Error listing conflicting orders for vehicle %d: %v", req.VehicleID, err)
		return nil, err
	}

	report := &entities.ConflictReport{
		VehicleID: req.VehicleID,
		FromDate:  req.FromDate,
		ToDate:    req.ToDate,
		Orders:    make([]entities.ConflictingOrder, 0, len(orders)),
	}
	for _, o := range orders {
		report.Orders = append(report.Orders, entities.ConflictingOrder{
			Code:     o.Code,
			Status:   string(o.Status),
			FromDate: o.FromDate,
			ToDate:   o.ToDate,
		})
	}
	return report, nil
}
