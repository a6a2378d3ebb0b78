package entities

import "time"

type AvailabilityRequest struct {
	VehicleID int       `json:"vehicle_id"`
	FromDate  time.Time `json:"from_date"`
	ToDate    time.Time `json:"to_date"`
}

// ConflictingOrder is the staff-facing summary of one order blocking a
// requested range.
type ConflictingOrder struct {
	Code     string    `json:"code"`
	Status   string    `json:"status"`
	FromDate time.Time `json:"from_date"`
	ToDate   time.Time `json:"to_date"`
}

type ConflictReport struct {
	VehicleID int                `json:"vehicle_id"`
	FromDate  time.Time          `json:"from_date"`
	ToDate    time.Time          `json:"to_date"`
	Orders    []ConflictingOrder `json:"orders"`
}

type AvailabilityResponse struct {
	VehicleID          int       `json:"vehicle_id"`
	RequestedFromDate  time.Time `json:"requested_from_date"`
	RequestedToDate    time.Time `json:"requested_to_date"`
	IsAvailable        bool      `json:"is_available"`
	ConflictingOrders  int       `json:"conflicting_orders,omitempty"`
	ConflictingLocks   int       `json:"conflicting_locks,omitempty"`
	Message            string    `json:"message,omitempty"`
}
