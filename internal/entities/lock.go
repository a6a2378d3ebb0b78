package entities

import "time"

type AcquireLockRequest struct {
	VehicleID int       `json:"vehicle_id"`
	UserID    int       `json:"user_id"`
	FromDate  time.Time `json:"from_date"`
	ToDate    time.Time `json:"to_date"`
}

type LockResponse struct {
	Token     string    `json:"token"`
	VehicleID int       `json:"vehicle_id"`
	FromDate  time.Time `json:"from_date"`
	ToDate    time.Time `json:"to_date"`
	ExpiresAt time.Time `json:"expires_at"`
}
