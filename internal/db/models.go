package db

import (
	"database/sql"
	"time"
)

type Vehicle struct {
	ID            int
	PlateNumber   string
	Model         string
	Active        bool
	HourlyRate    int64
	DepositAmount int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReservationLock is a short-TTL exclusive claim on a vehicle and date
// range, held between preview and order creation.
type ReservationLock struct {
	ID        int
	Token     string
	VehicleID int
	UserID    int
	FromDate  time.Time
	ToDate    time.Time
	Status    LockStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Order struct {
	ID                  int
	Code                string
	UserID              int
	UserEmail           string
	UserPhone           string
	VehicleID           int
	FromDate            time.Time
	ToDate              time.Time
	TotalCost           int64
	DepositAmount       int64
	HourlyRate          int64
	TrustScoreAtBooking int
	PreviewToken        string
	Status              OrderStatus
	CancellationReason  sql.NullString
	ExpiresAt           sql.NullTime
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Payment struct {
	ID              int
	Code            string
	OrderID         int
	Amount          int64
	PaymentMethod   string
	Purpose         PaymentPurpose
	Status          PaymentStatus
	TransactionID   sql.NullString
	SessionID       sql.NullString
	PaidAt          sql.NullTime
	GatewayResponse sql.NullString
	ExpiresAt       sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Settlement is the post-rental bill: overtime plus damage, netted
// against the deposit. Created exactly once per order, when the order
// transitions to Completed.
type Settlement struct {
	ID                        int
	OrderID                   int
	ScheduledReturnTime       time.Time
	ActualReturnTime          time.Time
	OvertimeHours             float64
	OvertimeFee               int64
	DamageCharge              int64
	DamageDescription         string
	InitialDeposit            int64
	TotalAdditionalCharges    int64
	DepositRefundAmount       int64
	AdditionalPaymentRequired int64
	IsFinalized               bool
	RefundStatus              RefundStatus
	RefundMethod              RefundMethod
	RefundedBy                sql.NullInt64
	RefundNotes               sql.NullString
	AdditionalPaymentStatus   AdditionalPaymentStatus
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type StaffAccount struct {
	ID           int
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
