package entities

import "time"

type CreateOrderRequest struct {
	LockToken     string `json:"lock_token"`
	UserEmail     string `json:"user_email"`
	UserPhone     string `json:"user_phone"`
	PaymentMethod string `json:"payment_method"`
}

// CreateOrderResponse carries the new pending order and the gateway
// checkout URL the client is redirected to for the deposit.
type CreateOrderResponse struct {
	OrderCode   string    `json:"order_code"`
	CheckoutURL string    `json:"checkout_url"`
	SessionID   string    `json:"session_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type OrderResponse struct {
	Code                string     `json:"code"`
	UserID              int        `json:"user_id"`
	VehicleID           int        `json:"vehicle_id"`
	FromDate            time.Time  `json:"from_date"`
	ToDate              time.Time  `json:"to_date"`
	TotalCost           int64      `json:"total_cost"`
	DepositAmount       int64      `json:"deposit_amount"`
	HourlyRate          int64      `json:"hourly_rate"`
	TrustScoreAtBooking int        `json:"trust_score_at_booking"`
	Status              string     `json:"status"`
	CancellationReason  string     `json:"cancellation_reason,omitempty"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type CompleteOrderRequest struct {
	ActualReturnTime time.Time `json:"actual_return_time"`
}

type OrdersList struct {
	Total  int             `json:"total"`
	Orders []OrderResponse `json:"orders"`
}
