package entities

import "time"

type SettlementResponse struct {
	OrderCode                 string    `json:"order_code"`
	ScheduledReturnTime       time.Time `json:"scheduled_return_time"`
	ActualReturnTime          time.Time `json:"actual_return_time"`
	OvertimeHours             float64   `json:"overtime_hours"`
	OvertimeFee               int64     `json:"overtime_fee"`
	DamageCharge              int64     `json:"damage_charge"`
	DamageDescription         string    `json:"damage_description,omitempty"`
	InitialDeposit            int64     `json:"initial_deposit"`
	TotalAdditionalCharges    int64     `json:"total_additional_charges"`
	DepositRefundAmount       int64     `json:"deposit_refund_amount"`
	AdditionalPaymentRequired int64     `json:"additional_payment_required"`
	IsFinalized               bool      `json:"is_finalized"`
	RefundStatus              string    `json:"refund_status"`
	RefundMethod              string    `json:"refund_method"`
	AdditionalPaymentStatus   string    `json:"additional_payment_status"`
}

type DamageChargeRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type MarkRefundRequest struct {
	Processed bool   `json:"processed"`
	Method    string `json:"method"`
	Notes     string `json:"notes,omitempty"`
}

type AdditionalPaymentResponse struct {
	PaymentCode string `json:"payment_code"`
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
	Amount      int64  `json:"amount"`
}
