package db

// LockStatus is the lifecycle of a reservation lock. Consumed and
// Expired are terminal.
type LockStatus string

const (
	LockActive   LockStatus = "active"
	LockConsumed LockStatus = "consumed"
	LockExpired  LockStatus = "expired"
)

// OrderStatus is the lifecycle of a rental order. Completed and
// Cancelled are terminal.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// CanTransition reports whether the order state machine has an edge
// from s to next. Every transition site must go through this check so
// an added status cannot silently fall through.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderConfirmed || next == OrderCancelled
	case OrderConfirmed:
		return next == OrderInProgress || next == OrderCancelled
	case OrderInProgress:
		return next == OrderCompleted
	case OrderCompleted, OrderCancelled:
		return false
	}
	return false
}

// ValidOrderStatus reports whether raw names a known order status.
func ValidOrderStatus(raw string) bool {
	switch OrderStatus(raw) {
	case OrderPending, OrderConfirmed, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Blocking reports whether an order in this status makes its vehicle
// unavailable for overlapping date ranges. Completed and Cancelled
// orders never block.
func (s OrderStatus) Blocking() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderInProgress:
		return true
	case OrderCompleted, OrderCancelled:
		return false
	}
	return false
}

// PaymentStatus transitions are monotonic: Pending moves to exactly one
// of Completed/Failed/Cancelled, and Completed may move to Refunded.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return next == PaymentCompleted || next == PaymentFailed || next == PaymentCancelled
	case PaymentCompleted:
		return next == PaymentRefunded
	case PaymentFailed, PaymentCancelled, PaymentRefunded:
		return false
	}
	return false
}

// PaymentPurpose distinguishes the deposit payment from follow-up
// additional-charge payments created by the settlement workflow.
type PaymentPurpose string

const (
	PurposeDeposit          PaymentPurpose = "deposit"
	PurposeAdditionalCharge PaymentPurpose = "additional_charge"
)

// RefundStatus is the settlement's deposit-refund sub-state.
type RefundStatus string

const (
	RefundPending     RefundStatus = "pending"
	RefundProcessed   RefundStatus = "processed"
	RefundFailed      RefundStatus = "failed"
	RefundNotRequired RefundStatus = "not_required"
)

// RefundMethod records how a processed refund was executed.
type RefundMethod string

const (
	RefundMethodNotSet    RefundMethod = "not_set"
	RefundMethodAutomatic RefundMethod = "automatic"
	RefundMethodManual    RefundMethod = "manual"
)

// AdditionalPaymentStatus is the settlement's additional-payment sub-state.
type AdditionalPaymentStatus string

const (
	AdditionalNotRequired AdditionalPaymentStatus = "not_required"
	AdditionalPending     AdditionalPaymentStatus = "pending"
	AdditionalCompleted   AdditionalPaymentStatus = "completed"
	AdditionalFailed      AdditionalPaymentStatus = "failed"
)
