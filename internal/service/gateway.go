package service

// CheckoutSession is what the gateway hands back when a payment intent
// is created: the id it will echo in callbacks and the URL the
// customer is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentGateway is the contract the reservation core has with the
// payment provider. The core only ever learns the outcome through a
// callback carrying the session id; everything provider-specific stays
// behind this interface.
type PaymentGateway interface {
	CreateCheckoutSession(amount int64, currency, description, customerEmail string) (*CheckoutSession, error)
	RefundBySessionID(sessionID string, amount int64) error
}
