package service

import (
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/refund"

	"motorent/internal/config"
)

// StripeService is the production PaymentGateway.
type StripeService struct {
	cfg *config.Config
}

func NewStripeService(cfg *config.Config) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	return &StripeService{cfg: cfg}
}

func (s *StripeService) CreateCheckoutSession(amount int64, currency, description, customerEmail string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
					UnitAmount: stripe.Int64(amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.cfg.CheckoutSuccessURL),
		CancelURL:     stripe.String(s.cfg.CheckoutCancelURL),
		CustomerEmail: stripe.String(customerEmail),
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("error creating checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// RefundBySessionID refunds amount against the PaymentIntent behind a
// checkout session. Partial amounts are allowed; pass the full payment
// amount for a complete refund.
func (s *StripeService) RefundBySessionID(sessionID string, amount int64) error {
	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return fmt.Errorf("error fetching session %s: %w", sessionID, err)
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return fmt.Errorf("no PaymentIntent found for session %s", sessionID)
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
		Amount:        stripe.Int64(amount),
	}
	_, err = refund.New(params)
	if err != nil {
		return fmt.Errorf("error creating refund for session %s: %w", sessionID, err)
	}
	return nil
}
