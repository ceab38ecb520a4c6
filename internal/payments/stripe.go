// Package payments adapts card payment providers to services.PaymentGateway.
package payments

import (
	"context"
	"errors"

	"bookstore/internal/apperrors"
	"bookstore/internal/services"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// TestCardToken is the provider's test card; real card collection happens client-side.
const TestCardToken = "tok_visa"

// StripeGateway charges cards through Stripe PaymentIntents.
type StripeGateway struct {
	api       *client.API
	cardToken string
}

// NewStripeGateway creates a gateway authenticated with secretKey. Backends may be nil to use
// the default Stripe endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{
		api:       client.New(secretKey, backends),
		cardToken: TestCardToken,
	}
}

// Charge creates a card payment method and confirms a payment intent for it immediately.
func (g *StripeGateway) Charge(ctx context.Context, charge services.Charge) (*services.PaymentResult, error) {
	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Token: stripe.String(g.cardToken),
		},
	}
	pmParams.Context = ctx
	pm, err := g.api.PaymentMethods.New(pmParams)
	if err != nil {
		return nil, classify(err)
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(charge.Amount),
		Currency:      stripe.String(charge.Currency),
		Description:   stripe.String(charge.Description),
		PaymentMethod: stripe.String(pm.ID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	piParams.Context = ctx
	pi, err := g.api.PaymentIntents.New(piParams)
	if err != nil {
		return nil, classify(err)
	}
	return &services.PaymentResult{IntentID: pi.ID, Status: string(pi.Status)}, nil
}

func classify(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.Type == stripe.ErrorTypeCard {
		msg := serr.Msg
		if msg == "" {
			msg = "card declined"
		}
		return apperrors.Wrap(apperrors.ErrPaymentDeclined, err, msg)
	}
	return apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err, "payment provider unavailable")
}
