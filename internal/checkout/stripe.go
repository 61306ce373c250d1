package checkout

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// StripeConfirmer retrieves a PaymentIntent with the publishable key and the
// intent's client secret, the same read the browser SDK performs.  No secret
// key is ever held by the frontend.
type StripeConfirmer struct {
	client *paymentintent.Client
}

func NewStripeConfirmer(publishableKey string) *StripeConfirmer {
	return &StripeConfirmer{client: &paymentintent.Client{
		B:   stripe.GetBackend(stripe.APIBackend),
		Key: publishableKey,
	}}
}

func (s *StripeConfirmer) Confirm(ctx context.Context, intentID, clientSecret string) (IntentStatus, error) {
	if intentID == "" || clientSecret == "" {
		return "", fmt.Errorf("stripe confirm: missing intent id or client secret")
	}
	params := &stripe.PaymentIntentParams{ClientSecret: stripe.String(clientSecret)}
	params.Context = ctx

	pi, err := s.client.Get(intentID, params)
	if err != nil {
		return "", fmt.Errorf("stripe retrieve %s: %w", intentID, err)
	}
	return IntentStatus(pi.Status), nil
}
