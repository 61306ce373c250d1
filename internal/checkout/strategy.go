package checkout

import (
	"context"
	"errors"
	"strings"
)

// ErrProviderUnavailable means the payment provider is not configured, so
// submission is disabled.
var ErrProviderUnavailable = errors.New("checkout: payment provider unavailable")

// Confirmer asks the provider for the final status of an intent.
type Confirmer interface {
	Confirm(ctx context.Context, intentID, clientSecret string) (IntentStatus, error)
}

// PaymentStrategy is how a payment method is collected and confirmed.
type PaymentStrategy interface {
	Name() string
	// PublishableKey is handed to the browser SDK; empty means unavailable.
	PublishableKey() string
	// PaymentMethod validates what the browser's tokenization step posted
	// and returns the opaque payment-method id.
	PaymentMethod(in Input) (string, error)
	Confirm(ctx context.Context, intentID, clientSecret string) (IntentStatus, error)
}

// TokenizationError carries the provider SDK's message to the user.
type TokenizationError struct{ Message string }

func (e *TokenizationError) Error() string { return e.Message }

// EmbeddedCard collects card details in provider-hosted fields embedded in
// the checkout page.  Card data is tokenized in the browser; only the
// resulting payment-method id is posted back.
type EmbeddedCard struct {
	key       string
	confirmer Confirmer
}

func NewEmbeddedCard(publishableKey string, c Confirmer) *EmbeddedCard {
	return &EmbeddedCard{key: publishableKey, confirmer: c}
}

func (e *EmbeddedCard) Name() string           { return "embedded_card" }
func (e *EmbeddedCard) PublishableKey() string { return e.key }

func (e *EmbeddedCard) PaymentMethod(in Input) (string, error) {
	if msg := strings.TrimSpace(in.TokenizationError); msg != "" {
		return "", &TokenizationError{Message: msg}
	}
	pm := strings.TrimSpace(in.PaymentMethodID)
	if !strings.HasPrefix(pm, "pm_") {
		return "", &TokenizationError{Message: "Card details could not be verified.  Please try again."}
	}
	return pm, nil
}

func (e *EmbeddedCard) Confirm(ctx context.Context, intentID, clientSecret string) (IntentStatus, error) {
	if e.confirmer == nil {
		return "", ErrProviderUnavailable
	}
	return e.confirmer.Confirm(ctx, intentID, clientSecret)
}
