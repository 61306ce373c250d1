// internal/checkout/flow.go
//
// Checkout flow.
//
// Context
//   One Submit call walks the state machine from CollectingCard to the
//   outcome the API reports for the new subscription's payment intent:
//
//     CollectingCard → CreatingPaymentMethod → SubmittingToBackend →
//       Succeeded | Processing | RequiresAction | Failed
//
//   RequiresAction pauses: the browser completes the provider's challenge
//   with the client secret, then Confirm resumes at ConfirmingWithProvider
//   and asks the provider for the final intent status.  Nothing is retried
//   automatically.  A failure leaves the user on the form with a message.
//
//------------------------------------------------------------------------------

package checkout

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/metrics"
	"github.com/yanizio/recipebox/internal/realtime"
)

// Backend is the part of the API client the flow needs.
type Backend interface {
	SubmitPayment(ctx context.Context, token, idemKey string, req backend.PaymentRequest) (*backend.PaymentResult, error)
	PaymentStatus(ctx context.Context, token, subscriptionID string) (*backend.PaymentResult, error)
}

// Notifier receives terminal outcomes.
type Notifier interface {
	Publish(email string, ev realtime.Event) int
}

// Input is what the checkout form posts.
type Input struct {
	Token             string
	Email             string
	PlanID            string
	PaymentMethodID   string
	TokenizationError string
	IdempotencyKey    string
}

// Pending identifies a payment paused in RequiresAction.
type Pending struct {
	Email           string
	PlanID          string
	SubscriptionID  string
	PaymentIntentID string
	ClientSecret    string
}

// Outcome is where one call left the machine.
type Outcome struct {
	State           State
	SubscriptionID  string
	PaymentIntentID string
	ClientSecret    string
	Message         string
	Trail           []State
}

const (
	msgRejected   = "Your payment could not be completed."
	msgConfirm    = "We could not confirm your payment.  Please try again."
	msgProcessing = "Your payment is processing.  We will let you know when it completes."
	msgSucceeded  = "Payment successful.  Welcome aboard!"
)

type Flow struct {
	strategy PaymentStrategy
	backend  Backend
	notifier Notifier
	log      *zap.SugaredLogger
}

func NewFlow(s PaymentStrategy, b Backend, n Notifier, log *zap.SugaredLogger) *Flow {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Flow{strategy: s, backend: b, notifier: n, log: log}
}

// Available reports whether submission is enabled.
func (f *Flow) Available() bool { return f.strategy != nil && f.strategy.PublishableKey() != "" }

// PublishableKey is passed to the browser SDK.
func (f *Flow) PublishableKey() string {
	if f.strategy == nil {
		return ""
	}
	return f.strategy.PublishableKey()
}

func (f *Flow) newMachine(start State, planID string) *machine {
	return newMachine(start, func(s State) {
		metrics.CheckoutTransitionsTotal.WithLabelValues(string(s)).Inc()
		f.log.Infow("checkout transition", "state", s, "plan", planID)
	})
}

// Submit runs one checkout attempt.  It returns an error only when the
// provider is unavailable or the API rejected the session; every other
// failure is an Outcome in StateFailed.
func (f *Flow) Submit(ctx context.Context, in Input) (Outcome, error) {
	if !f.Available() {
		return Outcome{}, ErrProviderUnavailable
	}
	m := f.newMachine(StateCollectingCard, in.PlanID)
	_ = m.to(StateCreatingPaymentMethod)

	pm, err := f.strategy.PaymentMethod(in)
	if err != nil {
		_ = m.to(StateFailed)
		return Outcome{State: StateFailed, Message: err.Error(), Trail: m.trail}, nil
	}

	_ = m.to(StateSubmittingToBackend)
	res, err := f.backend.SubmitPayment(ctx, in.Token, in.IdempotencyKey, backend.PaymentRequest{
		PlanID:          in.PlanID,
		PaymentMethodID: pm,
	})
	if errors.Is(err, backend.ErrUnauthorized) {
		return Outcome{}, err
	}
	if err != nil {
		_ = m.to(StateFailed)
		f.log.Infow("checkout rejected by backend", "plan", in.PlanID, "err", err)
		out := Outcome{State: StateFailed, Message: messageOf(err, msgRejected), Trail: m.trail}
		f.notify(in.Email, out)
		return out, nil
	}

	out := Outcome{
		SubscriptionID:  res.SubscriptionID,
		PaymentIntentID: res.PaymentIntentID,
		ClientSecret:    res.ClientSecret,
	}
	switch IntentStatus(res.Status) {
	case IntentSucceeded:
		_ = m.to(StateSucceeded)
		out.Message = msgSucceeded
	case IntentProcessing:
		_ = m.to(StateProcessing)
		out.Message = msgProcessing
	case IntentRequiresAction:
		if res.ClientSecret == "" {
			_ = m.to(StateFailed)
			out.Message = msgConfirm
			break
		}
		_ = m.to(StateRequiresAction)
	default:
		_ = m.to(StateFailed)
		out.Message = nonEmpty(res.Message, msgRejected)
	}
	out.State, out.Trail = m.state, m.trail
	f.notify(in.Email, out)
	return out, nil
}

// Confirm resumes a RequiresAction payment once the browser has handled the
// provider challenge.
func (f *Flow) Confirm(ctx context.Context, p Pending) (Outcome, error) {
	if !f.Available() {
		return Outcome{}, ErrProviderUnavailable
	}
	m := f.newMachine(StateRequiresAction, p.PlanID)
	_ = m.to(StateConfirmingWithProvider)

	out := Outcome{SubscriptionID: p.SubscriptionID, PaymentIntentID: p.PaymentIntentID}
	status, err := f.strategy.Confirm(ctx, p.PaymentIntentID, p.ClientSecret)
	switch {
	case err != nil:
		f.log.Warnw("provider confirmation failed", "intent", p.PaymentIntentID, "err", err)
		_ = m.to(StateFailed)
		out.Message = msgConfirm
	case status == IntentSucceeded:
		_ = m.to(StateSucceeded)
		out.Message = msgSucceeded
	case status == IntentProcessing:
		_ = m.to(StateProcessing)
		out.Message = msgProcessing
	default:
		_ = m.to(StateFailed)
		out.Message = msgConfirm
	}
	out.State, out.Trail = m.state, m.trail
	f.notify(p.Email, out)
	return out, nil
}

// Status polls the API for a processing payment.
func (f *Flow) Status(ctx context.Context, token, email, subscriptionID string) (Outcome, error) {
	res, err := f.backend.PaymentStatus(ctx, token, subscriptionID)
	if err != nil {
		return Outcome{}, err
	}
	m := f.newMachine(StateProcessing, "")
	out := Outcome{SubscriptionID: subscriptionID, PaymentIntentID: res.PaymentIntentID}
	switch IntentStatus(res.Status) {
	case IntentSucceeded:
		_ = m.to(StateSucceeded)
		out.Message = msgSucceeded
		f.notify(email, Outcome{State: StateSucceeded, SubscriptionID: subscriptionID, Message: msgSucceeded})
	case IntentProcessing, IntentRequiresAction:
		out.Message = msgProcessing
	default:
		_ = m.to(StateFailed)
		out.Message = nonEmpty(res.Message, msgRejected)
		f.notify(email, Outcome{State: StateFailed, SubscriptionID: subscriptionID, Message: out.Message})
	}
	out.State, out.Trail = m.state, m.trail
	return out, nil
}

func (f *Flow) notify(email string, o Outcome) {
	if f.notifier == nil || email == "" {
		return
	}
	var st realtime.Status
	switch o.State {
	case StateSucceeded:
		st = realtime.StatusSuccess
	case StateProcessing:
		st = realtime.StatusPending
	case StateFailed:
		st = realtime.StatusRejected
	default:
		return
	}
	f.notifier.Publish(email, realtime.Event{
		Email:          email,
		Status:         st,
		SubscriptionID: o.SubscriptionID,
		Message:        o.Message,
	})
}

func messageOf(err error, fallback string) string {
	if msg, ok := backend.Message(err); ok {
		return msg
	}
	return fallback
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
