package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/realtime"
)

type fakeBackend struct {
	submits  []backend.PaymentRequest
	result   *backend.PaymentResult
	err      error
	statuses []string
}

func (f *fakeBackend) SubmitPayment(_ context.Context, _, _ string, req backend.PaymentRequest) (*backend.PaymentResult, error) {
	f.submits = append(f.submits, req)
	return f.result, f.err
}

func (f *fakeBackend) PaymentStatus(_ context.Context, _, sub string) (*backend.PaymentResult, error) {
	f.statuses = append(f.statuses, sub)
	return f.result, f.err
}

type fakeConfirmer struct {
	calls  int
	status IntentStatus
	err    error
}

func (f *fakeConfirmer) Confirm(context.Context, string, string) (IntentStatus, error) {
	f.calls++
	return f.status, f.err
}

type fakeNotifier struct{ events []realtime.Event }

func (f *fakeNotifier) Publish(_ string, ev realtime.Event) int {
	f.events = append(f.events, ev)
	return 1
}

func newFlow(b Backend, c Confirmer, n Notifier) *Flow {
	return NewFlow(NewEmbeddedCard("pk_test_123", c), b, n, nil)
}

func input() Input {
	return Input{Token: "t", Email: "a@b.co", PlanID: "chef", PaymentMethodID: "pm_1", IdempotencyKey: "k"}
}

func TestTokenizationFailureNeverReachesBackend(t *testing.T) {
	b := &fakeBackend{}
	in := input()
	in.PaymentMethodID = ""
	in.TokenizationError = "Your card number is incomplete."

	out, err := newFlow(b, nil, nil).Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, "Your card number is incomplete.", out.Message)
	assert.Empty(t, b.submits)
}

func TestMissingPaymentMethodNeverReachesBackend(t *testing.T) {
	b := &fakeBackend{}
	in := input()
	in.PaymentMethodID = "4242424242424242"

	out, err := newFlow(b, nil, nil).Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.Empty(t, b.submits)
}

func TestProviderUnavailableDisablesSubmission(t *testing.T) {
	b := &fakeBackend{}
	f := NewFlow(NewEmbeddedCard("", nil), b, nil, nil)
	assert.False(t, f.Available())

	_, err := f.Submit(context.Background(), input())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Empty(t, b.submits)
}

func TestSubmitSucceeded(t *testing.T) {
	b := &fakeBackend{result: &backend.PaymentResult{SubscriptionID: "sub_1", Status: "succeeded"}}
	n := &fakeNotifier{}

	out, err := newFlow(b, nil, n).Submit(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, out.State)
	assert.Equal(t, []State{StateCollectingCard, StateCreatingPaymentMethod, StateSubmittingToBackend, StateSucceeded}, out.Trail)
	assert.Equal(t, []backend.PaymentRequest{{PlanID: "chef", PaymentMethodID: "pm_1"}}, b.submits)
	require.Len(t, n.events, 1)
	assert.Equal(t, realtime.StatusSuccess, n.events[0].Status)
}

func TestSubmitProcessing(t *testing.T) {
	b := &fakeBackend{result: &backend.PaymentResult{SubscriptionID: "sub_1", Status: "processing"}}
	out, err := newFlow(b, nil, nil).Submit(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, out.State)
}

func TestRequiresActionConfirmsBeforeSuccess(t *testing.T) {
	b := &fakeBackend{result: &backend.PaymentResult{
		SubscriptionID: "sub_1", PaymentIntentID: "pi_1", ClientSecret: "pi_1_secret", Status: "requires_action",
	}}
	c := &fakeConfirmer{status: IntentSucceeded}
	n := &fakeNotifier{}
	f := newFlow(b, c, n)

	out, err := f.Submit(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, StateRequiresAction, out.State)
	assert.Equal(t, "pi_1_secret", out.ClientSecret)
	assert.Zero(t, c.calls)
	assert.Empty(t, n.events)

	done, err := f.Confirm(context.Background(), Pending{
		Email: "a@b.co", PlanID: "chef", SubscriptionID: out.SubscriptionID,
		PaymentIntentID: out.PaymentIntentID, ClientSecret: out.ClientSecret,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, StateSucceeded, done.State)
	assert.Equal(t, []State{StateRequiresAction, StateConfirmingWithProvider, StateSucceeded}, done.Trail)
	require.Len(t, n.events, 1)
}

func TestConfirmFailureStaysRetryable(t *testing.T) {
	c := &fakeConfirmer{err: errors.New("network")}
	out, err := newFlow(&fakeBackend{}, c, nil).Confirm(context.Background(), Pending{PaymentIntentID: "pi", ClientSecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 1, c.calls)

	c2 := &fakeConfirmer{status: IntentRequiresPaymentMethod}
	out, _ = newFlow(&fakeBackend{}, c2, nil).Confirm(context.Background(), Pending{PaymentIntentID: "pi", ClientSecret: "s"})
	assert.Equal(t, StateFailed, out.State)
}

func TestBackendRejectionSurfacesServerMessage(t *testing.T) {
	b := &fakeBackend{err: &backend.APIError{Status: 402, Message: "Your card was declined."}}
	n := &fakeNotifier{}
	out, err := newFlow(b, nil, n).Submit(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, "Your card was declined.", out.Message)
	assert.Len(t, b.submits, 1)
	assert.Equal(t, realtime.StatusRejected, n.events[0].Status)
}

func TestUnauthorizedPropagates(t *testing.T) {
	b := &fakeBackend{err: backend.ErrUnauthorized}
	_, err := newFlow(b, nil, nil).Submit(context.Background(), input())
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
}

func TestStatusPolling(t *testing.T) {
	b := &fakeBackend{result: &backend.PaymentResult{Status: "succeeded"}}
	n := &fakeNotifier{}
	out, err := newFlow(b, nil, n).Status(context.Background(), "t", "a@b.co", "sub_1")
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, out.State)
	assert.Equal(t, []string{"sub_1"}, b.statuses)
	assert.Len(t, n.events, 1)

	b.result = &backend.PaymentResult{Status: "processing"}
	out, _ = newFlow(b, nil, nil).Status(context.Background(), "t", "a@b.co", "sub_1")
	assert.Equal(t, StateProcessing, out.State)
}

func TestIllegalTransition(t *testing.T) {
	m := newMachine(StateCollectingCard, nil)
	assert.Error(t, m.to(StateSucceeded))
	assert.NoError(t, m.to(StateCreatingPaymentMethod))
}

func TestStripeConfirmerValidatesInput(t *testing.T) {
	_, err := NewStripeConfirmer("pk_test_x").Confirm(context.Background(), "", "")
	assert.Error(t, err)
}
