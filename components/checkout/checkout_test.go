package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intcheckout "github.com/yanizio/recipebox/internal/checkout"
	"github.com/yanizio/recipebox/internal/component/componenttest"
	"github.com/yanizio/recipebox/internal/session"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	payments []map[string]string
	result   map[string]string
	status   string
}

func newAPI(result map[string]string) *fakeAPI {
	return &fakeAPI{calls: map[string]int{}, result: result, status: "processing"}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.calls[route]++
	f.mu.Unlock()

	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	switch route {
	case "GET /plans":
		reply(http.StatusOK, []map[string]any{{"id": "chef", "name": "Chef", "tier": "chef", "price": 999}})
	case "POST /stripe/payment":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.payments = append(f.payments, body)
		f.mu.Unlock()
		reply(http.StatusCreated, f.result)
	case "GET /stripe/payment/sub_1":
		reply(http.StatusOK, map[string]string{"subscriptionId": "sub_1", "status": f.status})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

type fakeConfirmer struct {
	mu     sync.Mutex
	calls  int
	secret string
	status intcheckout.IntentStatus
}

func (f *fakeConfirmer) Confirm(_ context.Context, _, clientSecret string) (intcheckout.IntentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.secret = clientSecret
	return f.status, nil
}

func pay(t *testing.T, env *componenttest.Env, pm, tokErr string) url.Values {
	return componenttest.Fields(t, formPay, url.Values{
		"payment_method_id":  {pm},
		"tokenization_error": {tokErr},
	})
}

func TestCheckoutPage(t *testing.T) {
	env := componenttest.New(t, newAPI(nil))
	env.SignIn(t, "cook@example.com")

	rec := env.Get("/checkout/chef")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="checkout-form"`)
	assert.Contains(t, rec.Body.String(), `data-pk="`+componenttest.PublishableKey+`"`)
	assert.Contains(t, rec.Body.String(), "https://js.stripe.com/v3/")

	assert.Equal(t, http.StatusNotFound, env.Get("/checkout/nope").Code)
}

func TestTokenizationFailureNeverReachesBackend(t *testing.T) {
	api := newAPI(map[string]string{"status": "succeeded"})
	env := componenttest.New(t, api)
	env.SignIn(t, "cook@example.com")

	rec := env.Post("/checkout/chef", pay(t, env, "", "Your card was declined."))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your card was declined.")

	rec = env.Post("/checkout/chef", pay(t, env, "", ""))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, api.count("POST /stripe/payment"))
}

func TestCheckoutSucceeds(t *testing.T) {
	api := newAPI(map[string]string{"subscriptionId": "sub_1", "status": "succeeded"})
	env := componenttest.New(t, api)
	env.SignIn(t, "cook@example.com")

	values := pay(t, env, "pm_123", "")
	rec := env.Post("/checkout/chef", values)
	again := env.Post("/checkout/chef", values)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/plans", rec.Header().Get("Location"))
	assert.Equal(t, "/plans", again.Header().Get("Location"))
	require.Equal(t, 1, api.count("POST /stripe/payment"))
	assert.Equal(t, "pm_123", api.payments[0]["paymentMethodId"])
	assert.Equal(t, "chef", api.payments[0]["planId"])
}

func TestSharedKeyIsNotReplayedAcrossSessions(t *testing.T) {
	api := newAPI(map[string]string{
		"subscriptionId":  "sub_1",
		"paymentIntentId": "pi_1",
		"status":          "requires_action",
		"clientSecret":    "pi_1_secret_abc",
	})
	env := componenttest.New(t, api)
	env.SignIn(t, "cook@example.com")
	other := env.Browser()
	other.SignIn(t, "guest@example.com")

	values := pay(t, env, "pm_123", "")
	require.Equal(t, http.StatusOK, env.Post("/checkout/chef", values).Code)
	require.Equal(t, http.StatusOK, other.Post("/checkout/chef", values).Code)

	assert.Equal(t, 2, api.count("POST /stripe/payment"))
	_, staged := other.Cookie(session.PendingCookie)
	assert.True(t, staged)
}

func TestRequiresActionConfirmsBeforeSuccess(t *testing.T) {
	api := newAPI(map[string]string{
		"subscriptionId":  "sub_1",
		"paymentIntentId": "pi_1",
		"status":          "requires_action",
		"clientSecret":    "pi_1_secret_abc",
	})
	conf := &fakeConfirmer{status: intcheckout.IntentSucceeded}
	env := componenttest.New(t, api, componenttest.WithConfirmer(conf))
	env.SignIn(t, "cook@example.com")

	rec := env.Post("/checkout/chef", pay(t, env, "pm_123", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-secret="pi_1_secret_abc"`)
	assert.Contains(t, rec.Body.String(), `action="/checkout/chef/confirm"`)
	_, staged := env.Cookie(session.PendingCookie)
	assert.True(t, staged)
	assert.Equal(t, 0, conf.calls, "no success before the provider confirms")

	confirm := componenttest.Fields(t, formConfirm, url.Values{"payment_intent": {"pi_1"}})
	done := env.Post("/checkout/chef/confirm", confirm)
	assert.Equal(t, http.StatusSeeOther, done.Code)
	assert.Equal(t, "/plans", done.Header().Get("Location"))
	assert.Equal(t, 1, conf.calls)
	assert.Equal(t, "pi_1_secret_abc", conf.secret)
	_, staged = env.Cookie(session.PendingCookie)
	assert.False(t, staged)
}

func TestConfirmWithoutPendingPayment(t *testing.T) {
	conf := &fakeConfirmer{status: intcheckout.IntentSucceeded}
	env := componenttest.New(t, newAPI(nil), componenttest.WithConfirmer(conf))
	env.SignIn(t, "cook@example.com")

	rec := env.Post("/checkout/chef/confirm", componenttest.Fields(t, formConfirm, url.Values{"payment_intent": {"pi_1"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/checkout/chef", rec.Header().Get("Location"))
	assert.Equal(t, 0, conf.calls)
}

func TestConfirmFailureReturnsToForm(t *testing.T) {
	api := newAPI(map[string]string{
		"subscriptionId":  "sub_1",
		"paymentIntentId": "pi_1",
		"status":          "requires_action",
		"clientSecret":    "pi_1_secret_abc",
	})
	conf := &fakeConfirmer{status: intcheckout.IntentRequiresPaymentMethod}
	env := componenttest.New(t, api, componenttest.WithConfirmer(conf))
	env.SignIn(t, "cook@example.com")

	env.Post("/checkout/chef", pay(t, env, "pm_123", ""))
	rec := env.Post("/checkout/chef/confirm", componenttest.Fields(t, formConfirm, url.Values{"payment_intent": {"pi_1"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/checkout/chef", rec.Header().Get("Location"))

	page := env.Get("/checkout/chef")
	assert.Contains(t, page.Body.String(), "We could not confirm your payment.")
}

func TestProviderUnavailable(t *testing.T) {
	api := newAPI(map[string]string{"status": "succeeded"})
	env := componenttest.New(t, api, componenttest.WithoutProvider())
	env.SignIn(t, "cook@example.com")

	page := env.Get("/checkout/chef")
	require.Equal(t, http.StatusOK, page.Code)
	assert.NotContains(t, page.Body.String(), `id="checkout-form"`)
	assert.Contains(t, page.Body.String(), "Online payment is temporarily unavailable.")

	rec := env.Post("/checkout/chef", pay(t, env, "pm_123", ""))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 0, api.count("POST /stripe/payment"))
}

func TestProcessingThenStatus(t *testing.T) {
	api := newAPI(map[string]string{"subscriptionId": "sub_1", "status": "processing"})
	env := componenttest.New(t, api)
	env.SignIn(t, "cook@example.com")

	rec := env.Post("/checkout/chef", pay(t, env, "pm_123", ""))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/checkout/status/sub_1", rec.Header().Get("Location"))

	status := env.Get("/checkout/status/sub_1")
	require.Equal(t, http.StatusOK, status.Code)
	assert.Contains(t, status.Body.String(), `http-equiv="refresh"`)

	api.mu.Lock()
	api.status = "succeeded"
	api.mu.Unlock()
	status = env.Get("/checkout/status/sub_1")
	assert.NotContains(t, status.Body.String(), `http-equiv="refresh"`)
	assert.Contains(t, status.Body.String(), "Payment successful.")
}
