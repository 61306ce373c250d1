package plans

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/component/componenttest"
)

func TestMerge(t *testing.T) {
	plans := []backend.Plan{
		{ID: "chef", Name: "Chef", Tier: backend.TierChef, ProductID: "prod_1"},
		{ID: "free", Name: "Free", Tier: backend.TierFree},
		{ID: "odd", Name: "Odd", Tier: "platinum", PriceCents: 99900, Currency: "eur"},
	}
	products := []backend.Product{{ID: "prod_1", Description: "For keen cooks", UnitAmount: 999, Currency: "usd"}}
	sub := &backend.Subscription{ID: "sub_1", PlanID: "chef"}

	got := merge(plans, products, sub)
	require.Len(t, got, 3)
	assert.Equal(t, "free", got[0].ID)
	assert.Equal(t, "Free", got[0].Price())

	assert.Equal(t, "chef", got[1].ID)
	assert.Equal(t, "For keen cooks", got[1].Description)
	assert.Equal(t, "$9.99", got[1].Price())
	assert.True(t, got[1].Current)
	assert.True(t, got[1].Known())

	assert.Equal(t, "999.00 EUR", got[2].Price())
	assert.False(t, got[2].Known())
	assert.False(t, got[2].Current)
}

type fakeAPI struct {
	mu           sync.Mutex
	calls        map[string]int
	productsDown bool
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
		reply(http.StatusOK, []map[string]any{
			{"id": "free", "name": "Free", "tier": "free", "price": 0},
			{"id": "chef", "name": "Chef", "tier": "chef", "price": 999, "interval": "month", "stripeProductId": "prod_1"},
		})
	case "GET /stripe/products":
		if f.productsDown {
			reply(http.StatusInternalServerError, map[string]string{"message": "stripe down"})
			return
		}
		reply(http.StatusOK, []map[string]any{{"id": "prod_1", "description": "For keen cooks"}})
	case "GET /subscriptions":
		reply(http.StatusOK, map[string]any{"id": "sub_1", "planId": "chef", "status": "active"})
	case "POST /stripe/subscription/cancel":
		reply(http.StatusCreated, map[string]string{})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func TestPlansPage(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}}
	env := componenttest.New(t, api)
	env.SignIn(t, "cook@example.com")

	rec := env.Get("/plans")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "For keen cooks")
	assert.Contains(t, body, "$9.99 / month")
	assert.Contains(t, body, "Your plan")
	assert.Contains(t, body, `action="/plans/cancel"`)
}

func TestPlansPageSurvivesProductFailure(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}, productsDown: true}
	env := componenttest.New(t, api)
	env.SignIn(t, "cook@example.com")

	rec := env.Get("/plans")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "$9.99 / month")
	assert.NotContains(t, rec.Body.String(), "For keen cooks")
}

func TestPlansWithoutProvider(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}}
	env := componenttest.New(t, api, componenttest.WithoutProvider())
	env.SignIn(t, "cook@example.com")

	rec := env.Get("/plans")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Online payment is temporarily unavailable.")
	assert.NotContains(t, rec.Body.String(), `href="/checkout/`)
}

func TestCancelSubscription(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}}
	env := componenttest.New(t, api)
	env.SignIn(t, "cook@example.com")
	env.Get("/plans")

	unticked := env.Post("/plans/cancel", componenttest.Fields(t, formCancel, url.Values{}))
	assert.Equal(t, http.StatusUnprocessableEntity, unticked.Code)
	assert.Contains(t, unticked.Body.String(), "Tick the box to confirm.")

	values := componenttest.Fields(t, formCancel, url.Values{"confirm": {"on"}})
	rec := env.Post("/plans/cancel", values)
	env.Post("/plans/cancel", values)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/plans", rec.Header().Get("Location"))
	assert.Equal(t, 1, api.count("POST /stripe/subscription/cancel"))

	page := env.Get("/plans")
	assert.Contains(t, page.Body.String(), "Your subscription has been cancelled.")
	assert.Equal(t, 2, api.count("GET /plans"), "cancel invalidates the cached plans")
}
