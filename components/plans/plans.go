// components/plans/plans.go
//
// Plans component: the subscription catalogue and cancellation.  Checkout
// itself lives in components/checkout.
//
//------------------------------------------------------------------------------

package plans

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed forms/*.yaml
var formFS embed.FS

var _ component.Component = (*Component)(nil)

const (
	formCancel = "plans/cancel"

	msgCanceled     = "Your subscription has been cancelled.  You keep access until the end of the period."
	msgCancelFailed = "We could not cancel your subscription."
)

type Component struct {
	d *component.Deps
}

func (c *Component) Name() string     { return "plans" }
func (c *Component) Templates() fs.FS { return component.Sub(templateFS, "templates") }
func (c *Component) Forms() fs.FS     { return formFS }

func (c *Component) Init(d *component.Deps) error {
	c.d = d
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/plans", c.getPlans)
	r.Post("/plans/cancel", c.postCancel)
}

func init() { component.Register(&Component{}) }

// Offer is one plan card.
type Offer struct {
	backend.Plan
	Description string
	Current     bool
}

// Known reports whether the API sent a tier this site understands.
func (o Offer) Known() bool { return o.Tier.Valid() }

// Price formats the plan price, e.g. "$9.99 / month" or "Free".
func (o Offer) Price() string {
	if o.PriceCents == 0 {
		return "Free"
	}
	amount := fmt.Sprintf("%d.%02d", o.PriceCents/100, o.PriceCents%100)
	switch cur := strings.ToUpper(o.Currency); cur {
	case "", "USD":
		amount = "$" + amount
	default:
		amount += " " + cur
	}
	if o.Interval != "" {
		amount += " / " + o.Interval
	}
	return amount
}

type plansView struct {
	Offers       []Offer
	Subscription *backend.Subscription
	CanCheckout  bool
}

// merge attaches provider product details to plans and marks the current
// one.  Plans without a price borrow the product's unit amount.
func merge(plans []backend.Plan, products []backend.Product, sub *backend.Subscription) []Offer {
	byID := make(map[string]backend.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]Offer, 0, len(plans))
	for _, p := range plans {
		o := Offer{Plan: p}
		if prod, ok := byID[p.ProductID]; ok {
			o.Description = prod.Description
			if o.PriceCents == 0 {
				o.PriceCents = prod.UnitAmount
			}
			if o.Currency == "" {
				o.Currency = prod.Currency
			}
		}
		o.Current = sub != nil && sub.PlanID == p.ID
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out
}

func (c *Component) getPlans(w http.ResponseWriter, r *http.Request) {
	page, err := c.plansPage(r)
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	c.d.Views.Render(w, r, c.Name(), "plans", page)
}

func (c *Component) plansPage(r *http.Request) (view.Page, error) {
	plans, err := component.Cached(r, c.d, querycache.KeyPlans, c.d.Backend.Plans)
	if err != nil {
		return view.Page{}, err
	}
	log := logger.FromContext(r.Context())

	// Products and the subscription only decorate the page.
	products, err := component.Cached(r, c.d, querycache.KeyProducts, c.d.Backend.Products)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return view.Page{}, err
		}
		log.Warnw("products unavailable", "err", err)
		products = nil
	}
	sub, err := c.d.Backend.Subscription(r.Context(), c.d.Token(r))
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return view.Page{}, err
		}
		log.Warnw("subscription unavailable", "err", err)
		sub = nil
	}

	return view.Page{Title: "Plans", Data: plansView{
		Offers:       merge(plans, products, sub),
		Subscription: sub,
		CanCheckout:  c.d.Checkout != nil && c.d.Checkout.Available(),
	}}, nil
}

func (c *Component) postCancel(w http.ResponseWriter, r *http.Request) {
	v, err := form.HandleSubmit(formCancel, r)
	if err != nil {
		page, perr := c.plansPage(r)
		if perr != nil {
			c.d.Unavailable(w, r, perr)
			return
		}
		c.d.Invalid(w, r, c.Name(), "plans", page, err)
		return
	}

	_, replayed, err := c.d.Once(r, formCancel, v, func() (any, error) {
		return nil, c.d.Backend.CancelSubscription(r.Context(), c.d.Token(r), v.IdempotencyKey())
	})
	if err != nil {
		c.d.Respond.Error(w, r, err, msgCancelFailed, "/plans")
		return
	}
	if replayed {
		http.Redirect(w, r, "/plans", http.StatusSeeOther)
		return
	}
	c.d.Invalidate(r, querycache.KeyPlans, querycache.KeyMe)
	c.d.Respond.Success(w, r, msgCanceled, "/plans")
}
