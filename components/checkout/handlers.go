package checkout

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	intauth "github.com/yanizio/recipebox/internal/auth"
	"github.com/yanizio/recipebox/internal/backend"
	intcheckout "github.com/yanizio/recipebox/internal/checkout"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/session"
	"github.com/yanizio/recipebox/internal/view"
)

const (
	formPay     = "checkout/pay"
	formConfirm = "checkout/confirm"

	msgUnavailable   = "Online payment is temporarily unavailable."
	msgPendingGone   = "Your payment session expired.  Please try again."
	msgCheckoutError = "We could not process your payment."
)

type checkoutView struct {
	Plan           backend.Plan
	PublishableKey string
	Available      bool
}

type confirmView struct {
	PlanID         string
	ClientSecret   string
	PublishableKey string
}

type statusView struct {
	SubscriptionID string
	State          intcheckout.State
	Message        string
}

// Processing reports whether the page should keep polling.
func (s statusView) Processing() bool { return s.State == intcheckout.StateProcessing }

func email(r *http.Request) string {
	if h, ok := intauth.User(r.Context()); ok {
		return h.Email
	}
	return ""
}

/*──────────────────────────── form ─────────────────────────────────────────*/

// checkoutPage finds planID in the cached catalogue.
func (c *Component) checkoutPage(r *http.Request, planID string) (view.Page, bool, error) {
	plans, err := component.Cached(r, c.d, querycache.KeyPlans, c.d.Backend.Plans)
	if err != nil {
		return view.Page{}, false, err
	}
	for _, p := range plans {
		if p.ID == planID {
			return view.Page{Title: "Checkout", Data: checkoutView{
				Plan:           p,
				PublishableKey: c.d.Checkout.PublishableKey(),
				Available:      c.d.Checkout.Available(),
			}}, true, nil
		}
	}
	return view.Page{}, false, nil
}

func (c *Component) notFound(w http.ResponseWriter, r *http.Request) {
	c.d.Views.RenderStatus(w, r, http.StatusNotFound, "site", "notfound", view.Page{Title: "Not found"})
}

func (c *Component) getCheckout(w http.ResponseWriter, r *http.Request) {
	page, ok, err := c.checkoutPage(r, chi.URLParam(r, "planID"))
	switch {
	case err != nil:
		c.d.Unavailable(w, r, err)
	case !ok:
		c.notFound(w, r)
	default:
		c.d.Views.Render(w, r, c.Name(), "checkout", page)
	}
}

func (c *Component) postCheckout(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	page, ok, err := c.checkoutPage(r, planID)
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	if !ok {
		c.notFound(w, r)
		return
	}

	v, err := form.HandleSubmit(formPay, r)
	if err != nil {
		c.d.Invalid(w, r, c.Name(), "checkout", page, err)
		return
	}

	val, replayed, err := c.d.Once(r, formPay, v, func() (any, error) {
		return c.d.Checkout.Submit(r.Context(), intcheckout.Input{
			Token:             c.d.Token(r),
			Email:             email(r),
			PlanID:            planID,
			PaymentMethodID:   v.String("payment_method_id"),
			TokenizationError: v.String("tokenization_error"),
			IdempotencyKey:    v.IdempotencyKey(),
		})
	})
	switch {
	case errors.Is(err, intcheckout.ErrProviderUnavailable):
		page.Form = form.Fail(r, msgUnavailable)
		c.d.Views.RenderStatus(w, r, http.StatusServiceUnavailable, c.Name(), "checkout", page)
		return
	case err != nil:
		c.d.Respond.Error(w, r, err, msgCheckoutError, "/checkout/"+planID)
		return
	}

	out := val.(intcheckout.Outcome)
	c.finish(w, r, planID, out, replayed, page)
}

// finish sends the browser where out leaves it.  Side effects run once per
// outcome; a replayed submission only repeats the response.
func (c *Component) finish(w http.ResponseWriter, r *http.Request, planID string, out intcheckout.Outcome, replayed bool, page view.Page) {
	switch out.State {
	case intcheckout.StateSucceeded:
		if !replayed {
			c.d.Invalidate(r, querycache.KeyMe, querycache.KeyPlans)
			_ = c.d.Sessions.AddFlash(w, r, session.Success(out.Message))
		}
		http.Redirect(w, r, "/plans", http.StatusSeeOther)

	case intcheckout.StateProcessing:
		http.Redirect(w, r, "/checkout/status/"+out.SubscriptionID, http.StatusSeeOther)

	case intcheckout.StateRequiresAction:
		err := c.d.Sessions.StagePending(w, session.PendingPayment{
			PlanID:          planID,
			SubscriptionID:  out.SubscriptionID,
			PaymentIntentID: out.PaymentIntentID,
			ClientSecret:    out.ClientSecret,
		})
		if err != nil {
			logger.FromContext(r.Context()).Errorw("stage pending payment failed", "err", err)
			c.d.Reject(w, r, c.Name(), "checkout", page, msgCheckoutError)
			return
		}
		confirm := view.Page{Title: "Confirm payment", Data: confirmView{
			PlanID:         planID,
			ClientSecret:   out.ClientSecret,
			PublishableKey: c.d.Checkout.PublishableKey(),
		}}
		confirm.Form.Prefill = map[string]string{"payment_intent": out.PaymentIntentID}
		c.d.Views.Render(w, r, c.Name(), "confirm", confirm)

	default:
		c.d.Reject(w, r, c.Name(), "checkout", page, out.Message)
	}
}

/*──────────────────────────── confirm ──────────────────────────────────────*/

func (c *Component) postConfirm(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	pending, ok := c.d.Sessions.Pending(r)
	if !ok || pending.PlanID != planID {
		_ = c.d.Sessions.AddFlash(w, r, session.Error(msgPendingGone))
		http.Redirect(w, r, "/checkout/"+planID, http.StatusSeeOther)
		return
	}

	v, err := form.HandleSubmit(formConfirm, r)
	if err != nil || v.String("payment_intent") != pending.PaymentIntentID {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	val, replayed, err := c.d.Once(r, formConfirm, v, func() (any, error) {
		return c.d.Checkout.Confirm(r.Context(), intcheckout.Pending{
			Email:           email(r),
			PlanID:          planID,
			SubscriptionID:  pending.SubscriptionID,
			PaymentIntentID: pending.PaymentIntentID,
			ClientSecret:    pending.ClientSecret,
		})
	})
	if errors.Is(err, intcheckout.ErrProviderUnavailable) {
		c.d.Sessions.ClearPending(w)
		c.d.Respond.Error(w, r, err, msgUnavailable, "/plans")
		return
	}
	if err != nil {
		c.d.Respond.Error(w, r, err, msgCheckoutError, "/checkout/"+planID)
		return
	}

	c.d.Sessions.ClearPending(w)
	out := val.(intcheckout.Outcome)
	if out.State == intcheckout.StateFailed {
		if !replayed {
			_ = c.d.Sessions.AddFlash(w, r, session.Error(out.Message))
		}
		http.Redirect(w, r, "/checkout/"+planID, http.StatusSeeOther)
		return
	}
	c.finish(w, r, planID, out, replayed, view.Page{})
}

/*──────────────────────────── status ───────────────────────────────────────*/

func (c *Component) getStatus(w http.ResponseWriter, r *http.Request) {
	sub := chi.URLParam(r, "subscriptionID")
	out, err := c.d.Checkout.Status(r.Context(), c.d.Token(r), email(r), sub)
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	if out.State == intcheckout.StateSucceeded {
		c.d.Invalidate(r, querycache.KeyMe, querycache.KeyPlans)
	}
	c.d.Views.Render(w, r, c.Name(), "status", view.Page{Title: "Payment status", Data: statusView{
		SubscriptionID: sub,
		State:          out.State,
		Message:        out.Message,
	}})
}
