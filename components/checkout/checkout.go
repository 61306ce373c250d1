// components/checkout/checkout.go
//
// Checkout component: the HTTP face of internal/checkout.
//
//   GET  /checkout/{planID}                  card form
//   POST /checkout/{planID}                  submit tokenized card
//   POST /checkout/{planID}/confirm          resume after provider action
//   GET  /checkout/status/{subscriptionID}   poll a processing payment
//
// A requires_action outcome is staged in the pending-payment cookie and the
// confirm page is rendered in place; the browser runs the provider
// challenge and posts the confirm form.
//
//------------------------------------------------------------------------------

package checkout

import (
	"embed"
	"io/fs"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/recipebox/internal/component"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed forms/*.yaml
var formFS embed.FS

var _ component.Component = (*Component)(nil)

type Component struct {
	d *component.Deps
}

func (c *Component) Name() string     { return "checkout" }
func (c *Component) Templates() fs.FS { return component.Sub(templateFS, "templates") }
func (c *Component) Forms() fs.FS     { return formFS }

func (c *Component) Init(d *component.Deps) error {
	c.d = d
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/checkout/status/{subscriptionID}", c.getStatus)
	r.Get("/checkout/{planID}", c.getCheckout)
	r.Post("/checkout/{planID}", c.postCheckout)
	r.Post("/checkout/{planID}/confirm", c.postConfirm)
}

func init() { component.Register(&Component{}) }
