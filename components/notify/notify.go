// components/notify/notify.go
//
// Notify component: the websocket that carries payment-status toasts.  The
// gate has already authenticated the request; the socket is keyed by the
// email in the session hint.
//
//------------------------------------------------------------------------------

package notify

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	intauth "github.com/yanizio/recipebox/internal/auth"
	"github.com/yanizio/recipebox/internal/component"
)

var _ component.Component = (*Component)(nil)

type Component struct {
	d *component.Deps
}

func (c *Component) Name() string { return "notify" }

func (c *Component) Init(d *component.Deps) error {
	c.d = d
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/ws/notifications", c.serveWS)
}

func (c *Component) serveWS(w http.ResponseWriter, r *http.Request) {
	h, ok := intauth.User(r.Context())
	if !ok || h.Email == "" {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	c.d.Hub.ServeWS(w, r, h.Email)
}

func init() { component.Register(&Component{}) }
