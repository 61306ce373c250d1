// components/auth/auth.go
//
// Authentication component: login, registration, logout, OAuth hand-off,
// forgot password, and the two-step password reset.
//
//------------------------------------------------------------------------------

package auth

import (
	"embed"
	"io/fs"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/form"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed forms/*.yaml
var formFS embed.FS

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component encapsulates the auth pages.
type Component struct {
	d *component.Deps
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

func (c *Component) Templates() fs.FS { return component.Sub(templateFS, "templates") }
func (c *Component) Forms() fs.FS     { return formFS }

func (c *Component) Init(d *component.Deps) error {
	c.d = d
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/login", c.getLogin)
	r.Post("/login", c.postLogin)
	r.Get("/register", c.getRegister)
	r.Post("/register", c.postRegister)
	r.With(form.RequireToken).Post("/logout", c.postLogout)
	r.Get("/auth/oauth/{provider}", c.getOAuth)
	r.Get("/me", c.getMe)

	r.Get("/forgot-password", c.getForgot)
	r.Post("/forgot-password", c.postForgot)
	r.Get("/reset-password", c.getReset)
	r.Post("/reset-password", c.postResetPassword)
	r.Post("/reset-password/code", c.postResetCode)
	r.With(form.RequireToken).Post("/reset-password/back", c.postResetBack)
	r.With(form.RequireToken).Post("/reset-password/cancel", c.postResetCancel)
}

// Register component at program start.
func init() { component.Register(&Component{}) }
