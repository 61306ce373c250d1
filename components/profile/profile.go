// components/profile/profile.go
//
// Profile component: the account as the API reports it, plus the device
// and location this request appears to come from.
package profile

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/requestinfo"
	"github.com/yanizio/recipebox/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// compile-time assertions
var (
	_ component.Component        = (*Comp)(nil)
	_ component.Initializer      = (*Comp)(nil)
	_ component.TemplateProvider = (*Comp)(nil)
)

type Comp struct {
	d *component.Deps
}

func (c *Comp) Name() string     { return "profile" }
func (c *Comp) Templates() fs.FS { return component.Sub(templateFS, "templates") }

func (c *Comp) Init(d *component.Deps) error {
	c.d = d
	return nil
}

type profileView struct {
	User   *backend.User
	Device *requestinfo.RequestInfo
}

func (c *Comp) Routes(r chi.Router) {
	// HTML page
	r.Get("/profile", func(w http.ResponseWriter, r *http.Request) {
		u, err := component.Cached(r, c.d, querycache.KeyMe, c.d.Backend.Me)
		if err != nil {
			c.d.Unavailable(w, r, err)
			return
		}
		c.d.Views.Render(w, r, c.Name(), "profile", view.Page{
			Title: "Profile",
			Data:  profileView{User: u, Device: requestinfo.FromContext(r.Context())},
		})
	})

	// JSON endpoint
	r.Get("/profile/device", func(w http.ResponseWriter, r *http.Request) {
		ri := requestinfo.FromContext(r.Context())
		if ri == nil {
			http.Error(w, "request info not available", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ri); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func init() { component.Register(&Comp{}) }
