// components/recipes/recipes.go
//
// Recipes component: the signed-in home page, the recipe list and detail
// pages, AI generation, favorites, and viewing history.
//
//------------------------------------------------------------------------------

package recipes

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

var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
)

type Component struct {
	d *component.Deps
}

func (c *Component) Name() string { return "recipes" }

func (c *Component) Templates() fs.FS { return component.Sub(templateFS, "templates") }
func (c *Component) Forms() fs.FS     { return formFS }

func (c *Component) Init(d *component.Deps) error {
	c.d = d
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/home", c.getHome)
	r.Get("/recipes", c.getList)
	r.Post("/recipes/generate", c.postGenerate)
	r.Get("/recipes/{id}", c.getRecipe)
	r.Get("/recipes/{id}/{slug}", c.getRecipe)

	r.Get("/favorites", c.getFavorites)
	r.With(form.RequireToken).Post("/favorites/{id}", c.postFavorite)
	r.With(form.RequireToken).Post("/favorites/{id}/delete", c.postUnfavorite)

	r.Get("/history", c.getHistory)
}

func init() { component.Register(&Component{}) }
