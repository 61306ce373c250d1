package recipes

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	intauth "github.com/yanizio/recipebox/internal/auth"
	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/respond"
	"github.com/yanizio/recipebox/internal/routing"
	"github.com/yanizio/recipebox/internal/view"
)

const (
	formGenerate = "recipes/generate"

	homeLimit = 6
	pageSize  = 12

	msgGenerateFailed = "We could not generate a recipe.  Please try again."
	msgFavorited      = "Saved to favorites."
	msgUnfavorited    = "Removed from favorites."
	msgFavoriteFailed = "We could not update your favorites."
)

type homeView struct {
	Email   string
	Recipes []backend.Recipe
}

type listView struct {
	Search  string
	Page    int
	Prev    int
	Next    int
	Recipes []backend.Recipe
}

/*──────────────────────────── home ─────────────────────────────────────────*/

// homePage loads the landing page.  The unfiltered recipe list is shared
// with /recipes through the query cache.
func (c *Component) homePage(r *http.Request) (view.Page, error) {
	all, err := component.Cached(r, c.d, querycache.KeyRecipes, c.firstPage)
	if err != nil {
		return view.Page{}, err
	}
	hv := homeView{Recipes: all}
	if len(hv.Recipes) > homeLimit {
		hv.Recipes = hv.Recipes[:homeLimit]
	}
	if h, ok := intauth.User(r.Context()); ok {
		hv.Email = h.Email
	}
	return view.Page{Title: "Home", Data: hv}, nil
}

func (c *Component) firstPage(ctx context.Context, token string) ([]backend.Recipe, error) {
	return c.d.Backend.Recipes(ctx, token, backend.RecipeQuery{Page: 1, Limit: pageSize})
}

func (c *Component) getHome(w http.ResponseWriter, r *http.Request) {
	page, err := c.homePage(r)
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	c.d.Views.Render(w, r, c.Name(), "home", page)
}

/*──────────────────────────── list / detail ────────────────────────────────*/

func (c *Component) getList(w http.ResponseWriter, r *http.Request) {
	lv := listView{Search: strings.TrimSpace(r.URL.Query().Get("search")), Page: 1}
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 1 {
		lv.Page = n
	}

	var err error
	if lv.Search == "" && lv.Page == 1 {
		lv.Recipes, err = component.Cached(r, c.d, querycache.KeyRecipes, c.firstPage)
	} else {
		lv.Recipes, err = c.d.Backend.Recipes(r.Context(), c.d.Token(r), backend.RecipeQuery{
			Search: lv.Search,
			Page:   lv.Page,
			Limit:  pageSize,
		})
	}
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	if lv.Page > 1 {
		lv.Prev = lv.Page - 1
	}
	if len(lv.Recipes) == pageSize {
		lv.Next = lv.Page + 1
	}
	c.d.Views.Render(w, r, c.Name(), "list", view.Page{Title: "Recipes", Data: lv})
}

// getRecipe serves /recipes/{id} and /recipes/{id}/{slug}.  A slug that no
// longer matches the title redirects to the canonical link.
func (c *Component) getRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := c.d.Backend.Recipe(r.Context(), c.d.Token(r), chi.URLParam(r, "id"))
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	if !routing.Canonical(chi.URLParam(r, "slug"), rec.Title) {
		http.Redirect(w, r, recipePath(rec), http.StatusMovedPermanently)
		return
	}
	// The API records a view; the cached history is stale now.
	c.d.Invalidate(r, querycache.KeyHistory)
	c.d.Views.Render(w, r, c.Name(), "detail", view.Page{Title: rec.Title, Data: rec})
}

/*──────────────────────────── generate ─────────────────────────────────────*/

func (c *Component) postGenerate(w http.ResponseWriter, r *http.Request) {
	v, err := form.HandleSubmit(formGenerate, r)
	if err != nil {
		page, perr := c.homePage(r)
		if perr != nil {
			c.d.Unavailable(w, r, perr)
			return
		}
		c.d.Invalid(w, r, c.Name(), "home", page, err)
		return
	}

	val, replayed, err := c.d.Once(r, formGenerate, v, func() (any, error) {
		return c.d.Backend.GenerateRecipe(r.Context(), c.d.Token(r), v.IdempotencyKey(), backend.GenerateRequest{
			Prompt:      v.String("prompt"),
			Ingredients: splitList(v.String("ingredients")),
		})
	})
	if err != nil {
		if c.d.Respond.Unauthorized(w, r, err) {
			return
		}
		logger.FromContext(r.Context()).Infow("recipe generation failed", "err", err)
		page, perr := c.homePage(r)
		if perr != nil {
			c.d.Unavailable(w, r, perr)
			return
		}
		c.d.Reject(w, r, c.Name(), "home", page, respond.Message(err, msgGenerateFailed))
		return
	}

	rec := val.(*backend.Recipe)
	if !replayed {
		c.d.Invalidate(r, querycache.KeyRecipes, querycache.KeyHistory)
	}
	http.Redirect(w, r, recipePath(rec), http.StatusSeeOther)
}

/*──────────────────────────── favorites ────────────────────────────────────*/

func (c *Component) getFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := component.Cached(r, c.d, querycache.KeyFavorite, c.d.Backend.Favorites)
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	c.d.Views.Render(w, r, c.Name(), "favorites", view.Page{Title: "Favorites", Data: favs})
}

func (c *Component) postFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.d.Backend.AddFavorite(r.Context(), c.d.Token(r), id); err != nil {
		c.d.Respond.Error(w, r, err, msgFavoriteFailed, component.Back(r, "/favorites"))
		return
	}
	c.d.Invalidate(r, querycache.KeyFavorite, querycache.KeyRecipes)
	c.d.Respond.Success(w, r, msgFavorited, component.Back(r, "/favorites"))
}

func (c *Component) postUnfavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.d.Backend.RemoveFavorite(r.Context(), c.d.Token(r), id); err != nil {
		c.d.Respond.Error(w, r, err, msgFavoriteFailed, component.Back(r, "/favorites"))
		return
	}
	c.d.Invalidate(r, querycache.KeyFavorite, querycache.KeyRecipes)
	c.d.Respond.Success(w, r, msgUnfavorited, component.Back(r, "/favorites"))
}

/*──────────────────────────── history ──────────────────────────────────────*/

func (c *Component) getHistory(w http.ResponseWriter, r *http.Request) {
	h, err := component.Cached(r, c.d, querycache.KeyHistory, c.d.Backend.History)
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	c.d.Views.Render(w, r, c.Name(), "history", view.Page{Title: "History", Data: h})
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func recipePath(rec *backend.Recipe) string {
	return routing.RecipePath(rec.ID, rec.Title)
}

// splitList turns "eggs, flour,  milk" into its trimmed, non-empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
