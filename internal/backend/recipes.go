package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) Recipes(ctx context.Context, token string, q RecipeQuery) ([]Recipe, error) {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	var out []Recipe
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "/recipes", query: params, token: token, out: &out})
	return out, err
}

func (c *Client) Recipe(ctx context.Context, token, id string) (*Recipe, error) {
	var out Recipe
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/recipes/{id}",
		path:     "/recipes/" + url.PathEscape(id),
		token:    token,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateRecipe delegates AI generation to the API.
func (c *Client) GenerateRecipe(ctx context.Context, token, idemKey string, req GenerateRequest) (*Recipe, error) {
	var out Recipe
	err := c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/recipes/generate",
		token:    token,
		idemKey:  idemKey,
		body:     req,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Favorites(ctx context.Context, token string) ([]Recipe, error) {
	var out []Recipe
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "/favorites", token: token, out: &out})
	return out, err
}

func (c *Client) AddFavorite(ctx context.Context, token, recipeID string) error {
	return c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/favorites",
		token:    token,
		body:     map[string]string{"recipeId": recipeID},
	})
}

func (c *Client) RemoveFavorite(ctx context.Context, token, recipeID string) error {
	return c.do(ctx, call{
		method:   http.MethodDelete,
		endpoint: "/favorites/{recipeId}",
		path:     "/favorites/" + url.PathEscape(recipeID),
		token:    token,
	})
}

func (c *Client) History(ctx context.Context, token string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "/recipe-history/user", token: token, out: &out})
	return out, err
}
