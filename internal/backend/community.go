package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) Posts(ctx context.Context, token string) ([]Post, error) {
	var out []Post
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "/community-posts", token: token, out: &out})
	return out, err
}

func (c *Client) Post(ctx context.Context, token, id string) (*Post, error) {
	var out Post
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/community-posts/{id}",
		path:     "/community-posts/" + url.PathEscape(id),
		token:    token,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePost(ctx context.Context, token, idemKey string, p NewPost) (*Post, error) {
	var out Post
	err := c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/community-posts",
		token:    token,
		idemKey:  idemKey,
		body:     p,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Chat(ctx context.Context, token, postID string) ([]ChatMessage, error) {
	var out []ChatMessage
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/post-chat/{postId}",
		path:     "/post-chat/" + url.PathEscape(postID),
		token:    token,
		out:      &out,
	})
	return out, err
}

func (c *Client) SendChat(ctx context.Context, token, idemKey, postID, message string) error {
	return c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/post-chat/{postId}",
		path:     "/post-chat/" + url.PathEscape(postID),
		token:    token,
		idemKey:  idemKey,
		body:     map[string]string{"message": message},
	})
}
