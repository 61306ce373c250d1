package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) Plans(ctx context.Context, token string) ([]Plan, error) {
	var out []Plan
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "/plans", token: token, out: &out})
	return out, err
}

func (c *Client) Products(ctx context.Context, token string) ([]Product, error) {
	var out []Product
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "/stripe/products", token: token, out: &out})
	return out, err
}

// Subscription returns the caller's current subscription, or nil when the
// API reports none.
func (c *Client) Subscription(ctx context.Context, token string) (*Subscription, error) {
	var out Subscription
	if err := c.do(ctx, call{method: http.MethodGet, endpoint: "/subscriptions", token: token, out: &out}); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, nil
	}
	return &out, nil
}

// SubmitPayment hands the tokenized payment method to the API, which creates
// the subscription and its payment intent.
func (c *Client) SubmitPayment(ctx context.Context, token, idemKey string, req PaymentRequest) (*PaymentResult, error) {
	var out PaymentResult
	err := c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/stripe/payment",
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

// PaymentStatus polls the intent behind a subscription.
func (c *Client) PaymentStatus(ctx context.Context, token, subscriptionID string) (*PaymentResult, error) {
	var out PaymentResult
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/stripe/payment/{subscriptionId}",
		path:     "/stripe/payment/" + url.PathEscape(subscriptionID),
		token:    token,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelSubscription(ctx context.Context, token, idemKey string) error {
	return c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/stripe/subscription/cancel",
		token:    token,
		idemKey:  idemKey,
	})
}
