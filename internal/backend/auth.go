package backend

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password, idemKey string) (*Session, error) {
	var out Session
	err := c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/auth/login",
		idemKey:  idemKey,
		body:     map[string]string{"email": email, "password": password},
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	if out.BearerToken() == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "login response carried no token"}
	}
	return &out, nil
}

// Logout tells the API the token is finished.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, call{method: http.MethodPost, endpoint: "/auth/logout", token: token})
}

func (c *Client) Register(ctx context.Context, reg Registration, idemKey string) (*User, error) {
	var out User
	err := c.do(ctx, call{method: http.MethodPost, endpoint: "/users", idemKey: idemKey, body: reg, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me is the authoritative "who am I".
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.do(ctx, call{method: http.MethodGet, endpoint: "/users/me", token: token, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword triggers the reset-code email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/auth/forgot-password",
		body:     map[string]string{"email": email},
	})
}

// SendResetPassword is step one of the two-step reset.
func (c *Client) SendResetPassword(ctx context.Context, pc PasswordChange) error {
	return c.do(ctx, call{method: http.MethodPost, endpoint: "/auth/send-reset-password", body: pc})
}

// ConfirmResetCode is step two of the two-step reset.
func (c *Client) ConfirmResetCode(ctx context.Context, cc CodeConfirmation) error {
	return c.do(ctx, call{method: http.MethodPost, endpoint: "/auth/confirm-code-reset-password", body: cc})
}
