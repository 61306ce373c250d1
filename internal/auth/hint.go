package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("auth: malformed token")
	ErrExpiredToken   = errors.New("auth: token expired")
)

// Hint is the display identity read from a session token.  The signature is
// not verified here; the API remains the authority on every call.
type Hint struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// flexID accepts a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type claims struct {
	UserID flexID `json:"userId"`
	AltID  flexID `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// DecodeHint reads the payload of token without verifying its signature and
// rejects tokens that carry no identity or whose exp is not after now.
func DecodeHint(token string, now time.Time) (Hint, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return Hint{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	h := Hint{UserID: string(c.UserID), Email: c.Email}
	if h.UserID == "" {
		h.UserID = string(c.AltID)
	}
	if h.UserID == "" {
		h.UserID = c.Subject
	}
	if h.UserID == "" && h.Email == "" {
		return Hint{}, fmt.Errorf("%w: no subject", ErrMalformedToken)
	}

	if c.ExpiresAt != nil {
		h.ExpiresAt = c.ExpiresAt.Time
		if !h.ExpiresAt.After(now) {
			return Hint{}, ErrExpiredToken
		}
	}
	return h, nil
}
