// internal/session/session.go
//
// Session store.
//
// Context
//   The browser session is a single bearer token issued by the recipe API.
//   It lives in the `jwt` cookie for thirty days, HttpOnly, SameSite=Lax, and
//   Secure in production.  Alongside it the store manages three short-lived
//   cookies:
//
//     • reset_email / reset_password  the staged two-step password reset,
//     • checkout_pending              a payment awaiting provider action,
//
//   all encrypted and signed with gorilla/securecookie, plus a gorilla/sessions
//   cookie carrying flash messages between a POST and the page it redirects
//   to.  Callers receive a *Store by injection; nothing here is global.
//
//------------------------------------------------------------------------------

package session

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	TokenCookie         = "jwt"
	ResetEmailCookie    = "reset_email"
	ResetPasswordCookie = "reset_password"
	PendingCookie       = "checkout_pending"
	flashCookie         = "recipebox_flash"

	TokenTTL = 30 * 24 * time.Hour
	ResetTTL = time.Hour
)

// Options configures a Store.  HashKey signs and BlockKey encrypts the
// transient cookies; BlockKey must be 16, 24, or 32 bytes.
type Options struct {
	Secure   bool
	HashKey  []byte
	BlockKey []byte
}

// Store owns every cookie the frontend sets.
type Store struct {
	secure bool
	codec  *securecookie.SecureCookie
	flash  *sessions.CookieStore
	now    func() time.Time
}

func New(opts Options) (*Store, error) {
	switch len(opts.BlockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("session: block key must be 16, 24, or 32 bytes, got %d", len(opts.BlockKey))
	}
	if len(opts.HashKey) == 0 {
		return nil, fmt.Errorf("session: hash key is empty")
	}

	codec := securecookie.New(opts.HashKey, opts.BlockKey).MaxAge(int(ResetTTL / time.Second))

	fs := sessions.NewCookieStore(opts.HashKey, opts.BlockKey)
	fs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Store{secure: opts.Secure, codec: codec, flash: fs, now: time.Now}, nil
}

// DecodeKey accepts base64 (standard or URL alphabet) and falls back to the
// raw bytes of s.
func DecodeKey(s string) []byte {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b
		}
	}
	return []byte(s)
}

/*──────────────────────────── session token ───────────────────────────────*/

// Token returns the session token, if any.
func (s *Store) Token(r *http.Request) (string, bool) {
	c, err := r.Cookie(TokenCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// SetToken stores the session token for TokenTTL.
func (s *Store) SetToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, s.cookie(TokenCookie, token, TokenTTL))
}

// Clear removes the session token.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.expired(TokenCookie))
}

/*──────────────────────────── cookie helpers ──────────────────────────────*/

func (s *Store) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  s.now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Store) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Store) setEncoded(w http.ResponseWriter, name string, v any, ttl time.Duration) error {
	enc, err := s.codec.Encode(name, v)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", name, err)
	}
	http.SetCookie(w, s.cookie(name, enc, ttl))
	return nil
}

func (s *Store) getEncoded(r *http.Request, name string, dst any) bool {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return false
	}
	return s.codec.Decode(name, c.Value, dst) == nil
}
