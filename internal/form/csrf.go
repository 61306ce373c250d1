// internal/form/csrf.go
//
// Forms subsystem: stateless CSRF token utilities.
//
// Context
//   Every rendered form embeds a hidden `csrf_token`.  The server verifies it
//   on POST to ensure the request came from a form it rendered.  The token is
//   stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce      16 random bytes.
//   •  unixMicro  microseconds since Unix epoch, 8 bytes, big-endian.
//   •  HMAC       keyed with the process secret.
//
//   Validation checks the signature and that the timestamp is within maxAge.
//   No server-side state is kept, so any instance can verify any token.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"html/template"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	tokenBytes = 16 + 8 + sha256.Size
	maxAge     = 2 * time.Hour
)

var (
	secretMu  sync.RWMutex
	secretKey []byte
)

// SetSecret installs the HMAC key.  Keys shorter than 32 bytes are rejected
// and a random key is used instead.
func SetSecret(key []byte) {
	secretMu.Lock()
	defer secretMu.Unlock()
	if len(key) >= 32 {
		secretKey = append([]byte(nil), key...)
		return
	}
	secretKey = randomKey()
	zap.S().Warnw("csrf key missing or shorter than 32 bytes, using a random key; tokens will not survive restarts")
}

func randomKey() []byte {
	k := make([]byte, 32)
	_, _ = rand.Read(k)
	return k
}

func fetchSecret() []byte {
	secretMu.RLock()
	k := secretKey
	secretMu.RUnlock()
	if k != nil {
		return k
	}
	secretMu.Lock()
	defer secretMu.Unlock()
	if secretKey == nil {
		secretKey = randomKey()
	}
	return secretKey
}

// GenerateToken creates a new CSRF token.  Call once per form render.
func GenerateToken() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(nowFunc().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, sign(nonce, ts)...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyToken reports whether tok passes HMAC and age checks.
func VerifyToken(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}
	nonce, tsBytes, sig := raw[:16], raw[16:24], raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	now := nowFunc()
	if now.Sub(issued) > maxAge || issued.Sub(now) > time.Minute {
		return false
	}
	return hmac.Equal(sig, sign(nonce, tsBytes))
}

func sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, fetchSecret())
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}

// CSRFField renders the hidden token input alone, for one-button forms
// (sign out, favorite toggles) that have no form definition.
func CSRFField() template.HTML {
	tok, err := GenerateToken()
	if err != nil {
		zap.S().Errorw("csrf token generation failed", "err", err)
		return ""
	}
	var buf bytes.Buffer
	writeHidden(&buf, FieldCSRF, tok)
	return template.HTML(buf.String())
}

// RequireToken guards handlers of one-button forms: the POST must carry a
// valid CSRF token or it is refused with 403.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !VerifyToken(r.PostFormValue(FieldCSRF)) {
			zap.S().Infow("csrf token rejected", "path", r.URL.Path)
			http.Error(w, "Security token invalid.  Please refresh and try again.", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
