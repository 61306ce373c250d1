// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects standard headers on every response:
//
//   • Strict-Transport-Security  (production only)
//   • Content-Security-Policy   self plus the payment provider's JS origin
//   • X-Frame-Options           click-jacking defence
//   • X-Content-Type-Options    MIME-sniffing defence
//   • Referrer-Policy           drops path/query from Referer
//   • Permissions-Policy        disables powerful features by default
//
// Headers are set before next runs; a handler that needs a different value
// simply overwrites it.

package middleware

import "net/http"

const (
	hsts = "max-age=63072000; includeSubDomains; preload"
	csp  = "default-src 'self'; img-src 'self' data: https:; object-src 'none'; " +
		"script-src 'self' https://js.stripe.com; frame-src https://js.stripe.com https://hooks.stripe.com; " +
		"connect-src 'self' https://api.stripe.com; base-uri 'self'; frame-ancestors 'none'"
	perm = "geolocation=(), microphone=(), camera=()"
)

// Security returns the header middleware.  HSTS is only sent when hsts is
// true, so development over plain HTTP is not pinned.
func Security(withHSTS bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if withHSTS {
				h.Set("Strict-Transport-Security", hsts)
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", perm)
			next.ServeHTTP(w, r)
		})
	}
}
