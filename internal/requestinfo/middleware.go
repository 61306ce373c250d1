// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits right after chi's RealIP and RequestID middleware.  For
every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Looks up the client IP in the GeoLite2 DB when one is configured.
  3. Stores a *RequestInfo in the request context so the access log and
     templates can read UA and geo attributes without reparsing.

RealIP has already rewritten r.RemoteAddr from X-Forwarded-For or
X-Real-IP, so this file only splits host from port.
*/
package requestinfo

import (
	"net"
	"net/http"
	"time"
)

// Enrich attaches *RequestInfo and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &RequestInfo{
			UA:        ParseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
			Geo:       lookupGeo(clientIP(r)),
			Timestamp: time.Now().UTC(),
		}
		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
	})
}

// clientIP parses r.RemoteAddr, with or without a port.
func clientIP(r *http.Request) net.IP {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
