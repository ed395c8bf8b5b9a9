package middlewares

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// WithClientIP resuelve la IP del cliente una vez por request. X-Forwarded-For
// y X-Real-IP solo se aceptan detrás de un proxy confiable; si no, cualquiera
// podría rotar IPs y esquivar el rate limit por IP.
func WithClientIP(trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteHost(r)
			if trustProxy {
				if fwd := forwardedFor(r); fwd != "" {
					ip = fwd
				}
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPKey, ip)))
		})
	}
}

func forwardedFor(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return ""
}

// WithSecurityHeaders fija las cabeceras de una API JSON sin contenido
// embebible. HSTS solo sobre TLS (o X-Forwarded-Proto=https con proxy confiable).
func WithSecurityHeaders(trustProxy bool) Middleware {
	const csp = "default-src 'none'; frame-ancestors 'none'"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", csp)
			secure := r.TLS != nil ||
				(trustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"))
			if secure {
				h.Set("Strict-Transport-Security", "max-age=31536000")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithNoStore para rutas que devuelven tokens o códigos.
func WithNoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
