package middleware

import (
	"github.com/labstack/echo/v4"
)

// baseHeaders are sent on every response. Bodies carry PHI: nothing is
// cached or framed and no referrer leaves the service.
var baseHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
}

// hstsHeader pins clients to HTTPS for a year.
var hstsHeader = [2]string{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"}

// SecurityHeaders sets the PHI-safe response headers, plus
// Strict-Transport-Security when tls is true.
func SecurityHeaders(tls bool) echo.MiddlewareFunc {
	headers := baseHeaders
	if tls {
		headers = append(append([][2]string{}, baseHeaders...), hstsHeader)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range headers {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
