package middleware

import "github.com/labstack/echo/v4"

// identityKey returns a stable per-caller key for cache and rate-limit
// buckets: the verified email when authenticated, "anon" otherwise.
func identityKey(c echo.Context) string {
	if v := c.Get("email"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "anon"
}
