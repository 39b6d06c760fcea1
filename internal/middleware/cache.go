package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"slot-swap-api/internal/config"
)

// cachedResponse is the stored representation of a cacheable reply.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// bodyRecorder captures response bytes while forwarding them to the
// client, up to the configured limit.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (w *bodyRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	if w.limit <= 0 || w.size < w.limit {
		remain := w.limit - w.size
		if w.limit <= 0 || int64(len(b)) <= remain {
			w.buf.Write(b)
		} else {
			w.buf.Write(b[:remain])
		}
	}
	w.size += int64(len(b))
	return w.ResponseWriter.Write(b)
}

// cacheKey builds a stable redis key from the configured strategy.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var tail string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		tail = c.Path()
	case "method_route":
		tail = r.Method + ":" + c.Path()
	default: // "route_query"
		tail = c.Path() + "?" + r.URL.RawQuery
	}
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// NewRedisCache returns a middleware that serves 200 responses for the
// configured methods out of redis. Headers are stored alongside the
// body so cached replies are byte-identical to fresh ones. With
// caching disabled or no redis client available it degrades to a
// pass-through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(bs, &cached) == nil {
					for k, vals := range cached.Header {
						if strings.EqualFold(k, "Content-Length") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(cached.Status)
					if len(cached.Body) > 0 {
						_, _ = c.Response().Write(cached.Body)
					}
					return nil
				}
			}

			rec := &bodyRecorder{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          int64(cfg.MaxBodyBytes),
			}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			// Only fully captured 200 responses are stored.
			if rec.status == http.StatusOK && (rec.limit <= 0 || rec.size <= rec.limit) {
				hdr := make(http.Header, len(c.Response().Header()))
				for k, vals := range c.Response().Header() {
					hdr[k] = append([]string(nil), vals...)
				}
				if payload, err := json.Marshal(cachedResponse{Status: rec.status, Header: hdr, Body: rec.buf.Bytes()}); err == nil {
					_ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
				}
			}
			return nil
		}
	}
}
