package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tutoring-marketplace/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes method, concrete path and query. The concrete path is
// used rather than the route pattern so /tutors/a and /tutors/b differ.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	tail := strings.Join([]string{r.Method, r.URL.Path, r.URL.RawQuery}, ":")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// replayable reports whether a stored header may be copied onto a cached
// response. Per-request headers (request id, rate limit state) are set fresh
// by earlier middleware and must not be duplicated.
func replayable(key string) bool {
	k := http.CanonicalHeaderKey(key)
	switch k {
	case "Content-Length", "X-Cache", "X-Request-Id", "Retry-After":
		return false
	}
	return !strings.HasPrefix(k, "X-Ratelimit-")
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// ResponseCache replays cached 200 responses (headers and body) for the
// configured methods. Responses larger than MaxBodyBytes are not stored.
// Mount Middleware after JWTAuth so unauthenticated requests never reach
// the cache, and call Invalidate after writes that change cached routes.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewResponseCache returns a cache over rdb. A nil client or a disabled
// config yields a cache whose middleware passes through and whose
// Invalidate is a no-op.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

// NewRedisCache is shorthand for NewResponseCache(cfg, rdb).Middleware().
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	return NewResponseCache(cfg, rdb).Middleware()
}

func (rc *ResponseCache) active() bool {
	return rc != nil && rc.cfg.Enabled && rc.rdb != nil
}

// Invalidate drops every entry under the cache prefix.
func (rc *ResponseCache) Invalidate(ctx context.Context) error {
	if !rc.active() {
		return nil
	}
	iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := rc.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return rc.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.active() {
		return passThrough
	}
	cfg, rdb := rc.cfg, rc.rdb
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if !replayable(k) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}

			hdr := c.Response().Header().Clone()
			for k := range hdr {
				if !replayable(k) {
					hdr.Del(k)
				}
			}
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.SetEx(context.Background(), key, payload, cfg.TTL).Err(); err != nil {
				c.Logger().Warnf("[cache] store %s: %v", key, err)
			}
			return nil
		}
	}
}
