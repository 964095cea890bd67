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

    "github.com/dmarkova/taskhub/internal/config"
)

// recordingWriter tees the response body so a successful reply can be
// stored after the handler runs.  Bodies beyond limit are passed through
// to the client but not retained.
type recordingWriter struct {
    http.ResponseWriter
    status  int
    body    bytes.Buffer
    written int64
    limit   int64
}

func (w *recordingWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
    if w.limit <= 0 {
        w.body.Write(b)
    } else if w.written < w.limit {
        if keep := w.limit - w.written; int64(len(b)) <= keep {
            w.body.Write(b)
        } else {
            w.body.Write(b[:keep])
        }
    }
    w.written += int64(len(b))
    return w.ResponseWriter.Write(b)
}

// cacheKey derives the Redis key for a request.  The key binds the entry
// to the caller: the resolved principal when one is set, otherwise the
// raw Authorization header.  Two users, or one user with two tokens but
// no principal, can never share an entry.  The resolved request URI is
// used rather than the route pattern so /tenants/a and /tenants/b hash
// differently.
func cacheKey(prefix string, c echo.Context) string {
    r := c.Request()
    caller := "anon"
    if p, ok := GetPrincipal(c); ok {
        caller = "u:" + p.UserID
    } else if auth := r.Header.Get(echo.HeaderAuthorization); auth != "" {
        caller = "t:" + auth
    }
    sum := sha1.Sum([]byte(caller + "\n" + r.Method + "\n" + r.URL.RequestURI()))
    return fmt.Sprintf("%s:%x", prefix, sum)
}

// Stored entry layout: [4B status][4B header length][header JSON][body].
func packEntry(status int, header http.Header, body []byte) ([]byte, error) {
    hdr, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdr)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
    copy(out[8:], hdr)
    copy(out[8+len(hdr):], body)
    return out, nil
}

func unpackEntry(raw []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(raw) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(raw[0:4]))
    hlen := int(binary.BigEndian.Uint32(raw[4:8]))
    if hlen < 0 || 8+hlen > len(raw) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(raw[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, raw[8+hlen:], true
}

// NewRedisCache caches successful responses per principal.  Mount it
// behind ResolvePrincipal; entries replay the original status, headers
// and body so hits are indistinguishable from fresh responses apart from
// the X-Cache header.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            ctx := c.Request().Context()
            key := cacheKey(cfg.Prefix, c)

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := unpackEntry(raw); ok {
                    for k, vals := range hdr {
                        if strings.EqualFold(k, "Content-Length") {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }

            rec := &recordingWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            // Only complete 200s are stored; truncated bodies are skipped.
            if rec.status == http.StatusOK && (maxBody <= 0 || rec.written <= maxBody) {
                hdr := make(http.Header, len(c.Response().Header()))
                for k, vals := range c.Response().Header() {
                    hdr[k] = append([]string(nil), vals...)
                }
                if entry, err := packEntry(rec.status, hdr, rec.body.Bytes()); err == nil {
                    _ = rdb.SetEx(context.Background(), key, entry, ttl).Err()
                }
            }
            return nil
        }
    }
}
