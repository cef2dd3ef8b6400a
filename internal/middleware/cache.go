package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/service-storefront/internal/config"
)

// cachedPage is what a cache entry holds.
type cachedPage struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

// teeWriter forwards the response and keeps a copy of up to limit bytes.
// over is set once the body outgrows the limit; such pages are not stored.
type teeWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    limit  int
    over   bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.over {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.over = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// skipHeader lists headers that must never be replayed from the cache.
func skipHeader(k string) bool {
    switch http.CanonicalHeaderKey(k) {
    case "Set-Cookie", "Content-Length", "X-Cache", RequestIDHeader:
        return true
    }
    return false
}

func encodePage(p cachedPage) ([]byte, error) { return json.Marshal(p) }

func decodePage(bs []byte) (cachedPage, bool) {
    var p cachedPage
    if err := json.Unmarshal(bs, &p); err != nil || p.Status == 0 {
        return cachedPage{}, false
    }
    return p, true
}

func genKey(prefix string) string { return prefix + ":gen" }

// pageKey addresses one page within one cache generation.  The concrete
// path is hashed so /service/a and /service/b never share an entry.
func pageKey(cfg config.CacheConfig, gen int64, r *http.Request) string {
    target := r.URL.Path
    if cfg.VaryQuery && r.URL.RawQuery != "" {
        target += "?" + r.URL.RawQuery
    }
    sum := sha1.Sum([]byte(target))
    return cfg.Prefix + ":" + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:])
}

// generation reads the current cache generation; a missing counter is 0.
func generation(ctx context.Context, rdb *redis.Client, prefix string) (int64, error) {
    n, err := rdb.Get(ctx, genKey(prefix)).Int64()
    if errors.Is(err, redis.Nil) {
        return 0, nil
    }
    return n, err
}

// NewRedisCache caches successful catalog pages in Redis.  Only routes
// whose body is identical for every signed-in user may be wrapped:
// balances and order history must never go through it.  Any Redis error
// falls through to the handler.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = time.Minute
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if req.Method != http.MethodGet {
                return next(c)
            }
            ctx := req.Context()
            gen, err := generation(ctx, rdb, cfg.Prefix)
            if err != nil {
                return next(c)
            }
            key := pageKey(cfg, gen, req)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if page, ok := decodePage(bs); ok {
                    h := c.Response().Header()
                    for k, vals := range page.Header {
                        if skipHeader(k) {
                            continue
                        }
                        h[k] = append([]string(nil), vals...)
                    }
                    h.Set("X-Cache", "HIT")
                    return c.Blob(page.Status, h.Get(echo.HeaderContentType), page.Body)
                }
            }

            tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = tw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if tw.status != http.StatusOK || tw.over {
                return nil
            }

            page := cachedPage{Status: tw.status, Header: http.Header{}, Body: tw.buf.Bytes()}
            for k, vals := range c.Response().Header() {
                if !skipHeader(k) {
                    page.Header[k] = append([]string(nil), vals...)
                }
            }
            if bs, err := encodePage(page); err == nil {
                // The request may be gone by now; the write must still land.
                _ = rdb.Set(context.WithoutCancel(ctx), key, bs, ttl).Err()
            }
            return nil
        }
    }
}

// CachePurger invalidates the catalog cache.  Admin service mutations call
// it so edits show up before the TTL runs out.
type CachePurger struct {
    rdb    *redis.Client
    prefix string
}

func NewCachePurger(cfg config.CacheConfig, rdb *redis.Client) *CachePurger {
    return &CachePurger{rdb: rdb, prefix: cfg.Prefix}
}

// Purge starts a new cache generation.  A nil purger or client is a no-op.
func (p *CachePurger) Purge(ctx context.Context) error {
    if p == nil || p.rdb == nil {
        return nil
    }
    return p.rdb.Incr(ctx, genKey(p.prefix)).Err()
}
