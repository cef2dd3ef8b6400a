package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/service-storefront/internal/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const ctxLogger = "logger"

// RequestLog assigns a request id, records HTTP metrics and writes one
// structured line per request.
func RequestLog(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            rid := req.Header.Get(RequestIDHeader)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(RequestIDHeader, rid)

            entry := log.WithFields(logrus.Fields{
                "request_id": rid,
                "method":     req.Method,
                "path":       req.URL.Path,
            })
            c.Set(ctxLogger, entry)

            done := metrics.Begin(req.Method)
            start := time.Now()
            err := next(c)
            if err != nil {
                // Let Echo's error handler write the response so the status
                // below is the one the client saw.
                c.Error(err)
            }
            status := c.Response().Status
            done(c.Path(), status)

            fields := logrus.Fields{
                "route":      c.Path(),
                "status":     status,
                "latency_ms": time.Since(start).Milliseconds(),
                "user_id":    userID(c),
            }
            switch {
            case status >= 500:
                entry.WithFields(fields).WithError(err).Error("request")
            case status >= 400:
                entry.WithFields(fields).Warn("request")
            default:
                entry.WithFields(fields).Info("request")
            }
            return nil
        }
    }
}

// Logger returns the request-scoped log entry, falling back to base.
func Logger(c echo.Context, base logrus.FieldLogger) logrus.FieldLogger {
    if e, ok := c.Get(ctxLogger).(*logrus.Entry); ok {
        return e
    }
    return base
}
