package middleware // middleware provides shared request processing for the storefront

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/service-storefront/internal/session"
    "github.com/iliyamo/service-storefront/internal/utils"
)

// CookieName is the browser cookie carrying the signed session id.
const CookieName = "sf_session"

const ctxSession = "session"

// Session returns an Echo middleware that reads the session cookie,
// verifies its signature and restores the session behind it.  A missing,
// tampered or expired cookie yields a logged-out state; the request is
// never rejected here.  Access decisions belong to Guard.
func Session(store *session.Store, secret string, log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            st := session.State{}
            if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "" {
                sid, err := utils.ParseSessionCookie(secret, ck.Value)
                if err != nil {
                    ClearSessionCookie(c, false)
                } else {
                    restored, err := store.Restore(c.Request().Context(), sid)
                    switch {
                    case err != nil:
                        // Storage is down; treat the visitor as logged out
                        // for this request but keep the cookie.
                        log.WithError(err).Warn("session restore failed")
                    case !restored.LoggedIn():
                        ClearSessionCookie(c, false)
                    default:
                        st = restored
                    }
                }
            }
            c.Set(ctxSession, st)
            return next(c)
        }
    }
}

// CurrentSession returns the state restored for this request.
func CurrentSession(c echo.Context) session.State {
    if st, ok := c.Get(ctxSession).(session.State); ok {
        return st
    }
    return session.State{}
}

// SetCurrentSession replaces the request's state after a commit so later
// middleware and the response see the fresh snapshot.
func SetCurrentSession(c echo.Context, st session.State) { c.Set(ctxSession, st) }

// SetSessionCookie signs sid into the session cookie.
func SetSessionCookie(c echo.Context, secret, sid string, ttl time.Duration, secure bool) error {
    sc, err := utils.NewSessionCookie(secret, sid, ttl)
    if err != nil {
        return err
    }
    c.SetCookie(&http.Cookie{
        Name:     CookieName,
        Value:    sc.Token,
        Path:     "/",
        Expires:  sc.Exp,
        HttpOnly: true,
        Secure:   secure,
        SameSite: http.SameSiteLaxMode,
    })
    return nil
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(c echo.Context, secure bool) {
    c.SetCookie(&http.Cookie{
        Name:     CookieName,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        Expires:  time.Unix(0, 0),
        HttpOnly: true,
        Secure:   secure,
        SameSite: http.SameSiteLaxMode,
    })
}
