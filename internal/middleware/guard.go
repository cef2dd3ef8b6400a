package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-storefront/internal/authz"
)

// Guard applies the authorization state machine to every request it wraps.
// A redirect decision answers 303 See Other so a POST from a stale page
// turns into a GET of the destination.  It assumes Session ran first.
func Guard() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            st := CurrentSession(c)
            d := authz.Resolve(authz.State{User: st.User, Loading: st.Loading}, c.Request().URL.Path)
            switch d.Outcome {
            case authz.Redirect:
                return c.Redirect(http.StatusSeeOther, d.Location)
            case authz.Loading:
                return c.JSON(http.StatusAccepted, echo.Map{"loading": true})
            }
            return next(c)
        }
    }
}
