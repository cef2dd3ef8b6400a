package middleware

// identity.go holds helpers shared across middleware files.

import "github.com/labstack/echo/v4"

// userID returns the id of the logged-in user, or "guest".
func userID(c echo.Context) string {
    st := CurrentSession(c)
    if st.User == nil || st.User.ID == "" {
        return "guest"
    }
    return st.User.ID
}
