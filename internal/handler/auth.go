package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-storefront/internal/apiclient"
	"github.com/iliyamo/service-storefront/internal/authz"
	"github.com/iliyamo/service-storefront/internal/ledger"
	"github.com/iliyamo/service-storefront/internal/middleware"
	"github.com/iliyamo/service-storefront/internal/queue"
	"github.com/iliyamo/service-storefront/internal/session"
	"github.com/iliyamo/service-storefront/internal/validate"
)

// SessionInfo is the boot endpoint: it reports who is signed in and where
// their home is.  It never redirects.
func (h *Handler) SessionInfo(c echo.Context) error {
	st := middleware.CurrentSession(c)
	if !st.LoggedIn() {
		return c.JSON(http.StatusOK, echo.Map{"loading": false, "user": nil, "isAdmin": false, "home": authz.LoginPath})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"loading": false,
		"user":    st.User,
		"isAdmin": st.IsAdmin(),
		"balance": st.Balance,
		"home":    st.User.Home(),
	})
}

// LoginPage describes the login form.
func (h *Handler) LoginPage(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"view": "login", "passwordLength": h.Validator.PasswordLength()})
}

// RegisterPage describes the registration form.
func (h *Handler) RegisterPage(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"view": "register", "passwordLength": h.Validator.PasswordLength()})
}

// Login checks credentials with the API and starts a session.
func (h *Handler) Login(c echo.Context) error {
	var f validate.LoginForm
	if err := h.bind(c, &f); err != nil {
		return h.fail(c, err)
	}
	email := strings.TrimSpace(f.Email)
	res, err := await(c, func(ctx context.Context) (apiclient.AuthResult, error) {
		return h.API.Login(ctx, email, f.Password)
	})
	if err != nil {
		return h.failAuth(c, err)
	}
	return h.begin(c, res, queue.EventLogin, http.StatusOK, "Login successful")
}

// Register creates an account and signs it in.
func (h *Handler) Register(c echo.Context) error {
	var f validate.RegisterForm
	if err := h.bind(c, &f); err != nil {
		return h.fail(c, err)
	}
	in := apiclient.RegisterInput{
		Name:     strings.TrimSpace(f.Name),
		Phone:    f.Phone,
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	}
	res, err := await(c, func(ctx context.Context) (apiclient.AuthResult, error) {
		return h.API.Register(ctx, in)
	})
	if err != nil {
		return h.failAuth(c, err)
	}
	return h.begin(c, res, queue.EventRegistered, http.StatusCreated, "Registration successful")
}

// Logout clears the session.  It is safe to call without one.
func (h *Handler) Logout(c echo.Context) error {
	st := middleware.CurrentSession(c)
	if err := h.Sessions.Clear(c.Request().Context(), st.ID); err != nil {
		h.logger(c).WithError(err).Error("session clear failed")
	}
	middleware.ClearSessionCookie(c, h.Cookie.Secure)
	if st.User != nil {
		h.publish(c, queue.NewEvent(queue.EventLogout, st.User.ID, st.User.Email))
	}
	return c.Redirect(http.StatusSeeOther, authz.LoginPath)
}

// failAuth treats every API rejection of a login or registration as a
// message for the form; there is no session to tear down yet.
func (h *Handler) failAuth(c echo.Context, err error) error {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 {
		return c.JSON(apiErr.Status, echo.Map{"message": apiclient.Message(err)})
	}
	return h.fail(c, err)
}

func (h *Handler) begin(c echo.Context, res apiclient.AuthResult, event string, status int, def string) error {
	ctx := c.Request().Context()
	sid, err := h.Sessions.Begin(ctx, res.Token, res.User)
	if err != nil {
		h.logger(c).WithError(err).Error("session begin failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": apiclient.GenericMessage})
	}
	if err := middleware.SetSessionCookie(c, h.Cookie.Secret, sid, h.Cookie.TTL, h.Cookie.Secure); err != nil {
		h.logger(c).WithError(err).Error("session cookie failed")
		_ = h.Sessions.Clear(ctx, sid)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": apiclient.GenericMessage})
	}
	u := res.User
	middleware.SetCurrentSession(c, session.State{ID: sid, Token: res.Token, User: &u, Balance: ledger.Confirmed(u.Balance)})
	h.publish(c, queue.NewEvent(event, u.ID, u.Email))

	return c.JSON(status, echo.Map{
		"message":  orDefault(res.Message, def),
		"user":     u,
		"redirect": u.Home(),
	})
}
