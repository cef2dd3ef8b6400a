package handler // package handler contains the storefront's HTTP handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/service-storefront/internal/apiclient"
	"github.com/iliyamo/service-storefront/internal/authz"
	"github.com/iliyamo/service-storefront/internal/middleware"
	"github.com/iliyamo/service-storefront/internal/model"
	"github.com/iliyamo/service-storefront/internal/queue"
	"github.com/iliyamo/service-storefront/internal/resource"
	"github.com/iliyamo/service-storefront/internal/service"
	"github.com/iliyamo/service-storefront/internal/session"
	"github.com/iliyamo/service-storefront/internal/validate"
	"github.com/iliyamo/service-storefront/internal/view"
)

// API is everything the handlers ask of the remote API.
type API interface {
	resource.API

	Register(ctx context.Context, in apiclient.RegisterInput) (apiclient.AuthResult, error)
	Login(ctx context.Context, email, password string) (apiclient.AuthResult, error)
	Me(ctx context.Context, token string) (model.User, error)
	UpdateProfile(ctx context.Context, token string, in apiclient.ProfileInput) (model.User, string, error)
	UpdateAdminProfile(ctx context.Context, token string, in apiclient.ProfileInput) (model.User, string, error)

	GetService(ctx context.Context, token, id string) (model.Service, error)
	CreateService(ctx context.Context, token string, in apiclient.ServiceInput) (string, error)
	UpdateService(ctx context.Context, token, id string, in apiclient.ServiceInput) (string, error)

	CreateOrder(ctx context.Context, token string, in apiclient.OrderInput) (string, error)
	MyOrders(ctx context.Context, token string) ([]model.Order, error)
	CreateTopUp(ctx context.Context, token string, in apiclient.TopUpInput) (string, error)
	MyTopUps(ctx context.Context, token string) ([]model.TopUpRequest, error)

	GetUser(ctx context.Context, token, id string) (model.User, error)
	UpdateUserInfo(ctx context.Context, token, id string, in apiclient.UserInfoInput) (string, error)
	UpdateUserBalance(ctx context.Context, token, id string, balance int64) (string, error)
	UpdateUserPassword(ctx context.Context, token, id, password string) (string, error)
	DashboardStats(ctx context.Context, token string) (model.DashboardStats, error)
}

// Purger drops cached catalog responses.
type Purger interface {
	Purge(ctx context.Context) error
}

// Cookie holds the session cookie settings.
type Cookie struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

// Site carries static details shown on informational pages.
type Site struct {
	PaymentNumber   string
	ContactWhatsApp string
}

// Handler bundles dependencies shared by every storefront endpoint.
type Handler struct {
	API       API
	Sessions  *session.Store
	Validator *validate.Validator
	Tables    resource.Tables
	Events    service.Publisher
	Catalog   Purger
	Log       logrus.FieldLogger
	Cookie    Cookie
	Site      Site
}

// New builds a Handler.  A nil publisher or purger disables that feature.
func New(api API, store *session.Store, v *validate.Validator, events service.Publisher, catalog Purger,
	log logrus.FieldLogger, cookie Cookie, site Site) *Handler {
	if events == nil {
		events = service.Nop{}
	}
	return &Handler{
		API:       api,
		Sessions:  store,
		Validator: v,
		Tables:    resource.NewTables(api),
		Events:    events,
		Catalog:   catalog,
		Log:       log,
		Cookie:    cookie,
		Site:      site,
	}
}

// await runs fn against the request's lifetime.
func await[T any](c echo.Context, fn func(context.Context) (T, error)) (T, error) {
	return view.Await(c.Request().Context(), fn)
}

// bind decodes the request into form and validates it.  Validation
// failures are returned as validate.Errors before anything leaves the
// process.
func (h *Handler) bind(c echo.Context, form any) error {
	if err := c.Bind(form); err != nil {
		return validate.Errors{"_": "invalid request body"}
	}
	return h.Validator.Check(form)
}

// fail maps err onto the response:
//
//	validation          422 {"errors": {...}}
//	401 / lost session  session cleared, 303 to /login
//	API business error  the API's status and message
//	anything else       502 with the generic message
func (h *Handler) fail(c echo.Context, err error) error {
	var (
		verrs  validate.Errors
		apiErr *apiclient.APIError
	)
	switch {
	case errors.Is(err, view.ErrDiscarded):
		// The browser went away; there is no one to answer.
		return nil
	case errors.As(err, &verrs):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": verrs})
	case errors.Is(err, apiclient.ErrUnauthorized), errors.Is(err, session.ErrNoSession):
		return h.teardown(c)
	case errors.Is(err, resource.ErrConfirmationRequired):
		return c.JSON(http.StatusConflict, echo.Map{"message": "please confirm this action", "confirm": true})
	case errors.Is(err, resource.ErrTransitionNotAllowed):
		return c.JSON(http.StatusConflict, echo.Map{"message": "this item has already been processed"})
	case errors.Is(err, resource.ErrRowNotFound), errors.Is(err, resource.ErrUnknownAction):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status >= 500 {
			status = http.StatusBadGateway
		}
		return c.JSON(status, echo.Map{"message": apiclient.Message(err)})
	}
	h.logger(c).WithError(err).Warn("upstream call failed")
	return c.JSON(http.StatusBadGateway, echo.Map{"message": apiclient.GenericMessage})
}

// teardown drops the current session and sends the browser to login.
func (h *Handler) teardown(c echo.Context) error {
	st := middleware.CurrentSession(c)
	if err := h.Sessions.Clear(context.WithoutCancel(c.Request().Context()), st.ID); err != nil {
		h.logger(c).WithError(err).Error("session clear failed")
	}
	middleware.ClearSessionCookie(c, h.Cookie.Secure)
	middleware.SetCurrentSession(c, session.State{})
	return c.Redirect(http.StatusSeeOther, authz.LoginPath)
}

// refresh refetches the signed-in user and commits it.  A failure other
// than a lost session leaves st as it was.
func (h *Handler) refresh(c echo.Context, st session.State) (session.State, error) {
	user, err := await(c, func(ctx context.Context) (model.User, error) { return h.API.Me(ctx, st.Token) })
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, view.ErrDiscarded) {
			return st, err
		}
		h.logger(c).WithError(err).Warn("user refresh failed")
		return st, nil
	}
	fresh, err := h.Sessions.Commit(c.Request().Context(), st.ID, user)
	if err != nil {
		return st, err
	}
	middleware.SetCurrentSession(c, fresh)
	return fresh, nil
}

// publish sends an audit event without holding up the response.
func (h *Handler) publish(c echo.Context, ev queue.Event) {
	ev.RequestID = c.Response().Header().Get(middleware.RequestIDHeader)
	if err := h.Events.Publish(context.WithoutCancel(c.Request().Context()), ev); err != nil {
		h.logger(c).WithError(err).WithField("event", ev.Type).Debug("event not published")
	}
}

// PurgeCatalog drops cached catalog pages after a service change.
func (h *Handler) PurgeCatalog(c echo.Context) {
	if h.Catalog == nil {
		return
	}
	if err := h.Catalog.Purge(context.WithoutCancel(c.Request().Context())); err != nil {
		h.logger(c).WithError(err).Warn("catalog cache purge failed")
	}
}

func (h *Handler) logger(c echo.Context) logrus.FieldLogger {
	return middleware.Logger(c, h.Log)
}

func orDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}
