package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-storefront/internal/apiclient"
	"github.com/iliyamo/service-storefront/internal/middleware"
	"github.com/iliyamo/service-storefront/internal/model"
	"github.com/iliyamo/service-storefront/internal/queue"
	"github.com/iliyamo/service-storefront/internal/validate"
)

// Profile shows the signed-in account with its order history.
func (h *Handler) Profile(c echo.Context) error {
	st := middleware.CurrentSession(c)
	orders, err := await(c, func(ctx context.Context) ([]model.Order, error) {
		return h.API.MyOrders(ctx, st.Token)
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":    st.User,
		"balance": st.Balance,
		"orders":  orders,
		"stats":   model.SummarizeOrders(orders),
	})
}

// UpdateProfile edits the signed-in user's own account.
func (h *Handler) UpdateProfile(c echo.Context) error {
	return h.updateProfile(c, h.API.UpdateProfile)
}

// UpdateAdminProfile is UpdateProfile for admins, sent to the admin
// endpoint.
func (h *Handler) UpdateAdminProfile(c echo.Context) error {
	return h.updateProfile(c, h.API.UpdateAdminProfile)
}

type profileUpdater func(ctx context.Context, token string, in apiclient.ProfileInput) (model.User, string, error)

func (h *Handler) updateProfile(c echo.Context, update profileUpdater) error {
	st := middleware.CurrentSession(c)
	var f validate.ProfileForm
	if err := h.bind(c, &f); err != nil {
		return h.fail(c, err)
	}
	in := apiclient.ProfileInput{
		Name:  strings.TrimSpace(f.Name),
		Email: strings.TrimSpace(f.Email),
		Phone: f.Phone,
	}
	// The current password only travels with a password change.
	if f.NewPassword != "" {
		in.Password = f.NewPassword
		in.CurrentPassword = f.CurrentPassword
	}

	type result struct {
		user model.User
		msg  string
	}
	res, err := await(c, func(ctx context.Context) (result, error) {
		u, msg, err := update(ctx, st.Token, in)
		return result{u, msg}, err
	})
	if err != nil {
		return h.fail(c, err)
	}

	fresh, err := h.Sessions.Commit(c.Request().Context(), st.ID, res.user)
	if err != nil {
		return h.fail(c, err)
	}
	middleware.SetCurrentSession(c, fresh)

	ev := queue.NewEvent(queue.EventProfileUpdated, res.user.ID, res.user.Email)
	if f.NewPassword != "" {
		ev.Detail = map[string]string{"password": "changed"}
	}
	h.publish(c, ev)

	return c.JSON(http.StatusOK, echo.Map{
		"message": orDefault(res.msg, "Profile updated"),
		"user":    fresh.User,
		"balance": fresh.Balance,
	})
}
