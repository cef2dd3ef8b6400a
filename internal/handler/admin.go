package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-storefront/internal/apiclient"
	"github.com/iliyamo/service-storefront/internal/ledger"
	"github.com/iliyamo/service-storefront/internal/middleware"
	"github.com/iliyamo/service-storefront/internal/model"
	"github.com/iliyamo/service-storefront/internal/queue"
	"github.com/iliyamo/service-storefront/internal/resource"
	"github.com/iliyamo/service-storefront/internal/validate"
	"github.com/iliyamo/service-storefront/internal/view"
)

// AdminStats shows the aggregate counters on the admin home.
func (h *Handler) AdminStats(c echo.Context) error {
	st := middleware.CurrentSession(c)
	stats, err := await(c, func(ctx context.Context) (model.DashboardStats, error) {
		return h.API.DashboardStats(ctx, st.Token)
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": st.User, "stats": stats})
}

type actionReq struct {
	Confirm bool `json:"confirm" form:"confirm" query:"confirm"`
}

// ListTable renders a moderation table.
func ListTable[T any](h *Handler, t *resource.Table[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		st := middleware.CurrentSession(c)
		v, err := await(c, func(ctx context.Context) (resource.View, error) {
			return t.Load(ctx, st.Token)
		})
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(http.StatusOK, v)
	}
}

// ApplyTable runs a row action and answers with the refetched table.  An
// empty action is taken from the :action path parameter.
func ApplyTable[T any](h *Handler, t *resource.Table[T], action string, after func(echo.Context)) echo.HandlerFunc {
	return func(c echo.Context) error {
		st := middleware.CurrentSession(c)
		var req actionReq
		if err := c.Bind(&req); err != nil {
			return h.fail(c, validate.Errors{"_": "invalid request body"})
		}
		if !req.Confirm && c.QueryParam("confirm") == "true" {
			req.Confirm = true
		}
		act := action
		if act == "" {
			act = c.Param("action")
		}
		id := c.Param("id")

		v, err := await(c, func(ctx context.Context) (resource.View, error) {
			return t.Apply(ctx, st.Token, id, act, req.Confirm)
		})
		if err != nil {
			return h.fail(c, err)
		}
		if after != nil {
			after(c)
		}
		ev := queue.NewEvent(queue.EventAdminAction, st.User.ID, st.User.Email)
		ev.Subject = id
		ev.Detail = map[string]string{"table": t.Name, "action": act}
		h.publish(c, ev)
		return c.JSON(http.StatusOK, v)
	}
}

// userEdit is the refetched users table plus the outcome of one edit.
type userEdit struct {
	resource.View
	Applied []ledger.Part `json:"applied"`
	Failed  ledger.Part   `json:"failed,omitempty"`
}

// EditUser applies an admin's edit of one user.  Only the parts that
// differ from the stored user are sent, one call each.  The answer carries
// the refetched users table whenever anything was applied.
func (h *Handler) EditUser(c echo.Context) error {
	st := middleware.CurrentSession(c)
	var f validate.AdminUserForm
	if err := h.bind(c, &f); err != nil {
		return h.fail(c, err)
	}
	id := c.Param("id")
	original, err := await(c, func(ctx context.Context) (model.User, error) {
		return h.API.GetUser(ctx, st.Token, id)
	})
	if err != nil {
		return h.fail(c, err)
	}

	plan := ledger.PlanUserEdit(original, ledger.UserEditForm{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Phone:    f.Phone,
		Balance:  f.Balance,
		Password: f.Password,
	})
	if plan.Empty() {
		return h.usersAfterEdit(c, http.StatusOK, userEdit{
			View:    resource.View{Message: "nothing to update"},
			Applied: []ledger.Part{},
		})
	}

	res, err := await(c, func(ctx context.Context) (ledger.EditResult, error) {
		return ledger.Apply(ctx, h.API, st.Token, plan)
	})
	if len(res.Applied) > 0 {
		ev := queue.NewEvent(queue.EventUserEdited, st.User.ID, st.User.Email)
		ev.Subject = id
		ev.Detail = map[string]string{"parts": joinParts(res.Applied)}
		if f.Balance != original.Balance {
			ev.Amount = f.Balance - original.Balance
		}
		h.publish(c, ev)
	}
	if err != nil {
		if len(res.Applied) == 0 {
			return h.fail(c, err)
		}
		if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, view.ErrDiscarded) {
			return h.fail(c, err)
		}
		// Earlier parts stay applied; say exactly which.
		status := http.StatusBadGateway
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			status = apiErr.Status
		}
		return h.usersAfterEdit(c, status, userEdit{
			View:    resource.View{Message: apiclient.Message(err)},
			Applied: res.Applied,
			Failed:  res.Failed,
		})
	}
	return h.usersAfterEdit(c, http.StatusOK, userEdit{
		View:    resource.View{Message: orDefault(res.Message, "User updated")},
		Applied: res.Applied,
	})
}

// usersAfterEdit refetches the users table into out and answers with it.
// A failed refetch still reports what was applied.
func (h *Handler) usersAfterEdit(c echo.Context, status int, out userEdit) error {
	st := middleware.CurrentSession(c)
	v, err := await(c, func(ctx context.Context) (resource.View, error) {
		return h.Tables.Users.Load(ctx, st.Token)
	})
	switch {
	case errors.Is(err, view.ErrDiscarded):
		return nil
	case errors.Is(err, apiclient.ErrUnauthorized):
		return h.fail(c, err)
	case err != nil:
		h.logger(c).WithError(err).Warn("users refetch after edit failed")
		out.Name = h.Tables.Users.Name
	default:
		v.Message = out.Message
		out.View = v
	}
	return c.JSON(status, out)
}

// CreateService adds a catalog entry.
func (h *Handler) CreateService(c echo.Context) error {
	return h.saveService(c, "")
}

// UpdateService replaces a catalog entry.
func (h *Handler) UpdateService(c echo.Context) error {
	return h.saveService(c, c.Param("id"))
}

func (h *Handler) saveService(c echo.Context, id string) error {
	st := middleware.CurrentSession(c)
	var f validate.ServiceForm
	if err := h.bind(c, &f); err != nil {
		return h.fail(c, err)
	}
	in := apiclient.ServiceInput{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Category:    strings.TrimSpace(f.Category),
	}
	for _, o := range f.Options {
		in.Options = append(in.Options, model.ServiceOption{Name: strings.TrimSpace(o.Name), Price: o.Price})
	}

	msg, err := await(c, func(ctx context.Context) (string, error) {
		if id == "" {
			return h.API.CreateService(ctx, st.Token, in)
		}
		return h.API.UpdateService(ctx, st.Token, id, in)
	})
	if err != nil {
		return h.fail(c, err)
	}
	h.PurgeCatalog(c)

	action := "update"
	status := http.StatusOK
	if id == "" {
		action, status = "create", http.StatusCreated
	}
	ev := queue.NewEvent(queue.EventAdminAction, st.User.ID, st.User.Email)
	ev.Subject = id
	ev.Detail = map[string]string{"table": h.Tables.Services.Name, "action": action, "title": in.Title}
	h.publish(c, ev)

	v, err := await(c, func(ctx context.Context) (resource.View, error) {
		return h.Tables.Services.Load(ctx, st.Token)
	})
	if err != nil {
		return h.fail(c, err)
	}
	v.Message = orDefault(msg, "Service saved")
	return c.JSON(status, v)
}

func joinParts(ps []ledger.Part) string {
	s := make([]string, len(ps))
	for i, p := range ps {
		s[i] = string(p)
	}
	return strings.Join(s, ",")
}
