package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-storefront/internal/apiclient"
	"github.com/iliyamo/service-storefront/internal/authz"
	"github.com/iliyamo/service-storefront/internal/middleware"
	"github.com/iliyamo/service-storefront/internal/model"
	"github.com/iliyamo/service-storefront/internal/queue"
	"github.com/iliyamo/service-storefront/internal/validate"
)

// Dashboard lists the catalog next to the user's balance.
func (h *Handler) Dashboard(c echo.Context) error {
	st := middleware.CurrentSession(c)
	services, err := await(c, func(ctx context.Context) ([]model.Service, error) {
		return h.API.ListServices(ctx, st.Token)
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":     st.User,
		"balance":  st.Balance,
		"services": services,
	})
}

// ServiceDetail shows one service and what an order for it needs.  The
// response holds nothing user specific so it may be cached.
func (h *Handler) ServiceDetail(c echo.Context) error {
	st := middleware.CurrentSession(c)
	id := c.Param("id")
	svc, err := await(c, func(ctx context.Context) (model.Service, error) {
		return h.API.GetService(ctx, st.Token, id)
	})
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return c.Redirect(http.StatusSeeOther, authz.DashboardPath)
		}
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"service":     svc,
		"targetLabel": svc.TargetLabel(),
	})
}

// PlaceOrder submits an order.  The server debits the balance; afterwards
// the user is refetched so the shown balance is the server's.
func (h *Handler) PlaceOrder(c echo.Context) error {
	st := middleware.CurrentSession(c)
	var f validate.OrderForm
	if err := h.bind(c, &f); err != nil {
		return h.fail(c, err)
	}

	id := c.Param("id")
	svc, err := await(c, func(ctx context.Context) (model.Service, error) {
		return h.API.GetService(ctx, st.Token, id)
	})
	if err != nil {
		return h.fail(c, err)
	}
	opt, ok := svc.Option(f.Option)
	if !ok {
		return h.fail(c, validate.Errors{"option": "choose one of the listed options"})
	}

	in := apiclient.OrderInput{
		ServiceID:     svc.ID,
		ServiceTitle:  svc.Title,
		ServiceOption: opt,
		TargetNumber:  strings.TrimSpace(f.TargetNumber),
		UserEmail:     strings.TrimSpace(f.Email),
	}
	msg, err := await(c, func(ctx context.Context) (string, error) {
		return h.API.CreateOrder(ctx, st.Token, in)
	})
	if err != nil {
		return h.fail(c, err)
	}

	fresh, err := h.refresh(c, st)
	if err != nil {
		return h.fail(c, err)
	}
	ev := queue.NewEvent(queue.EventOrderPlaced, st.User.ID, st.User.Email)
	ev.Subject = svc.ID
	ev.Amount = opt.Price
	ev.Detail = map[string]string{"service": svc.Title, "option": opt.Name}
	h.publish(c, ev)

	return c.JSON(http.StatusCreated, echo.Map{
		"message": orDefault(msg, "Your order has been submitted"),
		"user":    fresh.User,
		"balance": fresh.Balance,
	})
}

// Orders shows the user's order history with totals.
func (h *Handler) Orders(c echo.Context) error {
	st := middleware.CurrentSession(c)
	orders, err := await(c, func(ctx context.Context) ([]model.Order, error) {
		return h.API.MyOrders(ctx, st.Token)
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orders": orders,
		"stats":  model.SummarizeOrders(orders),
	})
}

// AddMoneyPage shows where to send money and the user's previous requests.
func (h *Handler) AddMoneyPage(c echo.Context) error {
	st := middleware.CurrentSession(c)
	reqs, err := await(c, func(ctx context.Context) ([]model.TopUpRequest, error) {
		return h.API.MyTopUps(ctx, st.Token)
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"paymentNumber": h.Site.PaymentNumber,
		"balance":       st.Balance,
		"requests":      reqs,
		"summary":       model.SummarizeTopUps(reqs),
	})
}

// AddMoney files a top-up request.  Crediting is the server's decision;
// the balance shown here is optimistic until the next refresh.
func (h *Handler) AddMoney(c echo.Context) error {
	st := middleware.CurrentSession(c)
	var f validate.TopUpForm
	if err := h.bind(c, &f); err != nil {
		return h.fail(c, err)
	}
	in := apiclient.TopUpInput{
		Amount:        f.Amount,
		SenderNumber:  f.SenderNumber,
		TransactionID: strings.TrimSpace(f.TransactionID),
	}
	msg, err := await(c, func(ctx context.Context) (string, error) {
		return h.API.CreateTopUp(ctx, st.Token, in)
	})
	if err != nil {
		return h.fail(c, err)
	}

	bal, err := h.Sessions.Credit(c.Request().Context(), st.ID, f.Amount)
	if err != nil {
		h.logger(c).WithError(err).Warn("optimistic credit failed")
		bal = st.Balance
	} else {
		st.Balance = bal
		middleware.SetCurrentSession(c, st)
	}
	ev := queue.NewEvent(queue.EventTopUpRequested, st.User.ID, st.User.Email)
	ev.Amount = f.Amount
	ev.Detail = map[string]string{"sender": f.SenderNumber, "transaction": in.TransactionID}
	h.publish(c, ev)

	return c.JSON(http.StatusCreated, echo.Map{
		"message": orDefault(msg, "Your request has been submitted"),
		"balance": bal,
	})
}
