package apitest

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-storefront/internal/model"
)

func (s *Server) routes(e *echo.Echo) {
	user := s.authed(false)
	admin := s.authed(true)

	e.POST("/auth/register", s.register)
	e.POST("/auth/login", s.login)
	e.GET("/auth/me", s.me, user)
	e.PATCH("/auth/profile", s.updateProfile, user)

	e.POST("/orders", s.createOrder, user)
	e.GET("/orders/my-orders", s.myOrders, user)
	e.GET("/orders", s.allOrders, admin)
	e.PATCH("/orders/:id/status", s.orderStatus, admin)

	e.POST("/add-money", s.createTopUp, user)
	e.GET("/add-money/my-requests", s.myTopUps, user)
	e.GET("/add-money", s.allTopUps, admin)
	e.PATCH("/add-money/:id/status", s.topUpStatus, admin)

	e.GET("/services", s.listServices)
	e.GET("/services/:id", s.getService)
	e.POST("/services", s.createService, admin)
	e.PATCH("/services/:id", s.updateService, admin)
	e.DELETE("/services/:id", s.deleteService, admin)

	e.GET("/admin/users", s.listUsers, admin)
	e.GET("/admin/users/:id", s.getUser, admin)
	e.PATCH("/admin/users/:id/info", s.userInfo, admin)
	e.PATCH("/admin/users/:id/balance", s.userBalance, admin)
	e.PATCH("/admin/users/:id/password", s.userPassword, admin)
	e.DELETE("/admin/users/:id", s.deleteUser, admin)
	e.PATCH("/admin/profile", s.updateProfile, admin)
	e.GET("/admin/dashboard-stats", s.stats, admin)
}

type profileBody struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	CurrentPassword string `json:"currentPassword"`
}

func (s *Server) register(c echo.Context) error {
	var b profileBody
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Email, b.Email) {
			return fail(c, http.StatusBadRequest, "User already exists")
		}
	}
	u := model.User{ID: s.nextID("u"), Name: b.Name, Phone: b.Phone, Email: b.Email}
	s.accounts[u.ID] = &account{user: u, password: b.Password}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Registered", "token": s.issue(u.ID), "user": u})
}

func (s *Server) login(c echo.Context) error {
	var b profileBody
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Email, b.Email) && a.password == b.Password {
			return c.JSON(http.StatusOK, echo.Map{"token": s.issue(a.user.ID), "user": a.user})
		}
	}
	return fail(c, http.StatusBadRequest, "Invalid email or password")
}

func (s *Server) me(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meStatus != 0 {
		return fail(c, s.meStatus, "session check failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": s.accounts[uid(c)].user})
}

func (s *Server) updateProfile(c echo.Context) error {
	var b profileBody
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[uid(c)]
	if b.Password != "" {
		if b.CurrentPassword != a.password {
			return fail(c, http.StatusBadRequest, "Current password is incorrect")
		}
		a.password = b.Password
	}
	a.user.Name, a.user.Email, a.user.Phone = b.Name, b.Email, b.Phone
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated", "user": a.user})
}

func (s *Server) createOrder(c echo.Context) error {
	var b struct {
		ServiceID     string              `json:"serviceId"`
		ServiceTitle  string              `json:"serviceTitle"`
		ServiceOption model.ServiceOption `json:"serviceOption"`
		TargetNumber  string              `json:"targetNumber"`
		UserEmail     string              `json:"userEmail"`
	}
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[uid(c)]
	price := b.ServiceOption.Price
	if a.user.Balance < price {
		return fail(c, http.StatusBadRequest, "Insufficient balance")
	}
	a.user.Balance -= price
	o := model.Order{
		ID: s.nextID("o"), UserID: a.user.ID, ServiceID: b.ServiceID, ServiceTitle: b.ServiceTitle,
		ServiceOption: b.ServiceOption, TargetNumber: b.TargetNumber, UserEmail: b.UserEmail,
		Amount: price, Status: model.OrderPending, CreatedAt: now(),
	}
	s.orders = append(s.orders, o)
	return c.JSON(http.StatusCreated, echo.Map{"message": "Order placed successfully", "order": o})
}

func (s *Server) myOrders(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Order{}
	for _, o := range s.orders {
		if o.UserID == uid(c) {
			out = append(out, o)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

// populate mirrors the admin listings, which replace the requester id with
// the user document.
func (s *Server) populate(id string) *model.UserRef {
	a := s.accounts[id]
	if a == nil {
		return &model.UserRef{ID: id}
	}
	return &model.UserRef{ID: id, Name: a.user.Name, Email: a.user.Email}
}

func (s *Server) allOrders(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.orders))
	for i, o := range s.orders {
		o.User, o.UserID = s.populate(o.UserID), ""
		out[i] = o
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

func (s *Server) orderStatus(c echo.Context) error {
	var b struct {
		Status model.OrderStatus `json:"status"`
	}
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if b.Status != model.OrderConfirmed && b.Status != model.OrderCancelled {
		return fail(c, http.StatusBadRequest, "Invalid status")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		o := &s.orders[i]
		if o.ID != c.Param("id") {
			continue
		}
		if o.Status != model.OrderPending {
			return fail(c, http.StatusBadRequest, "Order already processed")
		}
		o.Status = b.Status
		if b.Status == model.OrderCancelled {
			if a := s.accounts[o.UserID]; a != nil {
				a.user.Balance += o.Amount
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Order status updated", "order": *o})
	}
	return fail(c, http.StatusNotFound, "Order not found")
}

func (s *Server) createTopUp(c echo.Context) error {
	var b struct {
		Amount        int64  `json:"amount"`
		SenderNumber  string `json:"senderNumber"`
		TransactionID string `json:"transactionId"`
	}
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := model.TopUpRequest{
		ID: s.nextID("t"), UserID: uid(c), Amount: b.Amount, SenderNumber: b.SenderNumber,
		TransactionID: b.TransactionID, Status: model.TopUpPending, CreatedAt: now(),
	}
	s.topups = append(s.topups, r)
	return c.JSON(http.StatusCreated, echo.Map{"message": "Request submitted successfully", "request": r})
}

func (s *Server) myTopUps(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.TopUpRequest{}
	for _, r := range s.topups {
		if r.UserID == uid(c) {
			out = append(out, r)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": out})
}

func (s *Server) allTopUps(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TopUpRequest, len(s.topups))
	for i, r := range s.topups {
		r.User, r.UserID = s.populate(r.UserID), ""
		out[i] = r
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": out})
}

func (s *Server) topUpStatus(c echo.Context) error {
	var b struct {
		Status model.TopUpStatus `json:"status"`
	}
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if b.Status != model.TopUpApproved && b.Status != model.TopUpRejected {
		return fail(c, http.StatusBadRequest, "Invalid status")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.topups {
		r := &s.topups[i]
		if r.ID != c.Param("id") {
			continue
		}
		if r.Status != model.TopUpPending {
			return fail(c, http.StatusBadRequest, "Request already processed")
		}
		r.Status = b.Status
		if b.Status == model.TopUpApproved {
			if a := s.accounts[r.UserID]; a != nil {
				a.user.Balance += r.Amount
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Request status updated"})
	}
	return fail(c, http.StatusNotFound, "Request not found")
}

type serviceBody struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Options     []model.ServiceOption `json:"options"`
}

func (s *Server) listServices(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"services": append([]model.Service{}, s.services...)})
}

func (s *Server) getService(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if svc.ID == c.Param("id") {
			return c.JSON(http.StatusOK, echo.Map{"service": svc})
		}
	}
	return fail(c, http.StatusNotFound, "Service not found")
}

func (s *Server) createService(c echo.Context) error {
	var b serviceBody
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	svc := model.Service{ID: s.nextID("s"), Title: b.Title, Description: b.Description, Category: b.Category, Options: b.Options}
	s.services = append(s.services, svc)
	return c.JSON(http.StatusCreated, echo.Map{"message": "Service created", "service": svc})
}

func (s *Server) updateService(c echo.Context) error {
	var b serviceBody
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.services {
		if s.services[i].ID == c.Param("id") {
			s.services[i] = model.Service{ID: s.services[i].ID, Title: b.Title, Description: b.Description, Category: b.Category, Options: b.Options}
			return c.JSON(http.StatusOK, echo.Map{"message": "Service updated", "service": s.services[i]})
		}
	}
	return fail(c, http.StatusNotFound, "Service not found")
}

func (s *Server) deleteService(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.services {
		if s.services[i].ID == c.Param("id") {
			s.services = append(s.services[:i], s.services[i+1:]...)
			return c.JSON(http.StatusOK, echo.Map{"message": "Service deleted"})
		}
	}
	return fail(c, http.StatusNotFound, "Service not found")
}

func (s *Server) listUsers(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.user)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

func (s *Server) target(c echo.Context) (*account, error) {
	a, ok := s.accounts[c.Param("id")]
	if !ok {
		return nil, fail(c, http.StatusNotFound, "User not found")
	}
	return a, nil
}

func (s *Server) getUser(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.target(c)
	if a == nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": a.user})
}

func (s *Server) userInfo(c echo.Context) error {
	var b profileBody
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.target(c)
	if a == nil {
		return err
	}
	a.user.Name, a.user.Email, a.user.Phone = b.Name, b.Email, b.Phone
	return c.JSON(http.StatusOK, echo.Map{"message": "User info updated"})
}

func (s *Server) userBalance(c echo.Context) error {
	var b struct {
		Balance int64 `json:"balance"`
	}
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.target(c)
	if a == nil {
		return err
	}
	a.user.Balance = b.Balance
	return c.JSON(http.StatusOK, echo.Map{"message": "Balance updated"})
}

func (s *Server) userPassword(c echo.Context) error {
	var b profileBody
	if err := c.Bind(&b); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.target(c)
	if a == nil {
		return err
	}
	a.password = b.Password
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated"})
}

func (s *Server) deleteUser(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.target(c)
	if a == nil {
		return err
	}
	delete(s.accounts, a.user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted"})
}

func (s *Server) stats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revenue int64
	today := 0
	y, m, d := now().Date()
	for _, o := range s.orders {
		if o.Status == model.OrderConfirmed {
			revenue += o.Amount
		}
		if oy, om, od := o.CreatedAt.Date(); oy == y && om == m && od == d {
			today++
		}
	}
	return c.JSON(http.StatusOK, model.DashboardStats{
		TotalUsers:   int64(len(s.accounts)),
		TodayOrders:  int64(today),
		TotalRevenue: revenue,
	})
}
