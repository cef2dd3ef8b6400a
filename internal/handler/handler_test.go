package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-storefront/internal/apiclient"
	"github.com/iliyamo/service-storefront/internal/apiclient/apitest"
	"github.com/iliyamo/service-storefront/internal/handler"
	"github.com/iliyamo/service-storefront/internal/ledger"
	"github.com/iliyamo/service-storefront/internal/middleware"
	"github.com/iliyamo/service-storefront/internal/model"
	"github.com/iliyamo/service-storefront/internal/queue"
	"github.com/iliyamo/service-storefront/internal/router"
	"github.com/iliyamo/service-storefront/internal/session"
	"github.com/iliyamo/service-storefront/internal/utils"
	"github.com/iliyamo/service-storefront/internal/validate"
)

const secret = "test-secret"

type recorder struct {
	mu  sync.Mutex
	got []queue.Event
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	r.got = append(r.got, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, ev := range r.got {
		out[i] = ev.Type
	}
	return out
}

type app struct {
	api    *apitest.Server
	e      *echo.Echo
	store  *session.Store
	mem    *session.MemoryStorage
	events *recorder
}

func newApp(t *testing.T, opts session.Options) *app {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	mem := session.NewMemoryStorage()
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}
	store := session.NewStore(mem, nil, opts)
	client := apiclient.New(srv.URL, 5*time.Second,
		apiclient.WithUnauthorizedHook(func(ctx context.Context, token string) {
			_ = store.ClearToken(ctx, token)
		}))
	store.SetAuthority(client)

	log := logrus.New()
	log.SetOutput(io.Discard)
	rec := &recorder{}
	h := handler.New(client, store, validate.New(7), rec, nil, log,
		handler.Cookie{Secret: secret, TTL: time.Hour},
		handler.Site{PaymentNumber: "01829534989", ContactWhatsApp: "01829534989"})

	e := echo.New()
	e.Use(middleware.RequestLog(log))
	router.RegisterRoutes(e)
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	router.RegisterStorefront(e, h, router.Storefront{
		Session: middleware.Session(store, secret, log),
		Guard:   middleware.Guard(),
		Limit:   pass,
		Cache:   pass,
	})
	return &app{api: srv, e: e, store: store, mem: mem, events: rec}
}

func (a *app) do(method, path string, body any, ck *http.Cookie) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		bs, _ := json.Marshal(body)
		rdr = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if ck != nil {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := a.do(http.MethodPost, "/login", echo.Map{"email": email, "password": password}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.CookieName && ck.Value != "" {
			return ck
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

// token digs the API bearer token out of the stored session.
func (a *app) token(t *testing.T, ck *http.Cookie) string {
	t.Helper()
	sid, err := utils.ParseSessionCookie(secret, ck.Value)
	require.NoError(t, err)
	st, err := a.store.Peek(context.Background(), sid)
	require.NoError(t, err)
	return st.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func seedPeople(a *app) (admin, user model.User) {
	admin, _ = a.api.SeedUser(model.User{Name: "Admin", Email: "admin@example.com", Phone: "01811111111", IsAdmin: true}, "adminpw")
	user, _ = a.api.SeedUser(model.User{Name: "Rahim", Email: "rahim@example.com", Phone: "01711111111", Balance: 1000}, "1234567")
	return admin, user
}

func TestAdminIsRedirectedAwayFromDashboard(t *testing.T) {
	a := newApp(t, session.Options{})
	seedPeople(a)
	ck := a.login(t, "admin@example.com", "adminpw")

	for _, p := range []string{"/dashboard", "/orders", "/add-money", "/", "/login"} {
		rec := a.do(http.MethodGet, p, nil, ck)
		assert.Equal(t, http.StatusSeeOther, rec.Code, p)
		assert.Equal(t, "/admin", rec.Header().Get("Location"), p)
	}
	rec := a.do(http.MethodGet, "/admin", nil, ck)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserIsRedirectedAwayFromAdmin(t *testing.T) {
	a := newApp(t, session.Options{})
	seedPeople(a)
	ck := a.login(t, "rahim@example.com", "1234567")

	rec := a.do(http.MethodGet, "/admin/users", nil, ck)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Zero(t, a.api.CountCalls(http.MethodGet, "/admin/users"))
}

func TestLoggedOutVisitorsGoToLogin(t *testing.T) {
	a := newApp(t, session.Options{})
	forged := &http.Cookie{Name: middleware.CookieName, Value: "not-a-jwt"}
	for _, ck := range []*http.Cookie{nil, forged} {
		for _, p := range []string{"/dashboard", "/orders", "/profile", "/admin", "/service/s1"} {
			rec := a.do(http.MethodGet, p, nil, ck)
			assert.Equal(t, http.StatusSeeOther, rec.Code, p)
			assert.Equal(t, "/login", rec.Header().Get("Location"), p)
		}
	}
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/login", nil, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/contact", nil, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", nil, nil).Code)
}

func TestRevalidationFailureClearsSession(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusInternalServerError} {
		a := newApp(t, session.Options{})
		seedPeople(a)
		ck := a.login(t, "rahim@example.com", "1234567")
		require.Equal(t, 1, a.mem.Len())

		a.api.FailMe(status)
		rec := a.do(http.MethodGet, "/dashboard", nil, ck)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.Zero(t, a.mem.Len(), "status %d", status)

		var boot struct {
			User *model.User `json:"user"`
		}
		a.api.FailMe(0)
		decode(t, a.do(http.MethodGet, "/session", nil, ck), &boot)
		assert.Nil(t, boot.User)
	}
}

func TestUnauthorizedMidRequestTearsDownSession(t *testing.T) {
	// Revalidation is skipped so the 401 comes from the page's own call.
	a := newApp(t, session.Options{RevalidateAfter: time.Hour})
	seedPeople(a)
	ck := a.login(t, "rahim@example.com", "1234567")
	a.api.RevokeToken(a.token(t, ck))

	rec := a.do(http.MethodGet, "/orders", nil, ck)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Zero(t, a.mem.Len())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), middleware.CookieName+"=;")
}

func TestTopUpRejectsForeignSenderBeforeAnyCall(t *testing.T) {
	a := newApp(t, session.Options{})
	seedPeople(a)
	ck := a.login(t, "rahim@example.com", "1234567")
	a.api.ResetCalls()

	for _, sender := range []string{"01212345678", "+8801711111111", "0171111111"} {
		rec := a.do(http.MethodPost, "/add-money", echo.Map{"amount": 500, "senderNumber": sender, "transactionId": "TX1"}, ck)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, sender)
		var body struct {
			Errors map[string]string `json:"errors"`
		}
		decode(t, rec, &body)
		assert.Contains(t, body.Errors, "senderNumber")
	}
	assert.Zero(t, a.api.CountCalls(http.MethodPost, "/add-money"))
	assert.Empty(t, a.api.TopUps())
}

func TestTopUpBalanceIsOptimisticUntilRefresh(t *testing.T) {
	a := newApp(t, session.Options{})
	seedPeople(a)
	ck := a.login(t, "rahim@example.com", "1234567")

	rec := a.do(http.MethodPost, "/add-money", echo.Map{"amount": 500, "senderNumber": "01712345678", "transactionId": "TX1"}, ck)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Balance ledger.Balance `json:"balance"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Balance.Provisional())
	assert.Equal(t, int64(1500), resp.Balance.Display())
	assert.Equal(t, int64(1000), resp.Balance.Basis())
	require.Len(t, a.api.TopUps(), 1)

	// The next page load asks the server again; the request is still pending.
	decode(t, a.do(http.MethodGet, "/session", nil, ck), &resp)
	assert.False(t, resp.Balance.Provisional())
	assert.Equal(t, int64(1000), resp.Balance.Display())
}

func TestOrderRefetchesAuthoritativeBalance(t *testing.T) {
	a := newApp(t, session.Options{})
	_, user := seedPeople(a)
	svc := a.api.SeedService(model.Service{Title: "SIM INFORMATION", Options: []model.ServiceOption{{Name: "GP", Price: 200}, {Name: "BL", Price: 5000}}})
	ck := a.login(t, "rahim@example.com", "1234567")

	rec := a.do(http.MethodPost, "/service/"+svc.ID+"/order", echo.Map{"option": "GP", "targetNumber": "01799999999", "email": "rahim@example.com"}, ck)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Message string         `json:"message"`
		Balance ledger.Balance `json:"balance"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "Order placed successfully", resp.Message)
	assert.False(t, resp.Balance.Provisional())
	assert.Equal(t, int64(800), resp.Balance.Display())
	assert.Equal(t, int64(800), a.api.User(user.ID).Balance)
	assert.Contains(t, a.events.types(), queue.EventOrderPlaced)

	rec = a.do(http.MethodPost, "/service/"+svc.ID+"/order", echo.Map{"option": "BL", "targetNumber": "01799999999", "email": "rahim@example.com"}, ck)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, "Insufficient balance", resp.Message)

	a.api.ResetCalls()
	rec = a.do(http.MethodPost, "/service/"+svc.ID+"/order", echo.Map{"option": "Robi", "targetNumber": "01799999999", "email": "rahim@example.com"}, ck)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, a.api.CountCalls(http.MethodPost, "/orders"))
	assert.Len(t, a.api.Orders(), 1)
}

func TestMissingServiceRedirectsToDashboard(t *testing.T) {
	a := newApp(t, session.Options{})
	seedPeople(a)
	ck := a.login(t, "rahim@example.com", "1234567")
	rec := a.do(http.MethodGet, "/service/nope", nil, ck)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestAdminBalanceOnlyEditIssuesOneMutation(t *testing.T) {
	a := newApp(t, session.Options{})
	_, user := seedPeople(a)
	ck := a.login(t, "admin@example.com", "adminpw")
	a.api.ResetCalls()

	rec := a.do(http.MethodPost, "/admin/users/"+user.ID, echo.Map{
		"name": user.Name, "email": user.Email, "phone": user.Phone, "balance": 2500, "password": "",
	}, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Message string        `json:"message"`
		Applied []ledger.Part `json:"applied"`
		Name    string        `json:"name"`
		Rows    []struct {
			ID    string         `json:"id"`
			Cells map[string]any `json:"cells"`
		} `json:"rows"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, []ledger.Part{ledger.PartBalance}, resp.Applied)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, "users", resp.Name)
	found := false
	for _, r := range resp.Rows {
		if r.ID == user.ID {
			found = true
			assert.Equal(t, float64(2500), r.Cells["balance"])
		}
	}
	assert.True(t, found, "edited user missing from refetched table")
	assert.Equal(t, 1, a.api.CountCalls(http.MethodPatch, "/admin/users/"))
	assert.Equal(t, 1, a.api.CountCalls(http.MethodPatch, "/admin/users/"+user.ID+"/balance"))
	assert.Equal(t, int64(2500), a.api.User(user.ID).Balance)
	assert.Equal(t, "1234567", a.api.Password(user.ID))
}

func TestAdminModeration(t *testing.T) {
	a := newApp(t, session.Options{})
	_, user := seedPeople(a)
	topup := a.api.SeedTopUp(model.TopUpRequest{UserID: user.ID, Amount: 300, SenderNumber: "01712345678", TransactionID: "TX9"})
	ck := a.login(t, "admin@example.com", "adminpw")

	rec := a.do(http.MethodPost, "/admin/topups/"+topup.ID+"/approve", nil, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1300), a.api.User(user.ID).Balance)

	rec = a.do(http.MethodPost, "/admin/topups/"+topup.ID+"/reject", nil, ck)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/admin/topups/"+topup.ID+"/refund", nil, ck)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/admin/users/"+user.ID+"/delete", nil, ck)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp struct {
		Confirm bool `json:"confirm"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Confirm)
	assert.Zero(t, a.api.CountCalls(http.MethodDelete, "/admin/users/"))

	rec = a.do(http.MethodPost, "/admin/users/"+user.ID+"/delete", echo.Map{"confirm": true}, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, a.api.User(user.ID).ID)
}

func TestAdminListsShowRequester(t *testing.T) {
	a := newApp(t, session.Options{})
	_, user := seedPeople(a)
	a.api.SeedTopUp(model.TopUpRequest{UserID: user.ID, Amount: 300, SenderNumber: "01712345678", TransactionID: "TX9"})
	svc := a.api.SeedService(model.Service{Title: "SIM INFORMATION", Options: []model.ServiceOption{{Name: "GP", Price: 200}}})
	uck := a.login(t, "rahim@example.com", "1234567")
	rec := a.do(http.MethodPost, "/service/"+svc.ID+"/order", echo.Map{"option": "GP", "targetNumber": "01799999999", "email": "rahim@example.com"}, uck)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	ck := a.login(t, "admin@example.com", "adminpw")
	for _, p := range []string{"/admin/orders", "/admin/topups"} {
		rec := a.do(http.MethodGet, p, nil, ck)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var v struct {
			Rows []struct {
				Cells map[string]any `json:"cells"`
				Item  struct {
					UserID string `json:"userId"`
				} `json:"item"`
			} `json:"rows"`
		}
		decode(t, rec, &v)
		require.Len(t, v.Rows, 1, p)
		assert.Equal(t, "Rahim (rahim@example.com)", v.Rows[0].Cells["user"], p)
		assert.Equal(t, user.ID, v.Rows[0].Item.UserID, p)
	}
}

func TestMalformedActionBodyIsRejected(t *testing.T) {
	a := newApp(t, session.Options{})
	_, user := seedPeople(a)
	ck := a.login(t, "admin@example.com", "adminpw")
	a.api.ResetCalls()

	req := httptest.NewRequest(http.MethodPost, "/admin/users/"+user.ID+"/delete", bytes.NewBufferString(`{"confirm":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(ck)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, a.api.CountCalls(http.MethodDelete, "/admin/users/"))
	assert.Equal(t, user.ID, a.api.User(user.ID).ID)
}

func TestProfileShowsOrderHistory(t *testing.T) {
	a := newApp(t, session.Options{})
	seedPeople(a)
	svc := a.api.SeedService(model.Service{Title: "SIM INFORMATION", Options: []model.ServiceOption{{Name: "GP", Price: 200}}})
	ck := a.login(t, "rahim@example.com", "1234567")
	rec := a.do(http.MethodPost, "/service/"+svc.ID+"/order", echo.Map{"option": "GP", "targetNumber": "01799999999", "email": "rahim@example.com"}, ck)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/profile", nil, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		User   model.User       `json:"user"`
		Orders []model.Order    `json:"orders"`
		Stats  model.OrderStats `json:"stats"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "Rahim", resp.User.Name)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "SIM INFORMATION", resp.Orders[0].ServiceTitle)
	assert.Equal(t, 1, resp.Stats.TotalOrders)
	assert.Zero(t, resp.Stats.ConfirmedOrders)
}

func TestAdminServiceCreate(t *testing.T) {
	a := newApp(t, session.Options{})
	seedPeople(a)
	ck := a.login(t, "admin@example.com", "adminpw")

	rec := a.do(http.MethodPost, "/admin/services", echo.Map{"title": "NID CARD", "description": "copy", "options": []echo.Map{}}, ck)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(http.MethodPost, "/admin/services", echo.Map{
		"title": "NID CARD", "description": "copy", "category": "nid",
		"options": []echo.Map{{"name": "Standard", "price": 150}},
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v struct {
		Rows []struct {
			ID string `json:"id"`
		} `json:"rows"`
	}
	decode(t, rec, &v)
	assert.Len(t, v.Rows, 1)
}

func TestLoginValidationAndRejection(t *testing.T) {
	a := newApp(t, session.Options{})
	seedPeople(a)

	rec := a.do(http.MethodPost, "/login", echo.Map{"email": "rahim@example.com", "password": "123"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, a.api.CountCalls(http.MethodPost, "/auth/login"))

	rec = a.do(http.MethodPost, "/login", echo.Map{"email": "rahim@example.com", "password": "7654321"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "Invalid email or password", resp.Message)
	assert.Zero(t, a.mem.Len())
}

func TestRegisterThenLogout(t *testing.T) {
	a := newApp(t, session.Options{})
	rec := a.do(http.MethodPost, "/register", echo.Map{
		"name": "Karim", "phone": "01912345678", "email": "karim@example.com",
		"password": "abcdefg", "confirmPassword": "abcdefg",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Redirect string `json:"redirect"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "/dashboard", resp.Redirect)
	require.Equal(t, 1, a.mem.Len())

	var ck *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName {
			ck = c
		}
	}
	require.NotNil(t, ck)

	rec = a.do(http.MethodPost, "/logout", nil, ck)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Zero(t, a.mem.Len())
	assert.Equal(t, []string{queue.EventRegistered, queue.EventLogout}, a.events.types())
}

func TestProfilePasswordChange(t *testing.T) {
	a := newApp(t, session.Options{})
	_, user := seedPeople(a)
	ck := a.login(t, "rahim@example.com", "1234567")

	rec := a.do(http.MethodPost, "/profile", echo.Map{
		"name": "Rahim Uddin", "email": user.Email, "phone": user.Phone,
		"newPassword": "newpass", "confirmNewPassword": "newpass",
	}, ck)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(http.MethodPost, "/profile", echo.Map{
		"name": "Rahim Uddin", "email": user.Email, "phone": user.Phone,
		"password": "1234567", "newPassword": "newpass", "confirmNewPassword": "newpass",
	}, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "newpass", a.api.Password(user.ID))

	var boot struct {
		User model.User `json:"user"`
	}
	decode(t, a.do(http.MethodGet, "/session", nil, ck), &boot)
	assert.Equal(t, "Rahim Uddin", boot.User.Name)
}
