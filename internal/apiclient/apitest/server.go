// Package apitest runs an in-memory stand-in for the remote storefront API
// on an httptest.Server.  It follows the remote contract closely enough for
// the storefront's tests: bearer tokens, JSON envelopes with a "message"
// field, server-side balance debits on orders and credits on approved
// top-ups.  Every request is recorded so tests can count mutations.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-storefront/internal/model"
)

type account struct {
	user     model.User
	password string
}

// Server is the fake API.  The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	seq      int
	accounts map[string]*account
	tokens   map[string]string
	orders   []model.Order
	topups   []model.TopUpRequest
	services []model.Service
	calls    []string
	meStatus int
}

// New starts the fake.  Callers must Close it.
func New() *Server {
	s := &Server{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
	}
	e := echo.New()
	e.HideBanner = true
	e.Pre(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s.mu.Lock()
			s.calls = append(s.calls, c.Request().Method+" "+c.Request().URL.Path)
			s.mu.Unlock()
			return next(c)
		}
	})
	s.routes(e)
	s.Server = httptest.NewServer(e)
	return s
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

// SeedUser stores an account and returns a valid bearer token for it.
func (s *Server) SeedUser(u model.User, password string) (model.User, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.nextID("u")
	}
	s.accounts[u.ID] = &account{user: u, password: password}
	return u, s.issue(u.ID)
}

func (s *Server) issue(userID string) string {
	tok := "tok-" + s.nextID(userID+"-")
	s.tokens[tok] = userID
	return tok
}

// SeedService adds a catalog entry and returns it with its id.
func (s *Server) SeedService(svc model.Service) model.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == "" {
		svc.ID = s.nextID("s")
	}
	s.services = append(s.services, svc)
	return svc
}

// SeedTopUp stores a top-up request as-is.
func (s *Server) SeedTopUp(r model.TopUpRequest) model.TopUpRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = s.nextID("t")
	}
	if r.Status == "" {
		r.Status = model.TopUpPending
	}
	s.topups = append(s.topups, r)
	return r
}

// RevokeToken makes every later call with token fail with 401.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// FailMe forces GET /auth/me to answer with status (0 restores normal
// behaviour).
func (s *Server) FailMe(status int) {
	s.mu.Lock()
	s.meStatus = status
	s.mu.Unlock()
}

// User returns the stored copy of an account.
func (s *Server) User(id string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return a.user
	}
	return model.User{}
}

// Password returns the stored password of an account.
func (s *Server) Password(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return a.password
	}
	return ""
}

// Orders returns a copy of every stored order.
func (s *Server) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Order(nil), s.orders...)
}

// TopUps returns a copy of every stored top-up request.
func (s *Server) TopUps() []model.TopUpRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TopUpRequest(nil), s.topups...)
}

// Calls returns every recorded "METHOD /path" line.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CountCalls counts recorded calls with the given method whose path starts
// with prefix.
func (s *Server) CountCalls(method, prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		m, p, _ := strings.Cut(c, " ")
		if m == method && strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// ResetCalls forgets the recorded calls.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"message": msg})
}

// authed resolves the bearer token; admin restricts to admin accounts.
func (s *Server) authed(admin bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			s.mu.Lock()
			uid, ok := s.tokens[raw]
			acc := s.accounts[uid]
			s.mu.Unlock()
			if !ok || acc == nil {
				return fail(c, http.StatusUnauthorized, "Not authorized, token failed")
			}
			if admin && !acc.user.IsAdmin {
				return fail(c, http.StatusForbidden, "Admin access required")
			}
			c.Set("uid", uid)
			return next(c)
		}
	}
}

func uid(c echo.Context) string {
	id, _ := c.Get("uid").(string)
	return id
}

func now() time.Time { return time.Now().UTC().Truncate(time.Second) }
