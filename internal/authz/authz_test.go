package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/service-storefront/internal/model"
)

var (
	admin = &model.User{ID: "a1", Name: "Admin", IsAdmin: true}
	user  = &model.User{ID: "u1", Name: "User"}
)

var protected = []string{
	"/", "/dashboard", "/add-money", "/orders", "/service/abc", "/profile",
	"/admin", "/admin/users", "/admin/orders", "/admin/topups", "/admin/services",
}

func TestLoggedOutProtectedRoutesGoToLogin(t *testing.T) {
	for _, p := range protected {
		d := Resolve(State{}, p)
		assert.Equal(t, redirect(LoginPath), d, p)
	}
	assert.Equal(t, render(), Resolve(State{}, "/login"))
	assert.Equal(t, render(), Resolve(State{}, "/register"))
	assert.Equal(t, render(), Resolve(State{}, "/contact"))
}

func TestAdminNeverSeesDashboard(t *testing.T) {
	for _, p := range []string{"/dashboard", "/dashboard/", "/orders", "/add-money", "/service/x"} {
		assert.Equal(t, redirect(AdminPath), Resolve(State{User: admin}, p), p)
	}
	for _, p := range []string{"/", "/login", "/register"} {
		assert.Equal(t, redirect(AdminPath), Resolve(State{User: admin}, p), p)
	}
	assert.Equal(t, render(), Resolve(State{User: admin}, "/admin"))
	assert.Equal(t, render(), Resolve(State{User: admin}, "/admin/users"))
	assert.Equal(t, render(), Resolve(State{User: admin}, "/profile"))
}

func TestUserIsSymmetric(t *testing.T) {
	for _, p := range []string{"/", "/login", "/register"} {
		assert.Equal(t, redirect(DashboardPath), Resolve(State{User: user}, p), p)
	}
	assert.Equal(t, redirect(DashboardPath), Resolve(State{User: user}, "/admin"))
	assert.Equal(t, redirect(DashboardPath), Resolve(State{User: user}, "/admin/orders"))
	assert.Equal(t, render(), Resolve(State{User: user}, "/dashboard"))
	assert.Equal(t, render(), Resolve(State{User: user}, "/service/s1"))
}

func TestLoadingResolvesNothing(t *testing.T) {
	for _, st := range []State{{Loading: true}, {Loading: true, User: admin}} {
		assert.Equal(t, Loading, Resolve(st, "/dashboard").Outcome)
		assert.Empty(t, Resolve(st, "/dashboard").Location)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]Class{
		"/":              Root,
		"/login":         GuestOnly,
		"/admin/":        AdminOnly,
		"/administrator": Public,
		"/service/1":     UserOnly,
		"/profile":       Authenticated,
		"/healthz":       Public,
	}
	for p, want := range cases {
		assert.Equal(t, want, Classify(p), p)
	}
}
