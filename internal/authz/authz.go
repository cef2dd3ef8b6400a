// Package authz decides, for a session state and a request path, whether
// the page renders, redirects, or waits for the session to load.
package authz

import (
	"strings"

	"github.com/iliyamo/service-storefront/internal/model"
)

// Class groups routes by who may see them.
type Class int

const (
	Public Class = iota
	Root
	GuestOnly
	UserOnly
	AdminOnly
	Authenticated
)

func (c Class) String() string {
	switch c {
	case Root:
		return "root"
	case GuestOnly:
		return "guest"
	case UserOnly:
		return "user"
	case AdminOnly:
		return "admin"
	case Authenticated:
		return "authenticated"
	}
	return "public"
}

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	AdminPath     = "/admin"
)

// Classify maps a request path onto its route class.  Unknown paths are
// public and fall through to the router's 404.
func Classify(path string) Class {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	switch {
	case path == "/" || path == "":
		return Root
	case path == "/login" || path == "/register":
		return GuestOnly
	case path == AdminPath || strings.HasPrefix(path, AdminPath+"/"):
		return AdminOnly
	case path == DashboardPath, path == "/add-money", path == "/orders",
		strings.HasPrefix(path, "/service/"):
		return UserOnly
	case path == "/profile":
		return Authenticated
	}
	return Public
}

// Outcome is what the guard should do.
type Outcome int

const (
	Render Outcome = iota
	Redirect
	Loading
)

// Decision is the result of Resolve.  Location is set only for Redirect.
type Decision struct {
	Outcome  Outcome
	Location string
}

// State is the part of a session authz looks at.
type State struct {
	User    *model.User
	Loading bool
}

func render() Decision            { return Decision{Outcome: Render} }
func redirect(to string) Decision { return Decision{Outcome: Redirect, Location: to} }

// Resolve runs the state machine.  Admin status wins whenever a user is
// present; guest-only routes always redirect once a session exists.
func Resolve(st State, path string) Decision {
	if st.Loading {
		return Decision{Outcome: Loading}
	}
	class := Classify(path)
	if class == Public {
		return render()
	}

	if st.User == nil {
		switch class {
		case GuestOnly:
			return render()
		default:
			return redirect(LoginPath)
		}
	}

	home := st.User.Home()
	switch class {
	case Root, GuestOnly:
		return redirect(home)
	case AdminOnly:
		if st.User.IsAdmin {
			return render()
		}
		return redirect(DashboardPath)
	case UserOnly:
		if st.User.IsAdmin {
			return redirect(AdminPath)
		}
		return render()
	}
	return render()
}
