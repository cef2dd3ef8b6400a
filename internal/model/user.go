package model

// User is the storefront's view of an account as reported by the remote API.
// Balance is authoritative only when it comes straight from the API; the
// storefront never derives it on its own.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Balance int64  `json:"balance"`
	IsAdmin bool   `json:"isAdmin"`
}

// Home returns the landing route for the user's role.
func (u User) Home() string {
	if u.IsAdmin {
		return "/admin"
	}
	return "/dashboard"
}

// UserRef is the requester attached to orders and top-up requests.  Admin
// listings populate it; other payloads carry a bare id.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Label renders the requester for a table cell.
func (r *UserRef) Label() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Name != "" && r.Email != "":
		return r.Name + " (" + r.Email + ")"
	case r.Name != "":
		return r.Name
	case r.Email != "":
		return r.Email
	}
	return r.ID
}
