package apiclient

import (
	"context"
	"net/http"

	"github.com/iliyamo/service-storefront/internal/model"
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput updates the caller's own profile.  Password and
// CurrentPassword are only sent when a password change is requested.
type ProfileInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
}

// AuthResult is returned by login and registration.
type AuthResult struct {
	Token   string
	User    model.User
	Message string
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	raw, err := c.do(ctx, "", http.MethodPost, "/auth/register", in)
	if err != nil {
		return AuthResult{}, err
	}
	return authResult(raw)
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	raw, err := c.do(ctx, "", http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return AuthResult{}, err
	}
	return authResult(raw)
}

func authResult(raw []byte) (AuthResult, error) {
	var res AuthResult
	if err := decodeField(raw, "token", &res.Token); err != nil {
		return AuthResult{}, err
	}
	if err := decodeField(raw, "user", &res.User); err != nil {
		return AuthResult{}, err
	}
	res.Message = message(raw)
	return res, nil
}

// Me is the "who am I" call used to revalidate a session.
func (c *Client) Me(ctx context.Context, token string) (model.User, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return model.User{}, err
	}
	var u model.User
	if err := decodeField(raw, "user", &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// UpdateProfile edits the caller's profile and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, token string, in ProfileInput) (model.User, string, error) {
	raw, err := c.do(ctx, token, http.MethodPatch, "/auth/profile", in)
	if err != nil {
		return model.User{}, "", err
	}
	var u model.User
	if err := decodeField(raw, "user", &u); err != nil {
		return model.User{}, "", err
	}
	return u, message(raw), nil
}
