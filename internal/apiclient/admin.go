package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iliyamo/service-storefront/internal/model"
)

// UserInfoInput carries the editable identity fields of a user.
type UserInfoInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func userPath(id string) string { return "/admin/users/" + url.PathEscape(id) }

func (c *Client) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/admin/users", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.User](raw, "users")
}

func (c *Client) GetUser(ctx context.Context, token, id string) (model.User, error) {
	raw, err := c.do(ctx, token, http.MethodGet, userPath(id), nil)
	if err != nil {
		return model.User{}, err
	}
	var u model.User
	if err := decodeField(raw, "user", &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (c *Client) UpdateUserInfo(ctx context.Context, token, id string, in UserInfoInput) (string, error) {
	raw, err := c.do(ctx, token, http.MethodPatch, userPath(id)+"/info", in)
	if err != nil {
		return "", err
	}
	return message(raw), nil
}

// UpdateUserBalance overrides the stored balance with an absolute value.
func (c *Client) UpdateUserBalance(ctx context.Context, token, id string, balance int64) (string, error) {
	raw, err := c.do(ctx, token, http.MethodPatch, userPath(id)+"/balance", map[string]int64{"balance": balance})
	if err != nil {
		return "", err
	}
	return message(raw), nil
}

func (c *Client) UpdateUserPassword(ctx context.Context, token, id, password string) (string, error) {
	raw, err := c.do(ctx, token, http.MethodPatch, userPath(id)+"/password", map[string]string{"password": password})
	if err != nil {
		return "", err
	}
	return message(raw), nil
}

func (c *Client) DeleteUser(ctx context.Context, token, id string) (string, error) {
	raw, err := c.do(ctx, token, http.MethodDelete, userPath(id), nil)
	if err != nil {
		return "", err
	}
	return message(raw), nil
}

// UpdateAdminProfile edits the signed-in admin's own profile.
func (c *Client) UpdateAdminProfile(ctx context.Context, token string, in ProfileInput) (model.User, string, error) {
	raw, err := c.do(ctx, token, http.MethodPatch, "/admin/profile", in)
	if err != nil {
		return model.User{}, "", err
	}
	var u model.User
	if err := decodeField(raw, "user", &u); err != nil {
		return model.User{}, "", err
	}
	return u, message(raw), nil
}

func (c *Client) DashboardStats(ctx context.Context, token string) (model.DashboardStats, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/admin/dashboard-stats", nil)
	if err != nil {
		return model.DashboardStats{}, err
	}
	var st model.DashboardStats
	if err := decodeField(raw, "", &st); err != nil {
		return model.DashboardStats{}, err
	}
	return st, nil
}
