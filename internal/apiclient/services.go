package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iliyamo/service-storefront/internal/model"
)

// ServiceInput creates or replaces a catalog entry.
type ServiceInput struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Options     []model.ServiceOption `json:"options"`
}

func (c *Client) ListServices(ctx context.Context, token string) ([]model.Service, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/services", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Service](raw, "services")
}

func (c *Client) GetService(ctx context.Context, token, id string) (model.Service, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/services/"+url.PathEscape(id), nil)
	if err != nil {
		return model.Service{}, err
	}
	var s model.Service
	if err := decodeField(raw, "service", &s); err != nil {
		return model.Service{}, err
	}
	return s, nil
}

func (c *Client) CreateService(ctx context.Context, token string, in ServiceInput) (string, error) {
	raw, err := c.do(ctx, token, http.MethodPost, "/services", in)
	if err != nil {
		return "", err
	}
	return message(raw), nil
}

func (c *Client) UpdateService(ctx context.Context, token, id string, in ServiceInput) (string, error) {
	raw, err := c.do(ctx, token, http.MethodPatch, "/services/"+url.PathEscape(id), in)
	if err != nil {
		return "", err
	}
	return message(raw), nil
}

func (c *Client) DeleteService(ctx context.Context, token, id string) (string, error) {
	raw, err := c.do(ctx, token, http.MethodDelete, "/services/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	return message(raw), nil
}
