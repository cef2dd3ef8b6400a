package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iliyamo/service-storefront/internal/model"
)

// OrderInput places an order for one service option.
type OrderInput struct {
	ServiceID     string              `json:"serviceId"`
	ServiceTitle  string              `json:"serviceTitle"`
	ServiceOption model.ServiceOption `json:"serviceOption"`
	TargetNumber  string              `json:"targetNumber"`
	UserEmail     string              `json:"userEmail"`
}

// CreateOrder submits an order.  The balance debit happens on the server.
func (c *Client) CreateOrder(ctx context.Context, token string, in OrderInput) (string, error) {
	raw, err := c.do(ctx, token, http.MethodPost, "/orders", in)
	if err != nil {
		return "", err
	}
	return message(raw), nil
}

func (c *Client) MyOrders(ctx context.Context, token string) ([]model.Order, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/orders/my-orders", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Order](raw, "orders")
}

func (c *Client) AllOrders(ctx context.Context, token string) ([]model.Order, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/orders", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Order](raw, "orders")
}

func (c *Client) UpdateOrderStatus(ctx context.Context, token, id string, status model.OrderStatus) (string, error) {
	raw, err := c.do(ctx, token, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", map[string]string{
		"status": string(status),
	})
	if err != nil {
		return "", err
	}
	return message(raw), nil
}
