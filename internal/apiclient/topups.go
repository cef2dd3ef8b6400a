package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iliyamo/service-storefront/internal/model"
)

// TopUpInput claims a mobile-money transfer of Amount from SenderNumber.
type TopUpInput struct {
	Amount        int64  `json:"amount"`
	SenderNumber  string `json:"senderNumber"`
	TransactionID string `json:"transactionId"`
}

func (c *Client) CreateTopUp(ctx context.Context, token string, in TopUpInput) (string, error) {
	raw, err := c.do(ctx, token, http.MethodPost, "/add-money", in)
	if err != nil {
		return "", err
	}
	return message(raw), nil
}

func (c *Client) MyTopUps(ctx context.Context, token string) ([]model.TopUpRequest, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/add-money/my-requests", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.TopUpRequest](raw, "requests")
}

func (c *Client) AllTopUps(ctx context.Context, token string) ([]model.TopUpRequest, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/add-money", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.TopUpRequest](raw, "requests")
}

// UpdateTopUpStatus approves or rejects a request.  Crediting the balance
// on approval is the server's business.
func (c *Client) UpdateTopUpStatus(ctx context.Context, token, id string, status model.TopUpStatus) (string, error) {
	raw, err := c.do(ctx, token, http.MethodPatch, "/add-money/"+url.PathEscape(id)+"/status", map[string]string{
		"status": string(status),
	})
	if err != nil {
		return "", err
	}
	return message(raw), nil
}
