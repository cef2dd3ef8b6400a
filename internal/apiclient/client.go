// Package apiclient is the storefront's gateway to the remote REST API.
// Every call carries the caller's bearer token; a 401 from any endpoint
// fires the unauthorized hook so the owning session is destroyed.  There is
// deliberately no retry, backoff, queuing or deduplication: a failed call
// returns its error to the caller once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxBodyBytes = 4 << 20

// Client performs JSON requests against the API base URL.
type Client struct {
	baseURL        string
	http           *http.Client
	onUnauthorized func(ctx context.Context, token string)
	observe        func(method, path string, status int, d time.Duration)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUnauthorizedHook registers the function invoked on every 401.  The
// token that was rejected is passed along so the hook can find its session.
func WithUnauthorizedHook(fn func(ctx context.Context, token string)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithObserver registers a callback receiving every completed round trip.
// Status is 0 when the request never got a response.
func WithObserver(fn func(method, path string, status int, d time.Duration)) Option {
	return func(c *Client) { c.observe = fn }
}

// New builds a Client.  timeout bounds each round trip.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do sends one request and returns the raw response body of a 2xx reply.
func (c *Client) do(ctx context.Context, token, method, path string, body any) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(method, path, 0, start)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.record(method, path, resp.StatusCode, start)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx, token)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: messageOf(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: messageOf(raw)}
	}
	return raw, nil
}

func (c *Client) record(method, path string, status int, start time.Time) {
	if c.observe != nil {
		c.observe(method, path, status, time.Since(start))
	}
}

// messageOf extracts the "message" field of an error body, falling back to
// "error" and then to GenericMessage.
func messageOf(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return GenericMessage
	}
	for _, key := range []string{"message", "error"} {
		if m := gjson.GetBytes(raw, key); m.Type == gjson.String && m.Str != "" {
			return m.Str
		}
	}
	return GenericMessage
}

// decodeField unmarshals the value at path (gjson syntax; "" means the
// whole document) into out.  A missing field yields ErrEmptyPayload.
func decodeField(raw []byte, path string, out any) error {
	src := raw
	if path != "" {
		res := gjson.GetBytes(raw, path)
		if !res.Exists() || res.Type == gjson.Null {
			return fmt.Errorf("%s: %w", path, ErrEmptyPayload)
		}
		src = []byte(res.Raw)
	}
	if err := json.Unmarshal(src, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// decodeList is decodeField for list envelopes, where a missing or null
// field means an empty list rather than an error.
func decodeList[T any](raw []byte, path string) ([]T, error) {
	res := gjson.GetBytes(raw, path)
	if !res.Exists() || res.Type == gjson.Null {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(res.Raw), &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func message(raw []byte) string {
	return gjson.GetBytes(raw, "message").String()
}
