package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-storefront/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(ts.URL, 5*time.Second, opts...)
}

func TestBearerTokenAttachedWhenPresent(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"services":[]}`))
	})

	_, err := c.ListServices(context.Background(), "abc")
	require.NoError(t, err)
	_, err = c.ListServices(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer abc", ""}, got)
}

func TestUnauthorizedFiresHookForAnyCall(t *testing.T) {
	var cleared []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	}, WithUnauthorizedHook(func(_ context.Context, token string) {
		cleared = append(cleared, token)
	}))

	_, err := c.MyOrders(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, err = c.UpdateUserBalance(context.Background(), "t2", "u1", 10)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	assert.Equal(t, []string{"t1", "t2"}, cleared)
}

func TestBusinessErrorCarriesServerMessage(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Insufficient balance"}`))
	})

	_, err := c.CreateOrder(context.Background(), "t", OrderInput{ServiceID: "s1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Insufficient balance", Message(err))
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, 1, calls, "failed calls are never retried")
}

func TestMissingMessageFallsBackToGeneric(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.AllTopUps(context.Background(), "t")
	require.Error(t, err)
	assert.Equal(t, GenericMessage, Message(err))
	assert.Equal(t, GenericMessage, Message(errors.New("dial tcp: refused")))
}

func TestMeWithoutUserIsEmptyPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":null}`))
	})
	_, err := c.Me(context.Background(), "t")
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestLoginDecodesTokenAndUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"token":"jwt","user":{"_id":"u1","name":"Karim","balance":40,"isAdmin":false}}`))
	})
	res, err := c.Login(context.Background(), "k@example.com", "1234567")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Token)
	assert.Equal(t, model.User{ID: "u1", Name: "Karim", Balance: 40}, res.User)
}

func TestObserverSeesStatus(t *testing.T) {
	var statuses []int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Service not found"}`))
	}, WithObserver(func(method, path string, status int, _ time.Duration) {
		statuses = append(statuses, status)
	}))
	_, err := c.GetService(context.Background(), "", "missing")
	require.Error(t, err)
	assert.Equal(t, []int{http.StatusNotFound}, statuses)
}
