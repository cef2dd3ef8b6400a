package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDecodesDocumentID(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"abc","name":"Rahim","balance":120,"isAdmin":true}`), &u))
	assert.Equal(t, "abc", u.ID)
	assert.Equal(t, int64(120), u.Balance)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, "/admin", u.Home())
}

func TestServicePrefersPlainID(t *testing.T) {
	var s Service
	require.NoError(t, json.Unmarshal([]byte(`{"id":"7","_id":"x","title":"IMEI to Active number","options":[{"name":"GP","price":300}]}`), &s))
	assert.Equal(t, "7", s.ID)
	assert.Equal(t, "IMEI number", s.TargetLabel())
	opt, ok := s.Option("GP")
	require.True(t, ok)
	assert.Equal(t, int64(300), opt.Price)
	_, ok = s.Option("Robi")
	assert.False(t, ok)
}

func TestOrderTakesRequesterFromPopulatedUser(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"o1","user":{"_id":"u1","name":"Rahim","email":"r@x.com"},"serviceTitle":"Server Copy","amount":300,"status":"pending"}`), &o))
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, "u1", o.UserID)
	require.NotNil(t, o.User)
	assert.Equal(t, "Rahim (r@x.com)", o.User.Label())

	var bare Order
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"o2","user":"u2"}`), &bare))
	assert.Equal(t, "u2", bare.UserID)
	assert.Equal(t, "u2", bare.User.Label())
}

func TestTopUpKeepsExplicitUserID(t *testing.T) {
	var r TopUpRequest
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"t1","userId":"u9","user":{"_id":"u1","email":"r@x.com"},"amount":500}`), &r))
	assert.Equal(t, "u9", r.UserID)
	assert.Equal(t, "r@x.com", r.User.Label())

	var none TopUpRequest
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"t2","amount":500}`), &none))
	assert.Empty(t, none.UserID)
	assert.Empty(t, none.User.Label())
}

func TestSummarizeOrdersCountsConfirmedOnly(t *testing.T) {
	st := SummarizeOrders([]Order{
		{Amount: 100, Status: OrderConfirmed},
		{Amount: 50, Status: OrderPending},
		{Amount: 70, Status: OrderCancelled},
		{Amount: 30, Status: OrderConfirmed},
	})
	assert.Equal(t, OrderStats{TotalOrders: 4, ConfirmedOrders: 2, TotalSpent: 130}, st)
}

func TestSummarizeTopUpsExcludesRejected(t *testing.T) {
	s := SummarizeTopUps([]TopUpRequest{
		{Amount: 500, Status: TopUpRejected},
		{Amount: 200, Status: TopUpApproved},
		{Amount: 100, Status: TopUpPending},
	})
	assert.Equal(t, int64(200), s.ApprovedTotal)
	assert.Equal(t, 1, s.Pending)
	assert.True(t, TopUpRejected.Terminal())
	assert.False(t, OrderPending.Terminal())
}
