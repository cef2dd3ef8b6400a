package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-storefront/internal/apiclient"
	"github.com/iliyamo/service-storefront/internal/model"
)

func TestCreditIsProvisionalUntilRefresh(t *testing.T) {
	b := Confirmed(100)
	assert.False(t, b.Provisional())

	b = b.Credit(500)
	assert.True(t, b.Provisional())
	assert.Equal(t, int64(600), b.Display())
	assert.Equal(t, int64(100), b.Basis())

	b = b.Credit(50)
	assert.Equal(t, int64(650), b.Display())
	assert.Equal(t, int64(100), b.Basis(), "basis stays at the last confirmed value")

	b = b.Refresh(100)
	assert.False(t, b.Provisional())
	assert.Equal(t, int64(100), b.Display(), "unapproved top-ups vanish on refresh")
}

func TestBalanceJSONIsTagged(t *testing.T) {
	bs, err := json.Marshal(Confirmed(70))
	require.NoError(t, err)
	assert.JSONEq(t, `{"confirmed":70}`, string(bs))

	bs, err = json.Marshal(Confirmed(70).Credit(30))
	require.NoError(t, err)
	assert.JSONEq(t, `{"optimistic":100,"basis":70}`, string(bs))

	var back Balance
	require.NoError(t, json.Unmarshal(bs, &back))
	assert.Equal(t, Confirmed(70).Credit(30), back)

	bs, err = json.Marshal(Confirmed(0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"confirmed":0}`, string(bs))

	assert.Error(t, json.Unmarshal([]byte(`{}`), &back))
}

type fakeEditor struct {
	calls   []Part
	failOn  Part
	lastBal int64
}

func (f *fakeEditor) UpdateUserInfo(_ context.Context, _, _ string, _ apiclient.UserInfoInput) (string, error) {
	return f.hit(PartInfo)
}

func (f *fakeEditor) UpdateUserBalance(_ context.Context, _, _ string, balance int64) (string, error) {
	f.lastBal = balance
	return f.hit(PartBalance)
}

func (f *fakeEditor) UpdateUserPassword(_ context.Context, _, _, _ string) (string, error) {
	return f.hit(PartPassword)
}

func (f *fakeEditor) hit(p Part) (string, error) {
	f.calls = append(f.calls, p)
	if p == f.failOn {
		return "", errors.New("boom")
	}
	return string(p) + " updated", nil
}

var original = model.User{ID: "u1", Name: "Rahim", Email: "r@example.com", Phone: "01711111111", Balance: 100}

func TestBalanceOnlyEditIssuesOneMutation(t *testing.T) {
	plan := PlanUserEdit(original, UserEditForm{
		Name: original.Name, Email: original.Email, Phone: original.Phone, Balance: 250,
	})
	assert.Equal(t, []Part{PartBalance}, plan.Parts)

	ed := &fakeEditor{}
	res, err := Apply(context.Background(), ed, "tok", plan)
	require.NoError(t, err)
	assert.Equal(t, []Part{PartBalance}, ed.calls)
	assert.Equal(t, int64(250), ed.lastBal)
	assert.Equal(t, "balance updated", res.Message)
}

func TestUnchangedFormPlansNothing(t *testing.T) {
	plan := PlanUserEdit(original, UserEditForm{
		Name: original.Name, Email: original.Email, Phone: original.Phone, Balance: original.Balance,
	})
	assert.True(t, plan.Empty())
}

func TestPartialFailureKeepsAppliedParts(t *testing.T) {
	plan := PlanUserEdit(original, UserEditForm{
		Name: "Rahim Uddin", Email: original.Email, Phone: original.Phone, Balance: 0, Password: "abcdefg",
	})
	require.Equal(t, []Part{PartInfo, PartBalance, PartPassword}, plan.Parts)

	ed := &fakeEditor{failOn: PartPassword}
	res, err := Apply(context.Background(), ed, "tok", plan)
	require.Error(t, err)
	assert.Equal(t, []Part{PartInfo, PartBalance}, res.Applied)
	assert.Equal(t, PartPassword, res.Failed)
}
