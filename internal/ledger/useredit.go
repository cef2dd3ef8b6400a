package ledger

import (
	"context"
	"fmt"

	"github.com/iliyamo/service-storefront/internal/apiclient"
	"github.com/iliyamo/service-storefront/internal/model"
)

// Part names one independently submitted slice of an admin user edit.
type Part string

const (
	PartInfo     Part = "info"
	PartBalance  Part = "balance"
	PartPassword Part = "password"
)

// UserEditForm is what the admin submitted.  An empty Password means
// "leave unchanged".
type UserEditForm struct {
	Name     string
	Email    string
	Phone    string
	Balance  int64
	Password string
}

// UserEditPlan lists the mutations needed to move Original to Form.
type UserEditPlan struct {
	UserID string
	Form   UserEditForm
	Parts  []Part
}

// Empty reports whether nothing changed.
func (p UserEditPlan) Empty() bool { return len(p.Parts) == 0 }

// PlanUserEdit diffs the form against the last-fetched user.  Only changed
// parts are planned, in the fixed order info, balance, password.
func PlanUserEdit(original model.User, form UserEditForm) UserEditPlan {
	p := UserEditPlan{UserID: original.ID, Form: form}
	if form.Name != original.Name || form.Email != original.Email || form.Phone != original.Phone {
		p.Parts = append(p.Parts, PartInfo)
	}
	if form.Balance != original.Balance {
		p.Parts = append(p.Parts, PartBalance)
	}
	if form.Password != "" {
		p.Parts = append(p.Parts, PartPassword)
	}
	return p
}

// UserEditor is the subset of the API client needed to apply a plan.
type UserEditor interface {
	UpdateUserInfo(ctx context.Context, token, id string, in apiclient.UserInfoInput) (string, error)
	UpdateUserBalance(ctx context.Context, token, id string, balance int64) (string, error)
	UpdateUserPassword(ctx context.Context, token, id, password string) (string, error)
}

// EditResult reports what an Apply call achieved.  Applied parts stay
// applied when a later part fails; nothing is rolled back.
type EditResult struct {
	Applied []Part
	Failed  Part
	Message string
}

// Apply issues one mutation per planned part, in order, stopping at the
// first failure.
func Apply(ctx context.Context, api UserEditor, token string, p UserEditPlan) (EditResult, error) {
	var res EditResult
	for _, part := range p.Parts {
		var (
			msg string
			err error
		)
		switch part {
		case PartInfo:
			msg, err = api.UpdateUserInfo(ctx, token, p.UserID, apiclient.UserInfoInput{
				Name: p.Form.Name, Email: p.Form.Email, Phone: p.Form.Phone,
			})
		case PartBalance:
			msg, err = api.UpdateUserBalance(ctx, token, p.UserID, p.Form.Balance)
		case PartPassword:
			msg, err = api.UpdateUserPassword(ctx, token, p.UserID, p.Form.Password)
		}
		if err != nil {
			res.Failed = part
			return res, fmt.Errorf("update user %s %s: %w", p.UserID, part, err)
		}
		res.Applied = append(res.Applied, part)
		res.Message = msg
	}
	return res, nil
}
