package resource

import (
	"context"

	"github.com/iliyamo/service-storefront/internal/model"
)

// API is the part of the remote API the admin tables drive.
type API interface {
	ListUsers(ctx context.Context, token string) ([]model.User, error)
	DeleteUser(ctx context.Context, token, id string) (string, error)
	AllOrders(ctx context.Context, token string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, token, id string, status model.OrderStatus) (string, error)
	AllTopUps(ctx context.Context, token string) ([]model.TopUpRequest, error)
	UpdateTopUpStatus(ctx context.Context, token, id string, status model.TopUpStatus) (string, error)
	ListServices(ctx context.Context, token string) ([]model.Service, error)
	DeleteService(ctx context.Context, token, id string) (string, error)
}

// Tables bundles the four admin tables.
type Tables struct {
	Users    *Table[model.User]
	Orders   *Table[model.Order]
	TopUps   *Table[model.TopUpRequest]
	Services *Table[model.Service]
}

// NewTables wires every admin table to api.
func NewTables(api API) Tables {
	return Tables{
		Users:    usersTable(api),
		Orders:   ordersTable(api),
		TopUps:   topUpsTable(api),
		Services: servicesTable(api),
	}
}

func usersTable(api API) *Table[model.User] {
	return &Table[model.User]{
		Name: "users",
		List: api.ListUsers,
		ID:   func(u model.User) string { return u.ID },
		Columns: []Column[model.User]{
			{Key: "name", Title: "Name", Value: func(u model.User) any { return u.Name }},
			{Key: "email", Title: "Email", Value: func(u model.User) any { return u.Email }},
			{Key: "phone", Title: "Phone", Value: func(u model.User) any { return u.Phone }},
			{Key: "balance", Title: "Balance", Value: func(u model.User) any { return u.Balance }},
			{Key: "isAdmin", Title: "Admin", Value: func(u model.User) any { return u.IsAdmin }},
		},
		Transitions: []Transition[model.User]{{
			Name:        "delete",
			Destructive: true,
			Do: func(ctx context.Context, token string, u model.User) (string, error) {
				return api.DeleteUser(ctx, token, u.ID)
			},
		}},
	}
}

// Orders and top-ups only move out of a non-terminal state.
func pendingOrder(o model.Order) bool { return !o.Status.Terminal() }

func ordersTable(api API) *Table[model.Order] {
	setStatus := func(s model.OrderStatus) func(context.Context, string, model.Order) (string, error) {
		return func(ctx context.Context, token string, o model.Order) (string, error) {
			return api.UpdateOrderStatus(ctx, token, o.ID, s)
		}
	}
	return &Table[model.Order]{
		Name: "orders",
		List: api.AllOrders,
		ID:   func(o model.Order) string { return o.ID },
		Columns: []Column[model.Order]{
			{Key: "user", Title: "User", Value: func(o model.Order) any { return o.User.Label() }},
			{Key: "service", Title: "Service", Value: func(o model.Order) any { return o.ServiceTitle }},
			{Key: "option", Title: "Option", Value: func(o model.Order) any { return o.ServiceOption.Name }},
			{Key: "target", Title: "Target", Value: func(o model.Order) any { return o.TargetNumber }},
			{Key: "email", Title: "Email", Value: func(o model.Order) any { return o.UserEmail }},
			{Key: "amount", Title: "Amount", Value: func(o model.Order) any { return o.Amount }},
			{Key: "status", Title: "Status", Value: func(o model.Order) any { return o.Status }},
			{Key: "createdAt", Title: "Placed", Value: func(o model.Order) any { return o.CreatedAt }},
		},
		Transitions: []Transition[model.Order]{
			{Name: "confirm", Allowed: pendingOrder, Do: setStatus(model.OrderConfirmed)},
			{Name: "cancel", Allowed: pendingOrder, Do: setStatus(model.OrderCancelled)},
		},
	}
}

func pendingTopUp(r model.TopUpRequest) bool { return !r.Status.Terminal() }

func topUpsTable(api API) *Table[model.TopUpRequest] {
	setStatus := func(s model.TopUpStatus) func(context.Context, string, model.TopUpRequest) (string, error) {
		return func(ctx context.Context, token string, r model.TopUpRequest) (string, error) {
			return api.UpdateTopUpStatus(ctx, token, r.ID, s)
		}
	}
	return &Table[model.TopUpRequest]{
		Name: "topups",
		List: api.AllTopUps,
		ID:   func(r model.TopUpRequest) string { return r.ID },
		Columns: []Column[model.TopUpRequest]{
			{Key: "user", Title: "User", Value: func(r model.TopUpRequest) any { return r.User.Label() }},
			{Key: "amount", Title: "Amount", Value: func(r model.TopUpRequest) any { return r.Amount }},
			{Key: "sender", Title: "Sender", Value: func(r model.TopUpRequest) any { return r.SenderNumber }},
			{Key: "transactionId", Title: "Transaction", Value: func(r model.TopUpRequest) any { return r.TransactionID }},
			{Key: "status", Title: "Status", Value: func(r model.TopUpRequest) any { return r.Status }},
			{Key: "createdAt", Title: "Submitted", Value: func(r model.TopUpRequest) any { return r.CreatedAt }},
		},
		Transitions: []Transition[model.TopUpRequest]{
			{Name: "approve", Allowed: pendingTopUp, Do: setStatus(model.TopUpApproved)},
			{Name: "reject", Allowed: pendingTopUp, Do: setStatus(model.TopUpRejected)},
		},
	}
}

func servicesTable(api API) *Table[model.Service] {
	return &Table[model.Service]{
		Name: "services",
		List: api.ListServices,
		ID:   func(s model.Service) string { return s.ID },
		Columns: []Column[model.Service]{
			{Key: "title", Title: "Title", Value: func(s model.Service) any { return s.Title }},
			{Key: "category", Title: "Category", Value: func(s model.Service) any { return s.Category }},
			{Key: "options", Title: "Options", Value: func(s model.Service) any { return len(s.Options) }},
		},
		Transitions: []Transition[model.Service]{{
			Name:        "delete",
			Destructive: true,
			Do: func(ctx context.Context, token string, s model.Service) (string, error) {
				return api.DeleteService(ctx, token, s.ID)
			},
		}},
	}
}
