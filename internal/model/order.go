package model

import "time"

// OrderStatus is the lifecycle state of an order.  Only admins move an
// order out of pending; confirmed and cancelled are terminal.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition is defined.
func (s OrderStatus) Terminal() bool {
	return s == OrderConfirmed || s == OrderCancelled
}

// Order is a purchase of one service option for a target identifier.
type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	User          *UserRef      `json:"user,omitempty"`
	ServiceID     string        `json:"serviceId,omitempty"`
	ServiceTitle  string        `json:"serviceTitle"`
	ServiceOption ServiceOption `json:"serviceOption"`
	TargetNumber  string        `json:"targetNumber"`
	UserEmail     string        `json:"userEmail,omitempty"`
	Amount        int64         `json:"amount"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// OrderStats summarises a user's order history.  Only confirmed orders
// count toward TotalSpent.
type OrderStats struct {
	TotalOrders     int   `json:"totalOrders"`
	ConfirmedOrders int   `json:"confirmedOrders"`
	TotalSpent      int64 `json:"totalSpent"`
}

// SummarizeOrders computes OrderStats over a fetched order list.
func SummarizeOrders(orders []Order) OrderStats {
	st := OrderStats{TotalOrders: len(orders)}
	for _, o := range orders {
		if o.Status != OrderConfirmed {
			continue
		}
		st.ConfirmedOrders++
		st.TotalSpent += o.Amount
	}
	return st
}
