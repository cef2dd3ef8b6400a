package model

import "time"

// TopUpStatus is the lifecycle state of a top-up ("add money") request.
type TopUpStatus string

const (
	TopUpPending  TopUpStatus = "pending"
	TopUpApproved TopUpStatus = "approved"
	TopUpRejected TopUpStatus = "rejected"
)

// Terminal reports whether no further transition is defined.
func (s TopUpStatus) Terminal() bool {
	return s == TopUpApproved || s == TopUpRejected
}

// TopUpRequest is a user's claim of an external mobile-money transfer.
// Approval is expected to credit the user's balance on the server side.
type TopUpRequest struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	User          *UserRef    `json:"user,omitempty"`
	Amount        int64       `json:"amount"`
	SenderNumber  string      `json:"senderNumber"`
	TransactionID string      `json:"transactionId"`
	Status        TopUpStatus `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// TopUpSummary aggregates a list of requests.  Pending and rejected
// requests never contribute to ApprovedTotal.
type TopUpSummary struct {
	Pending       int   `json:"pending"`
	ApprovedTotal int64 `json:"approvedTotal"`
}

// SummarizeTopUps computes a TopUpSummary.
func SummarizeTopUps(reqs []TopUpRequest) TopUpSummary {
	var s TopUpSummary
	for _, r := range reqs {
		switch r.Status {
		case TopUpPending:
			s.Pending++
		case TopUpApproved:
			s.ApprovedTotal += r.Amount
		}
	}
	return s
}
