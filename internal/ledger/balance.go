// Package ledger holds the storefront's balance display rules.  The server
// owns the balance; the storefront only ever shows either the last value
// the server confirmed or a provisional value computed after a top-up
// submission, and the two are never confused.
package ledger

import (
	"encoding/json"
	"errors"
)

// Kind tags a Balance as authoritative or provisional.
type Kind uint8

const (
	KindConfirmed Kind = iota
	KindOptimistic
)

// Balance is a tagged display value: either Confirmed{Value} or
// Optimistic{Value, Basis} where Basis is the last confirmed value.
type Balance struct {
	kind  Kind
	value int64
	basis int64
}

// Confirmed wraps a value reported by the server.
func Confirmed(v int64) Balance { return Balance{kind: KindConfirmed, value: v, basis: v} }

// Kind reports the tag.
func (b Balance) Kind() Kind { return b.kind }

// Provisional reports whether the value has not been confirmed.
func (b Balance) Provisional() bool { return b.kind == KindOptimistic }

// Display is the number to show.
func (b Balance) Display() int64 { return b.value }

// Basis is the last confirmed value the display is derived from.
func (b Balance) Basis() int64 { return b.basis }

// Credit adds a pending top-up amount on top of the current display value.
// The result is always provisional and keeps the confirmed basis.
func (b Balance) Credit(amount int64) Balance {
	return Balance{kind: KindOptimistic, value: b.value + amount, basis: b.basis}
}

// Refresh replaces whatever is displayed with a server-reported value.
func (b Balance) Refresh(server int64) Balance { return Confirmed(server) }

type wire struct {
	Confirmed  *int64 `json:"confirmed,omitempty"`
	Optimistic *int64 `json:"optimistic,omitempty"`
	Basis      *int64 `json:"basis,omitempty"`
}

func (b Balance) MarshalJSON() ([]byte, error) {
	v, basis := b.value, b.basis
	if b.kind == KindOptimistic {
		return json.Marshal(wire{Optimistic: &v, Basis: &basis})
	}
	return json.Marshal(wire{Confirmed: &v})
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Confirmed != nil:
		*b = Confirmed(*w.Confirmed)
	case w.Optimistic != nil && w.Basis != nil:
		*b = Balance{kind: KindOptimistic, value: *w.Optimistic, basis: *w.Basis}
	default:
		return errors.New("ledger: balance is neither confirmed nor optimistic")
	}
	return nil
}
