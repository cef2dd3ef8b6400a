// Package resource implements the admin "resource table": fetch the whole
// list, render it, run one mutation per action, then fetch the whole list
// again.  Local state is never patched; every change is confirmed by the
// server before the table shows it.
package resource

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrRowNotFound          = errors.New("resource: row not found")
	ErrUnknownAction        = errors.New("resource: unknown action")
	ErrTransitionNotAllowed = errors.New("resource: action not allowed in current state")
	ErrConfirmationRequired = errors.New("resource: destructive action needs confirmation")
)

// Column describes one rendered cell.
type Column[T any] struct {
	Key   string
	Title string
	Value func(T) any
}

// Transition is an action button.  Allowed guards the source state (nil
// means any state).  Destructive actions only run when confirmed.
type Transition[T any] struct {
	Name        string
	Destructive bool
	Allowed     func(T) bool
	Do          func(ctx context.Context, token string, row T) (string, error)
}

// Table is parameterised by entity type, columns and transitions.
type Table[T any] struct {
	Name        string
	List        func(ctx context.Context, token string) ([]T, error)
	ID          func(T) string
	Columns     []Column[T]
	Transitions []Transition[T]
}

// Head is a rendered column header.
type Head struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Row is a rendered row: the cells, the raw item and the actions allowed
// on it right now.
type Row struct {
	ID      string         `json:"id"`
	Cells   map[string]any `json:"cells"`
	Item    any            `json:"item"`
	Actions []Action       `json:"actions"`
}

// Action is a rendered transition button.
type Action struct {
	Name    string `json:"name"`
	Confirm bool   `json:"confirm"`
}

// View is what a table renders to.
type View struct {
	Name    string `json:"name"`
	Columns []Head `json:"columns"`
	Rows    []Row  `json:"rows"`
	Message string `json:"message,omitempty"`
}

// Load fetches the full list and renders it.
func (t *Table[T]) Load(ctx context.Context, token string) (View, error) {
	items, err := t.List(ctx, token)
	if err != nil {
		return View{}, fmt.Errorf("list %s: %w", t.Name, err)
	}
	return t.render(items), nil
}

// Apply runs action on the row with the given id and returns the freshly
// refetched table.
func (t *Table[T]) Apply(ctx context.Context, token, id, action string, confirmed bool) (View, error) {
	items, err := t.List(ctx, token)
	if err != nil {
		return View{}, fmt.Errorf("list %s: %w", t.Name, err)
	}
	row, ok := t.find(items, id)
	if !ok {
		return View{}, ErrRowNotFound
	}
	tr, ok := t.transition(action)
	if !ok {
		return View{}, ErrUnknownAction
	}
	if tr.Allowed != nil && !tr.Allowed(row) {
		return View{}, ErrTransitionNotAllowed
	}
	if tr.Destructive && !confirmed {
		return View{}, ErrConfirmationRequired
	}
	msg, err := tr.Do(ctx, token, row)
	if err != nil {
		return View{}, fmt.Errorf("%s %s %s: %w", t.Name, action, id, err)
	}
	v, err := t.Load(ctx, token)
	if err != nil {
		return View{}, err
	}
	v.Message = msg
	return v, nil
}

func (t *Table[T]) find(items []T, id string) (T, bool) {
	for _, it := range items {
		if t.ID(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (t *Table[T]) transition(name string) (Transition[T], bool) {
	for _, tr := range t.Transitions {
		if tr.Name == name {
			return tr, true
		}
	}
	return Transition[T]{}, false
}

func (t *Table[T]) render(items []T) View {
	v := View{Name: t.Name, Rows: make([]Row, 0, len(items))}
	for _, c := range t.Columns {
		v.Columns = append(v.Columns, Head{Key: c.Key, Title: c.Title})
	}
	for _, it := range items {
		r := Row{ID: t.ID(it), Cells: make(map[string]any, len(t.Columns)), Item: it, Actions: []Action{}}
		for _, c := range t.Columns {
			r.Cells[c.Key] = c.Value(it)
		}
		for _, tr := range t.Transitions {
			if tr.Allowed == nil || tr.Allowed(it) {
				r.Actions = append(r.Actions, Action{Name: tr.Name, Confirm: tr.Destructive})
			}
		}
		v.Rows = append(v.Rows, r)
	}
	return v
}
