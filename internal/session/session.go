// Package session is the single source of truth for "who is logged in".
// A Store is created once at startup and injected wherever it is needed;
// nothing in the storefront reads session state from package globals.
//
// Storage is only a cache: Restore always reconciles it with the remote
// API's "who am I" answer, and any failure there is treated as a logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/service-storefront/internal/ledger"
	"github.com/iliyamo/service-storefront/internal/model"
	"github.com/iliyamo/service-storefront/internal/utils"
)

// ErrNoSession is returned by Storage when the key is unknown or expired.
var ErrNoSession = errors.New("session: not found")

// Record is what Storage persists per session.
type Record struct {
	Token       string         `json:"token"`
	User        model.User     `json:"user"`
	Balance     ledger.Balance `json:"balance"`
	ValidatedAt time.Time      `json:"validatedAt"`
}

// Storage persists records under an opaque key (the hashed session id).
type Storage interface {
	Load(ctx context.Context, key string) (Record, error)
	Save(ctx context.Context, key string, rec Record, ttl time.Duration) error
	// Delete and DeleteByToken report how many sessions they removed.
	Delete(ctx context.Context, key string) (int, error)
	DeleteByToken(ctx context.Context, token string) (int, error)
}

// Authority answers "who am I" for a bearer token.
type Authority interface {
	Me(ctx context.Context, token string) (model.User, error)
}

// State is a resolved session as seen by one request.  A nil User means
// logged out.
type State struct {
	ID      string
	Loading bool
	Token   string
	User    *model.User
	Balance ledger.Balance
}

// LoggedIn reports whether a user is attached.
func (s State) LoggedIn() bool { return s.User != nil }

// IsAdmin reports whether the attached user is an admin.
func (s State) IsAdmin() bool { return s.User != nil && s.User.IsAdmin }

// EventKind names a session lifecycle change.
type EventKind string

const (
	EventCommitted EventKind = "committed"
	EventCleared   EventKind = "cleared"
)

// Event is delivered to subscribers after a change was persisted.
type Event struct {
	Kind   EventKind
	User   model.User
	Reason string
}

// Store implements restore/commit/clear over a Storage.
type Store struct {
	storage         Storage
	auth            Authority
	ttl             time.Duration
	revalidateAfter time.Duration
	now             func() time.Time

	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

// Options tune a Store.
type Options struct {
	TTL             time.Duration // lifetime of a stored record
	RevalidateAfter time.Duration // 0 revalidates on every Restore
}

// NewStore builds a Store.  auth may be set later with SetAuthority when the
// API client itself needs the store (the 401 hook).
func NewStore(storage Storage, auth Authority, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	return &Store{
		storage:         storage,
		auth:            auth,
		ttl:             opts.TTL,
		revalidateAfter: opts.RevalidateAfter,
		now:             time.Now,
		subs:            map[int]func(Event){},
	}
}

// SetAuthority sets the "who am I" source.
func (s *Store) SetAuthority(a Authority) { s.auth = a }

// Subscribe registers fn for every lifecycle event and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func key(id string) string { return utils.HashToken(id) }

// Begin creates a session for a fresh login or registration and returns
// its id.
func (s *Store) Begin(ctx context.Context, token string, user model.User) (string, error) {
	id, err := utils.RandomHex(32)
	if err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	rec := Record{Token: token, User: user, Balance: ledger.Confirmed(user.Balance), ValidatedAt: s.now()}
	if err := s.storage.Save(ctx, key(id), rec, s.ttl); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	s.emit(Event{Kind: EventCommitted, User: user, Reason: "login"})
	return id, nil
}

// Peek returns the stored state without contacting the API.
func (s *Store) Peek(ctx context.Context, id string) (State, error) {
	if id == "" {
		return State{}, nil
	}
	rec, err := s.storage.Load(ctx, key(id))
	if errors.Is(err, ErrNoSession) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("load session: %w", err)
	}
	return stateOf(id, rec), nil
}

// Restore reads the stored session and revalidates it against the API.
// Revalidation failure of any kind clears the session and reports a
// logged-out state with a nil error; only storage failures are returned.
func (s *Store) Restore(ctx context.Context, id string) (State, error) {
	if id == "" {
		return State{}, nil
	}
	rec, err := s.storage.Load(ctx, key(id))
	if errors.Is(err, ErrNoSession) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("load session: %w", err)
	}
	if rec.Token == "" {
		return State{}, s.Clear(ctx, id)
	}
	if s.revalidateAfter > 0 && s.now().Sub(rec.ValidatedAt) < s.revalidateAfter {
		return stateOf(id, rec), nil
	}
	if s.auth == nil {
		return State{}, errors.New("session: no authority configured")
	}

	user, err := s.auth.Me(ctx, rec.Token)
	if err != nil {
		// A request that went away is not a verdict on the session.
		if ctx.Err() != nil {
			return State{}, ctx.Err()
		}
		if cerr := s.clear(ctx, id, "revalidation failed"); cerr != nil {
			return State{}, cerr
		}
		return State{}, nil
	}
	rec.User = user
	rec.Balance = rec.Balance.Refresh(user.Balance)
	rec.ValidatedAt = s.now()
	if err := s.storage.Save(ctx, key(id), rec, s.ttl); err != nil {
		return State{}, fmt.Errorf("save session: %w", err)
	}
	s.emit(Event{Kind: EventCommitted, User: user, Reason: "revalidated"})
	return stateOf(id, rec), nil
}

// Commit overwrites the user snapshot with an authoritative copy.  The
// displayed balance becomes confirmed again.
func (s *Store) Commit(ctx context.Context, id string, user model.User) (State, error) {
	rec, err := s.storage.Load(ctx, key(id))
	if err != nil {
		return State{}, fmt.Errorf("load session: %w", err)
	}
	rec.User = user
	rec.Balance = rec.Balance.Refresh(user.Balance)
	rec.ValidatedAt = s.now()
	if err := s.storage.Save(ctx, key(id), rec, s.ttl); err != nil {
		return State{}, fmt.Errorf("save session: %w", err)
	}
	s.emit(Event{Kind: EventCommitted, User: user, Reason: "commit"})
	return stateOf(id, rec), nil
}

// Credit records a provisional balance increase after a top-up
// submission.  The user snapshot is left untouched.
func (s *Store) Credit(ctx context.Context, id string, amount int64) (ledger.Balance, error) {
	rec, err := s.storage.Load(ctx, key(id))
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("load session: %w", err)
	}
	rec.Balance = rec.Balance.Credit(amount)
	if err := s.storage.Save(ctx, key(id), rec, s.ttl); err != nil {
		return ledger.Balance{}, fmt.Errorf("save session: %w", err)
	}
	return rec.Balance, nil
}

// Clear removes the session.  Clearing an unknown session is not an error.
func (s *Store) Clear(ctx context.Context, id string) error {
	return s.clear(ctx, id, "logout")
}

func (s *Store) clear(ctx context.Context, id, reason string) error {
	if id == "" {
		return nil
	}
	n, err := s.storage.Delete(ctx, key(id))
	if err != nil && !errors.Is(err, ErrNoSession) {
		return fmt.Errorf("delete session: %w", err)
	}
	// Only the call that removed the session reports it.
	if n > 0 {
		s.emit(Event{Kind: EventCleared, Reason: reason})
	}
	return nil
}

// ClearToken removes every session holding token.  It backs the API
// client's 401 hook.
func (s *Store) ClearToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	n, err := s.storage.DeleteByToken(ctx, token)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return fmt.Errorf("delete session by token: %w", err)
	}
	for i := 0; i < n; i++ {
		s.emit(Event{Kind: EventCleared, Reason: "unauthorized"})
	}
	return nil
}

func stateOf(id string, rec Record) State {
	u := rec.User
	return State{ID: id, Token: rec.Token, User: &u, Balance: rec.Balance}
}
