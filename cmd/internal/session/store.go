package session

import (
	"sync"

	"backoffice/cmd/internal/durable"
)

// Observer is notified after every handled dispatch with the action and the resulting state.
// Observers run outside the store lock and must not call Dispatch on the same store.
type Observer func(a Action, next Session)

// Option configures a Store.
type Option func(*Store)

// WithObserver registers an observer. Nil observers are ignored.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Store owns one session and its durable mirror.
//
// Dispatch is serialized; each call reduces then persists before the next begins.
type Store struct {
	storage durable.Storage
	keys    Keys

	mu        sync.Mutex
	state     Session
	observers []Observer
}

// NewStore rehydrates a Store from st.
func NewStore(st durable.Storage, keys Keys, opts ...Option) *Store {
	s := &Store{
		storage: st,
		keys:    keys,
		state:   InitialState(st, keys),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// State returns a copy of the current session.
func (s *Store) State() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	out.User = cloneUser(s.state.User)
	return out
}

// Keys returns the storage keys the store writes.
func (s *Store) Keys() Keys { return s.keys }

// Dispatch applies a and persists the fields it owns.
//
// The in-memory state always advances; a storage failure is returned so the caller can react
// instead of letting memory and storage diverge unnoticed.
func (s *Store) Dispatch(a Action) (Session, error) {
	s.mu.Lock()
	next := Reduce(s.state, a)
	err := Persist(s.storage, s.keys, a)
	s.state = next
	observers := s.observers
	s.mu.Unlock()

	out := next
	out.User = cloneUser(next.User)

	if a.Type.Known() {
		for _, o := range observers {
			o(a, out)
		}
	}
	return out, err
}
