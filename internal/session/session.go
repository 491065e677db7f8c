// Package session ties an authentication session to the collection mirrors
// that belong to it. A session's phase is driven exclusively by auth-state
// pushes from the identity provider: handlers never flip it directly.
package session

import (
	"log/slog"
	"sync"

	"costtracker/internal/core"
	"costtracker/internal/docstore"
	"costtracker/internal/identity"
	"costtracker/internal/store"
)

// Phase is the authentication phase of a session.
type Phase int

const (
	// PhaseUnknown holds until the first auth-state push arrives. Renderers
	// treat it as "checking", never as logged out.
	PhaseUnknown Phase = iota
	PhaseAuthenticated
	PhaseUnauthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Session is the per-token application state: the resolved identity, the two
// collection mirrors, and the view filter.
type Session struct {
	token string
	docs  docstore.Store

	mu         sync.Mutex
	phase      Phase
	user       *core.User
	items      *store.EntityStore[core.Item]
	otherCosts *store.EntityStore[core.OtherCost]
	filter     FilterState

	unsubAuth  func()
	unsubItems func()
	unsubOther func()

	// Listeners live under their own lock. broadcast fires from inside
	// snapshot ingestion while attach still holds mu, so it must never
	// touch mu itself.
	lmu          sync.Mutex
	nextListener int
	listeners    map[int]chan struct{}
}

func newSession(token string, docs docstore.Store) *Session {
	return &Session{
		token:     token,
		docs:      docs,
		listeners: make(map[int]chan struct{}),
	}
}

// start subscribes to the session's auth state. The provider pushes the
// current state synchronously, so the phase is settled before start returns.
func (s *Session) start(provider identity.Provider) error {
	unsub, err := provider.SubscribeAuthState(s.token, s.onAuthState)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.unsubAuth = unsub
	s.mu.Unlock()
	return nil
}

func (s *Session) onAuthState(user *core.User) {
	if user != nil {
		s.attach(*user)
	} else {
		s.detach()
	}
	s.broadcast()
}

// attach moves the session to authenticated and brings up the collection
// mirrors for the identity's own collections.
func (s *Session) attach(user core.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseAuthenticated && s.user != nil && s.user.UID == user.UID {
		s.user = &user
		return
	}

	s.teardownLocked()

	s.phase = PhaseAuthenticated
	s.user = &user
	s.items = store.New(s.docs, docstore.ItemsPath(user.UID), store.ItemCodec)
	s.otherCosts = store.New(s.docs, docstore.OtherCostsPath(user.UID), store.OtherCostCodec)
	s.items.OnChange(s.broadcast)
	s.otherCosts.OnChange(s.broadcast)

	var err error
	if s.unsubItems, err = s.items.Subscribe(); err != nil {
		slog.Error("Failed to subscribe items collection", "uid", user.UID, "error", err)
	}
	if s.unsubOther, err = s.otherCosts.Subscribe(); err != nil {
		slog.Error("Failed to subscribe other costs collection", "uid", user.UID, "error", err)
	}
}

// detach moves the session to unauthenticated and drops every trace of the
// previous identity's data.
func (s *Session) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.phase = PhaseUnauthenticated
}

func (s *Session) teardownLocked() {
	if s.unsubItems != nil {
		s.unsubItems()
		s.unsubItems = nil
	}
	if s.unsubOther != nil {
		s.unsubOther()
		s.unsubOther = nil
	}
	s.user = nil
	s.items = nil
	s.otherCosts = nil
	s.filter = FilterState{}
}

// close tears the session down entirely, including the auth subscription.
func (s *Session) close() {
	s.mu.Lock()
	unsubAuth := s.unsubAuth
	s.unsubAuth = nil
	s.teardownLocked()
	s.mu.Unlock()
	s.lmu.Lock()
	for id, ch := range s.listeners {
		close(ch)
		delete(s.listeners, id)
	}
	s.lmu.Unlock()
	if unsubAuth != nil {
		unsubAuth()
	}
}

// Phase returns the current authentication phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// User returns the authenticated identity, or nil.
func (s *Session) User() *core.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Items returns the item mirror, or nil when unauthenticated.
func (s *Session) Items() *store.EntityStore[core.Item] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// OtherCosts returns the other-cost mirror, or nil when unauthenticated.
func (s *Session) OtherCosts() *store.EntityStore[core.OtherCost] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otherCosts
}

// Filter returns the session's current view filter.
func (s *Session) Filter() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetCostThreshold updates the filter from raw form input. Unparseable or
// negative input resets the threshold instead of erroring: a filter never
// blocks the view.
func (s *Session) SetCostThreshold(raw string) {
	value, err := core.ParseAmount(raw)
	if err != nil || value < 0 {
		value = 0
	}
	s.mu.Lock()
	s.filter.CostThreshold = value
	s.mu.Unlock()
	s.broadcast()
}

// ResetCostThreshold clears the filter.
func (s *Session) ResetCostThreshold() {
	s.mu.Lock()
	s.filter = FilterState{}
	s.mu.Unlock()
	s.broadcast()
}

// Listen registers a change listener. The channel receives a tick whenever
// the session's renderable state changes; the returned function detaches it.
func (s *Session) Listen() (<-chan struct{}, func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextListener
	s.nextListener++
	ch := make(chan struct{}, 1)
	s.listeners[id] = ch
	return ch, func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		if ch, ok := s.listeners[id]; ok {
			delete(s.listeners, id)
			close(ch)
		}
	}
}

func (s *Session) broadcast() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// FilterState holds the view filter. A zero threshold shows everything.
type FilterState struct {
	CostThreshold float64
}

// Active reports whether the filter excludes anything.
func (f FilterState) Active() bool { return f.CostThreshold > 0 }
