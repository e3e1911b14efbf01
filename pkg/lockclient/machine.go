// Package lockclient is the client side of event locks: it activates a
// lock link, remembers the result for the session, decides which in-app
// routes stay reachable and attaches the lock token to API calls.
package lockclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// State is the machine's lifecycle position.
type State int

const (
	Unlocked State = iota
	Activating
	Locked
)

func (s State) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Activating:
		return "activating"
	case Locked:
		return "locked"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventSnapshot is the event data returned by a successful verification.
type EventSnapshot struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	PosterURL   string `json:"posterUrl"`
}

// Snapshot is a copy of the machine state.  Event and Token are set while
// locked.  While activating they keep the previous lock, if any, so route
// decisions never open up during a re-activation.
type Snapshot struct {
	State State
	Event *EventSnapshot
	Token string
}

// Verified is a successful verifier response.
type Verified struct {
	Event EventSnapshot
	Token string
}

// Verifier exchanges a lock token for its event.  Failures should be
// *ActivationError so callers can show the reason.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Verified, error)
}

// ActivationError is a failed activation.  Reason is the user-facing
// message; Status is the HTTP status, or 0 when the server was not
// reached.
type ActivationError struct {
	Reason string
	Status int
	Err    error
}

func (e *ActivationError) Error() string { return e.Reason }
func (e *ActivationError) Unwrap() error { return e.Err }

// ErrSuperseded is returned to an activation overtaken by a later
// ActivateLock or ClearLock.  It leaves state and storage untouched.
var ErrSuperseded = errors.New("lockclient: activation superseded")

const defaultFailure = "Failed to verify lock token"

// persisted is the stored form under StorageKey.
type persisted struct {
	EventData *EventSnapshot `json:"eventData"`
	Token     string         `json:"token"`
}

// Machine is the client lock state machine.  It is safe for concurrent
// use.
type Machine struct {
	storage  Storage
	verifier Verifier
	flight   singleflight.Group

	mu      sync.Mutex
	snap    Snapshot
	gen     uint64 // bumped by every new activation and by ClearLock
	pending string // token of the in-flight activation
	applied uint64 // last generation whose result was applied
	lastErr error  // failure applied for generation applied
}

// NewMachine restores any persisted lock before returning, so the first
// route decision already sees it.  An unreadable entry is removed and the
// machine starts unlocked.
func NewMachine(storage Storage, verifier Verifier) *Machine {
	m := &Machine{storage: storage, verifier: verifier}
	m.rehydrate()
	return m
}

func (m *Machine) rehydrate() {
	raw, ok, err := m.storage.Get(StorageKey)
	if err != nil || !ok {
		return
	}
	var p persisted
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.EventData == nil || p.Token == "" {
		_ = m.storage.Remove(StorageKey)
		return
	}
	m.snap = Snapshot{State: Locked, Event: p.EventData, Token: p.Token}
}

// State returns a copy of the current state.
func (m *Machine) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.copy()
}

func (s Snapshot) copy() Snapshot {
	if s.Event != nil {
		ev := *s.Event
		s.Event = &ev
	}
	return s
}

// IsRouteAllowed applies RouteAllowed to the current state.
func (m *Machine) IsRouteAllowed(path string) bool {
	return RouteAllowed(m.State(), path)
}

// ActivateLock exchanges token for its event.  On success the lock is
// persisted and the machine is Locked; on failure persisted state is
// removed, the machine is Unlocked and the error is an *ActivationError.
// Callers activating the same token concurrently share one verification.
func (m *Machine) ActivateLock(ctx context.Context, token string) (*EventSnapshot, error) {
	token = strings.TrimSpace(token)

	m.mu.Lock()
	if m.snap.State != Activating || m.pending != token {
		m.gen++
		m.pending = token
	}
	gen := m.gen
	m.snap.State = Activating
	m.mu.Unlock()

	v, err, _ := m.flight.Do(token, func() (interface{}, error) {
		if token == "" {
			return nil, &ActivationError{Reason: "Invalid lock token"}
		}
		return m.verifier.Verify(ctx, token)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil, ErrSuperseded
	}
	if m.applied == gen {
		// A caller sharing this activation already applied the result.
		if m.lastErr != nil {
			return nil, m.lastErr
		}
		ev := *m.snap.Event
		return &ev, nil
	}
	m.applied = gen
	m.pending = ""

	if err != nil {
		return nil, m.fail(err)
	}
	res, _ := v.(*Verified)
	if res == nil {
		return nil, m.fail(&ActivationError{Reason: defaultFailure})
	}
	if res.Token == "" {
		res.Token = token
	}
	ev := res.Event
	b, err := json.Marshal(persisted{EventData: &ev, Token: res.Token})
	if err == nil {
		err = m.storage.Set(StorageKey, string(b))
	}
	if err != nil {
		return nil, m.fail(&ActivationError{Reason: "Failed to save lock", Err: err})
	}
	m.snap = Snapshot{State: Locked, Event: &ev, Token: res.Token}
	m.lastErr = nil
	out := ev
	return &out, nil
}

// fail applies a failed activation.  m.mu must be held.
func (m *Machine) fail(err error) error {
	var ae *ActivationError
	if !errors.As(err, &ae) {
		ae = &ActivationError{Reason: defaultFailure, Err: err}
	}
	_ = m.storage.Remove(StorageKey)
	m.snap = Snapshot{State: Unlocked}
	m.lastErr = ae
	return ae
}

// ClearLock removes the persisted lock and returns to Unlocked.  An
// activation in flight is discarded when it completes.
func (m *Machine) ClearLock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.pending = ""
	m.snap = Snapshot{State: Unlocked}
	return m.storage.Remove(StorageKey)
}
