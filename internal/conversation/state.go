// Package conversation implements the per-channel booking dialogue: the
// state machine that decides what input is expected next, the selection
// token codec shared with transports, the replaceable state stores, and the
// dispatcher that serializes events per channel.
package conversation

import (
	"context"
	"sync"
	"time"
)

// Stage is the step of the dialogue a channel is in.
type Stage string

const (
	StageIdle                 Stage = "idle"
	StageAwaitingEmail        Stage = "awaiting_email"
	StageAwaitingCode         Stage = "awaiting_code"
	StageSelectingService     Stage = "selecting_service"
	StageSelectingDate        Stage = "selecting_date"
	StageSelectingTime        Stage = "selecting_time"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
)

// State is the ephemeral dialogue state of one channel.
type State struct {
	Stage           Stage     `json:"stage"`
	SelectedService string    `json:"selected_service,omitempty"`
	SelectedDate    string    `json:"selected_date,omitempty"`
	SelectedTime    string    `json:"selected_time,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AwaitingEmail reports whether the next free text is an email address.
func (s State) AwaitingEmail() bool { return s.Stage == StageAwaitingEmail }

// AwaitingCode reports whether the next free text is a confirmation code.
func (s State) AwaitingCode() bool { return s.Stage == StageAwaitingCode }

// IsIdle reports whether the state carries nothing worth storing.
func (s State) IsIdle() bool {
	return (s.Stage == "" || s.Stage == StageIdle) &&
		s.SelectedService == "" && s.SelectedDate == "" && s.SelectedTime == ""
}

func idle() State { return State{Stage: StageIdle} }

// StateStore persists State per channel. Load returns the idle state for
// unknown channels.
type StateStore interface {
	Load(ctx context.Context, channelID int64) (State, error)
	Save(ctx context.Context, channelID int64, st State) error
	Reset(ctx context.Context, channelID int64) error
}

// MemoryStore keeps states in a map. With a positive TTL, states untouched
// for longer than TTL load as idle.
type MemoryStore struct {
	TTL time.Duration
	Now func() time.Time

	mu     sync.RWMutex
	states map[int64]State
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{TTL: ttl, Now: time.Now, states: make(map[int64]State)}
}

// Load implements StateStore.
func (m *MemoryStore) Load(_ context.Context, channelID int64) (State, error) {
	m.mu.RLock()
	st, ok := m.states[channelID]
	m.mu.RUnlock()
	if !ok {
		return idle(), nil
	}
	if m.TTL > 0 && m.now().Sub(st.UpdatedAt) > m.TTL {
		m.mu.Lock()
		if cur, ok := m.states[channelID]; ok && cur.UpdatedAt.Equal(st.UpdatedAt) {
			delete(m.states, channelID)
		}
		m.mu.Unlock()
		return idle(), nil
	}
	return st, nil
}

// Save implements StateStore.
func (m *MemoryStore) Save(_ context.Context, channelID int64, st State) error {
	st.UpdatedAt = m.now()
	m.mu.Lock()
	if m.states == nil {
		m.states = make(map[int64]State)
	}
	m.states[channelID] = st
	m.mu.Unlock()
	return nil
}

// Reset implements StateStore.
func (m *MemoryStore) Reset(_ context.Context, channelID int64) error {
	m.mu.Lock()
	delete(m.states, channelID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored states.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

func (m *MemoryStore) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}
