package domain

import (
	"sync"
	"time"
)

// QuotationLine is one item collected during quotation creation.
type QuotationLine struct {
	Code        string  `json:"item_code"`
	Name        string  `json:"item_name"`
	Qty         float64 `json:"qty"`
	Rate        float64 `json:"rate"`
	Description string  `json:"description,omitempty"`
}

// FormDraft accumulates answers while a flow is in progress.
type FormDraft struct {
	Name        string
	Email       string
	Phone       string
	SearchQuery string

	Customer      string
	CustomerEmail string
	Items         []QuotationLine
	CurrentItem   *QuotationLine
	ValidTill     string
	Terms         string
}

// FlowState is the per-user conversation state. The zero value is idle.
type FlowState struct {
	Action     Intent
	WaitingFor Step
	Data       FormDraft
}

// Idle reports whether no flow is in progress.
func (f FlowState) Idle() bool {
	return f.WaitingFor == StepNone
}

// Session holds conversation state for one user.
type Session struct {
	mu sync.Mutex

	UserID    string // channel-scoped, see User.SessionKey
	State     FlowState
	CreatedAt time.Time
	LastSeen  time.Time
}

// NewSession creates an idle session.
func NewSession(userID string, now time.Time) *Session {
	return &Session{UserID: userID, CreatedAt: now, LastSeen: now}
}

// Lock serializes turns for this user.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the turn lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Begin starts a flow, discarding any incomplete one.
func (s *Session) Begin(action Intent, step Step) {
	s.State = FlowState{Action: action, WaitingFor: step}
}

// Await moves the active flow to step, keeping collected data.
func (s *Session) Await(step Step) {
	s.State.WaitingFor = step
}

// Reset returns the session to idle.
func (s *Session) Reset() {
	s.State = FlowState{}
}
