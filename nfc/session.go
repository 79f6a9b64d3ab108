package nfc

import (
	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
)

// Session states.
const (
	StateInactive = "inactive"
	StateActive   = "active"
)

const (
	evActivate   = "activate"
	evDeactivate = "deactivate"
)

// Session tracks whether a discovery callback is currently registered.
type Session struct {
	states *fsm.FSM
}

// NewSession creates an inactive session.
func NewSession(logger zerolog.Logger) *Session {
	return &Session{
		states: fsm.NewFSM(
			StateInactive,
			fsm.Events{
				{Name: evActivate, Src: []string{StateInactive}, Dst: StateActive},
				{Name: evDeactivate, Src: []string{StateActive}, Dst: StateInactive},
			},
			fsm.Callbacks{
				"enter_state": func(e *fsm.Event) {
					logger.Debug().Str("old", e.Src).Str("event", e.Event).Str("new", e.Dst).Msg("session transition")
				},
			},
		),
	}
}

// Active reports whether the session is Active.
func (s *Session) Active() bool {
	return s.states.Is(StateActive)
}

// State returns the current state name.
func (s *Session) State() string {
	return s.states.Current()
}

// Activate moves the session to Active. It reports whether a transition happened.
func (s *Session) Activate() bool {
	return s.states.Event(evActivate) == nil
}

// Deactivate moves the session to Inactive. Deactivating an inactive
// session is a no-op that reports false.
func (s *Session) Deactivate() bool {
	return s.states.Event(evDeactivate) == nil
}
