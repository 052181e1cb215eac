package domain

import (
	"fmt"
	"time"
)

// SessionState lifecycle state of a portfolio session.
type SessionState int

const (
	StateLoggedOut SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
)

// String returns the string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// IsAuthenticated reports whether the session holds validated credentials.
func (s SessionState) IsAuthenticated() bool {
	return s == StateAuthenticated || s == StateRefreshing
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SessionState) UnmarshalText(text []byte) error {
	for _, st := range []SessionState{StateLoggedOut, StateAuthenticating, StateAuthenticated, StateRefreshing} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Status is the view of a session exposed to presentation consumers.
type Status struct {
	State       SessionState `json:"state"`
	Loading     bool         `json:"loading"`
	Refreshing  bool         `json:"refreshing"`
	Error       string       `json:"error,omitempty"`
	LastUpdated time.Time    `json:"last_updated,omitempty"`
}
