package models

import (
	"fmt"
	"time"
)

// ConnectionState is the push connection's lifecycle position.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	BackingOff
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case BackingOff:
		return "backing_off"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ConnectionStatus is what readers see of the push connection.
type ConnectionStatus struct {
	State     ConnectionState `json:"state"`
	Attempt   int             `json:"attempt"`
	LastError string          `json:"last_error,omitempty"`
	RetryIn   time.Duration   `json:"retry_in,omitempty"`
	// Exhausted is set once the reconnect budget is spent. Only polling
	// keeps the store fresh from then on.
	Exhausted bool `json:"exhausted,omitempty"`
}

// Degraded reports whether the view is being kept fresh by polling only.
func (c ConnectionStatus) Degraded() bool {
	return c.State != Connected
}
