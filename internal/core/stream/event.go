// Package stream keeps one reconnecting push connection to the backend
// and routes its events into the store.
package stream

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/pkg/models"
)

// Wire tags of the tagged event envelope.
const (
	TypeTicketUpdate = "ticket_update"
	TypeNewTicket    = "new_ticket"
)

// Kind discriminates decoded events.
type Kind int

const (
	// Ignored events are well-formed but carry nothing the store tracks.
	Ignored Kind = iota
	TicketUpdated
	TicketCreated
	// ImplicitTicket is an untagged message that looks like a bare ticket.
	ImplicitTicket
)

func (k Kind) String() string {
	switch k {
	case Ignored:
		return "ignored"
	case TicketUpdated:
		return "ticket_updated"
	case TicketCreated:
		return "ticket_created"
	case ImplicitTicket:
		return "implicit_ticket"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one decoded push message. Ticket is set for every kind
// except Ignored.
type Event struct {
	Kind   Kind
	Type   string
	Ticket models.Ticket
}

// HasTicket reports whether the event should reach the store.
func (e Event) HasTicket() bool {
	return e.Kind != Ignored
}

type envelope struct {
	Type    json.RawMessage `json:"type"`
	Payload json.RawMessage `json:"payload"`
	ID      json.RawMessage `json:"id"`
}

// Decode parses a push message. Input that is not a JSON object, and
// tagged ticket events without a usable payload, return a DECODE_FAILURE
// error. Everything else decodes, possibly to an Ignored event.
func Decode(data []byte) (Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, errors.Decode("stream event", fmt.Errorf("not a JSON object"))
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Event{}, errors.Decode("stream event", err)
	}

	if len(env.Type) == 0 || bytes.Equal(env.Type, []byte("null")) {
		if len(env.ID) == 0 {
			return Event{Kind: Ignored}, nil
		}
		var t models.Ticket
		if err := json.Unmarshal(trimmed, &t); err != nil {
			return Event{}, errors.Decode("untagged ticket", err)
		}
		if t.ID == "" {
			return Event{Kind: Ignored}, nil
		}
		return Event{Kind: ImplicitTicket, Ticket: t.Normalized()}, nil
	}

	var typ string
	if err := json.Unmarshal(env.Type, &typ); err != nil {
		return Event{Kind: Ignored}, nil
	}

	var kind Kind
	switch typ {
	case TypeTicketUpdate:
		kind = TicketUpdated
	case TypeNewTicket:
		kind = TicketCreated
	default:
		return Event{Kind: Ignored, Type: typ}, nil
	}

	if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
		return Event{}, errors.Decode(typ+" event", fmt.Errorf("missing payload")).
			WithDetail("type", typ)
	}
	var t models.Ticket
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return Event{}, errors.Decode(typ+" payload", err).WithDetail("type", typ)
	}
	if t.ID == "" {
		return Event{}, errors.Decode(typ+" payload", fmt.Errorf("empty ticket id")).
			WithDetail("type", typ)
	}
	return Event{Kind: kind, Type: typ, Ticket: t.Normalized()}, nil
}
