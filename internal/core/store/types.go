// Package store provides the process-owned observable ticket table.
package store

import (
	"github.com/grovetools/hermes/pkg/models"
)

// Change names the field group touched by a mutation.
type Change string

const (
	ChangeTicketUpserted  Change = "ticket_upserted"
	ChangeTicketsReplaced Change = "tickets_replaced"
	ChangeSelection       Change = "selection"
	ChangeAgents          Change = "agents"
	ChangeMetrics         Change = "metrics"
	ChangeConnection      Change = "connection"
)

// Snapshot is a consistent copy of the store taken right after a mutation.
type Snapshot struct {
	Change     Change                  `json:"change,omitempty"`
	TicketID   string                  `json:"ticket_id,omitempty"` // set for ChangeTicketUpserted
	Tickets    []models.Ticket         `json:"tickets"`
	SelectedID string                  `json:"selected_id,omitempty"`
	Agents     models.AgentStates      `json:"agents"`
	Metrics    *models.Metrics         `json:"metrics,omitempty"`
	Connection models.ConnectionStatus `json:"connection"`
}

// Selected returns the selected ticket. ok is false when nothing is
// selected or the selected id is not in the table.
func (s Snapshot) Selected() (models.Ticket, bool) {
	if s.SelectedID == "" {
		return models.Ticket{}, false
	}
	for _, t := range s.Tickets {
		if t.ID == s.SelectedID {
			return t, true
		}
	}
	return models.Ticket{}, false
}

// Listener observes mutations. It runs synchronously on the mutating
// goroutine and may read the store, but must not mutate it.
type Listener func(Snapshot)
