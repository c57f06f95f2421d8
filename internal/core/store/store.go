package store

import (
	"sync"

	"github.com/grovetools/hermes/pkg/models"
)

// Store is the in-memory ticket table shared by the stream consumer, the
// pollers and the readers. It is thread-safe; every mutation is followed
// by a synchronous fan-out to listeners before the mutating call returns.
type Store struct {
	// notifyMu serializes a mutation together with its fan-out so that
	// listeners see snapshots in mutation order.
	notifyMu sync.Mutex

	mu       sync.RWMutex
	tickets  []models.Ticket
	index    map[string]int
	selected string
	agents   models.AgentStates
	metrics  *models.Metrics
	conn     models.ConnectionStatus

	listenersMu sync.Mutex
	listeners   []subscription
	nextID      int
}

type subscription struct {
	id int
	fn Listener
}

// New creates an empty store with every agent idle.
func New() *Store {
	return &Store{
		index:  make(map[string]int),
		agents: models.DefaultAgentStates(),
	}
}

// UpsertTicket inserts an unseen ticket at the front or replaces an
// existing one in place.
func (s *Store) UpsertTicket(t models.Ticket) {
	t = t.Normalized()
	s.mutateTicket(t.ID, func() {
		if i, ok := s.index[t.ID]; ok {
			s.tickets[i] = t
			return
		}
		s.tickets = append([]models.Ticket{t}, s.tickets...)
		s.reindex()
	})
}

// ReplaceAll swaps the whole table. Duplicate ids collapse to one entry
// holding the last record at the first position. The selection is left
// untouched even when the selected id disappears.
func (s *Store) ReplaceAll(ts []models.Ticket) {
	next := make([]models.Ticket, 0, len(ts))
	index := make(map[string]int, len(ts))
	for _, t := range ts {
		t = t.Normalized()
		if i, ok := index[t.ID]; ok {
			next[i] = t
			continue
		}
		index[t.ID] = len(next)
		next = append(next, t)
	}
	s.mutate(ChangeTicketsReplaced, func() {
		s.tickets = next
		s.index = index
	})
}

// SelectTicket sets the selected id. An empty id clears the selection;
// ids not in the table are accepted.
func (s *Store) SelectTicket(id string) {
	s.mutate(ChangeSelection, func() { s.selected = id })
}

// SetAgentState records one agent's status.
func (s *Store) SetAgentState(agent models.Agent, status models.AgentStatus) {
	s.mutate(ChangeAgents, func() {
		s.agents = s.agents.Clone()
		s.agents.Agents[agent] = status
	})
}

// SetAgentStates records several agents at once with a single notification.
func (s *Store) SetAgentStates(states map[models.Agent]models.AgentStatus) {
	s.mutate(ChangeAgents, func() {
		s.agents = s.agents.Clone()
		for a, st := range states {
			s.agents.Agents[a] = st
		}
	})
}

func (s *Store) SetSystemHealth(v float64) {
	s.mutate(ChangeAgents, func() { s.agents.SystemHealth = v })
}

func (s *Store) SetQueueDepth(n int) {
	s.mutate(ChangeAgents, func() { s.agents.QueueDepth = n })
}

// SetMetrics stores the latest metrics sample.
func (s *Store) SetMetrics(m models.Metrics) {
	s.mutate(ChangeMetrics, func() { s.metrics = &m })
}

// SetConnection mirrors the push connection status.
func (s *Store) SetConnection(c models.ConnectionStatus) {
	s.mutate(ChangeConnection, func() { s.conn = c })
}

// Snapshot returns a copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked("")
}

// Tickets returns the tickets in display order.
func (s *Store) Tickets() []models.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out
}

// Ticket looks up a ticket by id.
func (s *Store) Ticket(id string) (models.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Ticket{}, false
	}
	return s.tickets[i], true
}

// Selected returns the selected ticket, if it is in the table.
func (s *Store) Selected() (models.Ticket, bool) {
	s.mu.RLock()
	id := s.selected
	s.mu.RUnlock()
	if id == "" {
		return models.Ticket{}, false
	}
	return s.Ticket(id)
}

// SelectedID returns the raw selection, which may name a missing ticket.
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Connection returns the mirrored push connection status.
func (s *Store) Connection() models.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// Subscribe registers a listener and returns its unsubscribe func.
// Listeners are invoked in registration order.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Updates delivers snapshots on a buffered channel for consumers that
// cannot run inside the mutating goroutine. Sends never block; a slow
// reader misses intermediate snapshots. The returned func unsubscribes
// and closes the channel.
func (s *Store) Updates(buffer int) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, buffer)
	var closeMu sync.Mutex
	closed := false
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		closeMu.Lock()
		defer closeMu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- snap:
		default:
		}
	})
	return ch, func() {
		unsubscribe()
		closeMu.Lock()
		defer closeMu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}

func (s *Store) mutate(change Change, apply func()) {
	s.commit(change, "", apply)
}

func (s *Store) mutateTicket(id string, apply func()) {
	s.commit(ChangeTicketUpserted, id, apply)
}

func (s *Store) commit(change Change, ticketID string, apply func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	apply()
	snap := s.snapshotLocked(change)
	snap.TicketID = ticketID
	s.mu.Unlock()

	s.listenersMu.Lock()
	subs := make([]subscription, len(s.listeners))
	copy(subs, s.listeners)
	s.listenersMu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func (s *Store) snapshotLocked(change Change) Snapshot {
	tickets := make([]models.Ticket, len(s.tickets))
	copy(tickets, s.tickets)
	var metrics *models.Metrics
	if s.metrics != nil {
		m := *s.metrics
		metrics = &m
	}
	return Snapshot{
		Change:     change,
		Tickets:    tickets,
		SelectedID: s.selected,
		Agents:     s.agents.Clone(),
		Metrics:    metrics,
		Connection: s.conn,
	}
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.tickets))
	for i, t := range s.tickets {
		s.index[t.ID] = i
	}
}
