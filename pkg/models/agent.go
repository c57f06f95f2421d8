package models

// Agent identifies one of the backend's AI agents.
type Agent string

const (
	AgentOrchestrator  Agent = "orchestrator"
	AgentDiagnostician Agent = "diagnostician"
	AgentHealer        Agent = "healer"
)

// Agents lists every agent in pipeline order.
var Agents = []Agent{AgentOrchestrator, AgentDiagnostician, AgentHealer}

// AgentStatus is the activity state of an agent.
type AgentStatus string

const (
	AgentIdle             AgentStatus = "idle"
	AgentProcessing       AgentStatus = "processing"
	AgentAwaitingApproval AgentStatus = "awaiting_approval"
	AgentError            AgentStatus = "error"
)

// AgentStates is the agent panel of the store. Fields are independent and
// not cross-validated.
type AgentStates struct {
	Agents       map[Agent]AgentStatus `json:"agents"`
	QueueDepth   int                   `json:"queue_depth"`
	SystemHealth float64               `json:"system_health"`
}

// DefaultAgentStates returns every agent idle with full system health.
func DefaultAgentStates() AgentStates {
	s := AgentStates{
		Agents:       make(map[Agent]AgentStatus, len(Agents)),
		SystemHealth: 100,
	}
	for _, a := range Agents {
		s.Agents[a] = AgentIdle
	}
	return s
}

// Clone returns a deep copy.
func (s AgentStates) Clone() AgentStates {
	out := s
	out.Agents = make(map[Agent]AgentStatus, len(s.Agents))
	for k, v := range s.Agents {
		out.Agents[k] = v
	}
	return out
}
