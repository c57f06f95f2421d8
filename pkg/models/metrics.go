package models

// Metrics is the backend's live counter snapshot.
type Metrics struct {
	QueueDepth            int     `json:"queue_depth"`
	AgentsActive          int     `json:"agents_active"`
	AwaitingApproval      int     `json:"awaiting_approval"`
	TicketsPerMinute      float64 `json:"tickets_per_minute"`
	LLMLatencyMS          float64 `json:"llm_latency_ms"`
	NeuralActivityPercent float64 `json:"neural_activity_percent"`
	TotalTickets          int     `json:"total_tickets"`
	ResolvedCount         int     `json:"resolved_count"`
	OpenCount             int     `json:"open_count"`
	AnalyzingCount        int     `json:"analyzing_count"`
	AwaitingApprovalCount int     `json:"awaiting_approval_count"`
	Timestamp             float64 `json:"timestamp,omitempty"`
	Error                 string  `json:"error,omitempty"`
}

// Health returns the share of resolved tickets as a percentage.
// With no tickets the system is considered fully healthy.
func (m Metrics) Health() float64 {
	if m.TotalTickets <= 0 {
		return 100
	}
	h := float64(m.ResolvedCount) / float64(m.TotalTickets) * 100
	if h > 100 {
		return 100
	}
	if h < 0 {
		return 0
	}
	return h
}

// AgentActivity derives per-agent status from the number of active agents.
// Agents light up in pipeline order; the healer waits on an operator.
func (m Metrics) AgentActivity() map[Agent]AgentStatus {
	out := map[Agent]AgentStatus{
		AgentOrchestrator:  AgentIdle,
		AgentDiagnostician: AgentIdle,
		AgentHealer:        AgentIdle,
	}
	if m.AgentsActive >= 1 {
		out[AgentOrchestrator] = AgentProcessing
	}
	if m.AgentsActive >= 2 {
		out[AgentDiagnostician] = AgentProcessing
	}
	if m.AgentsActive >= 3 {
		out[AgentHealer] = AgentAwaitingApproval
	}
	return out
}
