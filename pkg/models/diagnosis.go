package models

// Hypothesis is one candidate root cause proposed by the diagnostician.
type Hypothesis struct {
	ID          string   `json:"id,omitempty"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	Category    string   `json:"category,omitempty"`
	Evidence    []string `json:"evidence,omitempty"`
}

// DiagnosisProcessing is reported while the backend has not yet produced
// a diagnosis for the ticket.
const DiagnosisProcessing = "processing"

// Diagnosis is the diagnostician's reasoning for one ticket.
type Diagnosis struct {
	TicketID          string         `json:"ticket_id,omitempty"`
	Classification    Classification `json:"classification,omitempty"`
	Confidence        float64        `json:"confidence"`
	Hypotheses        []Hypothesis   `json:"hypotheses,omitempty"`
	RecommendedAction string         `json:"recommended_action,omitempty"`
	RiskLevel         string         `json:"risk_level,omitempty"`
	Evidence          []string       `json:"evidence,omitempty"`
	RootCause         string         `json:"root_cause,omitempty"`
	Status            string         `json:"status,omitempty"`
	Message           string         `json:"message,omitempty"`
}

// Pending reports whether the backend is still working on this diagnosis.
func (d *Diagnosis) Pending() bool {
	return d != nil && d.Status == DiagnosisProcessing
}

// DecisionRequest is the operator's verdict on a proposed action.
type DecisionRequest struct {
	Approved      bool   `json:"approved"`
	ApproverID    string `json:"approver_id"`
	Justification string `json:"justification,omitempty"`
}

// DecisionResult is the backend acknowledgement of a decision.
type DecisionResult struct {
	Status     string `json:"status"`
	DecisionID string `json:"decision_id"`
	Approved   bool   `json:"approved"`
}

// ResultingStatus is the ticket status implied by a decision.
func (r DecisionRequest) ResultingStatus() Status {
	if r.Approved {
		return StatusResolved
	}
	return StatusEscalated
}
