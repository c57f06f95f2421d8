// Package mockserver is an in-memory stand-in for the ticket triage
// backend. It serves the REST endpoints, an SSE stream and a WebSocket
// stream, and is used by `hermes mock-server` and by tests.
package mockserver

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/pkg/models"
)

// Backend holds the mock's tickets and fans events out to stream
// subscribers.
type Backend struct {
	mu        sync.RWMutex
	order     []string
	tickets   map[string]models.Ticket
	diagnoses map[string]models.Diagnosis
	decisions map[string]models.DecisionRequest

	subscribers map[chan []byte]struct{}

	refuseStreams bool
	ticketsStatus int

	rng *rand.Rand
	now func() time.Time
}

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{
		tickets:     make(map[string]models.Ticket),
		diagnoses:   make(map[string]models.Diagnosis),
		decisions:   make(map[string]models.DecisionRequest),
		subscribers: make(map[chan []byte]struct{}),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

// Tickets returns every ticket, newest first.
func (b *Backend) Tickets() []models.Ticket {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Ticket, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.tickets[id])
	}
	return out
}

// Ticket looks up one ticket.
func (b *Backend) Ticket(id string) (models.Ticket, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tickets[id]
	return t, ok
}

// PutTicket inserts or replaces a ticket and announces it on the stream
// as new_ticket or ticket_update.
func (b *Backend) PutTicket(t models.Ticket) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt == "" {
		t.CreatedAt = b.now().UTC().Format(time.RFC3339)
	}

	b.mu.Lock()
	_, exists := b.tickets[t.ID]
	if !exists {
		b.order = append([]string{t.ID}, b.order...)
	}
	b.tickets[t.ID] = t
	b.mu.Unlock()

	typ := "ticket_update"
	if !exists {
		typ = "new_ticket"
	}
	b.PublishEvent(typ, t)
}

// CreateTicket classifies raw text the way the triage agent would and
// stores the result as an analyzing ticket.
func (b *Backend) CreateTicket(merchantID, rawText, channel string) models.Ticket {
	class, confidence := classify(rawText)
	b.mu.Lock()
	priority := 3 + b.rng.Intn(7)
	b.mu.Unlock()

	t := models.Ticket{
		ID:             uuid.NewString(),
		MerchantID:     merchantID,
		MerchantName:   merchantName(merchantID),
		Classification: class,
		// Percentages on the wire, like the production classifier.
		Confidence: confidence,
		Status:     models.StatusAnalyzing,
		Priority:   priority,
		RawText:    rawText,
	}
	b.PutTicket(t)
	return t
}

// Advance moves a ticket one step through open, analyzing and diagnosed.
// Reaching diagnosed produces its diagnosis. It reports whether the
// ticket moved.
func (b *Backend) Advance(id string) bool {
	b.mu.Lock()
	t, ok := b.tickets[id]
	if !ok {
		b.mu.Unlock()
		return false
	}
	switch t.Status {
	case models.StatusOpen:
		t.Status = models.StatusAnalyzing
	case models.StatusAnalyzing:
		t.Status = models.StatusDiagnosed
		d := diagnose(t)
		b.diagnoses[id] = d
		t.Hypotheses = d.Hypotheses
	default:
		b.mu.Unlock()
		return false
	}
	b.tickets[id] = t
	b.mu.Unlock()

	b.PublishEvent("ticket_update", t)
	return true
}

// Diagnosis returns the diagnosis of a ticket. found is false for
// unknown tickets; tickets still being worked on return a processing
// placeholder.
func (b *Backend) Diagnosis(id string) (d models.Diagnosis, found bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.tickets[id]; !ok {
		return models.Diagnosis{}, false
	}
	if d, ok := b.diagnoses[id]; ok {
		return d, true
	}
	return models.Diagnosis{
		Status:  models.DiagnosisProcessing,
		Message: "Diagnosis not yet available.",
	}, true
}

// Decide records an operator decision and applies its status.
func (b *Backend) Decide(id string, req models.DecisionRequest) (models.DecisionResult, error) {
	if _, err := uuid.Parse(req.ApproverID); err != nil {
		return models.DecisionResult{}, errors.InvalidInput("approver_id", "must be a UUID")
	}

	b.mu.Lock()
	t, ok := b.tickets[id]
	if !ok {
		b.mu.Unlock()
		return models.DecisionResult{}, errors.New(errors.ErrCodeNotFound, "unknown ticket "+id)
	}
	b.decisions[id] = req
	t.Status = req.ResultingStatus()
	b.tickets[id] = t
	b.mu.Unlock()

	b.PublishEvent("ticket_update", t)
	return models.DecisionResult{Status: "processed", DecisionID: id, Approved: req.Approved}, nil
}

// Decision returns the recorded decision of a ticket.
func (b *Backend) Decision(id string) (models.DecisionRequest, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.decisions[id]
	return d, ok
}

// Metrics derives the live counters from the ticket statuses.
func (b *Backend) Metrics() models.Metrics {
	b.mu.Lock()
	counts := make(map[models.Status]int)
	for _, t := range b.tickets {
		counts[t.Status]++
	}
	jitter := b.rng.Float64()*6 - 3
	latency := 650 + b.rng.Intn(250)
	total := len(b.tickets)
	b.mu.Unlock()

	queue := counts[models.StatusOpen] + counts[models.StatusAnalyzing] + counts[models.StatusDiagnosed]
	agents := 0
	if queue > 0 {
		agents = 1
	}
	if queue > 2 {
		agents = 2
	}
	awaiting := counts[models.StatusDiagnosed]
	if awaiting > 0 {
		agents = 3
	}
	activity := math.Max(30, math.Min(math.Min(30+float64(queue)*6, 95)+jitter, 99))

	return models.Metrics{
		QueueDepth:            queue,
		AgentsActive:          agents,
		AwaitingApproval:      awaiting,
		TicketsPerMinute:      math.Min(float64(queue*2), 25),
		LLMLatencyMS:          float64(latency + queue*50),
		NeuralActivityPercent: math.Round(activity*10) / 10,
		TotalTickets:          total,
		ResolvedCount:         counts[models.StatusResolved],
		OpenCount:             counts[models.StatusOpen],
		AnalyzingCount:        counts[models.StatusAnalyzing],
		AwaitingApprovalCount: awaiting,
		Timestamp:             float64(b.now().UnixNano()) / 1e9,
	}
}

// PublishEvent sends a tagged event carrying a ticket.
func (b *Backend) PublishEvent(typ string, t models.Ticket) {
	data, err := json.Marshal(struct {
		Type    string        `json:"type"`
		Payload models.Ticket `json:"payload"`
	}{typ, t})
	if err != nil {
		return
	}
	b.Publish(data)
}

// Publish sends a raw message to every subscriber. Slow subscribers miss
// messages rather than stall the backend.
func (b *Backend) Publish(data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- data:
		default:
		}
	}
}

// Subscribe registers a stream subscriber.
func (b *Backend) Subscribe() chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 100)
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. It is safe to
// call after DropSubscribers.
func (b *Backend) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Subscribers returns the number of connected stream clients.
func (b *Backend) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// DropSubscribers closes every stream connection.
func (b *Backend) DropSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// SetRefuseStreams makes the stream endpoints answer 503.
func (b *Backend) SetRefuseStreams(refuse bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refuseStreams = refuse
}

func (b *Backend) streamsRefused() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.refuseStreams
}

// SetTicketsStatus forces GET /tickets to answer with status code. Zero
// restores normal answers.
func (b *Backend) SetTicketsStatus(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticketsStatus = code
}

func (b *Backend) forcedTicketsStatus() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ticketsStatus
}

var keywordClasses = []struct {
	class    models.Classification
	keywords []string
}{
	{models.ClassWebhookFail, []string{"webhook", "callback", "signature"}},
	{models.ClassCheckoutBreak, []string{"checkout", "cart", "payment page"}},
	{models.ClassConfigError, []string{"config", "setting", "api key", "environment"}},
	{models.ClassAPIError, []string{"500", "api", "timeout", "error"}},
	{models.ClassDocsConfusion, []string{"docs", "documentation", "how do i", "example"}},
}

func classify(text string) (models.Classification, float64) {
	lower := strings.ToLower(text)
	for _, kc := range keywordClasses {
		for _, kw := range kc.keywords {
			if strings.Contains(lower, kw) {
				return kc.class, 85 + float64(len(kw)%10)
			}
		}
	}
	return models.ClassUnknown, 40
}

func merchantName(id string) string {
	if id == "" {
		return "Unknown merchant"
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("Merchant %s", short)
}

var rootCauses = map[models.Classification][]string{
	models.ClassAPIError:      {"Rate limit exceeded on /v1/charges", "Deprecated API version in use"},
	models.ClassConfigError:   {"Live key used in test mode", "Missing webhook secret in environment"},
	models.ClassWebhookFail:   {"Signing secret rotated without redeploy", "Endpoint returns 301 redirect"},
	models.ClassCheckoutBreak: {"Checkout session expired before redirect", "Currency mismatch on price object"},
	models.ClassDocsConfusion: {"Outdated snippet in migration guide", "Ambiguous idempotency key guidance"},
	models.ClassUnknown:       {"Insufficient signal to determine root cause"},
}

func diagnose(t models.Ticket) models.Diagnosis {
	causes := rootCauses[models.ParseClassification(string(t.Classification))]
	hs := make([]models.Hypothesis, 0, len(causes))
	for i, c := range causes {
		hs = append(hs, models.Hypothesis{
			ID:          fmt.Sprintf("h%d", i+1),
			Description: c,
			Confidence:  0.9 - 0.25*float64(i),
			Category:    string(t.Classification),
			Evidence:    []string{"ticket text: " + truncate(t.RawText, 60)},
		})
	}
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].Confidence > hs[j].Confidence })

	risk := "low"
	if t.Priority >= 7 {
		risk = "high"
	} else if t.Priority >= 4 {
		risk = "medium"
	}
	d := models.Diagnosis{
		TicketID:          t.ID,
		Classification:    t.Classification,
		Confidence:        models.NormalizeConfidence(t.Confidence),
		Hypotheses:        hs,
		RiskLevel:         risk,
		RecommendedAction: "Apply remediation for: " + causes[0],
		RootCause:         causes[0],
	}
	for _, h := range hs {
		d.Evidence = append(d.Evidence, h.Evidence...)
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
