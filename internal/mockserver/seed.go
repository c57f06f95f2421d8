package mockserver

import (
	"context"
	"fmt"
	"time"

	"github.com/grovetools/hermes/pkg/models"
	"github.com/sirupsen/logrus"
)

// demoTickets are loaded by Seed. Confidence mixes fractions and
// percentages the way the production classifier does.
var demoTickets = []models.Ticket{
	{
		ID:             "7d2c1f4e-0b7a-4f57-9d63-1c5b2e8a9f01",
		MerchantID:     "test_merchant_001",
		MerchantName:   "Acme Outdoor",
		Classification: models.ClassWebhookFail,
		Confidence:     92,
		Status:         models.StatusDiagnosed,
		Priority:       8,
		RawText:        "Our order webhooks started failing signature verification after the migration.",
	},
	{
		ID:             "3a9e5b21-6c4d-4e8f-a1b2-7f3d9c0e5a12",
		MerchantID:     "test_merchant_002",
		MerchantName:   "Blue Finch Coffee",
		Classification: models.ClassCheckoutBreak,
		Confidence:     0.78,
		Status:         models.StatusAnalyzing,
		Priority:       9,
		RawText:        "Checkout page shows a blank screen for customers paying in EUR.",
	},
	{
		ID:             "c4f0a8d3-2e1b-4b6a-8c9d-5e7f1a2b3c23",
		MerchantID:     "test_merchant_003",
		MerchantName:   "Northwind Books",
		Classification: models.ClassDocsConfusion,
		Confidence:     64,
		Status:         models.StatusOpen,
		Priority:       3,
		RawText:        "The docs example for idempotency keys does not match the SDK.",
	},
	{
		ID:             "e1b2c3d4-5f6a-4b7c-8d9e-0f1a2b3c4d34",
		MerchantID:     "test_merchant_004",
		MerchantName:   "Lumen Labs",
		Classification: models.ClassAPIError,
		Confidence:     0.88,
		Status:         models.StatusResolved,
		Priority:       6,
		RawText:        "Seeing intermittent 500s from the charges API since this morning.",
	},
}

// Seed loads the demo tickets. Diagnosed tickets get their diagnosis.
func (b *Backend) Seed() {
	for i := len(demoTickets) - 1; i >= 0; i-- {
		t := demoTickets[i]
		t.CreatedAt = b.now().Add(-time.Duration(i+1) * 7 * time.Minute).UTC().Format(time.RFC3339)
		if t.Status == models.StatusDiagnosed || t.Status == models.StatusResolved {
			d := diagnose(t)
			t.Hypotheses = d.Hypotheses
			b.mu.Lock()
			b.diagnoses[t.ID] = d
			b.mu.Unlock()
		}
		b.PutTicket(t)
	}
}

var sampleTexts = []string{
	"Webhook deliveries to our endpoint time out after 30 seconds.",
	"Customers get a 500 error from the API when creating refunds.",
	"Which setting controls the statement descriptor? The config page is unclear.",
	"Cart total is wrong on the checkout page after applying a coupon.",
	"How do I rotate API keys without downtime? The documentation skips it.",
}

// Emitter periodically submits a new ticket and advances the oldest
// unfinished one, so a client sees both event kinds.
type Emitter struct {
	backend  *Backend
	interval time.Duration
	logger   *logrus.Entry
	n        int
}

// NewEmitter creates an emitter ticking every interval.
func NewEmitter(b *Backend, interval time.Duration, logger *logrus.Entry) *Emitter {
	return &Emitter{backend: b, interval: interval, logger: logger}
}

// Run emits until ctx is cancelled.
func (e *Emitter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick performs one emission step.
func (e *Emitter) Tick() {
	text := sampleTexts[e.n%len(sampleTexts)]
	merchant := fmt.Sprintf("test_merchant_%03d", 100+e.n)
	e.n++

	t := e.backend.CreateTicket(merchant, text, "mock")
	e.logger.WithField("ticket", t.ID).Debug("Emitted new ticket")

	tickets := e.backend.Tickets()
	for i := len(tickets) - 1; i >= 0; i-- {
		if tickets[i].ID == t.ID {
			continue
		}
		if e.backend.Advance(tickets[i].ID) {
			e.logger.WithField("ticket", tickets[i].ID).Debug("Advanced ticket")
			return
		}
	}
}
