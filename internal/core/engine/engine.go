// Package engine owns the store and runs the producers that feed it.
package engine

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/internal/clock"
	"github.com/grovetools/hermes/internal/core/poll"
	"github.com/grovetools/hermes/internal/core/store"
	"github.com/grovetools/hermes/internal/core/stream"
	"github.com/grovetools/hermes/logging"
	"github.com/grovetools/hermes/pkg/api"
	"github.com/grovetools/hermes/pkg/diagnosis"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/sirupsen/logrus"
)

// Options configures an Engine.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8002/api/v1.
	BaseURL string
	// StreamURL overrides the push endpoint. Defaults to BaseURL + /stream.
	StreamURL string
	// OperatorID is recorded as approver on decisions. A random UUID is
	// generated when empty.
	OperatorID string

	// NoStream runs on polling alone.
	NoStream bool
	// NoMetrics skips the metrics collector.
	NoMetrics bool

	// Policy overrides the reconnect schedule.
	Policy stream.Policy

	Clock      clock.Clock
	Transport  stream.Transport
	HTTPClient *http.Client
	Logger     *logrus.Entry
}

// Engine wires one store to the stream consumer, the pollers and the
// diagnosis cache. The producers never see each other; they meet only in
// the store.
type Engine struct {
	store      *store.Store
	client     *api.Client
	consumer   *stream.Consumer
	pollers    []*poll.Poller
	diagnoses  *diagnosis.Cache
	operatorID string
	logger     *logrus.Entry

	mu      sync.Mutex
	ctx     context.Context
	running bool
}

// New builds an engine. Nothing runs until Start.
func New(opts Options) (*Engine, error) {
	if opts.BaseURL == "" {
		return nil, errors.InvalidInput("base_url", "must not be empty")
	}
	if opts.OperatorID == "" {
		opts.OperatorID = uuid.NewString()
	} else if _, err := uuid.Parse(opts.OperatorID); err != nil {
		return nil, errors.InvalidInput("operator_id", err.Error())
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	// A caller-supplied logger is shared with the producers; otherwise
	// each gets its own component logger.
	var shared *logrus.Entry
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("engine")
	} else {
		shared = opts.Logger
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if opts.StreamURL == "" {
		opts.StreamURL = base + "/stream"
	}

	var clientOpts []api.Option
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(opts.HTTPClient))
	}
	client := api.New(base, clientOpts...)

	st := store.New()
	e := &Engine{
		store:      st,
		client:     client,
		operatorID: opts.OperatorID,
		logger:     opts.Logger,
		diagnoses:  diagnosis.New(client, diagnosis.WithClock(opts.Clock), diagnosis.WithLogger(shared)),
	}

	if !opts.NoStream {
		e.consumer = stream.New(st, stream.Options{
			URL:       opts.StreamURL,
			Transport: opts.Transport,
			Policy:    opts.Policy,
			Clock:     opts.Clock,
			Logger:    shared,
		})
	}

	e.Register(poll.NewPoller(poll.NewTicketCollector(client, st), opts.Clock, shared))
	if !opts.NoMetrics {
		e.Register(poll.NewPoller(poll.NewMetricsCollector(client, st), opts.Clock, shared))
	}
	return e, nil
}

// Register adds a poller. Pollers registered after Start are started
// on the next Start.
func (e *Engine) Register(p *poll.Poller) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pollers = append(e.pollers, p)
}

// Start connects the stream and starts every poller.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.ctx = ctx

	e.logger.WithFields(logrus.Fields{
		"base_url": e.client.BaseURL(),
		"operator": e.operatorID,
	}).Info("Starting sync engine")
	if e.consumer != nil {
		e.consumer.Connect(ctx)
	}
	for _, p := range e.pollers {
		p.Start(ctx)
	}
}

// Stop disconnects the stream and stops the pollers. The store is not
// mutated by any producer after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false

	if e.consumer != nil {
		e.consumer.Disconnect()
	}
	for _, p := range e.pollers {
		p.Stop()
	}
	e.logger.Info("Sync engine stopped")
}

// Run starts the engine and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.Start(ctx)
	<-ctx.Done()
	e.Stop()
	return nil
}

// Reconnect restarts the push connection with a fresh retry budget.
func (e *Engine) Reconnect() {
	e.mu.Lock()
	ctx, running := e.ctx, e.running
	e.mu.Unlock()
	if e.consumer == nil || !running {
		return
	}
	e.consumer.Reconnect(ctx)
}

// Store returns the engine's state store.
func (e *Engine) Store() *store.Store { return e.store }

// OperatorID returns the approver id used for decisions.
func (e *Engine) OperatorID() string { return e.operatorID }

// Diagnosis returns the (possibly cached) diagnosis of a ticket.
func (e *Engine) Diagnosis(ctx context.Context, ticketID string) (*models.Diagnosis, error) {
	return e.diagnoses.Get(ctx, ticketID)
}

// Decide sends an operator decision. On success the ticket is marked
// resolved (approved) or escalated (rejected) in the store and its cached
// diagnosis is dropped. On failure the store is left untouched.
func (e *Engine) Decide(ctx context.Context, ticketID string, approved bool, justification string) (*models.DecisionResult, error) {
	req := models.DecisionRequest{
		Approved:      approved,
		ApproverID:    e.operatorID,
		Justification: justification,
	}
	res, err := e.client.Decide(ctx, ticketID, req)
	if err != nil {
		return nil, err
	}

	if t, ok := e.store.Ticket(ticketID); ok {
		t.Status = req.ResultingStatus()
		e.store.UpsertTicket(t)
	}
	e.diagnoses.Invalidate(ticketID)

	e.logger.WithFields(logrus.Fields{
		"ticket":   ticketID,
		"approved": approved,
		"decision": res.DecisionID,
	}).Info("Decision recorded")
	return res, nil
}
