package poll

import (
	"context"
	"time"

	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/pkg/models"
)

// Default intervals of the built-in collectors.
const (
	TicketInterval  = 5 * time.Second
	MetricsInterval = 3 * time.Second
)

// TicketSource lists tickets. *api.Client satisfies it.
type TicketSource interface {
	ListTickets(ctx context.Context) ([]models.Ticket, error)
}

// TicketSink accepts a full ticket table.
type TicketSink interface {
	ReplaceAll([]models.Ticket)
}

// TicketCollector replaces the store's tickets with the backend's list.
type TicketCollector struct {
	source   TicketSource
	sink     TicketSink
	interval time.Duration
}

// NewTicketCollector creates a TicketCollector polling every 5s.
func NewTicketCollector(source TicketSource, sink TicketSink) *TicketCollector {
	return &TicketCollector{source: source, sink: sink, interval: TicketInterval}
}

func (c *TicketCollector) Name() string            { return "tickets" }
func (c *TicketCollector) Interval() time.Duration { return c.interval }

// Fetch lists tickets and returns a ReplaceAll of the normalized list.
func (c *TicketCollector) Fetch(ctx context.Context) (func(), error) {
	tickets, err := c.source.ListTickets(ctx)
	if err != nil {
		return nil, err
	}
	normalized := models.NormalizeAll(tickets)
	return func() { c.sink.ReplaceAll(normalized) }, nil
}

// MetricsSource fetches metrics. *api.Client satisfies it.
type MetricsSource interface {
	GetMetrics(ctx context.Context) (models.Metrics, error)
}

// MetricsSink receives the agent panel fields.
type MetricsSink interface {
	SetMetrics(models.Metrics)
	SetQueueDepth(int)
	SetAgentStates(map[models.Agent]models.AgentStatus)
	SetSystemHealth(float64)
}

// MetricsCollector mirrors the metrics endpoint into the agent panel.
type MetricsCollector struct {
	source   MetricsSource
	sink     MetricsSink
	interval time.Duration
}

// NewMetricsCollector creates a MetricsCollector polling every 3s.
func NewMetricsCollector(source MetricsSource, sink MetricsSink) *MetricsCollector {
	return &MetricsCollector{source: source, sink: sink, interval: MetricsInterval}
}

func (c *MetricsCollector) Name() string            { return "metrics" }
func (c *MetricsCollector) Interval() time.Duration { return c.interval }

// Fetch reads the counters. A sample carrying an error field counts as a
// failed cycle.
func (c *MetricsCollector) Fetch(ctx context.Context) (func(), error) {
	m, err := c.source.GetMetrics(ctx)
	if err != nil {
		return nil, err
	}
	if m.Error != "" {
		return nil, errors.New(errors.ErrCodeInternal, "backend metrics error: "+m.Error)
	}
	return func() {
		c.sink.SetMetrics(m)
		c.sink.SetQueueDepth(m.QueueDepth)
		c.sink.SetAgentStates(m.AgentActivity())
		c.sink.SetSystemHealth(m.Health())
	}, nil
}
