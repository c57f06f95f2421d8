// Package poll provides fixed-interval pull synchronizers that reconcile
// the store with the backend.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/hermes/internal/clock"
	"github.com/grovetools/hermes/logging"
	"github.com/sirupsen/logrus"
)

// RequestTimeout bounds a single poll request.
const RequestTimeout = 10 * time.Second

// Collector fetches one sample from the backend.
type Collector interface {
	// Name returns the collector's name for logging.
	Name() string

	// Interval is the period between cycles.
	Interval() time.Duration

	// Fetch performs the request and returns the store mutation to apply.
	// It must not touch the store itself.
	Fetch(ctx context.Context) (apply func(), err error)
}

// Poller runs a collector immediately and then on every interval.
// Cycles never overlap; a failed cycle is skipped and the next tick
// serves as the retry.
type Poller struct {
	collector Collector
	clock     clock.Clock
	logger    *logrus.Entry
	timeout   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped poller. A nil clock selects the real one.
func NewPoller(c Collector, clk clock.Clock, logger *logrus.Entry) *Poller {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewLogger("poll")
	}
	return &Poller{
		collector: c,
		clock:     clk,
		logger:    logger.WithField("collector", c.Name()),
		timeout:   RequestTimeout,
	}
}

// Start launches the polling goroutine. It is a no-op while running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	go func() {
		defer close(done)
		p.run(ctx)
	}()
}

// Stop cancels the pending interval and any in-flight request and waits
// for the goroutine. No store mutation happens after Stop returns, even
// if a response was already on its way.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context) {
	p.logger.Info("Starting collector")
	p.cycle(ctx)

	ticker := p.clock.NewTicker(p.collector.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	apply, err := p.collector.Fetch(reqCtx)
	cancel()

	// Teardown guard: a response that lands after Stop is discarded.
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.WithError(err).Warn("Poll failed; retrying next interval")
		return
	}
	if apply != nil {
		apply()
	}
}
