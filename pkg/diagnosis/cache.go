// Package diagnosis caches per-ticket diagnoses fetched from the backend.
package diagnosis

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/internal/clock"
	"github.com/grovetools/hermes/logging"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long a diagnosis is served without refetching.
	DefaultTTL = 5 * time.Minute
	// DefaultRetryDelay is the pause before the single retry of a failed fetch.
	DefaultRetryDelay = time.Second
)

// Fetcher loads one diagnosis. *api.Client satisfies it.
type Fetcher interface {
	GetDiagnosis(ctx context.Context, ticketID string) (*models.Diagnosis, error)
}

type entry struct {
	diagnosis *models.Diagnosis
	fetchedAt time.Time
}

// Cache serves diagnoses keyed by ticket id. Concurrent misses for the
// same id share one request. Pending ("processing") diagnoses are
// returned but never cached.
type Cache struct {
	fetcher    Fetcher
	clock      clock.Clock
	ttl        time.Duration
	retryDelay time.Duration
	logger     *logrus.Entry

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]uint64
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock injects the time source used for freshness and retries.
func WithClock(c clock.Clock) Option { return func(cache *Cache) { cache.clock = c } }

func WithTTL(d time.Duration) Option { return func(cache *Cache) { cache.ttl = d } }

func WithRetryDelay(d time.Duration) Option { return func(cache *Cache) { cache.retryDelay = d } }

func WithLogger(l *logrus.Entry) Option { return func(cache *Cache) { cache.logger = l } }

// New creates an empty cache in front of f.
func New(f Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher:    f,
		clock:      clock.Real(),
		ttl:        DefaultTTL,
		retryDelay: DefaultRetryDelay,
		entries:    make(map[string]entry),
		gens:       make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewLogger("diagnosis")
	}
	return c
}

// Get returns the diagnosis of ticketID, from cache while fresh.
func (c *Cache) Get(ctx context.Context, ticketID string) (*models.Diagnosis, error) {
	if d, ok := c.Peek(ticketID); ok {
		return d, nil
	}

	c.mu.Lock()
	gen := c.gens[ticketID]
	c.mu.Unlock()

	// Joined callers share one fetch, so it must outlive any one caller.
	// The client's own timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(ticketID, func() (interface{}, error) {
		return c.fetch(shared, ticketID, gen)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.(*models.Diagnosis)), nil
	}
}

// Peek returns a fresh cached diagnosis without fetching.
func (c *Cache) Peek(ticketID string) (*models.Diagnosis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[ticketID]
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(e.fetchedAt) >= c.ttl {
		delete(c.entries, ticketID)
		return nil, false
	}
	return clone(e.diagnosis), true
}

// Invalidate drops the cached diagnosis of ticketID. A fetch already in
// flight will not repopulate the entry.
func (c *Cache) Invalidate(ticketID string) {
	c.mu.Lock()
	delete(c.entries, ticketID)
	c.gens[ticketID]++
	c.mu.Unlock()
	c.group.Forget(ticketID)
}

// Len returns the number of cached entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fetch(ctx context.Context, ticketID string, gen uint64) (*models.Diagnosis, error) {
	log := c.logger.WithField("ticket", ticketID)

	d, err := c.fetcher.GetDiagnosis(ctx, ticketID)
	if err != nil && !retryable(err) {
		return nil, err
	}
	if err != nil {
		log.WithError(err).Debug("Diagnosis fetch failed, retrying once")
		timer := c.clock.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		d, err = c.fetcher.GetDiagnosis(ctx, ticketID)
		if err != nil {
			log.WithError(err).Warn("Diagnosis fetch failed")
			return nil, err
		}
	}

	if d == nil {
		return nil, errors.New(errors.ErrCodeDecode, "empty diagnosis response").WithDetail("ticket", ticketID)
	}
	if d.Pending() {
		return d, nil
	}

	c.mu.Lock()
	if c.gens[ticketID] == gen {
		c.entries[ticketID] = entry{diagnosis: d, fetchedAt: c.clock.Now()}
	}
	c.mu.Unlock()
	return d, nil
}

// retryable excludes answers that a second identical request cannot change.
func retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeInvalidInput:
		return false
	}
	return true
}

func clone(d *models.Diagnosis) *models.Diagnosis {
	if d == nil {
		return nil
	}
	out := *d
	if d.Hypotheses != nil {
		out.Hypotheses = make([]models.Hypothesis, len(d.Hypotheses))
		copy(out.Hypotheses, d.Hypotheses)
	}
	if d.Evidence != nil {
		out.Evidence = append([]string(nil), d.Evidence...)
	}
	return &out
}
