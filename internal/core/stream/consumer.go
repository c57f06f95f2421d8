package stream

import (
	"context"
	"io"
	"sync"

	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/internal/clock"
	"github.com/grovetools/hermes/logging"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/sirupsen/logrus"
)

// Sink receives what the consumer learns. *store.Store satisfies it.
type Sink interface {
	UpsertTicket(models.Ticket)
	SetConnection(models.ConnectionStatus)
}

// Options configures a Consumer. Zero values select the defaults.
type Options struct {
	URL       string
	Transport Transport
	Policy    Policy
	Clock     clock.Clock
	Logger    *logrus.Entry
}

// Consumer owns one push connection at a time and reconnects with
// exponential backoff until the policy is exhausted.
//
//	disconnected -> connecting -> connected
//	connecting|connected -> backing_off -> connecting
//	backing_off (budget spent) -> disconnected, Exhausted
type Consumer struct {
	url       string
	transport Transport
	policy    Policy
	clock     clock.Clock
	logger    *logrus.Entry
	sink      Sink

	mu     sync.Mutex
	status models.ConnectionStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a disconnected consumer.
func New(sink Sink, opts Options) *Consumer {
	if opts.Transport == nil {
		opts.Transport = TransportFor(opts.URL)
	}
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("stream")
	}
	return &Consumer{
		url:       opts.URL,
		transport: opts.Transport,
		policy:    opts.Policy,
		clock:     opts.Clock,
		logger:    opts.Logger.WithField("url", opts.URL),
		sink:      sink,
	}
}

// Connect starts a session unless one is already running. After the
// reconnect budget is exhausted, Connect starts over with a fresh budget.
func (c *Consumer) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		select {
		case <-c.done:
		default:
			return
		}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	go func() {
		defer close(done)
		c.run(sessionCtx)
	}()
}

// Disconnect stops the session, cancels any pending backoff timer and
// waits for the session goroutine. The sink is not touched after
// Disconnect returns. It must not be called from inside the sink.
func (c *Consumer) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.publish(models.ConnectionStatus{State: models.Disconnected})
	c.logger.Info("Stream disconnected")
}

// Reconnect drops the current session and starts a new one.
func (c *Consumer) Reconnect(ctx context.Context) {
	c.Disconnect()
	c.Connect(ctx)
}

// Status returns the current connection status.
func (c *Consumer) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Done is closed when the current session ends, by exhaustion or
// Disconnect. It is nil when no session was started.
func (c *Consumer) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Consumer) run(ctx context.Context) {
	attempt := 0
	var lastErr error

	for {
		status := models.ConnectionStatus{State: models.Connecting, Attempt: attempt}
		if lastErr != nil {
			status.LastError = lastErr.Error()
		}
		c.publish(status)

		s, err := c.transport.Open(ctx, c.url)
		if ctx.Err() != nil {
			if s != nil {
				s.Close()
			}
			return
		}
		if err == nil {
			attempt = 0
			c.publish(models.ConnectionStatus{State: models.Connected})
			c.logger.Info("Stream connected")

			err = c.pump(ctx, s)
			s.Close()
			if ctx.Err() != nil {
				return
			}
		}
		lastErr = err

		if !c.policy.Allows(attempt) {
			c.publish(models.ConnectionStatus{
				State:     models.Disconnected,
				Attempt:   attempt,
				LastError: lastErr.Error(),
				Exhausted: true,
			})
			c.logger.WithError(errors.ReconnectExhausted(c.url, attempt, lastErr)).
				Warn("Giving up on stream; polling only")
			return
		}

		delay := c.policy.Delay(attempt)
		attempt++
		c.publish(models.ConnectionStatus{
			State:     models.BackingOff,
			Attempt:   attempt,
			LastError: lastErr.Error(),
			RetryIn:   delay,
		})
		c.logger.WithError(lastErr).WithFields(logrus.Fields{
			"attempt":  attempt,
			"retry_in": delay,
		}).Warn("Stream lost, reconnecting")

		timer := c.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// pump routes messages until the stream fails. Malformed messages are
// dropped without touching the sink.
func (c *Consumer) pump(ctx context.Context, s Stream) error {
	for {
		data, err := s.Recv()
		if err != nil {
			if err == io.EOF {
				return errors.Transport(c.url, io.ErrUnexpectedEOF)
			}
			return errors.Transport(c.url, err)
		}

		ev, err := Decode(data)
		if err != nil {
			c.logger.WithError(err).Warn("Dropping malformed stream message")
			continue
		}
		if !ev.HasTicket() {
			c.logger.WithField("type", ev.Type).Debug("Ignoring stream message")
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithFields(logrus.Fields{
			"kind":   ev.Kind.String(),
			"ticket": ev.Ticket.ID,
		}).Debug("Applying stream event")
		c.sink.UpsertTicket(ev.Ticket)
	}
}

func (c *Consumer) publish(status models.ConnectionStatus) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
	c.sink.SetConnection(status)
}
