package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/internal/clock"
	"github.com/grovetools/hermes/internal/core/poll"
	"github.com/grovetools/hermes/internal/core/store"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/grovetools/hermes/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 5 * time.Second

type harness struct {
	backend *testutil.MockBackend
	clock   *clock.FakeClock
	engine  *Engine

	mu      sync.Mutex
	changes []store.Change
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := testutil.StartMockBackend(t)

	h := &harness{backend: b, clock: clock.Fake(time.Unix(0, 0))}
	e, err := New(Options{
		BaseURL:   b.BaseURL(),
		NoMetrics: true,
		Clock:     h.clock,
		Logger:    testutil.QuietLogger(),
	})
	require.NoError(t, err)
	h.engine = e
	e.Store().Subscribe(func(s store.Snapshot) {
		h.mu.Lock()
		h.changes = append(h.changes, s.Change)
		h.mu.Unlock()
	})

	t.Cleanup(e.Stop)
	return h
}

func (h *harness) count(c store.Change) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, got := range h.changes {
		if got == c {
			n++
		}
	}
	return n
}

// start runs the engine and waits for the first poll and the stream.
func (h *harness) start(t *testing.T) {
	t.Helper()
	h.engine.Start(context.Background())
	require.Eventually(t, func() bool {
		return h.count(store.ChangeTicketsReplaced) >= 1
	}, waitFor, 5*time.Millisecond, "initial poll")
	require.Eventually(t, func() bool {
		return h.engine.Store().Connection().State == models.Connected && h.backend.Subscribers() == 1
	}, waitFor, 5*time.Millisecond, "stream connected")
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	_, err = New(Options{BaseURL: "http://backend/api/v1", OperatorID: "not-a-uuid"})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	e, err := New(Options{BaseURL: "http://backend/api/v1", Logger: testutil.QuietLogger()})
	require.NoError(t, err)
	_, err = uuid.Parse(e.OperatorID())
	assert.NoError(t, err, "generated operator id is a UUID")
}

func TestStreamThenPollConverges(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	st := h.engine.Store()

	h.backend.Publish([]byte(`{"type":"new_ticket","payload":{"id":"T1","confidence":87,"status":"open"}}`))
	require.Eventually(t, func() bool {
		tk, ok := st.Ticket("T1")
		return ok && tk.Confidence == 0.87
	}, waitFor, 5*time.Millisecond)

	h.backend.PutTicket(models.Ticket{ID: "T1", Confidence: 0.9, Status: models.StatusOpen})
	h.clock.WaitForTimers(1)
	h.clock.Advance(poll.TicketInterval)

	require.Eventually(t, func() bool {
		ts := st.Tickets()
		return len(ts) == 1 && ts[0].ID == "T1" && ts[0].Confidence == 0.9
	}, waitFor, 5*time.Millisecond)
}

func TestMalformedStreamMessageIsDropped(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.backend.Publish([]byte(`not json at all`))
	h.backend.Publish([]byte(`{"type":"heartbeat"}`))
	h.backend.Publish([]byte(`{"type":"ticket_update","payload":{"id":"T3","confidence":0.5}}`))

	require.Eventually(t, func() bool {
		_, ok := h.engine.Store().Ticket("T3")
		return ok
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, 1, h.count(store.ChangeTicketUpserted), "only the valid event mutates the store")
	assert.Equal(t, models.Connected, h.engine.Store().Connection().State)
}

func TestPollingSurvivesStreamExhaustion(t *testing.T) {
	h := newHarness(t)
	h.backend.SetRefuseStreams(true)
	st := h.engine.Store()

	h.engine.Start(context.Background())
	for i := 0; i < 5; i++ {
		// The ticket ticker plus the reconnect timer.
		require.Eventually(t, func() bool { return h.clock.PendingCount() >= 2 }, waitFor, time.Millisecond)
		conn := st.Connection()
		require.Equal(t, models.BackingOff, conn.State)
		h.clock.Advance(conn.RetryIn)
	}
	require.Eventually(t, func() bool { return st.Connection().Exhausted }, waitFor, 5*time.Millisecond)
	assert.Equal(t, models.Disconnected, st.Connection().State)
	assert.Equal(t, 0, h.backend.Subscribers())

	h.backend.PutTicket(models.Ticket{ID: "T2", Confidence: 0.4})
	require.Eventually(t, func() bool {
		h.clock.Advance(poll.TicketInterval)
		_, ok := st.Ticket("T2")
		return ok
	}, waitFor, 20*time.Millisecond)
}

func TestReconnectRestartsStream(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	st := h.engine.Store()

	h.backend.DropSubscribers()
	require.Eventually(t, func() bool { return st.Connection().State == models.BackingOff }, waitFor, time.Millisecond)

	h.engine.Reconnect()
	require.Eventually(t, func() bool {
		return st.Connection().State == models.Connected && h.backend.Subscribers() == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, 0, st.Connection().Attempt)
}

func TestDecideUpdatesStoreAndDropsDiagnosis(t *testing.T) {
	h := newHarness(t)
	h.backend.Seed()
	h.start(t)
	st := h.engine.Store()

	tickets := h.backend.Tickets()
	var id string
	for _, tk := range tickets {
		if tk.Status == models.StatusDiagnosed {
			id = tk.ID
		}
	}
	require.NotEmpty(t, id)
	_, ok := st.Ticket(id)
	require.True(t, ok)

	d, err := h.engine.Diagnosis(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, d.Pending())
	_, cached := h.engine.diagnoses.Peek(id)
	require.True(t, cached)

	res, err := h.engine.Decide(context.Background(), id, false, "needs a human")
	require.NoError(t, err)
	assert.False(t, res.Approved)

	tk, ok := st.Ticket(id)
	require.True(t, ok)
	assert.Equal(t, models.StatusEscalated, tk.Status)
	_, cached = h.engine.diagnoses.Peek(id)
	assert.False(t, cached)

	rec, ok := h.backend.Decision(id)
	require.True(t, ok)
	assert.Equal(t, h.engine.OperatorID(), rec.ApproverID)
	assert.Equal(t, "needs a human", rec.Justification)
}

func TestDecideFailureLeavesStore(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	before := h.count(store.ChangeTicketUpserted)

	_, err := h.engine.Decide(context.Background(), "missing", true, "")
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
	assert.Equal(t, before, h.count(store.ChangeTicketUpserted))
}

func TestStopHaltsProducers(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.engine.Stop()

	assert.Equal(t, models.Disconnected, h.engine.Store().Connection().State)
	before := len(h.engine.Store().Tickets())

	h.backend.PutTicket(models.Ticket{ID: "late", Confidence: 0.3})
	h.clock.Advance(time.Minute)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, h.engine.Store().Tickets(), before)
}
