package mockserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/internal/core/stream"
	"github.com/grovetools/hermes/pkg/api"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestServer(t *testing.T) (*Backend, *api.Client, *httptest.Server) {
	t.Helper()
	b := NewBackend()
	srv := httptest.NewServer(New(b, quietLogger()).Handler())
	t.Cleanup(func() {
		b.DropSubscribers()
		srv.Close()
	})
	return b, api.New(srv.URL + APIPrefix), srv
}

func TestServerListsSeededTickets(t *testing.T) {
	b, client, _ := newTestServer(t)
	b.Seed()

	tickets, err := client.ListTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, len(demoTickets))
	assert.Equal(t, demoTickets[0].ID, tickets[0].ID)
	for _, tk := range tickets {
		assert.True(t, tk.Confidence >= 0 && tk.Confidence <= 1, "confidence %v normalized", tk.Confidence)
	}
}

func TestServerForcedTicketsStatus(t *testing.T) {
	b, client, _ := newTestServer(t)
	b.SetTicketsStatus(http.StatusInternalServerError)

	_, err := client.ListTickets(context.Background())
	assert.Equal(t, errors.ErrCodeHTTPStatus, errors.GetCode(err))

	b.SetTicketsStatus(0)
	_, err = client.ListTickets(context.Background())
	assert.NoError(t, err)
}

func TestServerCreateAndDiagnose(t *testing.T) {
	b, client, _ := newTestServer(t)

	created, err := client.CreateTicket(context.Background(), api.TicketCreate{
		MerchantID: "test_merchant_042",
		RawText:    "Webhook signature check fails on every delivery",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClassWebhookFail, created.Classification)
	assert.Equal(t, models.StatusAnalyzing, created.Status)

	d, err := client.GetDiagnosis(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, d.Pending())

	require.True(t, b.Advance(created.ID))
	d, err = client.GetDiagnosis(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, d.Pending())
	assert.NotEmpty(t, d.Hypotheses)

	_, err = client.GetDiagnosis(context.Background(), "missing")
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestServerDecision(t *testing.T) {
	b, client, _ := newTestServer(t)
	b.Seed()
	id := demoTickets[0].ID
	approver := uuid.NewString()

	res, err := client.Decide(context.Background(), id, models.DecisionRequest{
		Approved:   true,
		ApproverID: approver,
	})
	require.NoError(t, err)
	assert.Equal(t, "processed", res.Status)

	tk, ok := b.Ticket(id)
	require.True(t, ok)
	assert.Equal(t, models.StatusResolved, tk.Status)
	rec, ok := b.Decision(id)
	require.True(t, ok)
	assert.Equal(t, approver, rec.ApproverID)

	_, err = client.Decide(context.Background(), "missing", models.DecisionRequest{ApproverID: approver})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestServerMetricsAndHealth(t *testing.T) {
	b, client, _ := newTestServer(t)
	b.Seed()

	m, err := client.GetMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.AwaitingApprovalCount)
	assert.NotZero(t, m.Timestamp)

	h, err := client.Live(context.Background())
	require.NoError(t, err)
	assert.True(t, h.OK())
	assert.Equal(t, "hermes-api", h.Service)

	h, err = client.Ready(context.Background())
	require.NoError(t, err)
	assert.True(t, h.OK())
}

func TestServerSSEDeliversEvents(t *testing.T) {
	b, _, srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := stream.NewSSETransport(nil).Open(ctx, srv.URL+APIPrefix+"/stream")
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
	b.CreateTicket("test_merchant_010", "checkout is broken", "")

	data, err := s.Recv()
	require.NoError(t, err)
	ev, err := stream.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, stream.TicketCreated, ev.Kind)
	assert.Equal(t, models.ClassCheckoutBreak, ev.Ticket.Classification)
}

func TestServerWebSocketDeliversEvents(t *testing.T) {
	b, _, srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	s, err := stream.NewWebSocketTransport().Open(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
	b.Publish([]byte(`{"id":"T9","confidence":0.5}`))

	data, err := s.Recv()
	require.NoError(t, err)
	ev, err := stream.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, stream.ImplicitTicket, ev.Kind)
	assert.Equal(t, "T9", ev.Ticket.ID)
}

func TestServerRefusesStreams(t *testing.T) {
	b, _, srv := newTestServer(t)
	b.SetRefuseStreams(true)

	_, err := stream.NewSSETransport(nil).Open(context.Background(), srv.URL+APIPrefix+"/stream")
	assert.Equal(t, errors.ErrCodeHTTPStatus, errors.GetCode(err))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, err = stream.NewWebSocketTransport().Open(context.Background(), url)
	assert.Equal(t, errors.ErrCodeHTTPStatus, errors.GetCode(err))
}

func TestEmitterTick(t *testing.T) {
	b := NewBackend()
	b.Seed()
	e := NewEmitter(b, time.Second, quietLogger())

	e.Tick()
	tickets := b.Tickets()
	require.Len(t, tickets, len(demoTickets)+1)
	assert.Equal(t, "test_merchant_100", tickets[0].MerchantID)

	// The oldest unfinished seeded ticket is the open one; it moves on.
	tk, ok := b.Ticket(demoTickets[2].ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusAnalyzing, tk.Status)
}
