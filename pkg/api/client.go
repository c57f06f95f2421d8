// Package api is the HTTP client of the ticket backend.
package api

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/pkg/models"
)

// DefaultTimeout bounds every request issued by the client.
const DefaultTimeout = 10 * time.Second

// Client calls the backend REST API rooted at a base URL such as
// http://localhost:8002/api/v1.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout changes the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Root returns the service root, which is the base URL without its
// /api/v1 suffix. Health endpoints live there.
func (c *Client) Root() string {
	return strings.TrimSuffix(c.baseURL, "/api/v1")
}

// ListTickets fetches every ticket with confidence normalized. The
// backend may answer with a bare array or wrap it in {"data": [...]} or
// {"tickets": [...]}.
func (c *Client) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/tickets", nil, &raw); err != nil {
		return nil, err
	}
	tickets, err := decodeTicketList(raw)
	if err != nil {
		return nil, errors.Decode("ticket list", err)
	}
	return models.NormalizeAll(tickets), nil
}

func decodeTicketList(raw json.RawMessage) ([]models.Ticket, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tickets []models.Ticket
		if err := json.Unmarshal(trimmed, &tickets); err != nil {
			return nil, err
		}
		return tickets, nil
	}

	var wrapped struct {
		Data    *[]models.Ticket `json:"data"`
		Tickets *[]models.Ticket `json:"tickets"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Data != nil:
		return *wrapped.Data, nil
	case wrapped.Tickets != nil:
		return *wrapped.Tickets, nil
	}
	return nil, fmt.Errorf("response is neither an array nor a data/tickets envelope")
}

// TicketCreate is the body of a ticket submission.
type TicketCreate struct {
	MerchantID string `json:"merchant_id"`
	RawText    string `json:"raw_text"`
	Channel    string `json:"channel,omitempty"`
}

// CreateTicket submits a new ticket for triage.
func (c *Client) CreateTicket(ctx context.Context, req TicketCreate) (models.Ticket, error) {
	if strings.TrimSpace(req.RawText) == "" {
		return models.Ticket{}, errors.InvalidInput("raw_text", "must not be empty")
	}
	if req.Channel == "" {
		req.Channel = "api"
	}
	var t models.Ticket
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/tickets", req, &t); err != nil {
		return models.Ticket{}, err
	}
	return t.Normalized(), nil
}

// GetDiagnosis fetches the diagnosis of a ticket. A diagnosis that is
// still being produced comes back with Status "processing".
func (c *Client) GetDiagnosis(ctx context.Context, ticketID string) (*models.Diagnosis, error) {
	if ticketID == "" {
		return nil, errors.InvalidInput("ticket id", "must not be empty")
	}
	var d models.Diagnosis
	u := c.baseURL + "/tickets/" + url.PathEscape(ticketID) + "/diagnosis"
	if err := c.do(ctx, http.MethodGet, u, nil, &d); err != nil {
		return nil, err
	}
	if d.TicketID == "" && !d.Pending() {
		d.TicketID = ticketID
	}
	d.Confidence = models.NormalizeConfidence(d.Confidence)
	for i := range d.Hypotheses {
		d.Hypotheses[i].Confidence = models.NormalizeConfidence(d.Hypotheses[i].Confidence)
	}
	return &d, nil
}

// Decide records an operator decision on the action proposed for a ticket.
func (c *Client) Decide(ctx context.Context, ticketID string, req models.DecisionRequest) (*models.DecisionResult, error) {
	if ticketID == "" {
		return nil, errors.InvalidInput("ticket id", "must not be empty")
	}
	if req.ApproverID == "" {
		return nil, errors.InvalidInput("approver_id", "must not be empty")
	}
	var res models.DecisionResult
	u := c.baseURL + "/decisions/" + url.PathEscape(ticketID) + "/approve"
	if err := c.do(ctx, http.MethodPost, u, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetMetrics fetches the live counters.
func (c *Client) GetMetrics(ctx context.Context) (models.Metrics, error) {
	var m models.Metrics
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/metrics", nil, &m); err != nil {
		return models.Metrics{}, err
	}
	return m, nil
}

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status   string `json:"status"`
	Service  string `json:"service,omitempty"`
	Database string `json:"database,omitempty"`
}

// OK reports whether the service declared itself healthy.
func (h HealthStatus) OK() bool { return h.Status == "ok" }

// Live checks the liveness endpoint.
func (c *Client) Live(ctx context.Context) (HealthStatus, error) {
	var h HealthStatus
	err := c.do(ctx, http.MethodGet, c.Root()+"/health/live", nil, &h)
	return h, err
}

// Ready checks the readiness endpoint.
func (c *Client) Ready(ctx context.Context) (HealthStatus, error) {
	var h HealthStatus
	err := c.do(ctx, http.MethodGet, c.Root()+"/health/ready", nil, &h)
	return h, err
}

func (c *Client) do(ctx context.Context, method, u string, body, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to create request").WithDetail("url", u)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.Timeout(method+" "+u, c.timeout)
		}
		return errors.Transport(u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return errors.HTTPStatus(method, u, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.Timeout(method+" "+u, c.timeout)
		}
		return errors.Decode(method+" "+u, err)
	}
	return nil
}
