// Package models defines the ticket triage data shared by the sync core,
// the HTTP client and the mock backend.
package models

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Classification is the triage category assigned to a ticket.
type Classification string

const (
	ClassAPIError      Classification = "API_ERROR"
	ClassConfigError   Classification = "CONFIG_ERROR"
	ClassWebhookFail   Classification = "WEBHOOK_FAIL"
	ClassCheckoutBreak Classification = "CHECKOUT_BREAK"
	ClassDocsConfusion Classification = "DOCS_CONFUSION"
	ClassUnknown       Classification = "UNKNOWN"
)

var knownClassifications = map[Classification]struct{}{
	ClassAPIError:      {},
	ClassConfigError:   {},
	ClassWebhookFail:   {},
	ClassCheckoutBreak: {},
	ClassDocsConfusion: {},
	ClassUnknown:       {},
}

// ParseClassification maps any unrecognised or empty value to ClassUnknown.
func ParseClassification(s string) Classification {
	c := Classification(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownClassifications[c]; ok {
		return c
	}
	return ClassUnknown
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Classification) UnmarshalText(text []byte) error {
	*c = ParseClassification(string(text))
	return nil
}

// Status is the lifecycle position of a ticket. Transitions are owned by
// the backend and are not validated here.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAnalyzing Status = "analyzing"
	StatusDiagnosed Status = "diagnosed"
	StatusResolved  Status = "resolved"
	StatusEscalated Status = "escalated"
)

// Ticket is a support ticket as delivered by the stream and the poll
// endpoint. Every update replaces the whole record.
type Ticket struct {
	ID             string         `json:"id"`
	MerchantID     string         `json:"merchantId,omitempty"`
	MerchantName   string         `json:"merchantName,omitempty"`
	MerchantAvatar string         `json:"merchantAvatar,omitempty"`
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Status         Status         `json:"status"`
	Priority       int            `json:"priority"`
	RawText        string         `json:"rawText,omitempty"`
	CreatedAt      string         `json:"createdAt,omitempty"`
	Hypotheses     []Hypothesis   `json:"hypotheses,omitempty"`
}

// Priority bounds. Zero means the producer sent none.
const (
	MinPriority = 1
	MaxPriority = 10
)

// ticketWire mirrors Ticket with the fields loose producers disagree on.
type ticketWire struct {
	ID             looseString    `json:"id"`
	MerchantID     looseString    `json:"merchantId"`
	MerchantName   string         `json:"merchantName"`
	MerchantAvatar string         `json:"merchantAvatar"`
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Status         Status         `json:"status"`
	Priority       looseInt       `json:"priority"`
	RawText        string         `json:"rawText"`
	CreatedAt      string         `json:"createdAt"`
	Hypotheses     []Hypothesis   `json:"hypotheses"`
}

// UnmarshalJSON accepts numeric ids and numeric or quoted priorities.
func (t *Ticket) UnmarshalJSON(data []byte) error {
	var w ticketWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Ticket{
		ID:             string(w.ID),
		MerchantID:     string(w.MerchantID),
		MerchantName:   w.MerchantName,
		MerchantAvatar: w.MerchantAvatar,
		Classification: w.Classification,
		Confidence:     w.Confidence,
		Status:         w.Status,
		Priority:       int(w.Priority),
		RawText:        w.RawText,
		CreatedAt:      w.CreatedAt,
		Hypotheses:     w.Hypotheses,
	}
	return nil
}

// looseString decodes a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = looseString(data)
	return nil
}

// looseInt decodes a JSON number or a quoted number, rounding fractions.
type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	data = bytes.Trim(data, `"`)
	if len(data) == 0 {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %s", data)
	}
	*n = looseInt(math.Round(v))
	return nil
}

// ClampPriority keeps a set priority within [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	switch {
	case p == 0:
		return 0
	case p < MinPriority:
		return MinPriority
	case p > MaxPriority:
		return MaxPriority
	}
	return p
}

// Normalized returns a copy with confidence scaled into [0,1], priority
// clamped and an unset classification reported as UNKNOWN.
func (t Ticket) Normalized() Ticket {
	t.Confidence = NormalizeConfidence(t.Confidence)
	t.Priority = ClampPriority(t.Priority)
	t.Classification = ParseClassification(string(t.Classification))
	if len(t.Hypotheses) > 0 {
		hs := make([]Hypothesis, len(t.Hypotheses))
		for i, h := range t.Hypotheses {
			h.Confidence = NormalizeConfidence(h.Confidence)
			hs[i] = h
		}
		t.Hypotheses = hs
	}
	return t
}

// NormalizeConfidence accepts either a fraction or a percentage.
// Values at or below 1 are kept; larger values are divided by 100.
// The result is clamped into [0,1].
func NormalizeConfidence(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}

// NormalizeAll applies Normalized to every ticket.
func NormalizeAll(ts []Ticket) []Ticket {
	out := make([]Ticket, len(ts))
	for i, t := range ts {
		out[i] = t.Normalized()
	}
	return out
}
