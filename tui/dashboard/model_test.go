package dashboard

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/hermes/internal/core/store"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func seeded() *store.Store {
	st := store.New()
	st.ReplaceAll([]models.Ticket{
		{ID: "T1", MerchantName: "Acme", Confidence: 0.9, Status: models.StatusOpen, RawText: "webhooks failing"},
		{ID: "T2", MerchantName: "Blue Finch", Confidence: 0.5, Status: models.StatusResolved},
		{ID: "T3", MerchantID: "m3", Confidence: 0.3, Status: models.StatusEscalated},
	})
	return st
}

func TestNavigationWritesSelection(t *testing.T) {
	st := seeded()
	m := New(st, nil, nil)

	m.Update(keyMsg("j"))
	assert.Equal(t, "T1", st.SelectedID())
	m.Update(keyMsg("j"))
	assert.Equal(t, "T2", st.SelectedID())
	m.Update(keyMsg("G"))
	assert.Equal(t, "T3", st.SelectedID())
	m.Update(keyMsg("j"))
	assert.Equal(t, "T3", st.SelectedID(), "stays on the last row")
	m.Update(keyMsg("k"))
	assert.Equal(t, "T2", st.SelectedID())
	m.Update(keyMsg("g"))
	assert.Equal(t, "T1", st.SelectedID())
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "", st.SelectedID())
}

func TestSnapshotsFlowIntoView(t *testing.T) {
	st := seeded()
	updates, stop := st.Updates(8)
	defer stop()
	m := New(st, updates, nil)

	cmd := m.Init()
	require.NotNil(t, cmd)
	st.UpsertTicket(models.Ticket{ID: "T4", MerchantName: "Lumen Labs", Confidence: 88, Status: models.StatusAnalyzing})

	msg := cmd()
	_, next := m.Update(msg)
	assert.NotNil(t, next, "keeps listening")
	view := m.View()
	assert.Contains(t, view, "Lumen Labs")
	assert.Contains(t, view, " 88%")
}

func TestConnectionIndicator(t *testing.T) {
	tests := []struct {
		status models.ConnectionStatus
		want   string
	}{
		{models.ConnectionStatus{State: models.Connected}, "live"},
		{models.ConnectionStatus{State: models.Connecting}, "connecting"},
		{models.ConnectionStatus{State: models.BackingOff, Attempt: 2, RetryIn: 3 * time.Second}, "attempt 2, in 3s"},
		{models.ConnectionStatus{State: models.Disconnected, Exhausted: true}, "polling only"},
		{models.ConnectionStatus{State: models.Disconnected}, "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Contains(t, ConnectionLabel(tt.status), tt.want)
		})
	}
}

func TestReconnectKey(t *testing.T) {
	var calls atomic.Int32
	m := New(seeded(), nil, func() { calls.Add(1) })
	m.Update(keyMsg("r"))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
}

func TestQuit(t *testing.T) {
	m := New(seeded(), nil, nil)
	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewShowsSelectedText(t *testing.T) {
	st := seeded()
	st.SelectTicket("T1")
	m := New(st, nil, nil)
	view := m.View()
	assert.Contains(t, view, "webhooks failing")
	assert.True(t, strings.Contains(view, "m3"), "falls back to merchant id")
}
