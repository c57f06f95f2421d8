// Package dashboard is the read-only terminal view of the ticket store.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/hermes/internal/core/store"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/grovetools/hermes/tui/keymap"
	"github.com/grovetools/hermes/tui/theme"
)

// Store is the part of the store the view needs.
type Store interface {
	Snapshot() store.Snapshot
	SelectTicket(id string)
}

// snapshotMsg carries a store update into the program.
type snapshotMsg store.Snapshot

// Model renders tickets, the connection indicator and the agent panel.
type Model struct {
	store     Store
	updates   <-chan store.Snapshot
	reconnect func()

	snap   store.Snapshot
	keys   keymap.Base
	help   help.Model
	theme  *theme.Theme
	width  int
	height int
}

// New creates the view. updates is typically Store.Updates; reconnect
// may be nil when the stream is disabled.
func New(st Store, updates <-chan store.Snapshot, reconnect func()) *Model {
	return &Model{
		store:     st,
		updates:   updates,
		reconnect: reconnect,
		snap:      st.Snapshot(),
		keys:      keymap.NewBase(),
		help:      help.New(),
		theme:     theme.DefaultTheme,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m *Model) waitForSnapshot() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-m.updates
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = store.Snapshot(msg)
		return m, m.waitForSnapshot()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up):
			m.move(-1)
		case key.Matches(msg, m.keys.Down):
			m.move(1)
		case key.Matches(msg, m.keys.Top):
			m.selectIndex(0)
		case key.Matches(msg, m.keys.Bottom):
			m.selectIndex(len(m.snap.Tickets) - 1)
		case key.Matches(msg, m.keys.Clear):
			m.selectID("")
		case key.Matches(msg, m.keys.Reconnect):
			if m.reconnect != nil {
				go m.reconnect()
			}
		}
	}
	return m, nil
}

// cursor returns the index of the selected ticket, or -1.
func (m *Model) cursor() int {
	for i, t := range m.snap.Tickets {
		if t.ID == m.snap.SelectedID {
			return i
		}
	}
	return -1
}

func (m *Model) move(delta int) {
	i := m.cursor()
	if i < 0 {
		// Nothing selected yet: j starts at the top, k at the bottom.
		if delta > 0 {
			m.selectIndex(0)
		} else {
			m.selectIndex(len(m.snap.Tickets) - 1)
		}
		return
	}
	m.selectIndex(min(max(i+delta, 0), len(m.snap.Tickets)-1))
}

func (m *Model) selectIndex(i int) {
	if i < 0 || i >= len(m.snap.Tickets) {
		return
	}
	m.selectID(m.snap.Tickets[i].ID)
}

// selectID writes the selection to the store and shows it right away;
// the store's own snapshot follows.
func (m *Model) selectID(id string) {
	m.snap.SelectedID = id
	m.store.SelectTicket(id)
}

func (m *Model) View() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.Header.Render("HERMES"))
	b.WriteString("  ")
	b.WriteString(t.Connection(m.snap.Connection).Render(ConnectionLabel(m.snap.Connection)))
	b.WriteString("\n")
	b.WriteString(m.agentLine())
	b.WriteString("\n\n")

	if len(m.snap.Tickets) == 0 {
		b.WriteString(t.Muted.Render("  No tickets yet."))
		b.WriteString("\n")
	}
	rows := m.snap.Tickets
	if limit := m.height - 8; m.height > 0 && limit > 0 && len(rows) > limit {
		rows = visibleWindow(rows, m.cursor(), limit)
	}
	for _, tk := range rows {
		b.WriteString(m.row(tk))
		b.WriteString("\n")
	}

	if sel, ok := m.snap.Selected(); ok && sel.RawText != "" {
		b.WriteString("\n")
		b.WriteString(t.Italic.Render("  " + truncate(sel.RawText, max(m.width-4, 40))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) row(tk models.Ticket) string {
	t := m.theme
	marker := "  "
	if tk.ID == m.snap.SelectedID {
		marker = "> "
	}
	merchant := tk.MerchantName
	if merchant == "" {
		merchant = tk.MerchantID
	}
	line := fmt.Sprintf("%s%-8s  %-20s  %-16s  %3.0f%%  ",
		marker, truncate(tk.ID, 8), truncate(merchant, 20), tk.Classification, tk.Confidence*100)
	line += t.Status(tk.Status).Render(string(tk.Status))
	if tk.ID == m.snap.SelectedID {
		return t.SelectedRow.Render(line)
	}
	return line
}

func (m *Model) agentLine() string {
	a := m.snap.Agents
	parts := make([]string, 0, len(models.Agents)+2)
	for _, agent := range models.Agents {
		status := a.Agents[agent]
		if status == "" {
			status = models.AgentIdle
		}
		parts = append(parts, fmt.Sprintf("%s:%s", agent, status))
	}
	parts = append(parts,
		fmt.Sprintf("queue:%d", a.QueueDepth),
		fmt.Sprintf("health:%.0f%%", a.SystemHealth))
	return m.theme.Muted.Render(strings.Join(parts, "  "))
}

// ConnectionLabel describes the push connection for an operator.
func ConnectionLabel(c models.ConnectionStatus) string {
	switch {
	case c.State == models.Connected:
		return "● live"
	case c.Exhausted:
		return "○ polling only"
	case c.State == models.BackingOff:
		return fmt.Sprintf("◌ reconnecting (attempt %d, in %s)", c.Attempt, c.RetryIn)
	case c.State == models.Connecting:
		return "◌ connecting"
	default:
		return "○ disconnected"
	}
}

// visibleWindow returns at most n rows keeping the cursor in view.
func visibleWindow(rows []models.Ticket, cursor, n int) []models.Ticket {
	start := 0
	if cursor >= n {
		start = cursor - n + 1
	}
	return rows[start:min(start+n, len(rows))]
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
