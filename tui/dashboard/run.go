package dashboard

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/hermes/internal/core/store"
	"github.com/grovetools/hermes/logging"
	"github.com/grovetools/hermes/tui"
)

// Run shows the view full-screen until the user quits. Log output to
// stderr is suppressed while the view owns the terminal.
func Run(st *store.Store, reconnect func()) error {
	tui.InitializeTUI()
	logging.SetInteractive(true)
	defer logging.SetInteractive(false)

	updates, stop := st.Updates(64)
	defer stop()

	p := tea.NewProgram(New(st, updates, reconnect), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running dashboard: %w", err)
	}
	return nil
}
