package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/tui/theme"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot() *cobra.Command {
	root := NewStandardCommand("hermes", "Ticket sync")
	sub := &cobra.Command{
		Use:     "tickets",
		Short:   "List tickets",
		Example: "# all tickets\nhermes tickets --json",
		RunE:    func(*cobra.Command, []string) error { return nil },
	}
	sub.Flags().Duration("interval", 0, "Refresh interval")
	root.AddCommand(sub)
	return root
}

func TestGetOptions(t *testing.T) {
	root := newRoot()
	require.NoError(t, root.ParseFlags([]string{"-v", "--json", "--config", "x.yml", "--base-url", "http://h/api/v1"}))

	opts := GetOptions(root)
	assert.Equal(t, CommandOptions{
		ConfigFile: "x.yml",
		BaseURL:    "http://h/api/v1",
		Verbose:    true,
		JSONOutput: true,
	}, opts)
}

func TestLoadConfigFromFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hermes.yml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://backend:9000/api/v1\n"), 0o644))

	root := newRoot()
	require.NoError(t, root.ParseFlags([]string{"--config", path}))
	cfg, got, err := LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, "http://backend:9000/api/v1", cfg.BaseURL)
}

func TestLoadConfigBaseURLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hermes.yml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://backend:9000/api/v1\n"), 0o644))

	root := newRoot()
	require.NoError(t, root.ParseFlags([]string{"--config", path, "--base-url", "http://other:1/api/v1/"}))
	cfg, _, err := LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "http://other:1/api/v1", cfg.BaseURL)

	root = newRoot()
	require.NoError(t, root.ParseFlags([]string{"--config", path, "--base-url", "not a url"}))
	_, _, err = LoadConfig(root)
	assert.Equal(t, errors.ErrCodeConfigValidation, errors.GetCode(err))
}

func TestLoadConfigMissingFile(t *testing.T) {
	root := newRoot()
	require.NoError(t, root.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "nope.yml")}))
	_, _, err := LoadConfig(root)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", errors.HTTPStatus("GET", "http://b/x", 404), "Not found"},
		{"status", errors.HTTPStatus("GET", "http://b/x", 500), "status 500"},
		{"transport", errors.Transport("http://b/x", assert.AnError), "hermes mock-server"},
		{"config", errors.ConfigInvalid("bad"), "hermes config schema"},
		{"input", errors.InvalidInput("approver_id", "must be a UUID"), "Invalid input"},
		{"plain", assert.AnError, "Error: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			got := NewErrorHandler(false, &buf).Handle(tt.err)
			assert.Equal(t, tt.err, got)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestErrorHandlerVerboseDetails(t *testing.T) {
	var buf bytes.Buffer
	NewErrorHandler(true, &buf).Handle(errors.HTTPStatus("GET", "http://b/x", 503))
	assert.Contains(t, buf.String(), `"code": "HTTP_STATUS"`)
}

func TestRenderHelp(t *testing.T) {
	root := newRoot()
	var buf bytes.Buffer
	renderHelp(&buf, root.Commands()[0], theme.DefaultTheme, 60)
	out := buf.String()

	assert.Contains(t, out, "HERMES TICKETS")
	assert.Contains(t, out, "FLAGS")
	assert.Contains(t, out, "--interval")
	assert.Contains(t, out, "hermes tickets --json")
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 10)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 10)
	}
	assert.Equal(t, "one two three four five six", strings.Join(lines, " "))
}
