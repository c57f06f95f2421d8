package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/grovetools/hermes/cli"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/grovetools/hermes/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend *testutil.MockBackend
	config  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("HERMES_HOME", t.TempDir())
	t.Setenv("HERMES_LOG_LEVEL", "error")

	b := testutil.StartMockBackend(t)
	b.Seed()
	return &fixture{backend: b, config: testutil.WriteConfig(t, testutil.MockConfig(b))}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cli.NewStandardCommand("hermes", "test")
	AddCommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", f.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestTicketsCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "tickets")
	require.NoError(t, err)
	assert.Contains(t, out, "MERCHANT")
	assert.Contains(t, out, "Acme Outdoor")
	assert.Contains(t, out, "92%")
	assert.NotContains(t, out, "9200%", "percent confidences are scaled before display")

	out, err = f.run(t, "tickets", "--json", "--status", "diagnosed")
	require.NoError(t, err)
	var tickets []models.Ticket
	require.NoError(t, json.Unmarshal([]byte(out), &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, models.StatusDiagnosed, tickets[0].Status)
	assert.InDelta(t, 0.92, tickets[0].Confidence, 1e-9)
}

func TestSubmitAndDiagnose(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "submit", "--json", "checkout", "page", "is", "blank")
	require.NoError(t, err)
	var created models.Ticket
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, models.ClassCheckoutBreak, created.Classification)

	out, err = f.run(t, "diagnose", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "not yet available")

	require.True(t, f.backend.Advance(created.ID))
	out, err = f.run(t, "diagnose", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Root cause")
}

func TestApproveAndReject(t *testing.T) {
	f := newFixture(t)
	tickets := f.backend.Tickets()

	out, err := f.run(t, "approve", tickets[0].ID, "-m", "looks right")
	require.NoError(t, err)
	assert.Contains(t, out, "resolved")
	tk, _ := f.backend.Ticket(tickets[0].ID)
	assert.Equal(t, models.StatusResolved, tk.Status)

	_, err = f.run(t, "reject", tickets[1].ID)
	require.NoError(t, err)
	tk, _ = f.backend.Ticket(tickets[1].ID)
	assert.Equal(t, models.StatusEscalated, tk.Status)

	_, err = f.run(t, "approve", "does-not-exist")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: "+f.config)
	assert.Contains(t, out, "base_url:")

	out, err = f.run(t, "config", "schema")
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "base_url")
	assert.Contains(t, props, "logging")
}

func TestVersionAndPaths(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)

	out, err = f.run(t, "paths")
	require.NoError(t, err)
	var p PathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, filepath.Join(os.Getenv("HERMES_HOME"), "config"), p.ConfigDir)
}
