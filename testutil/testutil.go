// Package testutil holds helpers shared by hermes' package tests.
package testutil

import (
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/hermes/internal/mockserver"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// QuietLogger returns an entry that discards everything.
func QuietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// MockBackend is a mock backend served over httptest.
type MockBackend struct {
	*mockserver.Backend
	Server *httptest.Server
}

// BaseURL is the API root of the mock.
func (m *MockBackend) BaseURL() string {
	return m.Server.URL + mockserver.APIPrefix
}

// StartMockBackend serves an empty mock backend until the test ends.
// Open streams are dropped before the server closes.
func StartMockBackend(t *testing.T) *MockBackend {
	t.Helper()
	b := mockserver.NewBackend()
	srv := httptest.NewServer(mockserver.New(b, QuietLogger()).Handler())
	t.Cleanup(func() {
		b.DropSubscribers()
		srv.Close()
	})
	return &MockBackend{Backend: b, Server: srv}
}

// WriteConfig writes a hermes.yml with body into a temp dir and returns
// its path.
func WriteConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hermes.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// MockConfig returns a config body pointing at m with stderr logging off.
func MockConfig(m *MockBackend) string {
	return fmt.Sprintf("base_url: %s\nlogging:\n  format:\n    structured_to_stderr: never\n", m.BaseURL())
}
