package stream

import (
	"context"
	"net/url"
	"strings"
)

// Transport opens push connections.
type Transport interface {
	// Open dials url. The returned Stream lives until Close is called or
	// ctx is cancelled.
	Open(ctx context.Context, url string) (Stream, error)
}

// Stream is one open push connection delivering raw messages.
type Stream interface {
	// Recv blocks for the next message. Any error ends the connection.
	Recv() ([]byte, error)
	Close() error
}

// TransportFor picks WebSocket for ws:// and wss:// URLs and SSE for
// everything else.
func TransportFor(rawURL string) Transport {
	u, err := url.Parse(rawURL)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "ws", "wss":
			return NewWebSocketTransport()
		}
	}
	return NewSSETransport(nil)
}
