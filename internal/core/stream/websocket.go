package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/hermes/errors"
)

// WebSocketTransport receives one message per text frame.
type WebSocketTransport struct {
	dialer *websocket.Dialer
}

// NewWebSocketTransport returns a transport using gorilla's dialer with a
// 10s handshake timeout.
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{dialer: &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: 10 * time.Second,
	}}
}

// Open performs the handshake. The connection is closed when ctx ends.
func (t *WebSocketTransport) Open(ctx context.Context, url string) (Stream, error) {
	conn, resp, err := t.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, errors.HTTPStatus(http.MethodGet, url, resp.StatusCode)
		}
		return nil, errors.Transport(url, err)
	}
	ws := &wsStream{conn: conn}
	context.AfterFunc(ctx, func() { ws.Close() })
	return ws, nil
}

type wsStream struct {
	conn *websocket.Conn
	once sync.Once
}

func (s *wsStream) Recv() ([]byte, error) {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage {
			return data, nil
		}
	}
}

func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
