package stream

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/grovetools/hermes/errors"
)

// SSETransport reads text/event-stream responses.
type SSETransport struct {
	client *http.Client
}

// NewSSETransport returns an SSE transport. A nil client gets one
// without a timeout, since the response body stays open indefinitely.
func NewSSETransport(client *http.Client) *SSETransport {
	if client == nil {
		client = &http.Client{Timeout: 0}
	}
	return &SSETransport{client: client}
}

// Open issues the GET and checks the response status.
func (t *SSETransport) Open(ctx context.Context, url string) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Transport(url, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.Transport(url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.HTTPStatus(http.MethodGet, url, resp.StatusCode)
	}

	return &sseStream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// MaxEventSize bounds the data of one event. Larger events are skipped
// without ending the stream.
const MaxEventSize = 1 << 20

type sseStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// Recv returns the data of the next unnamed or "message" event.
// Multi-line data fields are joined with newlines; comments, other
// fields and events over MaxEventSize are skipped.
func (s *sseStream) Recv() ([]byte, error) {
	var (
		data      []string
		size      int
		oversized bool
		name      string
	)
	for {
		line, tooLong, err := s.readLine()
		if err != nil {
			return nil, err
		}
		if tooLong {
			oversized, data = true, nil
			continue
		}

		if len(line) == 0 {
			dispatch := len(data) > 0 && !oversized && (name == "" || name == "message")
			payload := strings.Join(data, "\n")
			data, size, oversized, name = nil, 0, false, ""
			if dispatch {
				return []byte(payload), nil
			}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := strings.Cut(string(line), ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			if oversized {
				continue
			}
			size += len(value) + 1
			if size > MaxEventSize {
				oversized, data = true, nil
				continue
			}
			data = append(data, value)
		case "event":
			name = value
		}
	}
}

// readLine returns the next line without its terminator. A line longer
// than MaxEventSize is consumed and reported as tooLong instead.
func (s *sseStream) readLine() (line []byte, tooLong bool, err error) {
	for {
		frag, err := s.reader.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(frag) > MaxEventSize {
				tooLong, line = true, nil
			} else {
				line = append(line, frag...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if tooLong {
			return nil, true, nil
		}
		line = bytes.TrimSuffix(line, []byte("\n"))
		return bytes.TrimSuffix(line, []byte("\r")), false, nil
	}
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
