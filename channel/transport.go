package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	eventstream "github.com/r3labs/sse/v2"
)

// Frame is one message received from the push endpoint. Event is empty for
// unnamed frames.
type Frame struct {
	Event string
	ID    string
	Data  []byte
}

// Transport opens push streams.
type Transport interface {
	Dial(ctx context.Context, url string) (Stream, error)
}

// Stream yields frames until it fails or is closed. Canceling the Dial
// context or calling Close unblocks Next.
type Stream interface {
	Next() (Frame, error)
	Close() error
}

// DefaultMaxEventBytes bounds one buffered event when SSETransport.MaxEventBytes is 0.
const DefaultMaxEventBytes = 1 << 20

// SSETransport reads text/event-stream over a long-lived HTTP GET.
type SSETransport struct {
	// Client must not set a Timeout; the stream never completes on its own.
	Client *http.Client
	// MaxEventBytes caps a single event. A longer event fails the stream.
	MaxEventBytes int
}

func (t SSETransport) Dial(ctx context.Context, url string) (Stream, error) {
	client := t.Client
	if client == nil {
		client = &http.Client{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrHandshake, resp.StatusCode)
	}
	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mt != "text/event-stream" {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: content type %q", ErrHandshake, resp.Header.Get("Content-Type"))
	}

	limit := t.MaxEventBytes
	if limit <= 0 {
		limit = DefaultMaxEventBytes
	}
	return &sseStream{body: resp.Body, r: eventstream.NewEventStreamReader(resp.Body, limit)}, nil
}

type sseStream struct {
	body io.ReadCloser
	r    *eventstream.EventStreamReader
}

func (s *sseStream) Next() (Frame, error) {
	for {
		block, err := s.r.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Frame{}, io.ErrUnexpectedEOF
			}
			return Frame{}, err
		}
		if f, ok := parseEvent(string(block)); ok {
			return f, nil
		}
	}
}

// parseEvent applies the EventSource field rules to one event block: data
// lines join with "\n", comments are skipped and a block without data is
// not dispatched.
func parseEvent(block string) (Frame, bool) {
	block = strings.ReplaceAll(block, "\r\n", "\n")
	block = strings.ReplaceAll(block, "\r", "\n")

	var (
		f       Frame
		data    strings.Builder
		hasData bool
	)
	for _, line := range strings.Split(block, "\n") {
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			f.Event = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			f.ID = value
		}
	}
	if !hasData {
		return Frame{}, false
	}
	f.Data = []byte(data.String())
	if f.Event == "message" {
		f.Event = ""
	}
	return f, true
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
