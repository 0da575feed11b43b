package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport reads JSON envelopes {"event": name, "data": payload}
// from a WebSocket. http(s) endpoints are dialed as ws(s).
type WebSocketTransport struct {
	Dialer *websocket.Dialer
}

func (t WebSocketTransport) Dial(ctx context.Context, url string) (Stream, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	switch {
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, fmt.Errorf("%w: status %d", ErrHandshake, resp.StatusCode)
		}
		return nil, err
	}

	ws := &wsStream{conn: conn, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-ws.done:
		}
	}()
	return ws, nil
}

type wsStream struct {
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

type envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

func (s *wsStream) Next() (Frame, error) {
	for {
		mt, msg, err := s.conn.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil || (env.Event == "" && env.Data == nil) {
			return Frame{Data: msg}, nil
		}
		return Frame{Event: env.Event, ID: env.ID, Data: env.Data}, nil
	}
}

func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
