package notify

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// Sink receives notices from a Dispatcher.
type Sink interface {
	Emit(ctx context.Context, n Notice)
}

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Notice) {}

type ChannelSink struct {
	notices chan Notice
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		notices: make(chan Notice, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, n Notice) {
	select {
	case s.notices <- n:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Notices() <-chan Notice {
	return s.notices
}

type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, n Notice) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// MultiSink fans a notice out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, n Notice) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, n)
		}
	}
}
