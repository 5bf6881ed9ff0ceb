package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrStreamClosed is returned by Send after the stream has been closed.
var ErrStreamClosed = errors.New("sse: stream closed")

// Frame wraps a JSON payload in SSE wire framing.
func Frame(data []byte) []byte {
	framed := make([]byte, 0, len(data)+8)
	framed = append(framed, "data: "...)
	framed = append(framed, data...)
	framed = append(framed, '\n', '\n')
	return framed
}

// Encode marshals an event and wraps it in SSE framing.
func Encode(event any) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return Frame(data), nil
}

// StreamWriter adapts an http.ResponseWriter into a Sink. Writes are
// serialized with a mutex because broadcasts and the subscription handler
// run on different goroutines.
type StreamWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

// NewStreamWriter wraps a response writer. Fails if the underlying transport
// cannot flush, since an unflushable event stream never reaches the client.
func NewStreamWriter(w http.ResponseWriter) (*StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("sse: response writer does not support flushing")
	}
	return &StreamWriter{w: w, flusher: flusher}, nil
}

// Send writes one framed event and flushes it to the client.
func (s *StreamWriter) Send(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if _, err := s.w.Write(p); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// Close marks the stream closed. Subsequent Sends fail with ErrStreamClosed
// instead of racing the transport teardown.
func (s *StreamWriter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
