package sink

import (
	"context"
	"sync"
	"time"
)

// MockSink is a test double for the Sink interface.
type MockSink struct {
	SinkName string
	Err      error
	Delay    time.Duration

	mu    sync.Mutex
	notes []Note
}

func (m *MockSink) Name() string {
	if m.SinkName == "" {
		return "mock"
	}
	return m.SinkName
}

// WriteNote records the note after the configured delay, or returns
// the configured error. Honors context cancellation during the delay.
func (m *MockSink) WriteNote(ctx context.Context, note Note) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, note)
	return nil
}

// Notes returns a copy of the recorded notes.
func (m *MockSink) Notes() []Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Note, len(m.notes))
	copy(out, m.notes)
	return out
}
