package adapters

import (
	"context"
	"sync"
)

// SynthesisStream is a pull-based sequence of encoded audio chunks. The
// producer blocks until the consumer pulls, giving one-chunk backpressure;
// closing the stream cancels production and releases engine resources.
type SynthesisStream struct {
	chunks chan []byte

	mu  sync.Mutex
	err error

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewSynthesisStream couples a stream to the cancel func of its producer
// context.
func NewSynthesisStream(cancel context.CancelFunc) *SynthesisStream {
	return &SynthesisStream{
		chunks: make(chan []byte),
		cancel: cancel,
	}
}

// Chunks is the channel the consumer ranges over. It is closed when
// production ends, normally or otherwise; check Err afterwards.
func (s *SynthesisStream) Chunks() <-chan []byte {
	return s.chunks
}

// Err reports the production error, if any, once Chunks is closed.
func (s *SynthesisStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops production. Safe to call more than once and after the
// stream is drained.
func (s *SynthesisStream) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Send delivers one chunk to the consumer, blocking until it is pulled or
// the producer context is cancelled. Returns false when the consumer is
// gone.
func (s *SynthesisStream) Send(ctx context.Context, chunk []byte) bool {
	select {
	case s.chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Finish ends production, recording err for the consumer. Must be called
// exactly once by the producer goroutine.
func (s *SynthesisStream) Finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.chunks)
}
