package interview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/merelin/diffa-sub000/scan"
)

var (
	// ErrInterviewTimeout is returned when a running scan produced no answer in time.
	ErrInterviewTimeout = errors.New("interview: timed out waiting for an answer")
	// ErrStreamClosed is returned to a participant once the consumer stopped reading.
	ErrStreamClosed = errors.New("interview: answer stream closed")
	// ErrAnswerAfterCompletion is returned for answers produced after completion.
	ErrAnswerAfterCompletion = errors.New("interview: answer after completion")
)

// AnswerStream hands answers from a scanning participant over to a single
// consumer through a bounded buffer.
//
// The participant side (OnPrune, OnCompletion, Fail) is safe for concurrent
// use. HasNext and Next must be called from one goroutine.
type AnswerStream struct {
	clock   clockwork.Clock
	timeout time.Duration

	buf  chan scan.Answer
	head scan.Answer

	complete     chan struct{}
	completeOnce sync.Once
	closed       chan struct{}
	closeOnce    sync.Once

	mu  sync.Mutex
	err error
}

var _ scan.PruningHandler = (*AnswerStream)(nil)

// NewAnswerStream creates a stream with cfg.BufferSize capacity.
func NewAnswerStream(cfg Config, clock clockwork.Clock) *AnswerStream {
	return &AnswerStream{
		clock:    clock,
		timeout:  cfg.AnswerTimeout,
		buf:      make(chan scan.Answer, cfg.BufferSize),
		complete: make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

// OnPrune buffers an answer, blocking while the buffer is full.
func (s *AnswerStream) OnPrune(ctx context.Context, answer scan.Answer) error {
	select {
	case <-s.complete:
		return ErrAnswerAfterCompletion
	default:
	}
	select {
	case s.buf <- answer:
		return nil
	case <-s.closed:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnCompletion signals that no more answers follow. Repeated calls do nothing.
func (s *AnswerStream) OnCompletion() {
	s.completeOnce.Do(func() {
		close(s.complete)
	})
}

// Fail completes the stream with an error. The consumer still receives the
// answers buffered so far before the error.
func (s *AnswerStream) Fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.OnCompletion()
}

// Err returns the error the stream was failed with.
func (s *AnswerStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the consumer side, a blocked participant is released with ErrStreamClosed.
func (s *AnswerStream) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

func (s *AnswerStream) completed() bool {
	select {
	case <-s.complete:
		return true
	default:
		return false
	}
}

func (s *AnswerStream) poll() bool {
	select {
	case a := <-s.buf:
		s.head = a
		return true
	default:
		return false
	}
}

// HasNext reports whether another answer is available. After completion it
// doesn't block. Otherwise it waits for an answer or completion up to the
// answer timeout and fails with ErrInterviewTimeout once it elapsed.
// The error of a failed stream is returned once all buffered answers were read.
func (s *AnswerStream) HasNext(ctx context.Context) (bool, error) {
	if s.head != nil || s.poll() {
		return true, nil
	}
	if s.completed() {
		if s.poll() {
			return true, nil
		}
		return false, s.Err()
	}
	timer := s.clock.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case a := <-s.buf:
		s.head = a
		return true, nil
	case <-s.complete:
		if s.poll() {
			return true, nil
		}
		return false, s.Err()
	case <-timer.Chan():
		return false, ErrInterviewTimeout
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Next returns the next answer. It blocks until an answer is available or
// the stream completed with an empty buffer, in which case ok is false.
func (s *AnswerStream) Next(ctx context.Context) (answer scan.Answer, ok bool, err error) {
	if s.head != nil {
		answer, s.head = s.head, nil
		return answer, true, nil
	}
	select {
	case a := <-s.buf:
		return a, true, nil
	case <-s.complete:
		if s.poll() {
			answer, s.head = s.head, nil
			return answer, true, nil
		}
		return nil, false, s.Err()
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
