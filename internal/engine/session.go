package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSessionClosed is reported for commands submitted after the session
	// was closed or killed.
	ErrSessionClosed = errors.New("session closed")
	// ErrQueueFull is reported when the session's command queue is at
	// capacity. The queue is bounded so a flooding client degrades with
	// errors instead of exhausting memory.
	ErrQueueFull = errors.New("session queue overflow")
)

// Recorder receives engine telemetry. Implemented by monitoring.Metrics; a
// no-op recorder is used when none is supplied.
type Recorder interface {
	SessionStarted()
	SessionEnded()
	SessionFaulted()
	CommandExecuted(op string, ok bool, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()                             {}
func (nopRecorder) SessionEnded()                               {}
func (nopRecorder) SessionFaulted()                             {}
func (nopRecorder) CommandExecuted(string, bool, time.Duration) {}

// Options configures a session.
type Options struct {
	QueueCapacity int
	MaxCallStack  int
	Logger        *zap.Logger
	Recorder      Recorder
}

// Session is the submit side of one worker's command queue. It is safe to
// share across goroutines: many requests may enqueue concurrently while
// the single worker serializes actual execution in FIFO order. Session
// state inside the runtime is private to this session for its whole life.
type Session struct {
	id       string
	queue    chan *Pending
	logger   *zap.Logger
	recorder Recorder

	mu     sync.RWMutex
	closed bool

	killed atomic.Bool
	iso    atomic.Pointer[isolate]
}

// NewSession spawns a dedicated worker owning a fresh execution context
// deserialized from env and returns the handle to its queue.
func NewSession(env *Environment, opts Options) *Session {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 1024
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}

	s := &Session{
		id:       uuid.NewString(),
		queue:    make(chan *Pending, opts.QueueCapacity),
		recorder: opts.Recorder,
	}
	s.logger = opts.Logger.With(zap.String("session_id", s.id))

	w := &worker{
		session:      s,
		env:          env,
		maxCallStack: opts.MaxCallStack,
		logger:       s.logger,
		recorder:     opts.Recorder,
	}
	opts.Recorder.SessionStarted()
	go w.run()

	return s
}

// ID returns the session identifier used in logs and faults.
func (s *Session) ID() string { return s.id }

// Run enqueues a command and returns its pending execution immediately.
// It never blocks: a closed session or a full queue yields a pending that
// is already terminal with the corresponding error.
func (s *Session) Run(cmd Command) *Pending {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return resolvedPending(cmd, Outcome{Text: ErrSessionClosed.Error()})
	}

	p := newPending(cmd)
	select {
	case s.queue <- p:
	default:
		p.resolve(Outcome{Text: ErrQueueFull.Error()})
	}
	return p
}

// Await blocks until the pending resolves, the timeout elapses, or ctx is
// done. On timeout the session is killed: the in-flight script is
// interrupted and the worker is torn down rather than reused, since a
// script call cannot be preempted once started.
func (s *Session) Await(ctx context.Context, p *Pending, timeout time.Duration) Outcome {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.Done():
	case <-timer.C:
		if p.resolve(Outcome{Text: fmt.Sprintf("timeout: execution exceeded %s", timeout)}) {
			s.Kill("execution timed out")
		}
	case <-ctx.Done():
		// The caller stopped waiting. The worker still runs the command to
		// completion and the unread result is discarded; in-flight work is
		// never aborted by caller cancellation.
		return Outcome{Text: "request canceled"}
	}

	out, _ := p.Outcome()
	return out
}

// Close releases the session: the worker drains commands already queued
// and then exits, reclaiming the execution context. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.queue)
}

// Kill poisons the session and interrupts any script currently running.
// Queued commands resolve with a session-closed error instead of
// executing; new submissions fail fast.
func (s *Session) Kill(reason string) {
	s.killed.Store(true)
	if iso := s.iso.Load(); iso != nil {
		iso.interrupt(reason)
	}
	s.Close()
}
