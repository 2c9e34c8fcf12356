package session

import (
	"context"
	"sync"
	"time"

	"github.com/example/quizbot/internal/logger"
	"github.com/example/quizbot/internal/quiz"
	"github.com/example/quizbot/pkg/models"
)

// Source loads the question bank
type Source interface {
	Fetch(ctx context.Context) ([]models.Question, error)
}

// Clock runs fn periodically until the returned stop function is called
type Clock interface {
	Every(interval time.Duration, fn func()) (stop func(), err error)
}

// Renderer is told about every processed dispatch. It is always called from
// the session goroutine, one call at a time.
type Renderer interface {
	Render(ctx context.Context, prev, next quiz.State)
}

// envelope carries an action through the dispatch queue. Timer ticks are
// stamped with the generation of the timer that produced them; zero means the
// action was dispatched directly.
type envelope struct {
	action   quiz.Action
	timerGen int
}

// Session owns one quiz state and serializes every change to it
type Session struct {
	machine  *quiz.Machine
	source   Source
	clock    Clock
	renderer Renderer
	log      *logger.Logger

	queue    chan envelope
	stopping chan struct{}
	done     chan struct{}

	// sendMu orders senders against shutdown: once closed is set nothing
	// else reaches the queue.
	sendMu sync.Mutex
	closed bool

	mu    sync.RWMutex
	state quiz.State

	// owned by the Run goroutine
	stopTimer func()
	timerGen  int
}

// New creates a session. Nothing happens until Run is called.
func New(machine *quiz.Machine, source Source, clock Clock, renderer Renderer, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		machine:  machine,
		source:   source,
		clock:    clock,
		renderer: renderer,
		log:      log,
		queue:    make(chan envelope, 16),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// State returns the last published state
func (s *Session) State() quiz.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch queues an action. Every accepted action is applied before Run
// returns; once the session is shutting down Dispatch returns false.
func (s *Session) Dispatch(a quiz.Action) bool {
	return s.enqueue(envelope{action: a})
}

func (s *Session) enqueue(env envelope) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- env:
		return true
	case <-s.stopping:
		return false
	}
}

// Done is closed when Run has returned
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run drives the session until ctx is cancelled: it loads the initial state,
// fetches the questions once and applies queued actions one by one.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.syncTimer(quiz.State{})

	initial := s.machine.Initial(ctx)
	s.publish(initial)
	s.renderer.Render(ctx, quiz.State{}, initial)
	s.fetch(ctx)

	for {
		select {
		case <-ctx.Done():
			s.shutdown(ctx)
			s.log.Debug("session stopped", "phase", s.State().Phase.String())
			return nil
		case env := <-s.queue:
			if env.timerGen != 0 && env.timerGen != s.timerGen {
				continue
			}
			s.step(ctx, env.action)
		}
	}
}

func (s *Session) step(ctx context.Context, a quiz.Action) {
	prev := s.State()
	next := s.machine.Apply(ctx, prev, a)
	s.publish(next)

	if prev.Phase != quiz.PhaseLoading && next.Phase == quiz.PhaseLoading {
		s.fetch(ctx)
	}
	s.syncTimer(next)
	if prev.Phase != next.Phase {
		s.log.Debug("phase changed", "action", a.Name(), "from", prev.Phase.String(), "to", next.Phase.String())
	}
	s.renderer.Render(ctx, prev, next)
}

// shutdown refuses further dispatches and applies the actions that were
// already accepted. Nothing is fetched and no timer is started any more.
func (s *Session) shutdown(ctx context.Context) {
	close(s.stopping)
	s.sendMu.Lock()
	s.closed = true
	s.sendMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	for {
		select {
		case env := <-s.queue:
			if env.timerGen != 0 {
				continue
			}
			prev := s.State()
			next := s.machine.Apply(ctx, prev, env.action)
			s.publish(next)
			s.renderer.Render(ctx, prev, next)
		default:
			return
		}
	}
}

func (s *Session) publish(st quiz.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// fetch loads the questions in the background and reports the outcome as a
// single dispatch. The result is dropped if the session stops first.
func (s *Session) fetch(ctx context.Context) {
	go func() {
		questions, err := s.source.Fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Warn("failed to load questions", "error", err)
			s.Dispatch(quiz.DataFailed{Err: err})
			return
		}
		s.log.Info("questions loaded", "count", len(questions))
		s.Dispatch(quiz.DataReceived{Questions: questions})
	}()
}

// syncTimer starts or stops the countdown so that it runs exactly while the
// quiz is in progress with time left.
func (s *Session) syncTimer(st quiz.State) {
	want := st.Phase == quiz.PhaseInProgress && st.SecondsRemaining != nil && *st.SecondsRemaining > 0
	switch {
	case want && s.stopTimer == nil:
		s.timerGen++
		gen := s.timerGen
		stop, err := s.clock.Every(time.Second, func() {
			s.enqueue(envelope{action: quiz.Tick{}, timerGen: gen})
		})
		if err != nil {
			s.log.Error("failed to start quiz timer", "error", err)
			return
		}
		s.stopTimer = stop
	case !want && s.stopTimer != nil:
		s.stopTimer()
		s.stopTimer = nil
		// Ticks already queued by the old timer no longer match.
		s.timerGen++
	}
}
