package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindbehind/converse-go/internal/observability"
)

// TypingCoordinator debounces local typing signals into throttled outbound
// events. Repeated Start calls within the quiet period collapse into one
// typing-start event; the stop event fires on an explicit Stop or after the
// idle timeout, whichever comes first.
type TypingCoordinator struct {
	mu          sync.Mutex
	typing      bool
	timer       *time.Timer
	idleTimeout time.Duration
	emit        func(start bool)
	logger      zerolog.Logger
	closed      bool
}

// NewTypingCoordinator constructs a coordinator. emit performs the outbound
// typing event and is called at most once per state transition, never while
// the coordinator's lock is held.
func NewTypingCoordinator(idleTimeout time.Duration, emit func(start bool), logger zerolog.Logger) *TypingCoordinator {
	if idleTimeout <= 0 {
		idleTimeout = 10 * time.Second
	}
	return &TypingCoordinator{
		idleTimeout: idleTimeout,
		emit:        emit,
		logger:      logger.With().Str("component", "typing_coordinator").Logger(),
	}
}

// Start signals that the user is typing. The first call in a quiet period
// emits a typing-start event and arms the idle timer; subsequent calls only
// reset the timer.
func (t *TypingCoordinator) Start() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if t.typing {
		t.timer.Reset(t.idleTimeout)
		t.mu.Unlock()
		return
	}
	t.typing = true
	t.timer = time.AfterFunc(t.idleTimeout, t.idleExpired)
	t.mu.Unlock()

	observability.TypingEvents().WithLabelValues("start").Inc()
	t.emit(true)
}

// Stop signals that the user stopped typing. A no-op when not typing.
func (t *TypingCoordinator) Stop() {
	if t.transitionToIdle() {
		observability.TypingEvents().WithLabelValues("stop").Inc()
		t.emit(false)
	}
}

// idleExpired fires when the idle timer elapses with no intervening Start.
// It behaves exactly like an explicit Stop.
func (t *TypingCoordinator) idleExpired() {
	t.logger.Debug().Dur("idle_timeout", t.idleTimeout).Msg("typing idle timeout elapsed")
	t.Stop()
}

// Close cancels the timer and suppresses any further events. If the user was
// mid-typing the stop event is emitted so the peer state does not dangle.
func (t *TypingCoordinator) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	wasTyping := t.typing
	t.typing = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	if wasTyping {
		observability.TypingEvents().WithLabelValues("stop").Inc()
		t.emit(false)
	}
}

func (t *TypingCoordinator) transitionToIdle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.typing {
		return false
	}
	t.typing = false
	t.timer.Stop()
	t.timer = nil
	return true
}
