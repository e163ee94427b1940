package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type typingRecorder struct {
	mu     sync.Mutex
	events []bool
}

func (r *typingRecorder) emit(start bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, start)
}

func (r *typingRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.events...)
}

func TestTypingDebounceCollapsesRepeatedStarts(t *testing.T) {
	recorder := &typingRecorder{}
	coordinator := NewTypingCoordinator(time.Minute, recorder.emit, testLogger())
	defer coordinator.Close()

	for i := 0; i < 10; i++ {
		coordinator.Start()
	}
	coordinator.Stop()

	require.Equal(t, []bool{true, false}, recorder.snapshot())
}

func TestTypingStopWhileIdleIsNoOp(t *testing.T) {
	recorder := &typingRecorder{}
	coordinator := NewTypingCoordinator(time.Minute, recorder.emit, testLogger())
	defer coordinator.Close()

	coordinator.Stop()
	require.Empty(t, recorder.snapshot())
}

func TestTypingIdleTimeoutEmitsStop(t *testing.T) {
	recorder := &typingRecorder{}
	coordinator := NewTypingCoordinator(20*time.Millisecond, recorder.emit, testLogger())
	defer coordinator.Close()

	coordinator.Start()
	require.Eventually(t, func() bool {
		events := recorder.snapshot()
		return len(events) == 2 && !events[1]
	}, time.Second, 5*time.Millisecond)

	// The timer already fired; a later explicit stop is a no-op.
	coordinator.Stop()
	require.Len(t, recorder.snapshot(), 2)
}

func TestTypingStartResetsIdleTimer(t *testing.T) {
	recorder := &typingRecorder{}
	coordinator := NewTypingCoordinator(60*time.Millisecond, recorder.emit, testLogger())
	defer coordinator.Close()

	coordinator.Start()
	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		coordinator.Start()
	}
	// Still inside the quiet period: only the initial start fired.
	require.Equal(t, []bool{true}, recorder.snapshot())

	require.Eventually(t, func() bool {
		return len(recorder.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestTypingCloseEmitsFinalStop(t *testing.T) {
	recorder := &typingRecorder{}
	coordinator := NewTypingCoordinator(time.Minute, recorder.emit, testLogger())

	coordinator.Start()
	coordinator.Close()
	require.Equal(t, []bool{true, false}, recorder.snapshot())

	// After close every signal is ignored.
	coordinator.Start()
	coordinator.Stop()
	require.Len(t, recorder.snapshot(), 2)
}
