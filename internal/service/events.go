package service

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/mindbehind/converse-go/internal/models"
)

const subscriberBufferSize = 32

// EventKind discriminates conversation events.
type EventKind int

const (
	// EventUnreadCountChanged fires whenever the unread count moves.
	EventUnreadCountChanged EventKind = iota
	// EventMessagesReceived fires when new messages arrive from the server.
	EventMessagesReceived
	// EventPreviousMessagesReceived fires when a history page merges.
	EventPreviousMessagesReceived
	// EventHistoryFailed fires when a history fetch fails. The store is left
	// untouched.
	EventHistoryFailed
	// EventActivityReceived fires for every applied realtime activity.
	EventActivityReceived
	// EventUploadStarted fires when a message or media upload begins.
	EventUploadStarted
	// EventUploadProgress fires with monotonically non-decreasing progress.
	EventUploadProgress
	// EventUploadCompleted fires when an upload succeeds. The message is
	// already in the store with status sent.
	EventUploadCompleted
	// EventUploadFailed fires when an upload fails. The message remains in
	// the store with status failed, retryable.
	EventUploadFailed
	// EventNotification fires for a remote message the delegate agreed to
	// surface as an in-app notification.
	EventNotification
)

// Event is the typed broadcast payload. Only the fields relevant to the kind
// are populated; message and activity values are copies.
type Event struct {
	Kind        EventKind
	UnreadCount int
	Messages    []models.Message
	Message     *models.Message
	Activity    *models.ConversationActivity
	Progress    float64
	Err         error
}

// Delegate is the optional callback set. Every slot may be nil; nil slots
// fall back to no-op (or permissive, for the ask-style slots).
//
// All notification slots are invoked on the session's ordering domain, one at
// a time, in mutation order. The ask slots (ShouldShowNotification, WillSend,
// WillDisplay) are invoked synchronously inside the operation that needs the
// answer and must not call back into the session.
type Delegate struct {
	UnreadCountChanged       func(unreadCount int)
	MessagesReceived         func(messages []models.Message)
	PreviousMessagesReceived func(messages []models.Message)
	ActivityReceived         func(activity models.ConversationActivity)
	UploadStarted            func(message models.Message)
	UploadProgress           func(message models.Message, progress float64)
	UploadCompleted          func(message models.Message)
	UploadFailed             func(message models.Message, err error)

	// ShouldShowNotification decides whether an in-app notification event is
	// emitted for a remote message. Nil means yes.
	ShouldShowNotification func(message models.Message) bool
	// WillSend may modify a message before it is sent. For media messages
	// only metadata changes are honoured. Nil means send as-is.
	WillSend func(message models.Message) models.Message
	// WillDisplay may modify a message before it reaches observers, or hide
	// it by returning nil. Nil slot means display as-is.
	WillDisplay func(message models.Message) *models.Message
}

// eventBus serializes delivery of events to the delegate and all subscribers.
// Events are enqueued in mutation order and drained by a single goroutine, so
// observers never see interleaved or torn state. The queue is unbounded:
// publish must never block a caller that holds the session lock, or a slow
// delegate could deadlock the engine.
type eventBus struct {
	mu          sync.Mutex
	delegate    *Delegate
	subscribers map[chan Event]struct{}

	queueMu sync.Mutex
	queue   []Event
	cond    *sync.Cond
	closed  bool
	drained chan struct{}
	log     zerolog.Logger
}

func newEventBus(logger zerolog.Logger) *eventBus {
	bus := &eventBus{
		subscribers: make(map[chan Event]struct{}),
		drained:     make(chan struct{}),
		log:         logger.With().Str("component", "event_bus").Logger(),
	}
	bus.cond = sync.NewCond(&bus.queueMu)
	go bus.dispatch()
	return bus
}

func (b *eventBus) setDelegate(delegate *Delegate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delegate = delegate
}

func (b *eventBus) currentDelegate() *Delegate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delegate
}

// subscribe registers a broadcast channel; the returned function cancels it.
func (b *eventBus) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// publish enqueues an event for ordered delivery. Callers must already hold
// the session lock so enqueue order matches mutation order. Never blocks.
func (b *eventBus) publish(event Event) {
	b.queueMu.Lock()
	if b.closed {
		b.queueMu.Unlock()
		return
	}
	b.queue = append(b.queue, event)
	b.queueMu.Unlock()
	b.cond.Signal()
}

func (b *eventBus) dispatch() {
	for {
		b.queueMu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 && b.closed {
			b.queueMu.Unlock()
			close(b.drained)
			return
		}
		event := b.queue[0]
		b.queue = b.queue[1:]
		b.queueMu.Unlock()

		b.deliver(event)
	}
}

func (b *eventBus) deliver(event Event) {
	delegate := b.currentDelegate()
	if delegate != nil {
		b.invokeDelegate(delegate, event)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.log.Warn().Int("kind", int(event.Kind)).Msg("dropping event for slow subscriber")
		}
	}
}

func (b *eventBus) invokeDelegate(d *Delegate, event Event) {
	switch event.Kind {
	case EventUnreadCountChanged:
		if d.UnreadCountChanged != nil {
			d.UnreadCountChanged(event.UnreadCount)
		}
	case EventMessagesReceived:
		if d.MessagesReceived != nil {
			d.MessagesReceived(event.Messages)
		}
	case EventPreviousMessagesReceived:
		if d.PreviousMessagesReceived != nil {
			d.PreviousMessagesReceived(event.Messages)
		}
	case EventActivityReceived:
		if d.ActivityReceived != nil && event.Activity != nil {
			d.ActivityReceived(*event.Activity)
		}
	case EventUploadStarted:
		if d.UploadStarted != nil && event.Message != nil {
			d.UploadStarted(*event.Message)
		}
	case EventUploadProgress:
		if d.UploadProgress != nil && event.Message != nil {
			d.UploadProgress(*event.Message, event.Progress)
		}
	case EventUploadCompleted:
		if d.UploadCompleted != nil && event.Message != nil {
			d.UploadCompleted(*event.Message)
		}
	case EventUploadFailed:
		if d.UploadFailed != nil && event.Message != nil {
			d.UploadFailed(*event.Message, event.Err)
		}
	}
}

// close stops dispatch after the dispatcher drains queued events, then
// releases all subscribers.
func (b *eventBus) close() {
	b.queueMu.Lock()
	if b.closed {
		b.queueMu.Unlock()
		<-b.drained
		return
	}
	b.closed = true
	b.queueMu.Unlock()
	b.cond.Signal()
	<-b.drained

	b.mu.Lock()
	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}
