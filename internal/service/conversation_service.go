package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mindbehind/converse-go/internal/dto"
	"github.com/mindbehind/converse-go/internal/models"
	"github.com/mindbehind/converse-go/internal/observability"
	"github.com/mindbehind/converse-go/internal/store"
	"github.com/mindbehind/converse-go/internal/transport"
)

var (
	// ErrConversationInactive indicates the current user was removed from the
	// conversation; sends fail fast without a transport call.
	ErrConversationInactive = errors.New("conversation is inactive for the current user")
	// ErrSessionClosed indicates the session was torn down.
	ErrSessionClosed = errors.New("conversation session is closed")
	// ErrNotFailed indicates a retry was requested for a message that is not
	// in the failed state.
	ErrNotFailed = errors.New("message is not in the failed state")
	// ErrUnknownMessage indicates a message lookup by local id found nothing.
	ErrUnknownMessage = errors.New("message not found")
)

// SessionConfig carries the session's tunables.
type SessionConfig struct {
	UserID            string
	HistoryPageSize   int
	TypingIdleTimeout time.Duration
	UploadMaxSizeMB   int
}

// ConversationSession is the single entry point to one user's conversation.
//
// All mutation of conversation state funnels through one ordering domain:
// a session-wide lock serializes store mutation and event enqueueing, and a
// single dispatcher goroutine delivers events in that order. Network calls
// run concurrently outside the lock; only the application of their results
// is serialized.
type ConversationSession interface {
	// SendMessage optimistically inserts the message and uploads it in the
	// background. The returned copy reflects the optimistic (unsent) state
	// and is already visible through Messages.
	SendMessage(message *models.Message) (models.Message, error)
	// SendImage uploads a blob as an image message with progress reporting.
	SendImage(name string, blob io.Reader) (models.Message, error)
	// SendFile uploads a blob as a file message with progress reporting.
	SendFile(name string, blob io.Reader) (models.Message, error)
	// CancelUpload aborts an in-flight upload; the message transitions to
	// failed and remains retryable.
	CancelUpload(localID string) bool
	// RetryMessage removes a failed message and sends a fresh one with the
	// same content under a new local id.
	RetryMessage(localID string) (models.Message, error)
	// Postback reports a postback action to the backend. Blocking.
	Postback(ctx context.Context, action models.MessageAction) error
	// LoadPreviousMessages fetches one older history page. A no-op while a
	// fetch is in flight or when history is exhausted.
	LoadPreviousMessages()
	// MarkAllAsRead clamps the unread count to zero.
	MarkAllAsRead()
	// StartTyping signals local typing; throttled to one outbound event per
	// quiet period.
	StartTyping()
	// StopTyping signals the end of local typing.
	StopTyping()

	// HandleEnvelope applies one realtime event. Used directly when the
	// embedding app drives ingress itself; envelopes must come from a single
	// goroutine so receipt order is preserved.
	HandleEnvelope(envelope transport.Envelope)

	// Refresh fetches the conversation snapshot and merges it.
	Refresh(ctx context.Context) error
	// Start begins consuming the realtime feed until ctx is cancelled.
	Start(ctx context.Context)
	// Close tears the session down: in-flight results are discarded via the
	// epoch guard, the typing timer is cancelled, observers are released.
	Close()

	SetDelegate(delegate *Delegate)
	Subscribe() (<-chan Event, func())

	ID() string
	DisplayName() string
	Metadata() map[string]string
	Messages() []models.Message
	MessageCount() int
	UnreadCount() int
	LastReadByPeer() time.Time
	Participants() []models.Participant
	HasPreviousMessages() bool
}

type conversationSession struct {
	cfg      SessionConfig
	pipeline *UploadPipeline
	merger   *ActivityMerger
	typing   *TypingCoordinator
	bus      *eventBus
	tp       transport.Transport
	realtime transport.RealtimeChannel
	validate *validator.Validate
	logger   zerolog.Logger
	tracer   trace.Tracer

	mu              sync.Mutex
	conv            *models.Conversation
	store           *store.MessageStore
	epoch           uint64
	closed          bool
	historyInFlight bool
	uploadCancels   map[string]context.CancelFunc

	// typingEvents feeds a single worker so outbound typing start/stop pairs
	// reach the transport in order without blocking the caller.
	typingEvents chan bool
	typingDone   chan struct{}
}

// NewConversationSession wires the engine's components behind the façade.
// realtime may be nil when the embedding app drives ingress itself through
// HandleEnvelope.
func NewConversationSession(tp transport.Transport, realtime transport.RealtimeChannel, cfg SessionConfig, validate *validator.Validate, logger zerolog.Logger) ConversationSession {
	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = 20
	}

	s := &conversationSession{
		cfg:           cfg,
		tp:            tp,
		realtime:      realtime,
		validate:      validate,
		logger:        logger.With().Str("component", "conversation_session").Logger(),
		tracer:        otel.Tracer("github.com/mindbehind/converse-go/internal/service/conversation"),
		conv:          models.NewConversation(),
		store:         store.New(),
		bus:           newEventBus(logger),
		merger:        NewActivityMerger(cfg.UserID, logger),
		uploadCancels: make(map[string]context.CancelFunc),
		typingEvents:  make(chan bool, 8),
		typingDone:    make(chan struct{}),
	}
	s.pipeline = NewUploadPipeline(tp, cfg.UploadMaxSizeMB, validate, s.adoptCreated, logger)
	s.typing = NewTypingCoordinator(cfg.TypingIdleTimeout, s.queueTyping, logger)
	go s.typingWorker()
	return s
}

// --- send path ---

func (s *conversationSession) SendMessage(message *models.Message) (models.Message, error) {
	prepared := s.applyWillSend(message)
	return s.enqueueSend(prepared)
}

func (s *conversationSession) SendImage(name string, blob io.Reader) (models.Message, error) {
	return s.enqueueMedia(name, blob, transport.MediaKindImage)
}

func (s *conversationSession) SendFile(name string, blob io.Reader) (models.Message, error) {
	return s.enqueueMedia(name, blob, transport.MediaKindFile)
}

// enqueueSend inserts the message optimistically and starts the background
// upload. The optimistic insert happens before this function returns, so an
// immediate read of Messages sees the new entry.
func (s *conversationSession) enqueueSend(message *models.Message) (models.Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Message{}, ErrSessionClosed
	}
	if !s.conv.Active {
		s.mu.Unlock()
		return models.Message{}, ErrConversationInactive
	}

	message.Status = models.UploadStatusSending
	s.store.Append(message)
	epoch := s.epoch
	snapshot := *message.Copy()
	s.bus.publish(Event{Kind: EventUploadStarted, Message: message.Copy()})
	s.mu.Unlock()

	go s.performSend(message.LocalID, snapshot, epoch)
	return snapshot, nil
}

func (s *conversationSession) performSend(localID string, snapshot models.Message, epoch uint64) {
	req := dto.NewSendMessageRequest(&snapshot)
	payload, err := s.pipeline.Send(context.Background(), req)
	s.resolveUpload(localID, payload, err, epoch)
}

func (s *conversationSession) enqueueMedia(name string, blob io.Reader, kind transport.MediaKind) (models.Message, error) {
	messageType := models.MessageTypeImage
	if kind == transport.MediaKindFile {
		messageType = models.MessageTypeFile
	}

	message := models.NewTextMessage("")
	message.Type = messageType
	if prepared := s.applyWillSend(message); prepared.Metadata != nil {
		// For media messages only metadata decoration is honoured.
		message.Metadata = prepared.Metadata
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Message{}, ErrSessionClosed
	}
	if !s.conv.Active {
		s.mu.Unlock()
		return models.Message{}, ErrConversationInactive
	}

	message.Status = models.UploadStatusSending
	s.store.Append(message)
	epoch := s.epoch
	uploadCtx, cancel := context.WithCancel(context.Background())
	s.uploadCancels[message.LocalID] = cancel
	snapshot := *message.Copy()
	s.bus.publish(Event{Kind: EventUploadStarted, Message: message.Copy()})
	s.mu.Unlock()

	go s.performMediaUpload(uploadCtx, message.LocalID, name, blob, kind, epoch)
	return snapshot, nil
}

func (s *conversationSession) performMediaUpload(ctx context.Context, localID, name string, blob io.Reader, kind transport.MediaKind, epoch uint64) {
	media := transport.Media{Name: name, Kind: kind, Reader: blob, Size: -1}
	payload, err := s.pipeline.SendMedia(ctx, media, func(progress float64) {
		s.publishProgress(localID, progress, epoch)
	})

	s.mu.Lock()
	if cancel, ok := s.uploadCancels[localID]; ok {
		delete(s.uploadCancels, localID)
		cancel()
	}
	s.mu.Unlock()

	s.resolveUpload(localID, payload, err, epoch)
}

// resolveUpload applies a terminal upload result to the store. Results from a
// previous epoch belong to a torn-down session and are discarded.
func (s *conversationSession) resolveUpload(localID string, payload dto.MessagePayload, err error, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != epoch {
		s.logger.Debug().Str("local_id", localID).Msg("discarding stale upload result")
		return
	}

	message, ok := s.store.ByLocalID(localID)
	if !ok {
		return
	}

	if err != nil {
		message.Status = models.UploadStatusFailed
		s.bus.publish(Event{Kind: EventUploadFailed, Message: message.Copy(), Err: err})
		return
	}

	if echo, ok := s.store.ByServerID(payload.ID); ok && echo.LocalID != localID {
		// The realtime feed echoed this message before the REST response
		// arrived, inserting it under the server id. Fold the echo into the
		// optimistic entry so no two entries share a server id.
		s.store.Remove(echo.LocalID)
	}
	message.ServerID = payload.ID
	message.Status = models.UploadStatusSent
	if payload.MediaURL != "" {
		message.MediaURL = payload.MediaURL
		message.MediaSize = payload.MediaSize
	}
	if payload.Received != 0 {
		message.Received = dto.UnixToTime(payload.Received)
	}
	if s.conv.ID == "" {
		s.conv.ID = s.pipeline.ConversationID()
	}
	// Reindex under the server id.
	s.store.Replace(localID, message)
	s.bus.publish(Event{Kind: EventUploadCompleted, Message: message.Copy()})
}

func (s *conversationSession) publishProgress(localID string, progress float64, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != epoch {
		return
	}
	message, ok := s.store.ByLocalID(localID)
	if !ok {
		return
	}
	s.bus.publish(Event{Kind: EventUploadProgress, Message: message.Copy(), Progress: progress})
}

func (s *conversationSession) CancelUpload(localID string) bool {
	s.mu.Lock()
	cancel, ok := s.uploadCancels[localID]
	delete(s.uploadCancels, localID)
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *conversationSession) RetryMessage(localID string) (models.Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Message{}, ErrSessionClosed
	}
	failed, ok := s.store.ByLocalID(localID)
	if !ok {
		s.mu.Unlock()
		return models.Message{}, ErrUnknownMessage
	}
	if failed.Status != models.UploadStatusFailed {
		s.mu.Unlock()
		return models.Message{}, ErrNotFailed
	}

	// Retry never mutates the failed entry in place: it is removed and a
	// fresh message with identical content takes its place at the tail.
	s.store.Remove(localID)
	fresh := failed.CloneForRetry()
	s.mu.Unlock()

	return s.enqueueSend(fresh)
}

func (s *conversationSession) Postback(ctx context.Context, action models.MessageAction) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()
	return s.pipeline.Postback(ctx, action.ID, action.Payload)
}

// --- pagination and read state ---

func (s *conversationSession) LoadPreviousMessages() {
	s.mu.Lock()
	if s.closed || s.historyInFlight || !s.store.HasMore() || s.conv.ID == "" {
		s.mu.Unlock()
		return
	}
	s.historyInFlight = true
	before := s.store.OldestTimestamp()
	conversationID := s.conv.ID
	epoch := s.epoch
	s.mu.Unlock()

	go s.fetchHistory(conversationID, before, epoch)
}

func (s *conversationSession) fetchHistory(conversationID string, before time.Time, epoch uint64) {
	ctx, span := s.tracer.Start(context.Background(), "conversation.history", trace.WithAttributes(
		attribute.String("conversation.id", conversationID),
		attribute.Int("page.size", s.cfg.HistoryPageSize),
	))
	defer span.End()

	start := time.Now()
	page, err := s.tp.FetchHistory(ctx, conversationID, before, s.cfg.HistoryPageSize)
	observability.HistoryLatency().Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != epoch {
		return
	}
	s.historyInFlight = false

	if err != nil {
		// The store is untouched on failure; only the failure event fires.
		span.RecordError(err)
		span.SetStatus(codes.Error, "history fetch failed")
		s.logger.Warn().Err(err).Msg("failed to load previous messages")
		s.bus.publish(Event{Kind: EventHistoryFailed, Err: err})
		return
	}
	span.SetStatus(codes.Ok, "fetched")

	older := make([]*models.Message, 0, len(page.Messages))
	for _, mp := range page.Messages {
		message := mp.ToModel(s.cfg.UserID, "")
		if message.Status == models.UploadStatusRemote {
			if displayed := s.applyWillDisplay(message); displayed != nil {
				message = displayed
			} else {
				continue
			}
		}
		older = append(older, message)
	}
	// The server's declared flag wins; a full page without it still implies
	// more may exist.
	full := page.HasPrevious || len(page.Messages) >= s.cfg.HistoryPageSize
	fresh := s.store.Prepend(older, full)

	copies := make([]models.Message, 0, len(fresh))
	for _, m := range fresh {
		copies = append(copies, *m.Copy())
	}
	s.bus.publish(Event{Kind: EventPreviousMessagesReceived, Messages: copies})
}

func (s *conversationSession) MarkAllAsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.store.MarkReadThrough(time.Time{}) {
		s.bus.publish(Event{Kind: EventUnreadCountChanged, UnreadCount: s.store.UnreadCount()})
	}
}

// --- typing ---

func (s *conversationSession) StartTyping() {
	s.typing.Start()
}

func (s *conversationSession) StopTyping() {
	s.typing.Stop()
}

// queueTyping hands a typing transition to the worker without blocking the
// coordinator. A full queue drops the event; typing state is advisory and
// self-heals on the next transition.
func (s *conversationSession) queueTyping(start bool) {
	select {
	case s.typingEvents <- start:
	default:
		s.logger.Debug().Bool("start", start).Msg("typing event queue full")
	}
}

func (s *conversationSession) typingWorker() {
	for {
		select {
		case <-s.typingDone:
			return
		case start := <-s.typingEvents:
			s.emitTyping(start)
		}
	}
}

// emitTyping performs the outbound typing event. Failures are logged and
// dropped.
func (s *conversationSession) emitTyping(start bool) {
	conversationID := s.pipeline.ConversationID()
	if conversationID == "" {
		return
	}

	activityType := models.ActivityTypingStop
	if start {
		activityType = models.ActivityTypingStart
	}
	req := dto.TypingActivityRequest{Type: string(activityType), Role: models.RoleAppUser}
	if err := s.validate.Struct(req); err != nil {
		s.logger.Error().Err(err).Msg("invalid typing activity request")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.tp.SendActivity(ctx, conversationID, req); err != nil {
		s.logger.Debug().Err(err).Bool("start", start).Msg("failed to send typing event")
	}
}

// --- realtime ingress ---

func (s *conversationSession) Start(ctx context.Context) {
	if s.realtime == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case envelope, ok := <-s.realtime.Events():
				if !ok {
					return
				}
				s.HandleEnvelope(envelope)
			}
		}
	}()
}

// HandleEnvelope applies one realtime event. Callers must deliver envelopes
// from a single goroutine; receipt order is the only ordering the engine
// relies on.
func (s *conversationSession) HandleEnvelope(envelope transport.Envelope) {
	switch envelope.Type {
	case transport.EnvelopeMessage:
		s.handleRemoteMessage(envelope.Message)
	case transport.EnvelopeActivity:
		s.handleActivity(envelope.Activity)
	}
}

func (s *conversationSession) handleRemoteMessage(payload dto.MessagePayload) {
	message := payload.ToModel(s.cfg.UserID, "")
	if message.Author.IsCurrentUser {
		// Echo of an own message sent from this or another device: merge by
		// server id, never duplicate.
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		if s.store.Append(message) {
			s.bus.publish(Event{Kind: EventMessagesReceived, Messages: []models.Message{*message.Copy()}})
		}
		return
	}

	displayed := s.applyWillDisplay(message)
	if displayed == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	inserted := s.store.Append(displayed)
	if !inserted {
		s.mu.Unlock()
		return
	}
	copies := []models.Message{*displayed.Copy()}
	s.bus.publish(Event{Kind: EventMessagesReceived, Messages: copies})
	s.bus.publish(Event{Kind: EventUnreadCountChanged, UnreadCount: s.store.UnreadCount()})
	notify := s.shouldNotify(*displayed.Copy())
	if notify {
		s.bus.publish(Event{Kind: EventNotification, Message: displayed.Copy()})
	}
	s.mu.Unlock()
}

func (s *conversationSession) handleActivity(payload dto.ActivityPayload) {
	activity, ok := payload.ToModel()
	if !ok {
		s.logger.Warn().Str("type", payload.Type).Msg("dropping malformed activity")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	outcome := s.merger.Apply(s.conv, activity)
	if !outcome.Applied {
		return
	}
	if outcome.Deactivated {
		s.logger.Info().Msg("current user removed from conversation; sends disabled")
	}
	activityCopy := activity
	s.bus.publish(Event{Kind: EventActivityReceived, Activity: &activityCopy})
}

// --- snapshot adoption ---

func (s *conversationSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	conversationID := s.conv.ID
	epoch := s.epoch
	s.mu.Unlock()

	payload, err := s.tp.FetchConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	s.adoptSnapshot(payload, epoch)
	return nil
}

// adoptCreated merges the snapshot produced by lazy conversation creation.
func (s *conversationSession) adoptCreated(payload dto.ConversationPayload) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()
	s.adoptSnapshot(payload, epoch)
}

func (s *conversationSession) adoptSnapshot(payload dto.ConversationPayload, epoch uint64) {
	refreshed := payload.ToModel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != epoch {
		return
	}

	s.conv.ID = refreshed.ID
	s.conv.DisplayName = refreshed.DisplayName
	s.conv.Metadata = refreshed.Metadata
	s.conv.LastUpdatedAt = refreshed.LastUpdatedAt
	if refreshed.LastReadByPeer.After(s.conv.LastReadByPeer) {
		s.conv.LastReadByPeer = refreshed.LastReadByPeer
	}
	for id, participant := range refreshed.Participants {
		s.conv.Participants[id] = participant
	}
	s.pipeline.SetConversationID(refreshed.ID)
	s.store.SetHasMore(payload.HasPrevious)

	received := make([]models.Message, 0, len(payload.Messages))
	for _, mp := range payload.Messages {
		message := mp.ToModel(s.cfg.UserID, "")
		if message.Status == models.UploadStatusRemote {
			if displayed := s.applyWillDisplay(message); displayed != nil {
				message = displayed
			} else {
				continue
			}
		}
		if s.store.Append(message) {
			received = append(received, *message.Copy())
		}
	}

	if len(received) > 0 {
		s.bus.publish(Event{Kind: EventMessagesReceived, Messages: received})
		s.bus.publish(Event{Kind: EventUnreadCountChanged, UnreadCount: s.store.UnreadCount()})
	}
}

// --- observers ---

func (s *conversationSession) SetDelegate(delegate *Delegate) {
	s.bus.setDelegate(delegate)
}

func (s *conversationSession) Subscribe() (<-chan Event, func()) {
	return s.bus.subscribe()
}

// applyWillSend runs the will-send hook outside the session lock; the hook
// must not call back into the session.
func (s *conversationSession) applyWillSend(message *models.Message) *models.Message {
	delegate := s.bus.currentDelegate()
	if delegate == nil || delegate.WillSend == nil {
		return message
	}
	modified := delegate.WillSend(*message.Copy())
	// The local identifier and authorship are not for the hook to change.
	modified.LocalID = message.LocalID
	modified.Author = message.Author
	modified.Status = message.Status
	return &modified
}

func (s *conversationSession) applyWillDisplay(message *models.Message) *models.Message {
	delegate := s.bus.currentDelegate()
	if delegate == nil || delegate.WillDisplay == nil {
		return message
	}
	displayed := delegate.WillDisplay(*message.Copy())
	if displayed == nil {
		return nil
	}
	displayed.LocalID = message.LocalID
	displayed.ServerID = message.ServerID
	displayed.Status = message.Status
	return displayed
}

func (s *conversationSession) shouldNotify(message models.Message) bool {
	delegate := s.bus.currentDelegate()
	if delegate == nil || delegate.ShouldShowNotification == nil {
		return true
	}
	return delegate.ShouldShowNotification(message)
}

// --- accessors ---

func (s *conversationSession) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.ID
}

func (s *conversationSession) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.DisplayName
}

func (s *conversationSession) Metadata() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.MetadataSnapshot()
}

func (s *conversationSession) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

func (s *conversationSession) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

func (s *conversationSession) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UnreadCount()
}

func (s *conversationSession) LastReadByPeer() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.LastReadByPeer
}

func (s *conversationSession) Participants() []models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.ParticipantSnapshot()
}

func (s *conversationSession) HasPreviousMessages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.HasMore()
}

// --- teardown ---

func (s *conversationSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	cancels := make([]context.CancelFunc, 0, len(s.uploadCancels))
	for _, cancel := range s.uploadCancels {
		cancels = append(cancels, cancel)
	}
	s.uploadCancels = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.typing.Close()
	close(s.typingDone)
	if s.realtime != nil {
		_ = s.realtime.Close()
	}
	s.bus.close()
	s.logger.Debug().Msg("conversation session closed")
}
