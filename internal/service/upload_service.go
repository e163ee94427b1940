package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mindbehind/converse-go/internal/dto"
	"github.com/mindbehind/converse-go/internal/observability"
	"github.com/mindbehind/converse-go/internal/transport"
)

var (
	// ErrUploadTooLarge indicates the media blob exceeded the configured limit.
	ErrUploadTooLarge = errors.New("media exceeds maximum allowed size")
	// ErrMediaNotImage indicates a blob sent as an image is not one.
	ErrMediaNotImage = errors.New("media is not an image")
	// ErrNoConversation indicates the backend failed to create a conversation.
	ErrNoConversation = errors.New("no conversation available")
)

// UploadPipeline executes send, media upload, and postback operations against
// the transport. It owns lazy conversation creation and classifies results;
// store mutation and event emission stay with the session.
type UploadPipeline struct {
	transport transport.Transport
	validate  *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	maxSize   int64

	// createMu serializes lazy conversation creation so concurrent first
	// sends produce exactly one conversation.
	createMu sync.Mutex

	mu             sync.Mutex
	conversationID string
	// adopt is invoked with the snapshot of a newly created conversation.
	adopt             func(payload dto.ConversationPayload)
	postbacksInFlight map[string]struct{}
}

// NewUploadPipeline constructs a pipeline. adopt is called when lazy creation
// produces a conversation snapshot the session should merge.
func NewUploadPipeline(tp transport.Transport, maxSizeMB int, validate *validator.Validate, adopt func(payload dto.ConversationPayload), logger zerolog.Logger) *UploadPipeline {
	if maxSizeMB <= 0 {
		maxSizeMB = 25
	}
	return &UploadPipeline{
		transport:         tp,
		validate:          validate,
		logger:            logger.With().Str("component", "upload_pipeline").Logger(),
		tracer:            otel.Tracer("github.com/mindbehind/converse-go/internal/service/upload"),
		maxSize:           int64(maxSizeMB) * 1024 * 1024,
		adopt:             adopt,
		postbacksInFlight: make(map[string]struct{}),
	}
}

// SetConversationID seeds the pipeline with a known conversation, skipping
// lazy creation.
func (p *UploadPipeline) SetConversationID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversationID = id
}

// ConversationID returns the current conversation id, possibly empty.
func (p *UploadPipeline) ConversationID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conversationID
}

// Send posts a message payload and returns the server-assigned message.
func (p *UploadPipeline) Send(ctx context.Context, req dto.SendMessageRequest) (dto.MessagePayload, error) {
	conversationID, err := p.ensureConversation(ctx)
	if err != nil {
		observability.MessagesSent().WithLabelValues(req.Type, "failed").Inc()
		return dto.MessagePayload{}, err
	}

	if err := p.validate.Struct(req); err != nil {
		observability.MessagesSent().WithLabelValues(req.Type, "rejected").Inc()
		return dto.MessagePayload{}, err
	}

	ctx, span := p.tracer.Start(ctx, "conversation.send", trace.WithAttributes(
		attribute.String("message.type", req.Type),
		attribute.String("conversation.id", conversationID),
	))
	defer span.End()

	payload, err := p.transport.SendMessage(ctx, conversationID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		observability.MessagesSent().WithLabelValues(req.Type, "failed").Inc()
		return dto.MessagePayload{}, err
	}

	span.SetStatus(codes.Ok, "sent")
	observability.MessagesSent().WithLabelValues(req.Type, "sent").Inc()
	return payload, nil
}

// SendMedia validates and uploads a blob, reporting monotonically
// non-decreasing progress in [0,1]. The final 1.0 update is delivered before
// SendMedia returns a success.
func (p *UploadPipeline) SendMedia(ctx context.Context, media transport.Media, progress transport.ProgressFunc) (dto.MessagePayload, error) {
	conversationID, err := p.ensureConversation(ctx)
	if err != nil {
		return dto.MessagePayload{}, err
	}

	ctx, span := p.tracer.Start(ctx, "conversation.upload", trace.WithAttributes(
		attribute.String("media.kind", string(media.Kind)),
		attribute.String("media.name", media.Name),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, io.LimitReader(media.Reader, p.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.MessagePayload{}, transport.NewConnectivityError(err)
	}
	if int64(buf.Len()) > p.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.MessagePayload{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("media.detected_mime", detected.String()))
	if media.Kind == transport.MediaKindImage && !strings.HasPrefix(detected.String(), "image/") {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.SetStatus(codes.Error, "not an image")
		return dto.MessagePayload{}, ErrMediaNotImage
	}

	clamped := newMonotonicProgress(progress)
	upload := transport.Media{
		Name:   media.Name,
		Kind:   media.Kind,
		Reader: bytes.NewReader(buf.Bytes()),
		Size:   int64(buf.Len()),
	}

	payload, err := p.transport.UploadMedia(ctx, conversationID, upload, clamped.report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return dto.MessagePayload{}, err
	}

	// Completion must be preceded by the terminal progress update even when
	// the transport never reported byte progress.
	clamped.report(1.0)
	span.SetStatus(codes.Ok, "uploaded")
	return payload, nil
}

// Postback notifies the backend that the user triggered a postback action.
// While a postback for an action is in flight, further postbacks for the
// same action are no-ops.
func (p *UploadPipeline) Postback(ctx context.Context, actionID, payload string) error {
	conversationID, err := p.ensureConversation(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if _, inFlight := p.postbacksInFlight[actionID]; inFlight {
		p.mu.Unlock()
		p.logger.Debug().Str("action_id", actionID).Msg("postback already in flight")
		return nil
	}
	p.postbacksInFlight[actionID] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.postbacksInFlight, actionID)
		p.mu.Unlock()
	}()

	req := dto.PostbackRequest{ActionID: actionID, Payload: payload}
	if err := p.validate.Struct(req); err != nil {
		return err
	}

	ctx, span := p.tracer.Start(ctx, "conversation.postback", trace.WithAttributes(
		attribute.String("action.id", actionID),
	))
	defer span.End()

	if err := p.transport.SendPostback(ctx, conversationID, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "postback failed")
		return err
	}
	span.SetStatus(codes.Ok, "delivered")
	return nil
}

// ensureConversation creates a conversation server-side on first use. The
// create call is serialized so concurrent first sends yield one conversation;
// creation is a backend no-op when one already exists.
func (p *UploadPipeline) ensureConversation(ctx context.Context) (string, error) {
	if id := p.ConversationID(); id != "" {
		return id, nil
	}

	p.createMu.Lock()
	defer p.createMu.Unlock()

	if id := p.ConversationID(); id != "" {
		return id, nil
	}

	payload, err := p.transport.CreateConversation(ctx)
	if err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", ErrNoConversation
	}

	p.mu.Lock()
	p.conversationID = payload.ID
	p.mu.Unlock()

	p.logger.Debug().Str("conversation_id", payload.ID).Msg("conversation created")
	if p.adopt != nil {
		p.adopt(payload)
	}
	return payload.ID, nil
}

// monotonicProgress clamps transport progress so observers always see a
// non-decreasing value in [0,1].
type monotonicProgress struct {
	mu      sync.Mutex
	last    float64
	forward transport.ProgressFunc
}

func newMonotonicProgress(forward transport.ProgressFunc) *monotonicProgress {
	return &monotonicProgress{forward: forward}
}

func (m *monotonicProgress) report(progress float64) {
	if m.forward == nil {
		return
	}
	m.mu.Lock()
	if progress > 1 {
		progress = 1
	}
	if progress <= m.last {
		m.mu.Unlock()
		return
	}
	m.last = progress
	m.mu.Unlock()
	m.forward(progress)
}
