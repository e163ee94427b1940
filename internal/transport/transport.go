package transport

import (
	"context"
	"io"
	"time"

	"github.com/mindbehind/converse-go/internal/dto"
)

// ProgressFunc receives upload progress in [0,1]. Implementations may report
// at any granularity; consumers clamp for monotonicity.
type ProgressFunc func(progress float64)

// MediaKind distinguishes image and file uploads.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindFile  MediaKind = "file"
)

// Media is a blob to upload together with its declared name.
type Media struct {
	Name   string
	Kind   MediaKind
	Reader io.Reader
	// Size in bytes when known, -1 otherwise. Progress reporting degrades to
	// a single final update when the size is unknown.
	Size int64
}

// Transport is the REST boundary of the engine. Implementations carry the
// authenticated session handle; the engine never sees credentials.
type Transport interface {
	// CreateConversation starts a conversation for the current user. It is a
	// no-op returning the existing snapshot if one already exists.
	CreateConversation(ctx context.Context) (dto.ConversationPayload, error)
	// FetchConversation retrieves the current snapshot. An empty id fetches
	// the user's default conversation.
	FetchConversation(ctx context.Context, id string) (dto.ConversationPayload, error)
	// SendMessage posts a message and returns the stored wire message with
	// its server-assigned identifier.
	SendMessage(ctx context.Context, conversationID string, req dto.SendMessageRequest) (dto.MessagePayload, error)
	// UploadMedia uploads a blob, reporting progress, and returns the created
	// media message.
	UploadMedia(ctx context.Context, conversationID string, media Media, progress ProgressFunc) (dto.MessagePayload, error)
	// FetchHistory returns up to limit messages strictly older than before,
	// oldest-first.
	FetchHistory(ctx context.Context, conversationID string, before time.Time, limit int) (dto.HistoryPage, error)
	// SendActivity publishes a typing start/stop event.
	SendActivity(ctx context.Context, conversationID string, req dto.TypingActivityRequest) error
	// SendPostback reports that the user triggered a postback action.
	SendPostback(ctx context.Context, conversationID string, req dto.PostbackRequest) error
}

// EnvelopeType discriminates realtime envelopes.
type EnvelopeType string

const (
	EnvelopeMessage  EnvelopeType = "message"
	EnvelopeActivity EnvelopeType = "activity"
)

// Envelope is one realtime event: either a pushed message or an activity.
type Envelope struct {
	Type     EnvelopeType
	Message  dto.MessagePayload
	Activity dto.ActivityPayload
}

// RealtimeChannel is an ordered, at-least-once feed of conversation events.
// Events must be consumed from a single goroutine to preserve receipt order.
type RealtimeChannel interface {
	// Events returns the inbound feed. The channel is closed when the
	// connection terminates permanently.
	Events() <-chan Envelope
	Close() error
}
