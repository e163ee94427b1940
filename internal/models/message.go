package models

import (
	"time"

	"github.com/google/uuid"
)

// Message types supported by the engine. Types outside this set are still
// stored and exposed so the embedding app can render TextFallback.
const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeFile     = "file"
	MessageTypeLocation = "location"
	MessageTypeCarousel = "carousel"
	MessageTypeList     = "list"
)

// Author roles as reported by the backend.
const (
	RoleAppUser  = "appUser"
	RoleAppMaker = "appMaker"
	RoleWhisper  = "whisper"
)

// UploadStatus tracks the lifecycle of a locally-authored message.
type UploadStatus int

const (
	// UploadStatusUnsent is a user message that has not yet started uploading.
	UploadStatusUnsent UploadStatus = iota
	// UploadStatusSending is a user message with an upload in flight.
	UploadStatusSending
	// UploadStatusFailed is a user message whose upload failed. Failed messages
	// stay in the store so they remain visible and retryable.
	UploadStatusFailed
	// UploadStatusSent is a user message acknowledged by the backend.
	UploadStatusSent
	// UploadStatusRemote is a message that did not originate from the current
	// user. Remote messages never transition.
	UploadStatusRemote
)

func (s UploadStatus) String() string {
	switch s {
	case UploadStatusUnsent:
		return "unsent"
	case UploadStatusSending:
		return "sending"
	case UploadStatusFailed:
		return "failed"
	case UploadStatusSent:
		return "sent"
	case UploadStatusRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status admits no further transitions.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusSent || s == UploadStatusRemote
}

// Coordinates is a geographic point for messages of type location.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"long"`
}

// DisplaySettings adjusts carousel layout.
type DisplaySettings struct {
	// ImageAspectRatio is "horizontal" or "square". Empty means renderer default.
	ImageAspectRatio string `json:"imageAspectRatio,omitempty"`
}

// Image aspect ratios for carousel display settings.
const (
	ImageAspectRatioHorizontal = "horizontal"
	ImageAspectRatioSquare     = "square"
)

// Author describes who wrote a message.
type Author struct {
	IsCurrentUser bool   `json:"isCurrentUser"`
	Role          string `json:"role,omitempty"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
}

// Message is one turn of the conversation.
//
// LocalID is assigned at creation and never changes; it is the merge key until
// the backend assigns ServerID. ServerID, once set, is immutable.
type Message struct {
	LocalID      string
	ServerID     string
	Text         string
	TextFallback string
	Payload      string
	Type         string
	Author       Author
	Received     time.Time
	Status       UploadStatus
	MediaURL     string
	MediaSize    int64
	Coordinates  *Coordinates
	Display      *DisplaySettings
	Actions      []MessageAction
	Items        []MessageItem
	Metadata     map[string]string
}

// NewTextMessage creates a user-authored text message in the unsent state.
func NewTextMessage(text string) *Message {
	return &Message{
		LocalID:  uuid.NewString(),
		Text:     text,
		Type:     MessageTypeText,
		Author:   Author{IsCurrentUser: true, Role: RoleAppUser},
		Received: time.Now().UTC(),
		Status:   UploadStatusUnsent,
	}
}

// NewLocationMessage creates a user-authored location message in the unsent state.
func NewLocationMessage(coords Coordinates, payload string, metadata map[string]string) *Message {
	m := NewTextMessage("")
	m.Type = MessageTypeLocation
	m.Coordinates = &coords
	m.Payload = payload
	m.Metadata = metadata
	return m
}

// CloneForRetry builds a fresh unsent message carrying the same content as m.
// The clone gets a new local identifier so failure history is never replayed
// under the old one.
func (m *Message) CloneForRetry() *Message {
	c := m.Copy()
	c.LocalID = uuid.NewString()
	c.ServerID = ""
	c.Status = UploadStatusUnsent
	c.Received = time.Now().UTC()
	return c
}

// Copy returns a deep copy of the message. Snapshots handed to observers are
// copies so no caller can mutate engine state.
func (m *Message) Copy() *Message {
	c := *m
	if m.Coordinates != nil {
		coords := *m.Coordinates
		c.Coordinates = &coords
	}
	if m.Display != nil {
		display := *m.Display
		c.Display = &display
	}
	if m.Actions != nil {
		c.Actions = make([]MessageAction, len(m.Actions))
		copy(c.Actions, m.Actions)
	}
	if m.Items != nil {
		c.Items = make([]MessageItem, len(m.Items))
		for i, item := range m.Items {
			c.Items[i] = item.copy()
		}
	}
	if m.Metadata != nil {
		c.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
