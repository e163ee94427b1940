package dto

import (
	"github.com/mindbehind/converse-go/internal/models"
)

// ConversationPayload is the wire representation of a conversation snapshot.
type ConversationPayload struct {
	ID               string               `json:"_id"`
	DisplayName      string               `json:"displayName,omitempty"`
	Metadata         map[string]string    `json:"metadata,omitempty"`
	AppMakerLastRead float64              `json:"appMakerLastRead,omitempty"`
	LastUpdatedAt    float64              `json:"lastUpdatedAt,omitempty"`
	Participants     []ParticipantPayload `json:"participants,omitempty"`
	Messages         []MessagePayload     `json:"messages,omitempty"`
	HasPrevious      bool                 `json:"hasPrevious"`
}

// ParticipantPayload is the wire representation of a conversation member.
type ParticipantPayload struct {
	UserID      string `json:"userId"`
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// HistoryPage is one page of older messages, oldest-first.
type HistoryPage struct {
	Messages    []MessagePayload `json:"messages"`
	HasPrevious bool             `json:"hasPrevious"`
}

// ActivityPayload is the wire representation of a realtime activity.
type ActivityPayload struct {
	Type             string            `json:"type"`
	Role             string            `json:"role,omitempty"`
	ConversationID   string            `json:"conversationId,omitempty"`
	AppUserID        string            `json:"appUserId,omitempty"`
	AppMakerLastRead float64           `json:"appMakerLastRead,omitempty"`
	Data             map[string]string `json:"data,omitempty"`
}

// TypingActivityRequest is the outbound payload for typing start/stop events.
type TypingActivityRequest struct {
	Type string `json:"type" validate:"required,oneof=typing:start typing:stop"`
	Role string `json:"role" validate:"required"`
}

// PostbackRequest is the outbound payload for an action postback.
type PostbackRequest struct {
	ActionID string `json:"actionId" validate:"required"`
	Payload  string `json:"payload,omitempty"`
}

// ToModel converts a conversation payload into the aggregate model. Message
// conversion is left to the caller so the store can own message insertion.
func (p ConversationPayload) ToModel() *models.Conversation {
	conv := models.NewConversation()
	conv.ID = p.ID
	conv.DisplayName = p.DisplayName
	conv.Metadata = p.Metadata
	conv.LastReadByPeer = UnixToTime(p.AppMakerLastRead)
	conv.LastUpdatedAt = UnixToTime(p.LastUpdatedAt)
	for _, part := range p.Participants {
		conv.Participants[part.UserID] = &models.Participant{
			UserID:      part.UserID,
			Role:        part.Role,
			DisplayName: part.DisplayName,
			AvatarURL:   part.AvatarURL,
		}
	}
	return conv
}

// ToModel converts an activity payload, reporting ok=false for unknown types.
func (p ActivityPayload) ToModel() (models.ConversationActivity, bool) {
	activity := models.ConversationActivity{
		Type:           models.ActivityType(p.Type),
		Role:           p.Role,
		ConversationID: p.ConversationID,
		ParticipantID:  p.AppUserID,
		PeerLastRead:   UnixToTime(p.AppMakerLastRead),
		Data:           p.Data,
	}
	return activity, activity.Valid()
}
