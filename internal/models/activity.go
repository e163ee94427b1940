package models

import "time"

// ActivityType identifies a transient conversation event. Activities are
// applied to conversation state and discarded; they are never stored as
// messages.
type ActivityType string

const (
	ActivityTypingStart         ActivityType = "typing:start"
	ActivityTypingStop          ActivityType = "typing:stop"
	ActivityConversationRead    ActivityType = "conversation:read"
	ActivityConversationAdded   ActivityType = "conversation:added"
	ActivityConversationRemoved ActivityType = "conversation:removed"
	ActivityParticipantAdded    ActivityType = "participant:added"
	ActivityParticipantRemoved  ActivityType = "participant:removed"
)

// Activity data keys exposing appMaker presentation fields.
const (
	ActivityDataNameKey      = "name"
	ActivityDataAvatarURLKey = "avatarUrl"
)

// ConversationActivity is an ephemeral realtime event.
type ConversationActivity struct {
	Type           ActivityType
	Role           string
	ConversationID string
	// ParticipantID is set for participant added/removed activities.
	ParticipantID string
	// PeerLastRead is set for conversation read activities.
	PeerLastRead time.Time
	Data         map[string]string
}

// Valid reports whether the activity type is one the engine understands.
func (a ConversationActivity) Valid() bool {
	switch a.Type {
	case ActivityTypingStart, ActivityTypingStop, ActivityConversationRead,
		ActivityConversationAdded, ActivityConversationRemoved,
		ActivityParticipantAdded, ActivityParticipantRemoved:
		return true
	default:
		return false
	}
}
