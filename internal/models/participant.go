package models

import "time"

// Participant is a member of the conversation, keyed by user identifier.
type Participant struct {
	UserID      string
	Role        string
	DisplayName string
	AvatarURL   string
	// Typing is a transient flag driven by typing activities. It is never
	// persisted and resets on conversation refresh.
	Typing bool
	// LastTypingAt records when the typing flag last changed.
	LastTypingAt time.Time
}
