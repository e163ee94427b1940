package models

import "time"

// Conversation is the aggregate root for one dialogue between the current
// user and the business. It is exclusively owned by the conversation session;
// everything handed outward is a copy.
type Conversation struct {
	// ID is empty until the first message creates the conversation server-side.
	ID             string
	DisplayName    string
	Metadata       map[string]string
	LastReadByPeer time.Time
	LastUpdatedAt  time.Time
	// Active is false once the current user has been removed from the
	// conversation; further sends fail fast.
	Active       bool
	Participants map[string]*Participant
}

// NewConversation returns an empty, unidentified, active conversation.
func NewConversation() *Conversation {
	return &Conversation{
		Active:       true,
		Participants: make(map[string]*Participant),
	}
}

// ParticipantSnapshot returns a copy of the participant set.
func (c *Conversation) ParticipantSnapshot() []Participant {
	out := make([]Participant, 0, len(c.Participants))
	for _, p := range c.Participants {
		out = append(out, *p)
	}
	return out
}

// MetadataSnapshot returns a copy of the conversation metadata.
func (c *Conversation) MetadataSnapshot() map[string]string {
	if c.Metadata == nil {
		return nil
	}
	out := make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		out[k] = v
	}
	return out
}
