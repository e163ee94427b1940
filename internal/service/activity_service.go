package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mindbehind/converse-go/internal/models"
	"github.com/mindbehind/converse-go/internal/observability"
)

// ActivityMerger applies realtime activities to conversation state.
//
// Application is idempotent: the realtime feed delivers at least once, so a
// duplicate activity must land on the same state. Read receipts take the max
// timestamp, participant changes are set operations, and typing flags are
// level-triggered. Callers serialize Apply through the session's ordering
// domain; activities are applied strictly in receipt order.
type ActivityMerger struct {
	currentUserID string
	logger        zerolog.Logger
}

// NewActivityMerger constructs a merger for the given current user.
func NewActivityMerger(currentUserID string, logger zerolog.Logger) *ActivityMerger {
	return &ActivityMerger{
		currentUserID: currentUserID,
		logger:        logger.With().Str("component", "activity_merger").Logger(),
	}
}

// MergeOutcome reports what an activity changed.
type MergeOutcome struct {
	Applied bool
	// PeerReadChanged is set when lastReadByPeer advanced.
	PeerReadChanged bool
	// Deactivated is set when the current user was removed from the
	// conversation; subsequent sends must fail fast.
	Deactivated bool
}

// Apply mutates the conversation according to the activity. Malformed or
// unknown activities are dropped with a diagnostic, never fatal.
func (m *ActivityMerger) Apply(conv *models.Conversation, activity models.ConversationActivity) MergeOutcome {
	if !activity.Valid() {
		m.logger.Warn().Str("type", string(activity.Type)).Msg("dropping unknown activity")
		return MergeOutcome{}
	}
	if activity.ConversationID != "" && conv.ID != "" && activity.ConversationID != conv.ID {
		m.logger.Debug().
			Str("activity_conversation", activity.ConversationID).
			Str("conversation", conv.ID).
			Msg("dropping activity for another conversation")
		return MergeOutcome{}
	}

	outcome := MergeOutcome{Applied: true}
	switch activity.Type {
	case models.ActivityTypingStart:
		m.setTyping(conv, activity, true)
	case models.ActivityTypingStop:
		m.setTyping(conv, activity, false)
	case models.ActivityConversationRead:
		// Out-of-order and duplicate receipts must not move the clock back.
		if activity.PeerLastRead.After(conv.LastReadByPeer) {
			conv.LastReadByPeer = activity.PeerLastRead
			outcome.PeerReadChanged = true
		}
	case models.ActivityConversationAdded:
		conv.Active = true
	case models.ActivityConversationRemoved:
		conv.Active = false
		outcome.Deactivated = true
	case models.ActivityParticipantAdded:
		outcome.Applied = m.addParticipant(conv, activity)
	case models.ActivityParticipantRemoved:
		if activity.ParticipantID == m.currentUserID {
			conv.Active = false
			outcome.Deactivated = true
		}
		delete(conv.Participants, activity.ParticipantID)
	}

	if !outcome.Applied {
		return outcome
	}
	conv.LastUpdatedAt = time.Now().UTC()
	observability.ActivitiesApplied().WithLabelValues(string(activity.Type)).Inc()
	return outcome
}

func (m *ActivityMerger) setTyping(conv *models.Conversation, activity models.ConversationActivity, typing bool) {
	id := activity.ParticipantID
	if id == "" {
		// Business-side typing carries a role but no participant id.
		id = activity.Role
	}
	participant, ok := conv.Participants[id]
	if !ok {
		participant = &models.Participant{UserID: id, Role: activity.Role}
		conv.Participants[id] = participant
	}
	participant.Typing = typing
	participant.LastTypingAt = time.Now().UTC()
	if name, ok := activity.Data[models.ActivityDataNameKey]; ok {
		participant.DisplayName = name
	}
	if avatar, ok := activity.Data[models.ActivityDataAvatarURLKey]; ok {
		participant.AvatarURL = avatar
	}
}

func (m *ActivityMerger) addParticipant(conv *models.Conversation, activity models.ConversationActivity) bool {
	if activity.ParticipantID == "" {
		m.logger.Warn().Msg("dropping participant activity without id")
		return false
	}
	if _, ok := conv.Participants[activity.ParticipantID]; ok {
		return true
	}
	participant := &models.Participant{
		UserID: activity.ParticipantID,
		Role:   activity.Role,
	}
	if name, ok := activity.Data[models.ActivityDataNameKey]; ok {
		participant.DisplayName = name
	}
	if avatar, ok := activity.Data[models.ActivityDataAvatarURLKey]; ok {
		participant.AvatarURL = avatar
	}
	conv.Participants[activity.ParticipantID] = participant
	return true
}
