package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mindbehind/converse-go/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestPeerReadIsMonotonic(t *testing.T) {
	merger := NewActivityMerger("user-1", testLogger())
	conv := models.NewConversation()
	conv.ID = "c1"

	earlier := time.Now().UTC().Add(-time.Hour)
	later := earlier.Add(30 * time.Minute)

	out := merger.Apply(conv, models.ConversationActivity{Type: models.ActivityConversationRead, PeerLastRead: later})
	require.True(t, out.Applied)
	require.True(t, out.PeerReadChanged)
	require.Equal(t, later, conv.LastReadByPeer)

	// An out-of-order receipt must not move the clock back.
	out = merger.Apply(conv, models.ConversationActivity{Type: models.ActivityConversationRead, PeerLastRead: earlier})
	require.True(t, out.Applied)
	require.False(t, out.PeerReadChanged)
	require.Equal(t, later, conv.LastReadByPeer)

	// Duplicate delivery lands on the same state.
	out = merger.Apply(conv, models.ConversationActivity{Type: models.ActivityConversationRead, PeerLastRead: later})
	require.False(t, out.PeerReadChanged)
	require.Equal(t, later, conv.LastReadByPeer)
}

func TestTypingActivitiesToggleParticipantFlag(t *testing.T) {
	merger := NewActivityMerger("user-1", testLogger())
	conv := models.NewConversation()

	merger.Apply(conv, models.ConversationActivity{
		Type: models.ActivityTypingStart,
		Role: models.RoleAppMaker,
		Data: map[string]string{models.ActivityDataNameKey: "Support"},
	})
	participant, ok := conv.Participants[models.RoleAppMaker]
	require.True(t, ok)
	require.True(t, participant.Typing)
	require.Equal(t, "Support", participant.DisplayName)

	merger.Apply(conv, models.ConversationActivity{Type: models.ActivityTypingStop, Role: models.RoleAppMaker})
	require.False(t, participant.Typing)
}

func TestParticipantAddRemoveAreIdempotent(t *testing.T) {
	merger := NewActivityMerger("user-1", testLogger())
	conv := models.NewConversation()

	add := models.ConversationActivity{Type: models.ActivityParticipantAdded, ParticipantID: "agent-1", Role: models.RoleAppMaker}
	require.True(t, merger.Apply(conv, add).Applied)
	require.True(t, merger.Apply(conv, add).Applied)
	require.Len(t, conv.Participants, 1)

	remove := models.ConversationActivity{Type: models.ActivityParticipantRemoved, ParticipantID: "agent-1"}
	merger.Apply(conv, remove)
	merger.Apply(conv, remove)
	require.Empty(t, conv.Participants)
	require.True(t, conv.Active)
}

func TestRemovingCurrentUserDeactivatesConversation(t *testing.T) {
	merger := NewActivityMerger("user-1", testLogger())
	conv := models.NewConversation()

	out := merger.Apply(conv, models.ConversationActivity{Type: models.ActivityParticipantRemoved, ParticipantID: "user-1"})
	require.True(t, out.Deactivated)
	require.False(t, conv.Active)

	out = merger.Apply(conv, models.ConversationActivity{Type: models.ActivityConversationAdded})
	require.True(t, out.Applied)
	require.True(t, conv.Active)
}

func TestUnknownActivityIsDropped(t *testing.T) {
	merger := NewActivityMerger("user-1", testLogger())
	conv := models.NewConversation()

	out := merger.Apply(conv, models.ConversationActivity{Type: "conversation:exploded"})
	require.False(t, out.Applied)
}

func TestActivityForAnotherConversationIsDropped(t *testing.T) {
	merger := NewActivityMerger("user-1", testLogger())
	conv := models.NewConversation()
	conv.ID = "c1"

	out := merger.Apply(conv, models.ConversationActivity{
		Type:           models.ActivityConversationRead,
		ConversationID: "c2",
		PeerLastRead:   time.Now().UTC(),
	})
	require.False(t, out.Applied)
	require.True(t, conv.LastReadByPeer.IsZero())
}
