package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mindbehind/converse-go/internal/models"
)

func remoteMessage(serverID, text string, received time.Time) *models.Message {
	return &models.Message{
		LocalID:  serverID,
		ServerID: serverID,
		Text:     text,
		Type:     models.MessageTypeText,
		Author:   models.Author{Role: models.RoleAppMaker},
		Received: received,
		Status:   models.UploadStatusRemote,
	}
}

func TestAppendTracksUnreadForRemoteMessages(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	require.True(t, s.Append(remoteMessage("m1", "hello", now)))
	require.True(t, s.Append(models.NewTextMessage("hi")))

	require.Equal(t, 2, s.Len())
	require.Equal(t, 1, s.UnreadCount())
}

func TestAppendMergesDuplicateServerID(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	require.True(t, s.Append(remoteMessage("m1", "hello", now)))
	require.False(t, s.Append(remoteMessage("m1", "hello again", now)))

	require.Equal(t, 1, s.Len())
	m, ok := s.ByServerID("m1")
	require.True(t, ok)
	require.Equal(t, "hello again", m.Text)
}

func TestPrependDeduplicatesAndOrdersOldestFirst(t *testing.T) {
	s := New()
	base := time.Now().UTC()
	require.True(t, s.Append(remoteMessage("m3", "newest", base)))

	page := []*models.Message{
		remoteMessage("m1", "oldest", base.Add(-2*time.Minute)),
		remoteMessage("m2", "older", base.Add(-time.Minute)),
		remoteMessage("m3", "newest", base),
	}
	fresh := s.Prepend(page, true)

	require.Len(t, fresh, 2)
	require.Equal(t, 3, s.Len())
	snapshot := s.Snapshot()
	require.Equal(t, "m1", snapshot[0].ServerID)
	require.Equal(t, "m2", snapshot[1].ServerID)
	require.Equal(t, "m3", snapshot[2].ServerID)
	require.True(t, s.HasMore())
}

func TestPrependShortPageExhaustsHistory(t *testing.T) {
	s := New()
	require.True(t, s.HasMore())

	s.Prepend([]*models.Message{remoteMessage("m1", "only", time.Now().UTC())}, false)
	require.False(t, s.HasMore())

	// Prepended history does not count as unread.
	require.Equal(t, 0, s.UnreadCount())
}

func TestSetHasMoreOverridesPaginationFlag(t *testing.T) {
	s := New()
	require.True(t, s.HasMore())

	s.SetHasMore(false)
	require.False(t, s.HasMore())

	s.SetHasMore(true)
	require.True(t, s.HasMore())
}

func TestReplaceReindexesServerID(t *testing.T) {
	s := New()
	local := models.NewTextMessage("hi")
	require.True(t, s.Append(local))

	local.ServerID = "srv-1"
	local.Status = models.UploadStatusSent
	require.True(t, s.Replace(local.LocalID, local))

	m, ok := s.ByServerID("srv-1")
	require.True(t, ok)
	require.Equal(t, local.LocalID, m.LocalID)
	require.Equal(t, models.UploadStatusSent, m.Status)
}

func TestRemoveDropsMessageAndIndexes(t *testing.T) {
	s := New()
	local := models.NewTextMessage("hi")
	require.True(t, s.Append(local))

	removed := s.Remove(local.LocalID)
	require.NotNil(t, removed)
	require.Equal(t, 0, s.Len())
	_, ok := s.ByLocalID(local.LocalID)
	require.False(t, ok)
	require.Nil(t, s.Remove(local.LocalID))
}

func TestMarkReadThroughClampsByCutoff(t *testing.T) {
	s := New()
	base := time.Now().UTC()
	require.True(t, s.Append(remoteMessage("m1", "a", base.Add(-2*time.Hour))))
	require.True(t, s.Append(remoteMessage("m2", "b", base)))
	require.Equal(t, 2, s.UnreadCount())

	require.True(t, s.MarkReadThrough(base.Add(-time.Hour)))
	require.Equal(t, 1, s.UnreadCount())

	require.True(t, s.MarkReadThrough(time.Time{}))
	require.Equal(t, 0, s.UnreadCount())

	// Already zero: no-op.
	require.False(t, s.MarkReadThrough(time.Time{}))
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New()
	message := remoteMessage("m1", "original", time.Now().UTC())
	message.Metadata = map[string]string{"k": "v"}
	require.True(t, s.Append(message))

	snapshot := s.Snapshot()
	snapshot[0].Text = "mutated"
	snapshot[0].Metadata["k"] = "mutated"

	stored, ok := s.ByServerID("m1")
	require.True(t, ok)
	require.Equal(t, "original", stored.Text)
	require.Equal(t, "v", stored.Metadata["k"])
}

func TestOldestTimestamp(t *testing.T) {
	s := New()
	require.True(t, s.OldestTimestamp().IsZero())

	base := time.Now().UTC()
	require.True(t, s.Append(remoteMessage("m1", "a", base)))
	s.Prepend([]*models.Message{remoteMessage("m0", "older", base.Add(-time.Minute))}, true)

	require.Equal(t, base.Add(-time.Minute), s.OldestTimestamp())
}
