// Package store owns the ordered message sequence for one conversation.
//
// The store is not goroutine-safe: the conversation session serializes every
// mutation and every read behind its ordering domain, so adding locking here
// would only hide misuse.
package store

import (
	"time"

	"github.com/mindbehind/converse-go/internal/models"
)

// MessageStore keeps messages oldest-first, indexed by local and server id.
type MessageStore struct {
	messages []*models.Message
	byLocal  map[string]*models.Message
	byServer map[string]*models.Message
	// unread holds the local ids of peer-authored messages not yet read by
	// the current user.
	unread  map[string]struct{}
	hasMore bool
}

// New returns an empty store. hasMore starts true: until the first page is
// fetched the engine cannot know the history is exhausted.
func New() *MessageStore {
	return &MessageStore{
		byLocal:  make(map[string]*models.Message),
		byServer: make(map[string]*models.Message),
		unread:   make(map[string]struct{}),
		hasMore:  true,
	}
}

// Append inserts a message at the tail. Messages whose server id is already
// present are merged into the existing entry instead of duplicated, which
// makes at-least-once realtime delivery safe.
func (s *MessageStore) Append(message *models.Message) bool {
	if message.ServerID != "" {
		if existing, ok := s.byServer[message.ServerID]; ok {
			s.merge(existing, message)
			return false
		}
	}
	if message.LocalID == "" {
		message.LocalID = message.ServerID
	}
	s.messages = append(s.messages, message)
	s.index(message)
	if message.Status == models.UploadStatusRemote {
		s.unread[message.LocalID] = struct{}{}
	}
	return true
}

// Prepend merges a page of older messages at the head, de-duplicating against
// the current contents by server id. full reports the page's completeness:
// the fetcher saw fewer messages than it requested means the history is
// exhausted and further pagination is a no-op.
//
// The page must be oldest-first. Returns the messages actually inserted.
func (s *MessageStore) Prepend(page []*models.Message, full bool) []*models.Message {
	fresh := make([]*models.Message, 0, len(page))
	for _, message := range page {
		if message.ServerID != "" {
			if _, ok := s.byServer[message.ServerID]; ok {
				continue
			}
		}
		if message.LocalID == "" {
			message.LocalID = message.ServerID
		}
		fresh = append(fresh, message)
	}

	if len(fresh) > 0 {
		s.messages = append(fresh, s.messages...)
		for _, message := range fresh {
			s.index(message)
		}
	}

	s.hasMore = full
	return fresh
}

// Replace swaps the message identified by localID for the given message,
// keeping its position. Used for upload state transitions.
func (s *MessageStore) Replace(localID string, message *models.Message) bool {
	existing, ok := s.byLocal[localID]
	if !ok {
		return false
	}
	for i, m := range s.messages {
		if m == existing {
			s.messages[i] = message
			break
		}
	}
	s.unindex(existing)
	if message.LocalID == "" {
		message.LocalID = localID
	}
	s.index(message)
	return true
}

// Remove deletes the message identified by localID.
func (s *MessageStore) Remove(localID string) *models.Message {
	existing, ok := s.byLocal[localID]
	if !ok {
		return nil
	}
	for i, m := range s.messages {
		if m == existing {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	s.unindex(existing)
	return existing
}

// ByLocalID looks a message up by its local identifier.
func (s *MessageStore) ByLocalID(localID string) (*models.Message, bool) {
	m, ok := s.byLocal[localID]
	return m, ok
}

// ByServerID looks a message up by its server-assigned identifier.
func (s *MessageStore) ByServerID(serverID string) (*models.Message, bool) {
	m, ok := s.byServer[serverID]
	return m, ok
}

// MarkReadThrough clears the unread flag for every peer message dated at or
// before the cutoff. A zero cutoff clears everything. Returns true if the
// unread count changed.
func (s *MessageStore) MarkReadThrough(cutoff time.Time) bool {
	if len(s.unread) == 0 {
		return false
	}
	changed := false
	for localID := range s.unread {
		message, ok := s.byLocal[localID]
		if !ok {
			delete(s.unread, localID)
			changed = true
			continue
		}
		if cutoff.IsZero() || !message.Received.After(cutoff) {
			delete(s.unread, localID)
			changed = true
		}
	}
	return changed
}

// UnreadCount returns the number of unread peer messages.
func (s *MessageStore) UnreadCount() int {
	return len(s.unread)
}

// Len returns the total message count.
func (s *MessageStore) Len() int {
	return len(s.messages)
}

// HasMore reports whether an older history page may still exist.
func (s *MessageStore) HasMore() bool {
	return s.hasMore
}

// SetHasMore overrides the pagination flag with a server-declared value,
// typically from a conversation snapshot.
func (s *MessageStore) SetHasMore(hasMore bool) {
	s.hasMore = hasMore
}

// OldestTimestamp returns the receive time of the oldest stored message, or
// zero when the store is empty.
func (s *MessageStore) OldestTimestamp() time.Time {
	if len(s.messages) == 0 {
		return time.Time{}
	}
	return s.messages[0].Received
}

// Snapshot returns deep copies of all messages, oldest-first.
func (s *MessageStore) Snapshot() []models.Message {
	out := make([]models.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, *m.Copy())
	}
	return out
}

func (s *MessageStore) index(message *models.Message) {
	if message.LocalID != "" {
		s.byLocal[message.LocalID] = message
	}
	if message.ServerID != "" {
		s.byServer[message.ServerID] = message
	}
}

func (s *MessageStore) unindex(message *models.Message) {
	if message.LocalID != "" {
		delete(s.byLocal, message.LocalID)
	}
	if message.ServerID != "" {
		delete(s.byServer, message.ServerID)
	}
	delete(s.unread, message.LocalID)
}

// merge folds a duplicate delivery into the stored entry. Server state wins
// for content fields; the local id and unread flag are preserved.
func (s *MessageStore) merge(existing, incoming *models.Message) {
	localID := existing.LocalID
	status := existing.Status
	*existing = *incoming
	existing.LocalID = localID
	if status.Terminal() {
		existing.Status = status
	}
	s.byLocal[localID] = existing
}
