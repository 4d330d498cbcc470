package handoff

import (
	"sync"

	"github.com/leynos/baton/core/identity"
)

// conversationLocks serializes coordinator operations per conversation.
// Entries are reference counted and removed once the last holder
// releases, so the map does not grow with conversation count.
type conversationLocks struct {
	mu      sync.Mutex
	entries map[identity.ConversationID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{entries: make(map[identity.ConversationID]*lockEntry)}
}

// lock acquires the conversation's mutex, creating it on first use.
func (l *conversationLocks) lock(id identity.ConversationID) {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// unlock releases the conversation's mutex, dropping the entry when no
// other holder or waiter remains.
func (l *conversationLocks) unlock(id identity.ConversationID) {
	l.mu.Lock()
	entry := l.entries[id]
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, id)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}
