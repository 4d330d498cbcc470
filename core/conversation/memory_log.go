package conversation

import (
	"context"
	"sort"
	"sync"

	"github.com/leynos/baton/core/identity"
)

// MemoryLog is a volatile MessageLog keeping everything in process-local
// maps under one RWMutex. Safe for concurrent use; suited to tests and
// ephemeral deployments. Messages are cloned on the way in and out so
// callers cannot alias stored state.
type MemoryLog struct {
	mu      sync.RWMutex
	byID    map[identity.MessageID]*Message
	bySlot  map[identity.ConversationID]map[identity.SequenceNumber]identity.MessageID
	highest map[identity.ConversationID]identity.SequenceNumber
}

// NewMemoryLog constructs an empty in-memory message log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		byID:    make(map[identity.MessageID]*Message),
		bySlot:  make(map[identity.ConversationID]map[identity.SequenceNumber]identity.MessageID),
		highest: make(map[identity.ConversationID]identity.SequenceNumber),
	}
}

// NextSequenceNumber returns max(stored)+1, or 1 for an empty conversation.
func (l *MemoryLog) NextSequenceNumber(ctx context.Context, conversationID identity.ConversationID) (identity.SequenceNumber, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.highest[conversationID] + 1, nil
}

// Store inserts the message, enforcing both uniqueness keys under one
// critical section so no caller observes a partial insert.
func (l *MemoryLog) Store(ctx context.Context, msg *Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byID[msg.ID]; exists {
		return &DuplicateMessageError{MessageID: msg.ID}
	}
	slots := l.bySlot[msg.ConversationID]
	if _, taken := slots[msg.SequenceNumber]; taken {
		return &DuplicateSequenceError{ConversationID: msg.ConversationID, SequenceNumber: msg.SequenceNumber}
	}

	if slots == nil {
		slots = make(map[identity.SequenceNumber]identity.MessageID)
		l.bySlot[msg.ConversationID] = slots
	}
	stored := msg.Clone()
	l.byID[stored.ID] = stored
	slots[stored.SequenceNumber] = stored.ID
	if stored.SequenceNumber > l.highest[stored.ConversationID] {
		l.highest[stored.ConversationID] = stored.SequenceNumber
	}
	return nil
}

// FindByID returns a clone of the stored message or ErrMessageNotFound.
func (l *MemoryLog) FindByID(ctx context.Context, id identity.MessageID) (*Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	msg, ok := l.byID[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return msg.Clone(), nil
}

// Exists reports whether the message ID is stored.
func (l *MemoryLog) Exists(ctx context.Context, id identity.MessageID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.byID[id]
	return ok, nil
}

// FindByConversation returns clones of the conversation's messages in
// ascending sequence order.
func (l *MemoryLog) FindByConversation(ctx context.Context, conversationID identity.ConversationID) ([]*Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	slots := l.bySlot[conversationID]
	seqs := make([]identity.SequenceNumber, 0, len(slots))
	for seq := range slots {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	out := make([]*Message, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, l.byID[slots[seq]].Clone())
	}
	return out, nil
}

var _ MessageLog = (*MemoryLog)(nil)
