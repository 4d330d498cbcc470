package conversation

import (
	"context"

	"github.com/dgraph-io/ristretto"

	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// Cached Message Log
// =============================================================================
//
// CachedLog layers a ristretto hot tier over another MessageLog for the
// by-ID read path. Stored messages are immutable, so an ID-keyed cache
// never serves stale data; writes and conversation scans pass straight
// through to the backing log.

const (
	defaultCacheNumCounters = 1e6
	defaultCacheMaxCost     = 64 << 20 // 64MB
	defaultCacheBufferItems = 64
)

// CacheConfig tunes the hot tier. Zero fields fall back to defaults.
type CacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

func (c CacheConfig) withDefaults() CacheConfig {
	if c.NumCounters <= 0 {
		c.NumCounters = defaultCacheNumCounters
	}
	if c.MaxCost <= 0 {
		c.MaxCost = defaultCacheMaxCost
	}
	if c.BufferItems <= 0 {
		c.BufferItems = defaultCacheBufferItems
	}
	return c
}

// CachedLog wraps a MessageLog with an in-process read cache.
type CachedLog struct {
	backing MessageLog
	cache   *ristretto.Cache
}

// NewCachedLog wraps backing with a ristretto cache.
func NewCachedLog(backing MessageLog, cfg CacheConfig) (*CachedLog, error) {
	cfg = cfg.withDefaults()
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &CachedLog{backing: backing, cache: cache}, nil
}

// Close releases the cache. The backing log is left open.
func (l *CachedLog) Close() {
	l.cache.Close()
}

// NextSequenceNumber delegates to the backing log.
func (l *CachedLog) NextSequenceNumber(ctx context.Context, conversationID identity.ConversationID) (identity.SequenceNumber, error) {
	return l.backing.NextSequenceNumber(ctx, conversationID)
}

// Store writes through and seeds the cache on success.
func (l *CachedLog) Store(ctx context.Context, msg *Message) error {
	if err := l.backing.Store(ctx, msg); err != nil {
		return err
	}
	l.admit(msg.Clone())
	return nil
}

// FindByID serves from the hot tier when possible.
func (l *CachedLog) FindByID(ctx context.Context, id identity.MessageID) (*Message, error) {
	if value, found := l.cache.Get(string(id)); found {
		if msg, ok := value.(*Message); ok {
			return msg.Clone(), nil
		}
	}

	msg, err := l.backing.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.admit(msg.Clone())
	return msg, nil
}

// Exists consults the cache before the backing log.
func (l *CachedLog) Exists(ctx context.Context, id identity.MessageID) (bool, error) {
	if _, found := l.cache.Get(string(id)); found {
		return true, nil
	}
	return l.backing.Exists(ctx, id)
}

// FindByConversation delegates to the backing log.
func (l *CachedLog) FindByConversation(ctx context.Context, conversationID identity.ConversationID) ([]*Message, error) {
	return l.backing.FindByConversation(ctx, conversationID)
}

func (l *CachedLog) admit(msg *Message) {
	cost := int64(64)
	for _, p := range msg.Content {
		cost += int64(len(p.Text) + len(p.Arguments) + len(p.Outcome) + len(p.Reference))
	}
	l.cache.Set(string(msg.ID), msg, cost)
}

var _ MessageLog = (*CachedLog)(nil)
