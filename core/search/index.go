package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/leynos/baton/core/conversation"
	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// Message Full-Text Index
// =============================================================================

// ErrIndexClosed indicates an operation on a closed index.
var ErrIndexClosed = errors.New("search index is closed")

// DefaultSearchLimit is the result cap applied when a caller passes a
// non-positive limit.
const DefaultSearchLimit = 10

// Hit is a single search result. The index stores only routing fields;
// callers fetch the full message from the log.
type Hit struct {
	MessageID      identity.MessageID
	ConversationID identity.ConversationID
	Score          float64
}

// messageDocument is the shape indexed per message. Only the plain text
// of text parts is analyzed; identifiers are kept as keywords so
// filters match them exactly.
type messageDocument struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Text           string `json:"text"`
	CreatedAt      string `json:"created_at"`
}

// MessageIndex provides full-text search over message text content.
type MessageIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// OpenIndex opens the Bleve index at path, creating it with the message
// mapping when absent.
func OpenIndex(path string) (*MessageIndex, error) {
	index, err := bleve.Open(path)
	if err == nil {
		return &MessageIndex{index: index}, nil
	}

	index, err = bleve.New(path, buildMessageMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return &MessageIndex{index: index}, nil
}

// NewMemoryIndex creates a non-persistent index for tests and embedded use.
func NewMemoryIndex() (*MessageIndex, error) {
	index, err := bleve.NewMemOnly(buildMessageMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return &MessageIndex{index: index}, nil
}

func buildMessageMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("message_id", keywordField)
	doc.AddFieldMappingsAt("conversation_id", keywordField)
	doc.AddFieldMappingsAt("role", keywordField)
	doc.AddFieldMappingsAt("text", textField)
	doc.AddFieldMappingsAt("created_at", keywordField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// IndexMessage adds the message's text content to the index. Messages
// with no text parts are indexed with an empty text field so filters
// still find them.
func (m *MessageIndex) IndexMessage(ctx context.Context, msg *conversation.Message) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrIndexClosed
	}

	doc := messageDocument{
		MessageID:      string(msg.ID),
		ConversationID: string(msg.ConversationID),
		Role:           string(msg.Role),
		Text:           msg.PlainText(),
		CreatedAt:      msg.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if err := m.index.Index(doc.MessageID, doc); err != nil {
		return fmt.Errorf("failed to index message %s: %w", msg.ID, err)
	}
	return nil
}

// Search runs a full-text query over every conversation.
func (m *MessageIndex) Search(ctx context.Context, queryStr string, limit int) ([]Hit, error) {
	return m.search(ctx, queryStr, "", limit)
}

// SearchConversation runs a full-text query scoped to one conversation.
func (m *MessageIndex) SearchConversation(ctx context.Context, conversationID identity.ConversationID, queryStr string, limit int) ([]Hit, error) {
	return m.search(ctx, queryStr, string(conversationID), limit)
}

func (m *MessageIndex) search(ctx context.Context, queryStr, conversationID string, limit int) ([]Hit, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrIndexClosed
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	req := bleve.NewSearchRequest(m.buildQuery(queryStr, conversationID))
	req.Size = limit
	req.Fields = []string{"conversation_id"}

	result, err := m.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hit := Hit{MessageID: identity.MessageID(h.ID), Score: h.Score}
		if v, ok := h.Fields["conversation_id"].(string); ok {
			hit.ConversationID = identity.ConversationID(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (m *MessageIndex) buildQuery(queryStr, conversationID string) query.Query {
	var queries []query.Query

	if queryStr != "" {
		match := bleve.NewMatchQuery(queryStr)
		match.SetField("text")
		queries = append(queries, match)
	}
	if conversationID != "" {
		term := bleve.NewTermQuery(conversationID)
		term.SetField("conversation_id")
		queries = append(queries, term)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}

	boolQuery := bleve.NewBooleanQuery()
	for _, q := range queries {
		boolQuery.AddMust(q)
	}
	return boolQuery
}

// Remove deletes a message from the index.
func (m *MessageIndex) Remove(ctx context.Context, id identity.MessageID) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrIndexClosed
	}
	if err := m.index.Delete(string(id)); err != nil {
		return fmt.Errorf("failed to remove message %s: %w", id, err)
	}
	return nil
}

// Close flushes and closes the underlying index. Safe to call twice.
func (m *MessageIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.index.Close()
}
