package content

import (
	"context"
	"errors"
)

// ErrTopicNotFound is returned by a Source that has no bank for a topic.
var ErrTopicNotFound = errors.New("topic not found")

// Source fetches the content bank of a topic.
type Source interface {
	ListByTopic(ctx context.Context, topicID string) ([]Item, error)
}

// StaticSource serves banks held in memory, keyed by topic.
type StaticSource map[string][]Item

// ListByTopic returns a copy of the topic's bank.
func (s StaticSource) ListByTopic(_ context.Context, topicID string) ([]Item, error) {
	items, ok := s[topicID]
	if !ok {
		return nil, ErrTopicNotFound
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}
