package store

import (
	"context"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/missionkit/internal/content"
)

const tableContent = "content_items"

var contentColumns = []string{"id", "text", "is_correct", "image_url", "item_type", "rule_tag", "metadata"}

// contentRepo implements ContentRepo. Content is written only by import
// tooling; the session engine reads it.
type contentRepo struct {
	s *Store
}

func (r *contentRepo) ReplaceTopic(ctx context.Context, topicID string, items []content.Item) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b := entsql.Dialect(r.s.dialect)
	query, args := b.Delete(tableContent).Where(entsql.EQ("topic_id", topicID)).Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear topic %s: %w", topicID, err)
	}

	for i, it := range items {
		meta := ""
		if len(it.Metadata) > 0 {
			raw, err := json.Marshal(it.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata of %s: %w", it.ID, err)
			}
			meta = string(raw)
		}
		query, args := b.Insert(tableContent).
			Columns("topic_id", "id", "position", "text", "is_correct", "image_url", "item_type", "rule_tag", "metadata").
			Values(topicID, it.ID, i, it.Text, boolInt(it.IsCorrect), it.ImageURL, string(it.Type), it.RuleTag, meta).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save content item %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

func (r *contentRepo) ListByTopic(ctx context.Context, topicID string) ([]content.Item, error) {
	query, args := entsql.Dialect(r.s.dialect).
		Select(contentColumns...).
		From(entsql.Table(tableContent)).
		Where(entsql.EQ("topic_id", topicID)).
		OrderBy(entsql.Asc("position")).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	var items []content.Item
	for rows.Next() {
		var (
			it       content.Item
			itemType string
			meta     string
		)
		if err := rows.Scan(&it.ID, &it.Text, &it.IsCorrect, &it.ImageURL, &itemType, &it.RuleTag, &meta); err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		it.Type = content.ItemType(itemType)
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &it.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", it.ID, err)
			}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", content.ErrTopicNotFound, topicID)
	}
	return items, nil
}

func (r *contentRepo) Topics(ctx context.Context) (map[string]int, error) {
	query, args := entsql.Dialect(r.s.dialect).
		Select("topic_id", entsql.Count("*")).
		From(entsql.Table(tableContent)).
		GroupBy("topic_id").
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			topic string
			n     int
		)
		if err := rows.Scan(&topic, &n); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out[topic] = n
	}
	return out, rows.Err()
}
