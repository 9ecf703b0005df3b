package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"dsa-tracker/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader loads the topic catalog from Postgres. Subtopics live in a
// JSONB column next to each topic row.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadTopics(ctx context.Context) ([]domain.Topic, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, title, subtopics FROM topics ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	defer rows.Close()

	topics := make([]domain.Topic, 0)
	for rows.Next() {
		var (
			topic domain.Topic
			raw   []byte
		)
		if err := rows.Scan(&topic.ID, &topic.Title, &raw); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		if err := json.Unmarshal(raw, &topic.Subtopics); err != nil {
			return nil, fmt.Errorf("unmarshal subtopics of %s: %w", topic.ID, err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	return topics, nil
}

// SeedTopics upserts topics, keeping their slice order as display order.
func SeedTopics(ctx context.Context, pool *pgxpool.Pool, topics []domain.Topic) error {
	for i, topic := range topics {
		raw, err := json.Marshal(topic.Subtopics)
		if err != nil {
			return fmt.Errorf("marshal subtopics of %s: %w", topic.ID, err)
		}
		_, err = pool.Exec(ctx, `
INSERT INTO topics (id, title, position, subtopics) VALUES ($1, $2, $3, $4::jsonb)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, position = EXCLUDED.position, subtopics = EXCLUDED.subtopics`,
			topic.ID, topic.Title, i, string(raw))
		if err != nil {
			return fmt.Errorf("seed topic %s: %w", topic.ID, err)
		}
	}
	return nil
}
