package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"sipwatcher/internal/domain"
	"sipwatcher/internal/ports"
)

// PostgresArchive records delivered notifications for audit. It is an
// optional collaborator: the state file stays the source of truth for
// deduplication, the archive only answers "what did we actually send".
type PostgresArchive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.DeliveryArchive = (*PostgresArchive)(nil)

// NewPostgresArchive wires a sql.DB implementation.
func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres using the configured DSN.
func Open(dsn string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	return NewPostgresArchive(db), nil
}

// RecordDelivered upserts the delivered-notification snapshot.
func (a *PostgresArchive) RecordDelivered(ctx context.Context, article domain.Article, deliveredAt time.Time) error {
	if a.db == nil {
		return nil
	}

	var publishedAt sql.NullTime
	if article.HasDate() {
		publishedAt = sql.NullTime{Time: article.PublishedAt, Valid: true}
	}

	query, args, err := a.builder.
		Insert("delivered_notifications").
		Columns("url", "title", "category", "published_at", "delivered_at").
		Values(article.URL, article.Title, article.Source, publishedAt, deliveredAt.UTC()).
		Suffix(`ON CONFLICT (url) DO UPDATE
            SET title = EXCLUDED.title,
                category = EXCLUDED.category,
                published_at = EXCLUDED.published_at,
                delivered_at = EXCLUDED.delivered_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build archive upsert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert delivered notification: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool.
func (a *PostgresArchive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
