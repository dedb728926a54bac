package ports

import (
	"context"
	"fmt"
	"time"

	"sipwatcher/internal/domain"
)

// RateLimitedError is returned by a Notifier when the sink asks the caller
// to pause before retrying the same notification.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("delivery rate limited, retry after %s", e.RetryAfter)
}

// Fetcher retrieves raw markup from the site, with retries at its own boundary.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ArticleSource discovers candidate articles across configured listing pages.
type ArticleSource interface {
	Discover(ctx context.Context) ([]domain.Article, error)
}

// Enricher fetches an article's detail page and fills in date/content/image.
// Failure degrades to the input article, never to an aborted batch.
type Enricher interface {
	Enrich(ctx context.Context, article domain.Article) domain.Article
}

// StateStore loads and persists the set of previously seen article URLs.
type StateStore interface {
	Load(ctx context.Context) (*domain.SeenState, error)
	Save(ctx context.Context, state *domain.SeenState) error
}

// Notifier delivers one notification to the chat sink.
type Notifier interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// DeliveryArchive records successfully delivered notifications for audit.
type DeliveryArchive interface {
	RecordDelivered(ctx context.Context, article domain.Article, deliveredAt time.Time) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
