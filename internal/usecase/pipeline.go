package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sipwatcher/internal/domain"
	"sipwatcher/internal/ports"
)

const maxDeliveryAttempts = 4

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source   ports.ArticleSource
	Enricher ports.Enricher
	State    ports.StateStore
	Notifier ports.Notifier
	Archive  ports.DeliveryArchive
	Logger   *slog.Logger
}

// PipelinePolicy holds the delivery policy values, injected at construction
// so runs stay unit-testable.
type PipelinePolicy struct {
	Cutoff            time.Time
	MaxInitialPosts   int
	SendDelay         time.Duration
	EnrichConcurrency int
}

// Pipeline implements one watcher run: load state, discover candidates,
// enrich the new ones, filter, sort chronologically, deliver sequentially,
// persist state.
type Pipeline struct {
	source   ports.ArticleSource
	enricher ports.Enricher
	state    ports.StateStore
	notifier ports.Notifier
	archive  ports.DeliveryArchive
	policy   PipelinePolicy
	logger   *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, policy PipelinePolicy) *Pipeline {
	if policy.EnrichConcurrency <= 0 {
		policy.EnrichConcurrency = 1
	}
	return &Pipeline{
		source:   deps.Source,
		enricher: deps.Enricher,
		state:    deps.State,
		notifier: deps.Notifier,
		archive:  deps.Archive,
		policy:   policy,
		logger:   deps.Logger,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Run executes one complete pass. Per-item failures are isolated; only a
// total discovery failure aborts the run before any state is persisted, so
// the next run retries from the same baseline.
func (p *Pipeline) Run(ctx context.Context) error {
	state, err := p.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	firstRun := state.IsEmpty()
	p.info("state loaded", "seen_urls", len(state.SeenURLs), "first_run", firstRun)

	candidates, err := p.source.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	p.info("discovery done", "candidates", len(candidates))

	fresh := make([]domain.Article, 0, len(candidates))
	for _, c := range candidates {
		if !state.Has(c.URL) {
			fresh = append(fresh, c)
		}
	}

	enriched := p.enrichAll(ctx, fresh)

	// Already seen candidates still flow through the filter so their URLs
	// stay marked; enrichment is skipped for them.
	batch := make([]domain.Article, 0, len(candidates))
	fromFresh := 0
	for _, c := range candidates {
		if state.Has(c.URL) {
			batch = append(batch, c)
			continue
		}
		batch = append(batch, enriched[fromFresh])
		fromFresh++
	}

	deliverable := filterCandidates(batch, state, FilterPolicy{
		Cutoff:          p.policy.Cutoff,
		MaxInitialPosts: p.policy.MaxInitialPosts,
		FirstRun:        firstRun,
	})

	sortChronological(deliverable)
	p.info("filtering done", "deliverable", len(deliverable))

	p.deliverAll(ctx, deliverable)

	state.LastChecked = p.now().UTC()
	if err := p.state.Save(ctx, state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	p.info("state saved", "seen_urls", len(state.SeenURLs))

	return nil
}

// enrichAll fetches detail pages with bounded parallelism, writing results
// into per-index slots so discovery order is preserved.
func (p *Pipeline) enrichAll(ctx context.Context, articles []domain.Article) []domain.Article {
	enriched := make([]domain.Article, len(articles))

	if p.enricher == nil {
		copy(enriched, articles)
		return enriched
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.policy.EnrichConcurrency)

	for i, article := range articles {
		i, article := i, article
		group.Go(func() error {
			enriched[i] = p.enricher.Enrich(groupCtx, article)
			return nil
		})
	}
	_ = group.Wait()

	return enriched
}

// deliverAll sends notifications strictly sequentially: the rate-limit
// discipline and chronological ordering both require a single ordered
// stream. Rate-limit responses back off and retry the same notification;
// other failures are logged and skipped, and the URL stays seen so a flaky
// send is never retried forever.
func (p *Pipeline) deliverAll(ctx context.Context, articles []domain.Article) {
	for i, article := range articles {
		if i > 0 && p.policy.SendDelay > 0 {
			if err := p.sleep(ctx, p.policy.SendDelay); err != nil {
				return
			}
		}

		if err := p.deliverOne(ctx, article); err != nil {
			p.error("delivery failed", "url", article.URL, "error", err)
			continue
		}

		p.info("delivered", "url", article.URL, "title", article.Title)

		if p.archive != nil {
			if err := p.archive.RecordDelivered(ctx, article, p.now().UTC()); err != nil {
				p.warn("archive write failed", "url", article.URL, "error", err)
			}
		}
	}
}

func (p *Pipeline) deliverOne(ctx context.Context, article domain.Article) error {
	notification := buildNotification(article)

	backoff := p.policy.SendDelay
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 0; attempt < maxDeliveryAttempts; attempt++ {
		lastErr = p.notifier.Deliver(ctx, notification)
		if lastErr == nil {
			return nil
		}

		var rlErr *ports.RateLimitedError
		if !errors.As(lastErr, &rlErr) {
			return lastErr
		}

		wait := backoff
		if rlErr.RetryAfter > wait {
			wait = rlErr.RetryAfter
		}
		p.warn("delivery rate limited", "url", article.URL, "attempt", attempt+1, "wait", wait)
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
		backoff *= 2
	}

	return lastErr
}

func buildNotification(article domain.Article) domain.Notification {
	return domain.Notification{
		Title:       article.Title,
		Link:        article.URL,
		Body:        article.Content,
		Category:    article.Source,
		PublishedAt: article.PublishedAt,
		ImageURL:    article.ImageURL,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
