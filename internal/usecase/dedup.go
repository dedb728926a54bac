package usecase

import (
	"sort"
	"time"

	"sipwatcher/internal/domain"
)

// FilterPolicy holds the knobs the dedup filters need.
type FilterPolicy struct {
	Cutoff          time.Time
	MaxInitialPosts int
	FirstRun        bool
}

// filterCandidates applies the delivery filters in order: identity against
// seen-state, cutoff date, in-batch content fingerprint, and the first-run
// cap. Every candidate URL is marked seen regardless of whether it survives:
// skipped articles must never be retried on later runs.
func filterCandidates(candidates []domain.Article, state *domain.SeenState, policy FilterPolicy) []domain.Article {
	var deliverable []domain.Article
	fingerprints := map[string]struct{}{}

	for _, candidate := range candidates {
		alreadySeen := state.Has(candidate.URL)
		state.Mark(candidate.URL)

		// On a first-ever run there is no prior state to compare against;
		// the cap below keeps the flood in check instead.
		if alreadySeen && !policy.FirstRun {
			continue
		}

		if candidate.HasDate() && !policy.Cutoff.IsZero() && candidate.PublishedAt.Before(policy.Cutoff) {
			continue
		}

		fp := candidate.Fingerprint()
		if _, dup := fingerprints[fp]; dup {
			continue
		}
		fingerprints[fp] = struct{}{}

		deliverable = append(deliverable, candidate)
	}

	if policy.FirstRun && policy.MaxInitialPosts > 0 {
		deliverable = capMostRecent(deliverable, policy.MaxInitialPosts)
	}

	return deliverable
}

// capMostRecent keeps the n most recently published articles, undated ones
// ranking last, preserving the original discovery order of the kept set.
func capMostRecent(articles []domain.Article, n int) []domain.Article {
	if len(articles) <= n {
		return articles
	}

	type indexed struct {
		article domain.Article
		pos     int
	}

	ranked := make([]indexed, len(articles))
	for i, a := range articles {
		ranked[i] = indexed{article: a, pos: i}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].article, ranked[j].article
		if a.HasDate() != b.HasDate() {
			return a.HasDate()
		}
		return a.PublishedAt.After(b.PublishedAt)
	})
	ranked = ranked[:n]

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].pos < ranked[j].pos })

	kept := make([]domain.Article, n)
	for i, r := range ranked {
		kept[i] = r.article
	}
	return kept
}

// sortChronological orders articles oldest first so multi-part announcements
// arrive in narrative order; undated articles go last, ties keep discovery
// order.
func sortChronological(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if a.HasDate() != b.HasDate() {
			return a.HasDate()
		}
		return a.PublishedAt.Before(b.PublishedAt)
	})
}
