package usecase

import (
	"testing"
	"time"

	"sipwatcher/internal/domain"
)

func TestFilterCandidatesMarksSkipped(t *testing.T) {
	t.Parallel()

	state := domain.NewSeenState()
	state.Mark("https://sip.example.org/article/1")

	candidates := []domain.Article{
		article(1, day(5)),  // already seen
		article(2, day(1)),  // before cutoff
		article(3, day(15)), // deliverable
	}

	kept := filterCandidates(candidates, state, FilterPolicy{Cutoff: day(10)})

	if len(kept) != 1 || kept[0].URL != candidates[2].URL {
		t.Fatalf("unexpected deliverable set: %+v", kept)
	}
	for _, c := range candidates {
		if !state.Has(c.URL) {
			t.Fatalf("%s not marked seen", c.URL)
		}
	}
}

func TestFilterCandidatesFingerprintIgnoresURL(t *testing.T) {
	t.Parallel()

	a := article(1, day(5))
	b := article(2, day(5))
	b.Title = a.Title
	a.Content = "Исти Текст"
	b.Content = "исти текст" // fingerprint is case-insensitive

	kept := filterCandidates([]domain.Article{a, b}, domain.NewSeenState(), FilterPolicy{FirstRun: true})

	if len(kept) != 1 || kept[0].URL != a.URL {
		t.Fatalf("expected only the first occurrence, got %+v", kept)
	}
}

func TestCapMostRecentRanksUndatedLast(t *testing.T) {
	t.Parallel()

	undated := article(9, time.Time{})
	articles := []domain.Article{undated, article(1, day(3)), article(2, day(8)), article(3, day(6))}

	kept := capMostRecent(articles, 2)

	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	// The two newest dated articles, in original discovery order.
	if kept[0].URL != articles[2].URL || kept[1].URL != articles[3].URL {
		t.Fatalf("unexpected kept set: %+v", kept)
	}
}

func TestSortChronologicalStableForUndated(t *testing.T) {
	t.Parallel()

	first := article(1, time.Time{})
	second := article(2, time.Time{})
	dated := article(3, day(5))
	articles := []domain.Article{first, second, dated}

	sortChronological(articles)

	want := []string{dated.URL, first.URL, second.URL}
	for i, w := range want {
		if articles[i].URL != w {
			t.Fatalf("position %d: got %s, want %s", i, articles[i].URL, w)
		}
	}
}
