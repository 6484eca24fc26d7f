// Package engine holds the reconciliation, acquisition and download logic
// that keeps the local mirror consistent with the remote catalog.
package engine

import (
	"sort"
	"time"

	"github.com/jncsync/jncsync/pkg/jnovel"
	"github.com/jncsync/jncsync/pkg/ledger"
)

// SortBooks orders books by series slug (falling back to the book's own
// slug for standalone volumes) and volume number, so series volumes list
// contiguously. The input is not modified.
func SortBooks(books []jnovel.Book) []jnovel.Book {
	sorted := make([]jnovel.Book, len(books))
	copy(sorted, books)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := sortKey(sorted[i]), sortKey(sorted[j])
		if ki != kj {
			return ki < kj
		}
		return sorted[i].Volume < sorted[j].Volume
	})
	return sorted
}

func sortKey(book jnovel.Book) string {
	if book.SeriesSlug != "" {
		return book.SeriesSlug
	}
	return book.Slug
}

// SortedLibrary flattens a library map into sorted order.
func SortedLibrary(library map[string]jnovel.Book) []jnovel.Book {
	books := make([]jnovel.Book, 0, len(library))
	for _, book := range library {
		books = append(books, book)
	}
	return SortBooks(books)
}

// NewSeries returns the series referenced by owned books that have no entry
// in the follow ledger yet, de-duplicated, in first-seen order. Books
// without a series slug are standalone and never proposed for following.
func NewSeries(books []jnovel.Book, known map[string]bool) []string {
	var fresh []string
	seen := make(map[string]bool)
	for _, book := range books {
		slug := book.SeriesSlug
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		if _, ok := known[slug]; !ok {
			fresh = append(fresh, slug)
		}
	}
	return fresh
}

// Orderable returns every volume of a followed, detail-fetched series that
// is absent from the owned library. Order is deterministic: series in the
// order their details were fetched, volumes in series order.
func Orderable(library map[string]jnovel.Book, series []jnovel.Series, follows map[string]bool) []jnovel.Book {
	var orderable []jnovel.Book
	for _, s := range series {
		if !follows[s.Slug] {
			continue
		}
		for _, vol := range s.Volumes {
			if _, owned := library[vol.ID]; !owned {
				orderable = append(orderable, vol)
			}
		}
	}
	return orderable
}

// Preorders returns owned books whose release is strictly after now.
func Preorders(books []jnovel.Book, now time.Time) []jnovel.Book {
	var preorders []jnovel.Book
	for _, book := range books {
		if book.Owned && book.Preorder(now) {
			preorders = append(preorders, book)
		}
	}
	return preorders
}

// Completable returns the followed, fully translated series whose every
// volume is either in the download ledger or still a preorder; those series
// have nothing left to track. A series with no known volumes is never
// completable, so a partially loaded detail can't trigger an unfollow.
func Completable(series []jnovel.Series, follows map[string]bool, downloads ledger.Downloads, now time.Time) []string {
	var done []string
	for _, s := range series {
		if !follows[s.Slug] || !s.FullyTranslated() || len(s.Volumes) == 0 {
			continue
		}
		complete := true
		for _, vol := range s.Volumes {
			if _, ok := downloads[vol.ID]; ok {
				continue
			}
			if vol.Preorder(now) {
				continue
			}
			complete = false
			break
		}
		if complete {
			done = append(done, s.Slug)
		}
	}
	return done
}
