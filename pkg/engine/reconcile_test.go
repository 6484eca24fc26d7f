package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/jncsync/jncsync/pkg/jnovel"
	"github.com/jncsync/jncsync/pkg/ledger"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func released(daysAgo int) time.Time {
	return testNow.AddDate(0, 0, -daysAgo)
}

func upcoming(daysAhead int) time.Time {
	return testNow.AddDate(0, 0, daysAhead)
}

func TestNewSeries(t *testing.T) {
	books := []jnovel.Book{
		{ID: "1", SeriesSlug: "alpha"},
		{ID: "2", SeriesSlug: "beta"},
		{ID: "3", SeriesSlug: "alpha"},
		{ID: "4", SeriesSlug: ""}, // standalone, never proposed
		{ID: "5", SeriesSlug: "gamma"},
	}
	known := map[string]bool{
		"beta":  true,
		"gamma": false, // explicitly unfollowed is still known
	}

	got := NewSeries(books, known)
	expect := []string{"alpha"}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("unexpected new series.\nwant: %#v\ngot:  %#v", expect, got)
	}
}

func TestNewSeriesFirstSeenOrder(t *testing.T) {
	books := []jnovel.Book{
		{ID: "1", SeriesSlug: "zeta"},
		{ID: "2", SeriesSlug: "alpha"},
		{ID: "3", SeriesSlug: "zeta"},
	}

	got := NewSeries(books, map[string]bool{})
	expect := []string{"zeta", "alpha"}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("expected first-seen order %#v, got %#v", expect, got)
	}
}

func TestOrderable(t *testing.T) {
	library := map[string]jnovel.Book{
		"a1": {ID: "a1", SeriesSlug: "alpha", Owned: true},
	}
	series := []jnovel.Series{
		{
			Slug: "alpha",
			Volumes: []jnovel.Book{
				{ID: "a1", SeriesSlug: "alpha", Volume: 1},
				{ID: "a2", SeriesSlug: "alpha", Volume: 2},
			},
		},
		{
			Slug: "beta", // not followed
			Volumes: []jnovel.Book{
				{ID: "b1", SeriesSlug: "beta", Volume: 1},
			},
		},
	}
	follows := map[string]bool{"alpha": true, "beta": false}

	got := Orderable(library, series, follows)
	if len(got) != 1 || got[0].ID != "a2" {
		t.Fatalf("expected only a2 orderable, got %#v", got)
	}
}

func TestPreorders(t *testing.T) {
	books := []jnovel.Book{
		{ID: "past", Owned: true, PublishedAt: released(10)},
		{ID: "future", Owned: true, PublishedAt: upcoming(10)},
		{ID: "exact", Owned: true, PublishedAt: testNow}, // release == now is available
		{ID: "unowned", Owned: false, PublishedAt: upcoming(5)},
	}

	got := Preorders(books, testNow)
	if len(got) != 1 || got[0].ID != "future" {
		t.Fatalf("expected only the future book, got %#v", got)
	}
}

func TestCompletable(t *testing.T) {
	downloaded := ledger.Downloads{
		"v1": {Slug: "vol-1"},
		"v2": {Slug: "vol-2"},
	}

	tests := []struct {
		name    string
		series  jnovel.Series
		follows map[string]bool
		expect  []string
	}{
		{
			name: "all downloaded",
			series: jnovel.Series{
				Slug: "done",
				Tags: []string{"fantasy", "fully translated"},
				Volumes: []jnovel.Book{
					{ID: "v1", PublishedAt: released(30)},
					{ID: "v2", PublishedAt: released(20)},
				},
			},
			follows: map[string]bool{"done": true},
			expect:  []string{"done"},
		},
		{
			name: "preorder counts as accounted for",
			series: jnovel.Series{
				Slug: "almost",
				Tags: []string{"fully translated"},
				Volumes: []jnovel.Book{
					{ID: "v1", PublishedAt: released(30)},
					{ID: "v9", PublishedAt: upcoming(30)},
				},
			},
			follows: map[string]bool{"almost": true},
			expect:  []string{"almost"},
		},
		{
			name: "untracked released volume blocks unfollow",
			series: jnovel.Series{
				Slug: "open",
				Tags: []string{"fully translated"},
				Volumes: []jnovel.Book{
					{ID: "v1", PublishedAt: released(30)},
					{ID: "v8", PublishedAt: released(1)},
				},
			},
			follows: map[string]bool{"open": true},
			expect:  nil,
		},
		{
			name: "not fully translated",
			series: jnovel.Series{
				Slug: "ongoing",
				Tags: []string{"fantasy"},
				Volumes: []jnovel.Book{
					{ID: "v1", PublishedAt: released(30)},
				},
			},
			follows: map[string]bool{"ongoing": true},
			expect:  nil,
		},
		{
			name: "empty detail never completes",
			series: jnovel.Series{
				Slug: "empty",
				Tags: []string{"fully translated"},
			},
			follows: map[string]bool{"empty": true},
			expect:  nil,
		},
		{
			name: "unfollowed series ignored",
			series: jnovel.Series{
				Slug: "dropped",
				Tags: []string{"fully translated"},
				Volumes: []jnovel.Book{
					{ID: "v1", PublishedAt: released(30)},
				},
			},
			follows: map[string]bool{"dropped": false},
			expect:  nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Completable([]jnovel.Series{tc.series}, tc.follows, downloaded, testNow)
			if !reflect.DeepEqual(got, tc.expect) {
				t.Fatalf("unexpected completable set.\nwant: %#v\ngot:  %#v", tc.expect, got)
			}
		})
	}
}

func TestSortBooksSeriesSlugWins(t *testing.T) {
	books := []jnovel.Book{
		{ID: "s", Slug: "a-standalone-thing"},
		{ID: "b2", Slug: "zz-beta-volume-2", SeriesSlug: "beta", Volume: 2},
		{ID: "b1", Slug: "zz-beta-volume-1", SeriesSlug: "beta", Volume: 1},
		{ID: "g1", Slug: "gamma-volume-1", SeriesSlug: "gamma", Volume: 1},
	}

	got := SortBooks(books)
	var ids []string
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	expect := []string{"s", "b1", "b2", "g1"}
	if !reflect.DeepEqual(ids, expect) {
		t.Fatalf("unexpected order.\nwant: %#v\ngot:  %#v", expect, ids)
	}
}
