package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jncsync/jncsync/pkg/jnovel"
	"github.com/jncsync/jncsync/pkg/ledger"
)

type fakeService struct {
	fakeCatalog
	library map[string]jnovel.Book
	series  map[string]jnovel.Series
}

func (f *fakeService) FetchLibrary(user jnovel.UserData) (map[string]jnovel.Book, error) {
	library := make(map[string]jnovel.Book, len(f.library))
	for id, book := range f.library {
		library[id] = book
	}
	return library, nil
}

func (f *fakeService) FetchSeries(slug string) (jnovel.Series, error) {
	series, ok := f.series[slug]
	if !ok {
		return jnovel.Series{}, fmt.Errorf("unknown series %s", slug)
	}
	return series, nil
}

func TestRunFullCycle(t *testing.T) {
	a1 := jnovel.Book{
		ID: "a1", Title: "Alpha 1", Slug: "alpha-volume-1",
		SeriesSlug: "alpha", Volume: 1, Owned: true,
		PublishedAt: released(30), DownloadURL: "x", Price: 1,
	}
	a2 := jnovel.Book{
		ID: "a2", Title: "Alpha 2", Slug: "alpha-volume-2",
		SeriesSlug: "alpha", Volume: 2,
		PublishedAt: released(5), Price: 1,
	}
	a2Owned := a2
	a2Owned.Owned = true
	a2Owned.DownloadURL = "y"

	service := &fakeService{
		fakeCatalog: fakeCatalog{
			refreshed: map[string]jnovel.Book{"a2": a2Owned},
			contents:  map[string][]byte{"a1": []byte("one"), "a2": []byte("two")},
		},
		library: map[string]jnovel.Book{"a1": a1},
		series: map[string]jnovel.Series{
			"alpha": {
				Slug:    "alpha",
				Title:   "Alpha",
				Tags:    []string{"fully translated"},
				Volumes: []jnovel.Book{a1, a2},
			},
		},
	}

	dir := t.TempDir()
	run := &Run{
		Client:  service,
		Confirm: confirmAll,
		Now:     testNow,
		Options: Options{Order: true, TargetDir: dir},
	}

	user := &jnovel.UserData{UserID: "u1", Coins: 5}
	follows := map[string]bool{}
	downloads := ledger.Downloads{}

	if err := run.Execute(context.Background(), user, follows, downloads); err != nil {
		t.Fatal(err)
	}

	// The new series was followed, its missing volume ordered and paid for.
	if len(service.orders) != 1 || service.orders[0] != "a2" {
		t.Fatalf("expected a2 ordered, got %v", service.orders)
	}
	if user.Coins != 4 {
		t.Fatalf("expected balance 4 after ordering, got %d", user.Coins)
	}

	// Both volumes downloaded and ledgered.
	for _, id := range []string{"a1", "a2"} {
		if _, ok := downloads[id]; !ok {
			t.Fatalf("expected %s in the download ledger, have %#v", id, downloads)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "alpha-volume-2.epub")); err != nil {
		t.Fatalf("expected the ordered volume on disk: %v", err)
	}

	// Fully translated and fully downloaded: unfollowed at the end.
	if followed, known := follows["alpha"]; !known || followed {
		t.Fatalf("expected alpha unfollowed, got %#v", follows)
	}
}

func TestRunDeclinedFollowStaysUnfollowed(t *testing.T) {
	service := &fakeService{
		library: map[string]jnovel.Book{
			"a1": {ID: "a1", SeriesSlug: "alpha", Owned: true, PublishedAt: released(30)},
		},
		series: map[string]jnovel.Series{},
	}

	run := &Run{
		Client:  service,
		Confirm: confirmNone,
		Now:     testNow,
		Options: Options{ConfirmFollow: true, TargetDir: t.TempDir()},
	}

	user := &jnovel.UserData{}
	follows := map[string]bool{}

	if err := run.Execute(context.Background(), user, follows, ledger.Downloads{}); err != nil {
		t.Fatal(err)
	}

	// The decision is recorded so the series isn't proposed again.
	if followed, known := follows["alpha"]; !known || followed {
		t.Fatalf("expected alpha recorded as unfollowed, got %#v", follows)
	}
}
