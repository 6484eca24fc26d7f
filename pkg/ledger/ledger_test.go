package ledger

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jncsync/jncsync/pkg/jnovel"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDownloadsMixedFormats(t *testing.T) {
	path := writeFile(t, "42\tsome-slug\n7\tother-slug\t2023-03-01T10:00:00Z\n")

	downloads, err := LoadDownloads(path)
	if err != nil {
		t.Fatal(err)
	}

	legacy, ok := downloads["42"]
	if !ok || legacy.DownloadedAt != nil {
		t.Fatalf("expected legacy row with nil timestamp, got %#v", legacy)
	}
	if legacy.Slug != "some-slug" {
		t.Fatalf("unexpected slug %q", legacy.Slug)
	}

	modern, ok := downloads["7"]
	if !ok || modern.DownloadedAt == nil {
		t.Fatalf("expected parsed timestamp, got %#v", modern)
	}
	expect := time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC)
	if !modern.DownloadedAt.Equal(expect) {
		t.Fatalf("expected %v, got %v", expect, modern.DownloadedAt)
	}
}

func TestMigrateLegacyUsesLaterOfPublishAndPurchase(t *testing.T) {
	published := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	purchased := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)

	downloads := Downloads{"42": {Slug: "some-slug"}}
	library := map[string]jnovel.Book{
		"42": {ID: "42", Slug: "some-slug", PublishedAt: published, PurchasedAt: &purchased},
	}

	downloads.MigrateLegacy(library)

	entry := downloads["42"]
	if entry.DownloadedAt == nil || !entry.DownloadedAt.Equal(purchased) {
		t.Fatalf("expected purchase date %v inferred, got %#v", purchased, entry.DownloadedAt)
	}
}

func TestMigrateLegacyNoPurchaseDate(t *testing.T) {
	published := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)

	downloads := Downloads{"9": {}}
	library := map[string]jnovel.Book{"9": {ID: "9", Slug: "niner", PublishedAt: published}}

	downloads.MigrateLegacy(library)

	entry := downloads["9"]
	if entry.DownloadedAt == nil || !entry.DownloadedAt.Equal(published) {
		t.Fatalf("expected publish date inferred, got %#v", entry)
	}
	if entry.Slug != "niner" {
		t.Fatalf("expected slug filled from library, got %q", entry.Slug)
	}
}

func TestDownloadsRoundTripPreservesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")
	when := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)

	original := Downloads{
		"1": {Slug: "one", DownloadedAt: &when},
		"2": {Slug: "gone-from-library"}, // unmigrated legacy row must survive
	}

	if err := SaveDownloads(path, original); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadDownloads(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, original) {
		t.Fatalf("round trip mismatch.\nwant: %#v\ngot:  %#v", original, loaded)
	}
}

func TestLoadDownloadsMissingFile(t *testing.T) {
	downloads, err := LoadDownloads(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(downloads) != 0 {
		t.Fatalf("expected empty ledger, got %#v", downloads)
	}
}

func TestFollowsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")

	original := map[string]bool{
		"alpha": true,
		"beta":  false,
	}
	if err := SaveFollows(path, original); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFollows(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, original) {
		t.Fatalf("round trip mismatch.\nwant: %#v\ngot:  %#v", original, loaded)
	}
}

func TestLoadFollowsLegacySpelling(t *testing.T) {
	// Files written by the old tool use Python's True/False spelling.
	path := writeFile(t, "alpha\tTrue\nbeta\tFalse\n")

	follows, err := LoadFollows(path)
	if err != nil {
		t.Fatal(err)
	}
	if !follows["alpha"] || follows["beta"] {
		t.Fatalf("unexpected follow states %#v", follows)
	}
	if _, known := follows["beta"]; !known {
		t.Fatal("explicitly unfollowed series must stay known")
	}
}
