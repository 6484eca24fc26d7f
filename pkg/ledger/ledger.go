// Package ledger reads and writes the two durable local state files: the
// download ledger (book id -> slug + download timestamp) and the follow
// ledger (series slug -> followed). Both are tab-separated files keyed by a
// stable string id; saving preserves every key that was loaded.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jncsync/jncsync/pkg/jnovel"
)

// Entry is one download ledger row. DownloadedAt is nil for rows read from
// the legacy two-column format until MigrateLegacy resolves them.
type Entry struct {
	Slug         string
	DownloadedAt *time.Time
}

// Downloads maps book id to its ledger entry.
type Downloads map[string]Entry

// LoadDownloads parses the download ledger. A missing file is an empty
// ledger. Legacy two-column rows (no timestamp) load with a nil timestamp.
func LoadDownloads(path string) (Downloads, error) {
	rows, err := readTSV(path)
	if err != nil {
		return nil, fmt.Errorf("reading download ledger: %w", err)
	}

	downloads := make(Downloads)
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		entry := Entry{}
		if len(row) >= 2 {
			entry.Slug = row[1]
		}
		if len(row) >= 3 {
			t, err := time.Parse(time.RFC3339, row[2])
			if err != nil {
				return nil, fmt.Errorf("download ledger row %s: bad timestamp %q: %w", row[0], row[2], err)
			}
			utc := t.UTC()
			entry.DownloadedAt = &utc
		}
		downloads[row[0]] = entry
	}
	return downloads, nil
}

// MigrateLegacy assigns a timestamp to legacy rows: the later of the book's
// release and purchase timestamps. Rows for books no longer in the library
// are left as-is and round-trip unchanged.
func (d Downloads) MigrateLegacy(library map[string]jnovel.Book) {
	for id, entry := range d {
		if entry.DownloadedAt != nil {
			continue
		}
		book, ok := library[id]
		if !ok {
			continue
		}
		assumed := book.PublishedAt
		if book.PurchasedAt != nil && book.PurchasedAt.After(assumed) {
			assumed = *book.PurchasedAt
		}
		if entry.Slug == "" {
			entry.Slug = book.Slug
		}
		entry.DownloadedAt = &assumed
		d[id] = entry
	}
}

// SaveDownloads writes the ledger back in the three-column format. Rows
// that could not be migrated keep their legacy shape rather than being
// dropped or given a fabricated timestamp.
func SaveDownloads(path string, downloads Downloads) error {
	ids := make([]string, 0, len(downloads))
	for id := range downloads {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		entry := downloads[id]
		if entry.DownloadedAt == nil {
			rows = append(rows, []string{id, entry.Slug})
			continue
		}
		rows = append(rows, []string{id, entry.Slug, entry.DownloadedAt.UTC().Format(time.RFC3339)})
	}
	return writeTSV(path, rows)
}

// LoadFollows parses the follow ledger into series slug -> followed.
// A missing file is an empty ledger.
func LoadFollows(path string) (map[string]bool, error) {
	rows, err := readTSV(path)
	if err != nil {
		return nil, fmt.Errorf("reading follow ledger: %w", err)
	}

	follows := make(map[string]bool)
	for _, row := range rows {
		if len(row) < 2 || row[0] == "" {
			continue
		}
		follows[row[0]] = strings.EqualFold(row[1], "true")
	}
	return follows, nil
}

// SaveFollows writes the follow ledger. The True/False spelling matches the
// files written by earlier versions of the tool.
func SaveFollows(path string, follows map[string]bool) error {
	slugs := make([]string, 0, len(follows))
	for slug := range follows {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	rows := make([][]string, 0, len(slugs))
	for _, slug := range slugs {
		state := "False"
		if follows[slug] {
			state = "True"
		}
		rows = append(rows, []string{slug, state})
	}
	return writeTSV(path, rows)
}

func readTSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func writeTSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(f)
	writer.Comma = '\t'
	if err := writer.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
