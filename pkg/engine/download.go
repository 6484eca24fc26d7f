package engine

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jncsync/jncsync/internal/utils"
	"github.com/jncsync/jncsync/pkg/jnovel"
	"github.com/jncsync/jncsync/pkg/ledger"
)

// Downloader fetches owned book content into a target directory and stamps
// the download ledger. A ledger entry is written only after the file is on
// disk, so an interrupted run never claims a download it doesn't have.
type Downloader struct {
	Catalog Catalog
	Now     time.Time
}

// Sync walks the owned books and downloads everything new, plus everything
// updated since its ledger timestamp when includeUpdated is set. Failures
// are reported per book and leave that book's ledger entry untouched, so a
// later run retries it. Returns the books downloaded this run.
func (d *Downloader) Sync(user jnovel.UserData, books []jnovel.Book, downloads ledger.Downloads, targetDir string, includeUpdated bool) []jnovel.Book {
	var fetched []jnovel.Book

	for _, book := range books {
		if !book.Owned || book.Preorder(d.Now) {
			continue
		}
		if book.DownloadURL == "" {
			utils.Log.Debugf("%s is owned but has no download yet, skipping", book.Slug)
			continue
		}
		entry, tracked := downloads[book.ID]
		if tracked {
			if !includeUpdated {
				continue
			}
			if book.UpdatedAt == nil || entry.DownloadedAt == nil || !book.UpdatedAt.After(*entry.DownloadedAt) {
				continue
			}
			utils.Log.Infof("%s was updated since its last download", book.Title)
		}

		content, err := d.Catalog.DownloadBook(user, book)
		if err != nil {
			utils.Log.Errorf("Downloading %s (%s): %v", book.Title, book.ID, err)
			continue
		}

		path := filepath.Join(targetDir, book.Slug+".epub")
		if err := os.WriteFile(path, content, 0o644); err != nil {
			utils.Log.Errorf("Writing %s: %v", path, err)
			continue
		}

		stamp := d.Now
		downloads[book.ID] = ledger.Entry{Slug: book.Slug, DownloadedAt: &stamp}
		fetched = append(fetched, book)
		utils.Log.Infof("Downloaded %s (%s, released %s)", book.Title, book.ID, book.PublishedAt.Format("2006-01-02"))
	}

	return fetched
}
