package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jncsync/jncsync/internal/utils"
	"github.com/jncsync/jncsync/pkg/jnovel"
	"github.com/jncsync/jncsync/pkg/ledger"
)

// Options selects what a run may do and what it must ask about.
type Options struct {
	Order         bool
	BuyCoins      bool
	UpdateBooks   bool
	ConfirmOrder  bool
	ConfirmCoins  bool
	ConfirmFollow bool
	TargetDir     string
}

// Run is one full reconcile/acquire/download pass over the account. Now is
// captured once by the caller and reused for every availability comparison,
// so a long run can't see a book flip between preorder and available.
type Run struct {
	Client  Service
	Confirm Confirmer
	Record  Recorder
	Options Options
	Now     time.Time
}

// Execute drives the run: fetch the library, resolve legacy ledger rows,
// decide follows for new series, reconcile against followed series details,
// acquire what's orderable, download what's pending and unfollow what's
// complete. The follow and download ledgers are mutated in place; the
// caller persists them afterwards.
func (r *Run) Execute(ctx context.Context, user *jnovel.UserData, follows map[string]bool, downloads ledger.Downloads) error {
	library, err := r.Client.FetchLibrary(*user)
	if err != nil {
		return fmt.Errorf("fetching library: %w", err)
	}
	utils.Log.Debugf("Library holds %d books", len(library))

	downloads.MigrateLegacy(library)

	sorted := SortedLibrary(library)
	for _, slug := range NewSeries(sorted, follows) {
		follow := !r.Options.ConfirmFollow || r.Confirm(fmt.Sprintf("%s is a new series. Do you want to follow it?", slug))
		follows[slug] = follow
		if follow {
			r.event(ctx, "followed", "", slug, "")
		}
	}

	details := r.fetchFollowedSeries(follows)

	orderable := SortBooks(Orderable(library, details, follows))
	printOrderable(orderable, *user)

	if r.Options.Order && len(orderable) > 0 {
		planner := &Planner{
			Catalog: r.Client,
			Confirm: r.Confirm,
			Record:  r.Record,
			Policy: Policy{
				BuyCoins:     r.Options.BuyCoins,
				ConfirmOrder: r.Options.ConfirmOrder,
				ConfirmCoins: r.Options.ConfirmCoins,
			},
		}
		acquired := planner.Plan(ctx, user, orderable)
		for id, book := range acquired {
			library[id] = book
			r.event(ctx, "ordered", id, book.Title, "")
		}
		sorted = SortedLibrary(library)
	}

	printPreorders(Preorders(sorted, r.Now))

	downloader := &Downloader{Catalog: r.Client, Now: r.Now}
	for _, book := range downloader.Sync(*user, sorted, downloads, r.Options.TargetDir, r.Options.UpdateBooks) {
		r.event(ctx, "downloaded", book.ID, book.Title, "")
	}

	for _, slug := range Completable(details, follows, downloads, r.Now) {
		fmt.Printf("%s is fully owned and completed. Series will not be followed anymore.\n", slug)
		follows[slug] = false
		r.event(ctx, "unfollowed", "", slug, "")
	}

	return nil
}

// fetchFollowedSeries loads the detail of every followed series in the
// ledger, in stable slug order. A failed detail fetch drops that series
// from this run's reconciliation but doesn't end the run.
func (r *Run) fetchFollowedSeries(follows map[string]bool) []jnovel.Series {
	slugs := make([]string, 0, len(follows))
	for slug, followed := range follows {
		if followed {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)

	var details []jnovel.Series
	for _, slug := range slugs {
		series, err := r.Client.FetchSeries(slug)
		if err != nil {
			utils.Log.Errorf("Fetching series %s: %v", slug, err)
			continue
		}
		details = append(details, series)
	}
	return details
}

func (r *Run) event(ctx context.Context, kind, bookID, title, detail string) {
	if r.Record != nil {
		r.Record.Event(ctx, kind, bookID, title, detail)
	}
}

func printOrderable(orderable []jnovel.Book, user jnovel.UserData) {
	if len(orderable) == 0 {
		fmt.Println("No new volumes in followed series.")
		return
	}
	total := 0
	for _, book := range orderable {
		total += book.EffectivePrice()
	}
	fmt.Printf("There are %d new volumes available (%d coins total, %d coins in your account):\n", len(orderable), total, user.Coins)
	for _, book := range orderable {
		fmt.Printf("  %s (vol. %d, %d coins)\n", book.Title, book.Volume, book.EffectivePrice())
	}
}

func printPreorders(preorders []jnovel.Book) {
	if len(preorders) == 0 {
		return
	}
	fmt.Println("\nCurrent preorders (Release Date / Title):")
	for _, book := range preorders {
		fmt.Printf("  %s  %s\n", book.PublishedAt.Format("2006-01-02"), book.Title)
	}
}
