package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jncsync/jncsync/internal/utils"
	"github.com/jncsync/jncsync/pkg/jnovel"
)

// Catalog is the remote surface the planner and downloader need. The
// concrete implementation is jnovel.Client.
type Catalog interface {
	OrderBook(user jnovel.UserData, book jnovel.Book) error
	FetchBook(user jnovel.UserData, bookID string) (jnovel.Book, error)
	BuyCoins(user jnovel.UserData, amount int, opts jnovel.CoinOptions) error
	FetchCoinOptions(user jnovel.UserData) (jnovel.CoinOptions, error)
	DownloadBook(user jnovel.UserData, book jnovel.Book) ([]byte, error)
}

// Service adds the read operations a full run needs on top of Catalog.
type Service interface {
	Catalog
	FetchLibrary(user jnovel.UserData) (map[string]jnovel.Book, error)
	FetchSeries(slug string) (jnovel.Series, error)
}

// Confirmer answers a yes/no prompt.
type Confirmer func(prompt string) bool

// Recorder receives run events for the history log.
type Recorder interface {
	Event(ctx context.Context, kind, bookID, title, detail string)
}

// Policy controls what the planner may spend and what it must ask about.
type Policy struct {
	BuyCoins     bool
	ConfirmOrder bool
	ConfirmCoins bool
}

// Planner redeems coins for orderable books. It owns the account balance:
// the catalog client stays stateless and the planner applies every balance
// change after the corresponding call succeeds.
type Planner struct {
	Catalog Catalog
	Confirm Confirmer
	Policy  Policy
	Record  Recorder
}

// Plan walks the orderable books in order and returns the authoritative
// records of everything acquired, keyed by book id.
//
// Per book: a declined confirmation skips just that book; a coin shortfall
// triggers at most one pack purchase; a balance still short after that ends
// the whole pass, since later books are higher-sequence and less urgent.
// Any other per-book failure is reported and the pass continues.
func (p *Planner) Plan(ctx context.Context, user *jnovel.UserData, orderable []jnovel.Book) map[string]jnovel.Book {
	acquired := make(map[string]jnovel.Book)
	var opts *jnovel.CoinOptions

	for _, book := range orderable {
		price := book.EffectivePrice()

		if p.Policy.ConfirmOrder && !p.Confirm(fmt.Sprintf("Order %s for %d coins?", book.Title, price)) {
			continue
		}

		if user.Coins < price && p.Policy.BuyCoins {
			if err := p.coverShortfall(ctx, user, price-user.Coins, &opts); err != nil {
				utils.Log.Errorf("Coin purchase failed: %v", err)
			}
		}

		if user.Coins < price {
			utils.Log.Warnf("Not enough coins for %s (%d needed, %d available). Stopping order pass.", book.Title, price, user.Coins)
			break
		}

		err := p.Catalog.OrderBook(*user, book)
		switch {
		case err == nil:
			user.Coins -= price
			acquired[book.ID] = p.refresh(*user, book)
			fmt.Printf("Ordered %s. Remaining coins: %d\n", book.Title, user.Coins)
		case errors.Is(err, jnovel.ErrAlreadyOwned):
			// Recovery from an interrupted earlier run; no coins were spent.
			utils.Log.Infof("%s was already ordered, picking it up", book.Title)
			acquired[book.ID] = p.refresh(*user, book)
		case errors.Is(err, jnovel.ErrInsufficientFunds):
			utils.Log.Warnf("Catalog reports not enough coins for %s. Stopping order pass.", book.Title)
			return acquired
		default:
			utils.Log.Errorf("Ordering %s (%s): %v", book.Title, book.ID, err)
		}
	}
	return acquired
}

// coverShortfall buys the smallest coin pack covering the shortfall (or the
// largest pack when none does). The coin options are fetched once per pass.
func (p *Planner) coverShortfall(ctx context.Context, user *jnovel.UserData, shortfall int, opts **jnovel.CoinOptions) error {
	if *opts == nil {
		fetched, err := p.Catalog.FetchCoinOptions(*user)
		if err != nil {
			utils.Log.Warnf("Could not fetch coin options, using defaults: %v", err)
			fetched = jnovel.DefaultCoinOptions()
		}
		*opts = &fetched
	}

	pack := (*opts).PackFor(shortfall)
	if pack.Coins == 0 {
		return fmt.Errorf("no coin pack available to cover a shortfall of %d", shortfall)
	}

	cost := (*opts).DiscountedCents(pack)
	if p.Policy.ConfirmCoins && !p.Confirm(fmt.Sprintf("Buy %d coins for $%.2f?", pack.Coins, float64(cost)/100)) {
		return errors.New("coin purchase declined")
	}

	if err := p.Catalog.BuyCoins(*user, pack.Coins, **opts); err != nil {
		return err
	}
	user.Coins += pack.Coins
	if p.Record != nil {
		p.Record.Event(ctx, "coins_purchased", "", "", fmt.Sprintf("%d coins for %d cents", pack.Coins, cost))
	}
	fmt.Printf("Bought %d coins. Balance is now %d.\n", pack.Coins, user.Coins)
	return nil
}

// refresh re-fetches the post-purchase record so the library picks up a
// fresh download handle. Falls back to the known record marked owned.
func (p *Planner) refresh(user jnovel.UserData, book jnovel.Book) jnovel.Book {
	fresh, err := p.Catalog.FetchBook(user, book.ID)
	if err != nil {
		utils.Log.Warnf("Could not refresh %s after ordering: %v", book.Slug, err)
		book.Owned = true
		return book
	}
	return fresh
}
