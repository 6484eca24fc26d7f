package jnovel

import "time"

// Book is a single purchasable volume, normalized from the catalog's nested
// library and series responses. Books are rebuilt from remote state on every
// run; only the ID survives across runs, as the download ledger key.
type Book struct {
	ID          string
	Title       string
	Slug        string
	SeriesID    string
	SeriesSlug  string
	Volume      int
	PublishedAt time.Time
	Owned       bool
	UpdatedAt   *time.Time
	PurchasedAt *time.Time
	Price       int
	DownloadURL string
}

// Preorder reports whether the book's release is still in the future
// relative to the run's reference time.
func (b Book) Preorder(now time.Time) bool {
	return b.PublishedAt.After(now)
}

// EffectivePrice returns the book's coin price, falling back to a single
// credit when the catalog did not report one.
func (b Book) EffectivePrice() int {
	if b.Price > 0 {
		return b.Price
	}
	return 1
}

// Series is a named group of volumes. Volumes is empty until the series
// detail has been fetched.
type Series struct {
	ID      string
	Slug    string
	Title   string
	Tags    []string
	Volumes []Book
}

// FullyTranslated reports whether the catalog has tagged the series as
// having no further volumes to come.
func (s Series) FullyTranslated() bool {
	for _, tag := range s.Tags {
		if tag == "fully translated" {
			return true
		}
	}
	return false
}

const premiumMembership = "PremiumMembership"

// UserData is the account state for one run. Coins is mutated only by the
// acquisition planner after successful redeem/purchase calls; the client
// itself is stateless per call.
type UserData struct {
	UserID      string
	Name        string
	AuthToken   string
	Coins       int
	AccountType string
}

// PremiumMember reports whether the account is on the premium plan, which
// determines the coin discount rate.
func (u UserData) PremiumMember() bool {
	return u.AccountType == premiumMembership
}

// CoinPack is one purchasable coin bundle.
type CoinPack struct {
	Coins int
	Cents int
}

// CoinOptions describes the catalog's coin purchase constraints.
type CoinOptions struct {
	Min             int
	Max             int
	DiscountPercent int
	PriceInCents    int
	Packs           []CoinPack
}

// PackFor picks the smallest pack covering the shortfall, or the largest
// available pack when none does.
func (o CoinOptions) PackFor(shortfall int) CoinPack {
	var best, largest CoinPack
	haveBest := false
	for _, p := range o.Packs {
		if p.Coins > largest.Coins {
			largest = p
		}
		if p.Coins >= shortfall && (!haveBest || p.Coins < best.Coins) {
			best = p
			haveBest = true
		}
	}
	if haveBest {
		return best
	}
	return largest
}

// DiscountedCents applies the account's discount rate to a pack price.
func (o CoinOptions) DiscountedCents(pack CoinPack) int {
	return pack.Cents * (100 - o.DiscountPercent) / 100
}

// DefaultCoinOptions are the documented constraints, used when the coin
// options endpoint is unreachable or omits the pack table.
func DefaultCoinOptions() CoinOptions {
	return CoinOptions{
		Min:          100,
		Max:          5000,
		PriceInCents: 1,
		Packs: []CoinPack{
			{Coins: 100, Cents: 499},
			{Coins: 250, Cents: 1149},
			{Coins: 500, Cents: 2199},
			{Coins: 1000, Cents: 4199},
		},
	}
}
