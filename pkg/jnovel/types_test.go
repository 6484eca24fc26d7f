package jnovel

import (
	"testing"
	"time"
)

func TestPackFor(t *testing.T) {
	opts := CoinOptions{
		Packs: []CoinPack{
			{Coins: 1000, Cents: 4199},
			{Coins: 100, Cents: 499},
			{Coins: 500, Cents: 2199},
		},
	}

	tests := []struct {
		name      string
		shortfall int
		expect    int
	}{
		{name: "smallest covering pack", shortfall: 90, expect: 100},
		{name: "exact cover counts", shortfall: 100, expect: 100},
		{name: "next pack up", shortfall: 101, expect: 500},
		{name: "largest when none covers", shortfall: 4000, expect: 1000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if pack := opts.PackFor(tc.shortfall); pack.Coins != tc.expect {
				t.Fatalf("shortfall %d: expected pack of %d, got %d", tc.shortfall, tc.expect, pack.Coins)
			}
		})
	}
}

func TestDiscountedCents(t *testing.T) {
	opts := CoinOptions{DiscountPercent: 15}
	if got := opts.DiscountedCents(CoinPack{Coins: 100, Cents: 1000}); got != 850 {
		t.Fatalf("expected 850, got %d", got)
	}
}

func TestEffectivePrice(t *testing.T) {
	if got := (Book{Price: 7}).EffectivePrice(); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := (Book{}).EffectivePrice(); got != 1 {
		t.Fatalf("expected fallback of 1, got %d", got)
	}
}

func TestFullyTranslated(t *testing.T) {
	s := Series{Tags: []string{"fantasy", "fully translated"}}
	if !s.FullyTranslated() {
		t.Fatal("expected fully translated")
	}
	if (Series{Tags: []string{"ongoing"}}).FullyTranslated() {
		t.Fatal("unexpected fully translated")
	}
}

func TestPreorder(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !(Book{PublishedAt: now.AddDate(0, 0, 1)}).Preorder(now) {
		t.Fatal("future release must be a preorder")
	}
	// Release timestamp equal to now means available.
	if (Book{PublishedAt: now}).Preorder(now) {
		t.Fatal("release == now must not be a preorder")
	}
}
