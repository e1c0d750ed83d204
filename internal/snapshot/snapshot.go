// Package snapshot holds the canonical gold/silver price snapshot and the
// rules that derive every purity and unit from a single per-gram quote.
package snapshot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance records how a snapshot reached the caller.
type Provenance string

const (
	ProvenanceLive    Provenance = "live"
	ProvenanceCached  Provenance = "cached"
	ProvenanceDefault Provenance = "default"
)

// TroyOunceGrams is the number of grams in one troy ounce.
const TroyOunceGrams = 31.1035

// Indicative prices served when no live source and no stored snapshot exist.
const (
	DefaultGoldPerGram   = 34250
	DefaultSilverPerGram = 418
	DefaultCurrency      = "LKR"
)

var (
	troyOunce = decimal.RequireFromString("31.1035")
	sterling  = decimal.RequireFromString("0.925")
	fineKarat = decimal.NewFromInt(24)
)

// Snapshot is one immutable, fully derived set of prices. All amounts are
// whole units of Currency.
type Snapshot struct {
	Gold24kPerGram     int64      `json:"gold24kPerGram"`
	Gold22kPerGram     int64      `json:"gold22kPerGram"`
	Gold21kPerGram     int64      `json:"gold21kPerGram"`
	Gold18kPerGram     int64      `json:"gold18kPerGram"`
	Silver999PerGram   int64      `json:"silver999PerGram"`
	Silver925PerGram   int64      `json:"silver925PerGram"`
	GoldPerTroyOunce   int64      `json:"goldPerTroyOunce"`
	SilverPerTroyOunce int64      `json:"silverPerTroyOunce"`
	Currency           string     `json:"currency,omitempty"`
	Source             string     `json:"source,omitempty"`
	RetrievedAt        time.Time  `json:"retrievedAt"`
	Provenance         Provenance `json:"provenance"`
}

// Build derives a live snapshot from one gold and one silver per-gram quote.
// The 24K and 999 figures are rounded first; every other field is derived
// from those rounded values and rounded half away from zero.
func Build(goldPerGram, silverPerGram float64, currency string, at time.Time) Snapshot {
	g24 := decimal.NewFromFloat(goldPerGram).Round(0)
	s999 := decimal.NewFromFloat(silverPerGram).Round(0)
	return Snapshot{
		Gold24kPerGram:     g24.IntPart(),
		Gold22kPerGram:     karat(g24, 22),
		Gold21kPerGram:     karat(g24, 21),
		Gold18kPerGram:     karat(g24, 18),
		Silver999PerGram:   s999.IntPart(),
		Silver925PerGram:   s999.Mul(sterling).Round(0).IntPart(),
		GoldPerTroyOunce:   g24.Mul(troyOunce).Round(0).IntPart(),
		SilverPerTroyOunce: s999.Mul(troyOunce).Round(0).IntPart(),
		Currency:           currency,
		RetrievedAt:        at.UTC(),
		Provenance:         ProvenanceLive,
	}
}

func karat(g24 decimal.Decimal, k int64) int64 {
	return g24.Mul(decimal.NewFromInt(k)).Div(fineKarat).Round(0).IntPart()
}

// Default returns the indicative snapshot used when nothing else is available.
func Default(currency string, at time.Time) Snapshot {
	if currency == "" {
		currency = DefaultCurrency
	}
	s := Build(DefaultGoldPerGram, DefaultSilverPerGram, currency, at)
	s.Provenance = ProvenanceDefault
	return s
}

// WithProvenance returns a copy of s tagged with p.
func (s Snapshot) WithProvenance(p Provenance) Snapshot {
	s.Provenance = p
	return s
}

// Valid reports whether every amount is positive and the snapshot is dated.
func (s Snapshot) Valid() bool {
	for _, v := range []int64{
		s.Gold24kPerGram, s.Gold22kPerGram, s.Gold21kPerGram, s.Gold18kPerGram,
		s.Silver999PerGram, s.Silver925PerGram, s.GoldPerTroyOunce, s.SilverPerTroyOunce,
	} {
		if v <= 0 {
			return false
		}
	}
	return !s.RetrievedAt.IsZero()
}

// FreshAt reports whether s is no older than window at now. A snapshot
// dated after now is never fresh.
func (s Snapshot) FreshAt(now time.Time, window time.Duration) bool {
	age := now.Sub(s.RetrievedAt)
	return age >= 0 && age <= window
}

// SamePrices reports whether a and b carry identical amounts, ignoring
// metadata such as provenance and timestamps.
func SamePrices(a, b Snapshot) bool {
	a.RetrievedAt, b.RetrievedAt = time.Time{}, time.Time{}
	a.Provenance, b.Provenance = "", ""
	a.Source, b.Source = "", ""
	return a == b
}
