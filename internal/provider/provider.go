package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// DefaultSilverRatio approximates how many grams of silver buy one gram of
// gold. It is used only when an upstream quotes gold without silver.
const DefaultSilverRatio = 82.0

// MaxPlausible caps any single upstream figure. Anything larger cannot be a
// metal price in a real currency and would overflow the derived amounts.
const MaxPlausible = 1e9

// Quote is the raw per-gram pair every source reports, in the configured
// currency.
type Quote struct {
	GoldPerGram   float64 `json:"gold_per_gram"`
	SilverPerGram float64 `json:"silver_per_gram"`
	Source        string  `json:"source"`
}

// Source obtains one quote from a single upstream path. Fetch reports false
// on any failure and never returns a partial or guessed value.
//
//go:generate mockgen -package=prices_test -destination=../prices/mock_source_test.go -source=provider.go Source
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Quote, bool)
}

var (
	ErrNotNumeric   = errors.New("quote is not a finite number")
	ErrNotPositive  = errors.New("quote is not positive")
	ErrBelowFloor   = errors.New("quote below sanity floor")
	ErrAboveCeiling = errors.New("quote above sanity ceiling")
	ErrRoundsToZero = errors.New("quote rounds to zero")
	ErrMissingGold  = errors.New("quote has no gold figure")
	ErrInvalidRatio = errors.New("silver ratio must be positive")
)

// Plausible checks a single upstream figure against floor and MaxPlausible.
// Zero, negative, NaN and infinite values are rejected.
func Plausible(v, floor float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrNotNumeric
	}
	if v <= 0 {
		return ErrNotPositive
	}
	if v <= floor {
		return fmt.Errorf("%w: %v <= %v", ErrBelowFloor, v, floor)
	}
	if v > MaxPlausible {
		return fmt.Errorf("%w: %v", ErrAboveCeiling, v)
	}
	return nil
}

// Complete validates an upstream gold/silver pair and fills in silver from
// gold/ratio when the upstream did not report it (nil or zero). A reported
// silver figure that is negative or not finite rejects the whole quote.
func Complete(gold, silver *float64, goldFloor, ratio float64) (Quote, error) {
	if gold == nil {
		return Quote{}, ErrMissingGold
	}
	if err := Plausible(*gold, goldFloor); err != nil {
		return Quote{}, fmt.Errorf("gold: %w", err)
	}
	q := Quote{GoldPerGram: *gold}
	if silver == nil || *silver == 0 {
		if !(ratio > 0) {
			return Quote{}, ErrInvalidRatio
		}
		q.SilverPerGram = *gold / ratio
	} else {
		if err := Plausible(*silver, 0); err != nil {
			return Quote{}, fmt.Errorf("silver: %w", err)
		}
		q.SilverPerGram = *silver
	}
	// Whole-unit amounts are derived from the quote; a figure under half a
	// unit would yield zero prices.
	if math.Round(q.SilverPerGram) < 1 {
		return Quote{}, fmt.Errorf("silver: %w: %v", ErrRoundsToZero, q.SilverPerGram)
	}
	return q, nil
}
