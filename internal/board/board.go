// Package board lays a snapshot out as the storefront price board: one row
// per purity with a synthetic previous price, change and sparkline.
package board

import (
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"metalprice/internal/snapshot"
)

// PawnGrams is the traditional 8 g unit gold is quoted in.
const PawnGrams = 8

// SparklinePoints is the number of points in every row's sparkline,
// including the current price as the final point.
const SparklinePoints = 13

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// Row is one line of the board. PreviousPrice, Change, ChangePercent and
// Sparkline are synthetic and exist only for display.
type Row struct {
	Label         string    `json:"label"`
	Karat         string    `json:"karat"`
	Metal         string    `json:"metal"`
	Unit          string    `json:"unit"`
	Price         int64     `json:"price"`
	PreviousPrice int64     `json:"previousPrice"`
	Change        int64     `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Direction     Direction `json:"direction"`
	Sparkline     []int64   `json:"sparkline"`
}

type Board struct {
	Currency    string              `json:"currency"`
	Source      string              `json:"source,omitempty"`
	RetrievedAt time.Time           `json:"retrievedAt"`
	Provenance  snapshot.Provenance `json:"provenance"`
	Rows        []Row               `json:"rows"`
}

type line struct {
	label, karat, metal, unit string
	price                     int64
}

// Build renders snap as a board. A nil rng uses the package source.
func Build(snap snapshot.Snapshot, volatility float64, rng *rand.Rand) Board {
	const pawn = "per 8g (1 Pawn)"
	lines := []line{
		{"Gold 24K", "999", "gold", pawn, snap.Gold24kPerGram * PawnGrams},
		{"Gold 22K", "916", "gold", pawn, snap.Gold22kPerGram * PawnGrams},
		{"Gold 21K", "875", "gold", pawn, snap.Gold21kPerGram * PawnGrams},
		{"Gold 18K", "750", "gold", pawn, snap.Gold18kPerGram * PawnGrams},
		{"Silver 925", "Sterling", "silver", "per gram", snap.Silver925PerGram},
		{"Silver 999", "Pure", "silver", "per gram", snap.Silver999PerGram},
	}

	b := Board{
		Currency:    snap.Currency,
		Source:      snap.Source,
		RetrievedAt: snap.RetrievedAt,
		Provenance:  snap.Provenance,
		Rows:        make([]Row, 0, len(lines)),
	}
	for _, l := range lines {
		prev := snapshot.PreviousPrice(l.price, volatility, rng)
		b.Rows = append(b.Rows, Row{
			Label:         l.label,
			Karat:         l.karat,
			Metal:         l.metal,
			Unit:          l.unit,
			Price:         l.price,
			PreviousPrice: prev,
			Change:        l.price - prev,
			ChangePercent: percent(l.price, prev),
			Direction:     direction(l.price, prev),
			Sparkline:     Sparkline(l.price, rng),
		})
	}
	return b
}

// percent is (price-prev)/prev in percent, rounded to two places.
func percent(price, prev int64) float64 {
	if prev == 0 {
		return 0
	}
	d := decimal.NewFromInt(price - prev).
		Div(decimal.NewFromInt(prev)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f, _ := d.Float64()
	return f
}

func direction(price, prev int64) Direction {
	switch {
	case price > prev:
		return Up
	case price < prev:
		return Down
	default:
		return Flat
	}
}

// Sparkline draws a random walk that starts 3% under price, drifts upward
// and ends exactly on price.
func Sparkline(price int64, rng *rand.Rand) []int64 {
	u := rand.Float64
	if rng != nil {
		u = rng.Float64
	}
	base := float64(price)
	cur := base * 0.97
	out := make([]int64, 0, SparklinePoints)
	for i := 0; i < SparklinePoints-1; i++ {
		cur += (u() - 0.45) * base * 0.005
		out = append(out, decimal.NewFromFloat(cur).Round(0).IntPart())
	}
	return append(out, price)
}
