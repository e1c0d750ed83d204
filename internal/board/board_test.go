package board

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"metalprice/internal/snapshot"
)

func TestBuild_RowsFollowSnapshot(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := snapshot.Build(34250, 418, "LKR", at)
	snap.Source = "metals.dev"

	b := Build(snap, snapshot.DefaultVolatility, rand.New(rand.NewPCG(1, 2)))

	require.Equal(t, "LKR", b.Currency)
	require.Equal(t, "metals.dev", b.Source)
	require.Equal(t, at, b.RetrievedAt)
	require.Equal(t, snapshot.ProvenanceLive, b.Provenance)
	require.Len(t, b.Rows, 6)

	want := []struct {
		label, karat string
		price        int64
	}{
		{"Gold 24K", "999", 34250 * 8},
		{"Gold 22K", "916", 31396 * 8},
		{"Gold 21K", "875", snap.Gold21kPerGram * 8},
		{"Gold 18K", "750", 25688 * 8},
		{"Silver 925", "Sterling", 387},
		{"Silver 999", "Pure", 418},
	}
	for i, w := range want {
		r := b.Rows[i]
		require.Equal(t, w.label, r.Label)
		require.Equal(t, w.karat, r.Karat)
		require.Equal(t, w.price, r.Price, r.Label)
		require.Equal(t, r.Price-r.PreviousPrice, r.Change, r.Label)
		require.Len(t, r.Sparkline, SparklinePoints)
		require.Equal(t, r.Price, r.Sparkline[SparklinePoints-1])

		// previous stays within ±0.4% (+1 for rounding)
		bound := float64(r.Price)*snapshot.DefaultVolatility + 1
		require.LessOrEqual(t, float64(abs(r.Change)), bound, r.Label)
	}
	require.Equal(t, "per 8g (1 Pawn)", b.Rows[0].Unit)
	require.Equal(t, "per gram", b.Rows[5].Unit)
	require.Equal(t, "silver", b.Rows[4].Metal)
}

func TestBuild_ZeroVolatilityIsFlat(t *testing.T) {
	snap := snapshot.Default("LKR", time.Now())

	b := Build(snap, 0, nil)

	for _, r := range b.Rows {
		require.Equal(t, r.Price, r.PreviousPrice)
		require.Zero(t, r.Change)
		require.Zero(t, r.ChangePercent)
		require.Equal(t, Flat, r.Direction)
	}
}

func TestPercentAndDirection(t *testing.T) {
	tests := []struct {
		price, prev int64
		pct         float64
		dir         Direction
	}{
		{1004, 1000, 0.4, Up},
		{996, 1000, -0.4, Down},
		{1000, 1000, 0, Flat},
		{274000, 273123, 0.32, Up},
		{5, 0, 0, Up},
	}
	for _, tt := range tests {
		require.Equal(t, tt.pct, percent(tt.price, tt.prev))
		require.Equal(t, tt.dir, direction(tt.price, tt.prev))
	}
}

func TestSparkline_StartsBelowPrice(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	line := Sparkline(100000, rng)

	require.Len(t, line, SparklinePoints)
	// first point is 97% of price plus at most one step of ±0.55%
	require.InDelta(t, 97000, line[0], 600)
	require.Equal(t, int64(100000), line[len(line)-1])
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
