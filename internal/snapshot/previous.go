package snapshot

import (
	"math"
	"math/rand/v2"
)

// DefaultVolatility bounds the synthetic previous-period move to ±0.4%.
const DefaultVolatility = 0.004

// PreviousPrice fabricates a prior-period price for trend indicators by
// applying uniform noise in [-volatility, +volatility) to current. It is
// display-only and never cached. A nil rng uses the package source.
func PreviousPrice(current int64, volatility float64, rng *rand.Rand) int64 {
	if !(volatility > 0) || math.IsInf(volatility, 0) {
		return current
	}
	u := rand.Float64
	if rng != nil {
		u = rng.Float64
	}
	c := float64(current)
	change := c * (u()*volatility*2 - volatility)
	return int64(math.Round(c + change))
}

// Previous is PreviousPrice with the default volatility.
func Previous(current int64) int64 {
	return PreviousPrice(current, DefaultVolatility, nil)
}
