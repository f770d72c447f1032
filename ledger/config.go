package ledger

import "github.com/warp/ledger-engine/money"

// Config holds the posting policy. It is passed explicitly to postings and
// reports; nothing in this package reads global settings.
type Config struct {
	// Precision is the number of fractional digits of the posting currency.
	Precision int32

	// RoundOffAccount absorbs residual cents. Empty disables automatic round-off.
	RoundOffAccount string

	// RoundOffLimit is the largest absolute difference ApplyRoundOff will
	// absorb. Anything larger is treated as a real imbalance.
	RoundOffLimit money.Money
}

// DefaultConfig uses two decimals and a round-off limit of one currency unit.
func DefaultConfig() Config {
	return Config{
		Precision:     money.DefaultScale,
		RoundOffLimit: money.FromMinor(100, money.DefaultScale),
	}
}
