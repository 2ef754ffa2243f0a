package strategy

import (
	talib "github.com/markcheno/go-talib"

	"tradepilot/internal/types"
)

// candidate is a raw rule output before filtering and sizing.
type candidate struct {
	Strategy string
	Symbol   string
	Side     types.Side
	Strength types.Strength
	Price    float64
	Reason   string
}

// rule evaluates one strategy against a symbol's price window. The window is
// oldest-first; the last element is the current price.
type rule func(sym string, closes []float64, cfg ruleConfig) (candidate, bool)

type ruleConfig struct {
	FastPeriod     int
	SlowPeriod     int
	RSIPeriod      int
	BreakoutPeriod int
}

const (
	StrategyMACrossover      = "ma_crossover"
	StrategyRSIMeanReversion = "rsi_mean_reversion"
	StrategyMomentumBreakout = "momentum_breakout"
)

var rules = map[string]rule{
	StrategyMACrossover:      evalMACrossover,
	StrategyRSIMeanReversion: evalRSIMeanReversion,
	StrategyMomentumBreakout: evalMomentumBreakout,
}

// evalMACrossover fires when the fast SMA crosses the slow SMA on the latest
// bar. Strength scales with the percentage gap between the averages.
func evalMACrossover(sym string, closes []float64, cfg ruleConfig) (candidate, bool) {
	if len(closes) < cfg.SlowPeriod+1 {
		return candidate{}, false
	}
	fast := talib.Sma(closes, cfg.FastPeriod)
	slow := talib.Sma(closes, cfg.SlowPeriod)
	last := len(closes) - 1
	if slow[last] == 0 || slow[last-1] == 0 {
		return candidate{}, false
	}

	crossedUp := fast[last-1] <= slow[last-1] && fast[last] > slow[last]
	crossedDown := fast[last-1] >= slow[last-1] && fast[last] < slow[last]
	if !crossedUp && !crossedDown {
		return candidate{}, false
	}

	gapPct := (fast[last] - slow[last]) / slow[last] * 100
	if gapPct < 0 {
		gapPct = -gapPct
	}
	side := types.SideBuy
	reason := "fast SMA crossed above slow"
	if crossedDown {
		side = types.SideSell
		reason = "fast SMA crossed below slow"
	}
	return candidate{
		Strategy: StrategyMACrossover,
		Symbol:   sym,
		Side:     side,
		Strength: scaleStrength(gapPct, 0.1, 0.5, 1.0),
		Price:    closes[last],
		Reason:   reason,
	}, true
}

// evalRSIMeanReversion buys oversold and sells overbought. Strength scales
// with the distance past the threshold.
func evalRSIMeanReversion(sym string, closes []float64, cfg ruleConfig) (candidate, bool) {
	if len(closes) < cfg.RSIPeriod+1 {
		return candidate{}, false
	}
	rsi := talib.Rsi(closes, cfg.RSIPeriod)
	last := rsi[len(rsi)-1]

	switch {
	case last < 30:
		return candidate{
			Strategy: StrategyRSIMeanReversion,
			Symbol:   sym,
			Side:     types.SideBuy,
			Strength: scaleStrength(30-last, 2, 5, 10),
			Price:    closes[len(closes)-1],
			Reason:   "RSI oversold",
		}, true
	case last > 70:
		return candidate{
			Strategy: StrategyRSIMeanReversion,
			Symbol:   sym,
			Side:     types.SideSell,
			Strength: scaleStrength(last-70, 2, 5, 10),
			Price:    closes[len(closes)-1],
			Reason:   "RSI overbought",
		}, true
	}
	return candidate{}, false
}

// evalMomentumBreakout fires when price clears the recent range by more than
// one percent. Strength scales with the breakout magnitude.
func evalMomentumBreakout(sym string, closes []float64, cfg ruleConfig) (candidate, bool) {
	if len(closes) < cfg.BreakoutPeriod+1 {
		return candidate{}, false
	}
	window := closes[len(closes)-cfg.BreakoutPeriod-1 : len(closes)-1]
	high := talib.Max(window, cfg.BreakoutPeriod)[len(window)-1]
	low := talib.Min(window, cfg.BreakoutPeriod)[len(window)-1]
	price := closes[len(closes)-1]

	switch {
	case high > 0 && price > high*1.01:
		magnitude := (price/high - 1.01) * 100
		return candidate{
			Strategy: StrategyMomentumBreakout,
			Symbol:   sym,
			Side:     types.SideBuy,
			Strength: scaleStrength(magnitude, 0.5, 1.5, 3.0),
			Price:    price,
			Reason:   "breakout above range high",
		}, true
	case low > 0 && price < low*0.99:
		magnitude := (0.99 - price/low) * 100
		return candidate{
			Strategy: StrategyMomentumBreakout,
			Symbol:   sym,
			Side:     types.SideSell,
			Strength: scaleStrength(magnitude, 0.5, 1.5, 3.0),
			Price:    price,
			Reason:   "breakdown below range low",
		}, true
	}
	return candidate{}, false
}

// scaleStrength buckets a score against three ascending thresholds.
func scaleStrength(score, moderate, strong, veryStrong float64) types.Strength {
	switch {
	case score >= veryStrong:
		return types.StrengthVeryStrong
	case score >= strong:
		return types.StrengthStrong
	case score >= moderate:
		return types.StrengthModerate
	default:
		return types.StrengthWeak
	}
}
