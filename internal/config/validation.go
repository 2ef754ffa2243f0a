package config

import (
	"fmt"
	"strings"
)

var knownStrategies = map[string]bool{
	"ma_crossover":       true,
	"rsi_mean_reversion": true,
	"momentum_breakout":  true,
}

var knownStrengths = map[string]bool{
	"weak": true, "moderate": true, "strong": true, "very_strong": true,
}

func validate(cfg *Config) error {
	if cfg.Capital.InitialCapital <= 0 {
		return fmt.Errorf("capital.initial_capital must be positive")
	}
	if cfg.Capital.MinBalance < 0 {
		return fmt.Errorf("capital.min_balance cannot be negative")
	}
	if cfg.Capital.MinBalance >= cfg.Capital.InitialCapital {
		return fmt.Errorf("capital.min_balance (%.2f) must be below initial_capital (%.2f)",
			cfg.Capital.MinBalance, cfg.Capital.InitialCapital)
	}
	if cfg.Risk.MaxPositionPct > 1 || cfg.Risk.MaxDailyLossPct > 1 || cfg.Risk.MaxSymbolExposurePct > 1 {
		return fmt.Errorf("risk percentages are fractions of capital and must be <= 1")
	}
	if cfg.Signals.FastPeriod >= cfg.Signals.SlowPeriod {
		return fmt.Errorf("signals.fast_period (%d) must be below slow_period (%d)",
			cfg.Signals.FastPeriod, cfg.Signals.SlowPeriod)
	}
	if !knownStrengths[strings.ToLower(cfg.Signals.MinStrength)] {
		return fmt.Errorf("signals.min_strength %q is not one of weak/moderate/strong/very_strong", cfg.Signals.MinStrength)
	}
	for _, name := range cfg.Signals.Strategies {
		if !knownStrategies[strings.ToLower(strings.TrimSpace(name))] {
			return fmt.Errorf("signals.strategies contains unknown strategy %q", name)
		}
	}
	return nil
}
