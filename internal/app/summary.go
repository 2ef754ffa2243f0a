package app

import (
	"fmt"
	"sort"
	"strings"

	"tradepilot/internal/config"
	"tradepilot/internal/route"
)

type StartupSummary struct {
	Capital   CapitalSummary
	Universe  UniverseSummary
	Routing   RoutingSummary
	Signals   SignalsSummary
	HTTPAddr  string
	HTTPReady bool
}

type CapitalSummary struct {
	Initial        float64
	MinBalance     float64
	MaxPositionPct float64
	MaxDailyLoss   float64
}

type UniverseSummary struct {
	Stocks []string
	ETFs   []string
	Crypto []string
}

type RoutingSummary struct {
	Mode   string
	Venues map[string][]string
}

type SignalsSummary struct {
	Enabled         bool
	Strategies      []string
	IntervalMinutes int
	MaxPerInterval  int
	MinStrength     string
}

func buildStartupSummary(cfg *config.Config, profiles *route.ProfileRegistry) *StartupSummary {
	venues := make(map[string][]string)
	for name, spec := range profiles.Snapshot().Venues {
		venues[name] = append([]string(nil), spec.Capabilities...)
	}
	return &StartupSummary{
		Capital: CapitalSummary{
			Initial:        cfg.Capital.InitialCapital,
			MinBalance:     cfg.Capital.MinBalance,
			MaxPositionPct: cfg.Risk.MaxPositionPct,
			MaxDailyLoss:   cfg.Risk.MaxDailyLossPct,
		},
		Universe: UniverseSummary{
			Stocks: cfg.Symbols.Stocks,
			ETFs:   cfg.Symbols.ETFs,
			Crypto: cfg.Symbols.Crypto,
		},
		Routing: RoutingSummary{Mode: cfg.Routing.Mode, Venues: venues},
		Signals: SignalsSummary{
			Enabled:         cfg.Signals.Enabled,
			Strategies:      cfg.Signals.Strategies,
			IntervalMinutes: cfg.Signals.IntervalMinutes,
			MaxPerInterval:  cfg.Signals.MaxPerInterval,
			MinStrength:     cfg.Signals.MinStrength,
		},
		HTTPAddr:  cfg.HTTP.Addr,
		HTTPReady: cfg.HTTP.Enabled,
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("STARTUP SUMMARY")/2, "STARTUP SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[CAPITAL]")
	fmt.Printf("  initial:         %.2f\n", s.Capital.Initial)
	fmt.Printf("  min balance:     %.2f\n", s.Capital.MinBalance)
	fmt.Printf("  max position:    %.1f%%\n", s.Capital.MaxPositionPct*100)
	fmt.Printf("  max daily loss:  %.1f%%\n", s.Capital.MaxDailyLoss*100)
	fmt.Println()

	fmt.Println("[UNIVERSE]")
	fmt.Printf("  stocks: %s\n", formatList(s.Universe.Stocks))
	fmt.Printf("  etfs:   %s\n", formatList(s.Universe.ETFs))
	fmt.Printf("  crypto: %s\n", formatList(s.Universe.Crypto))
	fmt.Println()

	fmt.Printf("[ROUTING] mode=%s\n", s.Routing.Mode)
	names := make([]string, 0, len(s.Routing.Venues))
	for name := range s.Routing.Venues {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  > %s: %s\n", name, formatList(s.Routing.Venues[name]))
	}
	fmt.Println()

	fmt.Println("[SIGNALS]")
	if !s.Signals.Enabled {
		fmt.Println("  (disabled)")
	} else {
		fmt.Printf("  strategies:   %s\n", formatList(s.Signals.Strategies))
		fmt.Printf("  interval:     %dm\n", s.Signals.IntervalMinutes)
		fmt.Printf("  max/interval: %d\n", s.Signals.MaxPerInterval)
		fmt.Printf("  min strength: %s\n", s.Signals.MinStrength)
	}
	fmt.Println()

	if s.HTTPReady {
		fmt.Printf("[HTTP] %s\n", s.HTTPAddr)
	} else {
		fmt.Println("[HTTP] disabled")
	}
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
