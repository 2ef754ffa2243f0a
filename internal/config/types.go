package config

// Config is the root configuration for the trading pipeline.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Capital   CapitalConfig   `mapstructure:"capital"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Signals   SignalsConfig   `mapstructure:"signals"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Symbols   SymbolsConfig   `mapstructure:"symbols"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Store     StoreConfig     `mapstructure:"store"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Report    ReportConfig    `mapstructure:"report"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

type CapitalConfig struct {
	// InitialCapital seeds the cash ledger; the portfolio snapshot for an
	// empty position set must equal it exactly.
	InitialCapital float64 `mapstructure:"initial_capital"`
	// MinBalance is the floor the projected balance must stay above after
	// any new trade.
	MinBalance float64 `mapstructure:"min_balance"`
}

type RiskConfig struct {
	MaxPositionPct       float64 `mapstructure:"max_position_pct"`
	MaxDailyLossPct      float64 `mapstructure:"max_daily_loss_pct"`
	MaxSymbolExposurePct float64 `mapstructure:"max_symbol_exposure_pct"`
	StopLossPct          float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct        float64 `mapstructure:"take_profit_pct"`
	MaxHoldHours         float64 `mapstructure:"max_hold_hours"`
	SweepIntervalSec     int     `mapstructure:"sweep_interval_sec"`
}

type SignalsConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	IntervalMinutes  int      `mapstructure:"interval_minutes"`
	Strategies       []string `mapstructure:"strategies"`
	MaxPerInterval   int      `mapstructure:"max_per_interval"`
	MinStrength      string   `mapstructure:"min_strength"`
	FastPeriod       int      `mapstructure:"fast_period"`
	SlowPeriod       int      `mapstructure:"slow_period"`
	RSIPeriod        int      `mapstructure:"rsi_period"`
	BreakoutPeriod   int      `mapstructure:"breakout_period"`
	MaxPositionSlots int      `mapstructure:"max_position_slots"`
}

type ExecutionConfig struct {
	// SlippagePct maps instrument class -> slippage magnitude in percent.
	SlippagePct map[string]float64 `mapstructure:"slippage_pct"`
	// Fees maps venue name -> fixed per-trade fee in account currency.
	Fees map[string]float64 `mapstructure:"fees"`
	// ProviderTimeoutSec bounds every call into market-data and venue
	// collaborators.
	ProviderTimeoutSec int `mapstructure:"provider_timeout_sec"`
}

type SymbolsConfig struct {
	Stocks []string `mapstructure:"stocks"`
	ETFs   []string `mapstructure:"etfs"`
	Crypto []string `mapstructure:"crypto"`
}

// Universe flattens the configured symbol lists in a stable order.
func (s SymbolsConfig) Universe() []string {
	out := make([]string, 0, len(s.Stocks)+len(s.ETFs)+len(s.Crypto))
	out = append(out, s.Stocks...)
	out = append(out, s.ETFs...)
	out = append(out, s.Crypto...)
	return out
}

type RoutingConfig struct {
	// Mode selects the active routing table in the profile file.
	Mode string `mapstructure:"mode"`
	// ProfilePath points at the routing-profile YAML (venues, capability
	// declarations, per-class routing tables). Hot reloadable.
	ProfilePath string `mapstructure:"profile_path"`
}

type StoreConfig struct {
	JournalPath  string `mapstructure:"journal_path"`
	PriceLogPath string `mapstructure:"pricelog_path"`
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Snapshot  bool   `mapstructure:"snapshot"`
}
