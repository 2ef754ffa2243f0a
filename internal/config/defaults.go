package config

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.Env == "" {
		c.App.Env = "paper"
	}

	if c.Capital.InitialCapital <= 0 {
		c.Capital.InitialCapital = 500
	}

	if c.Risk.MaxPositionPct <= 0 {
		c.Risk.MaxPositionPct = 0.10
	}
	if c.Risk.MaxDailyLossPct <= 0 {
		c.Risk.MaxDailyLossPct = 0.05
	}
	if c.Risk.MaxSymbolExposurePct <= 0 {
		c.Risk.MaxSymbolExposurePct = 0.15
	}
	if c.Risk.StopLossPct <= 0 {
		c.Risk.StopLossPct = 3.0
	}
	if c.Risk.TakeProfitPct <= 0 {
		c.Risk.TakeProfitPct = 6.0
	}
	if c.Risk.MaxHoldHours <= 0 {
		c.Risk.MaxHoldHours = 24
	}
	if c.Risk.SweepIntervalSec <= 0 {
		c.Risk.SweepIntervalSec = 30
	}

	if c.Signals.IntervalMinutes <= 0 {
		c.Signals.IntervalMinutes = 15
	}
	if len(c.Signals.Strategies) == 0 {
		c.Signals.Strategies = []string{"ma_crossover", "rsi_mean_reversion", "momentum_breakout"}
	}
	if c.Signals.MaxPerInterval <= 0 {
		c.Signals.MaxPerInterval = 12
	}
	if c.Signals.MinStrength == "" {
		c.Signals.MinStrength = "moderate"
	}
	if c.Signals.FastPeriod <= 0 {
		c.Signals.FastPeriod = 15
	}
	if c.Signals.SlowPeriod <= 0 {
		c.Signals.SlowPeriod = 50
	}
	if c.Signals.RSIPeriod <= 0 {
		c.Signals.RSIPeriod = 14
	}
	if c.Signals.BreakoutPeriod <= 0 {
		c.Signals.BreakoutPeriod = 20
	}
	if c.Signals.MaxPositionSlots <= 0 {
		c.Signals.MaxPositionSlots = 10
	}

	if len(c.Execution.SlippagePct) == 0 {
		c.Execution.SlippagePct = map[string]float64{
			"stocks": 0.02,
			"etfs":   0.01,
			"crypto": 0.15,
		}
	}
	if len(c.Execution.Fees) == 0 {
		c.Execution.Fees = map[string]float64{
			"brokersim": 0.50,
			"dexsim":    25.0,
		}
	}
	if c.Execution.ProviderTimeoutSec <= 0 {
		c.Execution.ProviderTimeoutSec = 5
	}

	if len(c.Symbols.Stocks) == 0 && len(c.Symbols.ETFs) == 0 && len(c.Symbols.Crypto) == 0 {
		c.Symbols.Stocks = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "META"}
		c.Symbols.ETFs = []string{"SPY", "QQQ", "IWM", "VTI"}
		c.Symbols.Crypto = []string{"BTC", "ETH", "USDC"}
	}

	if c.Routing.Mode == "" {
		c.Routing.Mode = "hybrid"
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":9985"
	}

	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "data/reports"
	}
}
