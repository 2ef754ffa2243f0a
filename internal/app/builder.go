package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradepilot/internal/config"
	"tradepilot/internal/engine"
	"tradepilot/internal/enrich"
	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/paper"
	"tradepilot/internal/perf"
	"tradepilot/internal/portfolio"
	"tradepilot/internal/position"
	"tradepilot/internal/report"
	"tradepilot/internal/risk"
	"tradepilot/internal/route"
	"tradepilot/internal/store/journal"
	"tradepilot/internal/store/pricelog"
	"tradepilot/internal/strategy"
	apihttp "tradepilot/internal/transport/http/api"
	"tradepilot/internal/types"
	"tradepilot/internal/venue"
)

// defaultRoutingProfile is written to routing.profile_path on first start so
// the router has a working table before anyone customizes it.
const defaultRoutingProfile = `venues:
  brokersim:
    capabilities: [stocks, etfs, options]
  dexsim:
    capabilities: [crypto]

modes:
  hybrid:
    stocks: brokersim
    etfs: brokersim
    crypto: dexsim
  broker_only:
    stocks: brokersim
    etfs: brokersim
    crypto: blocked
  crypto_only:
    stocks: blocked
    etfs: blocked
    crypto: dexsim
`

// seedWindow is how many recorded ticks per symbol are replayed into the
// signal generator on start.
const seedWindow = 64

type AppBuilder struct {
	cfg *config.Config

	marketSourceFn func(*config.Config) market.Source
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		marketSourceFn: buildSimulatedSource,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithMarketSource replaces the simulated feed, for tests and replays.
func WithMarketSource(fn func(*config.Config) market.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.marketSourceFn = fn
		}
	}
}

func buildSimulatedSource(cfg *config.Config) market.Source {
	return market.NewSimulatedSource(cfg.Symbols.Universe())
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	jrnl, priceLog, err := openStores(cfg)
	if err != nil {
		return nil, err
	}
	closeStores := func() {
		if jrnl != nil {
			jrnl.Close()
		}
		if priceLog != nil {
			priceLog.Close()
		}
	}

	source := b.marketSourceFn(cfg)
	if priceLog != nil {
		source = market.NewRecordingSource(source, priceLog)
	}

	profiles, err := loadRoutingProfile(cfg)
	if err != nil {
		closeStores()
		return nil, err
	}
	profiles.OnChange(func(snap route.Snapshot) {
		logger.Infof("routing profile reloaded version=%d venues=%d", snap.Version, len(snap.Venues))
	})

	providerTimeout := time.Duration(cfg.Execution.ProviderTimeoutSec) * time.Second
	store := position.NewStore()
	tracker := perf.NewTracker(cfg.Signals.Strategies)
	gate := risk.NewGate(cfg, store)
	manager := position.NewManager(store, source, tracker, position.ManagerConfig{
		StopLossPct:   cfg.Risk.StopLossPct,
		TakeProfitPct: cfg.Risk.TakeProfitPct,
		MaxHold:       time.Duration(cfg.Risk.MaxHoldHours * float64(time.Hour)),
	})
	manager.OnClose(func(pos types.Position) {
		gate.RecordRealized(pos.RealizedPnL)
		if jrnl != nil {
			recCtx, cancel := context.WithTimeout(context.Background(), providerTimeout)
			defer cancel()
			if err := jrnl.RecordClosedTrade(recCtx, pos); err != nil {
				logger.Warnf("journal closed trade failed id=%s: %v", pos.ID, err)
			}
		}
	})

	var recorder engine.Recorder
	if jrnl != nil {
		recorder = jrnl
	}
	venues := venue.DefaultRegistry()
	eng := engine.New(engine.Deps{
		Gate:      gate,
		Enricher:  enrich.New(source, providerTimeout),
		Router:    route.NewRouter(profiles, venues, cfg.Routing.Mode, providerTimeout),
		Simulator: paper.NewSimulator(cfg, store, tracker),
		Positions: store,
		Manager:   manager,
		Valuator:  portfolio.NewValuator(store, source, cfg.Capital.InitialCapital, providerTimeout),
		Perf:      tracker,
		Recorder:  recorder,
	})

	var generator *strategy.Generator
	if cfg.Signals.Enabled {
		generator = strategy.NewGenerator(cfg, source, tracker)
		generator.BindOpenCount(store.OpenCount)
		seedGenerator(ctx, generator, priceLog, cfg.Symbols.Universe())
	}

	var reporter *report.Builder
	if strings.TrimSpace(cfg.Report.OutputDir) != "" {
		reporter = report.NewBuilder(eng, cfg.Report.OutputDir)
	}

	var server *apihttp.Server
	if cfg.HTTP.Enabled {
		server, err = apihttp.NewServer(apihttp.ServerConfig{
			Addr:    cfg.HTTP.Addr,
			Engine:  eng,
			Journal: jrnl,
			Report:  reporter,
			Venues:  venues,
		})
		if err != nil {
			closeStores()
			return nil, err
		}
	}

	return &App{
		cfg:       cfg,
		engine:    eng,
		manager:   manager,
		generator: generator,
		reporter:  reporter,
		server:    server,
		journal:   jrnl,
		priceLog:  priceLog,
		Summary:   buildStartupSummary(cfg, profiles),
	}, nil
}

func openStores(cfg *config.Config) (*journal.Journal, *pricelog.Store, error) {
	var jrnl *journal.Journal
	var priceLog *pricelog.Store

	if path := strings.TrimSpace(cfg.Store.JournalPath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create journal dir: %w", err)
		}
		j, err := journal.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		jrnl = j
	}
	if path := strings.TrimSpace(cfg.Store.PriceLogPath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			if jrnl != nil {
				jrnl.Close()
			}
			return nil, nil, fmt.Errorf("create price log dir: %w", err)
		}
		p, err := pricelog.Open(path)
		if err != nil {
			if jrnl != nil {
				jrnl.Close()
			}
			return nil, nil, fmt.Errorf("open price log: %w", err)
		}
		priceLog = p
	}
	return jrnl, priceLog, nil
}

func loadRoutingProfile(cfg *config.Config) (*route.ProfileRegistry, error) {
	path := strings.TrimSpace(cfg.Routing.ProfilePath)
	if path == "" {
		return nil, fmt.Errorf("routing.profile_path is not configured")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create routing profile dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultRoutingProfile), 0o644); err != nil {
			return nil, fmt.Errorf("write default routing profile: %w", err)
		}
		logger.Infof("wrote default routing profile to %s", path)
	}
	profiles, err := route.NewProfileRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load routing profile: %w", err)
	}
	return profiles, nil
}

// seedGenerator replays recorded price history so indicator windows have
// data before the first live tick.
func seedGenerator(ctx context.Context, gen *strategy.Generator, priceLog *pricelog.Store, universe []string) {
	if priceLog == nil {
		return
	}
	for _, sym := range universe {
		ticks, err := priceLog.History(ctx, sym, seedWindow)
		if err != nil {
			logger.Warnf("price history seed failed for %s: %v", sym, err)
			continue
		}
		if len(ticks) == 0 {
			continue
		}
		prices := make([]float64, len(ticks))
		for i, tk := range ticks {
			prices[i] = tk.Price
		}
		gen.Prime(sym, prices)
		logger.Debugf("seeded %d ticks for %s", len(ticks), sym)
	}
}
