// Package report renders portfolio and strategy performance into an HTML
// dashboard, with optional PNG capture for snapshots.
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"tradepilot/internal/logger"
	"tradepilot/internal/types"
)

// DataSource supplies the state the report draws from. The engine satisfies
// it.
type DataSource interface {
	GetPortfolioSnapshot(ctx context.Context) types.PortfolioSnapshot
	GetStrategyPerformance() []types.StrategyPerformance
	GetClosedPositions() []types.Position
}

// Builder assembles the performance report.
type Builder struct {
	source    DataSource
	outputDir string
}

func NewBuilder(source DataSource, outputDir string) *Builder {
	return &Builder{source: source, outputDir: outputDir}
}

// RenderHTML renders the report page.
func (b *Builder) RenderHTML(ctx context.Context) ([]byte, error) {
	snap := b.source.GetPortfolioSnapshot(ctx)
	perf := b.source.GetStrategyPerformance()
	closed := b.source.GetClosedPositions()

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		buildEquityCurve(snap, closed),
		buildStrategyPnLBar(perf),
		buildWinRateBar(perf),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSnapshot renders the report and writes the HTML file under the
// output directory, returning its path.
func (b *Builder) WriteSnapshot(ctx context.Context) (string, error) {
	html, err := b.RenderHTML(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(b.outputDir, fmt.Sprintf("report_%s.html", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", err
	}
	logger.Infof("report: wrote %s", path)
	return path, nil
}

// buildEquityCurve plots cumulative realized P&L over the closed-trade
// sequence, anchored at the current cash balance context.
func buildEquityCurve(snap types.PortfolioSnapshot, closed []types.Position) *charts.Line {
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ExitTime.Before(closed[j].ExitTime)
	})

	xAxis := make([]string, 0, len(closed)+1)
	points := make([]opts.LineData, 0, len(closed)+1)
	xAxis = append(xAxis, "start")
	points = append(points, opts.LineData{Value: 0.0})
	cumulative := 0.0
	for _, p := range closed {
		cumulative += p.RealizedPnL
		xAxis = append(xAxis, p.ExitTime.Format("01-02 15:04"))
		points = append(points, opts.LineData{Value: cumulative})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Realized P&L",
			Subtitle: fmt.Sprintf("portfolio value %.2f, total P&L %.2f", snap.TotalPortfolioValue, snap.TotalPnL),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis).AddSeries("cumulative", points,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(true)}))
	return line
}

func buildStrategyPnLBar(perf []types.StrategyPerformance) *charts.Bar {
	names := make([]string, 0, len(perf))
	values := make([]opts.BarData, 0, len(perf))
	for _, p := range perf {
		names = append(names, p.Strategy)
		values = append(values, opts.BarData{Value: p.TotalPnL})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "P&L by strategy"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).AddSeries("pnl", values)
	return bar
}

func buildWinRateBar(perf []types.StrategyPerformance) *charts.Bar {
	names := make([]string, 0, len(perf))
	values := make([]opts.BarData, 0, len(perf))
	for _, p := range perf {
		names = append(names, p.Strategy)
		values = append(values, opts.BarData{Value: p.WinRate})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Win rate by strategy (%)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Max: 100}),
	)
	bar.SetXAxis(names).AddSeries("win_rate", values)
	return bar
}
