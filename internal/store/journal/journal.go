// Package journal persists processed signals and closed trades to SQLite so
// history survives restarts.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tradepilot/internal/types"
)

type signalModel struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	SignalID       string         `gorm:"column:signal_id;uniqueIndex"`
	Symbol         string         `gorm:"column:symbol;index"`
	Side           string         `gorm:"column:side"`
	Quantity       float64        `gorm:"column:quantity"`
	OrderKind      string         `gorm:"column:order_kind"`
	LimitPrice     float64        `gorm:"column:limit_price"`
	StopPrice      float64        `gorm:"column:stop_price"`
	ReferencePrice float64        `gorm:"column:reference_price"`
	Strategy       string         `gorm:"column:strategy;index"`
	Strength       string         `gorm:"column:strength"`
	Status         string         `gorm:"column:status"`
	BlockReason    string         `gorm:"column:block_reason"`
	Venue          string         `gorm:"column:venue"`
	FillPrice      float64        `gorm:"column:fill_price"`
	FillTimeUnix   int64          `gorm:"column:fill_time"`
	CreatedAtUnix  int64          `gorm:"column:created_at"`
	Metadata       datatypes.JSON `gorm:"column:metadata"`
}

func (signalModel) TableName() string { return "signals" }

type tradeModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	PositionID    string  `gorm:"column:position_id;uniqueIndex"`
	SignalID      string  `gorm:"column:signal_id;index"`
	Symbol        string  `gorm:"column:symbol;index"`
	Side          string  `gorm:"column:side"`
	Quantity      float64 `gorm:"column:quantity"`
	EntryPrice    float64 `gorm:"column:entry_price"`
	EntryTimeUnix int64   `gorm:"column:entry_time"`
	ExitPrice     float64 `gorm:"column:exit_price"`
	ExitTimeUnix  int64   `gorm:"column:exit_time"`
	RealizedPnL   float64 `gorm:"column:realized_pnl"`
	Fees          float64 `gorm:"column:fees"`
	Slippage      float64 `gorm:"column:slippage"`
	Strategy      string  `gorm:"column:strategy;index"`
	Venue         string  `gorm:"column:venue"`
	CloseReason   string  `gorm:"column:close_reason"`
}

func (tradeModel) TableName() string { return "closed_trades" }

// Journal is the durable record of pipeline outcomes. Writes are upserts
// keyed by the domain id, so re-recording a signal after its terminal
// transition refreshes the stored row.
type Journal struct {
	db *gorm.DB
}

func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&signalModel{}, &tradeModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(4)
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordSignal persists a signal's current state.
func (j *Journal) RecordSignal(ctx context.Context, sig types.Signal) error {
	meta, err := json.Marshal(sig.Metadata)
	if err != nil {
		meta = []byte("{}")
	}
	row := signalModel{
		SignalID:       sig.ID,
		Symbol:         sig.Symbol,
		Side:           string(sig.Side),
		Quantity:       sig.Quantity,
		OrderKind:      string(sig.OrderKind),
		LimitPrice:     sig.LimitPrice,
		StopPrice:      sig.StopPrice,
		ReferencePrice: sig.ReferencePrice,
		Strategy:       sig.Strategy,
		Strength:       string(sig.Strength),
		Status:         string(sig.Status),
		BlockReason:    string(sig.BlockReason),
		Venue:          sig.Venue,
		FillPrice:      sig.FillPrice,
		CreatedAtUnix:  sig.CreatedAt.Unix(),
		Metadata:       datatypes.JSON(meta),
	}
	if !sig.FillTime.IsZero() {
		row.FillTimeUnix = sig.FillTime.Unix()
	}
	return j.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "signal_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// RecordClosedTrade persists a closed position.
func (j *Journal) RecordClosedTrade(ctx context.Context, pos types.Position) error {
	row := tradeModel{
		PositionID:    pos.ID,
		SignalID:      pos.SignalID,
		Symbol:        pos.Symbol,
		Side:          string(pos.Side),
		Quantity:      pos.Quantity,
		EntryPrice:    pos.EntryPrice,
		EntryTimeUnix: pos.EntryTime.Unix(),
		ExitPrice:     pos.ExitPrice,
		ExitTimeUnix:  pos.ExitTime.Unix(),
		RealizedPnL:   pos.RealizedPnL,
		Fees:          pos.Fees,
		Slippage:      pos.Slippage,
		Strategy:      pos.Strategy,
		Venue:         pos.Venue,
		CloseReason:   string(pos.CloseReason),
	}
	return j.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "position_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// RecentSignals returns the newest signals, most recent first.
func (j *Journal) RecentSignals(ctx context.Context, limit int) ([]types.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []signalModel
	if err := j.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Signal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toSignal())
	}
	return out, nil
}

// ClosedTrades returns the newest closed trades, most recent first.
func (j *Journal) ClosedTrades(ctx context.Context, limit int) ([]types.Position, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []tradeModel
	if err := j.db.WithContext(ctx).Order("exit_time DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPosition())
	}
	return out, nil
}

// ClearTrades removes all closed-trade rows and reports how many were
// deleted.
func (j *Journal) ClearTrades(ctx context.Context) (int64, error) {
	res := j.db.WithContext(ctx).Where("1 = 1").Delete(&tradeModel{})
	return res.RowsAffected, res.Error
}

func (m signalModel) toSignal() types.Signal {
	sig := types.Signal{
		ID:             m.SignalID,
		Symbol:         m.Symbol,
		Side:           types.Side(m.Side),
		Quantity:       m.Quantity,
		OrderKind:      types.OrderKind(m.OrderKind),
		LimitPrice:     m.LimitPrice,
		StopPrice:      m.StopPrice,
		ReferencePrice: m.ReferencePrice,
		Strategy:       m.Strategy,
		Strength:       types.Strength(m.Strength),
		Status:         types.SignalStatus(m.Status),
		BlockReason:    types.BlockReason(m.BlockReason),
		Venue:          m.Venue,
		FillPrice:      m.FillPrice,
		CreatedAt:      time.Unix(m.CreatedAtUnix, 0),
	}
	if m.FillTimeUnix > 0 {
		sig.FillTime = time.Unix(m.FillTimeUnix, 0)
	}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &sig.Metadata)
	}
	return sig
}

func (m tradeModel) toPosition() types.Position {
	return types.Position{
		ID:          m.PositionID,
		SignalID:    m.SignalID,
		Symbol:      m.Symbol,
		Side:        types.Side(m.Side),
		Quantity:    m.Quantity,
		EntryPrice:  m.EntryPrice,
		EntryTime:   time.Unix(m.EntryTimeUnix, 0),
		ExitPrice:   m.ExitPrice,
		ExitTime:    time.Unix(m.ExitTimeUnix, 0),
		RealizedPnL: m.RealizedPnL,
		Fees:        m.Fees,
		Slippage:    m.Slippage,
		Strategy:    m.Strategy,
		Venue:       m.Venue,
		CloseReason: types.CloseReason(m.CloseReason),
	}
}
