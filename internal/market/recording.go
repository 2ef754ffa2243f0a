package market

import (
	"context"

	"tradepilot/internal/logger"
	"tradepilot/internal/pkg/symbol"
)

// PriceRecorder receives every quote observed through a RecordingSource.
// The store keeps an audit trail; recording failures never fail the read.
type PriceRecorder interface {
	RecordPrice(sym string, price float64, at int64) error
}

// RecordingSource decorates a Source with price-history persistence.
type RecordingSource struct {
	inner    Source
	recorder PriceRecorder
}

func NewRecordingSource(inner Source, recorder PriceRecorder) *RecordingSource {
	return &RecordingSource{inner: inner, recorder: recorder}
}

func (r *RecordingSource) GetPrice(ctx context.Context, sym string) (Quote, bool) {
	q, ok := r.inner.GetPrice(ctx, sym)
	if ok && r.recorder != nil {
		if err := r.recorder.RecordPrice(q.Symbol, q.Price, q.At.UnixMilli()); err != nil {
			logger.Warnf("price history record failed for %s: %v", q.Symbol, err)
		}
	}
	return q, ok
}

func (r *RecordingSource) IsMarketOpen(class symbol.Class) bool { return r.inner.IsMarketOpen(class) }
func (r *RecordingSource) IsTradeable(sym string) bool          { return r.inner.IsTradeable(sym) }

var _ Source = (*RecordingSource)(nil)
