package trade

import (
	"encoding/json"
	"fmt"
)

// Record is the persisted form of a TradeMemo.
type Record struct {
	Result    TradeResult `json:"tradeResult"`
	Prices    []float64   `json:"prices"`
	StopLimit float64     `json:"stopLimit"`
	State     string      `json:"state"`
	TTL       int         `json:"ttl"`
	Deleted   bool        `json:"deleted,omitempty"`
	Duration  float64     `json:"x,omitempty"`
	Range     float64     `json:"y,omitempty"`
}

// Record returns the persisted form of the memo.
func (tm *TradeMemo) Record() Record {
	return Record{
		Result:    tm.Result,
		Prices:    tm.prices.Prices(),
		StopLimit: tm.stopLimit,
		State:     tm.state.String(),
		TTL:       tm.TTL,
		Deleted:   tm.Deleted,
		Duration:  tm.duration,
		Range:     tm.rangeY,
	}
}

// FromRecord validates and normalizes a persisted record into a memo.
// An empty state is derived from the result via ResetState.
func FromRecord(r Record, capacity int) (*TradeMemo, error) {
	symbol := NewSymbol(r.Result.Symbol.Quantity, r.Result.Symbol.Price)
	if err := symbol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trade record: %w", err)
	}
	if r.Duration < 0 || r.Range < 0 {
		return nil, fmt.Errorf("invalid trade record %s: negative strategy parameters", symbol)
	}

	result := r.Result
	result.Symbol = symbol

	tm := &TradeMemo{
		Result:   result,
		TTL:      r.TTL,
		Deleted:  r.Deleted,
		prices:   NewPriceBuffer(capacity, r.Prices...),
		duration: r.Duration,
		rangeY:   r.Range,
	}
	tm.SetStopLimitPrice(r.StopLimit)

	if r.State == "" {
		tm.ResetState()
		return tm, nil
	}
	state, err := ParseState(r.State)
	if err != nil {
		return nil, fmt.Errorf("invalid trade record %s: %w", symbol, err)
	}
	tm.state = state
	return tm, nil
}

func (tm *TradeMemo) MarshalJSON() ([]byte, error) {
	return json.Marshal(tm.Record())
}

// UnmarshalJSON restores a memo with the default price capacity. Callers that
// need a different capacity decode into Record and use FromRecord.
func (tm *TradeMemo) UnmarshalJSON(b []byte) error {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	restored, err := FromRecord(r, DefaultPriceCapacity)
	if err != nil {
		return err
	}
	*tm = *restored
	return nil
}
