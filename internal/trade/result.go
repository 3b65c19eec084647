package trade

import "tradehelper/pkg/num"

// TradeResult is the outcome of a single execution, or the running sum of
// several executions when a position is built incrementally.
type TradeResult struct {
	Symbol     Symbol  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	Cost       float64 `json:"cost"`
	Paid       float64 `json:"paid"`
	Gained     float64 `json:"gained"`
	Commission float64 `json:"commission"`
	SoldPrice  float64 `json:"soldPrice"`
	// FromExchange marks a result produced by an actual fill rather than a manual entry.
	FromExchange bool   `json:"fromExchange"`
	Msg          string `json:"msg,omitempty"`
	OrderID      string `json:"orderId,omitempty"`
}

// NewSoftFailure returns a result explaining why an order was not placed.
// Soft failures are never errors: the caller keeps the memo state unchanged.
func NewSoftFailure(symbol Symbol, msg string) TradeResult {
	return TradeResult{Symbol: symbol, Msg: msg}
}

// Failed reports whether the result is a soft failure.
func (r TradeResult) Failed() bool {
	return !r.FromExchange && r.Msg != ""
}

// Price is the average fill price.
func (r TradeResult) Price() float64 {
	if r.Quantity == 0 {
		return 0
	}
	return r.Cost / r.Quantity
}

// Join sums two results of the same symbol.
func (r TradeResult) Join(other TradeResult) TradeResult {
	joined := TradeResult{
		Symbol:       r.Symbol,
		Quantity:     num.SumWithMaxPrecision(r.Quantity, other.Quantity),
		Cost:         num.SumWithMaxPrecision(r.Cost, other.Cost),
		Paid:         num.SumWithMaxPrecision(r.Paid, other.Paid),
		Gained:       num.SumWithMaxPrecision(r.Gained, other.Gained),
		Commission:   num.SumWithMaxPrecision(r.Commission, other.Commission),
		SoldPrice:    r.SoldPrice,
		FromExchange: r.FromExchange || other.FromExchange,
		Msg:          other.Msg,
		OrderID:      other.OrderID,
	}
	if other.SoldPrice != 0 {
		joined.SoldPrice = other.SoldPrice
	}
	return joined
}
