package trade

import "math"

const (
	// DefaultDuration is used for memos created before duration was recorded.
	DefaultDuration = 4000.0
	// DefaultRange is used for memos created before range was recorded.
	DefaultRange = 0.14
)

// TradeMemo tracks one position through its lifecycle.
// Mutation is local and synchronous; nothing here returns an error.
type TradeMemo struct {
	Result TradeResult
	// TTL counts ticks spent in BOUGHT.
	TTL     int
	Deleted bool

	prices    *PriceBuffer
	stopLimit float64
	state     State
	duration  float64
	rangeY    float64
}

// NewTradeMemo wraps a result with an empty price buffer in state NONE.
func NewTradeMemo(result TradeResult, capacity int) *TradeMemo {
	return &TradeMemo{Result: result, prices: NewPriceBuffer(capacity)}
}

// NewManual creates a BOUGHT memo for a position entered outside the engine.
func NewManual(symbol Symbol, quantity, paid float64, capacity int) *TradeMemo {
	tm := NewTradeMemo(TradeResult{
		Symbol:       symbol,
		FromExchange: true,
		Quantity:     quantity,
		Paid:         paid,
		Cost:         paid,
	}, capacity)
	tm.state = StateBought
	return tm
}

func (tm *TradeMemo) Coin() string { return tm.Result.Symbol.Quantity }

func (tm *TradeMemo) Symbol() Symbol { return tm.Result.Symbol }

func (tm *TradeMemo) State() State { return tm.state }

func (tm *TradeMemo) StateIs(s State) bool { return tm.state == s }

func (tm *TradeMemo) Prices() *PriceBuffer { return tm.prices }

func (tm *TradeMemo) PushPrice(price float64) { tm.prices.Push(price) }

func (tm *TradeMemo) CurrentPrice() float64 { return tm.prices.CurrentPrice() }

// SetState moves the memo to s. Entering SOLD resets the memo to a minimal
// record holding only the symbol, the sold price and the current price.
func (tm *TradeMemo) SetState(s State) {
	if s == StateSold {
		current := tm.CurrentPrice()
		fresh := NewManual(tm.Result.Symbol, 0, 0, tm.prices.Capacity())
		fresh.Result.SoldPrice = tm.Result.SoldPrice
		if current != 0 {
			fresh.PushPrice(current)
		}
		*tm = *fresh
	}
	tm.state = s
}

// ResetState derives the state from the result instead of trusting the stored one.
func (tm *TradeMemo) ResetState() {
	switch {
	case tm.Result.Quantity > 0:
		tm.SetState(StateBought)
	case tm.Result.SoldPrice > 0:
		tm.SetState(StateSold)
	default:
		tm.SetState(StateNone)
		tm.Deleted = true
	}
}

// JoinWithNewTrade folds a fill into the position. A result that did not come
// from the exchange is replaced rather than summed.
func (tm *TradeMemo) JoinWithNewTrade(r TradeResult) {
	if tm.Result.FromExchange {
		tm.Result = tm.Result.Join(r)
		return
	}
	tm.Result = r
}

// SetRequestParams records the strategy parameters used for this trade.
func (tm *TradeMemo) SetRequestParams(duration, rangeY float64) {
	tm.duration = duration
	tm.rangeY = rangeY
}

func (tm *TradeMemo) Duration() float64 {
	if tm.duration == 0 {
		return DefaultDuration
	}
	return tm.duration
}

func (tm *TradeMemo) Range() float64 {
	if tm.rangeY == 0 {
		return DefaultRange
	}
	return tm.rangeY
}

func (tm *TradeMemo) StopLimitPrice() float64 { return tm.stopLimit }

// SetStopLimitPrice never stores a negative price.
func (tm *TradeMemo) SetStopLimitPrice(price float64) {
	tm.stopLimit = math.Max(0, price)
}

// ProfitGoal is the fractional gain targeted by the trade,
// e.g. 4000/2000 * 0.14 * 0.1 = 0.028.
func (tm *TradeMemo) ProfitGoal() float64 {
	return tm.Duration() / 2000 * tm.Range() * 0.1
}

func (tm *TradeMemo) ProfitGoalPrice() float64 {
	return tm.Result.Price() * (1 + tm.ProfitGoal())
}

func (tm *TradeMemo) StopLimitBottomPrice() float64 {
	return tm.Result.Price() * (1 - tm.Range())
}

func (tm *TradeMemo) CurrentValue() float64 {
	return tm.CurrentPrice() * tm.Result.Quantity
}

func (tm *TradeMemo) Profit() float64 {
	return tm.CurrentPrice()*tm.Result.Quantity - tm.Result.Paid
}

func (tm *TradeMemo) ProfitPercent() float64 {
	if tm.Result.Paid == 0 {
		return 0
	}
	return tm.Profit() / tm.Result.Paid * 100
}

// StopLimitLoss is what would be lost if the position were sold at the stop limit.
func (tm *TradeMemo) StopLimitLoss() float64 {
	entry := tm.Result.Price()
	if entry == 0 {
		return 0
	}
	return tm.Result.Paid * (tm.stopLimit/entry - 1)
}

func (tm *TradeMemo) StopLimitLossPercent() float64 {
	if tm.Result.Paid == 0 {
		return 0
	}
	return tm.StopLimitLoss() / tm.Result.Paid * 100
}

func (tm *TradeMemo) SoldPriceChangePercent() float64 {
	if tm.Result.SoldPrice == 0 {
		return 0
	}
	return (tm.CurrentPrice() - tm.Result.SoldPrice) / tm.Result.SoldPrice * 100
}

// StopLimitCrossedDown is edge-triggered: the current price is below the stop
// limit and the previous sample was at or above it.
func (tm *TradeMemo) StopLimitCrossedDown() bool {
	p := tm.prices.prices
	if len(p) < 2 {
		return false
	}
	return p[len(p)-1] < tm.stopLimit && p[len(p)-2] >= tm.stopLimit
}

// EntryPriceCrossedUp is true only on the first sample above the entry price.
func (tm *TradeMemo) EntryPriceCrossedUp() bool {
	entry := tm.Result.Price()
	p := tm.prices.prices
	if len(p) == 0 || p[len(p)-1] <= entry {
		return false
	}
	for _, price := range p[:len(p)-1] {
		if price > entry {
			return false
		}
	}
	return true
}
