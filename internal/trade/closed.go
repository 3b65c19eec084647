package trade

import (
	"time"

	"tradehelper/pkg/num"
)

// ClosedTrade summarizes a position that was bought and then sold.
type ClosedTrade struct {
	Symbol     Symbol
	Quantity   float64
	Paid       float64
	Gained     float64
	Commission float64
	SoldPrice  float64
	Profit     float64
	OrderID    string
	ClosedAt   time.Time
}

// Close combines the open position with the sale that ended it.
func Close(position, sale TradeResult, at time.Time) ClosedTrade {
	return ClosedTrade{
		Symbol:     position.Symbol,
		Quantity:   sale.Quantity,
		Paid:       position.Paid,
		Gained:     sale.Gained,
		Commission: num.SumWithMaxPrecision(position.Commission, sale.Commission),
		SoldPrice:  sale.SoldPrice,
		Profit:     num.SumWithMaxPrecision(sale.Gained, -position.Paid),
		OrderID:    sale.OrderID,
		ClosedAt:   at,
	}
}
