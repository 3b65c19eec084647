package trade

import (
	"fmt"
	"strings"
)

// Symbol is a trading pair: the asset being bought/sold and the asset it is priced in.
type Symbol struct {
	Quantity string `json:"quantityAsset"` // e.g., "BTC"
	Price    string `json:"priceAsset"`    // e.g., "USDT"
}

// NewSymbol normalizes both assets to upper case.
func NewSymbol(quantityAsset, priceAsset string) Symbol {
	return Symbol{
		Quantity: strings.ToUpper(strings.TrimSpace(quantityAsset)),
		Price:    strings.ToUpper(strings.TrimSpace(priceAsset)),
	}
}

// String returns the venue symbol, e.g. "BTCUSDT".
func (s Symbol) String() string {
	return s.Quantity + s.Price
}

// Validate reports whether both assets are set.
func (s Symbol) Validate() error {
	if s.Quantity == "" || s.Price == "" {
		return fmt.Errorf("invalid symbol %q/%q", s.Quantity, s.Price)
	}
	return nil
}
