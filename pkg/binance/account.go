package binance

import (
	"context"
	"net/http"

	"tradehelper/pkg/num"

	"github.com/pkg/errors"
)

// Balance returns the free balance of asset. The account snapshot is fetched
// once on first use and then updated locally by fills.
func (c *Client) Balance(ctx context.Context, asset string) (float64, error) {
	if !c.balancesLoaded {
		if err := c.loadBalances(ctx); err != nil {
			return 0, errors.Wrapf(err, "failed to get available %s", asset)
		}
	}
	return c.balances[asset], nil
}

func (c *Client) loadBalances(ctx context.Context) error {
	var account accountResponse
	if err := c.fetch(ctx, http.MethodGet, c.signed("account", ""), &account); err != nil {
		return err
	}
	for _, b := range account.Balances {
		free, _ := num.ParseDecimal(b.Free).Float64()
		c.balances[b.Asset] = free
	}
	c.balancesLoaded = true
	return nil
}

func (c *Client) updateBalance(asset string, amount float64) {
	c.balances[asset] = num.SumWithMaxPrecision(c.balances[asset], amount)
}
