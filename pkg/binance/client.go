// Package binance is the execution gateway for the Binance spot REST API:
// signed requests, host failover, retries and order/fee reconciliation.
package binance

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"tradehelper/config"
	"tradehelper/logger"
	"tradehelper/pkg/metrics"
	"tradehelper/pkg/retry"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultRetryInterval = 200 * time.Millisecond
	// attemptsPerHost lets the retry budget cycle through the public hosts several times.
	attemptsPerHost = 4
	proxyAttempts   = 2

	// DiscountAsset pays commissions at a discount and is accounted separately.
	DiscountAsset = "BNB"
)

// Client talks to Binance. It is built once per tick: the balance and
// symbol caches are never refreshed during its lifetime.
type Client struct {
	http   *resty.Client
	key    string
	secret string
	hosts  *hostRing
	proxy  bool
	log    *zap.Logger

	interval time.Duration
	sleep    func(context.Context, time.Duration) error
	now      func() time.Time

	balances       map[string]float64
	balancesLoaded bool
	symbols        map[string]symbolInfo
}

type Option func(*Client)

// WithSleep replaces the pause between retries.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithHosts replaces the public host rotation. The order is kept as given.
func WithHosts(hosts ...string) Option {
	return func(c *Client) {
		c.hosts = newHostRing(hosts)
		c.proxy = false
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = resty.NewWithClient(hc) }
}

func NewClient(cfg config.BinanceConfig, log *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	c := &Client{
		http:     resty.New().SetTimeout(timeout),
		key:      cfg.APIKey,
		secret:   cfg.SecretKey,
		log:      log,
		interval: interval,
		sleep:    retry.Sleep,
		now:      time.Now,
		balances: make(map[string]float64),
		symbols:  make(map[string]symbolInfo),
	}
	if cfg.ProxyURL != "" {
		c.hosts = newHostRing([]string{ensureSlash(cfg.ProxyURL)})
		c.proxy = true
	} else {
		c.hosts = newHostRing(publicHosts(rand.New(rand.NewSource(time.Now().UnixNano()))))
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func ensureSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

func (c *Client) retryPolicy() retry.Policy {
	attempts := c.hosts.len() * attemptsPerHost
	if c.proxy {
		attempts = proxyAttempts
	}
	return retry.Policy{
		Attempts:     attempts,
		Interval:     c.interval,
		NonRetryable: nonRetryable,
		Sleep:        c.sleep,
		OnRetry: func(attempt int, err error) {
			c.log.Debug("retrying binance request", zap.Int("attempt", attempt), zap.Error(err))
		},
	}
}

// signed returns a resource builder that re-signs query on every call, so
// each retry carries a fresh timestamp.
func (c *Client) signed(resource, query string) func() string {
	return func() string {
		return resource + "?" + Sign(query, c.secret, c.now())
	}
}

func public(resource, query string) func() string {
	return func() string {
		if query == "" {
			return resource
		}
		return resource + "?" + query
	}
}

// fetch sends the request under the retry policy and decodes a 200 body into out.
func (c *Client) fetch(ctx context.Context, method string, resource func() string, out any) error {
	_, err := retry.Do(ctx, c.retryPolicy(), func() (struct{}, error) {
		return struct{}{}, c.fetchOnce(ctx, method, resource(), out)
	})
	return err
}

func (c *Client) fetchOnce(ctx context.Context, method, resource string, out any) error {
	host := c.hosts.current()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", c.key).
		Execute(method, host+resource)
	if err != nil {
		metrics.ObserveResponse(0)
		c.rotate()
		return errors.Wrapf(err, "%s %s", method, pathOf(resource))
	}

	status := resp.StatusCode()
	metrics.ObserveResponse(status)
	body := string(resp.Body())

	if status == http.StatusOK {
		err := json.Unmarshal(resp.Body(), out)
		if err == nil {
			return nil
		}
		c.log.Debug("failed to parse response from binance", zap.String("resource", pathOf(resource)), zap.Error(err))
	}

	c.rotate()

	switch {
	case status == http.StatusTeapot || status == http.StatusTooManyRequests:
		c.log.Debug("binance rate limit reached", zap.Int("status", status), zap.String("host", host))
	case status == http.StatusUnavailableForLegalReasons:
		logger.Alert(c.log, "binance blocked the request because it originates from a restricted location",
			zap.String("host", host))
		return &HTTPError{Status: status, Body: body, Interrupted: true}
	case status == http.StatusBadRequest && strings.Contains(body, notAllParametersRead):
		// likely a signature verification timeout
		c.log.Debug("binance did not read all parameters", zap.String("resource", pathOf(resource)))
	}

	return &HTTPError{Status: status, Body: body}
}

func (c *Client) rotate() {
	c.hosts.rotate()
	metrics.HostRotations.Inc()
}

// pathOf drops the query so signatures do not end up in logs.
func pathOf(resource string) string {
	if i := strings.IndexByte(resource, '?'); i >= 0 {
		return resource[:i]
	}
	return resource
}
