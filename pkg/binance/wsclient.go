package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TickerStream reads price snapshots from the all-market miniTicker stream.
type TickerStream struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger
}

type miniTicker struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

func NewTickerStream(url string, logger *zap.Logger) *TickerStream {
	return &TickerStream{
		url:    url,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
}

// Prices dials the stream, reads one frame and closes the connection.
// Binance pushes the array roughly every second, so symbols without a change
// in that second are missing from the snapshot.
func (s *TickerStream) Prices(ctx context.Context) (map[string]float64, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.logger.Error("Failed to connect to WebSocket", zap.String("url", s.url), zap.Error(err))
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()
	s.logger.Debug("WebSocket connected", zap.String("url", s.url))

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("websocket read: %w", err)
	}

	var tickers []miniTicker
	if err := json.Unmarshal(msg, &tickers); err != nil {
		return nil, fmt.Errorf("decode miniTicker frame: %w", err)
	}

	prices := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		p, err := strconv.ParseFloat(t.Close, 64)
		if err != nil {
			continue
		}
		prices[t.Symbol] = p
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return prices, nil
}
