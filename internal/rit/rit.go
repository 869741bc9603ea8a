// Package rit is a client for the Rotman Interactive Trader REST API.
package rit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crossbot/internal/md"
	"crossbot/internal/order"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// APIError is a non-2xx response from the RIT server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rit api error: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

func New(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type historyBar struct {
	Tick  int64   `json:"tick"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Bars returns up to lookback bars of history, oldest first. RIT ticks are
// seconds into the case.
func (c *Client) Bars(ctx context.Context, ticker string, lookback int) (md.Series, error) {
	params := url.Values{"ticker": {ticker}, "limit": {strconv.Itoa(lookback)}}
	var rows []historyBar
	if err := c.do(ctx, http.MethodGet, "/securities/history", params, &rows); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", ticker, err)
	}
	if len(rows) == 0 {
		return nil, md.ErrNoData
	}

	bars := make([]md.Bar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, md.Bar{
			Time:  time.Unix(row.Tick, 0).UTC(),
			Open:  row.Open,
			High:  row.High,
			Low:   row.Low,
			Close: row.Close,
		})
	}
	c.log.Debug().Str("ticker", ticker).Int("bars", len(bars)).Msg("history fetched")
	return md.NewSeries(bars), nil
}

type bookLevel struct {
	Price decimal.Decimal `json:"price"`
}

type book struct {
	Bids []bookLevel `json:"bids"`
	Asks []bookLevel `json:"asks"`
}

func (c *Client) TopOfBook(ctx context.Context, ticker string) (md.Quote, error) {
	var b book
	if err := c.do(ctx, http.MethodGet, "/securities/book", url.Values{"ticker": {ticker}}, &b); err != nil {
		return md.Quote{}, fmt.Errorf("fetch book for %s: %w", ticker, err)
	}
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return md.Quote{}, md.ErrNoData
	}
	return md.Quote{Bid: b.Bids[0].Price, Ask: b.Asks[0].Price}, nil
}

type security struct {
	Ticker   string  `json:"ticker"`
	Position float64 `json:"position"`
}

// Position reports 0 for a ticker the server does not list.
func (c *Client) Position(ctx context.Context, ticker string) (int64, error) {
	var rows []security
	if err := c.do(ctx, http.MethodGet, "/securities", url.Values{"ticker": {ticker}}, &rows); err != nil {
		return 0, fmt.Errorf("fetch position for %s: %w", ticker, err)
	}
	for _, row := range rows {
		if row.Ticker == "" || row.Ticker == ticker {
			return int64(math.Round(row.Position)), nil
		}
	}
	return 0, nil
}

type orderAck struct {
	OrderID json.Number `json:"order_id"`
}

// SubmitOrder places a limit order. RIT has no client order ids, so the id
// is only logged.
func (c *Client) SubmitOrder(ctx context.Context, req order.Request, clientOrderID string) (string, error) {
	params := url.Values{
		"ticker":   {req.Instrument},
		"type":     {"LIMIT"},
		"quantity": {strconv.FormatInt(req.Quantity, 10)},
		"price":    {req.LimitPrice.String()},
		"action":   {string(req.Side)},
	}
	var ack orderAck
	if err := c.do(ctx, http.MethodPost, "/orders", params, &ack); err != nil {
		c.log.Error().Err(err).Str("ticker", req.Instrument).Str("side", string(req.Side)).
			Int64("qty", req.Quantity).Str("price", req.LimitPrice.String()).Msg("place order failed")
		return "", err
	}
	c.log.Info().Str("order_id", ack.OrderID.String()).Str("client_order_id", clientOrderID).Str("ticker", req.Instrument).
		Str("side", string(req.Side)).Int64("qty", req.Quantity).Str("price", req.LimitPrice.String()).Msg("place order success")
	return ack.OrderID.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if len(body) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
