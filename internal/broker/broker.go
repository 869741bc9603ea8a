// Package broker binds the decision engine to Alpaca: bars and quotes from
// the market data API, positions and limit orders from the trading API.
package broker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"crossbot/internal/md"
	"crossbot/internal/order"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Options struct {
	APIKey           string
	APISecret        string
	BaseURL          string
	DataBaseURL      string
	Feed             string
	TimeFrameMinutes int
}

type Client struct {
	trading   *alpaca.Client
	data      *marketdata.Client
	feed      marketdata.Feed
	timeframe marketdata.TimeFrame
	barSpan   time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func New(opts Options, log zerolog.Logger) *Client {
	minutes := opts.TimeFrameMinutes
	if minutes <= 0 {
		minutes = 1
	}
	return &Client{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
			BaseURL:   opts.BaseURL,
		}),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
			BaseURL:   opts.DataBaseURL,
		}),
		feed:      parseFeed(opts.Feed),
		timeframe: marketdata.NewTimeFrame(minutes, marketdata.Min),
		barSpan:   time.Duration(minutes) * time.Minute,
		log:       log,
		now:       time.Now,
	}
}

// Bars asks for a window wide enough to span a weekend and keeps the last
// lookback bars.
func (c *Client) Bars(ctx context.Context, symbol string, lookback int) (md.Series, error) {
	end := c.now().UTC()
	start := end.Add(-(time.Duration(lookback)*c.barSpan*3 + 96*time.Hour))
	bars, err := c.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: c.timeframe,
		Start:     start,
		End:       end,
		Feed:      c.feed,
	})
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("fetch bars failed")
		return nil, err
	}
	series := toSeries(bars, lookback)
	if series.Len() == 0 {
		return nil, md.ErrNoData
	}
	c.log.Debug().Str("symbol", symbol).Int("bars", series.Len()).Msg("bars fetched")
	return series, nil
}

func toSeries(bars []marketdata.Bar, lookback int) md.Series {
	if lookback > 0 && len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	out := make([]md.Bar, 0, len(bars))
	for _, bar := range bars {
		out = append(out, md.Bar{
			Time:  bar.Timestamp,
			Open:  bar.Open,
			High:  bar.High,
			Low:   bar.Low,
			Close: bar.Close,
		})
	}
	return md.NewSeries(out)
}

func (c *Client) TopOfBook(ctx context.Context, symbol string) (md.Quote, error) {
	quote, err := c.data.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{Feed: c.feed})
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("fetch quote failed")
		return md.Quote{}, err
	}
	if quote == nil {
		return md.Quote{}, md.ErrNoData
	}
	return toQuote(*quote)
}

func toQuote(quote marketdata.Quote) (md.Quote, error) {
	q := md.Quote{
		Bid: decimal.NewFromFloat(quote.BidPrice),
		Ask: decimal.NewFromFloat(quote.AskPrice),
	}
	if !q.Valid() {
		return md.Quote{}, md.ErrNoData
	}
	return q, nil
}

// Position treats Alpaca's 404 for a symbol with no position as flat.
func (c *Client) Position(ctx context.Context, symbol string) (int64, error) {
	pos, err := c.trading.GetPosition(symbol)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return 0, nil
		}
		c.log.Error().Err(err).Str("symbol", symbol).Msg("fetch position failed")
		return 0, err
	}
	qty := pos.Qty.IntPart()
	c.log.Debug().Str("symbol", symbol).Int64("qty", qty).Msg("position fetched")
	return qty, nil
}

// SubmitOrder places a day limit order.
func (c *Client) SubmitOrder(ctx context.Context, req order.Request, clientOrderID string) (string, error) {
	qty := decimal.NewFromInt(req.Quantity)
	limitPrice := req.LimitPrice
	side := alpaca.Buy
	if req.Side == order.Sell {
		side = alpaca.Sell
	}

	placed, err := c.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        req.Instrument,
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Limit,
		TimeInForce:   alpaca.Day,
		LimitPrice:    &limitPrice,
		ClientOrderID: clientOrderID,
	})
	if err != nil {
		c.log.Error().Err(err).Str("side", string(side)).Str("symbol", req.Instrument).Int64("qty", req.Quantity).Msg("place order failed")
		return "", err
	}

	c.log.Info().Str("order_id", placed.ID).Str("client_order_id", placed.ClientOrderID).Str("side", string(side)).
		Str("symbol", req.Instrument).Int64("qty", req.Quantity).Str("status", string(placed.Status)).Msg("place order success")
	return placed.ID, nil
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
