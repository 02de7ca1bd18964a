package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shahid-2020/cryptohlcv/config"
	"github.com/shahid-2020/cryptohlcv/internal/httpclient"
	"github.com/shahid-2020/cryptohlcv/types"
)

const (
	klinesPath = "/api/v3/klines"

	// MaxLimit is the largest page the klines endpoint serves.
	MaxLimit = 1000

	klineFields = 12
)

// KlinesParams is the native query grammar of the klines endpoint.
type KlinesParams struct {
	Symbol   string
	Interval string
	Limit    int
}

func (p KlinesParams) Values() url.Values {
	v := url.Values{}
	v.Set("symbol", p.Symbol)
	v.Set("interval", p.Interval)
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

type BinanceProvider struct {
	client   httpclient.Fetcher
	baseURL  string
	maxLimit int
}

func NewBinanceProvider(cfg config.BinanceConfig, client httpclient.Fetcher) *BinanceProvider {
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 || maxLimit > MaxLimit {
		maxLimit = MaxLimit
	}

	return &BinanceProvider{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		maxLimit: maxLimit,
	}
}

func (b *BinanceProvider) Name() string {
	return "binance"
}

// Provide makes a single klines call; retries live in the HTTP client.
func (b *BinanceProvider) Provide(ctx context.Context, symbol string, interval types.Interval, count int) ([]types.Candle, error) {
	params, err := b.params(symbol, interval, count)
	if err != nil {
		return nil, err
	}

	body, err := b.client.Fetch(ctx, b.baseURL+klinesPath, params, nil)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return parseKlines(body)
}

func (b *BinanceProvider) params(symbol string, interval types.Interval, count int) (KlinesParams, error) {
	if symbol == "" {
		return KlinesParams{}, fmt.Errorf("%w: symbol is required", types.ErrInvalidRequest)
	}
	if count <= 0 {
		return KlinesParams{}, fmt.Errorf("%w: count must be positive, got %d", types.ErrInvalidRequest, count)
	}

	code, err := b.intervalCode(interval)
	if err != nil {
		return KlinesParams{}, err
	}

	return KlinesParams{
		Symbol:   strings.ToUpper(symbol),
		Interval: code,
		Limit:    min(count, b.maxLimit),
	}, nil
}

func (b *BinanceProvider) intervalCode(i types.Interval) (string, error) {
	switch i {
	case types.Interval1h:
		return "1h", nil
	case types.Interval4h:
		return "4h", nil
	case types.Interval1d:
		return "1d", nil
	default:
		return "", fmt.Errorf("%w: unknown interval %q", types.ErrInvalidRequest, i)
	}
}

// parseKlines keeps open time, OHLC and volume of each 12-field kline and
// drops the trailing close time, quote volume, trade count and taker fields.
func parseKlines(body []byte) ([]types.Candle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	candles := make([]types.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) != klineFields {
			return nil, fmt.Errorf("kline %d: expected %d fields, got %d", i, klineFields, len(row))
		}

		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, fmt.Errorf("kline %d: open time: %w", i, err)
		}

		var fields [5]float64
		for k := range fields {
			var d decimal.Decimal
			if err := json.Unmarshal(row[k+1], &d); err != nil {
				return nil, fmt.Errorf("kline %d: field %d: %w", i, k+1, err)
			}
			fields[k] = d.InexactFloat64()
		}

		volume := fields[4]
		candles = append(candles, types.Candle{
			OpenTime: time.UnixMilli(openTime).UTC(),
			Open:     fields[0],
			High:     fields[1],
			Low:      fields[2],
			Close:    fields[3],
			Volume:   &volume,
		})
	}

	return candles, nil
}
