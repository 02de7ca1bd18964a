package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shahid-2020/cryptohlcv/config"
	"github.com/shahid-2020/cryptohlcv/internal/httpclient"
	"github.com/shahid-2020/cryptohlcv/internal/logger"
	"github.com/shahid-2020/cryptohlcv/types"
)

const ohlcFields = 5

// DayBuckets are the only history windows the ohlc endpoint accepts.
var DayBuckets = []int{1, 7, 14, 30, 90, 180, 365}

// fallbackBuckets seed every sweep after the first-choice bucket. Smaller
// windows are cheaper and less often rate limited.
var fallbackBuckets = []int{30, 14, 7, 1}

// OHLCParams is the native query grammar of the ohlc endpoint.
type OHLCParams struct {
	VsCurrency string
	Days       int
}

func (p OHLCParams) Values() url.Values {
	v := url.Values{}
	v.Set("vs_currency", p.VsCurrency)
	v.Set("days", strconv.Itoa(p.Days))
	return v
}

type CoinGeckoProvider struct {
	client     httpclient.Fetcher
	baseURL    string
	vsCurrency string
	cfg        config.CoinGeckoConfig
	logger     *slog.Logger
}

func NewCoinGeckoProvider(cfg config.CoinGeckoConfig, client httpclient.Fetcher, log *slog.Logger) *CoinGeckoProvider {
	if log == nil {
		log = logger.Discard()
	}

	return &CoinGeckoProvider{
		client:     client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		vsCurrency: cfg.VsCurrency,
		cfg:        cfg,
		logger:     log,
	}
}

func (c *CoinGeckoProvider) Name() string {
	return "coingecko"
}

// Provide sweeps the candidate day buckets largest first and returns the last
// count rows of the first bucket that yields data. Empty buckets and failed
// buckets both move the sweep on; only exhaustion is an error.
func (c *CoinGeckoProvider) Provide(ctx context.Context, symbol string, interval types.Interval, count int) ([]types.Candle, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", types.ErrInvalidRequest, count)
	}

	coinID, ok := c.cfg.CoinID(symbol)
	if !ok {
		return nil, &types.DataFetchError{
			Provider: c.Name(),
			Cause:    fmt.Errorf("%w: no coin id mapped for symbol %q", types.ErrInvalidRequest, symbol),
		}
	}

	endpoint := fmt.Sprintf("%s/api/v3/coins/%s/ohlc", c.baseURL, url.PathEscape(coinID))
	candidates := CandidateDays(RoundDays(RequiredDays(interval, count)))

	var lastErr, emptyErr error
	for _, days := range candidates {
		candles, err := c.fetchBucket(ctx, endpoint, days)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &types.DataFetchError{Provider: c.Name(), Cause: ctxErr}
			}
			c.logger.Debug("day bucket failed", "coin", coinID, "days", days, "error", err)
			lastErr = fmt.Errorf("days=%d: %w", days, err)
		case len(candles) == 0:
			c.logger.Debug("day bucket empty", "coin", coinID, "days", days)
			emptyErr = fmt.Errorf("days=%d: %w", days, types.ErrEmptyResult)
		default:
			if len(candles) > count {
				candles = candles[len(candles)-count:]
			}
			return candles, nil
		}
	}

	if lastErr == nil {
		lastErr = emptyErr
	}
	return nil, &types.DataFetchError{Provider: c.Name(), Cause: lastErr}
}

func (c *CoinGeckoProvider) fetchBucket(ctx context.Context, endpoint string, days int) ([]types.Candle, error) {
	params := OHLCParams{VsCurrency: c.vsCurrency, Days: days}

	body, err := c.client.Fetch(ctx, endpoint, params, nil)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return parseOHLC(body)
}

// RequiredDays converts a candle count into the history span it covers.
func RequiredDays(interval types.Interval, count int) int {
	switch interval {
	case types.Interval1h:
		return ceilDiv(count, 24)
	case types.Interval4h:
		return ceilDiv(count, 6)
	default:
		return max(1, count)
	}
}

// RoundDays picks the smallest accepted bucket covering days; anything past
// the largest bucket collapses to it.
func RoundDays(days int) int {
	for _, d := range DayBuckets {
		if days <= d {
			return d
		}
	}
	return DayBuckets[len(DayBuckets)-1]
}

// CandidateDays is {first, 30, 14, 7, 1} de-duplicated and sorted descending.
func CandidateDays(first int) []int {
	candidates := append([]int{first}, fallbackBuckets...)
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)
	slices.Reverse(candidates)
	return candidates
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// parseOHLC reads [timestamp_ms, open, high, low, close] rows. The endpoint
// reports no volume, so Volume stays nil.
func parseOHLC(body []byte) ([]types.Candle, error) {
	var rows [][]float64
	if err := json.Unmarshal(body, &rows); err != nil {
		var apiErr struct {
			Error  string `json:"error"`
			Status struct {
				ErrorMessage string `json:"error_message"`
			} `json:"status"`
		}
		if json.Unmarshal(body, &apiErr) == nil && (apiErr.Error != "" || apiErr.Status.ErrorMessage != "") {
			return nil, fmt.Errorf("api error: %s%s", apiErr.Error, apiErr.Status.ErrorMessage)
		}
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	candles := make([]types.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) != ohlcFields {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", i, ohlcFields, len(row))
		}
		candles = append(candles, types.Candle{
			OpenTime: time.UnixMilli(int64(row[0])).UTC(),
			Open:     row[1],
			High:     row[2],
			Low:      row[3],
			Close:    row[4],
		})
	}

	return candles, nil
}
