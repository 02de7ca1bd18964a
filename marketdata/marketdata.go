package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shahid-2020/cryptohlcv/config"
	"github.com/shahid-2020/cryptohlcv/internal/httpclient"
	"github.com/shahid-2020/cryptohlcv/internal/logger"
	"github.com/shahid-2020/cryptohlcv/internal/provider"
	"github.com/shahid-2020/cryptohlcv/internal/provider/binance"
	"github.com/shahid-2020/cryptohlcv/internal/provider/coingecko"
	"github.com/shahid-2020/cryptohlcv/internal/retry"
	"github.com/shahid-2020/cryptohlcv/internal/series"
	"github.com/shahid-2020/cryptohlcv/types"
)

// MarketData holds configuration only, so one value can serve concurrent
// Fetch calls.
type MarketData struct {
	symbol    string
	deadline  time.Duration
	primary   provider.OHLCVProvider
	secondary provider.OHLCVProvider
	logger    *slog.Logger
}

func NewMarketData(cfg *config.Config, log *slog.Logger) (*MarketData, error) {
	return newMarketData(cfg, log, nil)
}

func newMarketData(cfg *config.Config, log *slog.Logger, sleeper retry.Sleeper) (*MarketData, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}

	binanceLog := log.With("provider", "binance")
	coingeckoLog := log.With("provider", "coingecko")

	primary := binance.NewBinanceProvider(cfg.Binance,
		newHTTPClient(cfg.HTTP, cfg.Binance.RateLimit, sleeper, binanceLog))
	secondary := coingecko.NewCoinGeckoProvider(cfg.CoinGecko,
		newHTTPClient(cfg.HTTP, cfg.CoinGecko.RateLimit, sleeper, coingeckoLog), coingeckoLog)

	return &MarketData{
		symbol:    cfg.Symbol,
		deadline:  cfg.Deadline,
		primary:   primary,
		secondary: secondary,
		logger:    log,
	}, nil
}

func newHTTPClient(cfg config.HTTPConfig, rl config.RateLimitConfig, sleeper retry.Sleeper, log *slog.Logger) *httpclient.Client {
	return httpclient.NewClient(httpclient.ClientConfig{
		HttpClient: &http.Client{Timeout: cfg.Timeout},
		UserAgent:  cfg.UserAgent,
		RateLimitConfig: httpclient.RateLimitConfig{
			RequestsPerSecond: rl.PerSecond,
			RequestsPerMinute: rl.PerMinute,
			RequestsPerHour:   rl.PerHour,
		},
		RetryConfig: httpclient.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		},
		Sleeper: sleeper,
		Logger:  log,
	})
}

// Fetch returns the most recent req.Count candles. The primary exchange is
// always tried first; any failure of it, geo-blocks included, hands the
// request to the secondary aggregator, whose *types.DataFetchError is final.
// An empty req.Symbol uses the configured symbol.
func (m *MarketData) Fetch(ctx context.Context, req types.CandleRequest) (types.CandleSeries, error) {
	if req.Symbol == "" {
		req.Symbol = m.symbol
	}
	if err := req.Validate(); err != nil {
		return types.CandleSeries{}, err
	}

	if m.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.deadline)
		defer cancel()
	}

	log := m.logger.With(
		"fetch_id", uuid.NewString(),
		"symbol", req.Symbol,
		"interval", req.Interval,
		"count", req.Count,
	)

	rows, err := m.primary.Provide(ctx, req.Symbol, req.Interval, req.Count)
	if err == nil && len(rows) > 0 {
		log.Debug("fetched candles", "source", m.primary.Name(), "rows", len(rows))
		return series.Build(req.Symbol, req.Interval, m.primary.Name(), rows, req.Count)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return types.CandleSeries{}, fmt.Errorf("fetch aborted: %w", ctxErr)
	}
	m.logFallback(log, err)

	rows, err = m.secondary.Provide(ctx, req.Symbol, req.Interval, req.Count)
	if err != nil {
		var fetchErr *types.DataFetchError
		if !errors.As(err, &fetchErr) {
			err = &types.DataFetchError{Provider: m.secondary.Name(), Cause: err}
		}
		log.Warn("fallback failed", "source", m.secondary.Name(), "error", err)
		return types.CandleSeries{}, err
	}

	log.Debug("fetched candles", "source", m.secondary.Name(), "rows", len(rows))
	return series.Build(req.Symbol, req.Interval, m.secondary.Name(), rows, req.Count)
}

func (m *MarketData) logFallback(log *slog.Logger, err error) {
	var statusErr *types.StatusError
	switch {
	case err == nil:
		log.Warn("primary returned no candles, falling back", "primary", m.primary.Name())
	case errors.As(err, &statusErr) && statusErr.GeoBlocked():
		log.Warn("primary geo-restricted, falling back", "primary", m.primary.Name(), "status", statusErr.StatusCode)
	default:
		log.Warn("primary failed, falling back", "primary", m.primary.Name(), "error", err)
	}
}
