package provider

import (
	"context"

	"github.com/shahid-2020/cryptohlcv/types"
)

// OHLCVProvider returns raw candles for the most recent count intervals. Rows
// are not yet canonical; marketdata passes them through the series builder.
type OHLCVProvider interface {
	Name() string
	Provide(ctx context.Context, symbol string, interval types.Interval, count int) ([]types.Candle, error)
}
