// Package series turns provider rows into the canonical CandleSeries.
package series

import (
	"fmt"
	"slices"

	"github.com/shahid-2020/cryptohlcv/types"
)

// Build copies rows into a series whose open times are UTC and strictly
// ascending, keeping at most the last count candles. Open times are kept as
// the provider reported them: the aggregator serves finer rows than the
// requested interval and each of them counts toward count. Only rows with an
// identical open time collapse, to the one seen last.
func Build(symbol string, interval types.Interval, source string, rows []types.Candle, count int) (types.CandleSeries, error) {
	if !interval.Valid() {
		return types.CandleSeries{}, fmt.Errorf("%w: unknown interval %q", types.ErrInvalidRequest, interval)
	}
	if count <= 0 {
		return types.CandleSeries{}, fmt.Errorf("%w: count must be positive, got %d", types.ErrInvalidRequest, count)
	}

	candles := make([]types.Candle, len(rows))
	for i, row := range rows {
		c := row
		c.OpenTime = row.OpenTime.UTC()
		if row.Volume != nil {
			v := *row.Volume
			c.Volume = &v
		}
		candles[i] = c
	}

	slices.SortStableFunc(candles, func(a, b types.Candle) int {
		return a.OpenTime.Compare(b.OpenTime)
	})
	candles = dedupe(candles)

	if len(candles) > count {
		candles = slices.Clone(candles[len(candles)-count:])
	}

	return types.CandleSeries{
		Symbol:   symbol,
		Interval: interval,
		Source:   source,
		Candles:  candles,
	}, nil
}

// dedupe expects sorted input and keeps the last candle of each open time.
func dedupe(candles []types.Candle) []types.Candle {
	out := candles[:0]
	for _, c := range candles {
		if n := len(out); n > 0 && out[n-1].OpenTime.Equal(c.OpenTime) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

// Ascending reports whether open times strictly increase.
func Ascending(s types.CandleSeries) bool {
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i-1].OpenTime.Before(s.Candles[i].OpenTime) {
			return false
		}
	}
	return true
}
