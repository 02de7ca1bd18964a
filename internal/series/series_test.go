package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahid-2020/cryptohlcv/types"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func candle(at time.Time, price float64) types.Candle {
	return types.Candle{OpenTime: at, Open: price - 1, High: price + 1, Low: price - 2, Close: price}
}

func withVolume(c types.Candle, v float64) types.Candle {
	c.Volume = &v
	return c
}

func TestBuild_SortsAscending(t *testing.T) {
	rows := []types.Candle{
		candle(t0.Add(2*time.Hour), 3),
		candle(t0, 1),
		candle(t0.Add(time.Hour), 2),
	}

	s, err := Build("ETHUSDT", types.Interval1h, "binance", rows, 10)

	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, s.Closes())
	assert.True(t, Ascending(s))
	assert.Equal(t, "ETHUSDT", s.Symbol)
	assert.Equal(t, types.Interval1h, s.Interval)
	assert.Equal(t, "binance", s.Source)
}

func TestBuild_TrimsToMostRecent(t *testing.T) {
	var rows []types.Candle
	for i := range 10 {
		rows = append(rows, candle(t0.Add(time.Duration(i)*4*time.Hour), float64(i)))
	}

	s, err := Build("ETHUSDT", types.Interval4h, "coingecko", rows, 4)

	require.NoError(t, err)
	assert.Equal(t, []float64{6, 7, 8, 9}, s.Closes())
}

func TestBuild_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5:30", 5*3600+1800)
	rows := []types.Candle{
		candle(time.Date(2024, 1, 2, 5, 30, 0, 0, loc), 1),
	}

	s, err := Build("ETHUSDT", types.Interval1h, "binance", rows, 1)

	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, t0, s.Candles[0].OpenTime)
	assert.Equal(t, time.UTC, s.Candles[0].OpenTime.Location())
}

func TestBuild_KeepsFinerRowsDistinct(t *testing.T) {
	var rows []types.Candle
	for i := range 10 {
		rows = append(rows, candle(t0.Add(time.Duration(i)*4*time.Hour), float64(i)))
	}

	s, err := Build("ETHUSDT", types.Interval1d, "coingecko", rows, 8)

	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4, 5, 6, 7, 8, 9}, s.Closes())
	assert.Equal(t, t0.Add(8*time.Hour), s.Candles[0].OpenTime)
	assert.True(t, Ascending(s))
}

func TestBuild_CollapsesIdenticalOpenTimes(t *testing.T) {
	rows := []types.Candle{
		candle(t0, 1),
		candle(t0.Add(30*time.Minute), 2),
		candle(t0, 3),
	}

	s, err := Build("ETHUSDT", types.Interval1h, "coingecko", rows, 10)

	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2}, s.Closes())
	assert.True(t, Ascending(s))
}

func TestBuild_VolumeIsCopiedNeverInvented(t *testing.T) {
	rows := []types.Candle{
		withVolume(candle(t0, 1), 42),
		candle(t0.Add(time.Hour), 2),
	}

	s, err := Build("ETHUSDT", types.Interval1h, "mixed", rows, 10)

	require.NoError(t, err)
	require.NotNil(t, s.Candles[0].Volume)
	assert.Equal(t, 42.0, *s.Candles[0].Volume)
	assert.Nil(t, s.Candles[1].Volume)

	*rows[0].Volume = 7
	assert.Equal(t, 42.0, *s.Candles[0].Volume, "series does not share memory with the input")
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	rows := []types.Candle{candle(t0.Add(time.Hour), 2), candle(t0, 1)}

	_, err := Build("ETHUSDT", types.Interval1h, "binance", rows, 1)

	require.NoError(t, err)
	assert.Equal(t, 2.0, rows[0].Close)
	assert.Equal(t, 1.0, rows[1].Close)
}

func TestBuild_Empty(t *testing.T) {
	s, err := Build("ETHUSDT", types.Interval1h, "binance", nil, 5)

	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestBuild_InvalidArguments(t *testing.T) {
	_, err := Build("ETHUSDT", types.Interval("2h"), "binance", nil, 5)
	assert.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = Build("ETHUSDT", types.Interval1h, "binance", nil, 0)
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestAscending(t *testing.T) {
	assert.True(t, Ascending(types.CandleSeries{}))
	assert.False(t, Ascending(types.CandleSeries{Candles: []types.Candle{candle(t0, 1), candle(t0, 2)}}))
	assert.False(t, Ascending(types.CandleSeries{Candles: []types.Candle{candle(t0.Add(time.Hour), 1), candle(t0, 2)}}))
}
