package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahid-2020/cryptohlcv/types"
)

func sampleSeries() types.CandleSeries {
	v := 1234.5
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return types.CandleSeries{
		Symbol:   "ETHUSDT",
		Interval: types.Interval1h,
		Source:   "binance",
		Candles: []types.Candle{
			{OpenTime: at, Open: 3400.1, High: 3410, Low: 3390.25, Close: 3405, Volume: &v},
			{OpenTime: at.Add(time.Hour), Open: 3405, High: 3420, Low: 3401, Close: 3418.75},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, writeCSV(&buf, sampleSeries()))

	assert.Equal(t, "open_time,open,high,low,close,volume\n"+
		"2024-03-01T00:00:00Z,3400.1,3410,3390.25,3405,1234.5\n"+
		"2024-03-01T01:00:00Z,3405,3420,3401,3418.75,\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, writeJSON(&buf, sampleSeries()))

	var got struct {
		Source  string `json:"source"`
		Candles []struct {
			Close  float64  `json:"close"`
			Volume *float64 `json:"volume"`
		} `json:"candles"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "binance", got.Source)
	require.Len(t, got.Candles, 2)
	require.NotNil(t, got.Candles[0].Volume)
	assert.Equal(t, 1234.5, *got.Candles[0].Volume)
	assert.Nil(t, got.Candles[1].Volume)
}

func TestWriterFor(t *testing.T) {
	_, err := writerFor("CSV")
	assert.NoError(t, err)
	_, err = writerFor("json")
	assert.NoError(t, err)
	_, err = writerFor("parquet")
	assert.ErrorContains(t, err, "unknown --format")
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv(configEnv, "")

		cfg, err := loadConfig("")

		require.NoError(t, err)
		assert.Equal(t, "ETHUSDT", cfg.Symbol)
	})

	t.Run("FromEnv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cryptohlcv.yaml")
		require.NoError(t, os.WriteFile(path, []byte("symbol: BTCUSDT\n"), 0o644))
		t.Setenv(configEnv, path)

		cfg, err := loadConfig("")

		require.NoError(t, err)
		assert.Equal(t, "BTCUSDT", cfg.Symbol)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

		assert.ErrorContains(t, err, "read config file")
	})
}

func TestFetchCmd_RejectsBadFlags(t *testing.T) {
	tests := map[string][]string{
		"format":   {"--format", "xml"},
		"interval": {"--interval", "15m"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := newFetchCmd()
			cmd.SetArgs(args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			assert.Error(t, cmd.Execute())
		})
	}
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)

	versionCmd.Run(versionCmd, nil)

	assert.Equal(t, "cryptohlcv version 1.0.0\n", buf.String())
}
