package cmd

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/shahid-2020/cryptohlcv/types"
)

var csvHeader = []string{"open_time", "open", "high", "low", "close", "volume"}

// writeCSV leaves the volume column empty for sources without volume.
func writeCSV(w io.Writer, s types.CandleSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, c := range s.Candles {
		volume := ""
		if c.Volume != nil {
			volume = f(*c.Volume)
		}
		err := cw.Write([]string{
			c.OpenTime.Format(time.RFC3339),
			f(c.Open),
			f(c.High),
			f(c.Low),
			f(c.Close),
			volume,
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, s types.CandleSeries) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
