package types

import (
	"fmt"
	"time"
)

type Interval string

const (
	Interval1h Interval = "1h"
	Interval4h Interval = "4h"
	Interval1d Interval = "1d"
)

func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if !i.Valid() {
		return "", fmt.Errorf("%w: unknown interval %q", ErrInvalidRequest, s)
	}
	return i, nil
}

func (i Interval) Valid() bool {
	switch i {
	case Interval1h, Interval4h, Interval1d:
		return true
	default:
		return false
	}
}

// Duration returns the span covered by one candle, or 0 for unknown intervals.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

type CandleRequest struct {
	Symbol   string   `json:"symbol"`
	Interval Interval `json:"interval"`
	Count    int      `json:"count"`
}

func (r CandleRequest) Validate() error {
	if !r.Interval.Valid() {
		return fmt.Errorf("%w: unknown interval %q", ErrInvalidRequest, r.Interval)
	}
	if r.Count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidRequest, r.Count)
	}
	return nil
}

// Candle is a pass-through of provider data; OHLC consistency is not checked.
// A nil Volume means the source does not report volume.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   *float64  `json:"volume"`
}

func (c Candle) HasVolume() bool {
	return c.Volume != nil
}

// CandleSeries is ordered strictly ascending by OpenTime.
type CandleSeries struct {
	Symbol   string   `json:"symbol"`
	Interval Interval `json:"interval"`
	Source   string   `json:"source"`
	Candles  []Candle `json:"candles"`
}

func (s CandleSeries) Len() int {
	return len(s.Candles)
}

func (s CandleSeries) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

func (s CandleSeries) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}
