package models

import "time"

// Candle is one OHLC bar as returned by the broker's candle history.
type Candle struct {
	Open  float64   `json:"open"`
	Close float64   `json:"close"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Time  time.Time `json:"time"`
}

// Body returns the absolute size of the candle body.
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Color classifies a candle by the direction of its body.
type Color int

const (
	Doji Color = iota
	Green
	Red
)

func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Red:
		return "red"
	default:
		return "doji"
	}
}

// Color returns green for a rising candle, red for a falling one and doji otherwise.
func (c Candle) Color() Color {
	switch {
	case c.Close > c.Open:
		return Green
	case c.Close < c.Open:
		return Red
	default:
		return Doji
	}
}
