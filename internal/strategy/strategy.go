// Package strategy turns candle history into trading signals.
package strategy

import (
	"deriv-copy-trader-go/internal/models"
)

// Analyzer defines the interface for a candle pattern strategy.
type Analyzer interface {
	// Name returns the unique name of the strategy.
	Name() string

	// MinCandles is the number of candles Analyze needs to produce a signal.
	MinCandles() int

	// Analyze returns a signal for the latest candle, or false when no
	// pattern applies. Candles are ordered oldest first.
	Analyze(candles []models.Candle) (models.Signal, bool)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// meanBody is the average absolute body size of the candles.
func meanBody(candles []models.Candle) float64 {
	bodies := make([]float64, len(candles))
	for i, c := range candles {
		bodies[i] = c.Body()
	}
	return mean(bodies)
}

// sma is the simple moving average of the closes.
func sma(candles []models.Candle) float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return mean(closes)
}

func last(candles []models.Candle, n int) []models.Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
