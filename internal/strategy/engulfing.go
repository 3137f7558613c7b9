package strategy

import (
	"deriv-copy-trader-go/internal/models"
)

// EngulfingAnalyzer signals when the latest candle's body engulfs the body of
// the previous candle in the opposite color.
type EngulfingAnalyzer struct{}

func (EngulfingAnalyzer) Name() string {
	return "Engulfing"
}

func (EngulfingAnalyzer) MinCandles() int {
	return 2
}

func (EngulfingAnalyzer) Analyze(candles []models.Candle) (models.Signal, bool) {
	if len(candles) < 2 {
		return models.Signal{}, false
	}
	prev, cur := candles[len(candles)-2], candles[len(candles)-1]

	switch {
	case prev.Color() == models.Red && cur.Color() == models.Green &&
		cur.Open <= prev.Close && cur.Close >= prev.Open:
		return models.Signal{Direction: models.Call, Confidence: 1.0}, true
	case prev.Color() == models.Green && cur.Color() == models.Red &&
		cur.Open >= prev.Close && cur.Close <= prev.Open:
		return models.Signal{Direction: models.Put, Confidence: 1.0}, true
	}
	return models.Signal{}, false
}
