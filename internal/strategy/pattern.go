package strategy

import (
	"deriv-copy-trader-go/internal/models"

	"go.uber.org/zap"
)

const (
	patternLength = 5
	trendWindow   = 10

	continuationConfidence = 1.0
	reversalConfidence     = 0.5
)

// PatternAnalyzer looks for a run of four same-colored candles and reads the
// fifth as either a continuation or a reversal, confirmed by the SMA trend.
type PatternAnalyzer struct {
	minCandles          int
	volatilityThreshold float64
	logger              *zap.Logger
}

// NewPatternAnalyzer creates a PatternAnalyzer. minCandles below the pattern's
// own needs is raised to the trend window.
func NewPatternAnalyzer(minCandles int, volatilityThreshold float64, logger *zap.Logger) *PatternAnalyzer {
	if minCandles < trendWindow {
		minCandles = trendWindow
	}
	return &PatternAnalyzer{
		minCandles:          minCandles,
		volatilityThreshold: volatilityThreshold,
		logger:              logger,
	}
}

func (a *PatternAnalyzer) Name() string {
	return "FiveCandlePattern"
}

func (a *PatternAnalyzer) MinCandles() int {
	return a.minCandles
}

func (a *PatternAnalyzer) Analyze(candles []models.Candle) (models.Signal, bool) {
	if len(candles) < a.minCandles {
		a.logger.Debug("Not enough candles", zap.Int("have", len(candles)), zap.Int("need", a.minCandles))
		return models.Signal{}, false
	}

	window := last(candles, patternLength)

	if avg := meanBody(window); avg > a.volatilityThreshold {
		a.logger.Debug("Market too volatile, skipping", zap.Float64("avg_body", avg))
		return models.Signal{}, false
	}

	bullish := candles[len(candles)-1].Close > sma(last(candles, trendWindow))

	run := window[0].Color()
	if run == models.Doji {
		a.logger.Debug("No valid pattern found")
		return models.Signal{}, false
	}
	for _, c := range window[1 : patternLength-1] {
		if c.Color() != run {
			a.logger.Debug("No valid pattern found")
			return models.Signal{}, false
		}
	}

	runDirection := models.Put
	if run == models.Green {
		runDirection = models.Call
	}

	var sig models.Signal
	switch fifth := window[patternLength-1].Color(); {
	case fifth == run:
		sig = models.Signal{Direction: runDirection, Confidence: continuationConfidence}
	case fifth == models.Doji:
		a.logger.Debug("Doji after run, no pattern")
		return models.Signal{}, false
	default:
		sig = models.Signal{Direction: runDirection.Opposite(), Confidence: reversalConfidence}
	}

	if (sig.Direction == models.Call) != bullish {
		a.logger.Debug("Pattern conflicts with SMA trend, skipping",
			zap.String("direction", string(sig.Direction)),
			zap.Float64("confidence", sig.Confidence),
			zap.Bool("bullish", bullish))
		return models.Signal{}, false
	}

	return sig, true
}
