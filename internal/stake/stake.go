// Package stake sizes trades after wins and losses.
package stake

import (
	"math"
	"strconv"
	"sync"

	"deriv-copy-trader-go/internal/models"
)

// Round rounds an amount to currency precision (2 decimals). It rounds the
// exact binary value, so 0.105 (stored as 0.10499...) becomes 0.10.
func Round(amount float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(amount, 'f', 2, 64), 64)
	return v
}

// Martingale escalates the stake by a fixed multiplier per consecutive loss
// and resets on a win. Steps are tracked per symbol and shared by every
// cycle of that symbol for the lifetime of the process.
type Martingale struct {
	multiplier float64
	maxStep    int
	bases      map[string]float64

	mu    sync.Mutex
	steps map[string]int
}

// NewMartingale creates a controller for the given symbol table. maxStep <= 0
// leaves escalation uncapped.
func NewMartingale(symbols []models.Symbol, multiplier float64, maxStep int) *Martingale {
	bases := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		bases[s.Name] = s.BaseStake
	}
	return &Martingale{
		multiplier: multiplier,
		maxStep:    maxStep,
		bases:      bases,
		steps:      make(map[string]int, len(symbols)),
	}
}

// Stake returns base × multiplier^step × confidence, rounded to cents.
func (m *Martingale) Stake(symbol string, confidence float64) float64 {
	return Round(m.Amount(symbol, confidence))
}

// Amount is Stake before rounding. Callers that scale the stake further
// round once at the end.
func (m *Martingale) Amount(symbol string, confidence float64) float64 {
	m.mu.Lock()
	step := m.steps[symbol]
	m.mu.Unlock()

	return m.bases[symbol] * math.Pow(m.multiplier, float64(step)) * confidence
}

// Record applies a settled outcome for the symbol.
func (m *Martingale) Record(symbol string, won bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if won {
		m.steps[symbol] = 0
		return
	}
	if m.maxStep > 0 && m.steps[symbol] >= m.maxStep {
		return
	}
	m.steps[symbol]++
}

// Step returns the current escalation step for the symbol.
func (m *Martingale) Step(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[symbol]
}

// Multiplier keeps a running stake per symbol: a loss multiplies it, a win
// puts it back to the symbol's base stake.
type Multiplier struct {
	multiplier float64
	bases      map[string]float64

	mu      sync.Mutex
	current map[string]float64
}

// NewMultiplier creates a running-stake controller for the symbol table.
func NewMultiplier(symbols []models.Symbol, multiplier float64) *Multiplier {
	bases := make(map[string]float64, len(symbols))
	current := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		bases[s.Name] = s.BaseStake
		current[s.Name] = s.BaseStake
	}
	return &Multiplier{multiplier: multiplier, bases: bases, current: current}
}

// Stake returns the current stake for the symbol, rounded to cents.
func (m *Multiplier) Stake(symbol string) float64 {
	return Round(m.Amount(symbol))
}

// Amount is Stake before rounding.
func (m *Multiplier) Amount(symbol string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current[symbol]
}

// Record applies a settled outcome for the symbol.
func (m *Multiplier) Record(symbol string, won bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if won {
		m.current[symbol] = m.bases[symbol]
		return
	}
	m.current[symbol] *= m.multiplier
}
