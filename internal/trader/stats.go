package trader

import (
	"sort"
	"sync"

	"deriv-copy-trader-go/internal/metrics"
	"deriv-copy-trader-go/internal/models"
)

// StatsDetail holds the counters for one account on one symbol.
type StatsDetail struct {
	Entries  int64   `json:"entries"`
	Wins     int64   `json:"wins"`
	Losses   int64   `json:"losses"`
	Failures int64   `json:"failures"`
	WinRate  float64 `json:"win_rate"`
	Profit   float64 `json:"profit"`
}

// SymbolStats groups the counters of every account trading a symbol.
type SymbolStats struct {
	Symbol   string                 `json:"symbol"`
	Total    StatsDetail            `json:"total"`
	Accounts map[string]StatsDetail `json:"accounts"`
}

// Stats aggregates trade records in memory for the lifetime of the process.
type Stats struct {
	mu       sync.RWMutex
	bySymbol map[string]map[string]*StatsDetail
}

// NewStats creates an empty aggregate.
func NewStats() *Stats {
	return &Stats{bySymbol: make(map[string]map[string]*StatsDetail)}
}

// Record adds a terminal trade record to the counters and metrics.
func (s *Stats) Record(rec models.TradeRecord) {
	metrics.TradesTotal.WithLabelValues(rec.Symbol, string(rec.Role), string(rec.Outcome)).Inc()
	if rec.Outcome != models.OutcomeFailed {
		metrics.ProfitUSD.WithLabelValues(rec.Symbol, string(rec.Role)).Add(rec.Profit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, ok := s.bySymbol[rec.Symbol]
	if !ok {
		accounts = make(map[string]*StatsDetail)
		s.bySymbol[rec.Symbol] = accounts
	}
	d, ok := accounts[rec.Account]
	if !ok {
		d = &StatsDetail{}
		accounts[rec.Account] = d
	}
	d.add(rec)
}

func (d *StatsDetail) add(rec models.TradeRecord) {
	switch rec.Outcome {
	case models.OutcomeWin:
		d.Entries++
		d.Wins++
	case models.OutcomeLoss:
		d.Entries++
		d.Losses++
	default:
		d.Failures++
		return
	}
	d.Profit += rec.Profit
	d.WinRate = float64(d.Wins) / float64(d.Entries)
}

func (d *StatsDetail) merge(o StatsDetail) {
	d.Entries += o.Entries
	d.Wins += o.Wins
	d.Losses += o.Losses
	d.Failures += o.Failures
	d.Profit += o.Profit
	if d.Entries > 0 {
		d.WinRate = float64(d.Wins) / float64(d.Entries)
	}
}

// Snapshot returns a copy of the counters, ordered by symbol.
func (s *Stats) Snapshot() []SymbolStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SymbolStats, 0, len(s.bySymbol))
	for symbol, accounts := range s.bySymbol {
		ss := SymbolStats{Symbol: symbol, Accounts: make(map[string]StatsDetail, len(accounts))}
		for name, d := range accounts {
			ss.Accounts[name] = *d
			ss.Total.merge(*d)
		}
		out = append(out, ss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Account returns the counters for one account on one symbol.
func (s *Stats) Account(symbol, account string) StatsDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.bySymbol[symbol][account]; ok {
		return *d
	}
	return StatsDetail{}
}
