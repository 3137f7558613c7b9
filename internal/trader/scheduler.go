package trader

import (
	"context"
	"sync"
	"time"

	"deriv-copy-trader-go/internal/deriv"
	"deriv-copy-trader-go/internal/metrics"
	"deriv-copy-trader-go/internal/models"
	"deriv-copy-trader-go/internal/notify"
	"deriv-copy-trader-go/internal/stake"
	"deriv-copy-trader-go/internal/strategy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scheduler trades a single account only during configured wall-clock
// minutes, with a cap on trades per symbol per window.
type Scheduler struct {
	account     models.Account
	symbols     []models.Symbol
	windows     []models.TradeWindow
	location    *time.Location
	maxTrades   int
	dialer      deriv.Dialer
	analyzer    strategy.Analyzer
	stakes      *stake.Multiplier
	stats       *Stats
	notifier    notify.Notifier
	params      ExecutionParams
	granularity int
	logger      *zap.Logger
	now         func() time.Time

	// counts is only touched by the goroutine calling Tick.
	counts map[string]int
}

// SchedulerConfig are the scheduler's static settings.
type SchedulerConfig struct {
	Account     models.Account
	Symbols     []models.Symbol
	Windows     []models.TradeWindow
	Location    *time.Location
	MaxTrades   int
	Granularity int
}

// NewScheduler creates a window scheduler.
func NewScheduler(cfg SchedulerConfig, dialer deriv.Dialer, stakes *stake.Multiplier, stats *Stats, notifier notify.Notifier, params ExecutionParams, logger *zap.Logger) *Scheduler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		account:     cfg.Account,
		symbols:     cfg.Symbols,
		windows:     cfg.Windows,
		location:    loc,
		maxTrades:   cfg.MaxTrades,
		dialer:      dialer,
		analyzer:    strategy.EngulfingAnalyzer{},
		stakes:      stakes,
		stats:       stats,
		notifier:    notifier,
		params:      params,
		granularity: cfg.Granularity,
		logger:      logger.Named("scheduler"),
		now:         time.Now,
		counts:      make(map[string]int),
	}
}

// Open reports whether t falls on one of the trade windows.
func (s *Scheduler) Open(t time.Time) bool {
	local := t.In(s.location)
	for _, w := range s.windows {
		if w.Matches(local) {
			return true
		}
	}
	return false
}

// Run polls the clock until the context is canceled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting window scheduler",
		zap.Duration("interval", interval),
		zap.Int("windows", len(s.windows)),
		zap.String("timezone", s.location.String()))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping window scheduler...")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates the clock once and trades every symbol still under its cap
// if a window is open. It returns the records of the trades placed.
func (s *Scheduler) Tick(ctx context.Context) []models.TradeRecord {
	if !s.Open(s.now()) {
		if len(s.counts) > 0 {
			s.logger.Debug("Window closed, resetting trade counters")
			s.counts = make(map[string]int)
		}
		return nil
	}

	var (
		wg      sync.WaitGroup
		results = make([]*models.TradeRecord, len(s.symbols))
	)
	for i, sym := range s.symbols {
		if s.counts[sym.Name] >= s.maxTrades {
			continue
		}
		wg.Add(1)
		go func(slot int, sym models.Symbol) {
			defer wg.Done()
			results[slot] = s.tradeSymbol(ctx, sym)
		}(i, sym)
	}
	wg.Wait()

	var records []models.TradeRecord
	for i, rec := range results {
		if rec == nil {
			continue
		}
		// Only contracts that were actually bought use up the window's allowance.
		if rec.ContractID != 0 {
			s.counts[s.symbols[i].Name]++
		}
		records = append(records, *rec)
	}
	return records
}

func (s *Scheduler) tradeSymbol(ctx context.Context, sym models.Symbol) *models.TradeRecord {
	cycleID := uuid.New().String()
	l := s.logger.With(zap.String("symbol", sym.Name), zap.String("cycle_id", cycleID))

	session := NewSession(s.account, sym, s.dialer, s.params, l)
	if err := session.Connect(ctx); err != nil {
		metrics.CyclesTotal.WithLabelValues(sym.Name, "connect_failed").Inc()
		return nil
	}
	defer session.Close()

	candles, err := session.FetchCandles(ctx, s.analyzer.MinCandles(), s.granularity)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues(sym.Name, "fetch_failed").Inc()
		l.Error("Failed to fetch candles", zap.Error(err))
		return nil
	}

	signal, ok := s.analyzer.Analyze(candles)
	if !ok {
		metrics.CyclesTotal.WithLabelValues(sym.Name, "idle").Inc()
		return nil
	}
	metrics.SignalsTotal.WithLabelValues(sym.Name, string(signal.Direction)).Inc()

	amount := s.stakes.Amount(sym.Name)
	l.Info("Engulfing signal found", zap.String("direction", string(signal.Direction)), zap.Float64("stake", stake.Round(amount)))

	rec := session.ExecuteTrade(ctx, cycleID, signal, amount)
	if rec.Outcome != models.OutcomeFailed {
		s.stakes.Record(sym.Name, rec.Won())
	}
	s.stats.Record(rec)
	if err := s.notifier.Notify(ctx, rec); err != nil {
		l.Warn("Failed to deliver trade notification", zap.String("trade_id", rec.ID), zap.Error(err))
	}
	metrics.CyclesTotal.WithLabelValues(sym.Name, "traded").Inc()
	return &rec
}
