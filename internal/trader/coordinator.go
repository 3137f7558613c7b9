package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"deriv-copy-trader-go/internal/deriv"
	"deriv-copy-trader-go/internal/metrics"
	"deriv-copy-trader-go/internal/models"
	"deriv-copy-trader-go/internal/notify"
	"deriv-copy-trader-go/internal/stake"
	"deriv-copy-trader-go/internal/strategy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMasterUnavailable means the master session could not be connected, so
// the cycle was abandoned before any trade.
var ErrMasterUnavailable = errors.New("master session unavailable")

// CycleResult describes one analyze→trade→settle pass.
type CycleResult struct {
	CycleID string
	Signal  *models.Signal
	Stake   float64
	Records []models.TradeRecord
}

// Coordinator replicates the master account's signal for one symbol to every
// follower account.
type Coordinator struct {
	symbol      models.Symbol
	master      models.Account
	followers   []models.Account
	dialer      deriv.Dialer
	analyzer    strategy.Analyzer
	stakes      *stake.Martingale
	stats       *Stats
	notifier    notify.Notifier
	params      ExecutionParams
	granularity int
	logger      *zap.Logger
}

// CoordinatorDeps are the collaborators shared by every symbol's coordinator.
type CoordinatorDeps struct {
	Dialer      deriv.Dialer
	Analyzer    strategy.Analyzer
	Stakes      *stake.Martingale
	Stats       *Stats
	Notifier    notify.Notifier
	Params      ExecutionParams
	Granularity int
	Logger      *zap.Logger
}

// NewCoordinator creates a coordinator for the symbol. accounts must contain
// exactly one master.
func NewCoordinator(symbol models.Symbol, accounts []models.Account, deps CoordinatorDeps) (*Coordinator, error) {
	c := &Coordinator{
		symbol:      symbol,
		dialer:      deps.Dialer,
		analyzer:    deps.Analyzer,
		stakes:      deps.Stakes,
		stats:       deps.Stats,
		notifier:    deps.Notifier,
		params:      deps.Params,
		granularity: deps.Granularity,
		logger:      deps.Logger.With(zap.String("symbol", symbol.Name)),
	}
	if c.notifier == nil {
		c.notifier = notify.Nop{}
	}

	var masters int
	for _, acc := range accounts {
		if acc.Role == models.RoleMaster {
			c.master = acc
			masters++
		} else {
			c.followers = append(c.followers, acc)
		}
	}
	if masters != 1 {
		return nil, fmt.Errorf("symbol %s: expected one master account, got %d", symbol.Name, masters)
	}
	return c, nil
}

// RunCycle performs one full pass for the coordinator's symbol. It returns
// ErrMasterUnavailable when the master cannot connect and a transport error
// when the candle fetch fails; trade failures are reported on the records.
func (c *Coordinator) RunCycle(ctx context.Context) (CycleResult, error) {
	result := CycleResult{CycleID: uuid.New().String()}
	l := c.logger.With(zap.String("cycle_id", result.CycleID))

	master := NewSession(c.master, c.symbol, c.dialer, c.params, l)
	if err := master.Connect(ctx); err != nil {
		metrics.CyclesTotal.WithLabelValues(c.symbol.Name, "connect_failed").Inc()
		return result, fmt.Errorf("%w: %w", ErrMasterUnavailable, err)
	}
	defer master.Close()

	candles, err := master.FetchCandles(ctx, c.analyzer.MinCandles(), c.granularity)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues(c.symbol.Name, "fetch_failed").Inc()
		return result, err
	}

	signal, ok := c.analyzer.Analyze(candles)
	if !ok {
		metrics.CyclesTotal.WithLabelValues(c.symbol.Name, "idle").Inc()
		l.Debug("No signal this cycle")
		return result, nil
	}
	metrics.SignalsTotal.WithLabelValues(c.symbol.Name, string(signal.Direction)).Inc()

	// The executor applies the symbol multiplier and rounds once; result.Stake
	// is the rounded pre-multiplier amount for reporting.
	stakeAmount := c.stakes.Amount(c.symbol.Name, signal.Confidence)
	result.Signal = &signal
	result.Stake = stake.Round(stakeAmount)
	l.Info("Signal found",
		zap.String("direction", string(signal.Direction)),
		zap.Float64("confidence", signal.Confidence),
		zap.Int("escalation_step", c.stakes.Step(c.symbol.Name)),
		zap.Float64("stake", result.Stake),
		zap.Int("followers", len(c.followers)))

	// Slot 0 is the master; follower i is slot i+1. A slot stays nil when the
	// follower could not connect.
	records := make([]*models.TradeRecord, len(c.followers)+1)
	sessions := make([]*Session, len(c.followers))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := master.ExecuteTrade(ctx, result.CycleID, signal, stakeAmount)
		records[0] = &rec
	}()

	for i, acc := range c.followers {
		sessions[i] = NewSession(acc, c.symbol, c.dialer, c.params, l)
		wg.Add(1)
		go func(slot int, s *Session) {
			defer wg.Done()
			if err := s.Connect(ctx); err != nil {
				l.Warn("Follower skipped for this cycle",
					zap.String("account", s.Account().Name), zap.Error(err))
				return
			}
			rec := s.ExecuteTrade(ctx, result.CycleID, signal, stakeAmount)
			records[slot] = &rec
		}(i+1, sessions[i])
	}

	wg.Wait()

	for _, s := range sessions {
		s.Close()
	}

	if m := records[0]; m.Outcome != models.OutcomeFailed {
		c.stakes.Record(c.symbol.Name, m.Won())
		metrics.EscalationStep.WithLabelValues(c.symbol.Name).Set(float64(c.stakes.Step(c.symbol.Name)))
	}

	for _, rec := range records {
		if rec == nil {
			continue
		}
		result.Records = append(result.Records, *rec)
		c.stats.Record(*rec)
		if err := c.notifier.Notify(ctx, *rec); err != nil {
			l.Warn("Failed to deliver trade notification", zap.String("trade_id", rec.ID), zap.Error(err))
		}
	}

	metrics.CyclesTotal.WithLabelValues(c.symbol.Name, "traded").Inc()
	l.Info("Cycle complete", zap.Int("trades", len(result.Records)))
	return result, nil
}
