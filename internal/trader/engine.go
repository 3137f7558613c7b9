package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deriv-copy-trader-go/internal/config"
	"deriv-copy-trader-go/internal/deriv"
	"deriv-copy-trader-go/internal/models"
	"deriv-copy-trader-go/internal/notify"
	"deriv-copy-trader-go/internal/stake"
	"deriv-copy-trader-go/internal/strategy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine runs one independent trading loop per configured symbol, or a single
// window scheduler, until its context is canceled.
type Engine struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger   *zap.Logger
	cfg      *config.Config
	dialer   deriv.Dialer
	notifier notify.Notifier
	stats    *Stats
	stakes   *stake.Martingale

	symbols  []models.Symbol
	accounts []models.Account
	params   ExecutionParams
	// windowResolver settles window-mode trades only; replication always
	// settles through the broker.
	windowResolver OutcomeResolver
}

// NewEngine creates a new trading engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, dialer deriv.Dialer, notifier notify.Notifier) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	accounts, err := cfg.AccountList()
	if err != nil {
		return nil, err
	}
	resolver, err := NewResolver(cfg.Trading.OutcomeResolver)
	if err != nil {
		return nil, err
	}

	symbols := cfg.SymbolTable()
	return &Engine{
		UUID:      uuid.New().String(),
		Name:      cfg.Server.Name,
		StartTime: time.Now(),
		logger:    logger,
		cfg:       cfg,
		dialer:    dialer,
		notifier:  notifier,
		stats:     NewStats(),
		stakes:    stake.NewMartingale(symbols, cfg.Trading.EscalationMultiplier, cfg.Trading.MaxEscalationStep),
		symbols:   symbols,
		accounts:  accounts,
		params: ExecutionParams{
			Currency:     cfg.Deriv.Currency,
			Duration:     cfg.Trading.ContractDuration,
			DurationUnit: cfg.Trading.ContractDurationUnit,
			Hold:         time.Duration(cfg.Trading.HoldSeconds) * time.Second,
			Resolver:     BrokerResolver{},
		},
		windowResolver: resolver,
	}, nil
}

// Stats returns the engine's in-memory trade statistics.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// Mode returns the configured trading mode.
func (e *Engine) Mode() string {
	return e.cfg.Trading.Mode
}

// Run starts the trading loops and blocks until they have all stopped.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("Starting trading engine",
		zap.String("mode", e.cfg.Trading.Mode),
		zap.Int("symbols", len(e.symbols)),
		zap.Int("accounts", len(e.accounts)))

	if e.cfg.Trading.Mode == config.ModeWindows {
		e.runScheduler(ctx)
		e.logger.Info("Stopping trading engine...")
		return
	}

	var wg sync.WaitGroup
	for _, sym := range e.symbols {
		coord, err := e.coordinator(sym)
		if err != nil {
			e.logger.Error("Failed to create coordinator", zap.String("symbol", sym.Name), zap.Error(err))
			continue
		}
		wg.Add(1)
		go func(c *Coordinator, symbol string) {
			defer wg.Done()
			e.runSymbol(ctx, c, symbol)
		}(coord, sym.Name)
	}
	wg.Wait()
	e.logger.Info("Stopping trading engine...")
}

func (e *Engine) coordinator(sym models.Symbol) (*Coordinator, error) {
	return NewCoordinator(sym, e.accounts, CoordinatorDeps{
		Dialer:      e.dialer,
		Analyzer:    strategy.NewPatternAnalyzer(e.cfg.Trading.MinCandles, e.cfg.Trading.VolatilityThreshold, e.logger.With(zap.String("symbol", sym.Name))),
		Stakes:      e.stakes,
		Stats:       e.stats,
		Notifier:    e.notifier,
		Params:      e.params,
		Granularity: e.cfg.Trading.Granularity,
		Logger:      e.logger,
	})
}

// runSymbol repeats coordinator cycles for one symbol until ctx is done.
func (e *Engine) runSymbol(ctx context.Context, c *Coordinator, symbol string) {
	l := e.logger.With(zap.String("symbol", symbol))
	retryDelay := time.Duration(e.cfg.Trading.RetryDelay) * time.Second
	cycleDelay := time.Duration(e.cfg.Trading.CycleDelay) * time.Second

	for {
		delay := cycleDelay
		if _, err := c.RunCycle(ctx); err != nil {
			if errors.Is(err, ErrMasterUnavailable) {
				l.Warn("Master unavailable, retrying", zap.Duration("retry_after", retryDelay), zap.Error(err))
			} else {
				l.Error("Cycle failed", zap.Duration("retry_after", retryDelay), zap.Error(err))
			}
			delay = retryDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (e *Engine) runScheduler(ctx context.Context) {
	sched, err := e.scheduler()
	if err != nil {
		e.logger.Error("Invalid trade windows", zap.Error(err))
		return
	}
	sched.Run(ctx, time.Duration(e.cfg.Trading.PollInterval)*time.Second)
}

func (e *Engine) scheduler() (*Scheduler, error) {
	windows, err := e.cfg.TradeWindows()
	if err != nil {
		return nil, err
	}

	var master models.Account
	for _, acc := range e.accounts {
		if acc.Role == models.RoleMaster {
			master = acc
		}
	}

	params := e.params
	params.Resolver = e.windowResolver

	return NewScheduler(SchedulerConfig{
		Account:     master,
		Symbols:     e.symbols,
		Windows:     windows,
		Location:    e.cfg.Trading.Timezone(),
		MaxTrades:   e.cfg.Trading.MaxTradesPerSession,
		Granularity: e.cfg.Trading.Granularity,
	},
		e.dialer,
		stake.NewMultiplier(e.symbols, e.cfg.Trading.EscalationMultiplier),
		e.stats,
		e.notifier,
		params,
		e.logger,
	), nil
}
