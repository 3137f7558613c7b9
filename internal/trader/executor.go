package trader

import (
	"context"
	"time"

	"deriv-copy-trader-go/internal/deriv"
	"deriv-copy-trader-go/internal/models"
	"deriv-copy-trader-go/internal/stake"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is a step of a single trade on one account.
type State string

const (
	StateIdle              State = "idle"
	StateProposalRequested State = "proposal_requested"
	StateBought            State = "bought"
	StateHolding           State = "holding"
	StateSettled           State = "settled"
	StateFailed            State = "failed"
)

// ExecutionParams are the contract terms shared by every trade.
type ExecutionParams struct {
	Currency     string
	Duration     int
	DurationUnit string
	Hold         time.Duration
	Resolver     OutcomeResolver
}

// TradeRequest is one account's share of a replicated signal.
type TradeRequest struct {
	CycleID string
	Symbol  models.Symbol
	Account models.Account
	Signal  models.Signal
	Stake   float64
}

// Executor drives one trade through proposal, purchase, hold and settlement.
// It never returns an error: every failure ends in StateFailed and is
// reported on the trade record.
type Executor struct {
	client deriv.ClientInterface
	params ExecutionParams
	logger *zap.Logger
	state  State
}

// NewExecutor creates an executor for a single trade.
func NewExecutor(client deriv.ClientInterface, params ExecutionParams, logger *zap.Logger) *Executor {
	if params.Resolver == nil {
		params.Resolver = BrokerResolver{}
	}
	return &Executor{client: client, params: params, logger: logger, state: StateIdle}
}

// State returns the current state of the machine.
func (e *Executor) State() State {
	return e.state
}

// Run executes the trade and returns its record.
func (e *Executor) Run(ctx context.Context, req TradeRequest) models.TradeRecord {
	amount := stake.Round(req.Stake * req.Symbol.Multiplier)
	record := models.TradeRecord{
		ID:        uuid.New().String(),
		CycleID:   req.CycleID,
		Symbol:    req.Symbol.Name,
		Account:   req.Account.Name,
		Role:      req.Account.Role,
		Direction: req.Signal.Direction,
		Stake:     amount,
	}

	l := e.logger.With(
		zap.String("token", req.Account.MaskedToken()),
		zap.String("direction", string(req.Signal.Direction)),
		zap.Float64("stake", amount),
	)

	e.state = StateProposalRequested
	proposal, err := e.client.Proposal(ctx, deriv.ProposalRequest{
		Amount:       amount,
		Basis:        "stake",
		ContractType: string(req.Signal.Direction),
		Currency:     e.params.Currency,
		Duration:     e.params.Duration,
		DurationUnit: e.params.DurationUnit,
		Symbol:       req.Symbol.Name,
	})
	if err != nil {
		l.Error("Proposal failed", zap.Error(err))
		return e.fail(record, err)
	}

	receipt, err := e.client.Buy(ctx, proposal.ID, amount)
	if err != nil {
		l.Error("Buy failed", zap.Error(err))
		return e.fail(record, err)
	}
	e.state = StateBought
	record.ContractID = receipt.ContractID
	l.Info("Trade sent", zap.Int64("contract_id", receipt.ContractID))

	e.state = StateHolding
	select {
	case <-time.After(e.params.Hold):
	case <-ctx.Done():
		l.Warn("Hold interrupted", zap.Error(ctx.Err()))
		return e.fail(record, ctx.Err())
	}

	profit, err := e.params.Resolver.Resolve(ctx, e.client, receipt, amount)
	if err != nil {
		l.Error("Failed to settle contract", zap.Error(err))
		return e.fail(record, err)
	}

	e.state = StateSettled
	record.Profit = profit
	record.Timestamp = time.Now()
	if profit > 0 {
		record.Outcome = models.OutcomeWin
		l.Info("WIN", zap.Float64("profit", profit))
	} else {
		record.Outcome = models.OutcomeLoss
		l.Info("LOSS", zap.Float64("loss", -profit))
	}
	return record
}

func (e *Executor) fail(record models.TradeRecord, err error) models.TradeRecord {
	e.state = StateFailed
	record.Outcome = models.OutcomeFailed
	record.Reason = err.Error()
	record.Timestamp = time.Now()
	return record
}
