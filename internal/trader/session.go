package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deriv-copy-trader-go/internal/deriv"
	"deriv-copy-trader-go/internal/models"

	"go.uber.org/zap"
)

var errNotConnected = errors.New("session not connected")

// Session owns one authenticated broker connection for one account and one
// symbol. Master and follower sessions are the same type; the role only
// decides which capabilities the caller uses.
type Session struct {
	account models.Account
	symbol  models.Symbol
	dialer  deriv.Dialer
	params  ExecutionParams
	logger  *zap.Logger

	client  deriv.ClientInterface
	balance float64
}

// NewSession creates an unconnected session. The logger should already carry
// the symbol and cycle fields; the session only adds the account.
func NewSession(account models.Account, symbol models.Symbol, dialer deriv.Dialer, params ExecutionParams, logger *zap.Logger) *Session {
	return &Session{
		account: account,
		symbol:  symbol,
		dialer:  dialer,
		params:  params,
		logger: logger.With(
			zap.String("account", account.Name),
			zap.String("role", string(account.Role)),
		),
	}
}

// Account returns the account the session trades for.
func (s *Session) Account() models.Account {
	return s.account
}

// Balance is the account balance reported at authorization.
func (s *Session) Balance() float64 {
	return s.balance
}

// Connect dials the broker and authorizes the account. A rejected credential
// is reported as deriv.ErrAuthFailed.
func (s *Session) Connect(ctx context.Context) error {
	client, err := s.dialer.Dial(ctx)
	if err != nil {
		s.logger.Error("Connection error", zap.Error(err))
		return fmt.Errorf("connect %s: %w", s.account.Name, err)
	}

	auth, err := client.Authorize(ctx, s.account.Token)
	if err != nil {
		_ = client.Close()
		s.logger.Error("Auth failed", zap.String("token", s.account.MaskedToken()), zap.Error(err))
		return fmt.Errorf("authorize %s: %w", s.account.Name, err)
	}

	s.client = client
	s.balance = auth.Balance
	s.logger.Info("Connected",
		zap.Float64("balance", auth.Balance),
		zap.String("currency", auth.Currency),
		zap.String("token", s.account.MaskedToken()))
	return nil
}

// FetchCandles returns the latest count candles for the session's symbol.
func (s *Session) FetchCandles(ctx context.Context, count, granularity int) ([]models.Candle, error) {
	if s.client == nil {
		return nil, errNotConnected
	}
	candles, err := s.client.Candles(ctx, s.symbol.Name, count, granularity)
	if err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}
	return candles, nil
}

// ExecuteTrade runs one trade to a terminal state on this account.
func (s *Session) ExecuteTrade(ctx context.Context, cycleID string, signal models.Signal, stakeAmount float64) models.TradeRecord {
	req := TradeRequest{
		CycleID: cycleID,
		Symbol:  s.symbol,
		Account: s.account,
		Signal:  signal,
		Stake:   stakeAmount,
	}
	if s.client == nil {
		return models.TradeRecord{
			CycleID:   cycleID,
			Symbol:    s.symbol.Name,
			Account:   s.account.Name,
			Role:      s.account.Role,
			Direction: signal.Direction,
			Outcome:   models.OutcomeFailed,
			Reason:    errNotConnected.Error(),
			Timestamp: time.Now(),
		}
	}
	return NewExecutor(s.client, s.params, s.logger).Run(ctx, req)
}

// Close releases the connection. It is safe to call on an unconnected session.
func (s *Session) Close() {
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		s.logger.Debug("Error closing connection", zap.Error(err))
	}
	s.client = nil
}
