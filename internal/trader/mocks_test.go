package trader

import (
	"context"
	"fmt"
	"sync"

	"deriv-copy-trader-go/internal/deriv"
	"deriv-copy-trader-go/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of deriv.ClientInterface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Authorize(ctx context.Context, token string) (*deriv.Authorization, error) {
	args := m.Called(ctx, token)
	auth, _ := args.Get(0).(*deriv.Authorization)
	return auth, args.Error(1)
}

func (m *MockClient) Candles(ctx context.Context, symbol string, count, granularity int) ([]models.Candle, error) {
	args := m.Called(ctx, symbol, count, granularity)
	candles, _ := args.Get(0).([]models.Candle)
	return candles, args.Error(1)
}

func (m *MockClient) Proposal(ctx context.Context, req deriv.ProposalRequest) (*deriv.Proposal, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*deriv.Proposal)
	return p, args.Error(1)
}

func (m *MockClient) Buy(ctx context.Context, proposalID string, price float64) (*deriv.BuyReceipt, error) {
	args := m.Called(ctx, proposalID, price)
	r, _ := args.Get(0).(*deriv.BuyReceipt)
	return r, args.Error(1)
}

func (m *MockClient) OpenContract(ctx context.Context, contractID int64) (*deriv.Contract, error) {
	args := m.Called(ctx, contractID)
	c, _ := args.Get(0).(*deriv.Contract)
	return c, args.Error(1)
}

func (m *MockClient) Close() error {
	return m.Called().Error(0)
}

// fakeBroker is an in-memory broker shared by every connection it hands out.
// Connections are bound to an account by the token they authorize with.
type fakeBroker struct {
	mu sync.Mutex

	candles  []models.Candle
	rejected map[string]bool
	// quoteRejected and buyRejected fail one account's proposal or purchase.
	quoteRejected map[string]bool
	buyRejected   map[string]bool
	// outcomes is a per-token queue of settlement profits; an empty queue wins.
	outcomes map[string][]float64
	dialErr  error
	buyErr   error

	stakes    map[string][]float64
	contracts map[int64]string
	nextID    int64
	dials     int
	closes    int
}

func newFakeBroker(candles []models.Candle) *fakeBroker {
	return &fakeBroker{
		candles:       candles,
		rejected:      make(map[string]bool),
		quoteRejected: make(map[string]bool),
		buyRejected:   make(map[string]bool),
		outcomes:      make(map[string][]float64),
		stakes:        make(map[string][]float64),
		contracts:     make(map[int64]string),
	}
}

func (b *fakeBroker) Dial(context.Context) (deriv.ClientInterface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	b.dials++
	return &fakeConn{broker: b}, nil
}

// stakesFor returns the stake of every proposal the token requested.
func (b *fakeBroker) stakesFor(token string) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]float64(nil), b.stakes[token]...)
}

func (b *fakeBroker) openConnections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials - b.closes
}

type fakeConn struct {
	broker *fakeBroker
	token  string
}

func (c *fakeConn) Authorize(_ context.Context, token string) (*deriv.Authorization, error) {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejected[token] {
		return nil, fmt.Errorf("%w: %w", deriv.ErrAuthFailed, &deriv.APIError{Code: "InvalidToken", Message: "The token is invalid."})
	}
	c.token = token
	return &deriv.Authorization{Balance: 1000, Currency: "USD", LoginID: "VRTC" + token}, nil
}

func (c *fakeConn) Candles(_ context.Context, _ string, count, _ int) ([]models.Candle, error) {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if count < len(b.candles) {
		return append([]models.Candle(nil), b.candles[len(b.candles)-count:]...), nil
	}
	return append([]models.Candle(nil), b.candles...), nil
}

func (c *fakeConn) Proposal(_ context.Context, req deriv.ProposalRequest) (*deriv.Proposal, error) {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stakes[c.token] = append(b.stakes[c.token], req.Amount)
	if b.quoteRejected[c.token] {
		return nil, fmt.Errorf("%w: %w", deriv.ErrQuoteRejected, &deriv.APIError{Code: "ContractBuyValidationError", Message: "Trading is not offered for this asset."})
	}
	return &deriv.Proposal{ID: "prop-" + c.token, AskPrice: req.Amount, Payout: req.Amount * 1.95}, nil
}

func (c *fakeConn) Buy(_ context.Context, _ string, price float64) (*deriv.BuyReceipt, error) {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buyErr != nil {
		return nil, b.buyErr
	}
	if b.buyRejected[c.token] {
		return nil, fmt.Errorf("%w: %w", deriv.ErrPurchaseRejected, &deriv.APIError{Code: "InvalidContractProposal", Message: "Proposal has expired."})
	}
	b.nextID++
	b.contracts[b.nextID] = c.token
	return &deriv.BuyReceipt{ContractID: b.nextID, BuyPrice: price, Payout: price * 1.95}, nil
}

func (c *fakeConn) OpenContract(_ context.Context, contractID int64) (*deriv.Contract, error) {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	token := b.contracts[contractID]
	profit := 1.0
	if q := b.outcomes[token]; len(q) > 0 {
		profit = q[0]
		b.outcomes[token] = q[1:]
	}
	return &deriv.Contract{ContractID: contractID, Profit: profit, Status: "sold", IsSold: 1}, nil
}

func (c *fakeConn) Close() error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	c.broker.closes++
	return nil
}

// stubAnalyzer returns a fixed answer regardless of the candles.
type stubAnalyzer struct {
	signal *models.Signal
}

func (stubAnalyzer) Name() string    { return "stub" }
func (stubAnalyzer) MinCandles() int { return 2 }

func (a stubAnalyzer) Analyze([]models.Candle) (models.Signal, bool) {
	if a.signal == nil {
		return models.Signal{}, false
	}
	return *a.signal, true
}

// recordingNotifier keeps every record it is handed.
type recordingNotifier struct {
	mu      sync.Mutex
	records []models.TradeRecord
}

func (n *recordingNotifier) Notify(_ context.Context, rec models.TradeRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, rec)
	return nil
}

func testSymbol(name string, multiplier float64) models.Symbol {
	return models.Symbol{Name: name, BaseStake: 0.35, Multiplier: multiplier}
}

func testAccounts(followers ...string) []models.Account {
	accounts := []models.Account{{Name: "master", Token: "tok-master", Role: models.RoleMaster}}
	for _, f := range followers {
		accounts = append(accounts, models.Account{Name: f, Token: "tok-" + f, Role: models.RoleFollower})
	}
	return accounts
}
