package deriv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deriv-copy-trader-go/internal/config"
	"deriv-copy-trader-go/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultReadTimeout = 30 * time.Second
	writeTimeout       = 10 * time.Second
	maxMessageSize     = 1 << 20
)

// ClientInterface defines the broker operations used by the trading core.
type ClientInterface interface {
	Authorize(ctx context.Context, token string) (*Authorization, error)
	Candles(ctx context.Context, symbol string, count, granularity int) ([]models.Candle, error)
	Proposal(ctx context.Context, req ProposalRequest) (*Proposal, error)
	Buy(ctx context.Context, proposalID string, price float64) (*BuyReceipt, error)
	OpenContract(ctx context.Context, contractID int64) (*Contract, error)
	Close() error
}

// Dialer opens a new broker connection.
type Dialer interface {
	Dial(ctx context.Context) (ClientInterface, error)
}

// Client is a request/response client over one websocket connection.
// Requests carry no identifiers, so each call holds the connection until its
// reply has been read; replies are therefore consumed in request order.
type Client struct {
	conn        *websocket.Conn
	logger      *zap.Logger
	limiter     *rate.Limiter
	readTimeout time.Duration

	mu sync.Mutex
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// WebsocketDialer dials the broker endpoint described by the config.
type WebsocketDialer struct {
	cfg    config.Deriv
	logger *zap.Logger
}

// NewDialer creates a dialer for the configured endpoint.
func NewDialer(cfg config.Deriv, logger *zap.Logger) *WebsocketDialer {
	return &WebsocketDialer{cfg: cfg, logger: logger}
}

// Dial opens a websocket connection. Each connection gets its own limiter.
func (d *WebsocketDialer) Dial(ctx context.Context) (ClientInterface, error) {
	dialer := websocket.Dialer{HandshakeTimeout: time.Duration(d.cfg.DialTimeout) * time.Second}
	conn, _, err := dialer.DialContext(ctx, d.cfg.URL(), nil)
	if err != nil {
		return nil, transportError("dial", err)
	}
	limiter := rate.NewLimiter(rate.Limit(d.cfg.RateLimit), d.cfg.RateLimitBurst)
	return NewClient(conn, limiter, d.logger), nil
}

// NewClient wraps an established connection.
func NewClient(conn *websocket.Conn, limiter *rate.Limiter, logger *zap.Logger) *Client {
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		conn:        conn,
		logger:      logger,
		limiter:     limiter,
		readTimeout: defaultReadTimeout,
	}
}

// call sends one request and reads exactly one reply.
func (c *Client) call(ctx context.Context, op string, req interface{}) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("Sending request", zap.String("op", op))

	c.conn.SetWriteDeadline(deadline(ctx, writeTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, transportError(op, err)
	}

	var resp response
	c.conn.SetReadDeadline(deadline(ctx, c.readTimeout))
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, transportError(op, err)
	}
	return &resp, nil
}

// deadline returns the earlier of the context deadline and now+d.
func deadline(ctx context.Context, d time.Duration) time.Time {
	t := time.Now().Add(d)
	if dl, ok := ctx.Deadline(); ok && dl.Before(t) {
		return dl
	}
	return t
}

// Authorize logs the connection in with an account token.
func (c *Client) Authorize(ctx context.Context, token string) (*Authorization, error) {
	resp, err := c.call(ctx, "authorize", authorizeRequest{Authorize: token})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, resp.Error)
	}
	if resp.Authorize == nil {
		return nil, fmt.Errorf("%w: empty authorize response", ErrAuthFailed)
	}
	return resp.Authorize, nil
}

// Candles fetches the latest count candles of the given granularity in seconds.
func (c *Client) Candles(ctx context.Context, symbol string, count, granularity int) ([]models.Candle, error) {
	resp, err := c.call(ctx, "ticks_history", ticksHistoryRequest{
		TicksHistory: symbol,
		End:          "latest",
		Count:        count,
		Granularity:  granularity,
		Style:        "candles",
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("failed to get candles for %s: %w", symbol, resp.Error)
	}

	candles := make([]models.Candle, len(resp.Candles))
	for i, wc := range resp.Candles {
		candles[i] = wc.toModel()
	}
	return candles, nil
}

// Proposal requests a price quote.
func (c *Client) Proposal(ctx context.Context, req ProposalRequest) (*Proposal, error) {
	req.Proposal = 1
	resp, err := c.call(ctx, "proposal", req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuoteRejected, resp.Error)
	}
	if resp.Proposal == nil || resp.Proposal.ID == "" {
		return nil, fmt.Errorf("%w: missing proposal id", ErrQuoteRejected)
	}
	return resp.Proposal, nil
}

// Buy purchases the quoted contract at the given price.
func (c *Client) Buy(ctx context.Context, proposalID string, price float64) (*BuyReceipt, error) {
	resp, err := c.call(ctx, "buy", buyRequest{Buy: proposalID, Price: price})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %w", ErrPurchaseRejected, resp.Error)
	}
	if resp.Buy == nil || resp.Buy.ContractID == 0 {
		return nil, fmt.Errorf("%w: missing contract id", ErrPurchaseRejected)
	}
	return resp.Buy, nil
}

// OpenContract queries the status of a purchased contract once.
func (c *Client) OpenContract(ctx context.Context, contractID int64) (*Contract, error) {
	resp, err := c.call(ctx, "proposal_open_contract", openContractRequest{
		ProposalOpenContract: 1,
		ContractID:           contractID,
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("failed to get contract %d: %w", contractID, resp.Error)
	}
	if resp.ProposalOpenContract == nil {
		return &Contract{ContractID: contractID}, nil
	}
	return resp.ProposalOpenContract, nil
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
