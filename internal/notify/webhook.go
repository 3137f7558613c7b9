// Package notify pushes settled trades to an external webhook.
package notify

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"deriv-copy-trader-go/internal/config"
	"deriv-copy-trader-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxRetries = 3

// Notifier receives every trade record once it reaches a terminal state.
type Notifier interface {
	Notify(ctx context.Context, record models.TradeRecord) error
}

// Nop discards records.
type Nop struct{}

func (Nop) Notify(context.Context, models.TradeRecord) error { return nil }

// Webhook posts trade records as JSON to a configured URL.
type Webhook struct {
	client  *resty.Client
	url     string
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff func(attempt int) time.Duration
}

// New returns a Webhook when a URL is configured and Nop otherwise.
func New(cfg config.Notify, logger *zap.Logger) Notifier {
	if cfg.WebhookURL == "" {
		return Nop{}
	}
	return NewWebhook(cfg, logger)
}

// NewWebhook creates a webhook notifier.
func NewWebhook(cfg config.Notify, logger *zap.Logger) *Webhook {
	return &Webhook{
		client:  resty.New().SetTimeout(10 * time.Second),
		url:     cfg.WebhookURL,
		logger:  logger.Named("notify"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		backoff: func(attempt int) time.Duration {
			// Exponential backoff: 1s, 2s, 4s
			return time.Duration(math.Pow(2, float64(attempt))) * time.Second
		},
	}
}

// Notify posts the record, retrying on throttling, server errors and
// network failures.
func (w *Webhook) Notify(ctx context.Context, record models.TradeRecord) error {
	var resp *resty.Response
	var err error

	for i := 0; i < maxRetries; i++ {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = w.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(record).
			Post(w.url)

		if err == nil && !resp.IsError() {
			return nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else {
			shouldRetry = true
		}

		if !shouldRetry {
			return fmt.Errorf("webhook rejected trade %s with status %s", record.ID, resp.Status())
		}

		if retryAfter == 0 {
			retryAfter = w.backoff(i)
		}

		w.logger.Warn("Webhook delivery failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err == nil {
		err = fmt.Errorf("status %s", resp.Status())
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", maxRetries, err)
}
