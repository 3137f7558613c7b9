package trader

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"deriv-copy-trader-go/internal/deriv"
)

const (
	ResolverBroker = "broker"
	ResolverRandom = "random"
)

// OutcomeResolver determines the realized profit of a purchased contract.
type OutcomeResolver interface {
	Resolve(ctx context.Context, client deriv.ClientInterface, receipt *deriv.BuyReceipt, stake float64) (float64, error)
}

// BrokerResolver queries the contract status once and reads its profit.
type BrokerResolver struct{}

func (BrokerResolver) Resolve(ctx context.Context, client deriv.ClientInterface, receipt *deriv.BuyReceipt, _ float64) (float64, error) {
	contract, err := client.OpenContract(ctx, receipt.ContractID)
	if err != nil {
		return 0, err
	}
	return contract.Profit, nil
}

// RandomResolver picks win or loss at random without asking the broker.
// A win pays the quoted payout (or payoutRatio × stake when the receipt has
// none); a loss forfeits the stake.
type RandomResolver struct {
	payoutRatio float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomResolver creates a resolver seeded from seed.
func NewRandomResolver(seed int64, payoutRatio float64) *RandomResolver {
	return &RandomResolver{payoutRatio: payoutRatio, rnd: rand.New(rand.NewSource(seed))}
}

func (r *RandomResolver) Resolve(_ context.Context, _ deriv.ClientInterface, receipt *deriv.BuyReceipt, stake float64) (float64, error) {
	r.mu.Lock()
	won := r.rnd.Intn(2) == 1
	r.mu.Unlock()

	if !won {
		return -stake, nil
	}
	if receipt.Payout > 0 && receipt.BuyPrice > 0 {
		return receipt.Payout - receipt.BuyPrice, nil
	}
	return stake * r.payoutRatio, nil
}

// NewResolver builds the resolver named in the configuration.
func NewResolver(name string) (OutcomeResolver, error) {
	switch name {
	case "", ResolverBroker:
		return BrokerResolver{}, nil
	case ResolverRandom:
		return NewRandomResolver(time.Now().UnixNano(), 0.95), nil
	}
	return nil, fmt.Errorf("unknown outcome resolver %q", name)
}
