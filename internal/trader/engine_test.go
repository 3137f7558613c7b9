package trader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deriv-copy-trader-go/internal/config"
	"deriv-copy-trader-go/internal/models"
	"deriv-copy-trader-go/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Deriv: config.Deriv{Currency: "USD"},
		Trading: config.Trading{
			Mode:                 config.ModeReplication,
			Symbols:              []config.Symbol{{Name: "R_10"}, {Name: "R_25", Multiplier: 0.8}},
			BaseStake:            0.35,
			EscalationMultiplier: 3,
			MinCandles:           30,
			VolatilityThreshold:  0.5,
			Granularity:          1800,
			ContractDuration:     60,
			ContractDurationUnit: "m",
			RetryDelay:           1,
			CycleDelay:           1,
			MaxTradesPerSession:  1,
			PollInterval:         1,
		},
		Accounts: []config.Account{
			{Name: "master", Token: "tok-master", Role: "master"},
			{Name: "f1", Token: "tok-f1", Role: "follower"},
		},
		Server: config.Server{Name: "test-trader"},
	}
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(zap.NewNop(), testConfig(), newFakeBroker(nil), notify.Nop{})
	require.NoError(t, err)

	assert.NotEmpty(t, engine.UUID)
	assert.Equal(t, "test-trader", engine.Name)
	assert.Equal(t, config.ModeReplication, engine.Mode())
	assert.Len(t, engine.symbols, 2)
	assert.Len(t, engine.accounts, 2)
	assert.IsType(t, BrokerResolver{}, engine.params.Resolver)
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Accounts = []config.Account{{Token: "tok-f1", Role: "follower"}}
	_, err := NewEngine(zap.NewNop(), cfg, newFakeBroker(nil), notify.Nop{})
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Trading.OutcomeResolver = "coinflip"
	_, err = NewEngine(zap.NewNop(), cfg, newFakeBroker(nil), notify.Nop{})
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Trading.Symbols = append(cfg.Trading.Symbols, config.Symbol{Name: "R_10", Multiplier: 0.5})
	_, err = NewEngine(zap.NewNop(), cfg, newFakeBroker(nil), notify.Nop{})
	assert.ErrorContains(t, err, "duplicate symbol")
}

func TestEngine_OutcomeResolverOnlyAppliesToWindows(t *testing.T) {
	cfg := testConfig()
	cfg.Trading.OutcomeResolver = ResolverRandom
	cfg.Trading.Windows = []config.Window{{Day: "any", Hour: 14, Minute: 30}}
	engine, err := NewEngine(zap.NewNop(), cfg, newFakeBroker(nil), notify.Nop{})
	require.NoError(t, err)

	coord, err := engine.coordinator(engine.symbols[0])
	require.NoError(t, err)
	assert.IsType(t, BrokerResolver{}, coord.params.Resolver)

	sched, err := engine.scheduler()
	require.NoError(t, err)
	assert.IsType(t, &RandomResolver{}, sched.params.Resolver)
}

func TestEngine_Run_StopsOnCancel(t *testing.T) {
	broker := newFakeBroker(nil)
	engine, err := NewEngine(zap.NewNop(), testConfig(), broker, notify.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("engine did not stop after cancel")
	}
	assert.GreaterOrEqual(t, broker.dials, 2, "one master connection per symbol")
	assert.Zero(t, broker.openConnections())
}

func TestEngine_Run_WindowsModeStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Trading.Mode = config.ModeWindows
	cfg.Trading.Windows = []config.Window{{Day: "any", Hour: 14, Minute: 30}}
	engine, err := NewEngine(zap.NewNop(), cfg, newFakeBroker(nil), notify.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestAPIServer_Handlers(t *testing.T) {
	engine, err := NewEngine(zap.NewNop(), testConfig(), newFakeBroker(nil), notify.Nop{})
	require.NoError(t, err)
	engine.Stats().Record(models.TradeRecord{Symbol: "R_10", Account: "master", Role: models.RoleMaster, Outcome: models.OutcomeWin, Profit: 0.3})

	server := httptest.NewServer(NewAPIServer(engine, 0, zap.NewNop()).Handler())
	defer server.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("status", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()

		var status map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.Equal(t, engine.UUID, status["uuid"])
		assert.Equal(t, "test-trader", status["name"])
		assert.Equal(t, config.ModeReplication, status["mode"])
		assert.NotEmpty(t, status["uptime"])
	})

	t.Run("stats", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/stats")
		require.NoError(t, err)
		defer resp.Body.Close()

		var stats []SymbolStats
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
		require.Len(t, stats, 1)
		assert.Equal(t, "R_10", stats[0].Symbol)
		assert.Equal(t, int64(1), stats[0].Accounts["master"].Wins)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
