package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"deriv-copy-trader-go/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModeReplication = "replication"
	ModeWindows     = "windows"
)

// Config holds all configuration for the application.
type Config struct {
	Deriv    Deriv     `mapstructure:"deriv"`
	Trading  Trading   `mapstructure:"trading"`
	Accounts []Account `mapstructure:"accounts"`
	Logger   Logger    `mapstructure:"logger"`
	Server   Server    `mapstructure:"server"`
	Notify   Notify    `mapstructure:"notify"`
}

// Deriv holds the configuration for the broker websocket API.
type Deriv struct {
	AppID          int     `mapstructure:"app_id"`
	Endpoint       string  `mapstructure:"endpoint"`
	Currency       string  `mapstructure:"currency"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	DialTimeout    int     `mapstructure:"dial_timeout"`
}

// URL returns the websocket endpoint with the application id attached.
func (d Deriv) URL() string {
	return fmt.Sprintf("%s?app_id=%d", d.Endpoint, d.AppID)
}

// Symbol is one entry of the tradable symbol table.
type Symbol struct {
	Name       string  `mapstructure:"name"`
	BaseStake  float64 `mapstructure:"base_stake"`
	Multiplier float64 `mapstructure:"multiplier"`
	Class      string  `mapstructure:"class"`
}

// Window is the raw form of a trade window. Day is "any", a weekday
// number (0 = Sunday) or an English weekday name.
type Window struct {
	Day    string `mapstructure:"day"`
	Hour   int    `mapstructure:"hour"`
	Minute int    `mapstructure:"minute"`
}

// Trading holds the configuration for the trading logic.
type Trading struct {
	Mode                 string   `mapstructure:"mode"`
	Symbols              []Symbol `mapstructure:"symbols"`
	BaseStake            float64  `mapstructure:"base_stake"`
	EscalationMultiplier float64  `mapstructure:"escalation_multiplier"`
	MaxEscalationStep    int      `mapstructure:"max_escalation_step"`
	Granularity          int      `mapstructure:"granularity"`
	MinCandles           int      `mapstructure:"min_candles"`
	VolatilityThreshold  float64  `mapstructure:"volatility_threshold"`
	ContractDuration     int      `mapstructure:"contract_duration"`
	ContractDurationUnit string   `mapstructure:"contract_duration_unit"`
	HoldSeconds          int      `mapstructure:"hold_seconds"`
	RetryDelay           int      `mapstructure:"retry_delay"`
	CycleDelay           int      `mapstructure:"cycle_delay"`
	Windows              []Window `mapstructure:"windows"`
	TimezoneOffset       int      `mapstructure:"timezone_offset"`
	MaxTradesPerSession  int      `mapstructure:"max_trades_per_session"`
	PollInterval         int      `mapstructure:"poll_interval"`
	OutcomeResolver      string   `mapstructure:"outcome_resolver"`
}

// Account is a credential with its replication role.
type Account struct {
	Name     string `mapstructure:"name"`
	Token    string `mapstructure:"token"`
	TokenEnv string `mapstructure:"token_env"`
	Role     string `mapstructure:"role"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Server holds the configuration for the status server.
type Server struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
}

// Notify holds the configuration for the trade webhook.
type Notify struct {
	WebhookURL     string  `mapstructure:"webhook_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file next to the working directory is loaded first so that
// account tokens can be kept out of the yml file.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	err = config.resolveTokens()
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deriv.app_id", 71130)
	v.SetDefault("deriv.endpoint", "wss://ws.derivws.com/websockets/v3")
	v.SetDefault("deriv.currency", "USD")
	v.SetDefault("deriv.rate_limit", 5)
	v.SetDefault("deriv.rate_limit_burst", 5)
	v.SetDefault("deriv.dial_timeout", 10)

	v.SetDefault("trading.mode", ModeReplication)
	v.SetDefault("trading.base_stake", 0.35)
	v.SetDefault("trading.escalation_multiplier", 3)
	v.SetDefault("trading.max_escalation_step", 0) // no cap
	v.SetDefault("trading.granularity", 1800)
	v.SetDefault("trading.min_candles", 30)
	v.SetDefault("trading.volatility_threshold", 0.5)
	v.SetDefault("trading.contract_duration", 60)
	v.SetDefault("trading.contract_duration_unit", "m")
	v.SetDefault("trading.hold_seconds", 125)
	v.SetDefault("trading.retry_delay", 5)
	v.SetDefault("trading.cycle_delay", 5)
	v.SetDefault("trading.max_trades_per_session", 1)
	v.SetDefault("trading.poll_interval", 10)
	v.SetDefault("trading.outcome_resolver", "broker")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("server.name", "deriv-copy-trader")
	v.SetDefault("server.port", 8080)

	v.SetDefault("notify.rate_limit", 2)
	v.SetDefault("notify.rate_limit_burst", 2)
}

func (c *Config) resolveTokens() error {
	for i, acc := range c.Accounts {
		if acc.Token != "" || acc.TokenEnv == "" {
			continue
		}
		token := os.Getenv(acc.TokenEnv)
		if token == "" {
			return fmt.Errorf("account %d: environment variable %s is empty", i, acc.TokenEnv)
		}
		c.Accounts[i].Token = token
	}
	return nil
}

// Validate checks the invariants the trading loops rely on.
func (c *Config) Validate() error {
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}
	// Escalation state is keyed by symbol name.
	seen := make(map[string]bool, len(c.Trading.Symbols))
	for _, s := range c.Trading.Symbols {
		if s.Name == "" {
			return fmt.Errorf("symbol with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate symbol %q", s.Name)
		}
		seen[s.Name] = true
	}
	if c.Trading.EscalationMultiplier <= 0 {
		return fmt.Errorf("escalation_multiplier must be positive")
	}
	if _, err := c.AccountList(); err != nil {
		return err
	}
	if c.Trading.Mode == ModeWindows {
		if _, err := c.TradeWindows(); err != nil {
			return err
		}
	} else if c.Trading.Mode != ModeReplication {
		return fmt.Errorf("unknown trading mode %q", c.Trading.Mode)
	}
	return nil
}

// SymbolTable converts the configured symbols, filling in the global base stake
// and a neutral multiplier where an entry leaves them unset.
func (c *Config) SymbolTable() []models.Symbol {
	out := make([]models.Symbol, 0, len(c.Trading.Symbols))
	for _, s := range c.Trading.Symbols {
		sym := models.Symbol{
			Name:       s.Name,
			BaseStake:  s.BaseStake,
			Multiplier: s.Multiplier,
			Class:      s.Class,
		}
		if sym.BaseStake <= 0 {
			sym.BaseStake = c.Trading.BaseStake
		}
		if sym.Multiplier <= 0 {
			sym.Multiplier = 1.0
		}
		out = append(out, sym)
	}
	return out
}

// AccountList converts the configured credentials. Exactly one master is required.
func (c *Config) AccountList() ([]models.Account, error) {
	var masters int
	out := make([]models.Account, 0, len(c.Accounts))
	for i, a := range c.Accounts {
		role, err := models.ParseRole(a.Role)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		if a.Token == "" {
			return nil, fmt.Errorf("account %d: missing token", i)
		}
		if role == models.RoleMaster {
			masters++
		}
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", role, i)
		}
		out = append(out, models.Account{Name: name, Token: a.Token, Role: role})
	}
	if masters != 1 {
		return nil, fmt.Errorf("expected exactly one master account, got %d", masters)
	}
	return out, nil
}

// TradeWindows parses the configured windows.
func (c *Config) TradeWindows() ([]models.TradeWindow, error) {
	out := make([]models.TradeWindow, 0, len(c.Trading.Windows))
	for i, w := range c.Trading.Windows {
		day, err := parseDay(w.Day)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
		if w.Hour < 0 || w.Hour > 23 || w.Minute < 0 || w.Minute > 59 {
			return nil, fmt.Errorf("window %d: invalid time %02d:%02d", i, w.Hour, w.Minute)
		}
		out = append(out, models.TradeWindow{Day: day, Hour: w.Hour, Minute: w.Minute})
	}
	return out, nil
}

func parseDay(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "any" || s == "*" {
		return models.AnyDay, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("day %d out of range", n)
		}
		return n, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return int(d), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// Timezone returns the fixed zone the trade windows are expressed in.
func (t Trading) Timezone() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", t.TimezoneOffset), t.TimezoneOffset*3600)
}
